package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/homeledger/homeledger/internal/fingerprint"
)

// DateFormat is the day-granular layout used for identity and requests.
const DateFormat = "2006-01-02"

// MaxAmount is the largest magnitude an amount may have: stored amounts are
// signed 64-bit counts of hundredths.
var MaxAmount = decimal.New(math.MaxInt64, -2)

// AmountInRange reports whether d, rounded to hundredths, is within
// ±MaxAmount.
func AmountInRange(d decimal.Decimal) bool {
	return d.Round(2).Abs().LessThanOrEqual(MaxAmount)
}

// Status represents the review lifecycle of a transaction.
type Status string

const (
	StatusUnreviewed Status = "unreviewed"
	StatusReviewed   Status = "reviewed"
	StatusFlagged    Status = "flagged"
	StatusIgnored    Status = "ignored"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusUnreviewed, StatusReviewed, StatusFlagged, StatusIgnored:
		return true
	}
	return false
}

// Annotation is the user-added state on a transaction that must survive
// re-import.
type Annotation struct {
	CategoryID          *string
	SubcategoryID       *string
	UserDescription     string
	Status              Status
	LinkedTransactionID *string // e.g. the other side of a transfer
	SavingsGoalID       *string
	BudgetItemID        *string
	AmountOverride      *decimal.Decimal
	ManuallyChanged     bool
}

// DefaultAnnotation returns the annotation of a freshly imported row.
func DefaultAnnotation() Annotation {
	return Annotation{Status: StatusUnreviewed}
}

// IsDefault reports whether no annotation field differs from its default.
func (a Annotation) IsDefault() bool {
	return a.CategoryID == nil &&
		a.SubcategoryID == nil &&
		a.UserDescription == "" &&
		(a.Status == "" || a.Status == StatusUnreviewed) &&
		a.LinkedTransactionID == nil &&
		a.SavingsGoalID == nil &&
		a.BudgetItemID == nil &&
		a.AmountOverride == nil &&
		!a.ManuallyChanged
}

// Transaction is a persisted bank transaction.
type Transaction struct {
	ID          string // storage key, regenerated on every reconciliation pass
	UserID      string
	AccountID   string
	PostedAt    time.Time // midnight UTC of the booking day
	Description string
	Amount      decimal.Decimal  // negative = expense, positive = income
	Balance     *decimal.Decimal // running balance after the transaction
	Type        string
	CreatedAt   time.Time
	Annotation
}

// Fingerprint returns the merge identity of the transaction.
func (t Transaction) Fingerprint() string {
	return fingerprint.Compute(t.AccountID, t.PostedAt.Format(DateFormat), t.Description, t.Amount)
}

// Candidate is a validated statement row waiting to be reconciled.
type Candidate struct {
	AccountID   string
	PostedAt    time.Time
	Description string
	Amount      decimal.Decimal
	Balance     *decimal.Decimal
	Type        string
}

// Fingerprint returns the merge identity the candidate will have once stored.
func (c Candidate) Fingerprint() string {
	return fingerprint.Compute(c.AccountID, c.PostedAt.Format(DateFormat), c.Description, c.Amount)
}
