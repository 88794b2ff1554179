package reconcile

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/homeledger/homeledger/internal/model"
)

// TransactionInput is one statement row as submitted by a client.
type TransactionInput struct {
	AccountID   string           `json:"accountId,omitempty"`
	Date        string           `json:"date"`
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	Balance     *decimal.Decimal `json:"balance,omitempty"`
	Type        string           `json:"type,omitempty"`
}

// SyncRequest replaces the window spanned by its own rows.
type SyncRequest struct {
	Transactions json.RawMessage `json:"transactions"`
}

// BulletproofRequest replaces an explicit account window.
type BulletproofRequest struct {
	AccountID    string          `json:"accountId"`
	StartDate    string          `json:"startDate"`
	EndDate      string          `json:"endDate"`
	Transactions json.RawMessage `json:"transactions"`
}

// AccountChecker tests whether a bank account id is known.
type AccountChecker interface {
	Exists(id string) bool
}

// decodeRows rejects a missing or non-array transactions field.
func decodeRows(raw json.RawMessage) ([]TransactionInput, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, invalid(-1, "transactions", "is required")
	}
	if trimmed[0] != '[' {
		return nil, invalid(-1, "transactions", "must be an array")
	}

	var rows []TransactionInput
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, invalid(-1, "transactions", "malformed rows: %v", err)
	}
	return rows, nil
}

// toCandidates validates rows and converts them for the engine. Rows without
// an account inherit scope; rows naming another account are rejected.
func toCandidates(rows []TransactionInput, scope string, accounts AccountChecker) ([]model.Candidate, error) {
	candidates := make([]model.Candidate, 0, len(rows))
	for i, row := range rows {
		if strings.TrimSpace(row.Date) == "" {
			return nil, invalid(i, "date", "is required")
		}
		if strings.TrimSpace(row.Description) == "" {
			return nil, invalid(i, "description", "is required")
		}
		if row.Amount == nil {
			return nil, invalid(i, "amount", "is required")
		}
		if !model.AmountInRange(*row.Amount) {
			return nil, invalid(i, "amount", "%s is out of range", row.Amount.String())
		}
		if row.Balance != nil && !model.AmountInRange(*row.Balance) {
			return nil, invalid(i, "balance", "%s is out of range", row.Balance.String())
		}
		postedAt, err := parseDate(row.Date)
		if err != nil {
			return nil, invalid(i, "date", "%v", err)
		}

		accountID := strings.TrimSpace(row.AccountID)
		if accountID == "" {
			accountID = scope
		}
		if accountID != scope {
			return nil, invalid(i, "accountId", "%q does not match %q", accountID, scope)
		}
		if accounts != nil && !accounts.Exists(accountID) {
			return nil, invalid(i, "accountId", "unknown bank account %q", accountID)
		}

		c := model.Candidate{
			AccountID:   accountID,
			PostedAt:    postedAt,
			Description: strings.TrimSpace(row.Description),
			Amount:      row.Amount.Round(2),
			Type:        strings.TrimSpace(row.Type),
		}
		if row.Balance != nil {
			b := row.Balance.Round(2)
			c.Balance = &b
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}
