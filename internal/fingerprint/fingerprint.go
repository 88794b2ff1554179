package fingerprint

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Version identifies the fingerprint scheme. Extraction, restoration and
// sweeping must all use the same version or annotations are silently dropped.
const Version = "v1"

const (
	separator  = "_"
	dateLength = len("2006-01-02")
)

// Compute returns the identity of a bank event:
// "<account>_<YYYY-MM-DD>_<normalized description>_<normalized amount>".
func Compute(accountID, date, description string, amount decimal.Decimal) string {
	var b strings.Builder
	b.WriteString(accountID)
	b.WriteString(separator)
	b.WriteString(DateOnly(date))
	b.WriteString(separator)
	b.WriteString(NormalizeDescription(description))
	b.WriteString(separator)
	b.WriteString(NormalizeAmount(amount))
	return b.String()
}

// DateOnly strips any time-of-day from an ISO-8601 or space-separated
// timestamp. "2025-01-02T10:00:00Z" -> "2025-01-02"
func DateOnly(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexAny(raw, "T "); i >= 0 {
		return raw[:i]
	}
	if len(raw) > dateLength {
		return raw[:dateLength]
	}
	return raw
}

// NormalizeDescription lower-cases and collapses whitespace.
func NormalizeDescription(desc string) string {
	return strings.ToLower(strings.Join(strings.Fields(desc), " "))
}

// NormalizeAmount rounds to the nearest hundredth. "-300" -> "-300.00"
func NormalizeAmount(amount decimal.Decimal) string {
	return amount.Round(2).StringFixed(2)
}
