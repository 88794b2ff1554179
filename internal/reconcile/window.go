package reconcile

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/homeledger/homeledger/internal/fingerprint"
	"github.com/homeledger/homeledger/internal/model"
)

// ResolveExplicit builds the window of a bulletproof sync from its explicit
// account and dates, widened to whole days.
func ResolveExplicit(userID, accountID, start, end string) (model.Window, error) {
	if strings.TrimSpace(accountID) == "" {
		return model.Window{}, invalid(-1, "accountId", "is required")
	}
	from, err := parseDate(start)
	if err != nil {
		return model.Window{}, invalid(-1, "startDate", "%v", err)
	}
	to, err := parseDate(end)
	if err != nil {
		return model.Window{}, invalid(-1, "endDate", "%v", err)
	}
	if to.Before(from) {
		return model.Window{}, invalid(-1, "endDate", "%s is before startDate %s", end, start)
	}

	return model.Window{
		UserID:    userID,
		AccountID: accountID,
		Start:     model.StartOfDay(from),
		End:       model.EndOfDay(to),
	}, nil
}

// ResolveFromBatch derives the window of a synchronize request from the
// earliest and latest candidate dates. The account is taken from the first row.
func ResolveFromBatch(userID string, batch []model.Candidate) (model.Window, error) {
	if len(batch) == 0 {
		return model.Window{}, invalid(-1, "transactions", "cannot derive a date range from an empty batch")
	}
	accountID := batch[0].AccountID
	if strings.TrimSpace(accountID) == "" {
		return model.Window{}, invalid(0, "accountId", "is required to scope the sync")
	}

	from, to := batch[0].PostedAt, batch[0].PostedAt
	for _, c := range batch[1:] {
		if c.PostedAt.Before(from) {
			from = c.PostedAt
		}
		if c.PostedAt.After(to) {
			to = c.PostedAt
		}
	}

	return model.Window{
		UserID:    userID,
		AccountID: accountID,
		Start:     model.StartOfDay(from),
		End:       model.EndOfDay(to),
	}, nil
}

// parseDate accepts anything with a YYYY-MM-DD prefix and drops the time of day.
func parseDate(raw string) (time.Time, error) {
	d := fingerprint.DateOnly(raw)
	if d == "" {
		return time.Time{}, errors.New("is required")
	}
	t, err := time.Parse(model.DateFormat, d)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}
