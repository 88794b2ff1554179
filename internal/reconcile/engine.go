package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/homeledger/homeledger/internal/logger"
	"github.com/homeledger/homeledger/internal/model"
	"github.com/homeledger/homeledger/internal/store"
)

// Result counts what one reconciliation pass did.
type Result struct {
	Deleted     int
	Created     int
	Restored    int
	Skipped     int
	OutOfWindow int
	Relinked    int
}

// Engine replaces the contents of a window with a candidate batch while
// carrying annotations across by fingerprint.
type Engine struct {
	store store.Store
	now   func() time.Time
	newID func() string
}

// NewEngine creates an Engine over s.
func NewEngine(s store.Store) *Engine {
	return &Engine{
		store: s,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Reconcile rebuilds window w from batch inside one storage transaction.
// An empty batch, or one with no row inside w, changes nothing.
func (e *Engine) Reconcile(ctx context.Context, w model.Window, batch []model.Candidate) (Result, error) {
	log := logger.FromContext(ctx).With().
		Str("user_id", w.UserID).
		Str("account_id", w.AccountID).
		Logger()

	var res Result
	if len(batch) == 0 {
		log.Debug().Msg("empty batch, window left untouched")
		return res, nil
	}

	inWindow := make([]model.Candidate, 0, len(batch))
	for i, c := range batch {
		if c.AccountID != w.AccountID {
			return Result{}, invalid(i, "accountId", "%q is outside window account %q", c.AccountID, w.AccountID)
		}
		if !w.Contains(c.PostedAt) {
			res.OutOfWindow++
			continue
		}
		inWindow = append(inWindow, c)
	}
	if len(inWindow) == 0 {
		log.Warn().Int("out_of_window", res.OutOfWindow).Msg("no candidate inside window, nothing replaced")
		return res, nil
	}

	createdAt := e.now()
	err := e.store.InTx(ctx, func(r store.Repo) error {
		existing, err := r.ListWindow(ctx, w)
		if err != nil {
			return fmt.Errorf("loading window: %w", err)
		}
		snap := ExtractAnnotations(existing)

		ids := make([]string, len(existing))
		for i, t := range existing {
			ids[i] = t.ID
		}
		if res.Deleted, err = r.Delete(ctx, w.UserID, ids); err != nil {
			return fmt.Errorf("clearing window: %w", err)
		}

		replacement := make(map[string]string, len(inWindow))
		rows := make([]model.Transaction, 0, len(inWindow))
		for _, c := range inWindow {
			fp := c.Fingerprint()
			if _, dup := replacement[fp]; dup {
				res.Skipped++
				continue
			}
			t := model.Transaction{
				ID:          e.newID(),
				UserID:      w.UserID,
				AccountID:   c.AccountID,
				PostedAt:    c.PostedAt,
				Description: c.Description,
				Amount:      c.Amount,
				Balance:     c.Balance,
				Type:        c.Type,
				CreatedAt:   createdAt,
				Annotation:  model.DefaultAnnotation(),
			}
			if snap.Restore(&t) {
				res.Restored++
			}
			replacement[fp] = t.ID
			rows = append(rows, t)
		}
		if err := r.Insert(ctx, rows); err != nil {
			return fmt.Errorf("inserting batch: %w", err)
		}
		res.Created = len(rows)

		// Links to replaced rows follow the fingerprint; links to dropped rows are cleared.
		targets := make(map[string]string, len(existing))
		for _, t := range existing {
			targets[t.ID] = replacement[t.Fingerprint()]
		}
		if res.Relinked, err = r.Relink(ctx, w.UserID, targets); err != nil {
			return fmt.Errorf("relinking: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("reconciliation rolled back")
		return Result{}, fmt.Errorf("reconciling account %s: %w", w.AccountID, err)
	}

	log.Info().
		Int("deleted", res.Deleted).
		Int("created", res.Created).
		Int("restored", res.Restored).
		Int("skipped", res.Skipped).
		Int("out_of_window", res.OutOfWindow).
		Int("relinked", res.Relinked).
		Msg("window reconciled")
	return res, nil
}
