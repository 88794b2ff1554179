package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/homeledger/homeledger/internal/logger"
	"github.com/homeledger/homeledger/internal/model"
	"github.com/homeledger/homeledger/internal/store"
)

// SweepResult counts what one sweep did.
type SweepResult struct {
	Deleted int
	Kept    int
	Groups  int
}

// Sweeper collapses fingerprint collisions across all of a user's rows.
type Sweeper struct {
	store store.Store

	// MergeAnnotations fills default fields of the survivor from the
	// discarded rows instead of dropping their annotations.
	MergeAnnotations bool
}

// NewSweeper creates a Sweeper over s.
func NewSweeper(s store.Store) *Sweeper {
	return &Sweeper{store: s}
}

// Sweep keeps the best-ranked row of every fingerprint group and deletes the
// rest. Links to deleted rows are repointed at the survivor.
func (s *Sweeper) Sweep(ctx context.Context, userID string) (SweepResult, error) {
	log := logger.FromContext(ctx).With().Str("user_id", userID).Logger()

	var res SweepResult
	err := s.store.InTx(ctx, func(r store.Repo) error {
		rows, err := r.ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("loading rows: %w", err)
		}

		groups := make(map[string][]model.Transaction)
		var order []string
		for _, t := range rows {
			fp := t.Fingerprint()
			if _, seen := groups[fp]; !seen {
				order = append(order, fp)
			}
			groups[fp] = append(groups[fp], t)
		}

		var losers []string
		targets := make(map[string]string)
		for _, fp := range order {
			group := groups[fp]
			if len(group) < 2 {
				continue
			}
			res.Groups++

			sort.SliceStable(group, func(i, j int) bool { return outranks(group[i], group[j]) })
			survivor := group[0]
			members := make(map[string]bool, len(group))
			for _, t := range group {
				members[t.ID] = true
			}
			for _, loser := range group[1:] {
				losers = append(losers, loser.ID)
				targets[loser.ID] = survivor.ID
			}

			// A link inside the group would become a self link once losers
			// are folded into the survivor.
			changed := false
			if l := survivor.LinkedTransactionID; l != nil && members[*l] {
				survivor.LinkedTransactionID = nil
				changed = true
			}
			if s.MergeAnnotations && mergeAnnotations(&survivor.Annotation, group[1:], members) {
				changed = true
			}
			if changed {
				if err := r.Update(ctx, survivor); err != nil {
					return fmt.Errorf("merging into %s: %w", survivor.ID, err)
				}
			}
		}

		if res.Deleted, err = r.Delete(ctx, userID, losers); err != nil {
			return fmt.Errorf("deleting duplicates: %w", err)
		}
		if _, err := r.Relink(ctx, userID, targets); err != nil {
			return fmt.Errorf("relinking: %w", err)
		}
		res.Kept = len(rows) - res.Deleted
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("sweep rolled back")
		return SweepResult{}, fmt.Errorf("sweeping duplicates: %w", err)
	}

	log.Info().
		Int("groups", res.Groups).
		Int("deleted", res.Deleted).
		Int("kept", res.Kept).
		Bool("merged", s.MergeAnnotations).
		Msg("duplicates swept")
	return res, nil
}

// mergeAnnotations fills every default field of dst from the first donor that
// has a value. Donors must be ordered best first. Links to any id in group are
// never taken. Reports whether dst changed.
func mergeAnnotations(dst *model.Annotation, donors []model.Transaction, group map[string]bool) bool {
	before := *dst
	for _, d := range donors {
		src := d.Annotation
		if dst.CategoryID == nil {
			dst.CategoryID = src.CategoryID
		}
		if dst.SubcategoryID == nil {
			dst.SubcategoryID = src.SubcategoryID
		}
		if dst.UserDescription == "" {
			dst.UserDescription = src.UserDescription
		}
		if isDefaultStatus(dst.Status) && !isDefaultStatus(src.Status) {
			dst.Status = src.Status
		}
		if dst.LinkedTransactionID == nil && src.LinkedTransactionID != nil && !group[*src.LinkedTransactionID] {
			dst.LinkedTransactionID = src.LinkedTransactionID
		}
		if dst.SavingsGoalID == nil {
			dst.SavingsGoalID = src.SavingsGoalID
		}
		if dst.BudgetItemID == nil {
			dst.BudgetItemID = src.BudgetItemID
		}
		if dst.AmountOverride == nil {
			dst.AmountOverride = src.AmountOverride
		}
		dst.ManuallyChanged = dst.ManuallyChanged || src.ManuallyChanged
	}
	return !annotationsEqual(before, *dst)
}

func isDefaultStatus(s model.Status) bool {
	return s == "" || s == model.StatusUnreviewed
}

func annotationsEqual(a, b model.Annotation) bool {
	return a.CategoryID == b.CategoryID &&
		a.SubcategoryID == b.SubcategoryID &&
		a.UserDescription == b.UserDescription &&
		a.Status == b.Status &&
		a.LinkedTransactionID == b.LinkedTransactionID &&
		a.SavingsGoalID == b.SavingsGoalID &&
		a.BudgetItemID == b.BudgetItemID &&
		a.AmountOverride == b.AmountOverride &&
		a.ManuallyChanged == b.ManuallyChanged
}
