package reconcile

import "github.com/homeledger/homeledger/internal/model"

// Snapshot maps a fingerprint to the annotation captured from a row that is
// about to be replaced.
type Snapshot map[string]model.Annotation

// ExtractAnnotations captures the annotations of every row that carries user
// state. Rows at their default annotation are left out. When several rows
// share a fingerprint the one the sweeper would keep wins.
func ExtractAnnotations(existing []model.Transaction) Snapshot {
	snap := make(Snapshot)
	best := make(map[string]model.Transaction)
	for _, t := range existing {
		if t.Annotation.IsDefault() {
			continue
		}
		fp := t.Fingerprint()
		if cur, ok := best[fp]; ok && !outranks(t, cur) {
			continue
		}
		best[fp] = t
		snap[fp] = t.Annotation
	}
	return snap
}

// Restore copies the snapshot annotation matching t's fingerprint onto t and
// marks it manually changed. It reports whether a match was found.
func (s Snapshot) Restore(t *model.Transaction) bool {
	a, ok := s[t.Fingerprint()]
	if !ok {
		return false
	}
	t.Annotation = a
	t.ManuallyChanged = true
	return true
}

// outranks reports whether a should survive over b: manually changed rows
// first, then the most recently created, then the lowest ID.
func outranks(a, b model.Transaction) bool {
	if a.ManuallyChanged != b.ManuallyChanged {
		return a.ManuallyChanged
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}
