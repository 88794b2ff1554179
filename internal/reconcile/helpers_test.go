package reconcile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/homeledger/homeledger/internal/model"
	"github.com/homeledger/homeledger/internal/store"
	"github.com/homeledger/homeledger/internal/store/sqlstore"
)

func newTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	ctx := context.Background()
	s, err := sqlstore.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

// newTestEngine returns an engine with sequential ids and a fixed clock.
func newTestEngine(s store.Store) *Engine {
	e := NewEngine(s)
	n := 0
	e.newID = func() string {
		n++
		return fmt.Sprintf("gen-%03d", n)
	}
	e.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	return e
}

func day(s string) time.Time {
	t, err := time.Parse(model.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func strPtr(s string) *string { return &s }

func window(account, start, end string) model.Window {
	return model.Window{
		UserID:    "u1",
		AccountID: account,
		Start:     model.StartOfDay(day(start)),
		End:       model.EndOfDay(day(end)),
	}
}

func cand(account, date, desc, amount string) model.Candidate {
	return model.Candidate{
		AccountID:   account,
		PostedAt:    day(date),
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
	}
}

func stored(id, account, date, desc, amount string) model.Transaction {
	return model.Transaction{
		ID:          id,
		UserID:      "u1",
		AccountID:   account,
		PostedAt:    day(date),
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		CreatedAt:   time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Annotation:  model.DefaultAnnotation(),
	}
}

func seed(t *testing.T, s store.Store, txns ...model.Transaction) {
	t.Helper()
	require.NoError(t, s.Insert(context.Background(), txns))
}

func allRows(t *testing.T, s store.Store) []model.Transaction {
	t.Helper()
	rows, err := s.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	return rows
}

func byFingerprint(rows []model.Transaction) map[string]model.Transaction {
	m := make(map[string]model.Transaction, len(rows))
	for _, r := range rows {
		m[r.Fingerprint()] = r
	}
	return m
}

var errDiskFull = errors.New("disk full")

// failingStore hands out repos whose Insert always fails.
type failingStore struct {
	store.Store
}

func (f failingStore) InTx(ctx context.Context, fn func(store.Repo) error) error {
	return f.Store.InTx(ctx, func(r store.Repo) error {
		return fn(failingRepo{Repo: r})
	})
}

type failingRepo struct {
	store.Repo
}

func (failingRepo) Insert(context.Context, []model.Transaction) error {
	return errDiskFull
}

type recordedRuns struct {
	runs []Run
	err  error
}

func (r *recordedRuns) Record(_ context.Context, run Run) error {
	r.runs = append(r.runs, run)
	return r.err
}

type accountSet map[string]bool

func (a accountSet) Exists(id string) bool { return a[id] }
