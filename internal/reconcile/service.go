package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/homeledger/homeledger/internal/lock"
	"github.com/homeledger/homeledger/internal/logger"
	"github.com/homeledger/homeledger/internal/model"
	"github.com/homeledger/homeledger/internal/store"
)

// Operation names a kind of run for the run log.
type Operation string

const (
	OpSync        Operation = "sync"
	OpBulletproof Operation = "bulletproof-sync"
	OpCleanup     Operation = "cleanup-duplicates"
)

// Run describes one completed operation.
type Run struct {
	Time      time.Time
	UserID    string
	Operation Operation
	Window    model.Window // zero for cleanup
	Deleted   int
	Created   int
	Restored  int
	Skipped   int
	Message   string
}

// Recorder receives every completed run.
type Recorder interface {
	Record(ctx context.Context, run Run) error
}

// SyncStats are the counts reported by Synchronize.
type SyncStats struct {
	Created int `json:"created"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
}

// SyncResponse is returned by Synchronize.
type SyncResponse struct {
	Success bool      `json:"success"`
	Stats   SyncStats `json:"stats"`
	Message string    `json:"message"`
}

// BulletproofStats are the counts reported by BulletproofSync.
type BulletproofStats struct {
	Deleted           int `json:"deleted"`
	Created           int `json:"created"`
	Restored          int `json:"restored"`
	DuplicatesRemoved int `json:"duplicatesRemoved"`
}

// BulletproofResponse is returned by BulletproofSync.
type BulletproofResponse struct {
	Success bool             `json:"success"`
	Stats   BulletproofStats `json:"stats"`
	Message string           `json:"message"`
}

// CleanupResponse is returned by CleanupDuplicates.
type CleanupResponse struct {
	Success bool   `json:"success"`
	Deleted int    `json:"deleted"`
	Kept    int    `json:"kept"`
	Message string `json:"message"`
}

// ListQuery filters ListTransactions. Empty fields do not filter.
type ListQuery struct {
	AccountID string
	StartDate string
	EndDate   string
}

// Options configures a Service.
type Options struct {
	Store    store.Store
	Locker   *lock.Locker
	Accounts AccountChecker // nil accepts every account
	Recorder Recorder       // nil disables the run log

	MergeAnnotations bool
}

// Service validates requests and runs them under the per-user locks.
type Service struct {
	store    store.Store
	locker   *lock.Locker
	accounts AccountChecker
	recorder Recorder
	engine   *Engine
	sweeper  *Sweeper
	now      func() time.Time
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	locker := opts.Locker
	if locker == nil {
		locker = lock.New()
	}
	sweeper := NewSweeper(opts.Store)
	sweeper.MergeAnnotations = opts.MergeAnnotations

	return &Service{
		store:    opts.Store,
		locker:   locker,
		accounts: opts.Accounts,
		recorder: opts.Recorder,
		engine:   NewEngine(opts.Store),
		sweeper:  sweeper,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Synchronize replaces the window spanned by the batch. The account is taken
// from the first row.
func (s *Service) Synchronize(ctx context.Context, userID string, req SyncRequest) (SyncResponse, error) {
	if err := requireUser(userID); err != nil {
		return SyncResponse{}, err
	}
	rows, err := decodeRows(req.Transactions)
	if err != nil {
		return SyncResponse{}, err
	}
	if len(rows) == 0 {
		return SyncResponse{Success: true, Message: "No transactions to sync"}, nil
	}

	scope := strings.TrimSpace(rows[0].AccountID)
	if scope == "" {
		return SyncResponse{}, invalid(0, "accountId", "is required to scope the sync")
	}
	batch, err := toCandidates(rows, scope, s.accounts)
	if err != nil {
		return SyncResponse{}, err
	}
	w, err := ResolveFromBatch(userID, batch)
	if err != nil {
		return SyncResponse{}, err
	}

	res, err := s.reconcile(ctx, w, batch)
	if err != nil {
		return SyncResponse{}, err
	}

	msg := fmt.Sprintf("Synced %d transactions (%d replaced, %d duplicates skipped)", res.Created, res.Deleted, res.Skipped)
	s.record(ctx, Run{UserID: userID, Operation: OpSync, Window: w, Deleted: res.Deleted, Created: res.Created, Restored: res.Restored, Skipped: res.Skipped, Message: msg})
	return SyncResponse{
		Success: true,
		Stats:   SyncStats{Created: res.Created, Deleted: res.Deleted, Skipped: res.Skipped},
		Message: msg,
	}, nil
}

// BulletproofSync replaces an explicit account window, restoring annotations
// on rows whose fingerprint survives.
func (s *Service) BulletproofSync(ctx context.Context, userID string, req BulletproofRequest) (BulletproofResponse, error) {
	if err := requireUser(userID); err != nil {
		return BulletproofResponse{}, err
	}
	w, err := ResolveExplicit(userID, strings.TrimSpace(req.AccountID), req.StartDate, req.EndDate)
	if err != nil {
		return BulletproofResponse{}, err
	}
	if s.accounts != nil && !s.accounts.Exists(w.AccountID) {
		return BulletproofResponse{}, invalid(-1, "accountId", "unknown bank account %q", w.AccountID)
	}
	rows, err := decodeRows(req.Transactions)
	if err != nil {
		return BulletproofResponse{}, err
	}
	batch, err := toCandidates(rows, w.AccountID, s.accounts)
	if err != nil {
		return BulletproofResponse{}, err
	}

	res, err := s.reconcile(ctx, w, batch)
	if err != nil {
		return BulletproofResponse{}, err
	}

	msg := fmt.Sprintf("Replaced %d transactions with %d (%d annotations restored, %d duplicates removed)",
		res.Deleted, res.Created, res.Restored, res.Skipped)
	if res.OutOfWindow > 0 {
		msg += fmt.Sprintf(", ignored %d outside %s..%s", res.OutOfWindow,
			w.Start.Format(model.DateFormat), w.End.Format(model.DateFormat))
	}
	s.record(ctx, Run{UserID: userID, Operation: OpBulletproof, Window: w, Deleted: res.Deleted, Created: res.Created, Restored: res.Restored, Skipped: res.Skipped, Message: msg})
	return BulletproofResponse{
		Success: true,
		Stats: BulletproofStats{
			Deleted:           res.Deleted,
			Created:           res.Created,
			Restored:          res.Restored,
			DuplicatesRemoved: res.Skipped,
		},
		Message: msg,
	}, nil
}

// CleanupDuplicates sweeps every account of the user.
func (s *Service) CleanupDuplicates(ctx context.Context, userID string) (CleanupResponse, error) {
	if err := requireUser(userID); err != nil {
		return CleanupResponse{}, err
	}

	unlock := s.locker.LockUser(userID)
	res, err := s.sweeper.Sweep(ctx, userID)
	unlock()
	if err != nil {
		return CleanupResponse{}, err
	}

	msg := fmt.Sprintf("Removed %d duplicates across %d groups, %d transactions kept", res.Deleted, res.Groups, res.Kept)
	if res.Deleted == 0 {
		msg = fmt.Sprintf("No duplicates found, %d transactions kept", res.Kept)
	}
	s.record(ctx, Run{UserID: userID, Operation: OpCleanup, Window: model.Window{UserID: userID}, Deleted: res.Deleted, Message: msg})
	return CleanupResponse{Success: true, Deleted: res.Deleted, Kept: res.Kept, Message: msg}, nil
}

// ListTransactions returns the user's rows, optionally narrowed to an account
// and an inclusive date range.
func (s *Service) ListTransactions(ctx context.Context, userID string, q ListQuery) ([]model.Transaction, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var from, to time.Time
	if q.StartDate != "" {
		d, err := parseDate(q.StartDate)
		if err != nil {
			return nil, invalid(-1, "start_date", "%v", err)
		}
		from = model.StartOfDay(d)
	}
	if q.EndDate != "" {
		d, err := parseDate(q.EndDate)
		if err != nil {
			return nil, invalid(-1, "end_date", "%v", err)
		}
		to = model.EndOfDay(d)
	}

	rows, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	out := rows[:0]
	for _, t := range rows {
		if q.AccountID != "" && t.AccountID != q.AccountID {
			continue
		}
		if !from.IsZero() && t.PostedAt.Before(from) {
			continue
		}
		if !to.IsZero() && t.PostedAt.After(to) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Service) reconcile(ctx context.Context, w model.Window, batch []model.Candidate) (Result, error) {
	// Relinking rewrites rows of other accounts, so the whole user is held.
	unlock := s.locker.LockUser(w.UserID)
	defer unlock()
	return s.engine.Reconcile(ctx, w, batch)
}

func (s *Service) record(ctx context.Context, run Run) {
	if s.recorder == nil {
		return
	}
	run.Time = s.now()
	if err := s.recorder.Record(ctx, run); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("operation", string(run.Operation)).Msg("recording run")
	}
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return invalid(-1, "user", "is required")
	}
	return nil
}
