package store

import (
	"context"
	"errors"

	"github.com/homeledger/homeledger/internal/model"
)

// ErrNotFound is returned when an update targets a missing row.
var ErrNotFound = errors.New("transaction not found")

// ErrAmountRange is returned when an amount does not fit the stored
// representation.
var ErrAmountRange = errors.New("amount out of range")

// Repo reads and writes transactions. Every method is scoped by user.
type Repo interface {
	// ListWindow returns the rows of w.UserID/w.AccountID posted within w.
	ListWindow(ctx context.Context, w model.Window) ([]model.Transaction, error)

	// ListByUser returns every row of the user ordered by posting date.
	ListByUser(ctx context.Context, userID string) ([]model.Transaction, error)

	// Insert stores new rows.
	Insert(ctx context.Context, txns []model.Transaction) error

	// Delete removes rows by ID and returns the number removed.
	Delete(ctx context.Context, userID string, ids []string) (int, error)

	// Update overwrites the annotation of an existing row.
	Update(ctx context.Context, txn model.Transaction) error

	// Relink rewrites LinkedTransactionID values of the user's rows. Keys are
	// old targets; an empty value clears the link. Returns rows changed.
	Relink(ctx context.Context, userID string, targets map[string]string) (int, error)
}

// Store is a Repo that can run a function inside one atomic transaction.
type Store interface {
	Repo

	// InTx runs fn against a transactional Repo. If fn returns an error every
	// write made through that Repo is rolled back.
	InTx(ctx context.Context, fn func(Repo) error) error

	Close() error
}
