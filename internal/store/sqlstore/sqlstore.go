package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/homeledger/homeledger/internal/store"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// ParseDialect validates a configured driver name.
func ParseDialect(driver string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(driver))); d {
	case DialectSQLite, DialectPostgres, DialectMySQL:
		return d, nil
	case "postgresql":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a database/sql backed store.Store.
type Store struct {
	*repo
	db *sql.DB
}

// Open connects to the database and verifies the connection. It does not
// create the schema; call Migrate for that.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, errors.New("database dsn is required")
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// sqlite allows a single writer; a transaction must own the only connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", dialect, err)
	}

	return &Store{repo: &repo{q: db, dialect: dialect}, db: db}, nil
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}
	return nil
}

// InTx runs fn inside a database transaction.
func (s *Store) InTx(ctx context.Context, fn func(store.Repo) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&repo{q: tx, dialect: s.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for tests and tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

func schema(d Dialect) []string {
	if d == DialectMySQL {
		return []string{`
		CREATE TABLE IF NOT EXISTS transactions (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			user_id VARCHAR(128) NOT NULL,
			account_id VARCHAR(128) NOT NULL,
			posted_at VARCHAR(23) NOT NULL,
			description VARCHAR(1024) NOT NULL,
			amount_minor BIGINT NOT NULL,
			balance_minor BIGINT NULL,
			type VARCHAR(64) NOT NULL,
			category_id VARCHAR(128) NULL,
			subcategory_id VARCHAR(128) NULL,
			user_description TEXT NOT NULL,
			status VARCHAR(32) NOT NULL,
			linked_transaction_id VARCHAR(36) NULL,
			savings_goal_id VARCHAR(128) NULL,
			budget_item_id VARCHAR(128) NULL,
			amount_override_minor BIGINT NULL,
			manually_changed BOOLEAN NOT NULL,
			created_at VARCHAR(23) NOT NULL,
			INDEX idx_transactions_window (user_id, account_id, posted_at),
			INDEX idx_transactions_link (user_id, linked_transaction_id)
		)`}
	}

	return []string{`
		CREATE TABLE IF NOT EXISTS transactions (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			user_id VARCHAR(128) NOT NULL,
			account_id VARCHAR(128) NOT NULL,
			posted_at VARCHAR(23) NOT NULL,
			description VARCHAR(1024) NOT NULL,
			amount_minor BIGINT NOT NULL,
			balance_minor BIGINT NULL,
			type VARCHAR(64) NOT NULL,
			category_id VARCHAR(128) NULL,
			subcategory_id VARCHAR(128) NULL,
			user_description TEXT NOT NULL,
			status VARCHAR(32) NOT NULL,
			linked_transaction_id VARCHAR(36) NULL,
			savings_goal_id VARCHAR(128) NULL,
			budget_item_id VARCHAR(128) NULL,
			amount_override_minor BIGINT NULL,
			manually_changed BOOLEAN NOT NULL,
			created_at VARCHAR(23) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_window ON transactions (user_id, account_id, posted_at)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_link ON transactions (user_id, linked_transaction_id)`,
	}
}

var _ store.Store = (*Store)(nil)
