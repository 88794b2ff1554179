package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/homeledger/homeledger/internal/model"
	"github.com/homeledger/homeledger/internal/store"
)

// timeLayout is fixed width so text comparison orders like time.
const timeLayout = "2006-01-02 15:04:05.000"

// deleteChunk bounds the number of placeholders in one DELETE.
const deleteChunk = 500

const columns = `id, user_id, account_id, posted_at, description, amount_minor, balance_minor, type,
	category_id, subcategory_id, user_description, status, linked_transaction_id,
	savings_goal_id, budget_item_id, amount_override_minor, manually_changed, created_at`

const numColumns = 18

type repo struct {
	q       queryer
	dialect Dialect
}

// ListWindow returns the rows of one account within the window.
func (r *repo) ListWindow(ctx context.Context, w model.Window) ([]model.Transaction, error) {
	query := `SELECT ` + columns + ` FROM transactions
		WHERE user_id = ? AND account_id = ? AND posted_at >= ? AND posted_at <= ?
		ORDER BY posted_at, created_at, id`
	return r.list(ctx, query, w.UserID, w.AccountID, formatTime(w.Start), formatTime(w.End))
}

// ListByUser returns all rows of a user.
func (r *repo) ListByUser(ctx context.Context, userID string) ([]model.Transaction, error) {
	query := `SELECT ` + columns + ` FROM transactions
		WHERE user_id = ?
		ORDER BY posted_at, created_at, id`
	return r.list(ctx, query, userID)
}

// Insert stores new rows one statement at a time.
func (r *repo) Insert(ctx context.Context, txns []model.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	query := r.rebind(`INSERT INTO transactions (` + columns + `) VALUES (` + placeholders(numColumns) + `)`)
	for i, t := range txns {
		if err := checkRange(t); err != nil {
			return fmt.Errorf("inserting row %d: %w", i, err)
		}
		if _, err := r.q.ExecContext(ctx, query, insertArgs(t)...); err != nil {
			return fmt.Errorf("inserting row %d: %w", i, err)
		}
	}
	return nil
}

// Delete removes rows by ID.
func (r *repo) Delete(ctx context.Context, userID string, ids []string) (int, error) {
	total := 0
	for start := 0; start < len(ids); start += deleteChunk {
		end := min(start+deleteChunk, len(ids))
		chunk := ids[start:end]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, userID)
		for _, id := range chunk {
			args = append(args, id)
		}

		query := r.rebind(`DELETE FROM transactions WHERE user_id = ? AND id IN (` + placeholders(len(chunk)) + `)`)
		res, err := r.q.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("deleting rows: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("counting deleted rows: %w", err)
		}
		total += int(n)
	}
	return total, nil
}

// Update overwrites the annotation columns of one row.
func (r *repo) Update(ctx context.Context, t model.Transaction) error {
	query := r.rebind(`UPDATE transactions SET
		category_id = ?, subcategory_id = ?, user_description = ?, status = ?,
		linked_transaction_id = ?, savings_goal_id = ?, budget_item_id = ?,
		amount_override_minor = ?, manually_changed = ?
		WHERE user_id = ? AND id = ?`)

	if err := checkRange(t); err != nil {
		return fmt.Errorf("updating %s: %w", t.ID, err)
	}
	a := t.Annotation
	res, err := r.q.ExecContext(ctx, query,
		nullString(a.CategoryID), nullString(a.SubcategoryID), a.UserDescription, string(statusOrDefault(a.Status)),
		nullString(a.LinkedTransactionID), nullString(a.SavingsGoalID), nullString(a.BudgetItemID),
		nullMinor(a.AmountOverride), a.ManuallyChanged,
		t.UserID, t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating %s: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating %s: %w", t.ID, err)
	}
	if n > 0 {
		return nil
	}

	// MySQL reports zero affected rows when nothing changed.
	var count int
	row := r.q.QueryRowContext(ctx, r.rebind(`SELECT COUNT(*) FROM transactions WHERE user_id = ? AND id = ?`), t.UserID, t.ID)
	if err := row.Scan(&count); err != nil {
		return fmt.Errorf("checking %s: %w", t.ID, err)
	}
	if count == 0 {
		return fmt.Errorf("updating %s: %w", t.ID, store.ErrNotFound)
	}
	return nil
}

// Relink rewrites links that point at the keys of targets.
func (r *repo) Relink(ctx context.Context, userID string, targets map[string]string) (int, error) {
	setQuery := r.rebind(`UPDATE transactions SET linked_transaction_id = ? WHERE user_id = ? AND linked_transaction_id = ?`)
	clearQuery := r.rebind(`UPDATE transactions SET linked_transaction_id = NULL WHERE user_id = ? AND linked_transaction_id = ?`)

	total := 0
	for oldID, newID := range targets {
		var res sql.Result
		var err error
		if newID == "" {
			res, err = r.q.ExecContext(ctx, clearQuery, userID, oldID)
		} else {
			res, err = r.q.ExecContext(ctx, setQuery, newID, userID, oldID)
		}
		if err != nil {
			return total, fmt.Errorf("relinking %s: %w", oldID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("relinking %s: %w", oldID, err)
		}
		total += int(n)
	}
	return total, nil
}

func (r *repo) list(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}
	return txns, nil
}

// rebind converts ? placeholders to $n for postgres.
func (r *repo) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func insertArgs(t model.Transaction) []any {
	a := t.Annotation
	return []any{
		t.ID,
		t.UserID,
		t.AccountID,
		formatTime(t.PostedAt),
		t.Description,
		toMinor(t.Amount),
		nullMinor(t.Balance),
		t.Type,
		nullString(a.CategoryID),
		nullString(a.SubcategoryID),
		a.UserDescription,
		string(statusOrDefault(a.Status)),
		nullString(a.LinkedTransactionID),
		nullString(a.SavingsGoalID),
		nullString(a.BudgetItemID),
		nullMinor(a.AmountOverride),
		a.ManuallyChanged,
		formatTime(t.CreatedAt),
	}
}

func scanTransaction(rows *sql.Rows) (model.Transaction, error) {
	var (
		t                                              model.Transaction
		postedAt, createdAt, status                    string
		amount                                         int64
		balance, override                              sql.NullInt64
		category, subcategory, linked, goal, budgetRow sql.NullString
	)
	err := rows.Scan(
		&t.ID, &t.UserID, &t.AccountID, &postedAt, &t.Description, &amount, &balance, &t.Type,
		&category, &subcategory, &t.UserDescription, &status, &linked,
		&goal, &budgetRow, &override, &t.ManuallyChanged, &createdAt,
	)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("scanning transaction: %w", err)
	}

	if t.PostedAt, err = parseTime(postedAt); err != nil {
		return model.Transaction{}, fmt.Errorf("parsing posted_at of %s: %w", t.ID, err)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Transaction{}, fmt.Errorf("parsing created_at of %s: %w", t.ID, err)
	}

	t.Amount = fromMinor(amount)
	t.Balance = ptrMinor(balance)
	t.Status = model.Status(status)
	t.CategoryID = ptrString(category)
	t.SubcategoryID = ptrString(subcategory)
	t.LinkedTransactionID = ptrString(linked)
	t.SavingsGoalID = ptrString(goal)
	t.BudgetItemID = ptrString(budgetRow)
	t.AmountOverride = ptrMinor(override)
	return t, nil
}

func statusOrDefault(s model.Status) model.Status {
	if s == "" {
		return model.StatusUnreviewed
	}
	return s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, s, time.UTC)
}

// checkRange rejects amounts that toMinor would wrap.
func checkRange(t model.Transaction) error {
	amounts := []struct {
		name string
		d    *decimal.Decimal
	}{
		{"amount", &t.Amount},
		{"balance", t.Balance},
		{"amount override", t.AmountOverride},
	}
	for _, a := range amounts {
		if a.d != nil && !model.AmountInRange(*a.d) {
			return fmt.Errorf("%s %s: %w", a.name, a.d.String(), store.ErrAmountRange)
		}
	}
	return nil
}

func toMinor(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromMinor(n int64) decimal.Decimal {
	return decimal.New(n, -2)
}

func nullMinor(d *decimal.Decimal) sql.NullInt64 {
	if d == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMinor(*d), Valid: true}
}

func ptrMinor(n sql.NullInt64) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := fromMinor(n.Int64)
	return &d
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func ptrString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
