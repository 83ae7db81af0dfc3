// Package storage persists transactions and recurrence rules in a local
// single-file SQLite database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"easybudget/internal/core"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a transaction or rule does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateOccurrence is returned when an update would place two
	// occurrences of the same rule on the same date.
	ErrDuplicateOccurrence = errors.New("an occurrence of this rule already exists on that date")
)

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if necessary) the database at
// dbPath and brings the schema up to date.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := "file:" + dbPath +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(3000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateTransaction inserts a manual transaction and returns its id.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (date, amount_cents, note, rule_id) VALUES (?, ?, ?, ?)`,
		t.Date.ISO(), t.Amount.Cents, t.Note, t.RuleID)
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"date", t.Date.ISO(),
		"amount_cents", t.Amount.Cents)

	return id, nil
}

// InsertOccurrence inserts one generated occurrence of a rule. The unique
// (rule_id, date) index makes re-insertion a no-op; the return value
// reports whether a row was actually created.
func (r *SQLiteRepository) InsertOccurrence(ctx context.Context, ruleID int64, date core.Date, cents int64, note string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO transactions (date, amount_cents, note, rule_id) VALUES (?, ?, ?, ?)`,
		date.ISO(), cents, note, ruleID)
	if err != nil {
		return false, fmt.Errorf("insert occurrence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert occurrence rows: %w", err)
	}
	return n > 0, nil
}

const txnColumns = `id, date, amount_cents, note, rule_id`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t       core.Transaction
		dateStr string
		ruleID  sql.NullInt64
	)
	if err := row.Scan(&t.ID, &dateStr, &t.Amount.Cents, &t.Note, &ruleID); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored date %q: %w", dateStr, err)
	}
	t.Date = d
	if ruleID.Valid {
		t.RuleID = &ruleID.Int64
	}
	return t, nil
}

// GetTransaction returns a single transaction by id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txnColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// UpdateTransaction rewrites date, amount and note of an existing row.
// A generated occurrence keeps its rule back-reference.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id int64, date core.Date, cents int64, note string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET date = ?, amount_cents = ?, note = ? WHERE id = ?`,
		date.ISO(), cents, note, id)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrDuplicateOccurrence
		}
		return fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTransaction removes a single row (one-off or one occurrence).
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTransactionsByDate returns all transactions on one day, newest first.
func (r *SQLiteRepository) ListTransactionsByDate(ctx context.Context, date core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txnColumns+` FROM transactions WHERE date = ? ORDER BY id DESC`, date.ISO())
	if err != nil {
		return nil, fmt.Errorf("list transactions by date: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListTransactionsInRange returns transactions with first <= date <= last
// in date order.
func (r *SQLiteRepository) ListTransactionsInRange(ctx context.Context, first, last core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txnColumns+` FROM transactions WHERE date BETWEEN ? AND ? ORDER BY date, id`,
		first.ISO(), last.ISO())
	if err != nil {
		return nil, fmt.Errorf("list transactions in range: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// BalanceOnOrBefore sums every amount dated at or before the given day.
func (r *SQLiteRepository) BalanceOnOrBefore(ctx context.Context, date core.Date) (int64, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE date <= ?`,
		date.ISO()).Scan(&cents)
	if err != nil {
		return 0, fmt.Errorf("balance on or before: %w", err)
	}
	return cents, nil
}

// BalanceBefore sums every amount dated strictly before the given day.
func (r *SQLiteRepository) BalanceBefore(ctx context.Context, date core.Date) (int64, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE date < ?`,
		date.ISO()).Scan(&cents)
	if err != nil {
		return 0, fmt.Errorf("balance before: %w", err)
	}
	return cents, nil
}

// DayTotals returns per-day net sums for first <= date <= last, keyed by
// ISO date. Days with no transactions are absent.
func (r *SQLiteRepository) DayTotals(ctx context.Context, first, last core.Date) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, SUM(amount_cents) FROM transactions WHERE date BETWEEN ? AND ? GROUP BY date`,
		first.ISO(), last.ISO())
	if err != nil {
		return nil, fmt.Errorf("day totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var (
			day   string
			cents int64
		)
		if err := rows.Scan(&day, &cents); err != nil {
			return nil, fmt.Errorf("scan day total: %w", err)
		}
		totals[day] = cents
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate day totals: %w", err)
	}
	return totals, nil
}

// CreateRule inserts a recurrence rule and returns its id.
func (r *SQLiteRepository) CreateRule(ctx context.Context, rule core.RecurrenceRule) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurrence_rules (start_date, amount_cents, note, every_n, unit, last_generated)
		 VALUES (?, ?, ?, ?, ?, NULL)`,
		rule.StartDate.ISO(), rule.Amount.Cents, rule.Note, rule.EveryN, string(rule.Unit))
	if err != nil {
		return 0, fmt.Errorf("create rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("rule id: %w", err)
	}

	slog.InfoContext(ctx, "Recurrence rule saved",
		"id", id,
		"start_date", rule.StartDate.ISO(),
		"every_n", rule.EveryN,
		"unit", rule.Unit)

	return id, nil
}

const ruleColumns = `id, start_date, amount_cents, note, every_n, unit, last_generated`

func scanRule(row interface{ Scan(...any) error }) (core.RecurrenceRule, error) {
	var (
		rule      core.RecurrenceRule
		startStr  string
		unit      string
		lastGen   sql.NullString
	)
	if err := row.Scan(&rule.ID, &startStr, &rule.Amount.Cents, &rule.Note, &rule.EveryN, &unit, &lastGen); err != nil {
		return core.RecurrenceRule{}, err
	}
	start, err := core.ParseDate(startStr)
	if err != nil {
		return core.RecurrenceRule{}, fmt.Errorf("stored start date %q: %w", startStr, err)
	}
	rule.StartDate = start
	rule.Unit = core.IntervalUnit(unit)
	if lastGen.Valid {
		d, err := core.ParseDate(lastGen.String)
		if err != nil {
			return core.RecurrenceRule{}, fmt.Errorf("stored watermark %q: %w", lastGen.String, err)
		}
		rule.LastGenerated = d
	}
	return rule, nil
}

// GetRule returns a single recurrence rule by id.
func (r *SQLiteRepository) GetRule(ctx context.Context, id int64) (core.RecurrenceRule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM recurrence_rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurrenceRule{}, ErrNotFound
	}
	if err != nil {
		return core.RecurrenceRule{}, fmt.Errorf("get rule: %w", err)
	}
	return rule, nil
}

// ListRules returns all recurrence rules in creation order.
func (r *SQLiteRepository) ListRules(ctx context.Context) ([]core.RecurrenceRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM recurrence_rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []core.RecurrenceRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return out, nil
}

// UpdateRuleLastGenerated advances a rule's expansion watermark.
func (r *SQLiteRepository) UpdateRuleLastGenerated(ctx context.Context, id int64, date core.Date) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE recurrence_rules SET last_generated = ? WHERE id = ?`, date.ISO(), id)
	if err != nil {
		return fmt.Errorf("update rule watermark: %w", err)
	}
	return nil
}

// DeleteRuleAndOccurrences removes a rule and every transaction it
// generated, atomically.
func (r *SQLiteRepository) DeleteRuleAndOccurrences(ctx context.Context, ruleID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete series: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE rule_id = ?`, ruleID); err != nil {
		return fmt.Errorf("delete occurrences: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM recurrence_rules WHERE id = ?`, ruleID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rule rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete series: %w", err)
	}

	slog.InfoContext(ctx, "Recurrence series deleted", "rule_id", ruleID)
	return nil
}

// FindDetachedTransaction looks for a manually entered transaction with
// the given date, amount and note. Used to fold a manual first entry into
// a freshly created rule instead of double-counting it.
func (r *SQLiteRepository) FindDetachedTransaction(ctx context.Context, date core.Date, cents int64, note string) (int64, bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM transactions
		 WHERE date = ? AND amount_cents = ? AND note = ? AND rule_id IS NULL
		 LIMIT 1`,
		date.ISO(), cents, note).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find detached transaction: %w", err)
	}
	return id, true, nil
}

// AttachTransactionToRule turns a manual transaction into an occurrence
// of the given rule.
func (r *SQLiteRepository) AttachTransactionToRule(ctx context.Context, txnID, ruleID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET rule_id = ? WHERE id = ?`, ruleID, txnID)
	if err != nil {
		return fmt.Errorf("attach transaction to rule: %w", err)
	}
	return nil
}

// CountOccurrences returns the number of materialized occurrences of a rule.
func (r *SQLiteRepository) CountOccurrences(ctx context.Context, ruleID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE rule_id = ?`, ruleID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count occurrences: %w", err)
	}
	return n, nil
}
