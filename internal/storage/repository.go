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
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"spendwise/internal/core"
	"spendwise/internal/repository"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements repository.Store on a SQLite file.
type SQLiteRepository struct {
	*queries
	db *sqlx.DB
}

var _ repository.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection keeps transactions serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{queries: &queries{q: db}, db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// WithTx runs fn inside a database transaction.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&queries{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// queries implements repository.Tx against either the database or an open transaction.
type queries struct {
	q sqlx.ExtContext
}

type expenseRow struct {
	ID          int64           `db:"id"`
	OwnerID     int64           `db:"owner_id"`
	Amount      decimal.Decimal `db:"amount"`
	Category    string          `db:"category"`
	Date        core.Date       `db:"date"`
	Description string          `db:"description"`
	CreatedAt   string          `db:"created_at"`
}

func (r expenseRow) toCore() core.ExpenseRecord {
	created, _ := time.Parse(time.RFC3339Nano, r.CreatedAt)
	return core.ExpenseRecord{
		ID:          r.ID,
		Owner:       r.OwnerID,
		Amount:      r.Amount,
		Category:    core.Category(r.Category),
		Date:        r.Date,
		Description: r.Description,
		CreatedAt:   created,
	}
}

type budgetRow struct {
	ID              int64           `db:"id"`
	OwnerID         int64           `db:"owner_id"`
	Category        string          `db:"category"`
	Amount          decimal.Decimal `db:"amount"`
	RolloverEnabled bool            `db:"rollover_enabled"`
	RolloverBalance decimal.Decimal `db:"rollover_balance"`
}

func (r budgetRow) toCore() core.Budget {
	return core.Budget{
		ID:              r.ID,
		Owner:           r.OwnerID,
		Category:        core.Category(r.Category),
		Amount:          r.Amount,
		RolloverEnabled: r.RolloverEnabled,
		RolloverBalance: r.RolloverBalance,
	}
}

type recurringRow struct {
	ID          int64           `db:"id"`
	OwnerID     int64           `db:"owner_id"`
	Amount      decimal.Decimal `db:"amount"`
	Category    string          `db:"category"`
	Description string          `db:"description"`
	DayOfMonth  int             `db:"day_of_month"`
	Active      bool            `db:"active"`
	LastRun     core.Date       `db:"last_run"`
}

func (r recurringRow) toCore() core.RecurringTransaction {
	return core.RecurringTransaction{
		ID:          r.ID,
		Owner:       r.OwnerID,
		Amount:      r.Amount,
		Category:    core.Category(r.Category),
		Description: r.Description,
		DayOfMonth:  r.DayOfMonth,
		Active:      r.Active,
		LastRun:     r.LastRun,
	}
}

type goalRow struct {
	ID            int64           `db:"id"`
	OwnerID       int64           `db:"owner_id"`
	Name          string          `db:"name"`
	TargetAmount  decimal.Decimal `db:"target_amount"`
	CurrentAmount decimal.Decimal `db:"current_amount"`
}

func (r goalRow) toCore() core.SavingsGoal {
	return core.SavingsGoal{
		ID:            r.ID,
		Owner:         r.OwnerID,
		Name:          r.Name,
		TargetAmount:  r.TargetAmount,
		CurrentAmount: r.CurrentAmount,
	}
}

const (
	expenseColumns   = `id, owner_id, amount, category, date, description, created_at`
	budgetColumns    = `id, owner_id, category, amount, rollover_enabled, rollover_balance`
	recurringColumns = `id, owner_id, amount, category, description, day_of_month, active, last_run`
	goalColumns      = `id, owner_id, name, target_amount, current_amount`
)

func (q *queries) insert(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// exec runs an UPDATE/DELETE and maps zero affected rows to a NotFoundError.
func (q *queries) exec(ctx context.Context, entity string, id int64, query string, args ...any) error {
	res, err := q.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s %d: %w", entity, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d rows affected: %w", entity, id, err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

func notFound(err error, entity string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &core.NotFoundError{Entity: entity, ID: id}
	}
	return fmt.Errorf("get %s %d: %w", entity, id, err)
}

func (q *queries) CreateExpense(ctx context.Context, e core.ExpenseRecord) (core.ExpenseRecord, error) {
	if err := e.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	id, err := q.insert(ctx,
		`INSERT INTO expenses (owner_id, amount, category, date, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Owner, e.Amount.StringFixed(2), string(e.Category), e.Date, e.Description, e.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("create expense: %w", err)
	}
	e.ID = id
	return e, nil
}

func (q *queries) GetExpense(ctx context.Context, id int64) (core.ExpenseRecord, error) {
	var row expenseRow
	if err := sqlx.GetContext(ctx, q.q, &row, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id); err != nil {
		return core.ExpenseRecord{}, notFound(err, "expense", id)
	}
	return row.toCore(), nil
}

func (q *queries) UpdateExpense(ctx context.Context, e core.ExpenseRecord) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return q.exec(ctx, "expense", e.ID,
		`UPDATE expenses SET amount = ?, category = ?, date = ?, description = ? WHERE id = ?`,
		e.Amount.StringFixed(2), string(e.Category), e.Date, e.Description, e.ID)
}

func (q *queries) DeleteExpense(ctx context.Context, id int64) error {
	return q.exec(ctx, "expense", id, `DELETE FROM expenses WHERE id = ?`, id)
}

func (q *queries) QueryExpenses(ctx context.Context, owner int64, f core.ExpenseFilter) ([]core.ExpenseRecord, error) {
	where := []string{"owner_id = ?"}
	args := []any{owner}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(f.Category))
	}
	if !f.From.IsEmpty() {
		where = append(where, "date >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsEmpty() {
		where = append(where, "date <= ?")
		args = append(args, f.To)
	}
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY date DESC, id DESC`

	var rows []expenseRow
	if err := sqlx.SelectContext(ctx, q.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	out := make([]core.ExpenseRecord, len(rows))
	for i, r := range rows {
		out[i] = r.toCore()
	}
	return out, nil
}

func (q *queries) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	id, err := q.insert(ctx,
		`INSERT INTO budgets (owner_id, category, amount, rollover_enabled, rollover_balance) VALUES (?, ?, ?, ?, ?)`,
		b.Owner, string(b.Category), b.Amount.StringFixed(2), b.RolloverEnabled, b.RolloverBalance.StringFixed(2))
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	b.ID = id
	return b, nil
}

func (q *queries) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	var row budgetRow
	if err := sqlx.GetContext(ctx, q.q, &row, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id); err != nil {
		return core.Budget{}, notFound(err, "budget", id)
	}
	return row.toCore(), nil
}

func (q *queries) ListBudgets(ctx context.Context, owner int64) ([]core.Budget, error) {
	var rows []budgetRow
	if err := sqlx.SelectContext(ctx, q.q, &rows, `SELECT `+budgetColumns+` FROM budgets WHERE owner_id = ? ORDER BY id`, owner); err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, len(rows))
	for i, r := range rows {
		out[i] = r.toCore()
	}
	return out, nil
}

func (q *queries) UpdateBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	return q.exec(ctx, "budget", b.ID,
		`UPDATE budgets SET category = ?, amount = ?, rollover_enabled = ?, rollover_balance = ? WHERE id = ?`,
		string(b.Category), b.Amount.StringFixed(2), b.RolloverEnabled, b.RolloverBalance.StringFixed(2), b.ID)
}

func (q *queries) DeleteBudget(ctx context.Context, id int64) error {
	return q.exec(ctx, "budget", id, `DELETE FROM budgets WHERE id = ?`, id)
}

func (q *queries) CreateRecurring(ctx context.Context, r core.RecurringTransaction) (core.RecurringTransaction, error) {
	if err := r.Validate(); err != nil {
		return core.RecurringTransaction{}, err
	}
	id, err := q.insert(ctx,
		`INSERT INTO recurring_transactions (owner_id, amount, category, description, day_of_month, active, last_run) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Owner, r.Amount.StringFixed(2), string(r.Category), r.Description, r.DayOfMonth, r.Active, r.LastRun)
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("create recurring: %w", err)
	}
	r.ID = id
	return r, nil
}

func (q *queries) GetRecurring(ctx context.Context, id int64) (core.RecurringTransaction, error) {
	var row recurringRow
	if err := sqlx.GetContext(ctx, q.q, &row, `SELECT `+recurringColumns+` FROM recurring_transactions WHERE id = ?`, id); err != nil {
		return core.RecurringTransaction{}, notFound(err, "recurring", id)
	}
	return row.toCore(), nil
}

func (q *queries) ListRecurring(ctx context.Context, owner int64, activeOnly bool) ([]core.RecurringTransaction, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_transactions WHERE owner_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY id`

	var rows []recurringRow
	if err := sqlx.SelectContext(ctx, q.q, &rows, query, owner); err != nil {
		return nil, fmt.Errorf("list recurring: %w", err)
	}
	out := make([]core.RecurringTransaction, len(rows))
	for i, r := range rows {
		out[i] = r.toCore()
	}
	return out, nil
}

// UpdateRecurring does not re-check the day of month so legacy rows past the
// 28th keep advancing their last run.
func (q *queries) UpdateRecurring(ctx context.Context, r core.RecurringTransaction) error {
	return q.exec(ctx, "recurring", r.ID,
		`UPDATE recurring_transactions SET amount = ?, category = ?, description = ?, day_of_month = ?, active = ?, last_run = ? WHERE id = ?`,
		r.Amount.StringFixed(2), string(r.Category), r.Description, r.DayOfMonth, r.Active, r.LastRun, r.ID)
}

func (q *queries) DeleteRecurring(ctx context.Context, id int64) error {
	return q.exec(ctx, "recurring", id, `DELETE FROM recurring_transactions WHERE id = ?`, id)
}

func (q *queries) OwnersWithActiveRecurring(ctx context.Context) ([]int64, error) {
	var owners []int64
	if err := sqlx.SelectContext(ctx, q.q, &owners,
		`SELECT DISTINCT owner_id FROM recurring_transactions WHERE active = 1 ORDER BY owner_id`); err != nil {
		return nil, fmt.Errorf("list recurring owners: %w", err)
	}
	return owners, nil
}

func (q *queries) CreateGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	id, err := q.insert(ctx,
		`INSERT INTO savings_goals (owner_id, name, target_amount, current_amount) VALUES (?, ?, ?, ?)`,
		g.Owner, g.Name, g.TargetAmount.StringFixed(2), g.CurrentAmount.StringFixed(2))
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create goal: %w", err)
	}
	g.ID = id
	return g, nil
}

func (q *queries) GetGoal(ctx context.Context, id int64) (core.SavingsGoal, error) {
	var row goalRow
	if err := sqlx.GetContext(ctx, q.q, &row, `SELECT `+goalColumns+` FROM savings_goals WHERE id = ?`, id); err != nil {
		return core.SavingsGoal{}, notFound(err, "goal", id)
	}
	return row.toCore(), nil
}

func (q *queries) ListGoals(ctx context.Context, owner int64) ([]core.SavingsGoal, error) {
	var rows []goalRow
	if err := sqlx.SelectContext(ctx, q.q, &rows, `SELECT `+goalColumns+` FROM savings_goals WHERE owner_id = ? ORDER BY id`, owner); err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]core.SavingsGoal, len(rows))
	for i, r := range rows {
		out[i] = r.toCore()
	}
	return out, nil
}

func (q *queries) UpdateGoal(ctx context.Context, g core.SavingsGoal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	return q.exec(ctx, "goal", g.ID,
		`UPDATE savings_goals SET name = ?, target_amount = ?, current_amount = ? WHERE id = ?`,
		g.Name, g.TargetAmount.StringFixed(2), g.CurrentAmount.StringFixed(2), g.ID)
}

func (q *queries) DeleteGoal(ctx context.Context, id int64) error {
	return q.exec(ctx, "goal", id, `DELETE FROM savings_goals WHERE id = ?`, id)
}
