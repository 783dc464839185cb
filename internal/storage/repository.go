package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/store"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// dbtx is the subset shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ store.UnitOfWork     = (*SQLiteRepository)(nil)
	_ store.MilestoneStore = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection: SQLite has a single writer and a ledger write must
	// not interleave with another.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Default().WithComponent(log.ComponentStorage).Debug("SQLite schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Do implements store.UnitOfWork with a database transaction. Stores handed
// to fn must be the only ones used until fn returns.
func (r *SQLiteRepository) Do(ctx context.Context, fn func(ctx context.Context, s store.Stores) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(ctx, r.bind(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.FromContext(ctx).WithComponent(log.ComponentStorage).ErrorContext(ctx, "Rollback failed", log.FieldError, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Stores returns collaborators that run each call in its own implicit
// transaction.
func (r *SQLiteRepository) Stores() store.Stores { return r.bind(r.db) }

func (r *SQLiteRepository) Transactions() store.TransactionStore { return transactions{r.db, r.now} }
func (r *SQLiteRepository) Goals() store.GoalStore               { return goals{r.db, r.now} }
func (r *SQLiteRepository) Categories() store.CategoryStore      { return categories{r.db, r.now} }
func (r *SQLiteRepository) Users() store.UserStore               { return users{r.db, r.now} }

func (r *SQLiteRepository) bind(q dbtx) store.Stores {
	return store.Stores{
		Transactions: transactions{q, r.now},
		Goals:        goals{q, r.now},
		Categories:   categories{q, r.now},
		Users:        users{q, r.now},
	}
}

// HighestMilestone implements store.MilestoneStore.
func (r *SQLiteRepository) HighestMilestone(ctx context.Context, goalID int64) (int, error) {
	var band int
	err := r.db.QueryRowContext(ctx, `SELECT band FROM goal_milestones WHERE goal_id = ?`, goalID).Scan(&band)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get milestone: %w", err)
	}
	return band, nil
}

// RecordMilestone implements store.MilestoneStore. A lower band never
// replaces a higher one.
func (r *SQLiteRepository) RecordMilestone(ctx context.Context, goalID int64, band int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO goal_milestones (goal_id, band, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(goal_id) DO UPDATE SET band = excluded.band, updated_at = excluded.updated_at
		WHERE excluded.band > goal_milestones.band`,
		goalID, band, r.now().Unix())
	if err != nil {
		return fmt.Errorf("record milestone: %w", err)
	}
	log.FromContext(ctx).WithComponent(log.ComponentStorage).DebugContext(ctx, "Milestone recorded", log.FieldGoalID, goalID, log.FieldMilestone, band)
	return nil
}

func unix(t time.Time) int64 { return t.Unix() }

func fromUnix(v int64) time.Time { return time.Unix(v, 0).UTC() }

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func idPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func parseMoney(s string) (core.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("decode amount %q: %w", s, err)
	}
	return core.NewMoney(d), nil
}

// checkAffected maps an update that touched nothing to notFound.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

type transactions struct {
	q   dbtx
	now func() time.Time
}

const transactionColumns = `id, user_id, category_id, amount, type, description, occurred_at, created_at`

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		tx                  core.Transaction
		category            sql.NullInt64
		amount, txType      string
		occurred, createdAt int64
	)
	if err := s.Scan(&tx.ID, &tx.UserID, &category, &amount, &txType, &tx.Description, &occurred, &createdAt); err != nil {
		return core.Transaction{}, err
	}
	m, err := parseMoney(amount)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.CategoryID = idPtr(category)
	tx.Amount = m
	tx.Type = core.TransactionType(txType)
	tx.OccurredAt = fromUnix(occurred)
	tx.CreatedAt = fromUnix(createdAt)
	return tx, nil
}

func (r transactions) Save(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == 0 {
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = r.now()
		}
		res, err := r.q.ExecContext(ctx, `
			INSERT INTO transactions (user_id, category_id, amount, type, description, occurred_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			tx.UserID, nullID(tx.CategoryID), tx.Amount.String(), string(tx.Type), tx.Description,
			unix(tx.OccurredAt), unix(tx.CreatedAt))
		if err != nil {
			return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
		}
		return r.FindByIDAndUser(ctx, id, tx.UserID)
	}

	res, err := r.q.ExecContext(ctx, `
		UPDATE transactions SET category_id = ?, amount = ?, type = ?, description = ?, occurred_at = ?
		WHERE id = ? AND user_id = ?`,
		nullID(tx.CategoryID), tx.Amount.String(), string(tx.Type), tx.Description, unix(tx.OccurredAt),
		tx.ID, tx.UserID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if err := checkAffected(res, core.ErrTransactionNotFound); err != nil {
		return core.Transaction{}, err
	}
	return r.FindByIDAndUser(ctx, tx.ID, tx.UserID)
}

func (r transactions) Delete(ctx context.Context, id, userID int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if err := checkAffected(res, core.ErrTransactionNotFound); err != nil {
		return err
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM transaction_goal_effects WHERE transaction_id = ?`, id); err != nil {
		return fmt.Errorf("delete goal effects: %w", err)
	}
	return nil
}

// SetGoalEffects runs inside the caller's unit of work when bound by Do;
// through Stores the delete and inserts are not atomic.
func (r transactions) SetGoalEffects(ctx context.Context, txID int64, goalIDs []int64) error {
	var exists int
	err := r.q.QueryRowContext(ctx, `SELECT 1 FROM transactions WHERE id = ?`, txID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrTransactionNotFound
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM transaction_goal_effects WHERE transaction_id = ?`, txID); err != nil {
		return fmt.Errorf("clear goal effects: %w", err)
	}
	for _, goalID := range goalIDs {
		if _, err := r.q.ExecContext(ctx,
			`INSERT OR IGNORE INTO transaction_goal_effects (transaction_id, goal_id) VALUES (?, ?)`,
			txID, goalID); err != nil {
			return fmt.Errorf("insert goal effect: %w", err)
		}
	}
	return nil
}

func (r transactions) GoalEffects(ctx context.Context, txID int64) ([]int64, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT goal_id FROM transaction_goal_effects WHERE transaction_id = ? ORDER BY goal_id`, txID)
	if err != nil {
		return nil, fmt.Errorf("list goal effects: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan goal effect: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r transactions) FindByIDAndUser(ctx context.Context, id, userID int64) (core.Transaction, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r transactions) FindByUser(ctx context.Context, userID int64, f store.Filter) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{userID}
	where, whereArgs := filterClause(f)
	query += where + ` ORDER BY occurred_at DESC, id DESC`
	args = append(args, whereArgs...)
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// SumByUserAndType adds amounts in Go; SQLite would sum the TEXT column
// as floating point.
func (r transactions) SumByUserAndType(ctx context.Context, userID int64, txType core.TransactionType, period *core.Period) (core.Money, bool, error) {
	where, args := filterClause(store.Filter{Type: txType, Period: period})
	rows, err := r.q.QueryContext(ctx, `SELECT amount FROM transactions WHERE user_id = ?`+where,
		append([]any{userID}, args...)...)
	if err != nil {
		return core.Zero, false, fmt.Errorf("sum transactions: %w", err)
	}
	defer rows.Close()

	sum, found := core.Zero, false
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return core.Zero, false, fmt.Errorf("scan amount: %w", err)
		}
		m, err := parseMoney(amount)
		if err != nil {
			return core.Zero, false, err
		}
		sum = sum.Add(m)
		found = true
	}
	return sum, found, rows.Err()
}

func filterClause(f store.Filter) (string, []any) {
	var (
		where string
		args  []any
	)
	if f.Type != "" {
		where += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	if f.CategoryID != nil {
		where += ` AND category_id = ?`
		args = append(args, *f.CategoryID)
	}
	if f.Period != nil {
		where += ` AND occurred_at BETWEEN ? AND ?`
		args = append(args, unix(f.Period.Start), unix(f.Period.End))
	}
	return where, args
}

type goals struct {
	q   dbtx
	now func() time.Time
}

const goalColumns = `id, user_id, category_id, name, description, target_amount, current_amount,
	type, status, start_date, target_date, created_at, completed_at, email_alerts`

func scanGoal(s scanner) (core.Goal, error) {
	var (
		g                        core.Goal
		category, completed      sql.NullInt64
		target, current          string
		goalType, status         string
		start, deadline, created int64
	)
	err := s.Scan(&g.ID, &g.UserID, &category, &g.Name, &g.Description, &target, &current,
		&goalType, &status, &start, &deadline, &created, &completed, &g.EmailAlerts)
	if err != nil {
		return core.Goal{}, err
	}
	if g.TargetAmount, err = parseMoney(target); err != nil {
		return core.Goal{}, err
	}
	if g.CurrentAmount, err = parseMoney(current); err != nil {
		return core.Goal{}, err
	}
	g.CategoryID = idPtr(category)
	g.Type = core.GoalType(goalType)
	g.Status = core.GoalStatus(status)
	g.StartDate = fromUnix(start)
	g.TargetDate = fromUnix(deadline)
	g.CreatedAt = fromUnix(created)
	if completed.Valid {
		at := fromUnix(completed.Int64)
		g.CompletedAt = &at
	}
	return g, nil
}

func (r goals) Save(ctx context.Context, g core.Goal) (core.Goal, error) {
	var completed sql.NullInt64
	if g.CompletedAt != nil {
		completed = sql.NullInt64{Int64: unix(*g.CompletedAt), Valid: true}
	}

	if g.ID == 0 {
		if g.CreatedAt.IsZero() {
			g.CreatedAt = r.now()
		}
		res, err := r.q.ExecContext(ctx, `
			INSERT INTO goals (user_id, category_id, name, description, target_amount, current_amount,
				type, status, start_date, target_date, created_at, completed_at, email_alerts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			g.UserID, nullID(g.CategoryID), g.Name, g.Description, g.TargetAmount.String(), g.CurrentAmount.String(),
			string(g.Type), string(g.Status), unix(g.StartDate), unix(g.TargetDate), unix(g.CreatedAt),
			completed, g.EmailAlerts)
		if err != nil {
			return core.Goal{}, fmt.Errorf("insert goal: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return core.Goal{}, fmt.Errorf("goal id: %w", err)
		}
		return r.FindByIDAndUser(ctx, id, g.UserID)
	}

	res, err := r.q.ExecContext(ctx, `
		UPDATE goals SET category_id = ?, name = ?, description = ?, target_amount = ?, current_amount = ?,
			type = ?, status = ?, start_date = ?, target_date = ?, completed_at = ?, email_alerts = ?
		WHERE id = ? AND user_id = ?`,
		nullID(g.CategoryID), g.Name, g.Description, g.TargetAmount.String(), g.CurrentAmount.String(),
		string(g.Type), string(g.Status), unix(g.StartDate), unix(g.TargetDate), completed, g.EmailAlerts,
		g.ID, g.UserID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	if err := checkAffected(res, core.ErrGoalNotFound); err != nil {
		return core.Goal{}, err
	}
	return r.FindByIDAndUser(ctx, g.ID, g.UserID)
}

func (r goals) FindByIDAndUser(ctx context.Context, id, userID int64) (core.Goal, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, core.ErrGoalNotFound
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (r goals) FindByUser(ctx context.Context, userID int64) ([]core.Goal, error) {
	return r.list(ctx, `WHERE user_id = ?`, userID)
}

func (r goals) FindActiveByUser(ctx context.Context, userID int64) ([]core.Goal, error) {
	return r.list(ctx, `WHERE user_id = ? AND status = ?`, userID, string(core.StatusActive))
}

func (r goals) FindAlertEnabled(ctx context.Context) ([]core.Goal, error) {
	return r.list(ctx, `WHERE email_alerts = 1 AND status = ?`, string(core.StatusActive))
}

func (r goals) CountByUserAndStatus(ctx context.Context, userID int64, status core.GoalStatus) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM goals WHERE user_id = ? AND status = ?`,
		userID, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count goals: %w", err)
	}
	return n, nil
}

func (r goals) list(ctx context.Context, where string, args ...any) ([]core.Goal, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type categories struct {
	q   dbtx
	now func() time.Time
}

const categoryColumns = `id, user_id, name, description, type, color, icon, active, created_at`

func scanCategory(s scanner) (core.Category, error) {
	var (
		c       core.Category
		catType string
		created int64
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &catType, &c.Color, &c.Icon, &c.Active, &created); err != nil {
		return core.Category{}, err
	}
	c.Type = core.TransactionType(catType)
	c.CreatedAt = fromUnix(created)
	return c, nil
}

func (r categories) Save(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == 0 {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = r.now()
		}
		res, err := r.q.ExecContext(ctx, `
			INSERT INTO categories (user_id, name, description, type, color, icon, active, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.UserID, c.Name, c.Description, string(c.Type), c.Color, c.Icon, c.Active, unix(c.CreatedAt))
		if err != nil {
			return core.Category{}, fmt.Errorf("insert category: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return core.Category{}, fmt.Errorf("category id: %w", err)
		}
		return r.FindByIDAndUser(ctx, id, c.UserID)
	}

	res, err := r.q.ExecContext(ctx, `
		UPDATE categories SET name = ?, description = ?, type = ?, color = ?, icon = ?, active = ?
		WHERE id = ? AND user_id = ?`,
		c.Name, c.Description, string(c.Type), c.Color, c.Icon, c.Active, c.ID, c.UserID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if err := checkAffected(res, core.ErrCategoryNotFound); err != nil {
		return core.Category{}, err
	}
	return r.FindByIDAndUser(ctx, c.ID, c.UserID)
}

func (r categories) FindByIDAndUser(ctx context.Context, id, userID int64) (core.Category, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrCategoryNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r categories) FindByUser(ctx context.Context, userID int64, includeInactive bool) ([]core.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = ?`
	if !includeInactive {
		query += ` AND active = 1`
	}
	rows, err := r.q.QueryContext(ctx, query+` ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r categories) ExistsActiveByNameAndUser(ctx context.Context, name string, userID, exceptID int64) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM categories
		WHERE user_id = ? AND active = 1 AND id <> ? AND name = ? COLLATE NOCASE`,
		userID, exceptID, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check category name: %w", err)
	}
	return n > 0, nil
}

type users struct {
	q   dbtx
	now func() time.Time
}

func (r users) Save(ctx context.Context, u core.User) (core.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
	}
	if u.ID == 0 {
		res, err := r.q.ExecContext(ctx,
			`INSERT INTO users (username, email, full_name, created_at) VALUES (?, ?, ?, ?)`,
			u.Username, u.Email, u.FullName, unix(u.CreatedAt))
		if err != nil {
			return core.User{}, fmt.Errorf("insert user: %w", err)
		}
		if u.ID, err = res.LastInsertId(); err != nil {
			return core.User{}, fmt.Errorf("user id: %w", err)
		}
		return r.FindByID(ctx, u.ID)
	}

	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET username = ?, email = ?, full_name = ? WHERE id = ?`,
		u.Username, u.Email, u.FullName, u.ID)
	if err != nil {
		return core.User{}, fmt.Errorf("update user: %w", err)
	}
	if err := checkAffected(res, core.ErrUserNotFound); err != nil {
		return core.User{}, err
	}
	return r.FindByID(ctx, u.ID)
}

func (r users) FindByID(ctx context.Context, id int64) (core.User, error) {
	var (
		u       core.User
		created int64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT id, username, email, full_name, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = fromUnix(created)
	return u, nil
}

func (r users) List(ctx context.Context) ([]core.User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, username, email, full_name, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		var (
			u       core.User
			created int64
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &created); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.CreatedAt = fromUnix(created)
		out = append(out, u)
	}
	return out, rows.Err()
}
