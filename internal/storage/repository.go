// Package storage is the SQLite implementation of the ledger.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
)

// reviewTimeLayout is fixed-width so that created_at sorts lexically.
const reviewTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Ledger = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it. All statements share one connection, which serialises writes.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) AddUser(ctx context.Context, userID, chatID string) error {
	if userID == "" {
		return core.ErrEmptyUser
	}
	if _, err := r.db.ExecContext(ctx, qInsertUser, userID, chatID); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, qListUsers)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.UserID, &u.ChatID); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) RecordExpense(ctx context.Context, e core.ExpenseRecord) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, qInsertExpense,
		e.UserID,
		e.Date.String(),
		e.Amount.AmountVND.String(),
		e.Amount.OriginalAmount.String(),
		e.Category,
		string(e.Currency()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", id,
		"user_id", e.UserID,
		"amount_vnd", e.Amount.AmountVND.String(),
		"date", e.Date.String())
	return id, nil
}

func (r *SQLiteRepository) ExpensesByDate(ctx context.Context, userID string, date core.Date) ([]core.ExpenseRecord, error) {
	return r.ExpensesByPeriod(ctx, userID, date, date)
}

func (r *SQLiteRepository) ExpensesByPeriod(ctx context.Context, userID string, from, to core.Date) ([]core.ExpenseRecord, error) {
	rows, err := r.db.QueryContext(ctx, qExpensesByPeriod, userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.ExpenseRecord
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TotalByDate sums in Go; amounts are stored as exact decimal text.
func (r *SQLiteRepository) TotalByDate(ctx context.Context, userID string, date core.Date) (decimal.Decimal, error) {
	records, err := r.ExpensesByDate(ctx, userID, date)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range records {
		total = total.Add(e.Amount.AmountVND)
	}
	return total, nil
}

func (r *SQLiteRepository) SaveProfile(ctx context.Context, userID string, p core.ProfileInfo) error {
	if userID == "" {
		return core.ErrEmptyUser
	}
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, qUpsertProfile,
		userID, *p.Name, p.Income.String(), p.Budget.String(), p.SavingsGoal.String(), p.SpendingTargets)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, userID string) (core.ProfileInfo, error) {
	var (
		p    core.ProfileInfo
		name string
	)
	err := r.db.QueryRowContext(ctx, qGetProfile, userID).
		Scan(&name, &p.Income, &p.Budget, &p.SavingsGoal, &p.SpendingTargets)
	if errors.Is(err, sql.ErrNoRows) {
		return core.EmptyProfile(), ledger.ErrNotFound
	}
	if err != nil {
		return core.EmptyProfile(), fmt.Errorf("get profile: %w", err)
	}
	p.Name = &name
	return p, nil
}

func (r *SQLiteRepository) SaveReview(ctx context.Context, rv core.Review) error {
	if rv.UserID == "" {
		return core.ErrEmptyUser
	}
	createdAt := rv.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, qInsertReview,
		rv.UserID, rv.Period, rv.From.String(), rv.To.String(), rv.Total.String(), rv.Text,
		createdAt.UTC().Format(reviewTimeLayout))
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) LatestReview(ctx context.Context, userID string) (core.Review, error) {
	var (
		rv              core.Review
		from, to, taken string
	)
	err := r.db.QueryRowContext(ctx, qLatestReview, userID).
		Scan(&rv.UserID, &rv.Period, &from, &to, &rv.Total, &rv.Text, &taken)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Review{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Review{}, fmt.Errorf("latest review: %w", err)
	}
	if rv.From, err = core.ParseDate(from); err != nil {
		return core.Review{}, fmt.Errorf("parse review start: %w", err)
	}
	if rv.To, err = core.ParseDate(to); err != nil {
		return core.Review{}, fmt.Errorf("parse review end: %w", err)
	}
	if rv.CreatedAt, err = time.Parse(reviewTimeLayout, taken); err != nil {
		return core.Review{}, fmt.Errorf("parse review time: %w", err)
	}
	return rv, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.ExpenseRecord, error) {
	var (
		e        core.ExpenseRecord
		date     string
		currency string
	)
	if err := row.Scan(&e.ID, &e.UserID, &date, &e.Amount.AmountVND, &e.Amount.OriginalAmount, &e.Category, &currency); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("scan expense: %w", err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("parse expense date %q: %w", date, err)
	}
	e.Date = d
	e.Amount.Currency = core.Currency(currency)
	return e, nil
}
