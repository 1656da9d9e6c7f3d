// Package ledger defines the per-user expense ledger.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
)

var ErrNotFound = errors.New("not found")

// Ports implemented by the storage backends.
type (
	UserStore interface {
		// AddUser registers a user; registering twice keeps the first chat id.
		AddUser(ctx context.Context, userID, chatID string) error
		ListUsers(ctx context.Context) ([]core.User, error)
	}

	ExpenseStore interface {
		// RecordExpense appends an immutable record and returns its id.
		RecordExpense(ctx context.Context, e core.ExpenseRecord) (int64, error)
		ExpensesByDate(ctx context.Context, userID string, date core.Date) ([]core.ExpenseRecord, error)
		// ExpensesByPeriod returns records with from <= date <= to in insertion order.
		ExpensesByPeriod(ctx context.Context, userID string, from, to core.Date) ([]core.ExpenseRecord, error)
		TotalByDate(ctx context.Context, userID string, date core.Date) (decimal.Decimal, error)
	}

	ProfileStore interface {
		// SaveProfile replaces any previous profile of the user.
		SaveProfile(ctx context.Context, userID string, p core.ProfileInfo) error
		// GetProfile returns ErrNotFound when the user never set one.
		GetProfile(ctx context.Context, userID string) (core.ProfileInfo, error)
	}

	ReviewStore interface {
		SaveReview(ctx context.Context, r core.Review) error
		LatestReview(ctx context.Context, userID string) (core.Review, error)
	}

	Ledger interface {
		UserStore
		ExpenseStore
		ProfileStore
		ReviewStore
		Close() error
	}
)
