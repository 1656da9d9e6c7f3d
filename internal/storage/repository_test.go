package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
	"chitieu/internal/ledger/ledgertest"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "chitieu.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledger.Ledger {
		return newTestRepository(t)
	})
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chitieu.db")
	version, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.Zero(t, version)

	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))

	version, err = SchemaVersion(path)
	require.NoError(t, err)
	assert.EqualValues(t, 2, version)

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Ping(context.Background()))
}

func TestRecordExpenseKeepsDecimals(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rec := core.ExpenseRecord{
		UserID:   "u1",
		Date:     core.NewDate(2025, 5, 1),
		Amount:   core.ParseMoney("12.50 usd"),
		Category: core.CategoryLeisure,
	}
	_, err := repo.RecordExpense(ctx, rec)
	require.NoError(t, err)

	got, err := repo.ExpensesByDate(ctx, "u1", rec.Date)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "12.5", got[0].Amount.OriginalAmount.String())
	require.Equal(t, "287500", got[0].Amount.AmountVND.String())
}
