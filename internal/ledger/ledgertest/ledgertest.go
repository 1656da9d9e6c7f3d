// Package ledgertest holds the behaviour every ledger.Ledger must share.
package ledgertest

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
)

// Run exercises a fresh ledger from newLedger in each subtest.
func Run(t *testing.T, newLedger func(t *testing.T) ledger.Ledger) {
	t.Helper()
	ctx := context.Background()

	t.Run("users", func(t *testing.T) {
		l := newLedger(t)
		require.NoError(t, l.AddUser(ctx, "u1", "c1"))
		require.NoError(t, l.AddUser(ctx, "u2", "c2"))
		require.NoError(t, l.AddUser(ctx, "u1", "other"))

		users, err := l.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		byID := map[string]string{}
		for _, u := range users {
			byID[u.UserID] = u.ChatID
		}
		assert.Equal(t, "c1", byID["u1"])
		assert.Equal(t, "c2", byID["u2"])
	})

	t.Run("expenses by date and period", func(t *testing.T) {
		l := newLedger(t)
		day := core.NewDate(2025, 3, 14)
		records := []core.ExpenseRecord{
			record("u1", day, "200k", core.CategoryConsumption),
			record("u1", day, "20 usd", core.CategoryLeisure),
			record("u1", core.NewDate(2025, 3, 10), "1 triệu", core.CategoryFixedCosts),
			record("u1", core.NewDate(2025, 4, 1), "50k", core.CategoryTransport),
			record("u2", day, "999k", core.CategoryConsumption),
		}
		var lastID int64
		for _, r := range records {
			id, err := l.RecordExpense(ctx, r)
			require.NoError(t, err)
			assert.Greater(t, id, lastID)
			lastID = id
		}

		got, err := l.ExpensesByDate(ctx, "u1", day)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, core.CategoryConsumption, got[0].Category)
		assert.Equal(t, core.USD, got[1].Currency())
		assert.True(t, got[1].Amount.OriginalAmount.Equal(decimal.NewFromInt(20)))
		assert.True(t, got[1].Amount.AmountVND.Equal(decimal.NewFromInt(460000)))
		assert.Equal(t, "2025-03-14", got[1].Date.String())

		got, err = l.ExpensesByPeriod(ctx, "u1", core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 31))
		require.NoError(t, err)
		assert.Len(t, got, 3)

		total, err := l.TotalByDate(ctx, "u1", day)
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(660000)), "got %s", total)

		total, err = l.TotalByDate(ctx, "u3", day)
		require.NoError(t, err)
		assert.True(t, total.IsZero())
	})

	t.Run("invalid expense is rejected", func(t *testing.T) {
		l := newLedger(t)
		_, err := l.RecordExpense(ctx, core.ExpenseRecord{UserID: "u1", Date: core.NewDate(2025, 1, 1), Amount: core.ZeroAmount(), Category: "x"})
		assert.ErrorIs(t, err, core.ErrInvalidAmount)
	})

	t.Run("profiles", func(t *testing.T) {
		l := newLedger(t)
		_, err := l.GetProfile(ctx, "u1")
		assert.ErrorIs(t, err, ledger.ErrNotFound)

		faker := gofakeit.New(7)
		name := faker.Name()
		p := core.ProfileInfo{
			Name:            &name,
			Income:          decimal.NewFromInt(int64(faker.Number(1, 100)) * 1_000_000),
			Budget:          decimal.NewFromInt(8_000_000),
			SavingsGoal:     decimal.NewFromInt(2_000_000),
			SpendingTargets: "Tiêu dùng, Giải trí",
		}
		require.NoError(t, l.SaveProfile(ctx, "u1", p))

		name2 := "Lan"
		p.Name = &name2
		p.Budget = decimal.NewFromInt(9_000_000)
		require.NoError(t, l.SaveProfile(ctx, "u1", p))

		got, err := l.GetProfile(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, got.Name)
		assert.Equal(t, "Lan", *got.Name)
		assert.True(t, got.Budget.Equal(decimal.NewFromInt(9_000_000)))
		assert.True(t, got.Income.Equal(p.Income))
		assert.Equal(t, "Tiêu dùng, Giải trí", got.SpendingTargets)

		assert.Error(t, l.SaveProfile(ctx, "u1", core.EmptyProfile()))
	})

	t.Run("reviews", func(t *testing.T) {
		l := newLedger(t)
		_, err := l.LatestReview(ctx, "u1")
		assert.ErrorIs(t, err, ledger.ErrNotFound)

		base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
		for i, text := range []string{"first", "second"} {
			require.NoError(t, l.SaveReview(ctx, core.Review{
				UserID:    "u1",
				Period:    "month",
				From:      core.NewDate(2025, 3, 1),
				To:        core.NewDate(2025, 3, 31),
				Total:     decimal.NewFromInt(int64(i+1) * 1000),
				Text:      text,
				CreatedAt: base.Add(time.Duration(i) * time.Hour),
			}))
		}
		got, err := l.LatestReview(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "second", got.Text)
		assert.Equal(t, "2025-03-31", got.To.String())
		assert.True(t, got.Total.Equal(decimal.NewFromInt(2000)))
	})
}

func record(userID string, date core.Date, amount, category string) core.ExpenseRecord {
	return core.ExpenseRecord{
		UserID:   userID,
		Date:     date,
		Amount:   core.ParseMoney(amount),
		Category: category,
	}
}
