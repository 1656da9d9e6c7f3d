package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
)

func record(id int64) core.ExpenseRecord {
	amount := decimal.NewFromInt(45000)
	return core.ExpenseRecord{
		ID:       id,
		UserID:   "u1",
		Date:     core.NewDate(2025, 3, 14),
		Amount:   core.MonetaryAmount{OriginalAmount: amount, AmountVND: amount, Currency: core.VND},
		Category: core.CategoryConsumption,
	}
}

func TestMirrorAppend(t *testing.T) {
	m := New()
	ctx := context.Background()

	ref, err := m.Append(ctx, record(7))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "mem:1" {
		t.Fatalf("unexpected ref %q", ref)
	}

	again, err := m.Append(ctx, record(7))
	if err != nil {
		t.Fatalf("append again: %v", err)
	}
	if again != ref || len(m.Rows()) != 1 {
		t.Fatalf("redelivered record must keep its row: ref=%q rows=%d", again, len(m.Rows()))
	}

	if _, err := m.Append(ctx, record(8)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if got := len(m.Rows()); got != 2 {
		t.Fatalf("expected 2 rows, got %d", got)
	}
}

func TestMirrorRejectsInvalid(t *testing.T) {
	bad := record(1)
	bad.UserID = ""
	if _, err := New().Append(context.Background(), bad); err == nil {
		t.Fatal("expected validation error")
	}
}
