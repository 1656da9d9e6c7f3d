package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2025, 3, 7))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2025-03-07"` {
		t.Fatalf("unexpected json %s", b)
	}
	var d Date
	if err := json.Unmarshal([]byte(`"2024-02-29"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.String() != "2024-02-29" {
		t.Fatalf("unexpected date %s", d)
	}
	if err := json.Unmarshal([]byte(`"29/02/2024"`), &d); err == nil {
		t.Fatalf("expected error for non-ISO date")
	}
}

func TestMonetaryAmountValidate(t *testing.T) {
	if err := ParseMoney("200k").Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := ZeroAmount().Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	bad := MonetaryAmount{OriginalAmount: decimal.NewFromInt(1), AmountVND: decimal.NewFromInt(1), Currency: "JPY"}
	if err := bad.Validate(); err != ErrInvalidCurrency {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}

func TestExpenseRecordValidate(t *testing.T) {
	good := ExpenseRecord{
		UserID:   "42",
		Date:     NewDate(2025, 1, 1),
		Amount:   ParseMoney("100k"),
		Category: CategoryConsumption,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if good.Currency() != VND {
		t.Fatalf("expected VND, got %s", good.Currency())
	}

	bads := []ExpenseRecord{
		{UserID: "", Date: NewDate(2025, 1, 1), Amount: ParseMoney("1k"), Category: "c"},
		{UserID: "1", Date: Date{}, Amount: ParseMoney("1k"), Category: "c"}, // zero date
		{UserID: "1", Date: NewDate(2025, 1, 1), Amount: ZeroAmount(), Category: "c"},
		{UserID: "1", Date: NewDate(2025, 1, 1), Amount: ParseMoney("1k"), Category: " "},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestExtractionResultJSONOmitsExpenseFields(t *testing.T) {
	b, err := json.Marshal(ExtractionResult{Intent: IntentUnknown, OriginalText: "xin chào"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{"amount_info", "category", "date", "complete", "missing_fields"} {
		if strings.Contains(string(b), key) {
			t.Fatalf("unexpected key %q in %s", key, b)
		}
	}

	full := ExtractionResult{
		Intent:       IntentExpenseEntry,
		OriginalText: "đi chơi 100k",
		ExpenseDetails: &ExpenseDetails{
			Amount:        ParseMoney("100k"),
			Category:      CategoryLeisure,
			Date:          NewDate(2025, 1, 2),
			Complete:      true,
			MissingFields: []string{},
		},
	}
	rec, ok := full.Record("u1")
	if !ok {
		t.Fatalf("expected complete result to yield a record")
	}
	if rec.UserID != "u1" || rec.Category != CategoryLeisure || !rec.Amount.AmountVND.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestProfileInfoAccepted(t *testing.T) {
	name := "An"
	blank := "  "
	cases := []struct {
		p  ProfileInfo
		ok bool
	}{
		{ProfileInfo{Name: &name}, true},
		{ProfileInfo{Name: &blank}, false},
		{EmptyProfile(), false},
	}
	for i, tc := range cases {
		if got := tc.p.Accepted(); got != tc.ok {
			t.Fatalf("case %d expected %v, got %v", i, tc.ok, got)
		}
	}
}
