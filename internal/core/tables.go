package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	VND Currency = "VND"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
)

// Categories the assistant files expenses under.
const (
	CategoryConsumption = "Tiêu dùng"
	CategoryInvestment  = "Đầu tư"
	CategoryLeisure     = "Giải trí"
	CategorySavings     = "Tiết kiệm"
	CategoryTransport   = "Đi lại"
	CategoryFixedCosts  = "Chi phí cố định"
	CategoryOther       = "Khác"
)

type (
	// CurrencyRate maps a surface key found in text to a currency and its
	// VND exchange rate.
	CurrencyRate struct {
		Key  string
		Code Currency
		Rate decimal.Decimal
	}

	UnitMultiplier struct {
		Word       string
		Multiplier decimal.Decimal
	}

	CategoryKeyword struct {
		Keyword  string
		Category string
	}
)

// CurrencyTable is scanned in order; the first key contained in a fragment
// wins. Rates are fixed.
var CurrencyTable = []CurrencyRate{
	{Key: "usd", Code: USD, Rate: decimal.NewFromInt(23000)},
	{Key: "eur", Code: EUR, Rate: decimal.NewFromInt(27000)},
	{Key: "gbp", Code: GBP, Rate: decimal.NewFromInt(32000)},
	{Key: "vnd", Code: VND, Rate: decimal.NewFromInt(1)},
	{Key: "$", Code: USD, Rate: decimal.NewFromInt(23000)},
	{Key: "€", Code: EUR, Rate: decimal.NewFromInt(27000)},
	{Key: "£", Code: GBP, Rate: decimal.NewFromInt(32000)},
	{Key: "₫", Code: VND, Rate: decimal.NewFromInt(1)},
}

// UnitMultiplierTable is scanned in order and at most one entry applies.
// "k" is last so that it never shadows a spelled-out word.
var UnitMultiplierTable = []UnitMultiplier{
	{Word: "triệu", Multiplier: decimal.NewFromInt(1_000_000)},
	{Word: "trieu", Multiplier: decimal.NewFromInt(1_000_000)},
	{Word: "tr", Multiplier: decimal.NewFromInt(1_000_000)},
	{Word: "tỷ", Multiplier: decimal.NewFromInt(1_000_000_000)},
	{Word: "tỉ", Multiplier: decimal.NewFromInt(1_000_000_000)},
	{Word: "ty", Multiplier: decimal.NewFromInt(1_000_000_000)},
	{Word: "nghìn", Multiplier: decimal.NewFromInt(1_000)},
	{Word: "nghin", Multiplier: decimal.NewFromInt(1_000)},
	{Word: "ngàn", Multiplier: decimal.NewFromInt(1_000)},
	{Word: "ngan", Multiplier: decimal.NewFromInt(1_000)},
	{Word: "k", Multiplier: decimal.NewFromInt(1_000)},
}

// CategoryKeywordTable is scanned in order; the first keyword contained in
// the utterance decides the category.
var CategoryKeywordTable = []CategoryKeyword{
	{Keyword: "nhà", Category: CategoryFixedCosts},
	{Keyword: "điện", Category: CategoryFixedCosts},
	{Keyword: "ăn", Category: CategoryConsumption},
	{Keyword: "uống", Category: CategoryConsumption},
	{Keyword: "mua", Category: CategoryConsumption},
	{Keyword: "xem", Category: CategoryLeisure},
	{Keyword: "chơi", Category: CategoryLeisure},
	{Keyword: "đi", Category: CategoryTransport},
	{Keyword: "xe", Category: CategoryTransport},
	{Keyword: "tiêu", Category: CategoryConsumption},
}

// Categories lists the six categories a model may answer with.
var Categories = []string{
	CategoryConsumption,
	CategoryInvestment,
	CategoryLeisure,
	CategorySavings,
	CategoryTransport,
	CategoryFixedCosts,
}

// ParseCurrency maps a 3-letter code to a known currency.
func ParseCurrency(s string) (Currency, bool) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if c == "" {
		return VND, true
	}
	return c, c.IsKnown()
}

func (c Currency) IsKnown() bool {
	switch c {
	case VND, USD, EUR, GBP:
		return true
	}
	return false
}

// RateOf returns the VND rate of a known currency.
func RateOf(c Currency) (decimal.Decimal, bool) {
	for _, cr := range CurrencyTable {
		if cr.Code == c {
			return cr.Rate, true
		}
	}
	return decimal.Zero, false
}

// CanonicalCategory returns the known category matching s, case-insensitive.
func CanonicalCategory(s string) (string, bool) {
	needle := Normalize(s)
	if needle == "" {
		return "", false
	}
	for _, c := range Categories {
		if Normalize(c) == needle {
			return c, true
		}
	}
	return "", false
}
