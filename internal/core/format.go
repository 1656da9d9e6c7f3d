package core

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// groupedFormatter renders whole amounts with comma thousands separators,
// the way every user-facing total is shown ("1,500,000").
var groupedFormatter = money.NewFormatter(0, ".", ",", "", "1")

// FormatAmount rounds d half-to-even to a whole number and groups thousands.
func FormatAmount(d decimal.Decimal) string {
	return groupedFormatter.Format(d.RoundBank(0).IntPart())
}

// DisplayOriginal renders an amount in its own currency using ISO-4217
// conventions, e.g. "$12.50" or "20.000 ₫".
func DisplayOriginal(m MonetaryAmount) string {
	code := string(m.Currency)
	c := money.GetCurrency(code)
	if c == nil {
		return FormatAmount(m.OriginalAmount) + " " + code
	}
	minor := m.OriginalAmount.Shift(int32(c.Fraction)).RoundBank(0).IntPart()
	return money.New(minor, code).Display()
}
