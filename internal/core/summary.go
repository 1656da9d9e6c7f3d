package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name    string          `json:"name"`
	Amount  decimal.Decimal `json:"amount"`
	Percent decimal.Decimal `json:"percent"`
}

// PeriodOverview is a compact summary of one user's spending between two
// calendar dates, inclusive.
type PeriodOverview struct {
	UserID     string           `json:"user_id"`
	From       Date             `json:"from"`
	To         Date             `json:"to"`
	Total      decimal.Decimal  `json:"total"`
	ByCategory []CategoryAmount `json:"by_category"`
}

// Summarize aggregates records by category, keeping first-seen category order.
func Summarize(userID string, from, to Date, records []ExpenseRecord) PeriodOverview {
	out := PeriodOverview{UserID: userID, From: from, To: to, Total: decimal.Zero}
	index := make(map[string]int)
	for _, r := range records {
		out.Total = out.Total.Add(r.Amount.AmountVND)
		i, ok := index[r.Category]
		if !ok {
			i = len(out.ByCategory)
			index[r.Category] = i
			out.ByCategory = append(out.ByCategory, CategoryAmount{Name: r.Category, Amount: decimal.Zero})
		}
		out.ByCategory[i].Amount = out.ByCategory[i].Amount.Add(r.Amount.AmountVND)
	}
	if out.Total.IsPositive() {
		hundred := decimal.NewFromInt(100)
		for i := range out.ByCategory {
			out.ByCategory[i].Percent = out.ByCategory[i].Amount.Div(out.Total).Mul(hundred)
		}
	}
	return out
}

// IsEmpty reports whether the period has no spending.
func (p PeriodOverview) IsEmpty() bool {
	return len(p.ByCategory) == 0
}
