package analysis

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
)

// Report is the aggregated spending of one user over a period.
type Report struct {
	Period     Period              `json:"period"`
	Overview   core.PeriodOverview `json:"overview"`
	Profile    *core.ProfileInfo   `json:"profile,omitempty"`
	OverBudget bool                `json:"over_budget"`
}

func (r Report) IsEmpty() bool {
	return r.Overview.IsEmpty()
}

// Details renders the report the way it is shown to the user and fed to
// the commentary model.
func (r Report) Details() string {
	if r.IsEmpty() {
		return NoDataText
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Từ %s đến %s, tổng chi tiêu của bạn là %s đồng.\n",
		r.Overview.From, r.Overview.To, core.FormatAmount(r.Overview.Total))
	b.WriteString("Chi tiêu theo từng danh mục:\n")
	for _, c := range r.Overview.ByCategory {
		fmt.Fprintf(&b, " - %s: %s đồng (%s%%)\n", c.Name, core.FormatAmount(c.Amount), c.Percent.StringFixed(1))
	}

	if r.Profile == nil {
		b.WriteString("\nChưa có thông tin cá nhân để so sánh.\n")
		return b.String()
	}
	p := r.Profile
	b.WriteString("\nThông tin cá nhân:\n")
	fmt.Fprintf(&b, " - Ngân sách định sẵn: %s đồng\n", core.FormatAmount(p.Budget))
	fmt.Fprintf(&b, " - Thu nhập: %s đồng\n", core.FormatAmount(p.Income))
	fmt.Fprintf(&b, " - Mục tiêu tiết kiệm: %s đồng\n", core.FormatAmount(p.SavingsGoal))
	fmt.Fprintf(&b, " - Mục tiêu sử dụng: %s\n", p.SpendingTargets)
	if r.OverBudget {
		b.WriteString("⚠️ Bạn đã vượt ngân sách định sẵn!\n")
	} else {
		b.WriteString("✅ Chi tiêu của bạn nằm trong ngân sách định sẵn.\n")
	}
	return b.String()
}

// Statement lists every record of a period under the period's heading,
// followed by the total.
func Statement(period Period, from, to core.Date, records []core.ExpenseRecord) string {
	var b strings.Builder
	switch period {
	case PeriodDay:
		fmt.Fprintf(&b, "Báo cáo chi tiêu ngày %s:\n", from)
	case PeriodWeek:
		fmt.Fprintf(&b, "Báo cáo chi tiêu tuần (%s đến %s):\n", from, to)
	default:
		fmt.Fprintf(&b, "Báo cáo chi tiêu tháng %d/%d:\n", int(from.Month()), from.Year())
	}

	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount.AmountVND)
		amount := core.FormatAmount(r.Amount.AmountVND)
		switch {
		case period != PeriodDay:
			fmt.Fprintf(&b, "- %s - %s: %s đồng\n", r.Date, r.Category, amount)
		case r.Currency() != core.VND:
			fmt.Fprintf(&b, "- %s: %s đồng (%s)\n", r.Category, amount, r.Currency())
		default:
			fmt.Fprintf(&b, "- %s: %s đồng\n", r.Category, amount)
		}
	}
	fmt.Fprintf(&b, "Tổng cộng: %s đồng", core.FormatAmount(total))
	return b.String()
}
