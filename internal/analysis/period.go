// Package analysis builds spending reports and commentary over a user's
// ledger for a calendar period.
package analysis

import (
	"fmt"
	"strings"
	"time"

	"chitieu/internal/core"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod accepts day, week or month; an empty string means month.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodMonth, nil
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Window returns the inclusive calendar range of the period containing now.
// Weeks run Monday to Sunday.
func (p Period) Window(now time.Time) (from, to core.Date) {
	y, m, d := now.Date()
	switch p {
	case PeriodDay:
		day := core.NewDate(y, int(m), d)
		return day, day
	case PeriodWeek:
		offset := (int(now.Weekday()) + 6) % 7
		start := time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
		return core.DateOf(start), core.DateOf(start.AddDate(0, 0, 6))
	default:
		first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		return core.DateOf(first), core.DateOf(first.AddDate(0, 1, -1))
	}
}
