package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO calendar-date layout used for every persisted date.
const DateLayout = "2006-01-02"

const (
	IntentProfile      Intent = "profile"
	IntentReport       Intent = "report"
	IntentReminder     Intent = "reminder"
	IntentExpenseEntry Intent = "expense_entry"
	IntentUnknown      Intent = "unknown"
)

// FieldAmount is the only required field of an expense entry.
const FieldAmount = "amount"

type (
	Intent string

	Date struct {
		time.Time
	}

	// MonetaryAmount is the canonical result of parsing a monetary expression.
	MonetaryAmount struct {
		OriginalAmount decimal.Decimal `json:"original_amount"`
		AmountVND      decimal.Decimal `json:"amount_vnd"`
		Currency       Currency        `json:"currency"`
	}

	// ExpenseRecord is an immutable ledger entry. Corrections are new records.
	ExpenseRecord struct {
		ID       int64          `json:"id,omitempty"`
		UserID   string         `json:"user_id"`
		Date     Date           `json:"date"`
		Amount   MonetaryAmount `json:"amount"`
		Category string         `json:"category"`
	}

	// ExpenseDetails holds the fields populated only for expense_entry utterances.
	ExpenseDetails struct {
		Amount        MonetaryAmount `json:"amount_info"`
		Category      string         `json:"category"`
		Date          Date           `json:"date"`
		Complete      bool           `json:"complete"`
		MissingFields []string       `json:"missing_fields"`
	}

	ExtractionResult struct {
		Intent       Intent `json:"intent"`
		OriginalText string `json:"original_text"`
		*ExpenseDetails
	}

	// ProfileInfo is the parsed form of a /profile command. A nil Name means
	// the command did not match the expected format.
	ProfileInfo struct {
		Name            *string         `json:"name"`
		Income          decimal.Decimal `json:"income"`
		Budget          decimal.Decimal `json:"budget"`
		SavingsGoal     decimal.Decimal `json:"savings_goal"`
		SpendingTargets string          `json:"spending_targets"`
	}

	User struct {
		UserID string `json:"user_id"`
		ChatID string `json:"chat_id"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyUser       = errors.New("empty user id")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrEmptyName       = errors.New("empty profile name")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ZeroAmount is the default returned when no monetary expression is found.
func ZeroAmount() MonetaryAmount {
	return MonetaryAmount{
		OriginalAmount: decimal.Zero,
		AmountVND:      decimal.Zero,
		Currency:       VND,
	}
}

// IsZero reports whether the VND-equivalent amount is exactly zero; callers
// treat that as a missing amount.
func (m MonetaryAmount) IsZero() bool {
	return m.AmountVND.IsZero()
}

func (m MonetaryAmount) Validate() error {
	if !m.AmountVND.IsPositive() {
		return ErrInvalidAmount
	}
	if !m.Currency.IsKnown() {
		return ErrInvalidCurrency
	}
	return nil
}

// Currency returns the 3-letter code the record was entered in.
func (e ExpenseRecord) Currency() Currency {
	if e.Amount.Currency == "" {
		return VND
	}
	return e.Amount.Currency
}

func (e ExpenseRecord) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUser
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// IsComplete reports whether the result describes a persistable expense.
func (r ExtractionResult) IsComplete() bool {
	return r.ExpenseDetails != nil && r.Complete
}

// Record builds the ledger entry for a complete extraction.
func (r ExtractionResult) Record(userID string) (ExpenseRecord, bool) {
	if !r.IsComplete() {
		return ExpenseRecord{}, false
	}
	return ExpenseRecord{
		UserID:   userID,
		Date:     r.Date,
		Amount:   r.Amount,
		Category: r.Category,
	}, true
}

// Accepted reports whether the profile carries the mandatory name.
func (p ProfileInfo) Accepted() bool {
	return p.Name != nil && strings.TrimSpace(*p.Name) != ""
}

// DisplayName returns the name or an empty string when missing.
func (p ProfileInfo) DisplayName() string {
	if p.Name == nil {
		return ""
	}
	return *p.Name
}

func (p ProfileInfo) Validate() error {
	if !p.Accepted() {
		return ErrEmptyName
	}
	return nil
}

// EmptyProfile is the rejection sentinel: nil name, zero numbers.
func EmptyProfile() ProfileInfo {
	return ProfileInfo{
		Income:      decimal.Zero,
		Budget:      decimal.Zero,
		SavingsGoal: decimal.Zero,
	}
}

// Review is a stored spending commentary for one user and period.
type Review struct {
	UserID    string          `json:"user_id"`
	Period    string          `json:"period"`
	From      Date            `json:"from"`
	To        Date            `json:"to"`
	Total     decimal.Decimal `json:"total"`
	Text      string          `json:"text"`
	CreatedAt time.Time       `json:"created_at"`
}
