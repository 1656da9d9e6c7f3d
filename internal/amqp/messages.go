package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"chitieu/internal/core"
)

// ExpenseRecordedMessage announces a new ledger entry to the review worker.
type ExpenseRecordedMessage struct {
	MessageID string          `json:"message_id"`
	ExpenseID int64           `json:"expense_id"`
	UserID    string          `json:"user_id"`
	Date      core.Date       `json:"date"`
	AmountVND decimal.Decimal `json:"amount_vnd"`
	Original  decimal.Decimal `json:"original_amount"`
	Currency  core.Currency   `json:"currency"`
	Category  string          `json:"category"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewExpenseRecordedMessage builds the message for a stored record.
func NewExpenseRecordedMessage(id int64, e core.ExpenseRecord) *ExpenseRecordedMessage {
	return &ExpenseRecordedMessage{
		MessageID: uuid.NewString(),
		ExpenseID: id,
		UserID:    e.UserID,
		Date:      e.Date,
		AmountVND: e.Amount.AmountVND,
		Original:  e.Amount.OriginalAmount,
		Currency:  e.Currency(),
		Category:  e.Category,
		Timestamp: time.Now(),
	}
}

// Record rebuilds the ledger entry carried by the message.
func (m *ExpenseRecordedMessage) Record() core.ExpenseRecord {
	return core.ExpenseRecord{
		ID:     m.ExpenseID,
		UserID: m.UserID,
		Date:   m.Date,
		Amount: core.MonetaryAmount{
			OriginalAmount: m.Original,
			AmountVND:      m.AmountVND,
			Currency:       m.Currency,
		},
		Category: m.Category,
	}
}

func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseRecordedMessageFromJSON(data []byte) (*ExpenseRecordedMessage, error) {
	var msg ExpenseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReminderMessage is a text to deliver to a user's chat.
type ReminderMessage struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	ChatID    string    `json:"chat_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReminderMessage(userID, chatID, text string) *ReminderMessage {
	return &ReminderMessage{
		MessageID: uuid.NewString(),
		UserID:    userID,
		ChatID:    chatID,
		Text:      text,
		Timestamp: time.Now(),
	}
}

func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// User is the recipient of the reminder.
func (m *ReminderMessage) User() core.User {
	return core.User{UserID: m.UserID, ChatID: m.ChatID}
}
