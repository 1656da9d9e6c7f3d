// Package reminder sends every registered user a daily spending nudge.
package reminder

import (
	"context"

	"chitieu/internal/amqp"
	"chitieu/internal/core"
	"chitieu/internal/log"
)

// Notifier delivers a text to a user's chat.
type Notifier interface {
	Notify(ctx context.Context, user core.User, text string) error
}

type ReminderPublisher interface {
	PublishReminder(ctx context.Context, msg *amqp.ReminderMessage) error
}

// AMQPNotifier queues reminders for the chat transport.
type AMQPNotifier struct {
	publisher ReminderPublisher
}

func NewAMQPNotifier(p ReminderPublisher) *AMQPNotifier {
	return &AMQPNotifier{publisher: p}
}

func (n *AMQPNotifier) Notify(ctx context.Context, user core.User, text string) error {
	return n.publisher.PublishReminder(ctx, amqp.NewReminderMessage(user.UserID, user.ChatID, text))
}

// LogNotifier writes reminders to the log. Used when no broker is configured.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: log.OrDiscard(logger).WithComponent(log.ComponentReminder)}
}

func (n *LogNotifier) Notify(ctx context.Context, user core.User, text string) error {
	n.logger.InfoContext(ctx, "Reminder", log.FieldUserID, user.UserID, "chat_id", user.ChatID, "text", text)
	return nil
}
