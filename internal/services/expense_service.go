package services

import (
	"context"
	"fmt"

	"chitieu/internal/amqp"
	"chitieu/internal/core"
	"chitieu/internal/ledger"
	"chitieu/internal/log"
)

// ExpensePublisher announces stored expenses to downstream consumers.
type ExpensePublisher interface {
	PublishExpenseRecorded(ctx context.Context, msg *amqp.ExpenseRecordedMessage) error
	Close() error
}

// Metrics receives service-level events. A nil Metrics is valid.
type Metrics interface {
	MessageHandled(intent string)
	ExpenseRecorded(category string, currency string)
}

// ExpenseService orchestrates expense writes across the ledger and AMQP.
type ExpenseService struct {
	store     ledger.ExpenseStore
	publisher ExpensePublisher
	metrics   Metrics
	logger    *log.Logger
	events    *log.StructuredLogger
}

// NewExpenseService wires the service. publisher may be nil, in which case
// records are only stored.
func NewExpenseService(store ledger.ExpenseStore, publisher ExpensePublisher, metrics Metrics, logger *log.Logger) *ExpenseService {
	logger = log.OrDiscard(logger).WithComponent(log.ComponentExpense)
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
	}
}

// Record stores e first and then publishes it. A failed publish is logged
// and does not fail the call since the ledger already holds the record.
func (s *ExpenseService) Record(ctx context.Context, e core.ExpenseRecord) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.RecordExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}
	e.ID = id

	fields := log.NewFields().WithExpense(e.Amount.AmountVND, string(e.Currency()), e.Category, e.Date.String())
	s.events.LogExpenseRecorded(ctx, e.UserID, id, fields)
	if s.metrics != nil {
		s.metrics.ExpenseRecorded(e.Category, string(e.Currency()))
	}

	if err := s.publish(ctx, e); err != nil {
		s.events.LogError(ctx, "Failed to publish expense", err, log.OpCreate,
			log.NewFields().WithUser(e.UserID))
	}
	return id, nil
}

func (s *ExpenseService) publish(ctx context.Context, e core.ExpenseRecord) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, skipping expense message")
		return nil
	}
	return s.publisher.PublishExpenseRecorded(ctx, amqp.NewExpenseRecordedMessage(e.ID, e))
}

// Close releases the publisher. The ledger is owned by the caller.
func (s *ExpenseService) Close() error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close expense service: amqp: %w", err)
	}
	return nil
}
