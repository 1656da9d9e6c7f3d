// Package worker consumes expense events: it mirrors each record to the
// spreadsheet and refreshes the user's month review.
package worker

import (
	"context"
	"errors"
	"fmt"

	"chitieu/internal/amqp"
	"chitieu/internal/analysis"
	"chitieu/internal/core"
	"chitieu/internal/ledger"
	"chitieu/internal/log"
	"chitieu/internal/sheets"
)

// Reviewer builds a spending review for a user and period.
type Reviewer interface {
	Review(ctx context.Context, userID string, period analysis.Period) (core.Review, error)
}

type Store interface {
	ledger.UserStore
	ledger.ReviewStore
}

type ReviewWorker struct {
	store     Store
	reviewer  Reviewer
	mirror    sheets.ExpenseMirror
	batchSize int
	logger    *log.Logger
}

// NewReviewWorker wires the worker. mirror may be nil when no spreadsheet
// is configured.
func NewReviewWorker(store Store, reviewer Reviewer, mirror sheets.ExpenseMirror, batchSize int, logger *log.Logger) *ReviewWorker {
	if batchSize < 1 {
		batchSize = 1
	}
	return &ReviewWorker{
		store:     store,
		reviewer:  reviewer,
		mirror:    mirror,
		batchSize: batchSize,
		logger:    log.OrDiscard(logger).WithComponent(log.ComponentWorker),
	}
}

// HandleExpenseRecorded processes one expense.recorded message. A returned
// error makes the consumer requeue the message.
func (w *ReviewWorker) HandleExpenseRecorded(ctx context.Context, msg *amqp.ExpenseRecordedMessage) error {
	w.logger.InfoContext(ctx, "Processing expense message",
		log.FieldMessageID, msg.MessageID,
		log.FieldExpenseID, msg.ExpenseID,
		log.FieldUserID, msg.UserID)

	record := msg.Record()
	if err := record.Validate(); err != nil {
		// Requeueing cannot fix a malformed message.
		w.logger.ErrorContext(ctx, "Dropping invalid expense message",
			log.NewFields().WithError(err).WithOperation(log.OpValidate).ToSlice()...)
		return nil
	}

	if err := w.mirrorExpense(ctx, record); err != nil {
		return fmt.Errorf("mirror expense: %w", err)
	}
	if err := w.refreshReview(ctx, record.UserID); err != nil {
		return fmt.Errorf("refresh review: %w", err)
	}
	return nil
}

func (w *ReviewWorker) mirrorExpense(ctx context.Context, e core.ExpenseRecord) error {
	if w.mirror == nil {
		return nil
	}
	ref, err := w.mirror.Append(ctx, e)
	if err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Successfully mirrored expense",
		log.FieldExpenseID, e.ID,
		log.FieldSheetsRef, ref,
		log.FieldAmountVND, e.Amount.AmountVND.String())
	return nil
}

func (w *ReviewWorker) refreshReview(ctx context.Context, userID string) error {
	review, err := w.reviewer.Review(ctx, userID, analysis.PeriodMonth)
	if err != nil {
		return err
	}
	if err := w.store.SaveReview(ctx, review); err != nil {
		return fmt.Errorf("save review: %w", err)
	}
	w.logger.DebugContext(ctx, "Review refreshed", log.FieldUserID, userID, log.FieldPeriod, review.Period)
	return nil
}

// StartupReviewCheck builds a review for up to batchSize registered users
// that have none yet, e.g. users whose messages arrived while the worker was
// down.
func (w *ReviewWorker) StartupReviewCheck(ctx context.Context) error {
	users, err := w.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users for startup check: %w", err)
	}

	var done, failed int
	for _, u := range users {
		if done+failed >= w.batchSize {
			break
		}
		_, err := w.store.LatestReview(ctx, u.UserID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ledger.ErrNotFound) {
			return fmt.Errorf("latest review: %w", err)
		}
		if err := w.refreshReview(ctx, u.UserID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to build review during startup",
				log.NewFields().WithUser(u.UserID).WithError(err).ToSlice()...)
			failed++
			continue
		}
		done++
	}

	w.logger.InfoContext(ctx, "Startup review check completed",
		"users", len(users),
		"reviewed", done,
		"errors", failed)
	return nil
}
