package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"chitieu/internal/analysis"
	"chitieu/internal/core"
	"chitieu/internal/ledger"
	"chitieu/internal/log"
	"chitieu/internal/nlp"
)

// DefaultLargeExpenseVND is the amount above which an entry is flagged.
var DefaultLargeExpenseVND = decimal.NewFromInt(50_000_000)

// Extractor turns an utterance into an ExtractionResult.
type Extractor interface {
	Extract(ctx context.Context, text string) core.ExtractionResult
}

// Reply is everything the assistant answers to one message, in the order
// the messages should be delivered.
type Reply struct {
	Intent     core.Intent            `json:"intent"`
	Messages   []string               `json:"messages"`
	Expense    *core.ExpenseRecord    `json:"expense,omitempty"`
	Profile    *core.ProfileInfo      `json:"profile,omitempty"`
	Extraction *core.ExtractionResult `json:"extraction,omitempty"`
}

// Text joins the messages for transports that send a single text.
func (r Reply) Text() string {
	return strings.Join(r.Messages, "\n\n")
}

func (r *Reply) say(msgs ...string) {
	r.Messages = append(r.Messages, msgs...)
}

type AssistantConfig struct {
	// LargeExpenseVND triggers the confirmation warning when exceeded.
	LargeExpenseVND decimal.Decimal
	// ReviewAfterExpense appends the month review to every saved entry.
	ReviewAfterExpense bool
}

// Assistant routes chat messages to the ledger and the analyzer.
type Assistant struct {
	extractor Extractor
	ledger    ledger.Ledger
	expenses  *ExpenseService
	analyzer  *analysis.Analyzer
	cfg       AssistantConfig
	metrics   Metrics
	logger    *log.Logger
}

func NewAssistant(
	extractor Extractor,
	l ledger.Ledger,
	expenses *ExpenseService,
	analyzer *analysis.Analyzer,
	cfg AssistantConfig,
	metrics Metrics,
	logger *log.Logger,
) *Assistant {
	if !cfg.LargeExpenseVND.IsPositive() {
		cfg.LargeExpenseVND = DefaultLargeExpenseVND
	}
	return &Assistant{
		extractor: extractor,
		ledger:    l,
		expenses:  expenses,
		analyzer:  analyzer,
		cfg:       cfg,
		metrics:   metrics,
		logger:    log.OrDiscard(logger).WithComponent(log.ComponentAssistant),
	}
}

// HandleMessage registers the user and answers text. Errors are
// infrastructure failures; anything the user typed yields a Reply.
func (a *Assistant) HandleMessage(ctx context.Context, userID, chatID, text string) (Reply, error) {
	if strings.TrimSpace(userID) == "" {
		return Reply{}, core.ErrEmptyUser
	}
	if err := a.ledger.AddUser(ctx, userID, chatID); err != nil {
		return Reply{}, fmt.Errorf("register user: %w", err)
	}

	if reply, ok, err := a.handleCommand(ctx, userID, text); ok || err != nil {
		a.observe(ctx, userID, reply.Intent)
		return reply, err
	}

	result := a.extractor.Extract(ctx, text)
	reply := Reply{Intent: result.Intent, Extraction: &result}
	var err error
	switch result.Intent {
	case core.IntentProfile:
		reply, err = a.UpdateProfile(ctx, userID, text)
	case core.IntentExpenseEntry:
		err = a.recordExpense(ctx, userID, result, &reply)
	case core.IntentReport:
		reply.say(ReportHintText)
	case core.IntentReminder:
		reply.say(ReminderAckText)
	default:
		reply.say(UnknownText)
	}
	a.observe(ctx, userID, reply.Intent)
	return reply, err
}

func (a *Assistant) observe(ctx context.Context, userID string, intent core.Intent) {
	a.logger.DebugContext(ctx, "Message handled", log.FieldUserID, userID, log.FieldIntent, string(intent))
	if a.metrics != nil && intent != "" {
		a.metrics.MessageHandled(string(intent))
	}
}

// handleCommand answers the slash commands without running the extractor.
func (a *Assistant) handleCommand(ctx context.Context, userID, text string) (Reply, bool, error) {
	command := commandOf(text)
	reply := Reply{Intent: core.IntentUnknown}
	switch command {
	case "/start":
		reply.say(welcomeText)
	case "/profile":
		reply, err := a.UpdateProfile(ctx, userID, text)
		return reply, true, err
	case "/help":
		reply.say(helpText)
	case "/review":
		reply.Intent = core.IntentReport
		review, err := a.Review(ctx, userID)
		if err != nil {
			return reply, true, err
		}
		reply.say(reviewHeading + review.Text)
	case "/report", "/report_week", "/report_month":
		reply.Intent = core.IntentReport
		period := map[string]analysis.Period{
			"/report":       analysis.PeriodDay,
			"/report_week":  analysis.PeriodWeek,
			"/report_month": analysis.PeriodMonth,
		}[command]
		statement, err := a.Report(ctx, userID, period)
		if err != nil {
			return reply, true, err
		}
		reply.say(statement)
	default:
		return Reply{}, false, nil
	}
	return reply, true, nil
}

// commandOf returns the leading slash command without any "@bot" suffix.
func commandOf(text string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	command, _, _ := strings.Cut(fields[0], "@")
	return command
}

func (a *Assistant) recordExpense(ctx context.Context, userID string, result core.ExtractionResult, reply *Reply) error {
	record, ok := result.Record(userID)
	if !ok {
		reply.say(MissingAmountText)
		return nil
	}
	if record.Amount.AmountVND.GreaterThan(a.cfg.LargeExpenseVND) {
		reply.say(LargeExpenseText)
	}

	id, err := a.expenses.Record(ctx, record)
	if err != nil {
		return fmt.Errorf("record expense: %w", err)
	}
	record.ID = id
	reply.Expense = &record
	reply.say(savedText(record))

	if a.cfg.ReviewAfterExpense && a.analyzer != nil {
		review, err := a.analyzer.Review(ctx, userID, analysis.PeriodMonth)
		if err != nil {
			a.logger.WarnContext(ctx, "Review after expense failed",
				log.NewFields().WithUser(userID).WithOperation(log.OpReview).WithError(err).ToSlice()...)
			return nil
		}
		reply.say(review.Text)
	}
	return nil
}

// UpdateProfile parses a /profile command and stores it when the name was
// recognised.
func (a *Assistant) UpdateProfile(ctx context.Context, userID, text string) (Reply, error) {
	reply := Reply{Intent: core.IntentProfile}
	profile := nlp.ParseProfile(text)
	if !profile.Accepted() {
		reply.say(ProfileRejectedText)
		return reply, nil
	}
	if err := a.ledger.SaveProfile(ctx, userID, profile); err != nil {
		return reply, fmt.Errorf("save profile: %w", err)
	}
	reply.Profile = &profile
	reply.say(ProfileUpdatedText)
	return reply, nil
}

// Report lists the user's records for the period containing today.
func (a *Assistant) Report(ctx context.Context, userID string, period analysis.Period) (string, error) {
	from, to := period.Window(a.analyzer.Now())
	records, err := a.ledger.ExpensesByPeriod(ctx, userID, from, to)
	if err != nil {
		return "", fmt.Errorf("load expenses: %w", err)
	}
	return analysis.Statement(period, from, to, records), nil
}

// Review builds and stores the month review.
func (a *Assistant) Review(ctx context.Context, userID string) (core.Review, error) {
	review, err := a.analyzer.Review(ctx, userID, analysis.PeriodMonth)
	if err != nil {
		return core.Review{}, fmt.Errorf("review: %w", err)
	}
	if err := a.ledger.SaveReview(ctx, review); err != nil {
		a.logger.WarnContext(ctx, "Failed to store review",
			log.NewFields().WithUser(userID).WithOperation(log.OpReview).WithError(err).ToSlice()...)
	}
	return review, nil
}

// LatestReview returns the last stored review, or builds one when none
// exists yet.
func (a *Assistant) LatestReview(ctx context.Context, userID string) (core.Review, error) {
	review, err := a.ledger.LatestReview(ctx, userID)
	switch {
	case err == nil:
		return review, nil
	case errors.Is(err, ledger.ErrNotFound):
		return a.Review(ctx, userID)
	default:
		return core.Review{}, fmt.Errorf("load review: %w", err)
	}
}

// Extract exposes the extraction pipeline without touching the ledger.
func (a *Assistant) Extract(ctx context.Context, text string) core.ExtractionResult {
	return a.extractor.Extract(ctx, text)
}
