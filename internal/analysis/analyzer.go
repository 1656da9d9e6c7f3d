package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
	"chitieu/internal/log"
)

const (
	NoDataText            = "Không có dữ liệu chi tiêu trong khoảng thời gian đã chọn."
	ModelUnavailableText  = "Không thể tạo nhận xét tự động vì mô hình ngôn ngữ không sẵn sàng."
	ModelFailedText       = "Có lỗi xảy ra khi tạo nhận xét tự động."
	commentaryMaxTokens   = 100
	defaultCommentTimeout = 10 * time.Second
)

const commentaryInstructions = "Dựa trên các số liệu và thông tin cá nhân trên, hãy đưa ra nhận xét và lời khuyên cải thiện cách chi tiêu của bạn một cách tự nhiên, " +
	"có cảm xúc và phù hợp với hoàn cảnh. Ví dụ:\n" +
	"- Nếu chi tiêu vượt ngân sách, cảnh báo nhẹ nhàng và đề xuất giảm các khoản chi không cần thiết.\n" +
	"- Nếu một danh mục chi tiêu quá cao, gợi ý tối ưu hóa hoặc cắt giảm.\n" +
	"- Nếu chi tiêu ổn định, khen ngợi và động viên tiếp tục duy trì.\n"

// Generator writes free text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type Source interface {
	ledger.ExpenseStore
	ledger.ProfileStore
}

type Analyzer struct {
	source  Source
	model   Generator
	timeout time.Duration
	now     func() time.Time
	logger  *log.Logger
}

type Option func(*Analyzer)

// WithCommentaryModel enables generated commentary. Without it the
// fallback text is used.
func WithCommentaryModel(g Generator) Option {
	return func(a *Analyzer) { a.model = g }
}

func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(a *Analyzer) { a.logger = log.OrDiscard(l).WithComponent(log.ComponentAnalysis) }
}

func NewAnalyzer(source Source, opts ...Option) *Analyzer {
	a := &Analyzer{
		source:  source,
		timeout: defaultCommentTimeout,
		now:     time.Now,
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Now is the analyzer's clock.
func (a *Analyzer) Now() time.Time {
	return a.now()
}

// Analyze aggregates the user's records for the period containing now.
func (a *Analyzer) Analyze(ctx context.Context, userID string, period Period) (Report, error) {
	from, to := period.Window(a.now())
	records, err := a.source.ExpensesByPeriod(ctx, userID, from, to)
	if err != nil {
		return Report{}, fmt.Errorf("load expenses: %w", err)
	}

	report := Report{
		Period:   period,
		Overview: core.Summarize(userID, from, to, records),
	}
	if report.IsEmpty() {
		return report, nil
	}

	profile, err := a.source.GetProfile(ctx, userID)
	switch {
	case err == nil:
		report.Profile = &profile
		report.OverBudget = report.Overview.Total.GreaterThan(profile.Budget)
	case errors.Is(err, ledger.ErrNotFound):
	default:
		return Report{}, fmt.Errorf("load profile: %w", err)
	}
	return report, nil
}

// CommentaryPrompt is the report details followed by the advice request.
func CommentaryPrompt(r Report) string {
	return r.Details() + "\n" + commentaryInstructions
}

// Commentary asks the model for advice on the report. It never fails: a
// missing or failing model yields a fixed text.
func (a *Analyzer) Commentary(ctx context.Context, r Report) string {
	if r.IsEmpty() {
		return NoDataText
	}
	if a.model == nil {
		return ModelUnavailableText
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	out, err := a.model.Generate(ctx, CommentaryPrompt(r), commentaryMaxTokens)
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New("empty commentary")
	}
	if err != nil {
		a.logger.WarnContext(ctx, "Commentary generation failed",
			log.NewFields().WithOperation(log.OpGenerate).WithError(err).WithUser(r.Overview.UserID).ToSlice()...)
		return ModelFailedText
	}
	return strings.TrimSpace(out)
}

// Review analyses the period and returns details followed by commentary.
func (a *Analyzer) Review(ctx context.Context, userID string, period Period) (core.Review, error) {
	report, err := a.Analyze(ctx, userID, period)
	if err != nil {
		return core.Review{}, err
	}
	text := NoDataText
	if !report.IsEmpty() {
		text = report.Details() + "\n" + a.Commentary(ctx, report)
	}
	return core.Review{
		UserID:    userID,
		Period:    string(period),
		From:      report.Overview.From,
		To:        report.Overview.To,
		Total:     report.Overview.Total,
		Text:      text,
		CreatedAt: a.now(),
	}, nil
}
