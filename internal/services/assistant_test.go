package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chitieu/internal/analysis"
	"chitieu/internal/core"
	"chitieu/internal/ledger/memory"
	"chitieu/internal/nlp"
)

// Friday.
var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type harness struct {
	store     *memory.Store
	publisher *fakePublisher
	metrics   *fakeMetrics
	assistant *Assistant
}

func newHarness(t *testing.T, cfg AssistantConfig) *harness {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	h := &harness{store: memory.New(), publisher: &fakePublisher{}, metrics: &fakeMetrics{}}
	expenses := NewExpenseService(h.store, h.publisher, h.metrics, nil)
	analyzer := analysis.NewAnalyzer(h.store, analysis.WithClock(clock))
	h.assistant = NewAssistant(nlp.NewExtractor(nlp.WithClock(clock)), h.store, expenses, analyzer, cfg, h.metrics, nil)
	return h
}

func TestHandleMessage_ExpenseEntry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, AssistantConfig{})

	reply, err := h.assistant.HandleMessage(ctx, "u1", "c1", "ăn cá viên 200k")
	require.NoError(t, err)

	assert.Equal(t, core.IntentExpenseEntry, reply.Intent)
	require.NotNil(t, reply.Expense)
	assert.Equal(t, []string{"Đã lưu chi tiêu: 200,000 đồng, loại: Tiêu dùng, vào ngày 2025-03-14."}, reply.Messages)

	stored, err := h.store.ExpensesByDate(ctx, "u1", core.NewDate(2025, 3, 14))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, decimal.NewFromInt(200000).Equal(stored[0].Amount.AmountVND))
	assert.Len(t, h.publisher.published, 1)

	users, err := h.store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.User{{UserID: "u1", ChatID: "c1"}}, users)
	assert.Equal(t, []string{"expense_entry"}, h.metrics.intents)
}

func TestHandleMessage_ForeignCurrency(t *testing.T) {
	h := newHarness(t, AssistantConfig{})

	reply, err := h.assistant.HandleMessage(context.Background(), "u1", "c1", "ăn trưa 20 usd")
	require.NoError(t, err)
	require.Len(t, reply.Messages, 1)
	assert.Equal(t, "Đã lưu chi tiêu: 460,000 đồng (tương đương 20 USD), loại: Tiêu dùng, vào ngày 2025-03-14.", reply.Messages[0])
	assert.Equal(t, core.USD, reply.Expense.Currency())
}

func TestHandleMessage_LargeExpense(t *testing.T) {
	tests := []struct {
		name      string
		threshold decimal.Decimal
		text      string
		warned    bool
	}{
		{"default threshold exceeded", decimal.Zero, "mua xe 60 triệu", true},
		{"default threshold not exceeded", decimal.Zero, "mua xe 50 triệu", false},
		{"custom threshold", decimal.NewFromInt(1_000_000), "mua áo 2 triệu", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, AssistantConfig{LargeExpenseVND: tt.threshold})
			reply, err := h.assistant.HandleMessage(context.Background(), "u1", "c1", tt.text)
			require.NoError(t, err)
			require.NotNil(t, reply.Expense)
			assert.Equal(t, tt.warned, reply.Messages[0] == LargeExpenseText)
		})
	}
}

func TestHandleMessage_MissingAmount(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, AssistantConfig{})

	reply, err := h.assistant.HandleMessage(ctx, "u1", "c1", "chi tiền ăn trưa")
	require.NoError(t, err)
	assert.Equal(t, core.IntentExpenseEntry, reply.Intent)
	assert.Nil(t, reply.Expense)
	assert.Equal(t, []string{MissingAmountText}, reply.Messages)

	stored, err := h.store.ExpensesByDate(ctx, "u1", core.NewDate(2025, 3, 14))
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Empty(t, h.publisher.published)
}

func TestHandleMessage_FixedReplies(t *testing.T) {
	tests := []struct {
		text   string
		intent core.Intent
		want   string
	}{
		{"báo cáo chi tiêu", core.IntentReport, ReportHintText},
		{"nhắc tôi mỗi tối", core.IntentReminder, ReminderAckText},
		{"xin chào", core.IntentUnknown, UnknownText},
		{"/help", core.IntentUnknown, helpText},
		{"/start@chitieu_bot", core.IntentUnknown, welcomeText},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			h := newHarness(t, AssistantConfig{})
			reply, err := h.assistant.HandleMessage(context.Background(), "u1", "c1", tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.intent, reply.Intent)
			assert.Equal(t, []string{tt.want}, reply.Messages)
		})
	}
}

func TestHandleMessage_EmptyUser(t *testing.T) {
	h := newHarness(t, AssistantConfig{})
	_, err := h.assistant.HandleMessage(context.Background(), " ", "c1", "ăn 20k")
	assert.ErrorIs(t, err, core.ErrEmptyUser)
}

func TestHandleMessage_Profile(t *testing.T) {
	ctx := context.Background()
	faker := gofakeit.New(7)
	name := faker.FirstName()

	h := newHarness(t, AssistantConfig{})
	text := "/profile Tên: " + name + ", Thu nhập: 15,000,000 đồng, Ngân sách: 10,000,000 đồng, " +
		"Mục tiêu tiết kiệm: 5,000,000 đồng, Mục tiêu sử dụng: Tiêu dùng, Đầu tư"

	reply, err := h.assistant.HandleMessage(ctx, "u1", "c1", text)
	require.NoError(t, err)
	assert.Equal(t, core.IntentProfile, reply.Intent)
	assert.Equal(t, []string{ProfileUpdatedText}, reply.Messages)

	saved, err := h.store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, name, saved.DisplayName())
	assert.True(t, decimal.NewFromInt(10_000_000).Equal(saved.Budget))

	reply, err = h.assistant.HandleMessage(ctx, "u2", "c2", "/profile invalid text")
	require.NoError(t, err)
	assert.Equal(t, []string{ProfileRejectedText}, reply.Messages)
	_, err = h.store.GetProfile(ctx, "u2")
	assert.Error(t, err)
}

type countingExtractor struct {
	inner Extractor
	calls int
}

func (c *countingExtractor) Extract(ctx context.Context, text string) core.ExtractionResult {
	c.calls++
	return c.inner.Extract(ctx, text)
}

func TestHandleMessage_ProfileSkipsExtractor(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, AssistantConfig{})
	extractor := &countingExtractor{inner: nlp.NewExtractor(nlp.WithClock(func() time.Time { return fixedNow }))}
	h.assistant.extractor = extractor

	reply, err := h.assistant.HandleMessage(ctx, "u1", "c1",
		"/profile Tên: Huy, Thu nhập: 15000000, Ngân sách: 8000000, Mục tiêu tiết kiệm: 2000000")
	require.NoError(t, err)
	assert.Equal(t, core.IntentProfile, reply.Intent)
	assert.Equal(t, []string{ProfileUpdatedText}, reply.Messages)
	assert.Nil(t, reply.Extraction)
	assert.Zero(t, extractor.calls)
	assert.Equal(t, []string{"profile"}, h.metrics.intents)

	_, err = h.assistant.HandleMessage(ctx, "u1", "c1", "ăn sáng 30k")
	require.NoError(t, err)
	assert.Equal(t, 1, extractor.calls)
}

func TestHandleMessage_Reports(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, AssistantConfig{})
	for _, text := range []string{"ăn sáng 30k", "đi xe buýt 7k"} {
		_, err := h.assistant.HandleMessage(ctx, "u1", "c1", text)
		require.NoError(t, err)
	}

	reply, err := h.assistant.HandleMessage(ctx, "u1", "c1", "/report")
	require.NoError(t, err)
	assert.Equal(t, core.IntentReport, reply.Intent)
	require.Len(t, reply.Messages, 1)
	assert.True(t, strings.HasPrefix(reply.Messages[0], "Báo cáo chi tiêu ngày 2025-03-14:\n"))
	assert.True(t, strings.HasSuffix(reply.Messages[0], "Tổng cộng: 37,000 đồng"))

	reply, err = h.assistant.HandleMessage(ctx, "u1", "c1", "/report_week")
	require.NoError(t, err)
	assert.Contains(t, reply.Messages[0], "(2025-03-10 đến 2025-03-16)")

	reply, err = h.assistant.HandleMessage(ctx, "u1", "c1", "/report_month")
	require.NoError(t, err)
	assert.Contains(t, reply.Messages[0], "tháng 3/2025")
}

func TestReviewIsStored(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, AssistantConfig{})

	_, err := h.assistant.HandleMessage(ctx, "u1", "c1", "ăn tối 120k")
	require.NoError(t, err)

	reply, err := h.assistant.HandleMessage(ctx, "u1", "c1", "/review")
	require.NoError(t, err)
	require.Len(t, reply.Messages, 1)
	assert.True(t, strings.HasPrefix(reply.Messages[0], "Nhận xét cách chi tiêu của bạn:\nTừ 2025-03-01 đến 2025-03-31"))
	assert.Contains(t, reply.Messages[0], analysis.ModelUnavailableText)

	latest, err := h.assistant.LatestReview(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "month", latest.Period)
	assert.True(t, decimal.NewFromInt(120000).Equal(latest.Total))
}

func TestReviewAfterExpense(t *testing.T) {
	h := newHarness(t, AssistantConfig{ReviewAfterExpense: true})

	reply, err := h.assistant.HandleMessage(context.Background(), "u1", "c1", "ăn tối 120k")
	require.NoError(t, err)
	require.Len(t, reply.Messages, 2)
	assert.Contains(t, reply.Messages[1], "tổng chi tiêu của bạn là 120,000 đồng")
}

func TestReplyText(t *testing.T) {
	r := Reply{Messages: []string{"a", "b"}}
	assert.Equal(t, "a\n\nb", r.Text())
}
