package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chitieu/internal/analysis"
	"chitieu/internal/core"
	"chitieu/internal/ledger/memory"
	"chitieu/internal/metrics"
	"chitieu/internal/nlp"
	"chitieu/internal/services"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type testServer struct {
	*Server
	store   *memory.Store
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	store := memory.New()
	m := metrics.New()
	expenses := services.NewExpenseService(store, nil, m, nil)
	analyzer := analysis.NewAnalyzer(store, analysis.WithClock(clock))
	assistant := services.NewAssistant(nlp.NewExtractor(nlp.WithClock(clock)), store, expenses, analyzer,
		services.AssistantConfig{}, m, nil)

	opts = append([]Option{WithMetrics(m.Handler(), m)}, opts...)
	s := NewServer(":0", assistant, opts...)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return &testServer{Server: s, store: store, metrics: m}
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.RemoteAddr = "203.0.113.7:5000"
	rec := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_PostMessage_RecordsExpense(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/messages", `{"user_id":"u1","chat_id":"c1","text":"ăn cá viên 200k"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var reply services.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, core.IntentExpenseEntry, reply.Intent)
	assert.Equal(t, []string{"Đã lưu chi tiêu: 200,000 đồng, loại: Tiêu dùng, vào ngày 2025-03-14."}, reply.Messages)

	stored, err := ts.store.ExpensesByDate(context.Background(), "u1", core.NewDate(2025, 3, 14))
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestServer_PostMessage_DefaultsChatID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/messages", `{"user_id":"u9","text":"/start"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	users, err := ts.store.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.User{{UserID: "u9", ChatID: "u9"}}, users)
}

func TestServer_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"missing text", http.MethodPost, "/api/messages", `{"user_id":"u1"}`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/messages", `{"user_id":"u1","text":"x","extra":1}`, http.StatusBadRequest},
		{"two objects", http.MethodPost, "/api/messages", `{"user_id":"u1","text":"x"}{}`, http.StatusBadRequest},
		{"not json", http.MethodPost, "/api/extract", `hello`, http.StatusBadRequest},
		{"report without user", http.MethodGet, "/api/reports/day", "", http.StatusBadRequest},
		{"unknown period", http.MethodGet, "/api/reports/year?user_id=u1", "", http.StatusBadRequest},
		{"review without user", http.MethodGet, "/api/review", "", http.StatusBadRequest},
		{"wrong method", http.MethodGet, "/api/messages", "", http.StatusMethodNotAllowed},
	}
	ts := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_Profile(t *testing.T) {
	ts := newTestServer(t)

	text := "Tên: An, Thu nhập: 15,000,000 đồng, Ngân sách: 10,000,000 đồng, " +
		"Mục tiêu tiết kiệm: 5,000,000 đồng, Mục tiêu sử dụng: Tiêu dùng"
	body, err := json.Marshal(profileRequest{UserID: "u1", Text: text})
	require.NoError(t, err)

	rec := ts.do(t, http.MethodPost, "/api/profile", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reply services.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	require.NotNil(t, reply.Profile)
	assert.Equal(t, "An", reply.Profile.DisplayName())

	rec = ts.do(t, http.MethodPost, "/api/profile", `{"user_id":"u1","text":"/profile invalid text"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, []string{services.ProfileRejectedText}, reply.Messages)
}

func TestServer_Extract(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/extract", `{"text":"ăn trưa 50k"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "expense_entry", got["intent"])
	assert.Equal(t, "ăn trưa 50k", got["original_text"])

	users, err := ts.store.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestServer_ReportAndReview(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusOK,
		ts.do(t, http.MethodPost, "/api/messages", `{"user_id":"u1","chat_id":"c1","text":"ăn cá viên 200k"}`).Code)

	rec := ts.do(t, http.MethodGet, "/api/reports/day?user_id=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report reportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, analysis.PeriodDay, report.Period)
	assert.Contains(t, report.Text, "200,000")

	rec = ts.do(t, http.MethodGet, "/api/review?user_id=nobody", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var review core.Review
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &review))
	assert.Equal(t, analysis.NoDataText, review.Text)
}

func TestServer_RateLimit(t *testing.T) {
	ts := newTestServer(t, WithRateLimit(2))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/extract", `{"text":"xin chào"}`).Code)
	}
	rec := ts.do(t, http.MethodPost, "/api/extract", `{"text":"xin chào"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Reads are not limited.
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/healthz", "").Code)
}

func TestServer_Readiness(t *testing.T) {
	ready := errors.New("database down")
	ts := newTestServer(t, WithReadiness(func(context.Context) error { return ready }))
	assert.Equal(t, http.StatusServiceUnavailable, ts.do(t, http.MethodGet, "/readyz", "").Code)

	ready = nil
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/readyz", "").Code)
}

func TestServer_SecurityHeadersAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `chitieu_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestServer_ShutdownTwice(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.Shutdown(context.Background()))
	require.NoError(t, ts.Shutdown(context.Background()))
}
