package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chitieu/internal/cache"
)

func TestCounters(t *testing.T) {
	m := New()

	m.MessageHandled("expense_entry")
	m.MessageHandled("expense_entry")
	m.MessageHandled("unknown")
	m.ExpenseRecorded("Tiêu dùng", "VND")
	m.ObserveModelCall("huggingface", "classify", 120*time.Millisecond, nil)
	m.ObserveModelCall("huggingface", "classify", time.Second, errors.New("503"))
	m.RemindersSent(4, 1)
	m.ObserveHTTP(http.MethodPost, "/api/messages", http.StatusOK, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.messages.WithLabelValues("expense_entry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.expenses.WithLabelValues("Tiêu dùng", "VND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelCalls.WithLabelValues("huggingface", "classify", "error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.reminders.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/messages", "200")))
}

func TestHandlerExposesCache(t *testing.T) {
	m := New()
	c := cache.NewLRUCache[string](4, time.Minute)
	c.Set("ăn trưa", "Tiêu dùng")
	c.Get("ăn trưa")
	c.Get("missing")
	m.RegisterCache("category", c)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `chitieu_cache_entries{cache="category"} 1`)
	assert.Contains(t, string(body), `chitieu_cache_hits_total{cache="category"} 1`)
	assert.Contains(t, string(body), `chitieu_cache_misses_total{cache="category"} 1`)
}
