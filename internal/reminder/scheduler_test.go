package reminder

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chitieu/internal/amqp"
	"chitieu/internal/core"
	"chitieu/internal/ledger/memory"
)

var fixedNow = time.Date(2025, 3, 14, 21, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[string]string
	fail map[string]bool
}

func newRecordingNotifier(failing ...string) *recordingNotifier {
	n := &recordingNotifier{sent: map[string]string{}, fail: map[string]bool{}}
	for _, id := range failing {
		n.fail[id] = true
	}
	return n
}

func (n *recordingNotifier) Notify(_ context.Context, u core.User, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[u.UserID] {
		return errors.New("chat unreachable")
	}
	n.sent[u.ChatID] = text
	return nil
}

type countingObserver struct {
	sent, failed int
}

func (o *countingObserver) RemindersSent(sent, failed int) {
	o.sent, o.failed = sent, failed
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	for _, u := range []core.User{{UserID: "u1", ChatID: "c1"}, {UserID: "u2", ChatID: "c2"}, {UserID: "u3", ChatID: "c3"}} {
		require.NoError(t, store.AddUser(ctx, u.UserID, u.ChatID))
	}
	for _, vnd := range []int64{150000, 1250000} {
		amount := decimal.NewFromInt(vnd)
		_, err := store.RecordExpense(ctx, core.ExpenseRecord{
			UserID:   "u1",
			Date:     core.DateOf(fixedNow),
			Amount:   core.MonetaryAmount{OriginalAmount: amount, AmountVND: amount, Currency: core.VND},
			Category: core.CategoryConsumption,
		})
		require.NoError(t, err)
	}
	return store
}

func TestDailyText(t *testing.T) {
	want := "Nhắc nhở: Hôm nay (2025-03-14), bạn đã chi tiêu tổng cộng 1,400,000 đồng.\n" +
		"Hãy cân nhắc trước khi mua sắm thêm nhé!"
	assert.Equal(t, want, DailyText(core.NewDate(2025, 3, 14), "1,400,000"))
}

func TestRunNow(t *testing.T) {
	store := seededStore(t)
	notifier := newRecordingNotifier()
	observer := &countingObserver{}
	s := NewScheduler(store, store, notifier, nil,
		WithClock(func() time.Time { return fixedNow }),
		WithObserver(observer),
		WithConcurrency(2))

	sent, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	assert.Equal(t, 3, observer.sent)

	chats := make([]string, 0, len(notifier.sent))
	for chat := range notifier.sent {
		chats = append(chats, chat)
	}
	sort.Strings(chats)
	assert.Equal(t, []string{"c1", "c2", "c3"}, chats)
	assert.Contains(t, notifier.sent["c1"], "tổng cộng 1,400,000 đồng")
	assert.Contains(t, notifier.sent["c2"], "tổng cộng 0 đồng")
}

func TestRunNowContinuesAfterFailure(t *testing.T) {
	store := seededStore(t)
	notifier := newRecordingNotifier("u2")
	observer := &countingObserver{}
	s := NewScheduler(store, store, notifier, nil,
		WithClock(func() time.Time { return fixedNow }),
		WithObserver(observer))

	sent, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, 1, observer.failed)
	assert.NotContains(t, notifier.sent, "c2")
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(memory.New(), memory.New(), NewLogNotifier(nil), nil, WithSchedule("every evening"))
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(memory.New(), memory.New(), NewLogNotifier(nil), nil)
	require.NoError(t, s.Start())
	select {
	case <-s.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

type fakeReminderPublisher struct {
	got []*amqp.ReminderMessage
}

func (p *fakeReminderPublisher) PublishReminder(_ context.Context, msg *amqp.ReminderMessage) error {
	p.got = append(p.got, msg)
	return nil
}

func TestAMQPNotifier(t *testing.T) {
	pub := &fakeReminderPublisher{}
	n := NewAMQPNotifier(pub)

	require.NoError(t, n.Notify(context.Background(), core.User{UserID: "u1", ChatID: "c1"}, "hello"))
	require.Len(t, pub.got, 1)
	assert.Equal(t, "c1", pub.got[0].ChatID)
	assert.Equal(t, "hello", pub.got[0].Text)
	assert.NotEmpty(t, pub.got[0].MessageID)
}
