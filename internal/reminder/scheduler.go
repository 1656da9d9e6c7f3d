package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
	"chitieu/internal/log"
)

// DefaultSchedule runs at 21:00 every day.
const DefaultSchedule = "0 21 * * *"

const (
	defaultConcurrency = 8
	runTimeout         = 10 * time.Minute
)

// DailyText is the reminder for one user's day.
func DailyText(day core.Date, total string) string {
	return fmt.Sprintf("Nhắc nhở: Hôm nay (%s), bạn đã chi tiêu tổng cộng %s đồng.\n"+
		"Hãy cân nhắc trước khi mua sắm thêm nhé!", day, total)
}

// Observer receives the outcome of each run.
type Observer interface {
	RemindersSent(sent, failed int)
}

// Scheduler runs the daily reminder with robfig/cron.
type Scheduler struct {
	cron        *cron.Cron
	schedule    string
	users       ledger.UserStore
	expenses    ledger.ExpenseStore
	notifier    Notifier
	observer    Observer
	concurrency int
	now         func() time.Time
	logger      *log.Logger
}

type Option func(*Scheduler)

func WithSchedule(expr string) Option {
	return func(s *Scheduler) {
		if expr != "" {
			s.schedule = expr
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func NewScheduler(users ledger.UserStore, expenses ledger.ExpenseStore, notifier Notifier, logger *log.Logger, opts ...Option) *Scheduler {
	logger = log.OrDiscard(logger).WithComponent(log.ComponentReminder)
	s := &Scheduler{
		cron:        cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug)))),
		schedule:    DefaultSchedule,
		users:       users,
		expenses:    expenses,
		notifier:    notifier,
		concurrency: defaultConcurrency,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the reminder job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return fmt.Errorf("schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("Reminder scheduler started", "schedule", s.schedule, "jobs", len(s.cron.Entries()))
	return nil
}

// Stop halts the cron loop; the returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("Reminder scheduler stopping")
	return s.cron.Stop()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if _, err := s.RunNow(ctx); err != nil {
		s.logger.Error("Daily reminder failed", log.NewFields().WithOperation(log.OpRemind).WithError(err).ToSlice()...)
	}
}

// RunNow sends today's reminder to every registered user and returns how
// many were delivered. A failed delivery is logged and does not stop the
// others.
func (s *Scheduler) RunNow(ctx context.Context) (int, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	today := core.DateOf(s.now())

	var sent, failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, u := range users {
		g.Go(func() error {
			if err := s.remind(gctx, u, today); err != nil {
				failed.Add(1)
				s.logger.ErrorContext(gctx, "Failed to send reminder",
					log.NewFields().WithUser(u.UserID).WithOperation(log.OpRemind).WithError(err).ToSlice()...)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if s.observer != nil {
		s.observer.RemindersSent(int(sent.Load()), int(failed.Load()))
	}
	s.logger.InfoContext(ctx, "Daily reminder completed", "sent", sent.Load(), "failed", failed.Load(), log.FieldDate, today.String())
	return int(sent.Load()), nil
}

func (s *Scheduler) remind(ctx context.Context, u core.User, day core.Date) error {
	total, err := s.expenses.TotalByDate(ctx, u.UserID, day)
	if err != nil {
		return fmt.Errorf("total: %w", err)
	}
	return s.notifier.Notify(ctx, u, DailyText(day, core.FormatAmount(total)))
}
