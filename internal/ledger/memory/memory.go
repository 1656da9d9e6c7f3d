// Package memory is an in-process Ledger used for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
)

type Store struct {
	mu       sync.Mutex
	users    map[string]core.User
	order    []string
	expenses []core.ExpenseRecord
	profiles map[string]core.ProfileInfo
	reviews  map[string][]core.Review
}

var _ ledger.Ledger = (*Store)(nil)

func New() *Store {
	return &Store{
		users:    make(map[string]core.User),
		profiles: make(map[string]core.ProfileInfo),
		reviews:  make(map[string][]core.Review),
	}
}

func (s *Store) AddUser(_ context.Context, userID, chatID string) error {
	if userID == "" {
		return core.ErrEmptyUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; ok {
		return nil
	}
	s.users[userID] = core.User{UserID: userID, ChatID: chatID}
	s.order = append(s.order, userID)
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.users[id])
	}
	return out, nil
}

// RecordExpense stores the record and returns a sequential id.
func (s *Store) RecordExpense(_ context.Context, e core.ExpenseRecord) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = int64(len(s.expenses) + 1)
	s.expenses = append(s.expenses, e)
	return e.ID, nil
}

func (s *Store) ExpensesByDate(ctx context.Context, userID string, date core.Date) ([]core.ExpenseRecord, error) {
	return s.ExpensesByPeriod(ctx, userID, date, date)
}

func (s *Store) ExpensesByPeriod(_ context.Context, userID string, from, to core.Date) ([]core.ExpenseRecord, error) {
	lo, hi := from.String(), to.String()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.ExpenseRecord
	for _, e := range s.expenses {
		d := e.Date.String()
		if e.UserID == userID && d >= lo && d <= hi {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) TotalByDate(ctx context.Context, userID string, date core.Date) (decimal.Decimal, error) {
	records, err := s.ExpensesByDate(ctx, userID, date)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range records {
		total = total.Add(e.Amount.AmountVND)
	}
	return total, nil
}

func (s *Store) SaveProfile(_ context.Context, userID string, p core.ProfileInfo) error {
	if userID == "" {
		return core.ErrEmptyUser
	}
	if err := p.Validate(); err != nil {
		return err
	}
	name := *p.Name
	p.Name = &name
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = p
	return nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (core.ProfileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return core.EmptyProfile(), ledger.ErrNotFound
	}
	return p, nil
}

func (s *Store) SaveReview(_ context.Context, r core.Review) error {
	if r.UserID == "" {
		return core.ErrEmptyUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[r.UserID] = append(s.reviews[r.UserID], r)
	return nil
}

// LatestReview returns the most recently created review of the user.
func (s *Store) LatestReview(_ context.Context, userID string) (core.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reviews := s.reviews[userID]
	if len(reviews) == 0 {
		return core.Review{}, ledger.ErrNotFound
	}
	sorted := append([]core.Review(nil), reviews...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })
	return sorted[len(sorted)-1], nil
}

func (s *Store) Close() error { return nil }
