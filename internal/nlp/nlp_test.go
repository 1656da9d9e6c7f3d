package nlp

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"chitieu/internal/core"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type stubRecognizer struct {
	entities []Entity
	err      error
	delay    time.Duration
}

func (s stubRecognizer) RecognizeEntities(ctx context.Context, _ string) ([]Entity, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.entities, s.err
}

type stubGenerator struct {
	answer string
	err    error
	calls  atomic.Int32
	prompt atomic.Value
}

func (s *stubGenerator) Generate(_ context.Context, prompt string, _ int) (string, error) {
	s.calls.Add(1)
	s.prompt.Store(prompt)
	return s.answer, s.err
}

type stubDateParser struct {
	t   time.Time
	ok  bool
	err error
}

func (s stubDateParser) ParseDate(context.Context, string, time.Time) (time.Time, bool, error) {
	return s.t, s.ok, s.err
}

var errModelDown = errors.New("model down")

func today() core.Date { return core.DateOf(fixedNow) }
