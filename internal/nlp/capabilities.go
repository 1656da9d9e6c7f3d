// Package nlp extracts structured expense information from Vietnamese
// utterances.
//
// Every learned-model collaborator is optional. With none configured the
// pipeline runs entirely on rules: the amount regex, the keyword table and
// "today" as the date.
package nlp

import (
	"context"
	"time"

	"chitieu/internal/log"
)

// DefaultModelTimeout bounds every learned-model call.
const DefaultModelTimeout = 3 * time.Second

// Entity is one span emitted by a named-entity recogniser.
type Entity struct {
	Label string `json:"entity_group"`
	Text  string `json:"word"`
}

// AmountEntityRecognizer tags monetary spans in an utterance.
type AmountEntityRecognizer interface {
	RecognizeEntities(ctx context.Context, text string) ([]Entity, error)
}

// TextGenerator completes a prompt with at most maxTokens new tokens. It backs
// both the category model and the commentary model.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// DateParser resolves a natural-language date expression relative to now.
type DateParser interface {
	ParseDate(ctx context.Context, text string, now time.Time) (time.Time, bool, error)
}

type options struct {
	recognizer AmountEntityRecognizer
	model      TextGenerator
	dates      DateParser
	timeout    time.Duration
	now        func() time.Time
	logger     *log.Logger
	cacheSize  int
}

// Option configures an Extractor and its components.
type Option func(*options)

func WithEntityRecognizer(r AmountEntityRecognizer) Option {
	return func(o *options) { o.recognizer = r }
}

func WithCategoryModel(g TextGenerator) Option {
	return func(o *options) { o.model = g }
}

func WithDateParser(p DateParser) Option {
	return func(o *options) { o.dates = p }
}

// WithModelTimeout overrides DefaultModelTimeout. Non-positive values are ignored.
func WithModelTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCategoryCache memoises model classifications per utterance.
func WithCategoryCache(size int) Option {
	return func(o *options) { o.cacheSize = size }
}

func buildOptions(opts []Option) options {
	o := options{
		timeout: DefaultModelTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = log.OrDiscard(o.logger).WithComponent(log.ComponentNLP)
	return o
}

// withTimeout runs call under the model timeout.
func withTimeout[T any](ctx context.Context, d time.Duration, call func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return call(ctx)
}
