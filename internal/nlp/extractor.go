package nlp

import (
	"context"

	"golang.org/x/sync/errgroup"

	"chitieu/internal/core"
	"chitieu/internal/log"
)

// Extractor turns an utterance into an ExtractionResult.
type Extractor struct {
	amounts    *AmountExtractor
	categories *CategoryClassifier
	dates      *DateResolver
	log        *log.Logger
}

// NewExtractor builds the pipeline. Without options it runs on rules only.
func NewExtractor(opts ...Option) *Extractor {
	o := buildOptions(opts)
	return &Extractor{
		amounts:    newAmountExtractor(o),
		categories: newCategoryClassifier(o),
		dates:      newDateResolver(o),
		log:        o.logger,
	}
}

// Categories returns the classifier so callers can reach its cache.
func (e *Extractor) Categories() *CategoryClassifier {
	return e.categories
}

// Extract classifies the intent and, for expense entries, fills amount,
// category and date. The three lookups are independent and run concurrently.
func (e *Extractor) Extract(ctx context.Context, text string) core.ExtractionResult {
	result := core.ExtractionResult{
		Intent:       DetectIntent(text),
		OriginalText: text,
	}
	if result.Intent != core.IntentExpenseEntry {
		return result
	}

	var (
		amount   core.MonetaryAmount
		category string
		date     core.Date
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		amount = e.amounts.Extract(gctx, text)
		return nil
	})
	g.Go(func() error {
		category = e.categories.Classify(gctx, text)
		return nil
	})
	g.Go(func() error {
		date = e.dates.Resolve(gctx, text)
		return nil
	})
	_ = g.Wait() // components never fail

	missing := []string{}
	if amount.IsZero() {
		missing = append(missing, core.FieldAmount)
	}
	result.ExpenseDetails = &core.ExpenseDetails{
		Amount:        amount,
		Category:      category,
		Date:          date,
		Complete:      len(missing) == 0,
		MissingFields: missing,
	}

	e.log.DebugContext(ctx, "Expense extracted",
		log.FieldIntent, result.Intent,
		log.FieldAmountVND, amount.AmountVND.String(),
		log.FieldCurrency, amount.Currency,
		log.FieldCategory, category,
		log.FieldDate, date.String(),
	)
	return result
}
