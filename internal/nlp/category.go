package nlp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudflare/ahocorasick"

	"chitieu/internal/cache"
	"chitieu/internal/core"
	"chitieu/internal/log"
)

// categoryMaxTokens bounds the model answer to a category name.
const categoryMaxTokens = 10

const categoryPromptTemplate = "Giao dịch chi tiêu: \"%s\".\n" +
	"Hãy xếp giao dịch này vào một trong các danh mục sau: %s. Chỉ trả về tên danh mục."

// CategoryPrompt is the instruction sent to the category model.
func CategoryPrompt(text string) string {
	return fmt.Sprintf(categoryPromptTemplate, text, strings.Join(core.Categories, ", "))
}

// keywordMatcher scans CategoryKeywordTable in one pass. When several keywords
// occur, the one earliest in the table wins, not the one earliest in the text.
type keywordMatcher struct {
	matcher  *ahocorasick.Matcher
	keywords []core.CategoryKeyword
}

var defaultKeywords = newKeywordMatcher(core.CategoryKeywordTable)

func newKeywordMatcher(table []core.CategoryKeyword) *keywordMatcher {
	dict := make([]string, len(table))
	for i, kw := range table {
		dict[i] = core.Normalize(kw.Keyword)
	}
	return &keywordMatcher{
		matcher:  ahocorasick.NewStringMatcher(dict),
		keywords: table,
	}
}

func (k *keywordMatcher) Match(text string) (string, bool) {
	hits := k.matcher.MatchThreadSafe([]byte(core.Normalize(text)))
	if len(hits) == 0 {
		return "", false
	}
	first := hits[0]
	for _, i := range hits[1:] {
		if i < first {
			first = i
		}
	}
	return k.keywords[first].Category, true
}

// KeywordCategory classifies text with the keyword table only, returning
// "Khác" when nothing matches.
func KeywordCategory(text string) string {
	if c, ok := defaultKeywords.Match(text); ok {
		return c
	}
	return core.CategoryOther
}

// CategoryClassifier assigns one of the fixed categories to an utterance.
type CategoryClassifier struct {
	model    TextGenerator
	timeout  time.Duration
	keywords *keywordMatcher
	cache    *cache.LRUCache[string]
	log      *log.StructuredLogger
}

func NewCategoryClassifier(opts ...Option) *CategoryClassifier {
	return newCategoryClassifier(buildOptions(opts))
}

func newCategoryClassifier(o options) *CategoryClassifier {
	c := &CategoryClassifier{
		model:    o.model,
		timeout:  o.timeout,
		keywords: defaultKeywords,
		log:      log.NewStructuredLogger(o.logger),
	}
	if o.model != nil && o.cacheSize > 0 {
		c.cache = cache.NewLRUCache[string](o.cacheSize, time.Hour)
	}
	return c
}

// Classify tries the model, then the keyword table, then "Khác".
func (c *CategoryClassifier) Classify(ctx context.Context, text string) string {
	if c.model != nil {
		if category, ok := c.fromModel(ctx, text); ok {
			return category
		}
	}
	if category, ok := c.keywords.Match(text); ok {
		return category
	}
	return core.CategoryOther
}

// Cache exposes the model answer cache for sweeping; nil when disabled.
func (c *CategoryClassifier) Cache() *cache.LRUCache[string] {
	return c.cache
}

func (c *CategoryClassifier) fromModel(ctx context.Context, text string) (string, bool) {
	key := core.Normalize(text)
	if c.cache != nil {
		if category, ok := c.cache.Get(key); ok {
			return category, true
		}
	}

	out, err := withTimeout(ctx, c.timeout, func(ctx context.Context) (string, error) {
		return c.model.Generate(ctx, CategoryPrompt(text), categoryMaxTokens)
	})
	if err != nil {
		c.log.LogModelFallback(ctx, log.OpClassify, err)
		return "", false
	}

	category, ok := MatchCategory(out)
	if !ok {
		return "", false
	}
	if c.cache != nil {
		c.cache.Set(key, category)
	}
	return category, true
}

// MatchCategory maps free model output onto a known category. The output may
// carry quotes, trailing punctuation or extra words around the name.
func MatchCategory(output string) (string, bool) {
	s := strings.Trim(core.Normalize(output), " \t\n\"'`.,:;!*")
	if s == "" {
		return "", false
	}
	if c, ok := core.CanonicalCategory(s); ok {
		return c, true
	}
	for _, c := range core.Categories {
		if strings.Contains(s, core.Normalize(c)) {
			return c, true
		}
	}
	return "", false
}
