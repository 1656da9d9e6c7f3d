package nlp

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"chitieu/internal/core"
	"chitieu/internal/log"
)

// maxTypoDistance is how many extra letters a misspelt magnitude word may carry.
const maxTypoDistance = 2

var (
	amountPattern = buildAmountPattern()
	typoUnits     = buildTypoUnits()
)

// AmountExtractor finds the monetary amount in an utterance.
type AmountExtractor struct {
	recognizer AmountEntityRecognizer
	timeout    time.Duration
	log        *log.StructuredLogger
}

func NewAmountExtractor(opts ...Option) *AmountExtractor {
	o := buildOptions(opts)
	return newAmountExtractor(o)
}

func newAmountExtractor(o options) *AmountExtractor {
	return &AmountExtractor{
		recognizer: o.recognizer,
		timeout:    o.timeout,
		log:        log.NewStructuredLogger(o.logger),
	}
}

// Extract returns the amount of the utterance, or zero VND when none is found.
// A failing or slow recogniser is skipped in favour of the regex tier.
func (a *AmountExtractor) Extract(ctx context.Context, text string) core.MonetaryAmount {
	if a.recognizer != nil {
		if amount, ok := a.fromEntities(ctx, text); ok {
			return amount
		}
	}
	if fragment, ok := FindAmountFragment(text); ok {
		return core.ParseMoney(fragment)
	}
	return core.ZeroAmount()
}

func (a *AmountExtractor) fromEntities(ctx context.Context, text string) (core.MonetaryAmount, bool) {
	entities, err := withTimeout(ctx, a.timeout, func(ctx context.Context) ([]Entity, error) {
		return a.recognizer.RecognizeEntities(ctx, text)
	})
	if err != nil {
		a.log.LogModelFallback(ctx, log.OpExtract, err)
		return core.MonetaryAmount{}, false
	}

	var spans []string
	for _, e := range entities {
		if strings.Contains(strings.ToUpper(e.Label), "MONEY") {
			spans = append(spans, strings.TrimSpace(e.Text))
		}
	}
	if len(spans) == 0 {
		return core.MonetaryAmount{}, false
	}

	amount := core.ParseMoney(strings.Join(spans, " "))
	if amount.IsZero() {
		return core.MonetaryAmount{}, false
	}
	return amount, true
}

// FindAmountFragment returns the first monetary fragment of text, such as
// "200k" or "3 triệu", normalised for core.ParseMoney.
//
// A unit word glued to a longer word ("50 kem") is not a unit. A word that
// follows the numeral and is a near miss of a magnitude word ("3trieuej") is
// read as that magnitude.
func FindAmountFragment(text string) (string, bool) {
	s := core.Normalize(text)
	m := amountPattern.FindStringSubmatchIndex(s)
	if m == nil {
		return "", false
	}

	var prefix, unit string
	if m[2] >= 0 {
		prefix = s[m[2]:m[3]]
	}
	numeral := s[m[4]:m[5]]
	end := m[5]
	if m[6] >= 0 {
		unit = s[m[6]:m[7]]
		end = m[7]
		if startsWithLetter(unit) && letterAt(s, end) {
			unit, end = "", m[5]
		}
	}
	if unit == "" {
		if resolved, ok := resolveTypoUnit(wordAfter(s, end)); ok {
			unit = resolved
		}
	}

	return strings.TrimSpace(prefix + numeral + " " + unit), true
}

// resolveTypoUnit fuzzy-matches word against the spelled-out magnitude words.
// Both sides are compared without diacritics, so "triêu" is as close to
// "triệu" as to "trieu". The closest match wins; ties keep table order.
func resolveTypoUnit(word string) (string, bool) {
	if word == "" {
		return "", false
	}
	folded := stripMarks(word)
	best, bestDistance := "", maxTypoDistance+1
	for _, unit := range typoUnits {
		d := fuzzy.RankMatchFold(stripMarks(unit), folded)
		if d < 0 || d >= bestDistance {
			continue
		}
		if !sameInitial(unit, word) {
			continue
		}
		best, bestDistance = unit, d
	}
	return best, best != ""
}

// stripMarks removes combining diacritics.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func buildAmountPattern() *regexp.Regexp {
	var words []string
	for _, u := range core.UnitMultiplierTable {
		words = append(words, u.Word)
	}
	words = append(words, "đồng")
	var symbols []string
	for _, c := range core.CurrencyTable {
		if startsWithLetter(c.Key) {
			words = append(words, c.Key)
		} else {
			symbols = append(symbols, c.Key)
		}
	}
	// Longest first so that "triệu" is preferred over "tr".
	sort.SliceStable(words, func(i, j int) bool {
		return utf8.RuneCountInString(words[i]) > utf8.RuneCountInString(words[j])
	})
	units := append(words, symbols...)

	return regexp.MustCompile(
		`(?:(` + alternation(symbols) + `)\s*)?` +
			`(\d+(?:[.,]\d+)*)` +
			`(?:\s*(` + alternation(units) + `))?`)
}

func buildTypoUnits() []string {
	var out []string
	for _, u := range core.UnitMultiplierTable {
		if utf8.RuneCountInString(u.Word) >= 3 {
			out = append(out, u.Word)
		}
	}
	return out
}

func alternation(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}

func startsWithLetter(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLetter(r)
}

func letterAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsLetter(r)
}

// wordAfter returns the run of letters starting at i, after optional spaces.
func wordAfter(s string, i int) string {
	rest := strings.TrimLeft(s[i:], " \t")
	end := strings.IndexFunc(rest, func(r rune) bool { return !unicode.IsLetter(r) })
	if end < 0 {
		return rest
	}
	return rest[:end]
}

func sameInitial(a, b string) bool {
	ra, _ := utf8.DecodeRuneInString(a)
	rb, _ := utf8.DecodeRuneInString(b)
	return unicode.ToLower(ra) == unicode.ToLower(rb)
}
