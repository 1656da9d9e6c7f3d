package nlp

import (
	"context"
	"regexp"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"

	"chitieu/internal/core"
	"chitieu/internal/log"
)

// DateResolver picks the calendar date an expense refers to.
type DateResolver struct {
	parser  DateParser
	timeout time.Duration
	now     func() time.Time
	log     *log.StructuredLogger
}

func NewDateResolver(opts ...Option) *DateResolver {
	return newDateResolver(buildOptions(opts))
}

func newDateResolver(o options) *DateResolver {
	return &DateResolver{
		parser:  o.dates,
		timeout: o.timeout,
		now:     o.now,
		log:     log.NewStructuredLogger(o.logger),
	}
}

type parsedDate struct {
	t  time.Time
	ok bool
}

// Resolve returns the date mentioned in text, or today. It never fails.
func (r *DateResolver) Resolve(ctx context.Context, text string) core.Date {
	now := r.now()
	if r.parser == nil {
		return core.DateOf(now)
	}
	res, err := withTimeout(ctx, r.timeout, func(ctx context.Context) (parsedDate, error) {
		t, ok, err := r.parser.ParseDate(ctx, text, now)
		return parsedDate{t: t, ok: ok}, err
	})
	if err != nil {
		r.log.LogModelFallback(ctx, log.OpParse, err)
		return core.DateOf(now)
	}
	if !res.ok || res.t.IsZero() {
		return core.DateOf(now)
	}
	return core.DateOf(res.t)
}

// LocaleDateParser resolves Vietnamese date expressions with go-dateparser.
//
// A whole expense utterance is rarely a date on its own, so the parser first
// tries the date-like spans of the text ("12/3", "hôm qua") and only then the
// utterance with its amounts and other numerals removed. Decimal amounts such
// as "1.5 triệu" are never read as dates.
type LocaleDateParser struct {
	parser    *dps.Parser
	languages []string
}

var (
	numericDatePattern = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?\b`)
	spelledDatePattern = regexp.MustCompile(`ngày\s+\d{1,2}\s+tháng\s+\d{1,2}(?:\s+năm\s+\d{4})?`)
	digitRunPattern    = regexp.MustCompile(`[\d.,/:-]*\d[\d.,/:-]*`)
	relativeDayPhrases = []string{
		"hôm nay",
		"hôm qua",
		"hôm kia",
		"ngày mai",
		"tuần trước",
		"tuần này",
		"tháng trước",
	}
)

// NewLocaleDateParser returns a parser restricted to the given languages,
// "vi" when none are given. Bare numbers are not dates: the timestamp parsers
// of go-dateparser are disabled.
func NewLocaleDateParser(languages ...string) *LocaleDateParser {
	if len(languages) == 0 {
		languages = []string{"vi"}
	}
	return &LocaleDateParser{
		parser: &dps.Parser{
			ParserTypes: []dps.ParserType{dps.RelativeTime, dps.CustomFormat, dps.AbsoluteTime},
		},
		languages: languages,
	}
}

func (p *LocaleDateParser) ParseDate(ctx context.Context, text string, now time.Time) (time.Time, bool, error) {
	cfg := &dps.Configuration{
		CurrentTime:     now,
		Languages:       p.languages,
		DateOrder:       dps.DMY,
		DefaultTimezone: now.Location(),
	}
	for _, candidate := range dateCandidates(text) {
		if err := ctx.Err(); err != nil {
			return time.Time{}, false, err
		}
		dt, err := p.parser.Parse(cfg, candidate)
		if err != nil || dt.Time.IsZero() {
			continue
		}
		return dt.Time, true, nil
	}
	return time.Time{}, false, nil
}

// dateCandidates lists the spans of text worth handing to the date parser,
// most specific first.
func dateCandidates(text string) []string {
	s := core.Normalize(text)
	candidates := numericDatePattern.FindAllString(s, -1)
	candidates = append(candidates, spelledDatePattern.FindAllString(s, -1)...)
	for _, phrase := range relativeDayPhrases {
		if strings.Contains(s, phrase) {
			candidates = append(candidates, phrase)
		}
	}
	if rest := wordsOnly(s); rest != "" {
		candidates = append(candidates, rest)
	}
	return candidates
}

// wordsOnly drops the amounts and any remaining numerals from s.
func wordsOnly(s string) string {
	s = amountPattern.ReplaceAllString(s, " ")
	s = digitRunPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}
