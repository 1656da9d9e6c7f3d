package nlp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chitieu/internal/core"
)

func TestDateResolver(t *testing.T) {
	ctx := context.Background()
	yesterday := fixedNow.AddDate(0, 0, -1)

	cases := []struct {
		name   string
		parser DateParser
		want   core.Date
	}{
		{"no parser means today", nil, today()},
		{"parsed date", stubDateParser{t: yesterday, ok: true}, core.DateOf(yesterday)},
		{"unresolved means today", stubDateParser{ok: false}, today()},
		{"parser error means today", stubDateParser{err: errModelDown}, today()},
		{"zero time means today", stubDateParser{ok: true}, today()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := []Option{WithClock(fixedClock)}
			if tc.parser != nil {
				opts = append(opts, WithDateParser(tc.parser))
			}
			got := NewDateResolver(opts...).Resolve(ctx, "ăn sáng 30k hôm qua")
			assert.Equal(t, tc.want.String(), got.String())
		})
	}
}

func TestDateCandidates(t *testing.T) {
	cases := []struct {
		text string
		want []string
	}{
		{"Ăn tối 12/3 hôm qua 200k", []string{"12/3", "hôm qua", "ăn tối hôm qua"}},
		{"mua áo 1.5 triệu", []string{"mua áo"}},
		{"đổ xăng 100.000 đồng ngày 2 tháng 3", []string{"ngày 2 tháng 3", "đổ xăng ngày tháng"}},
		{"200k", nil},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, dateCandidates(tc.text))
		})
	}
}

func TestLocaleDateParserResolvesUtterances(t *testing.T) {
	ctx := context.Background()
	resolver := NewDateResolver(WithClock(fixedClock), WithDateParser(NewLocaleDateParser("vi")))

	cases := []struct {
		text string
		want core.Date
	}{
		{"hôm qua ăn phở 50k", core.DateOf(fixedNow.AddDate(0, 0, -1))},
		{"ăn tối 12/3 200k", core.NewDate(2025, 3, 12)},
		{"mua áo 1.5 triệu", today()},
		{"đổ xăng 100.000 đồng", today()},
		{"đi chơi 100k", today()},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got := resolver.Resolve(ctx, tc.text)
			assert.Equal(t, tc.want.String(), got.String())
		})
	}
}

func TestLocaleDateParserHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := NewLocaleDateParser().ParseDate(ctx, "hôm qua", time.Now())
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}
