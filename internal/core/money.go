// Package core provides the expense domain model and money parsing.
//
// ParseMoney turns a Vietnamese monetary fragment such as "200k", "1.5 triệu"
// or "20 usd" into a MonetaryAmount. It never fails: anything it cannot read
// is a zero amount.
package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// noiseWord is the spelled-out currency name, carrying no information.
const noiseWord = "đồng"

var numeralPattern = regexp.MustCompile(`^\d+(?:[.,]\d+)*$`)

// Normalize lower-cases, trims and NFC-normalises an utterance so that
// precomposed and decomposed Vietnamese diacritics compare equal.
func Normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFC.String(s)))
}

// ParseMoney parses a monetary fragment into a MonetaryAmount.
//
// The currency is the first CurrencyTable key found in the fragment (VND when
// none). For VND at most one magnitude word is applied, scanning
// UnitMultiplierTable in order.
//
// Examples:
//
//	ParseMoney("200k")      -> 200000 VND
//	ParseMoney("1.5 triệu") -> 1500000 VND
//	ParseMoney("20 usd")    -> 20 USD, 460000 VND
func ParseMoney(fragment string) MonetaryAmount {
	s := Normalize(fragment)
	if s == "" {
		return ZeroAmount()
	}

	rate := CurrencyRate{Key: "vnd", Code: VND, Rate: decimal.NewFromInt(1)}
	for _, cr := range CurrencyTable {
		if strings.Contains(s, cr.Key) {
			rate = cr
			s = strings.ReplaceAll(s, cr.Key, "")
			break
		}
	}

	s = strings.ReplaceAll(s, noiseWord, "")

	multiplier := decimal.NewFromInt(1)
	if rate.Code == VND {
		for _, unit := range UnitMultiplierTable {
			if strings.Contains(s, unit.Word) {
				multiplier = unit.Multiplier
				s = strings.Replace(s, unit.Word, "", 1)
				break
			}
		}
	}

	numeral, ok := ParseNumeral(s)
	if !ok {
		return MonetaryAmount{OriginalAmount: decimal.Zero, AmountVND: decimal.Zero, Currency: rate.Code}
	}

	original := numeral.Mul(multiplier)
	return MonetaryAmount{
		OriginalAmount: original,
		AmountVND:      original.Mul(rate.Rate),
		Currency:       rate.Code,
	}
}

// ParseNumeral reads a numeral that may carry grouping punctuation.
//
// The final separator is the decimal point when it is followed by other than
// three digits and no earlier separator uses the same character. Every other
// separator is grouping and is dropped. Whitespace inside the numeral is
// ignored.
//
//	ParseNumeral("100.000")    -> 100000
//	ParseNumeral("15,000,000") -> 15000000
//	ParseNumeral("1.5")        -> 1.5
//	ParseNumeral("1.234,5")    -> 1234.5
//	ParseNumeral("1.2.3")      -> 123
func ParseNumeral(s string) (decimal.Decimal, bool) {
	s = strings.Join(strings.Fields(s), "")
	if !numeralPattern.MatchString(s) {
		return decimal.Zero, false
	}

	last := strings.LastIndexAny(s, ".,")
	if last >= 0 && len(s)-last-1 != 3 && !strings.ContainsRune(s[:last], rune(s[last])) {
		intPart := stripSeparators(s[:last])
		s = intPart + "." + s[last+1:]
	} else {
		s = stripSeparators(s)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func stripSeparators(s string) string {
	return strings.NewReplacer(".", "", ",", "").Replace(s)
}

// ParseLooseAmount parses profile-style numbers such as "10,000,000 đồng".
// Spaces and commas are removed and the remainder must be a plain decimal;
// anything else yields zero.
func ParseLooseAmount(s string) decimal.Decimal {
	s = Normalize(s)
	s = strings.ReplaceAll(s, noiseWord, "")
	s = strings.NewReplacer(" ", "", ",", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}
