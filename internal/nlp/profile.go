package nlp

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"chitieu/internal/core"
)

type profileField int

const (
	fieldName profileField = iota
	fieldIncome
	fieldBudget
	fieldSavingsGoal
	fieldSpendingTargets
)

// profileLabel is one "Label:" token of the /profile grammar.
type profileLabel struct {
	field    profileField
	pattern  *regexp.Regexp
	optional bool
}

// profileLabels lists the labels in the only accepted order. Every label after
// the first is introduced by a comma.
var profileLabels = []profileLabel{
	{field: fieldName, pattern: labelPattern(false, "Tên")},
	{field: fieldIncome, pattern: labelPattern(true, "Thu", "nhập")},
	{field: fieldBudget, pattern: labelPattern(true, "Ngân", "sách")},
	{field: fieldSavingsGoal, pattern: labelPattern(true, "Mục", "tiêu", "tiết", "kiệm")},
	{field: fieldSpendingTargets, pattern: labelPattern(true, "Mục", "tiêu", "sử", "dụng"), optional: true},
}

func labelPattern(afterComma bool, words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	expr := `(?i)` + strings.Join(quoted, `\s+`) + `\s*:\s*`
	if afterComma {
		expr = `(?i),\s*` + expr[len(`(?i)`):]
	}
	return regexp.MustCompile(expr)
}

// ParseProfile reads a command of the form
//
//	/profile Tên: An, Thu nhập: 20000000, Ngân sách: 8000000, Mục tiêu tiết kiệm: 5000000, Mục tiêu sử dụng: du lịch
//
// The last label is optional. When the labels are missing or out of order
// the result has a nil Name. Unparsable numbers are zero without affecting
// the other fields.
func ParseProfile(text string) core.ProfileInfo {
	body := stripProfileCommand(norm.NFC.String(text))
	values, ok := tokenizeProfile(body)
	if !ok {
		return core.EmptyProfile()
	}

	name := values[fieldName]
	return core.ProfileInfo{
		Name:            &name,
		Income:          core.ParseLooseAmount(values[fieldIncome]),
		Budget:          core.ParseLooseAmount(values[fieldBudget]),
		SavingsGoal:     core.ParseLooseAmount(values[fieldSavingsGoal]),
		SpendingTargets: values[fieldSpendingTargets],
	}
}

func stripProfileCommand(text string) string {
	s := strings.TrimSpace(text)
	if len(s) >= len(profileCommand) && strings.EqualFold(s[:len(profileCommand)], profileCommand) {
		s = s[len(profileCommand):]
	}
	return strings.TrimSpace(s)
}

// tokenizeProfile splits body on the labels in order and returns the value
// following each one. Only the name must be non-empty.
func tokenizeProfile(body string) (map[profileField]string, bool) {
	first := profileLabels[0].pattern.FindStringIndex(body)
	if first == nil {
		return nil, false
	}
	cursor := first[1]
	current := profileLabels[0].field
	values := make(map[profileField]string, len(profileLabels))

	for _, label := range profileLabels[1:] {
		loc := label.pattern.FindStringIndex(body[cursor:])
		if loc == nil {
			if label.optional {
				break
			}
			return nil, false
		}
		value := strings.TrimSpace(body[cursor : cursor+loc[0]])
		if value == "" && current == fieldName {
			return nil, false
		}
		values[current] = value
		cursor += loc[1]
		current = label.field
	}

	values[current] = strings.TrimSpace(body[cursor:])
	return values, true
}
