package nlp

import (
	"strings"
	"unicode"

	"chitieu/internal/core"
)

const profileCommand = "/profile"

var expenseVerbs = []string{"chi", "tiêu", "mua", "trả"}

// DetectIntent classifies an utterance. Rules are checked in priority order
// and the first match wins.
func DetectIntent(text string) core.Intent {
	s := core.Normalize(text)
	switch {
	case strings.HasPrefix(s, profileCommand):
		return core.IntentProfile
	case strings.Contains(s, "báo cáo"):
		return core.IntentReport
	case strings.Contains(s, "nhắc"):
		return core.IntentReminder
	case containsDigit(s) || containsAny(s, expenseVerbs):
		return core.IntentExpenseEntry
	default:
		return core.IntentUnknown
	}
}

func containsDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
