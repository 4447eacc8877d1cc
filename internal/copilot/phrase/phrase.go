// Package phrase holds the deterministic keyword sets shared by the wizard
// and pending-action controllers.  No LLM is involved in control decisions:
// confirmation and cancellation are always decided by these matchers.
package phrase

import (
	"strings"
	"unicode"
)

// affirmatives are replies that mean "yes, proceed".  Matching any one of
// them (as a whole word or phrase) is sufficient, so a compound reply like
// "yes please do" still confirms.
var affirmatives = []string{
	"yes", "y", "create", "confirm", "go", "do it",
	"approve", "ok", "sure", "yep", "yeah", "proceed",
}

// cancels are replies that abandon the active wizard or pending action from
// any state.
var cancels = []string{
	"cancel", "nevermind", "stop", "quit", "exit",
}

// IsAffirmative reports whether text contains an affirmative keyword.
func IsAffirmative(text string) bool {
	return containsAny(text, affirmatives)
}

// IsCancel reports whether text contains a cancel keyword.
func IsCancel(text string) bool {
	return containsAny(text, cancels)
}

// containsAny reports whether any keyword appears in text as a whole word or
// whole-word phrase, case-insensitively.  Matching on word boundaries keeps
// single-letter keywords like "y" from firing inside unrelated words.
func containsAny(text string, keywords []string) bool {
	normalized := " " + strings.Join(tokenize(text), " ") + " "
	for _, kw := range keywords {
		if strings.Contains(normalized, " "+kw+" ") {
			return true
		}
	}
	return false
}

// tokenize splits text into lowercase tokens of letters and digits.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
