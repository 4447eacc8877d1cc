package wizard

import "strings"

// scheduleRule maps a natural-language phrase to a cron expression.  Rules
// are evaluated in order; the first phrase contained in the input wins, so
// every rule and its fallback can be enumerated by tests.
type scheduleRule struct {
	phrase string
	cron   string
}

var scheduleRules = []scheduleRule{
	{"every hour", "0 * * * *"},
	{"daily", "0 9 * * *"},
	{"every morning", "0 9 * * *"},
	{"every 6 hour", "0 */6 * * *"},
	{"every 12 hour", "0 */12 * * *"},
	{"twice", "0 */12 * * *"},
	{"every 30 min", "*/30 * * * *"},
	{"every 15 min", "*/15 * * * *"},
	{"monday", "0 9 * * 1"},
	{"weekly", "0 9 * * 1"},
	{"monthly", "0 9 1 * *"},
}

// ResolveSchedule turns free text into a cron expression:
//
//  1. Text that is already a valid 5-field cron expression is used verbatim.
//  2. Otherwise the phrase table above is consulted.
//  3. Otherwise the raw trimmed text is kept as-is — operator-supplied custom
//     cron is accepted unvalidated and can be corrected later in the editor.
func ResolveSchedule(text string) string {
	trimmed := strings.TrimSpace(text)
	if ValidateCronExpression(trimmed) == nil {
		return trimmed
	}

	lower := strings.ToLower(trimmed)
	for _, r := range scheduleRules {
		if strings.Contains(lower, r.phrase) {
			return r.cron
		}
	}
	return trimmed
}
