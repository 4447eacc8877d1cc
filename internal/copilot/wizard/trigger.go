package wizard

import "strings"

// Trigger types understood by the backend.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerWebhook   = "webhook"
)

// triggerRule maps a keyword to the trigger type it signals.  Rules are
// evaluated in order; the first keyword contained in the input wins.
type triggerRule struct {
	keyword string
	trigger string
}

var triggerRules = []triggerRule{
	{"schedule", TriggerScheduled},
	{"cron", TriggerScheduled},
	{"timer", TriggerScheduled},
	{"webhook", TriggerWebhook},
	{"hook", TriggerWebhook},
	{"api", TriggerWebhook},
}

// ParseTrigger resolves free text to a trigger type.  Parsing is
// keyword-based and case-insensitive; unrecognised input falls back to
// manual rather than failing, since the trigger is user-correctable later.
func ParseTrigger(text string) string {
	lower := strings.ToLower(text)
	for _, r := range triggerRules {
		if strings.Contains(lower, r.keyword) {
			return r.trigger
		}
	}
	return TriggerManual
}
