package wizard

import "testing"

func TestParseTrigger(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"schedule keyword", "run it on a schedule", TriggerScheduled},
		{"cron keyword", "use a cron job", TriggerScheduled},
		{"timer keyword", "put it on a timer", TriggerScheduled},
		{"webhook keyword", "trigger via webhook", TriggerWebhook},
		{"hook keyword", "give me a hook", TriggerWebhook},
		{"api keyword", "call it from the API", TriggerWebhook},
		{"explicit manual", "manual", TriggerManual},
		{"unrecognized defaults to manual", "whenever I feel like it", TriggerManual},
		{"empty defaults to manual", "", TriggerManual},
		{"case insensitive", "SCHEDULED please", TriggerScheduled},
		{"schedule wins over later webhook keyword", "schedule a webhook", TriggerScheduled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTrigger(tt.input); got != tt.want {
				t.Errorf("ParseTrigger(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolveSchedule(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		// Every phrase rule, in table order.
		{"every hour", "every hour", "0 * * * *"},
		{"daily", "daily at some point", "0 9 * * *"},
		{"every morning", "every morning", "0 9 * * *"},
		{"every 6 hours", "every 6 hours", "0 */6 * * *"},
		{"every 12 hours", "every 12 hours", "0 */12 * * *"},
		{"twice a day", "twice a day", "0 */12 * * *"},
		{"every 30 minutes", "every 30 minutes", "*/30 * * * *"},
		{"every 15 minutes", "every 15 minutes", "*/15 * * * *"},
		{"monday", "every monday morning", "0 9 * * 1"},
		{"weekly", "weekly", "0 9 * * 1"},
		{"monthly", "monthly", "0 9 1 * *"},

		// Valid cron passes through verbatim.
		{"cron verbatim", "5 4 * * 2", "5 4 * * 2"},
		{"cron with steps", "*/10 0-12 * * 1-5", "*/10 0-12 * * 1-5"},
		{"cron trimmed", "  0 22 * * *  ", "0 22 * * *"},

		// Unrecognized text falls back to the trimmed input.
		{"fallback verbatim", "sometime soon", "sometime soon"},
		{"fallback trims whitespace", "  sometime soon  ", "sometime soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveSchedule(tt.input); got != tt.want {
				t.Errorf("ResolveSchedule(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateCronExpression(t *testing.T) {
	valid := []string{
		"* * * * *",
		"0 9 * * 1",
		"*/15 * * * *",
		"0 */6 * * *",
		"5 4 1,15 * *",
		"0 9-17 * * 1-5",
		"0 0 * * 7", // Sunday alias
	}
	for _, expr := range valid {
		if err := ValidateCronExpression(expr); err != nil {
			t.Errorf("ValidateCronExpression(%q) = %v, want nil", expr, err)
		}
	}

	invalid := []string{
		"",
		"* * * *",       // 4 fields
		"* * * * * *",   // 6 fields
		"60 * * * *",    // minute out of range
		"* 24 * * *",    // hour out of range
		"* * 0 * *",     // day-of-month below range
		"* * * 13 *",    // month out of range
		"* * * * 8",     // day-of-week out of range
		"*/0 * * * *",   // zero step
		"a b c d e",     // garbage
		"5-2 * * * *",   // inverted range
		"every morning", // phrase, not cron
	}
	for _, expr := range invalid {
		if err := ValidateCronExpression(expr); err == nil {
			t.Errorf("ValidateCronExpression(%q) = nil, want error", expr)
		}
	}
}
