package wizard

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidateCronExpression reports whether expr is a syntactically valid
// standard 5-field cron expression:
//
//	<minute> <hour> <day-of-month> <month> <day-of-week>
//
// Each field may be a wildcard (*), an integer, a range (1-5), a step
// (*/15, 1-5/2), or a comma-separated list of those.  Value bounds are
// enforced per field (minute 0–59, hour 0–23, dom 1–31, month 1–12,
// dow 0–7 with 7 as a Sunday alias).  Calendar semantics are not checked.
func ValidateCronExpression(expr string) error {
	fields := strings.Fields(strings.TrimSpace(expr))
	if len(fields) != 5 {
		return fmt.Errorf("cron expression must have exactly 5 fields, got %d in %q", len(fields), expr)
	}

	specs := [5]struct {
		name string
		min  int
		max  int
	}{
		{"minute", 0, 59},
		{"hour", 0, 23},
		{"day-of-month", 1, 31},
		{"month", 1, 12},
		{"day-of-week", 0, 7},
	}

	for i, f := range specs {
		for _, item := range strings.Split(fields[i], ",") {
			if err := validateCronItem(item, f.min, f.max, f.name); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateCronItem checks one non-comma token: "*", "*/n", "n", "n-m", or
// "n-m/s".
func validateCronItem(item string, min, max int, name string) error {
	parts := strings.SplitN(item, "/", 2)
	base := parts[0]

	if len(parts) == 2 {
		step, err := strconv.Atoi(parts[1])
		if err != nil || step < 1 {
			return fmt.Errorf("cron field %q: invalid step %q in item %q", name, parts[1], item)
		}
	}

	if base == "*" {
		return nil
	}

	if idx := strings.Index(base, "-"); idx != -1 {
		lo, err1 := strconv.Atoi(base[:idx])
		hi, err2 := strconv.Atoi(base[idx+1:])
		if err1 != nil || err2 != nil {
			return fmt.Errorf("cron field %q: invalid range %q", name, base)
		}
		if lo < min || hi > max || lo > hi {
			return fmt.Errorf("cron field %q: range %d-%d is out of bounds [%d,%d] or inverted", name, lo, hi, min, max)
		}
		return nil
	}

	n, err := strconv.Atoi(base)
	if err != nil {
		return fmt.Errorf("cron field %q: unrecognised token %q", name, base)
	}
	if name == "day-of-week" && n == 7 {
		return nil
	}
	if n < min || n > max {
		return fmt.Errorf("cron field %q: value %d is out of bounds [%d,%d]", name, n, min, max)
	}
	return nil
}
