package examtime

import (
	"fmt"
	"strings"
)

type unit struct {
	name string
	ms   int64
}

var units = []unit{
	{"day", 24 * 60 * 60 * 1000},
	{"hour", 60 * 60 * 1000},
	{"minute", 60 * 1000},
	{"second", 1000},
}

// FormatTimeRemaining renders a millisecond duration as the two largest
// non-zero units, e.g. "1 minute and 5 seconds" or "1 day and 1 hour".
// A single unit is rendered alone; zero and negative durations render as
// "0 seconds".
func FormatTimeRemaining(ms int64) string {
	if ms < 0 {
		ms = 0
	}

	var parts []string
	rem := ms
	for _, u := range units {
		v := rem / u.ms
		rem %= u.ms
		if v == 0 {
			continue
		}
		parts = append(parts, pluralize(v, u.name))
		if len(parts) == 2 {
			break
		}
	}

	if len(parts) == 0 {
		return "0 seconds"
	}
	return strings.Join(parts, " and ")
}

// FormatTimeRemainingShort renders a millisecond duration as a clock string:
// "H:MM:SS" when at least an hour remains, "M:SS" otherwise. The leading
// field is not zero-padded.
func FormatTimeRemainingShort(ms int64) string {
	if ms < 0 {
		ms = 0
	}

	total := ms / 1000
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

func pluralize(v int64, name string) string {
	if v == 1 {
		return fmt.Sprintf("1 %s", name)
	}
	return fmt.Sprintf("%d %ss", v, name)
}
