package examtime

import "testing"

func TestFormatTimeRemaining(t *testing.T) {
	tests := []struct {
		name string
		ms   int64
		want string
	}{
		{"minute and seconds", 65_000, "1 minute and 5 seconds"},
		{"day and hour", 90_061_000, "1 day and 1 hour"},
		{"single unit seconds", 5_000, "5 seconds"},
		{"single second", 1_000, "1 second"},
		{"single minute", 60_000, "1 minute"},
		{"hours and minutes", 2*3_600_000 + 30*60_000, "2 hours and 30 minutes"},
		{"skips zero middle unit", 24*3_600_000 + 42_000, "1 day and 42 seconds"},
		{"days and hours plural", 3*24*3_600_000 + 5*3_600_000, "3 days and 5 hours"},
		{"zero", 0, "0 seconds"},
		{"negative clamps to zero", -5_000, "0 seconds"},
		{"sub-second floors to zero", 900, "0 seconds"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatTimeRemaining(tc.ms); got != tc.want {
				t.Errorf("FormatTimeRemaining(%d) = %q, want %q", tc.ms, got, tc.want)
			}
		})
	}
}

func TestFormatTimeRemainingShort(t *testing.T) {
	tests := []struct {
		name string
		ms   int64
		want string
	}{
		{"hours shown unpadded", 3_665_000, "1:01:05"},
		{"minutes only", 90_000, "1:30"},
		{"seconds padded", 65_000, "1:05"},
		{"under a minute", 42_000, "0:42"},
		{"zero", 0, "0:00"},
		{"negative clamps", -1_000, "0:00"},
		{"many hours never rolls to days", 26*3_600_000 + 5_000, "26:00:05"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatTimeRemainingShort(tc.ms); got != tc.want {
				t.Errorf("FormatTimeRemainingShort(%d) = %q, want %q", tc.ms, got, tc.want)
			}
		})
	}
}
