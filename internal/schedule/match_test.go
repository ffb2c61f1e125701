package schedule

import (
	"testing"
	"time"
)

func TestMatchesVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		field   string
		current string
		want    bool
	}{
		{name: "wildcard lower", field: "all", current: "14", want: true},
		{name: "wildcard mixed case", field: "AlL", current: "Monday", want: true},
		{name: "empty never matches", field: "", current: "14", want: false},
		{name: "blank never matches", field: "   ", current: "14", want: false},
		{name: "numeric equivalence unpadded", field: "7", current: "07", want: true},
		{name: "numeric equivalence padded", field: "07", current: "7", want: true},
		{name: "numeric mismatch", field: "8", current: "07", want: false},
		{name: "comma list hit", field: "07,08,09", current: "08", want: true},
		{name: "comma list miss", field: "07,08,09", current: "10", want: false},
		{name: "semicolon list", field: "Monday;Wednesday", current: "Wednesday", want: true},
		{name: "mixed separators", field: "Monday;Tuesday|Wednesday", current: "Tuesday", want: true},
		{name: "spaces around tokens", field: " 07 , 08 ", current: "8", want: true},
		{name: "substring fallback", field: "Monday Tuesday", current: "Tuesday", want: true},
		{name: "substring is one way", field: "Mon", current: "Monday", want: false},
		{name: "float collapse", field: "7.0", current: "07", want: true},
		{name: "padded value untouched", field: "07", current: "07", want: true},
		{name: "separators only miss", field: ";;|", current: "7", want: false},
		{name: "separators only whole-value fallback", field: ";;|", current: ";", want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.field, tt.current); got != tt.want {
				t.Fatalf("Matches(%q, %q) = %v, want %v", tt.field, tt.current, got, tt.want)
			}
		})
	}
}

func TestNormalizeField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"7.0", "7"},
		{"14.00", "14"},
		{"7.5", "7.5"},
		{"07", "07"},
		{"  text  ", "text"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeField(tt.in); got != tt.want {
			t.Fatalf("normalizeField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestShouldEnqueue(t *testing.T) {
	t.Parallel()
	// Monday 2026-08-31 07:05, fifth week of the month.
	now := NewSnapshot(time.Date(2026, time.August, 31, 7, 5, 0, 0, time.UTC), EnglishNames{})

	base := Entry{
		Name:         "report",
		Tool:         "python",
		Path:         "report.py",
		Year:         "all",
		MonthsOfYear: "all",
		WeeksOfMonth: "all",
		DaysOfWeek:   "all",
		Day:          "all",
		Hour:         "07",
		Minute:       "05",
	}

	if !ShouldEnqueue(base, now) {
		t.Fatal("expected base entry to be due")
	}

	unpadded := base
	unpadded.Hour, unpadded.Minute = "7", "5"
	if !ShouldEnqueue(unpadded, now) {
		t.Fatal("expected unpadded hour/minute to match")
	}

	wrongMinute := base
	wrongMinute.Minute = "06"
	if ShouldEnqueue(wrongMinute, now) {
		t.Fatal("expected minute mismatch to reject")
	}

	missing := base
	missing.DaysOfWeek = ""
	if ShouldEnqueue(missing, now) {
		t.Fatal("expected empty field to reject")
	}

	named := base
	named.DaysOfWeek = "Monday,Friday"
	named.MonthsOfYear = "August"
	named.WeeksOfMonth = "5"
	if !ShouldEnqueue(named, now) {
		t.Fatal("expected named day/month to match")
	}
}
