package schedule

import (
	"testing"
	"time"
)

func TestNewSnapshot(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		at   time.Time
		want Snapshot
	}{
		{
			name: "padded fields",
			at:   time.Date(2026, time.August, 3, 7, 5, 0, 0, time.UTC),
			want: Snapshot{
				Year: "2026", MonthName: "August", WeekOfMonth: "1",
				WeekdayName: "Monday", Day: "03", Hour: "07", Minute: "05",
			},
		},
		{
			name: "fifth week",
			at:   time.Date(2026, time.August, 31, 23, 59, 0, 0, time.UTC),
			want: Snapshot{
				Year: "2026", MonthName: "August", WeekOfMonth: "5",
				WeekdayName: "Monday", Day: "31", Hour: "23", Minute: "59",
			},
		},
		{
			name: "first of month",
			at:   time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
			want: Snapshot{
				Year: "2026", MonthName: "February", WeekOfMonth: "1",
				WeekdayName: "Sunday", Day: "01", Hour: "00", Minute: "00",
			},
		},
		{
			name: "week boundary day eight",
			at:   time.Date(2026, time.February, 8, 12, 30, 0, 0, time.UTC),
			want: Snapshot{
				Year: "2026", MonthName: "February", WeekOfMonth: "2",
				WeekdayName: "Sunday", Day: "08", Hour: "12", Minute: "30",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := NewSnapshot(tt.at, EnglishNames{}); got != tt.want {
				t.Fatalf("NewSnapshot = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSnapshotMinuteKey(t *testing.T) {
	t.Parallel()
	a := NewSnapshot(time.Date(2026, time.August, 31, 7, 5, 10, 0, time.UTC), EnglishNames{})
	b := NewSnapshot(time.Date(2026, time.August, 31, 7, 5, 55, 0, time.UTC), EnglishNames{})
	c := NewSnapshot(time.Date(2026, time.August, 31, 7, 6, 0, 0, time.UTC), EnglishNames{})

	if a.MinuteKey() != b.MinuteKey() {
		t.Fatal("same minute should share a key")
	}
	if a.MinuteKey() == c.MinuteKey() {
		t.Fatal("different minutes should not share a key")
	}
}

func TestTableNames(t *testing.T) {
	t.Parallel()
	names := TableNames{}
	names.Months[time.August-1] = "Agosto"
	names.Weekdays[time.Monday] = "Segunda-feira"

	if got := names.Month(time.August); got != "Agosto" {
		t.Fatalf("Month = %q", got)
	}
	if got := names.Month(time.July); got != "July" {
		t.Fatalf("fallback Month = %q", got)
	}
	if got := names.Weekday(time.Monday); got != "Segunda-feira" {
		t.Fatalf("Weekday = %q", got)
	}
	if got := names.Weekday(time.Friday); got != "Friday" {
		t.Fatalf("fallback Weekday = %q", got)
	}
}
