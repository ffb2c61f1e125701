package schedule

import (
	"fmt"
	"time"
)

// Snapshot is a minute-resolution view of a wall-clock instant, every
// dimension pre-rendered as the string the matcher compares against.
type Snapshot struct {
	Year        string // "2026"
	MonthName   string // "August"
	WeekOfMonth string // "1".."5", (day-1)/7 + 1
	WeekdayName string // "Monday"
	Day         string // "31", zero-padded
	Hour        string // "14", zero-padded
	Minute      string // "05", zero-padded
}

// NewSnapshot renders t through the given name provider.
func NewSnapshot(t time.Time, names Names) Snapshot {
	return Snapshot{
		Year:        fmt.Sprintf("%04d", t.Year()),
		MonthName:   names.Month(t.Month()),
		WeekOfMonth: fmt.Sprintf("%d", (t.Day()-1)/7+1),
		WeekdayName: names.Weekday(t.Weekday()),
		Day:         fmt.Sprintf("%02d", t.Day()),
		Hour:        fmt.Sprintf("%02d", t.Hour()),
		Minute:      fmt.Sprintf("%02d", t.Minute()),
	}
}

// MinuteKey identifies the snapshot's minute for duplicate suppression.
// Two snapshots within the same calendar minute produce the same key.
func (s Snapshot) MinuteKey() string {
	return s.Year + s.MonthName + s.Day + s.Hour + s.Minute
}
