package scheduler

import (
	"testing"
	"time"

	"orchd/internal/schedule"
)

func snapAt(t time.Time) schedule.Snapshot {
	return schedule.NewSnapshot(t, schedule.EnglishNames{})
}

func TestGuardSuppressesWithinMinute(t *testing.T) {
	t.Parallel()
	g := NewGuard()
	now := snapAt(time.Date(2026, time.August, 31, 7, 5, 0, 0, time.UTC))

	if !g.Allow("report|python|report.py", now) {
		t.Fatal("first enqueue should be allowed")
	}
	if g.Allow("report|python|report.py", now) {
		t.Fatal("second enqueue in same minute should be suppressed")
	}
	if !g.Allow("other|python|other.py", now) {
		t.Fatal("different job in same minute should be allowed")
	}
}

func TestGuardResetsOnMinuteChange(t *testing.T) {
	t.Parallel()
	g := NewGuard()
	first := snapAt(time.Date(2026, time.August, 31, 7, 5, 0, 0, time.UTC))
	next := snapAt(time.Date(2026, time.August, 31, 7, 6, 0, 0, time.UTC))

	if !g.Allow("report|python|report.py", first) {
		t.Fatal("first minute should allow")
	}
	if !g.Allow("report|python|report.py", next) {
		t.Fatal("next minute should allow again")
	}
	if g.Allow("report|python|report.py", next) {
		t.Fatal("repeat within next minute should be suppressed")
	}
}

func TestGuardDistinguishesDays(t *testing.T) {
	t.Parallel()
	g := NewGuard()
	today := snapAt(time.Date(2026, time.August, 30, 7, 5, 0, 0, time.UTC))
	tomorrow := snapAt(time.Date(2026, time.August, 31, 7, 5, 0, 0, time.UTC))

	if !g.Allow("report|python|report.py", today) {
		t.Fatal("today should allow")
	}
	if !g.Allow("report|python|report.py", tomorrow) {
		t.Fatal("same wall minute on another day should allow")
	}
}
