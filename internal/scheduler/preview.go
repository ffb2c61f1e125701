package scheduler

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"orchd/internal/schedule"
)

// PlannedRun is one projected execution in a day preview.
type PlannedRun struct {
	At   time.Time
	Name string
	Tool string
	Path string
}

// PreviewToday walks every minute of today's operating window through the
// matcher and returns the runs that would be enqueued, sorted by time then
// case-insensitive name. Duplicate suppression is not simulated; the
// preview shows what the matcher considers due, once per due minute.
func (s *Service) PreviewToday(ctx context.Context) ([]PlannedRun, error) {
	if s.src == nil {
		return nil, errors.New("scheduler: no entry source configured")
	}
	s.mu.Lock()
	cfg := s.cfg
	loc := s.loc
	s.mu.Unlock()
	if loc == nil {
		var err error
		if loc, err = loadLocation(cfg.Timezone); err != nil {
			return nil, err
		}
	}

	entries, err := s.src.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().In(loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	var runs []PlannedRun
	for hour := cfg.WindowStartHour; hour < cfg.WindowEndHour; hour++ {
		for minute := 0; minute < 60; minute++ {
			at := day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
			snap := schedule.NewSnapshot(at, s.names)
			for _, e := range entries {
				if schedule.ShouldEnqueue(e, snap) {
					runs = append(runs, PlannedRun{At: at, Name: e.Name, Tool: e.Tool, Path: e.Path})
				}
			}
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].At.Equal(runs[j].At) {
			return runs[i].At.Before(runs[j].At)
		}
		return strings.ToLower(runs[i].Name) < strings.ToLower(runs[j].Name)
	})
	return runs, nil
}
