package scheduler

import (
	"sync"

	"orchd/internal/schedule"
)

// Guard suppresses duplicate enqueues within a calendar minute. The seen
// set is keyed by job identity and cleared whenever the minute changes, so
// the same entry becomes eligible again on the next due minute.
type Guard struct {
	mu     sync.Mutex
	minute string
	seen   map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{seen: map[string]struct{}{}}
}

// Allow records the job for the snapshot's minute and reports whether this
// is its first enqueue in that minute.
func (g *Guard) Allow(jobKey string, now schedule.Snapshot) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if key := now.MinuteKey(); key != g.minute {
		g.minute = key
		g.seen = map[string]struct{}{}
	}
	if _, dup := g.seen[jobKey]; dup {
		return false
	}
	g.seen[jobKey] = struct{}{}
	return true
}
