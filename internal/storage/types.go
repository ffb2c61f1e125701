package storage

import (
	"errors"
	"time"

	"orchd/internal/schedule"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrNotFound = errors.New("storage: not found")
)

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (json snapshot + jsonl events)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Process is a stored schedule entry plus its row identity.
type Process struct {
	ID      int64
	Enabled bool
	schedule.Entry
}

// Event is one row of the append-only event log. RunID correlates the rows
// of a single execution; daemon log lines routed to the store carry an
// empty RunID.
type Event struct {
	ID      int64
	At      time.Time
	RunID   string
	Name    string
	Stream  string
	Message string
}
