package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "orchd/pkg/logx"
)

// Store is the persistence API used by the scheduler, the dispatcher and
// the host surfaces.
type Store interface {
	ListProcesses(ctx context.Context, enabledOnly bool) ([]Process, error)
	GetProcess(ctx context.Context, id int64) (Process, error)
	AddProcess(ctx context.Context, p Process) (int64, error)
	UpdateProcess(ctx context.Context, p Process) error
	DeleteProcess(ctx context.Context, id int64) error
	SetEnabled(ctx context.Context, id int64, enabled bool) error

	AppendEvent(ctx context.Context, e Event) error
	ListEvents(ctx context.Context, limit int) ([]Event, error)
	ListEventsBetween(ctx context.Context, from, to time.Time, limit int) ([]Event, error)

	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
