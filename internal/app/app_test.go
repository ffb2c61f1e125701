package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"orchd/internal/dispatch"
	"orchd/internal/eventbus"
	"orchd/internal/scheduler"
	"orchd/internal/storage"
	"orchd/pkg/logx"
)

type noopHandle struct{}

func (noopHandle) Wait() error { return nil }
func (noopHandle) Kill() error { return nil }

type noopLauncher struct{}

func (noopLauncher) Start(argv []string) (dispatch.Handle, error) {
	return noopHandle{}, nil
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	store, err := storage.Open(storage.Config{
		Driver: "file",
		Path:   filepath.Join(t.TempDir(), "orchd.db"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	queue := scheduler.NewQueue()
	bus := eventbus.New()
	disp := dispatch.New(dispatch.Config{}, logx.Nop(), dispatch.Options{
		Queue:    queue,
		Bus:      bus,
		Launcher: noopLauncher{},
	})
	return &App{
		log:   logx.Nop(),
		store: store,
		bus:   bus,
		queue: queue,
		disp:  disp,
	}
}

func TestEnqueueManualRecordsEvent(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)

	j, err := a.EnqueueManual("Report", "python", "report.py")
	if err != nil {
		t.Fatalf("EnqueueManual error: %v", err)
	}

	events, err := a.store.ListEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListEvents error: %v", err)
	}
	found := false
	for _, e := range events {
		if e.RunID == j.RunID && e.Message == "manual enqueue" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no manual enqueue event for run %s in %+v", j.RunID, events)
	}
}

func TestEnqueueManualValidates(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)

	if _, err := a.EnqueueManual("x", "", "p"); !errors.Is(err, dispatch.ErrIncompleteItem) {
		t.Fatalf("missing tool = %v, want ErrIncompleteItem", err)
	}
	if _, err := a.EnqueueManual("x", "python", "  "); !errors.Is(err, dispatch.ErrIncompleteItem) {
		t.Fatalf("missing path = %v, want ErrIncompleteItem", err)
	}
}
