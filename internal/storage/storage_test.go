package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"orchd/internal/schedule"
	"orchd/pkg/logx"
)

func openTestStore(t *testing.T, driver string) Store {
	t.Helper()
	st, err := Open(Config{Driver: driver, Path: filepath.Join(t.TempDir(), "orchd.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open(%s) error: %v", driver, err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func sampleProcess(name string) Process {
	return Process{
		Enabled: true,
		Entry: schedule.Entry{
			Name: name, Tool: "python", Path: name + ".py",
			Year: "all", MonthsOfYear: "all", WeeksOfMonth: "all",
			DaysOfWeek: "all", Day: "all", Hour: "07", Minute: "30",
		},
	}
}

func TestStoreProcessCRUD(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"sqlite", "file"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st := openTestStore(t, driver)

			id, err := st.AddProcess(ctx, sampleProcess("report"))
			if err != nil {
				t.Fatalf("AddProcess error: %v", err)
			}
			if id == 0 {
				t.Fatal("AddProcess returned zero id")
			}

			got, err := st.GetProcess(ctx, id)
			if err != nil {
				t.Fatalf("GetProcess error: %v", err)
			}
			if got.Name != "report" || got.Hour != "07" || !got.Enabled {
				t.Fatalf("GetProcess = %+v", got)
			}

			got.Minute = "45"
			if err := st.UpdateProcess(ctx, got); err != nil {
				t.Fatalf("UpdateProcess error: %v", err)
			}
			got, _ = st.GetProcess(ctx, id)
			if got.Minute != "45" {
				t.Fatalf("Minute = %q after update", got.Minute)
			}

			if err := st.SetEnabled(ctx, id, false); err != nil {
				t.Fatalf("SetEnabled error: %v", err)
			}
			enabled, err := st.ListProcesses(ctx, true)
			if err != nil {
				t.Fatalf("ListProcesses error: %v", err)
			}
			if len(enabled) != 0 {
				t.Fatalf("enabled list = %d entries, want 0", len(enabled))
			}
			all, _ := st.ListProcesses(ctx, false)
			if len(all) != 1 {
				t.Fatalf("full list = %d entries, want 1", len(all))
			}

			if err := st.DeleteProcess(ctx, id); err != nil {
				t.Fatalf("DeleteProcess error: %v", err)
			}
			if _, err := st.GetProcess(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Fatalf("GetProcess after delete = %v, want ErrNotFound", err)
			}
			if err := st.DeleteProcess(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Fatalf("DeleteProcess twice = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStoreEventLog(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"sqlite", "file"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st := openTestStore(t, driver)

			base := time.Date(2026, time.August, 31, 7, 0, 0, 0, time.UTC)
			for i := 0; i < 5; i++ {
				err := st.AppendEvent(ctx, Event{
					At:      base.Add(time.Duration(i) * time.Minute),
					RunID:   "run",
					Name:    "report",
					Stream:  "scheduler",
					Message: string(rune('a' + i)),
				})
				if err != nil {
					t.Fatalf("AppendEvent error: %v", err)
				}
			}

			recent, err := st.ListEvents(ctx, 3)
			if err != nil {
				t.Fatalf("ListEvents error: %v", err)
			}
			if len(recent) != 3 {
				t.Fatalf("ListEvents = %d rows, want 3", len(recent))
			}
			if recent[0].Message != "e" || recent[2].Message != "c" {
				t.Fatalf("ListEvents order = %q, %q", recent[0].Message, recent[2].Message)
			}

			window, err := st.ListEventsBetween(ctx, base.Add(time.Minute), base.Add(3*time.Minute), 0)
			if err != nil {
				t.Fatalf("ListEventsBetween error: %v", err)
			}
			if len(window) != 3 {
				t.Fatalf("ListEventsBetween = %d rows, want 3", len(window))
			}
			if window[0].Message != "b" || window[2].Message != "d" {
				t.Fatalf("window order = %q, %q", window[0].Message, window[2].Message)
			}
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "orchd.db")

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	id, err := st.AddProcess(ctx, sampleProcess("report"))
	if err != nil {
		t.Fatalf("AddProcess error: %v", err)
	}
	if err := st.AppendEvent(ctx, Event{Stream: "log", Message: "hello"}); err != nil {
		t.Fatalf("AppendEvent error: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	st, err = Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer st.Close()

	if _, err := st.GetProcess(ctx, id); err != nil {
		t.Fatalf("GetProcess after reopen: %v", err)
	}
	events, err := st.ListEvents(ctx, 10)
	if err != nil {
		t.Fatalf("ListEvents after reopen: %v", err)
	}
	if len(events) != 1 || events[0].Message != "hello" {
		t.Fatalf("events after reopen = %+v", events)
	}
}

func TestOpenDisabledAndUnknown(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{}, logx.Nop())
	if err != nil || st != nil {
		t.Fatalf("Open(disabled) = %v, %v", st, err)
	}
	if _, err := Open(Config{Driver: "bogus", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
