package app

import (
	"context"

	"orchd/internal/schedule"
	"orchd/internal/storage"
)

// entrySource feeds the scheduler from the process store.
type entrySource struct {
	store storage.Store
}

func (s entrySource) ListEnabled(ctx context.Context) ([]schedule.Entry, error) {
	procs, err := s.store.ListProcesses(ctx, true)
	if err != nil {
		return nil, err
	}
	entries := make([]schedule.Entry, len(procs))
	for i, p := range procs {
		entries[i] = p.Entry
	}
	return entries, nil
}

// runRecorder satisfies the scheduler and dispatcher Recorder ports.
type runRecorder struct {
	store storage.Store
}

func (r runRecorder) AppendRunEvent(ctx context.Context, runID, name, stream, message string) error {
	return r.store.AppendEvent(ctx, storage.Event{
		RunID:   runID,
		Name:    name,
		Stream:  stream,
		Message: message,
	})
}

// logAppender routes WARN+ daemon log lines into the events table.
type logAppender struct {
	store storage.Store
}

func (a logAppender) AppendLogEvent(ctx context.Context, stream, message string) error {
	return a.store.AppendEvent(ctx, storage.Event{Stream: stream, Message: message})
}
