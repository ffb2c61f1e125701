package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "orchd/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.processes.json (atomic snapshot, rewritten on every mutation)
//   - <prefix>.events.jsonl   (append-only JSON Lines)
//
// Process sets are small (dozens), so rewriting the snapshot per change is
// simpler than journaling.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	processPath string
	processes   []Process
	nextProcID  int64

	eventFile   *os.File
	nextEventID int64
}

type eventRecord struct {
	ID      int64  `json:"id"`
	At      string `json:"at"`
	RunID   string `json:"run_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Stream  string `json:"stream"`
	Message string `json:"message"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	procPath := prefix + ".processes.json"
	eventPath := prefix + ".events.jsonl"

	procs, err := loadProcessSnapshot(procPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	var maxProc int64
	for _, p := range procs {
		if p.ID > maxProc {
			maxProc = p.ID
		}
	}

	lastEvent, _ := lastEventID(eventPath)

	ef, err := os.OpenFile(eventPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:         log,
		processPath: procPath,
		processes:   procs,
		nextProcID:  maxProc + 1,
		eventFile:   ef,
		nextEventID: lastEvent + 1,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventFile == nil {
		return nil
	}
	err := s.eventFile.Close()
	s.eventFile = nil
	return err
}

func (s *fileStore) ListProcesses(ctx context.Context, enabledOnly bool) ([]Process, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Process, 0, len(s.processes))
	for _, p := range s.processes {
		if enabledOnly && !p.Enabled {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *fileStore) GetProcess(ctx context.Context, id int64) (Process, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.processes {
		if p.ID == id {
			return p, nil
		}
	}
	return Process{}, ErrNotFound
}

func (s *fileStore) AddProcess(ctx context.Context, p Process) (int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextProcID
	s.nextProcID++
	s.processes = append(s.processes, p)
	if err := s.saveProcessesLocked(); err != nil {
		return 0, err
	}
	return p.ID, nil
}

func (s *fileStore) UpdateProcess(ctx context.Context, p Process) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.processes {
		if s.processes[i].ID == p.ID {
			s.processes[i] = p
			return s.saveProcessesLocked()
		}
	}
	return ErrNotFound
}

func (s *fileStore) DeleteProcess(ctx context.Context, id int64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.processes {
		if s.processes[i].ID == id {
			s.processes = append(s.processes[:i], s.processes[i+1:]...)
			return s.saveProcessesLocked()
		}
	}
	return ErrNotFound
}

func (s *fileStore) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.processes {
		if s.processes[i].ID == id {
			s.processes[i].Enabled = enabled
			return s.saveProcessesLocked()
		}
	}
	return ErrNotFound
}

func (s *fileStore) AppendEvent(ctx context.Context, e Event) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventFile == nil {
		return errors.New("event file closed")
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	rec := eventRecord{
		ID:      s.nextEventID,
		At:      e.At.UTC().Format(time.RFC3339Nano),
		RunID:   e.RunID,
		Name:    e.Name,
		Stream:  e.Stream,
		Message: e.Message,
	}
	if err := json.NewEncoder(s.eventFile).Encode(rec); err != nil {
		return err
	}
	s.nextEventID++
	return nil
}

func (s *fileStore) ListEvents(ctx context.Context, limit int) ([]Event, error) {
	_ = ctx
	if limit <= 0 {
		limit = 1000
	}
	s.mu.Lock()
	path := s.eventPathLocked()
	s.mu.Unlock()

	all, err := readEvents(path)
	if err != nil {
		return nil, err
	}
	// Newest first.
	out := make([]Event, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *fileStore) ListEventsBetween(ctx context.Context, from, to time.Time, limit int) ([]Event, error) {
	_ = ctx
	s.mu.Lock()
	path := s.eventPathLocked()
	s.mu.Unlock()

	all, err := readEvents(path)
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, e := range all {
		if e.At.Before(from) || e.At.After(to) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *fileStore) eventPathLocked() string {
	if s.eventFile == nil {
		return ""
	}
	return s.eventFile.Name()
}

func (s *fileStore) saveProcessesLocked() error {
	tmp := s.processPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.processes); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.processPath)
}

func loadProcessSnapshot(path string) ([]Process, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []Process
	if err := json.NewDecoder(f).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func readEvents(path string) ([]Event, error) {
	if path == "" {
		return nil, errors.New("event file closed")
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var r eventRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue
		}
		e := Event{ID: r.ID, RunID: r.RunID, Name: r.Name, Stream: r.Stream, Message: r.Message}
		if t, err := time.Parse(time.RFC3339Nano, r.At); err == nil {
			e.At = t
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

func lastEventID(path string) (int64, error) {
	all, err := readEvents(path)
	if err != nil || len(all) == 0 {
		return 0, err
	}
	return all[len(all)-1].ID, nil
}
