package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"orchd/internal/eventbus"
	"orchd/internal/schedule"
	"orchd/pkg/logx"
)

// Config mirrors the scheduler section of the config file.
type Config struct {
	Enabled         bool
	PollInterval    time.Duration
	WindowStartHour int
	WindowEndHour   int
	Timezone        string
	LogToStore      bool
}

func (c Config) normalized() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Minute
	}
	if c.WindowStartHour == 0 && c.WindowEndHour == 0 {
		c.WindowStartHour, c.WindowEndHour = 7, 18
	}
	return c
}

// Source lists the enabled schedule entries each tick. Backed by the store;
// tests swap in a fixed slice.
type Source interface {
	ListEnabled(ctx context.Context) ([]schedule.Entry, error)
}

// Clock abstracts time.Now so tests can pin the tick instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Recorder appends run events to the durable event log. Best effort: a
// failing recorder is logged and counted, never stops the loop.
type Recorder interface {
	AppendRunEvent(ctx context.Context, runID, name, stream, message string) error
}

// Status is the payload of scheduler.status bus events.
type Status struct {
	State   string // "running", "waiting-window", "stopped"
	Pending int
	At      time.Time
}

// Service owns the polling loop.
type Service struct {
	log   logx.Logger
	src   Source
	queue *Queue
	guard *Guard
	bus   eventbus.Bus
	rec   Recorder
	names schedule.Names
	clock Clock

	// onEnqueued is invoked after a tick pushed at least one job, outside
	// the service lock. The app points it at the dispatcher.
	onEnqueued func()

	mu        sync.Mutex
	cfg       Config
	c         *cron.Cron
	runCtx    context.Context
	runCancel context.CancelFunc
	loc       *time.Location

	recFailures uint64
}

type Options struct {
	Source     Source
	Queue      *Queue
	Guard      *Guard
	Bus        eventbus.Bus
	Recorder   Recorder // optional
	Names      schedule.Names
	Clock      Clock // optional, defaults to wall clock
	OnEnqueued func()
}

func New(cfg Config, log logx.Logger, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.Names == nil {
		opts.Names = schedule.EnglishNames{}
	}
	if opts.OnEnqueued == nil {
		opts.OnEnqueued = func() {}
	}
	return &Service{
		log:        log,
		src:        opts.Source,
		queue:      opts.Queue,
		guard:      opts.Guard,
		bus:        opts.Bus,
		rec:        opts.Recorder,
		names:      opts.Names,
		clock:      opts.Clock,
		onEnqueued: opts.OnEnqueued,
		cfg:        cfg.normalized(),
	}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Start begins polling. Idempotent: a second Start while running is a no-op.
// The first tick fires immediately so an enable toggle takes effect without
// waiting a full interval.
func (s *Service) Start(ctx context.Context) error {
	if s.src == nil {
		return errors.New("scheduler: no entry source configured")
	}
	s.mu.Lock()
	if s.c != nil {
		s.mu.Unlock()
		return nil
	}
	cfg := s.cfg
	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: timezone: %w", err)
	}
	s.loc = loc
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	runCtx := s.runCtx

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", cfg.PollInterval), func() { s.tick(runCtx) }); err != nil {
		s.runCancel()
		s.runCtx, s.runCancel = nil, nil
		s.mu.Unlock()
		return fmt.Errorf("scheduler: register tick: %w", err)
	}
	s.c = c
	s.mu.Unlock()

	c.Start()
	go s.tick(runCtx)

	s.log.Info("scheduler started",
		logx.Duration("poll", cfg.PollInterval),
		logx.Int("window_start", cfg.WindowStartHour),
		logx.Int("window_end", cfg.WindowEndHour),
		logx.String("tz", loc.String()))
	return nil
}

// Stop halts polling and waits for an in-flight tick registered with cron to
// return. Queued jobs stay queued.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	cancel := s.runCancel
	s.c = nil
	s.runCtx, s.runCancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	if cancel != nil {
		cancel()
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.publishStatus(Status{State: "stopped", Pending: s.queue.Len(), At: s.clock.Now()})
	s.log.Info("scheduler stopped")
}

// Apply installs a new config. If the loop is running and the poll interval
// or timezone changed, it is restarted in place.
func (s *Service) Apply(ctx context.Context, cfg Config) error {
	cfg = cfg.normalized()
	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	running := s.c != nil
	s.mu.Unlock()

	if !running {
		return nil
	}
	if old.PollInterval != cfg.PollInterval || strings.TrimSpace(old.Timezone) != strings.TrimSpace(cfg.Timezone) {
		s.Stop(ctx)
		return s.Start(ctx)
	}
	return nil
}

// Tick runs one poll pass synchronously. Exposed for the manual "poll now"
// surface; the cron entry calls the same path.
func (s *Service) Tick(ctx context.Context) {
	s.tick(ctx)
}

func (s *Service) tick(ctx context.Context) {
	s.mu.Lock()
	cfg := s.cfg
	loc := s.loc
	s.mu.Unlock()
	if loc == nil {
		var err error
		if loc, err = loadLocation(cfg.Timezone); err != nil {
			s.log.Error("resolve timezone", logx.Err(err))
			return
		}
	}

	now := s.clock.Now().In(loc)
	if now.Hour() < cfg.WindowStartHour || now.Hour() >= cfg.WindowEndHour {
		s.log.Debug("outside operating window", logx.Int("hour", now.Hour()))
		s.publishStatus(Status{State: "waiting-window", Pending: s.queue.Len(), At: now})
		return
	}

	entries, err := s.src.ListEnabled(ctx)
	if err != nil {
		// Abandon this tick only; the next poll retries.
		s.log.Error("list schedule entries", logx.Err(err))
		return
	}

	snap := schedule.NewSnapshot(now, s.names)
	enqueued := 0
	for _, e := range entries {
		if !schedule.ShouldEnqueue(e, snap) {
			continue
		}
		job := schedule.JobFrom(e)
		if !s.guard.Allow(job.Key(), snap) {
			s.log.Debug("duplicate suppressed", logx.String("job", job.Key()))
			continue
		}
		s.queue.Push(job)
		enqueued++
		s.log.Info("job enqueued",
			logx.String("run_id", job.RunID),
			logx.String("name", job.Name),
			logx.String("tool", job.Tool))
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeJobEnqueued, Data: job})
		s.record(ctx, job, "scheduler", "enqueued")
	}

	s.publishStatus(Status{State: "running", Pending: s.queue.Len(), At: now})
	if enqueued > 0 {
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeQueueChanged, Data: s.queue.Len()})
		s.onEnqueued()
	}
}

func (s *Service) record(ctx context.Context, job schedule.Job, stream, message string) {
	s.mu.Lock()
	rec := s.rec
	enabled := s.cfg.LogToStore
	s.mu.Unlock()
	if rec == nil || !enabled {
		return
	}
	if err := rec.AppendRunEvent(ctx, job.RunID, job.Name, stream, message); err != nil {
		s.mu.Lock()
		s.recFailures++
		n := s.recFailures
		s.mu.Unlock()
		s.log.Warn("append run event", logx.Err(err), logx.Uint64("failures", n))
	}
}

func (s *Service) publishStatus(st Status) {
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeSchedulerStatus, Data: st})
	}
}

func loadLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}
