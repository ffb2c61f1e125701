package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"orchd/internal/config"
	"orchd/internal/dispatch"
	"orchd/internal/eventbus"
	"orchd/internal/schedule"
	"orchd/internal/scheduler"
	"orchd/internal/storage"
	logx "orchd/pkg/logx"
)

// App owns the whole daemon: config, logging, storage, the polling loop and
// the dispatcher. cmd/orchd constructs one, starts it, and waits.
type App struct {
	log    logx.Logger
	logSvc *logx.Service
	cfgMgr *config.Manager

	store storage.Store
	bus   eventbus.Bus
	queue *scheduler.Queue
	sched *scheduler.Service
	disp  *dispatch.Dispatcher

	sup      *Supervisor
	stopOnce sync.Once
}

// New loads the config, opens storage and wires all services. Nothing runs
// until Start.
func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg.Logging))
	mgr.SetLogger(log.With(logx.String("svc", "config")))
	mgr.SetValidator(func(ctx context.Context, c *config.Config) error {
		return config.Validate(c)
	})

	stCfg, enabled, err := mapStorageConfig(cfg)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	var store storage.Store
	if enabled {
		store, err = storage.Open(stCfg, log.With(logx.String("svc", "storage")))
		if err != nil {
			_ = logSvc.Close()
			return nil, fmt.Errorf("open storage: %w", err)
		}
		logSvc.SetStore(logAppender{store: store})
	}
	if cfg.Scheduler.Enabled && store == nil {
		_ = logSvc.Close()
		return nil, errors.New("scheduler.enabled requires a storage driver (the store is the job source)")
	}

	schedCfg, err := mapSchedulerConfig(cfg.Scheduler)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	dispCfg, err := mapDispatchConfig(cfg.Dispatch)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	bus := eventbus.New()
	queue := scheduler.NewQueue()

	dispOpts := dispatch.Options{Queue: queue, Bus: bus}
	schedOpts := scheduler.Options{
		Queue: queue,
		Guard: scheduler.NewGuard(),
		Bus:   bus,
		Names: mapNames(cfg.Locale),
	}
	if store != nil {
		rec := runRecorder{store: store}
		dispOpts.Recorder = rec
		schedOpts.Recorder = rec
		schedOpts.Source = entrySource{store: store}
	}

	disp := dispatch.New(dispCfg, log.With(logx.String("svc", "dispatch")), dispOpts)
	schedOpts.OnEnqueued = disp.Kick
	sched := scheduler.New(schedCfg, log.With(logx.String("svc", "scheduler")), schedOpts)

	return &App{
		log:    log.With(logx.String("svc", "app")),
		logSvc: logSvc,
		cfgMgr: mgr,
		store:  store,
		bus:    bus,
		queue:  queue,
		sched:  sched,
		disp:   disp,
	}, nil
}

// Start launches the config watcher, the reload loop and, if enabled, the
// polling loop.
func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, WithLogger(a.log))

	a.sup.Go("config-watch", a.cfgMgr.Watch)

	updates := a.cfgMgr.Subscribe(4)
	a.sup.Go0("config-reload", func(ctx context.Context) {
		a.reloadLoop(ctx, updates)
	})

	if a.sched.Enabled() {
		if err := a.sched.Start(a.sup.Context()); err != nil {
			return err
		}
	} else {
		a.log.Info("scheduler disabled at startup")
	}

	a.log.Info("app started")
	return nil
}

// Stop shuts the services down in reverse order. A running child process is
// not killed; only the loop that would start the next one stops.
func (a *App) Stop(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		a.log.Info("app stopping")
		a.sched.Stop(ctx)
		if a.sup != nil {
			err = a.sup.Stop(ctx)
		}
		if a.store != nil {
			_ = a.store.Close()
		}
		_ = a.logSvc.Close()
	})
	return err
}

// reloadLoop applies config updates published by the watcher. Logging and
// scheduler settings apply live; storage, dispatch and locale changes need
// a restart and are only reported.
func (a *App) reloadLoop(ctx context.Context, updates chan *config.Config) {
	defer a.cfgMgr.Unsubscribe(updates)
	prev := a.cfgMgr.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			changed, attrs := config.SummarizeChange(prev, cfg)
			if len(changed) == 0 {
				prev = cfg
				continue
			}
			a.log.Info("config reloaded", append(attrs, logx.Any("sections", changed))...)

			for _, section := range changed {
				switch section {
				case "logging":
					a.logSvc.Apply(mapLoggingConfig(cfg.Logging))
				case "scheduler":
					a.applyScheduler(ctx, cfg.Scheduler)
				case "storage", "dispatch", "locale":
					a.log.Warn("section change requires restart", logx.String("section", section))
				}
			}
			prev = cfg
		}
	}
}

func (a *App) applyScheduler(ctx context.Context, sc config.SchedulerConfig) {
	schedCfg, err := mapSchedulerConfig(sc)
	if err != nil {
		a.log.Warn("scheduler config rejected", logx.Err(err))
		return
	}
	wasEnabled := a.sched.Enabled()
	if err := a.sched.Apply(ctx, schedCfg); err != nil {
		a.log.Warn("scheduler re-apply failed", logx.Err(err))
		return
	}
	switch {
	case schedCfg.Enabled && !wasEnabled:
		if err := a.sched.Start(a.sup.Context()); err != nil {
			a.log.Error("scheduler start failed", logx.Err(err))
		}
	case !schedCfg.Enabled && wasEnabled:
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		a.sched.Stop(stopCtx)
		cancel()
	}
}

// ---- Host surface ----

// Bus exposes the live event stream for hosts (log tail, future UI).
func (a *App) Bus() eventbus.Bus { return a.bus }

// Store exposes process CRUD and event queries. Nil when storage is disabled.
func (a *App) Store() storage.Store { return a.store }

// Status is a point-in-time view of the engine.
type Status struct {
	SchedulerEnabled bool
	QueueLen         int
	Dispatch         dispatch.Status
}

func (a *App) Status() Status {
	return Status{
		SchedulerEnabled: a.sched.Enabled(),
		QueueLen:         a.queue.Len(),
		Dispatch:         a.disp.Status(),
	}
}

// PreviewToday projects today's planned runs through the matcher.
func (a *App) PreviewToday(ctx context.Context) ([]scheduler.PlannedRun, error) {
	return a.sched.PreviewToday(ctx)
}

// EnqueueManual pushes a job straight to the queue, bypassing the schedule
// match and the duplicate guard, and kicks the dispatcher.
func (a *App) EnqueueManual(name, tool, path string) (schedule.Job, error) {
	j := schedule.JobFrom(schedule.Entry{Name: name, Tool: tool, Path: path})
	if j.Tool == "" || j.Path == "" {
		return schedule.Job{}, dispatch.ErrIncompleteItem
	}
	a.queue.Push(j)
	a.bus.Publish(eventbus.Event{Type: eventbus.TypeJobEnqueued, Data: j})
	a.log.Info("manual enqueue",
		logx.String("run_id", j.RunID),
		logx.String("name", j.Name))
	if a.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rec := runRecorder{store: a.store}
		if err := rec.AppendRunEvent(ctx, j.RunID, j.Name, "app", "manual enqueue"); err != nil {
			a.log.Warn("append run event", logx.Err(err))
		}
	}
	a.disp.Kick()
	return j, nil
}

// EnqueueProcess enqueues a stored process by id, regardless of schedule.
func (a *App) EnqueueProcess(ctx context.Context, id int64) (schedule.Job, error) {
	if a.store == nil {
		return schedule.Job{}, storage.ErrDisabled
	}
	p, err := a.store.GetProcess(ctx, id)
	if err != nil {
		return schedule.Job{}, err
	}
	return a.EnqueueManual(p.Name, p.Tool, p.Path)
}

// CancelRunning kills the in-flight job when the cancel policy allows it.
func (a *App) CancelRunning() error { return a.disp.Cancel() }
