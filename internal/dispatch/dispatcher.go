package dispatch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"orchd/internal/eventbus"
	"orchd/internal/schedule"
	"orchd/internal/scheduler"
	"orchd/pkg/logx"
)

// State of the single execution slot.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	default:
		return "idle"
	}
}

const defaultRobotGrace = 20 * time.Second

// Config mirrors the dispatch section of the config file.
type Config struct {
	PythonBin  string
	RobotGrace time.Duration
}

// Recorder appends run events to the durable event log. Best effort.
type Recorder interface {
	AppendRunEvent(ctx context.Context, runID, name, stream, message string) error
}

// Status describes the slot for hosts.
type Status struct {
	State State
	Job   schedule.Job // zero when idle
}

// Dispatcher drains the queue one job at a time. Kick is the only entry
// point: the scheduler calls it after enqueueing, and the dispatcher calls
// it on itself whenever a run reaches a terminal state.
type Dispatcher struct {
	log      logx.Logger
	queue    *scheduler.Queue
	builder  *Builder
	launcher Launcher
	bus      eventbus.Bus
	rec      Recorder
	grace    time.Duration

	mu      sync.Mutex
	state   State
	current schedule.Job
	handle  Handle
}

type Options struct {
	Queue    *scheduler.Queue
	Launcher Launcher // optional, defaults to ExecLauncher
	Bus      eventbus.Bus
	Recorder Recorder // optional
}

func New(cfg Config, log logx.Logger, opts Options) *Dispatcher {
	if opts.Launcher == nil {
		opts.Launcher = ExecLauncher{}
	}
	grace := cfg.RobotGrace
	if grace == 0 {
		grace = defaultRobotGrace
	}
	return &Dispatcher{
		log:      log,
		queue:    opts.Queue,
		builder:  NewBuilder(cfg.PythonBin),
		launcher: opts.Launcher,
		bus:      opts.Bus,
		rec:      opts.Recorder,
		grace:    grace,
	}
}

// Status returns the current slot state and job.
func (d *Dispatcher) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{State: d.state, Job: d.current}
}

// Kick starts the next queued job if the slot is idle. Safe to call from
// any goroutine at any time; a busy slot makes it a no-op.
func (d *Dispatcher) Kick() {
	for {
		d.mu.Lock()
		if d.state != StateIdle {
			d.mu.Unlock()
			return
		}
		job, err := d.queue.Pop()
		if err != nil {
			d.mu.Unlock()
			return
		}
		d.state = StateStarting
		d.current = job
		d.mu.Unlock()

		d.bus.Publish(eventbus.Event{Type: eventbus.TypeQueueChanged, Data: d.queue.Len()})
		if d.start(job) {
			return
		}
		// Start failed; slot is idle again, try the next queued job.
	}
}

func (d *Dispatcher) start(job schedule.Job) bool {
	argv, err := d.builder.Build(job)
	if err != nil {
		d.log.Error("build command failed",
			logx.String("run_id", job.RunID),
			logx.String("name", job.Name),
			logx.Err(err))
		d.terminal(job, err, false)
		return false
	}

	h, err := d.launcher.Start(argv)
	if err != nil {
		d.log.Error("launch failed",
			logx.String("run_id", job.RunID),
			logx.String("name", job.Name),
			logx.String("exe", argv[0]),
			logx.Err(err))
		d.terminal(job, err, false)
		return false
	}

	d.mu.Lock()
	d.state = StateRunning
	d.handle = h
	d.mu.Unlock()

	d.log.Info("job started",
		logx.String("run_id", job.RunID),
		logx.String("name", job.Name),
		logx.String("tool", job.Tool))
	d.bus.Publish(eventbus.Event{Type: eventbus.TypeJobStarted, Data: job})
	d.record(job, "dispatcher", "started")

	go d.wait(job, h)
	return true
}

// wait blocks on the process and drives the terminal transition.
// Successful robot runs keep the slot occupied for the grace period after
// exit, giving the runner time to release its resources before the next
// job starts; the timer fires on its own goroutine so nothing blocks
// here. Failed runs release the slot immediately.
func (d *Dispatcher) wait(job schedule.Job, h Handle) {
	err := h.Wait()
	if err == nil && strings.EqualFold(job.Tool, reservedTool) && d.grace > 0 {
		time.AfterFunc(d.grace, func() { d.finish(job, err) })
		return
	}
	d.finish(job, err)
}

func (d *Dispatcher) finish(job schedule.Job, err error) {
	d.terminal(job, err, true)
	d.Kick()
}

// terminal releases the slot and emits the finished/failed signals.
// kick is driven by the caller: start failures loop inside Kick already.
func (d *Dispatcher) terminal(job schedule.Job, err error, ran bool) {
	d.mu.Lock()
	d.state = StateIdle
	d.current = schedule.Job{}
	d.handle = nil
	d.mu.Unlock()

	if err != nil {
		d.log.Error("job failed",
			logx.String("run_id", job.RunID),
			logx.String("name", job.Name),
			logx.Bool("ran", ran),
			logx.Err(err))
		d.bus.Publish(eventbus.Event{Type: eventbus.TypeJobFailed, Data: job})
		d.record(job, "dispatcher", "failed: "+err.Error())
		return
	}
	d.log.Info("job finished",
		logx.String("run_id", job.RunID),
		logx.String("name", job.Name))
	d.bus.Publish(eventbus.Event{Type: eventbus.TypeJobFinished, Data: job})
	d.record(job, "dispatcher", "finished")
}

// Cancel kills the running job if policy allows. Only python runs may be
// canceled: the interpreter dies cleanly, while killing a robot or batch
// run can strand external state.
func (d *Dispatcher) Cancel() error {
	d.mu.Lock()
	if d.state != StateRunning || d.handle == nil {
		d.mu.Unlock()
		return ErrIdle
	}
	job := d.current
	h := d.handle
	d.mu.Unlock()

	if !cancelable(job) {
		return ErrNotCancelable
	}
	d.log.Warn("canceling job",
		logx.String("run_id", job.RunID),
		logx.String("name", job.Name))
	return h.Kill()
}

func cancelable(j schedule.Job) bool {
	if strings.EqualFold(strings.TrimSpace(j.Tool), "python") {
		return true
	}
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(j.Path))) {
	case ".py", ".pyw":
		return true
	}
	return false
}

func (d *Dispatcher) record(job schedule.Job, stream, message string) {
	if d.rec == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.rec.AppendRunEvent(ctx, job.RunID, job.Name, stream, message); err != nil {
		d.log.Warn("append run event", logx.Err(err))
	}
}
