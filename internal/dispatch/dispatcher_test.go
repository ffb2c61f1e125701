package dispatch

import (
	"errors"
	"sync"
	"testing"
	"time"

	"orchd/internal/eventbus"
	"orchd/internal/schedule"
	"orchd/internal/scheduler"
	"orchd/pkg/logx"
)

type fakeHandle struct {
	mu     sync.Mutex
	done   chan struct{}
	err    error
	killed bool
	once   sync.Once
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{done: make(chan struct{})}
}

func (h *fakeHandle) Wait() error {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *fakeHandle) Kill() error {
	h.mu.Lock()
	h.killed = true
	h.err = errors.New("killed")
	h.mu.Unlock()
	h.once.Do(func() { close(h.done) })
	return nil
}

func (h *fakeHandle) exit(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
	h.once.Do(func() { close(h.done) })
}

func (h *fakeHandle) killedNow() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.killed
}

type fakeLauncher struct {
	mu      sync.Mutex
	argvs   [][]string
	handles []*fakeHandle
}

func (l *fakeLauncher) Start(argv []string) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h := newFakeHandle()
	l.argvs = append(l.argvs, argv)
	l.handles = append(l.handles, h)
	return h, nil
}

func (l *fakeLauncher) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.handles)
}

func (l *fakeLauncher) handle(i int) *fakeHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handles[i]
}

func (l *fakeLauncher) argv(i int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.argvs[i]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func newTestDispatcher(t *testing.T, grace time.Duration) (*Dispatcher, *scheduler.Queue, *fakeLauncher) {
	t.Helper()
	q := scheduler.NewQueue()
	l := &fakeLauncher{}
	d := New(Config{RobotGrace: grace}, logx.Nop(), Options{
		Queue:    q,
		Launcher: l,
		Bus:      eventbus.New(),
	})
	return d, q, l
}

func pyJob(run, name string) schedule.Job {
	return schedule.Job{RunID: run, Name: name, Tool: "python", Path: name + ".py"}
}

func TestDispatcherSingleFlightFIFO(t *testing.T) {
	t.Parallel()
	d, q, l := newTestDispatcher(t, time.Millisecond)

	q.Push(pyJob("1", "first"))
	q.Push(pyJob("2", "second"))
	d.Kick()

	waitFor(t, func() bool { return l.count() == 1 })
	if st := d.Status(); st.State != StateRunning || st.Job.RunID != "1" {
		t.Fatalf("status = %+v", st)
	}

	// Busy slot ignores further kicks.
	d.Kick()
	if l.count() != 1 {
		t.Fatal("second job started while first still running")
	}

	l.handle(0).exit(nil)
	waitFor(t, func() bool { return l.count() == 2 })
	waitFor(t, func() bool { return d.Status().Job.RunID == "2" })

	l.handle(1).exit(nil)
	waitFor(t, func() bool { return d.Status().State == StateIdle })
	if !q.Empty() {
		t.Fatal("queue should be drained")
	}
}

func TestDispatcherRobotGrace(t *testing.T) {
	t.Parallel()
	grace := 150 * time.Millisecond
	d, q, l := newTestDispatcher(t, grace)

	q.Push(schedule.Job{RunID: "1", Name: "Proc", Tool: "robot", Path: "robot.exe"})
	q.Push(pyJob("2", "after"))
	d.Kick()

	waitFor(t, func() bool { return l.count() == 1 })
	exited := time.Now()
	l.handle(0).exit(nil)

	// Slot stays occupied during the grace period.
	time.Sleep(grace / 3)
	if l.count() != 1 {
		t.Fatal("next job started before grace elapsed")
	}

	waitFor(t, func() bool { return l.count() == 2 })
	if elapsed := time.Since(exited); elapsed < grace {
		t.Fatalf("next job started after %v, want >= %v", elapsed, grace)
	}
}

func TestDispatcherFailedRobotSkipsGrace(t *testing.T) {
	t.Parallel()
	grace := time.Second
	d, q, l := newTestDispatcher(t, grace)

	q.Push(schedule.Job{RunID: "1", Name: "Proc", Tool: "robot", Path: "robot.exe"})
	q.Push(pyJob("2", "after"))
	d.Kick()

	waitFor(t, func() bool { return l.count() == 1 })
	exited := time.Now()
	l.handle(0).exit(errors.New("exit status 1"))

	waitFor(t, func() bool { return l.count() == 2 })
	if elapsed := time.Since(exited); elapsed >= grace {
		t.Fatalf("next job waited %v after a failed robot run, want no grace", elapsed)
	}
}

func TestDispatcherCancelPolicy(t *testing.T) {
	t.Parallel()
	d, q, l := newTestDispatcher(t, time.Millisecond)

	if err := d.Cancel(); !errors.Is(err, ErrIdle) {
		t.Fatalf("Cancel idle = %v, want ErrIdle", err)
	}

	q.Push(schedule.Job{RunID: "1", Name: "Proc", Tool: "robot", Path: "robot.exe"})
	d.Kick()
	waitFor(t, func() bool { return d.Status().State == StateRunning })

	if err := d.Cancel(); !errors.Is(err, ErrNotCancelable) {
		t.Fatalf("Cancel robot = %v, want ErrNotCancelable", err)
	}
	l.handle(0).exit(nil)
	waitFor(t, func() bool { return d.Status().State == StateIdle })

	q.Push(pyJob("2", "script"))
	d.Kick()
	waitFor(t, func() bool { return d.Status().State == StateRunning })

	if err := d.Cancel(); err != nil {
		t.Fatalf("Cancel python = %v", err)
	}
	waitFor(t, func() bool { return l.handle(1).killedNow() })
	waitFor(t, func() bool { return d.Status().State == StateIdle })
}

func TestDispatcherBuildFailureSkipsToNext(t *testing.T) {
	t.Parallel()
	d, q, l := newTestDispatcher(t, time.Millisecond)

	q.Push(schedule.Job{RunID: "1", Name: "bad", Tool: "other", Path: ""})
	q.Push(pyJob("2", "good"))
	d.Kick()

	waitFor(t, func() bool { return l.count() == 1 })
	if argv := l.argv(0); argv[1] != "good.py" {
		t.Fatalf("started %q, want good.py", argv)
	}
}

func TestDispatcherFailedRunReleasesSlot(t *testing.T) {
	t.Parallel()
	d, q, l := newTestDispatcher(t, time.Millisecond)

	q.Push(pyJob("1", "boom"))
	q.Push(pyJob("2", "next"))
	d.Kick()

	waitFor(t, func() bool { return l.count() == 1 })
	l.handle(0).exit(errors.New("exit status 1"))

	waitFor(t, func() bool { return l.count() == 2 })
	waitFor(t, func() bool { return d.Status().Job.RunID == "2" })
}

func TestCancelable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		job  schedule.Job
		want bool
	}{
		{schedule.Job{Tool: "python", Path: "x.exe"}, true},
		{schedule.Job{Tool: "Python", Path: "x"}, true},
		{schedule.Job{Tool: "other", Path: "x.py"}, true},
		{schedule.Job{Tool: "other", Path: "x.PYW"}, true},
		{schedule.Job{Tool: "robot", Path: "robot.exe"}, false},
		{schedule.Job{Tool: "other", Path: "x.bat"}, false},
	}
	for _, tt := range tests {
		if got := cancelable(tt.job); got != tt.want {
			t.Fatalf("cancelable(%+v) = %v, want %v", tt.job, got, tt.want)
		}
	}
}
