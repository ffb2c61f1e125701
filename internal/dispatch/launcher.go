package dispatch

import (
	"os/exec"
)

// Handle is a started process.
type Handle interface {
	// Wait blocks until the process exits, returning its failure if any.
	Wait() error
	// Kill terminates the process immediately.
	Kill() error
}

// Launcher starts OS processes. Tests swap in a fake.
type Launcher interface {
	Start(argv []string) (Handle, error)
}

// ExecLauncher runs commands via os/exec, output inherited from the daemon.
type ExecLauncher struct{}

func (ExecLauncher) Start(argv []string) (Handle, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &procHandle{cmd: cmd}, nil
}

type procHandle struct{ cmd *exec.Cmd }

func (h *procHandle) Wait() error { return h.cmd.Wait() }
func (h *procHandle) Kill() error { return h.cmd.Process.Kill() }
