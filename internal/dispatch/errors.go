package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompleteItem marks a job missing its tool or path.
	ErrIncompleteItem = errors.New("dispatch: tool or path missing")

	// ErrEmptyCommand marks a path that tokenized to nothing.
	ErrEmptyCommand = errors.New("dispatch: empty command")

	// ErrIdle is returned by Cancel when no job is running.
	ErrIdle = errors.New("dispatch: no job running")

	// ErrNotCancelable is returned by Cancel for jobs that are not safe to
	// kill mid-run. Only cooperative runtimes (python scripts) may be
	// canceled; killing a robot run can leave its workflow half-applied.
	ErrNotCancelable = errors.New("dispatch: running job is not cancelable")
)

// UnexecutableError reports a path that points at an existing regular file
// the platform cannot execute directly.
type UnexecutableError struct {
	Path string
	Ext  string
}

func (e *UnexecutableError) Error() string {
	return fmt.Sprintf("dispatch: %q is not directly executable (extension %q); use .exe/.bat/.cmd/.ps1/.py or a .lnk shortcut", e.Path, e.Ext)
}
