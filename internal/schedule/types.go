package schedule

import (
	"strings"

	"github.com/google/uuid"
)

// Wildcard is the reserved field value that matches any value of its
// dimension (case-insensitive).
const Wildcard = "all"

// Entry is one schedule row as stored in the job-source.
//
// The seven schedule fields are strings on purpose: each holds the wildcard
// token, a single value, or a delimiter-separated list, exactly as entered
// by the operator. An absent/empty field never matches.
type Entry struct {
	Name string // display name of the job
	Tool string // tool identifier (e.g. "robot", "python")
	Path string // executable path / raw command line

	Year         string
	MonthsOfYear string
	WeeksOfMonth string
	DaysOfWeek   string
	Day          string
	Hour         string
	Minute       string
}

// Job is the normalized record handed to the dispatch queue once an entry
// matched. Immutable; consumed exactly once by the dispatcher.
type Job struct {
	RunID string // correlation id for events/logs
	Name  string
	Tool  string
	Path  string
}

// JobFrom normalizes a matched entry into a dispatchable job, stamping a
// fresh run id.
func JobFrom(e Entry) Job {
	return Job{
		RunID: uuid.NewString(),
		Name:  strings.TrimSpace(e.Name),
		Tool:  strings.TrimSpace(e.Tool),
		Path:  strings.TrimSpace(e.Path),
	}
}

// Key returns the job identity used for per-minute duplicate suppression.
// The run id is deliberately excluded: two jobs with the same name, tool and
// path are the same logical job.
func (j Job) Key() string {
	return j.Name + "|" + j.Tool + "|" + j.Path
}
