// Package scheduler runs the polling loop: every poll interval it snapshots
// the clock, matches the enabled entries against it, and pushes due jobs to
// the FIFO queue exactly once per minute. It owns the queue and the
// duplicate guard; execution belongs to internal/dispatch.
package scheduler
