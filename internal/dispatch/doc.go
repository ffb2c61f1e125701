// Package dispatch turns queued jobs into OS processes, one at a time.
// It builds the command line for each tool, launches it, and pops the next
// job when the current one finishes. Robot runs get a fixed grace period
// after exit before the slot is released.
package dispatch
