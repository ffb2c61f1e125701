// Package schedule holds the pure scheduling domain: the time snapshot a
// tick compares against, the per-field matching predicate, and the job
// record produced when an entry is due.
//
// Everything here is side-effect free; the polling loop and the store live
// in internal/scheduler and internal/storage.
package schedule
