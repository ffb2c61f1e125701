package storage

// Package storage persists the two durable data sets of the daemon:
//   - Process definitions (the schedule entries the poller matches)
//   - The append-only event log (enqueue/start/finish plus WARN+ daemon logs)
