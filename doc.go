// Package chronicle implements an event-sourcing core: an append-only
// event log partitioned by entity, a pure projector that folds an entity's
// events into its current state, and a command executor that validates
// intents against projected state before recording new events. The log is
// pluggable; in-memory and Redis backends are provided, plus a
// write-behind archive tier for durable mirroring.
//
// Typical usage looks like:
//   - Open an EventLog (NewMemoryLog or NewRedisLog)
//   - Define Appliers that fold events into your entity state
//   - Build a Projector and an Executor over the log
//   - Run Commands through the Executor and read through a Query
//   - Optionally subscribe to the Hub or attach an ArchiveWorker
//
// The account package contains a complete bank-account domain built on
// this core.
package chronicle
