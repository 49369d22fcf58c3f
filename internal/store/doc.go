// Package store provides a SQLite-backed journal for host trace events.
//
// Every round the host emits trace events (round start, boundary clears,
// system runs and failures, manual clears, round end with queue stats).
// Store implements trace.Tracer and appends them to a single table so a
// run can be inspected or verified after the fact.
//
// Event payloads are never written. The journal records what the scheduler
// did, not the data that flowed through the queues.
//
// # Critical Patterns
//
// Logical Time
//   - Events are ordered by their seq column (logical clock), never by
//     wall time
//   - UNIQUE(run_id, seq) makes recording idempotent
//
// Deterministic Storage
//   - Queue snapshots are stored as RFC 8785 canonical JSON
//   - DigestRun hashes a run the same way trace.Digest does in memory
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
