// Package store provides SQLite-backed durable storage for playback traces.
//
// The store implements an append-only log with:
//   - Sessions: one row per playback run, holding the resolved composition
//     it played as canonical JSON plus its content hash
//   - Events: every tick and transition the session's player emitted
//
// # Critical Patterns
//
// Logical Ordering:
//   - All ordering uses seq INTEGER (logical clock), NEVER timestamps
//   - Every event query ends in ORDER BY seq ASC
//
// Idempotent Writes:
//   - Sessions are keyed by id, events by (session_id, seq)
//   - Re-writing an existing row is a silent no-op
//
// Replayable Sessions:
//   - The stored composition plus the stored tick times are enough to
//     re-run a session and compare the transitions it produces
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
