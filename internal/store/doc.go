// Package store provides SQLite-backed durable storage for timelines.
//
// Each timeline has:
//   - a current snapshot in the cues table, one row per cue
//   - an append-only revisions log recording every operation with the full
//     reindexed snapshot and its order hash
//
// # Invariants
//
//   - UNIQUE(timeline_id, track_id, global_index) mirrors the rule that a
//     track never holds two cues at one position
//   - All ordering uses the logical seq or global_index, never timestamps
//   - Every query ends its ORDER BY with id COLLATE BINARY so results are
//     identical across runs
//   - The snapshot and its revision are written in one transaction
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Payloads, args and snapshots are stored as RFC 8785 canonical JSON
// produced by internal/ir.
package store
