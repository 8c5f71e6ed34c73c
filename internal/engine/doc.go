// Package engine hosts the ordering core over a timeline store.
//
// # Single-Writer Command Loop
//
// Commands (import, move, insert, remove, order) are submitted from any
// goroutine and executed one at a time by Run. Each mutating command:
//
//  1. reads the current snapshot from the store
//  2. encodes the command as revision args
//  3. applies the matching internal/order operation through applyOp
//  4. re-checks the result with order.ComputeOrder
//  5. commits snapshot and revision in one transaction, stamped by the
//     logical clock
//
// A command that leaves the order hash unchanged records nothing.
//
// # Replay
//
// Replay is structural: it feeds the recorded (op, args) pairs through the
// same applyOp and compares order hashes. Ids of inserted cues are
// generated before args are recorded, so replay never calls the
// IDGenerator.
//
// All ordering uses the logical seq, never wall time.
package engine
