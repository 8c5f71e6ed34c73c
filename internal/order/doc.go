// Package order implements the cue ordering engine.
//
// Cues live on independent tracks. Each cue carries a numeric GlobalIndex;
// cues on different tracks with the same index play simultaneously, while
// two cues on the same track may never share an index. The engine derives a
// canonical sequence of groups (frames) from a flat collection, relocates a
// cue while displacing the same-track cues it slides past, and inserts new
// cues as solitary groups.
//
// Every function takes an explicit snapshot and returns a new one. Nothing
// here retains state between calls or touches the caller's slice, so the
// host decides how concurrent edits are serialised (see package engine).
//
// # Conflict policy
//
// Invalid configurations are rejected, never repaired: ComputeOrder returns a
// *ConflictError when two cues on one track share a position, when ids
// collide, or when the precedence relation cannot be fully resolved. Move and
// Insert propagate that error unchanged. A move whose target id no longer
// exists is a no-op, since a drag may race with deletion by the host.
//
// # Precedence relation
//
// Cue a precedes cue b when a.GlobalIndex < b.GlobalIndex. The relation is
// kept as an explicit graph so other constraints can be layered on later,
// but it is stored as its transitive reduction: after sorting, every cue links
// only to the cues of the next run of equal indices. The adjacency is a slice
// addressed by sorted rank.
package order
