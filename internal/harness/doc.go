// Package harness runs timeline scenarios as executable contract tests.
//
// A scenario seeds a timeline, drives it through the engine with move,
// insert, remove and order steps, and asserts on the resulting group
// order. Every step goes through engine.Submit on a fresh in-memory store,
// so scenarios exercise the same path as the CLI.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: move_forward_pushes_track
//	description: "Moving a cue forward pushes its track neighbours"
//	cues:
//	  - {id: k1, track: circle, index: 0}
//	  - {id: k2, track: circle, index: 1}
//	  - {id: b1, track: camera, index: 1}
//	steps:
//	  - op: move
//	    target: k1
//	    dest: 1
//	    placement: at
//	  - op: insert
//	    cue: {id: n1, track: camera}
//	    dest: 0
//	  - op: insert
//	    cue: {id: n1, track: camera}
//	    expect_error: conflict
//	assertions:
//	  - type: group_count
//	    count: 3
//	  - type: same_group
//	    cues: [k1, b1]
//	  - type: before
//	    first: n1
//	    then: k1
//
// Instead of inline cues a scenario may name a CUE timeline document with
// "timeline"; the path is relative to the scenario file.
//
// # Assertion Types
//
//   - group_count: the final order has exactly count groups
//   - groups: the final groups, each as a set of cue ids
//   - same_group: all listed cues share one group
//   - before: cue first sits in an earlier group than cue then
//   - no_conflict: the final cues resolve without conflict
//
// # Deterministic Testing
//
// The harness uses testutil.DeterministicClock for revision seqs and
// testutil.SequentialIDGenerator for anonymous inserts, so golden
// snapshots (RunWithGolden) are identical across runs.
package harness
