package order

import "github.com/whitphx/tlanislide/internal/ir"

// Reindex assigns every cue the rank of its group, in place.
//
// Empty groups are skipped without consuming a rank, so the result is always
// the dense sequence 0, 1, 2, ... Callers only ever pass group slices the
// engine produced itself; the caller's original collection is never touched.
func Reindex[T any](groups []ir.Group[T]) {
	var rank int64
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		for i := range g {
			g[i].GlobalIndex = rank
		}
		rank++
	}
}
