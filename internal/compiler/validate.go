package compiler

import (
	"fmt"
	"strings"

	"github.com/whitphx/tlanislide/internal/ir"
	"github.com/whitphx/tlanislide/internal/order"
)

// Validation error codes (E100-E199)
const (
	// Timeline errors (E101-E109)
	ErrTimelineIDEmpty    = "E101" // timeline id is required
	ErrCueIDEmpty         = "E102" // cue id is required
	ErrTrackIDEmpty       = "E103" // track id is required
	ErrDuplicateCueID     = "E105" // cue ids must be unique within a timeline
	ErrFloatTypeForbidden = "E106" // float payload values not allowed
	ErrNullForbidden      = "E107" // null payload values not allowed

	// Ordering errors (E120-E129)
	ErrOrderConflict = "E120" // cues cannot be arranged into a conflict-free order
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled timeline.
// Returns all errors found (does not fail-fast).
func Validate(tl *ir.Timeline) []ValidationError {
	var errs []ValidationError

	// E101: timeline id is required
	if strings.TrimSpace(tl.ID) == "" {
		errs = append(errs, ValidationError{
			Field:   "id",
			Message: "timeline id is required and must be non-empty",
			Code:    ErrTimelineIDEmpty,
		})
	}

	seen := make(map[string]bool, len(tl.Cues))
	for i, c := range tl.Cues {
		field := fmt.Sprintf("cues[%d]", i)

		// E102: cue id is required
		if strings.TrimSpace(c.ID) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: "cue id is required and must be non-empty",
				Code:    ErrCueIDEmpty,
			})
		} else if seen[c.ID] {
			// E105: duplicate cue id
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicate cue id %q", c.ID),
				Code:    ErrDuplicateCueID,
			})
		}
		seen[c.ID] = true

		// E103: track id is required
		if strings.TrimSpace(c.TrackID) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".track_id",
				Message: "track id is required and must be non-empty",
				Code:    ErrTrackIDEmpty,
			})
		}

		// E107: null forbidden anywhere in the payload
		for _, path := range nullPaths(field+".data", c.Data) {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: "null values are forbidden in cue data",
				Code:    ErrNullForbidden,
			})
		}
	}

	// E120: order conflicts. Duplicate ids are already reported as E105.
	if _, err := order.ComputeOrder(tl.Cues); err != nil {
		ce, ok := order.AsConflict(err)
		if !ok || ce.Code != order.CodeDuplicateID {
			errs = append(errs, ValidationError{
				Field:   "cues",
				Message: err.Error(),
				Code:    ErrOrderConflict,
			})
		}
	}

	return errs
}

// nullPaths returns the field paths of every Null inside v.
func nullPaths(field string, v ir.Value) []string {
	switch val := v.(type) {
	case ir.Null:
		return []string{field}
	case ir.Array:
		var out []string
		for i, elem := range val {
			out = append(out, nullPaths(fmt.Sprintf("%s[%d]", field, i), elem)...)
		}
		return out
	case ir.Object:
		var out []string
		for _, k := range val.SortedKeys() {
			out = append(out, nullPaths(field+"."+k, val[k])...)
		}
		return out
	default:
		return nil
	}
}
