package order

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConflict matches every *ConflictError via errors.Is.
var ErrConflict = errors.New("order conflict")

// ConflictCode categorizes conflicts.
type ConflictCode string

const (
	// CodeSamePosition indicates two cues on one track share a GlobalIndex.
	CodeSamePosition ConflictCode = "SAME_POSITION"

	// CodeDuplicateID indicates two cues share an id.
	CodeDuplicateID ConflictCode = "DUPLICATE_ID"

	// CodeUnresolvedOrder indicates the precedence relation has a cycle or
	// otherwise could not be fully resolved.
	CodeUnresolvedOrder ConflictCode = "UNRESOLVED_ORDER"
)

// ConflictError reports an unsatisfiable cue configuration.
// No partial order is ever returned alongside it.
type ConflictError struct {
	// Code identifies the conflict category.
	Code ConflictCode `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// TrackID is the track on which the conflict occurred, if any.
	TrackID string `json:"track_id,omitempty"`

	// GlobalIndex is the contested position (CodeSamePosition).
	GlobalIndex int64 `json:"global_index,omitempty"`

	// ItemIDs lists the cues involved.
	ItemIDs []string `json:"item_ids"`
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)

	var ctx []string
	if e.TrackID != "" {
		ctx = append(ctx, "track="+e.TrackID)
	}
	if e.Code == CodeSamePosition {
		ctx = append(ctx, fmt.Sprintf("index=%d", e.GlobalIndex))
	}
	if len(e.ItemIDs) > 0 {
		ctx = append(ctx, "items="+strings.Join(e.ItemIDs, ","))
	}
	if len(ctx) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(ctx, ", "))
	}
	return b.String()
}

// Is lets errors.Is(err, ErrConflict) match any ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// IsConflict returns true if err is or wraps a *ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// AsConflict extracts the *ConflictError from err, if any.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

func newSamePositionError(trackID string, index int64, first, second string) *ConflictError {
	return &ConflictError{
		Code:        CodeSamePosition,
		Message:     "two cues on the same track share a position",
		TrackID:     trackID,
		GlobalIndex: index,
		ItemIDs:     []string{first, second},
	}
}

func newDuplicateIDError(id string) *ConflictError {
	return &ConflictError{
		Code:    CodeDuplicateID,
		Message: fmt.Sprintf("cue id %q is not unique", id),
		ItemIDs: []string{id},
	}
}

func newUnresolvedError(unresolved []string) *ConflictError {
	return &ConflictError{
		Code:    CodeUnresolvedOrder,
		Message: "precedence relation contains a cycle",
		ItemIDs: unresolved,
	}
}
