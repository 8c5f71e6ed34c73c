package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while executing a command.
//
// Ordering conflicts are not RuntimeErrors: they surface unchanged as
// *order.ConflictError so callers can use order.IsConflict.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// TimelineID identifies the affected timeline.
	TimelineID string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeQuotaExceeded indicates a timeline would exceed its cue cap.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeUnknownCue indicates a command names a cue the timeline lacks.
	ErrCodeUnknownCue RuntimeErrorCode = "UNKNOWN_CUE"

	// ErrCodeInvalidCommand indicates a malformed command or revision args.
	ErrCodeInvalidCommand RuntimeErrorCode = "INVALID_COMMAND"

	// ErrCodeReplayMismatch indicates replay produced a different order hash
	// than the one recorded.
	ErrCodeReplayMismatch RuntimeErrorCode = "REPLAY_MISMATCH"
)

// ErrStopped is returned by Submit once the engine has stopped.
var ErrStopped = errors.New("engine stopped")

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.TimelineID != "" {
		return fmt.Sprintf("%s: %s (timeline=%s)", e.Code, e.Message, e.TimelineID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	return hasCode(err, ErrCodeQuotaExceeded)
}

// IsUnknownCueError returns true if the error names a missing cue.
func IsUnknownCueError(err error) bool {
	return hasCode(err, ErrCodeUnknownCue)
}

// IsInvalidCommandError returns true if the command was malformed.
func IsInvalidCommandError(err error) bool {
	return hasCode(err, ErrCodeInvalidCommand)
}

// IsReplayMismatch returns true if replay diverged from the recorded history.
func IsReplayMismatch(err error) bool {
	return hasCode(err, ErrCodeReplayMismatch)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewQuotaError creates a RuntimeError for an exceeded cue cap.
func NewQuotaError(timelineID string, cues, maxCues int) *RuntimeError {
	return &RuntimeError{
		Code:       ErrCodeQuotaExceeded,
		Message:    fmt.Sprintf("timeline exceeded max cues (%d > %d)", cues, maxCues),
		TimelineID: timelineID,
		Details: map[string]string{
			"cues":     fmt.Sprintf("%d", cues),
			"max_cues": fmt.Sprintf("%d", maxCues),
		},
	}
}

// NewUnknownCueError creates a RuntimeError for a missing cue id.
func NewUnknownCueError(timelineID, cueID string) *RuntimeError {
	return &RuntimeError{
		Code:       ErrCodeUnknownCue,
		Message:    fmt.Sprintf("cue %q not found", cueID),
		TimelineID: timelineID,
		Details:    map[string]string{"cue_id": cueID},
	}
}

// NewInvalidCommandError creates a RuntimeError for a malformed command.
func NewInvalidCommandError(timelineID, message string) *RuntimeError {
	return &RuntimeError{
		Code:       ErrCodeInvalidCommand,
		Message:    message,
		TimelineID: timelineID,
	}
}

// NewReplayMismatchError creates a RuntimeError for a diverging revision.
func NewReplayMismatchError(timelineID string, seq int64, recorded, replayed string) *RuntimeError {
	return &RuntimeError{
		Code:       ErrCodeReplayMismatch,
		Message:    fmt.Sprintf("revision %d replayed to a different order", seq),
		TimelineID: timelineID,
		Details: map[string]string{
			"seq":      fmt.Sprintf("%d", seq),
			"recorded": recorded,
			"replayed": replayed,
		},
	}
}
