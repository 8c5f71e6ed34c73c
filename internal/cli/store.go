package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/whitphx/tlanislide/internal/engine"
	"github.com/whitphx/tlanislide/internal/ir"
	"github.com/whitphx/tlanislide/internal/order"
	"github.com/whitphx/tlanislide/internal/store"
)

// StoreOptions holds the flags shared by commands that work on a database.
type StoreOptions struct {
	*RootOptions
	Database string
	Timeline string
	MaxCues  int
}

// addStoreFlags registers --db and --timeline. --db is always required;
// --timeline only when requireTimeline is set.
func addStoreFlags(cmd *cobra.Command, opts *StoreOptions, requireTimeline bool) {
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVarP(&opts.Timeline, "timeline", "t", "", "timeline id")
	if requireTimeline {
		_ = cmd.MarkFlagRequired("timeline")
	}
}

// openExistingStore opens a database that must already exist.
func openExistingStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// execCommand runs one engine command against the store.
func execCommand(ctx context.Context, st *store.Store, opts *StoreOptions, cmd engine.Command) (engine.Outcome, error) {
	var engineOpts []engine.EngineOption
	if opts.MaxCues != 0 {
		engineOpts = append(engineOpts, engine.WithMaxCues(opts.MaxCues))
	}
	return engine.Exec(ctx, st, cmd, engineOpts...)
}

// OrderView is the CLI rendering of a timeline order.
type OrderView struct {
	TimelineID string     `json:"timeline_id"`
	Op         ir.Op      `json:"op,omitempty"`
	Seq        int64      `json:"seq,omitempty"`
	Changed    bool       `json:"changed"`
	CueID      string     `json:"cue_id,omitempty"`
	OrderHash  string     `json:"order_hash"`
	Groups     [][]string `json:"groups"`
	Cues       []ir.Cue   `json:"cues"`

	groups []ir.CueGroup
}

func newOrderView(out engine.Outcome) OrderView {
	return OrderView{
		TimelineID: out.TimelineID,
		Op:         out.Op,
		Seq:        out.Seq,
		Changed:    out.Changed,
		CueID:      out.CueID,
		OrderHash:  out.OrderHash,
		Groups:     groupIDs(out.Groups),
		Cues:       out.Cues,
		groups:     out.Groups,
	}
}

// String renders the view as text: a summary line and the grid.
func (v OrderView) String() string {
	summary := fmt.Sprintf("%s  hash=%s", v.TimelineID, shortHash(v.OrderHash))
	switch {
	case v.Seq != 0:
		summary += fmt.Sprintf("  seq=%d", v.Seq)
	case v.Op != "" && v.Op != engine.OpOrder && !v.Changed:
		summary += "  (unchanged)"
	}
	if v.CueID != "" {
		summary += "  cue=" + v.CueID
	}
	if len(v.groups) == 0 {
		return summary + "\n(no cues)"
	}
	return summary + "\n" + renderGrid(v.groups)
}

func groupIDs(groups []ir.CueGroup) [][]string {
	out := make([][]string, len(groups))
	for i, g := range groups {
		out[i] = g.IDs()
	}
	return out
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// failCommand reports err through the formatter and converts it to an
// ExitError. Rejected commands exit 1; infrastructure errors exit 2.
func failCommand(f *OutputFormatter, err error) error {
	code, exit := classifyError(err)
	_ = f.Error(code, err.Error(), errorDetails(err))
	return WrapExitError(exit, code, err)
}

// classifyError maps an error to a CLI error code and exit code.
func classifyError(err error) (string, int) {
	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		return ErrCodeGeneric, exitErr.Code
	case order.IsConflict(err):
		return ErrCodeConflict, ExitFailure
	case engine.IsUnknownCueError(err):
		return ErrCodeUnknownCue, ExitFailure
	case engine.IsQuotaError(err):
		return ErrCodeQuota, ExitFailure
	case engine.IsInvalidCommandError(err):
		return ErrCodeInvalid, ExitFailure
	case engine.IsReplayMismatch(err):
		return ErrCodeReplay, ExitFailure
	case errors.Is(err, store.ErrTimelineNotFound):
		return ErrCodeNotFound, ExitCommandError
	case errors.Is(err, store.ErrTimelineExists):
		return ErrCodeStore, ExitFailure
	default:
		return ErrCodeGeneric, ExitCommandError
	}
}

// errorDetails extracts structured context for the JSON envelope.
func errorDetails(err error) interface{} {
	if ce, ok := order.AsConflict(err); ok {
		return ce
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return re.Details
	}
	return nil
}
