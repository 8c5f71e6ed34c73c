package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/whitphx/tlanislide/internal/engine"
)

// ReplaySummary holds the overall replay result.
type ReplaySummary struct {
	Timelines        []engine.ReplayResult `json:"timelines"`
	Total            int                   `json:"total"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay revision history and verify determinism",
		Long: `Re-apply every recorded operation from each timeline's import and
compare the resulting order hashes with the recorded ones.

Exit codes:
  0 - Every revision reproduced its recorded hash
  1 - Replay diverged from the recorded history
  2 - Command error (database not found, etc.)

Examples:
  tlanislide replay --db ./slides.db
  tlanislide replay --db ./slides.db -t intro --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	addStoreFlags(cmd, opts, false)

	return cmd
}

func runReplay(opts *StoreOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return failCommand(formatter, err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var ids []string
	if opts.Timeline != "" {
		ids = []string{opts.Timeline}
	} else {
		summaries, err := st.ListTimelines(ctx)
		if err != nil {
			return failCommand(formatter, err)
		}
		for _, s := range summaries {
			ids = append(ids, s.ID)
		}
	}

	summary := ReplaySummary{
		Timelines:        make([]engine.ReplayResult, 0, len(ids)),
		Total:            len(ids),
		AllDeterministic: true,
	}
	for _, id := range ids {
		formatter.VerboseLog("Replaying timeline: %s", id)
		res, err := engine.Replay(ctx, st, id)
		if err != nil {
			return failCommand(formatter, fmt.Errorf("replay %s: %w", id, err))
		}
		summary.Timelines = append(summary.Timelines, res)
		if !res.OK() {
			summary.AllDeterministic = false
		}
	}

	if formatter.Format == "json" {
		if err := formatter.Success(summary); err != nil {
			return err
		}
	} else {
		outputReplayText(formatter, summary)
	}

	if !summary.AllDeterministic {
		return NewExitError(ExitFailure, "replay diverged from recorded history")
	}
	return nil
}

func outputReplayText(formatter *OutputFormatter, summary ReplaySummary) {
	if summary.Total == 0 {
		fmt.Fprintln(formatter.Writer, "No timelines found in database.")
		return
	}

	rows := make([][]string, len(summary.Timelines))
	for i, r := range summary.Timelines {
		status := "✓"
		if !r.OK() {
			status = "✗"
		}
		rows[i] = []string{status, r.TimelineID, strconv.Itoa(r.Revisions), shortHash(r.FinalHash)}
	}
	fmt.Fprintln(formatter.Writer, renderTable([]string{"", "timeline", "revisions", "hash"}, rows))

	for _, r := range summary.Timelines {
		for _, m := range r.Mismatches {
			if m.Error != "" {
				fmt.Fprintf(formatter.Writer, "%s seq %d (%s): %s\n", r.TimelineID, m.Seq, m.Op, m.Error)
				continue
			}
			fmt.Fprintf(formatter.Writer, "%s seq %d (%s): recorded %s, replayed %s\n",
				r.TimelineID, m.Seq, m.Op, shortHash(m.Recorded), shortHash(m.Replayed))
		}
		if !r.SnapshotMatches {
			fmt.Fprintf(formatter.Writer, "%s: current cues differ from the last revision: %s\n",
				r.TimelineID, strings.Join(r.DriftedCues, ", "))
		}
	}

	if summary.AllDeterministic {
		fmt.Fprintf(formatter.Writer, "✓ %d timeline(s) replayed deterministically\n", summary.Total)
	}
}
