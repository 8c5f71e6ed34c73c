package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/whitphx/tlanislide/internal/engine"
	"github.com/whitphx/tlanislide/internal/order"
	"github.com/whitphx/tlanislide/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	StoreOptions
	At string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show timelines or one timeline's order",
		Long: `Without --timeline, list the timelines in the database.
With --timeline, print its current order as a grid of groups and tracks.
With --at <order-hash>, print the order recorded under that hash instead.

Examples:
  tlanislide show --db ./slides.db
  tlanislide show --db ./slides.db -t intro
  tlanislide show --db ./slides.db -t intro --at 3f9a...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}

	addStoreFlags(cmd, &opts.StoreOptions, false)
	cmd.Flags().StringVar(&opts.At, "at", "", "show the revision with this order hash")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command) error {
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

	switch {
	case opts.Timeline == "" && opts.At != "":
		return failCommand(formatter, NewExitError(ExitCommandError, "--at requires --timeline"))
	case opts.Timeline == "":
		return showList(ctx, st, formatter)
	case opts.At != "":
		return showAt(ctx, st, formatter, opts.Timeline, opts.At)
	}

	out, err := execCommand(ctx, st, &opts.StoreOptions, engine.Command{Op: engine.OpOrder, TimelineID: opts.Timeline})
	if err != nil {
		return failCommand(formatter, err)
	}
	return formatter.Success(newOrderView(out))
}

func showList(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	summaries, err := st.ListTimelines(ctx)
	if err != nil {
		return failCommand(formatter, err)
	}

	if formatter.Format == "json" {
		if summaries == nil {
			summaries = []store.TimelineSummary{}
		}
		return formatter.Success(summaries)
	}
	if len(summaries) == 0 {
		return formatter.Success("No timelines found.")
	}

	rows := make([][]string, len(summaries))
	for i, s := range summaries {
		rows[i] = []string{
			s.ID,
			s.Title,
			strconv.Itoa(s.CueCount),
			strconv.FormatInt(s.CreatedSeq, 10),
			strconv.FormatInt(s.LatestSeq, 10),
		}
	}
	return formatter.Success(renderTable([]string{"id", "title", "cues", "created", "latest"}, rows))
}

func showAt(ctx context.Context, st *store.Store, formatter *OutputFormatter, timelineID, hash string) error {
	rev, found, err := st.FindRevisionByHash(ctx, timelineID, hash)
	if err != nil {
		return failCommand(formatter, err)
	}
	if !found {
		return failCommand(formatter, NewExitError(ExitFailure,
			fmt.Sprintf("no revision of %s has order hash %s", timelineID, hash)))
	}

	groups, err := order.ComputeOrder(rev.Snapshot)
	if err != nil {
		return failCommand(formatter, err)
	}
	return formatter.Success(newOrderView(engine.Outcome{
		TimelineID: timelineID,
		Op:         rev.Op,
		Seq:        rev.Seq,
		Changed:    true,
		OrderHash:  rev.OrderHash,
		Cues:       rev.Snapshot,
		Groups:     groups,
	}))
}
