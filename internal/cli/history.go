package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/whitphx/tlanislide/internal/ir"
)

// RevisionView is one history entry.
type RevisionView struct {
	Seq       int64     `json:"seq"`
	Op        ir.Op     `json:"op"`
	Args      ir.Object `json:"args"`
	OrderHash string    `json:"order_hash"`
	Cues      int       `json:"cues"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List a timeline's revisions",
		Long: `List the recorded revisions of a timeline in seq order.

Each revision shows the operation, its arguments and the order hash after
it. Pass a hash to show --at to see that order.

Example:
  tlanislide history --db ./slides.db -t intro`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	addStoreFlags(cmd, opts, true)

	return cmd
}

func runHistory(opts *StoreOptions, cmd *cobra.Command) error {
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

	if _, err := st.ReadTimeline(ctx, opts.Timeline); err != nil {
		return failCommand(formatter, err)
	}
	revs, err := st.ReadRevisions(ctx, opts.Timeline)
	if err != nil {
		return failCommand(formatter, err)
	}

	views := make([]RevisionView, len(revs))
	for i, rev := range revs {
		views[i] = RevisionView{
			Seq:       rev.Seq,
			Op:        rev.Op,
			Args:      rev.Args,
			OrderHash: rev.OrderHash,
			Cues:      len(rev.Snapshot),
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(views)
	}

	rows := make([][]string, len(views))
	for i, v := range views {
		args, err := ir.MarshalCanonical(v.Args)
		if err != nil {
			return failCommand(formatter, err)
		}
		rows[i] = []string{
			strconv.FormatInt(v.Seq, 10),
			string(v.Op),
			string(args),
			strconv.Itoa(v.Cues),
			shortHash(v.OrderHash),
		}
	}
	return formatter.Success(renderTable([]string{"seq", "op", "args", "cues", "hash"}, rows))
}
