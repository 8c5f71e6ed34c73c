package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/whitphx/tlanislide/internal/engine"
	"github.com/whitphx/tlanislide/internal/ir"
)

// MoveOptions holds flags for the move command.
type MoveOptions struct {
	StoreOptions
	Placement string
}

// InsertOptions holds flags for the insert command.
type InsertOptions struct {
	StoreOptions
	ID    string
	Track string
	Data  string
}

// NewMoveCommand creates the move command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MoveOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "move <cue-id> <dest>",
		Short: "Move a cue to another group",
		Long: `Move a cue to the group at position dest.

With --placement at (default) the cue joins that group; with after it gets
a new group right after it. Cues on the same track that the moved cue
slides past are pushed out of its way, so a track's cues keep their order.
A dest past the last group moves the cue to the end; a negative dest moves
it to the front; pass it after -- so it is not read as a flag.

Examples:
  tlanislide move --db ./slides.db -t intro k1 3
  tlanislide move --db ./slides.db -t intro k1 0 --placement after
  tlanislide move --db ./slides.db -t intro k3 -- -1`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(opts, args[0], args[1], cmd)
		},
	}

	addStoreFlags(cmd, &opts.StoreOptions, true)
	cmd.Flags().StringVar(&opts.Placement, "placement", string(ir.PlacementAt), "at|after")

	return cmd
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InsertOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "insert <dest>",
		Short: "Insert a new cue as its own group",
		Long: `Insert a new cue as a solitary group at position dest.

The group at dest and every later group shift one position. A dest past
the end appends. Without --id a UUIDv7 id is generated.

Examples:
  tlanislide insert --db ./slides.db -t intro --track circle 2
  tlanislide insert --db ./slides.db -t intro --track camera --id zoom1 --data '{"scale": 2}' 0`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(opts, args[0], cmd)
		},
	}

	addStoreFlags(cmd, &opts.StoreOptions, true)
	cmd.Flags().StringVar(&opts.Track, "track", "", "track of the new cue (required)")
	_ = cmd.MarkFlagRequired("track")
	cmd.Flags().StringVar(&opts.ID, "id", "", "id of the new cue (generated if empty)")
	cmd.Flags().StringVar(&opts.Data, "data", "", "JSON object payload")
	cmd.Flags().IntVar(&opts.MaxCues, "max-cues", 0, fmt.Sprintf("cue cap per timeline (default %d, -1 disables)", engine.DefaultMaxCues))

	return cmd
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "remove <cue-id>",
		Short: "Remove a cue",
		Long: `Remove a cue from a timeline and close the gap it leaves.

Example:
  tlanislide remove --db ./slides.db -t intro k2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(opts, cmd, engine.Command{Op: ir.OpRemove, Target: args[0]})
		},
	}

	addStoreFlags(cmd, opts, true)

	return cmd
}

func runMove(opts *MoveOptions, cueID, rawDest string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	dest, err := parseDest(rawDest)
	if err != nil {
		return failCommand(formatter, err)
	}
	placement, err := ir.ParsePlacement(opts.Placement)
	if err != nil {
		return failCommand(formatter, WrapExitError(ExitCommandError, "invalid --placement", err))
	}

	return runEdit(&opts.StoreOptions, cmd, engine.Command{
		Op:        ir.OpMove,
		Target:    cueID,
		Dest:      dest,
		Placement: placement,
	})
}

func runInsert(opts *InsertOptions, rawDest string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	dest, err := parseDest(rawDest)
	if err != nil {
		return failCommand(formatter, err)
	}

	data := ir.Object{}
	if opts.Data != "" {
		data, err = ir.ParseObject([]byte(opts.Data))
		if err != nil {
			return failCommand(formatter, WrapExitError(ExitCommandError, "invalid --data", err))
		}
	}

	return runEdit(&opts.StoreOptions, cmd, engine.Command{
		Op:   ir.OpInsert,
		Dest: dest,
		Cue: ir.Cue{
			ID:          opts.ID,
			TrackID:     opts.Track,
			GlobalIndex: ir.SentinelIndex,
			Data:        data,
		},
	})
}

// runEdit submits a mutating command for opts.Timeline and prints the
// resulting order.
func runEdit(opts *StoreOptions, cmd *cobra.Command, command engine.Command) error {
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

	command.TimelineID = opts.Timeline
	out, err := execCommand(ctx, st, opts, command)
	if err != nil {
		return failCommand(formatter, err)
	}

	formatter.VerboseLog("%s %s: changed=%t seq=%d", command.Op, opts.Timeline, out.Changed, out.Seq)
	return formatter.Success(newOrderView(out))
}

func parseDest(s string) (int, error) {
	dest, err := strconv.Atoi(s)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, fmt.Sprintf("invalid dest %q", s), err)
	}
	return dest, nil
}
