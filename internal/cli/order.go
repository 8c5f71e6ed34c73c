package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/whitphx/tlanislide/internal/engine"
	"github.com/whitphx/tlanislide/internal/ir"
	"github.com/whitphx/tlanislide/internal/order"
)

// OrderOptions holds flags for the order command.
type OrderOptions struct {
	*RootOptions
	Timeline string
}

// NewOrderCommand creates the order command.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "order <timelines-dir>",
		Short: "Compute the cue order of timeline documents",
		Long: `Compute and print the resolved group order of CUE timeline documents.

Indices are normalized to dense positions before printing. No database is
used; see import for persisting a timeline.

Examples:
  tlanislide order ./timelines
  tlanislide order ./timelines --timeline intro --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrder(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Timeline, "timeline", "t", "", "only this timeline")

	return cmd
}

func runOrder(opts *OrderOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadTimelines(dir, LoadModeFailFast)
	if loadResult == nil || len(loadErrors) > 0 {
		return outputLoadError(formatter, loadErrors[0])
	}

	timelines, err := selectTimelines(loadResult, opts.Timeline)
	if err != nil {
		return failCommand(formatter, err)
	}

	views := make([]OrderView, 0, len(timelines))
	for _, tl := range timelines {
		view, err := computeView(tl)
		if err != nil {
			return failCommand(formatter, fmt.Errorf("timeline %s: %w", tl.ID, err))
		}
		views = append(views, view)
	}

	if formatter.Format == "json" {
		return formatter.Success(views)
	}
	parts := make([]string, len(views))
	for i, v := range views {
		parts[i] = v.String()
	}
	return formatter.Success(strings.Join(parts, "\n\n"))
}

// computeView normalizes a document timeline and derives its order.
func computeView(tl *ir.Timeline) (OrderView, error) {
	cues, err := order.Normalize(tl.Cues)
	if err != nil {
		return OrderView{}, err
	}
	cues = ir.CanonicalOrder(cues)
	groups, err := order.ComputeOrder(cues)
	if err != nil {
		return OrderView{}, err
	}
	hash, err := ir.OrderHash(cues)
	if err != nil {
		return OrderView{}, err
	}
	return newOrderView(engine.Outcome{
		TimelineID: tl.ID,
		OrderHash:  hash,
		Cues:       cues,
		Groups:     groups,
	}), nil
}

// selectTimelines returns all loaded timelines, or only id if set.
func selectTimelines(r *LoadResult, id string) ([]*ir.Timeline, error) {
	if id == "" {
		return r.Timelines, nil
	}
	tl := r.Find(id)
	if tl == nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("timeline %q not found in documents", id))
	}
	return []*ir.Timeline{tl}, nil
}
