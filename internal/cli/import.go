package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/whitphx/tlanislide/internal/compiler"
	"github.com/whitphx/tlanislide/internal/engine"
	"github.com/whitphx/tlanislide/internal/ir"
	"github.com/whitphx/tlanislide/internal/store"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <timelines-dir>",
		Short: "Import timeline documents into a database",
		Long: `Validate CUE timeline documents and create them in a SQLite database.

The database is created if it does not exist. Each timeline is recorded as
its first revision. Importing an id that already exists is an error.

Examples:
  tlanislide import --db ./slides.db ./timelines
  tlanislide import --db ./slides.db ./timelines --timeline intro`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	addStoreFlags(cmd, opts, false)
	cmd.Flags().IntVar(&opts.MaxCues, "max-cues", 0, fmt.Sprintf("cue cap per timeline (default %d, -1 disables)", engine.DefaultMaxCues))

	return cmd
}

func runImport(opts *StoreOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadTimelines(dir, LoadModeFailFast)
	if loadResult == nil || len(loadErrors) > 0 {
		return outputLoadError(formatter, loadErrors[0])
	}

	timelines, err := selectTimelines(loadResult, opts.Timeline)
	if err != nil {
		return failCommand(formatter, err)
	}

	for _, tl := range timelines {
		if errs := compiler.Validate(tl); len(errs) > 0 {
			return outputValidationErrors(formatter, len(timelines), errs)
		}
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return failCommand(formatter, WrapExitError(ExitCommandError, "failed to open database", err))
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	views := make([]OrderView, 0, len(timelines))
	for _, tl := range timelines {
		formatter.VerboseLog("Importing timeline: %s (%d cues)", tl.ID, len(tl.Cues))
		out, err := execCommand(ctx, st, opts, engine.Command{
			Op:         ir.OpImport,
			TimelineID: tl.ID,
			Timeline:   tl,
		})
		if err != nil {
			return failCommand(formatter, fmt.Errorf("import %s: %w", tl.ID, err))
		}
		views = append(views, newOrderView(out))
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
