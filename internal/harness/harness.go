package harness

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/whitphx/tlanislide/internal/compiler"
	"github.com/whitphx/tlanislide/internal/engine"
	"github.com/whitphx/tlanislide/internal/ir"
	"github.com/whitphx/tlanislide/internal/order"
	"github.com/whitphx/tlanislide/internal/store"
	"github.com/whitphx/tlanislide/internal/testutil"
)

// Harness drives one scenario through a running engine.
type Harness struct {
	engine     *engine.Engine
	timelineID string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a deterministic
// clock and id generator.
//
// Execution flow:
// 1. Seed the timeline (inline cues or CUE document) and import it
// 2. Execute steps, checking expect_error on each
// 3. Read the final order and evaluate assertions
//
// The returned error covers infrastructure failures only; scenario
// failures are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	tl, err := seedTimeline(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to seed timeline: %w", err)
	}

	opts := []engine.EngineOption{
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithIDGenerator(testutil.NewSequentialIDGenerator("cue")),
	}
	if scenario.MaxCues > 0 {
		opts = append(opts, engine.WithMaxCues(scenario.MaxCues))
	}
	eng := engine.New(st, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()
	defer func() {
		eng.Stop()
		<-done
	}()

	h := &Harness{engine: eng, timelineID: tl.ID}
	result := NewResult()

	_, importErr := eng.Submit(ctx, engine.Command{Op: ir.OpImport, TimelineID: tl.ID, Timeline: tl})
	if scenario.ExpectError != "" {
		checkExpectedError(result, "import", scenario.ExpectError, importErr)
		return result, nil
	}
	if importErr != nil {
		result.AddError(fmt.Sprintf("import: unexpected error: %v", importErr))
		return result, nil
	}

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	final, err := eng.Submit(ctx, engine.Command{Op: engine.OpOrder, TimelineID: tl.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to read final order: %w", err)
	}
	result.Groups = groupIDs(final.Groups)
	result.FinalHash = final.OrderHash

	for _, msg := range EvaluateAssertions(final, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// executeStep submits one step and records it in the trace.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	cmd, err := h.command(step)
	if err != nil {
		return err
	}

	out, submitErr := h.engine.Submit(ctx, cmd)
	if errors.Is(submitErr, engine.ErrStopped) {
		return submitErr
	}

	rec := StepRecord{Step: i, Op: step.Op}
	if submitErr != nil {
		rec.Error = errorClass(submitErr)
	} else {
		rec.Seq = out.Seq
		rec.Changed = out.Changed
		rec.CueID = out.CueID
		rec.Hash = out.OrderHash
		rec.Groups = groupIDs(out.Groups)
	}
	result.AddStep(rec)

	label := fmt.Sprintf("steps[%d] %s", i, step.Op)
	if step.ExpectError != "" {
		checkExpectedError(result, label, step.ExpectError, submitErr)
	} else if submitErr != nil {
		result.AddError(fmt.Sprintf("%s: unexpected error: %v", label, submitErr))
	}
	return nil
}

// command converts a step into an engine command.
func (h *Harness) command(step Step) (engine.Command, error) {
	cmd := engine.Command{TimelineID: h.timelineID, Target: step.Target, Dest: step.Dest}

	switch step.Op {
	case StepMove:
		cmd.Op = ir.OpMove
		cmd.Placement = ir.Placement(step.Placement)
	case StepInsert:
		cmd.Op = ir.OpInsert
		c, err := step.Cue.toCue(ir.SentinelIndex)
		if err != nil {
			return engine.Command{}, err
		}
		cmd.Cue = c
	case StepRemove:
		cmd.Op = ir.OpRemove
	case StepOrder:
		cmd.Op = engine.OpOrder
	default:
		return engine.Command{}, fmt.Errorf("unknown op %q", step.Op)
	}
	return cmd, nil
}

// seedTimeline builds the scenario's initial timeline. Inline cues without
// an index take their position among the cues of the same track.
func seedTimeline(s *Scenario) (*ir.Timeline, error) {
	if s.Timeline != "" {
		return loadTimelineFile(s.Timeline)
	}

	tl := &ir.Timeline{ID: s.Name, Title: s.Description, Cues: []ir.Cue{}}
	perTrack := make(map[string]int64)
	for _, f := range s.Cues {
		c, err := f.toCue(perTrack[f.Track])
		if err != nil {
			return nil, err
		}
		perTrack[f.Track]++
		tl.Cues = append(tl.Cues, c)
	}
	return tl, nil
}

// loadTimelineFile compiles the first timeline of a CUE document.
func loadTimelineFile(path string) (*ir.Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	timelines, err := compiler.CompileTimelines(v)
	if err != nil {
		return nil, err
	}
	if len(timelines) == 0 {
		return nil, fmt.Errorf("%s: no timeline defined", path)
	}
	return timelines[0], nil
}

// errorClass maps an engine error to a scenario error class.
func errorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case order.IsConflict(err):
		return ErrorConflict
	case engine.IsUnknownCueError(err):
		return ErrorUnknownCue
	case engine.IsQuotaError(err):
		return ErrorQuota
	case engine.IsInvalidCommandError(err):
		return ErrorInvalid
	default:
		return err.Error()
	}
}

func checkExpectedError(result *Result, label, want string, err error) {
	if err == nil {
		result.AddError(fmt.Sprintf("%s: expected %s error, got success", label, want))
		return
	}
	if got := errorClass(err); got != want {
		result.AddError(fmt.Sprintf("%s: expected %s error, got %s", label, want, got))
	}
}

// groupIDs renders groups as id lists.
func groupIDs(groups []ir.CueGroup) [][]string {
	out := make([][]string, len(groups))
	for i, g := range groups {
		out[i] = g.IDs()
	}
	return out
}
