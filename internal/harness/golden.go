package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/whitphx/tlanislide/internal/ir"
)

// OrderSnapshot captures the observable ordering of a scenario run.
// Hashes are left out so snapshots stay readable; group membership and
// seqs pin the behaviour.
type OrderSnapshot struct {
	ScenarioName string
	Steps        []StepRecord
	Groups       [][]string
}

// toCanonicalMap converts a snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *OrderSnapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Steps))
	for i, rec := range s.Steps {
		m := map[string]any{
			"step":    rec.Step,
			"op":      rec.Op,
			"changed": rec.Changed,
		}
		if rec.Seq != 0 {
			m["seq"] = rec.Seq
		}
		if rec.CueID != "" {
			m["cue_id"] = rec.CueID
		}
		if rec.Groups != nil {
			m["groups"] = groupsToAny(rec.Groups)
		}
		if rec.Error != "" {
			m["error"] = rec.Error
		}
		steps[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"steps":         steps,
		"groups":        groupsToAny(s.Groups),
	}
}

func groupsToAny(groups [][]string) []any {
	out := make([]any, len(groups))
	for i, g := range groups {
		ids := make([]any, len(g))
		for j, id := range g {
			ids[j] = id
		}
		out[i] = ids
	}
	return out
}

// RunWithGolden executes a scenario and compares its order snapshot
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := OrderSnapshot{
		ScenarioName: scenarioName,
		Steps:        result.Trace,
		Groups:       result.Groups,
	}

	data, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
