package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/whitphx/tlanislide/internal/ir"
)

// Scenario defines a timeline ordering scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Timeline is the path of a CUE timeline document to seed from.
	// Relative paths are resolved against the scenario file location.
	// Mutually exclusive with Cues.
	Timeline string `yaml:"timeline,omitempty"`

	// Cues seeds the timeline inline.
	Cues []CueFixture `yaml:"cues,omitempty"`

	// ExpectError is the expected failure class of the initial import.
	// When set, steps are not run.
	ExpectError string `yaml:"expect_error,omitempty"`

	// MaxCues overrides the engine's per-timeline cue cap.
	MaxCues int `yaml:"max_cues,omitempty"`

	// Steps run in order after the import.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final order.
	Assertions []Assertion `yaml:"assertions"`
}

// CueFixture is a cue as written in a scenario.
type CueFixture struct {
	ID    string         `yaml:"id"`
	Track string         `yaml:"track"`
	Index *int64         `yaml:"index,omitempty"`
	Data  map[string]any `yaml:"data,omitempty"`
}

// Step is one engine command.
type Step struct {
	// Op is move, insert, remove or order.
	Op string `yaml:"op"`

	// Target is the cue to move or remove.
	Target string `yaml:"target,omitempty"`

	// Dest is the destination group for move and insert.
	Dest int `yaml:"dest,omitempty"`

	// Placement is "at" (default) or "after".
	Placement string `yaml:"placement,omitempty"`

	// Cue is the cue to insert. An empty id is generated.
	Cue *CueFixture `yaml:"cue,omitempty"`

	// ExpectError is the expected failure class of this step.
	// One of: conflict, unknown_cue, quota, invalid.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates the final order.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is the expected number of groups (group_count).
	Count int `yaml:"count,omitempty"`

	// Groups lists the expected groups as id sets (groups).
	Groups [][]string `yaml:"groups,omitempty"`

	// Cues lists cues expected to share a group (same_group).
	Cues []string `yaml:"cues,omitempty"`

	// First must sit in an earlier group than Then (before).
	First string `yaml:"first,omitempty"`
	Then  string `yaml:"then,omitempty"`
}

// Assertion type constants.
const (
	AssertGroupCount = "group_count"
	AssertGroups     = "groups"
	AssertSameGroup  = "same_group"
	AssertBefore     = "before"
	AssertNoConflict = "no_conflict"
)

// Step op constants.
const (
	StepMove   = "move"
	StepInsert = "insert"
	StepRemove = "remove"
	StepOrder  = "order"
)

// Expected error classes.
const (
	ErrorConflict   = "conflict"
	ErrorUnknownCue = "unknown_cue"
	ErrorQuota      = "quota"
	ErrorInvalid    = "invalid"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative timeline path is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the timeline path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Timeline != "" && !filepath.IsAbs(scenario.Timeline) && basePath != "" {
		scenario.Timeline = filepath.Join(basePath, scenario.Timeline)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every .yaml and .yml file in dir, sorted by path.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks required fields and field combinations.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Timeline != "" && len(s.Cues) > 0 {
		return fmt.Errorf("timeline and cues are mutually exclusive")
	}
	if s.Timeline != "" {
		if _, err := os.Stat(s.Timeline); os.IsNotExist(err) {
			return fmt.Errorf("timeline file not found: %s", s.Timeline)
		}
	}
	if s.ExpectError != "" && !isErrorClass(s.ExpectError) {
		return fmt.Errorf("expect_error: unknown error class %q", s.ExpectError)
	}
	if s.ExpectError == "" && len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, c := range s.Cues {
		if c.ID == "" || c.Track == "" {
			return fmt.Errorf("cues[%d]: id and track are required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single step based on its op.
func validateStep(index int, s *Step) error {
	switch s.Op {
	case StepMove:
		if s.Target == "" {
			return fmt.Errorf("steps[%d]: target is required for move", index)
		}
		if s.Placement != "" {
			if _, err := ir.ParsePlacement(s.Placement); err != nil {
				return fmt.Errorf("steps[%d]: %w", index, err)
			}
		}
	case StepInsert:
		if s.Cue == nil || s.Cue.Track == "" {
			return fmt.Errorf("steps[%d]: cue with a track is required for insert", index)
		}
	case StepRemove:
		if s.Target == "" {
			return fmt.Errorf("steps[%d]: target is required for remove", index)
		}
	case StepOrder:
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}

	if s.ExpectError != "" && !isErrorClass(s.ExpectError) {
		return fmt.Errorf("steps[%d]: unknown error class %q", index, s.ExpectError)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertGroupCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for group_count", index)
		}
	case AssertGroups:
		if a.Groups == nil {
			return fmt.Errorf("assertions[%d]: groups is required for groups", index)
		}
	case AssertSameGroup:
		if len(a.Cues) < 2 {
			return fmt.Errorf("assertions[%d]: at least two cues are required for same_group", index)
		}
	case AssertBefore:
		if a.First == "" || a.Then == "" {
			return fmt.Errorf("assertions[%d]: first and then are required for before", index)
		}
	case AssertNoConflict:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func isErrorClass(s string) bool {
	switch s {
	case ErrorConflict, ErrorUnknownCue, ErrorQuota, ErrorInvalid:
		return true
	}
	return false
}

// toCue converts a fixture into a cue. A fixture without an index takes
// fallback.
func (f CueFixture) toCue(fallback int64) (ir.Cue, error) {
	data := ir.Object{}
	if f.Data != nil {
		v, err := ir.FromGo(f.Data)
		if err != nil {
			return ir.Cue{}, fmt.Errorf("cue %q data: %w", f.ID, err)
		}
		data = v.(ir.Object)
	}

	index := fallback
	if f.Index != nil {
		index = *f.Index
	}
	return ir.Cue{ID: f.ID, TrackID: f.Track, GlobalIndex: index, Data: data}, nil
}
