package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/whitphx/tlanislide/internal/engine"
	"github.com/whitphx/tlanislide/internal/ir"
	"github.com/whitphx/tlanislide/internal/order"
)

// AssertionError is returned when an assertion fails.
// It includes the final order to help debug the failure.
type AssertionError struct {
	Type     string     // Assertion type for categorization
	Expected string     // Human-readable expected outcome
	Actual   string     // Human-readable actual outcome
	Groups   [][]string // Final order for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFinal order:\n")
	for i, g := range e.Groups {
		fmt.Fprintf(&buf, "  [%d] %s\n", i, strings.Join(g, ", "))
	}

	return buf.String()
}

func assertGroupCount(groups [][]string, a Assertion) error {
	if len(groups) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertGroupCount,
		Expected: fmt.Sprintf("%d groups", a.Count),
		Actual:   fmt.Sprintf("%d groups", len(groups)),
		Groups:   groups,
	}
}

// assertGroups compares groups as sets: member order within a group is
// not significant.
func assertGroups(groups [][]string, a Assertion) error {
	if slices.EqualFunc(sortedSets(groups), sortedSets(a.Groups), func(x, y []string) bool { return slices.Equal(x, y) }) {
		return nil
	}
	return &AssertionError{
		Type:     AssertGroups,
		Expected: fmt.Sprintf("%v", a.Groups),
		Actual:   fmt.Sprintf("%v", groups),
		Groups:   groups,
	}
}

func assertSameGroup(groups [][]string, a Assertion) error {
	first := groupOf(groups, a.Cues[0])
	for _, id := range a.Cues[1:] {
		if g := groupOf(groups, id); first < 0 || g != first {
			return &AssertionError{
				Type:     AssertSameGroup,
				Expected: fmt.Sprintf("%v in one group", a.Cues),
				Actual:   fmt.Sprintf("%s in group %d, %s in group %d", a.Cues[0], first, id, g),
				Groups:   groups,
			}
		}
	}
	return nil
}

func assertBefore(groups [][]string, a Assertion) error {
	first, then := groupOf(groups, a.First), groupOf(groups, a.Then)
	if first >= 0 && then >= 0 && first < then {
		return nil
	}
	return &AssertionError{
		Type:     AssertBefore,
		Expected: fmt.Sprintf("%s before %s", a.First, a.Then),
		Actual:   fmt.Sprintf("%s in group %d, %s in group %d", a.First, first, a.Then, then),
		Groups:   groups,
	}
}

func assertNoConflict(groups [][]string, cues []ir.Cue) error {
	if _, err := order.ComputeOrder(cues); err != nil {
		return &AssertionError{
			Type:     AssertNoConflict,
			Expected: "conflict-free cues",
			Actual:   err.Error(),
			Groups:   groups,
		}
	}
	return nil
}

// EvaluateAssertions checks every assertion against the final order and
// returns one message per failure.
func EvaluateAssertions(final engine.Outcome, assertions []Assertion) []string {
	groups := groupIDs(final.Groups)

	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertGroupCount:
			err = assertGroupCount(groups, a)
		case AssertGroups:
			err = assertGroups(groups, a)
		case AssertSameGroup:
			err = assertSameGroup(groups, a)
		case AssertBefore:
			err = assertBefore(groups, a)
		case AssertNoConflict:
			err = assertNoConflict(groups, final.Cues)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

// groupOf returns the index of the group holding id, or -1.
func groupOf(groups [][]string, id string) int {
	for i, g := range groups {
		if slices.Contains(g, id) {
			return i
		}
	}
	return -1
}

func sortedSets(groups [][]string) [][]string {
	out := make([][]string, len(groups))
	for i, g := range groups {
		var sorted []string
		sorted = append(sorted, g...)
		slices.Sort(sorted)
		out[i] = sorted
	}
	return out
}
