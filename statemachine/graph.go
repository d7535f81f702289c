package statemachine

import (
	"errors"
	"fmt"
	"strings"
)

// StateDecl describes a state in a Graph: the outcome kinds it may complete
// with and whether a factory is registered for it.
type StateDecl struct {
	Kind       StateKind     `yaml:"kind"`
	Outcomes   []OutcomeKind `yaml:"outcomes"`
	HasFactory bool          `yaml:"-"`
}

// Graph is the static shape of a machine. It is what the self-test checks
// and what the visualizer renders.
type Graph struct {
	Name        string       `yaml:"name"`
	Start       StateKind    `yaml:"start"`
	Terminal    StateKind    `yaml:"terminal"`
	States      []StateDecl  `yaml:"states"`
	Transitions []Transition `yaml:"transitions"`
}

// Decl returns the declaration of kind.
func (g Graph) Decl(kind StateKind) (StateDecl, bool) {
	for _, d := range g.States {
		if d.Kind == kind {
			return d, true
		}
	}

	return StateDecl{}, false
}

// Successors returns the distinct targets reachable in one step from kind.
func (g Graph) Successors(kind StateKind) []StateKind {
	var out []StateKind

	seen := map[StateKind]bool{}

	for _, t := range g.Transitions {
		if t.From == kind && !seen[t.To] {
			seen[t.To] = true
			out = append(out, t.To)
		}
	}

	return out
}

// Reachable returns every state reachable from the start state, the start
// and terminal states included when reachable.
func (g Graph) Reachable() map[StateKind]bool {
	reachable := map[StateKind]bool{g.Start: true}

	queue := []StateKind{g.Start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range g.Successors(current) {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	return reachable
}

// Severity ranks an Issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}

	return "error"
}

// Issue is a single finding of Graph.Check.
type Issue struct {
	Severity Severity
	Rule     string
	State    StateKind
	Outcome  OutcomeKind
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s [%s]: %s", i.Severity, i.Rule, i.Message)
}

// Issues is the result of a check.
type Issues []Issue

// Errors returns only the error-severity issues.
func (is Issues) Errors() Issues {
	return is.filter(SeverityError)
}

// Warnings returns only the warning-severity issues.
func (is Issues) Warnings() Issues {
	return is.filter(SeverityWarning)
}

func (is Issues) filter(sev Severity) Issues {
	var out Issues

	for _, i := range is {
		if i.Severity == sev {
			out = append(out, i)
		}
	}

	return out
}

// Err folds error-severity issues into one error wrapping ErrInvalidGraph,
// or returns nil when there are none.
func (is Issues) Err() error {
	errs := is.Errors()
	if len(errs) == 0 {
		return nil
	}

	lines := make([]string, 0, len(errs))
	for _, i := range errs {
		lines = append(lines, i.String())
	}

	return fmt.Errorf("%w:\n  %s", ErrInvalidGraph, strings.Join(lines, "\n  "))
}

// Check runs every rule against the graph.
func (g Graph) Check() Issues {
	var issues Issues

	for _, rule := range graphRules() {
		issues = append(issues, rule.Check(g)...)
	}

	return issues
}

// Validate runs Check and returns its errors, if any.
func (g Graph) Validate() error {
	err := g.Check().Err()
	if err != nil && g.Name != "" {
		return fmt.Errorf("%s: %w", g.Name, err)
	}

	return err
}

var errNoTerminal = errors.New("terminal state is required")
