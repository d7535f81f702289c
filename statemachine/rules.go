package statemachine

import (
	"fmt"
	"slices"
)

// graphRule is one self-test check.
type graphRule interface {
	Name() string
	Check(g Graph) Issues
}

func graphRules() []graphRule {
	return []graphRule{
		&endpointsRule{},
		&duplicateStateRule{},
		&duplicateTransitionRule{},
		&terminalEdgeRule{},
		&unknownStateRule{},
		&undeclaredOutcomeRule{},
		&missingTransitionRule{},
		&missingFactoryRule{},
		&unreachableStateRule{},
		&deadEndRule{},
	}
}

func errorIssue(rule string, state StateKind, outcome OutcomeKind, format string, args ...any) Issue {
	return Issue{
		Severity: SeverityError,
		Rule:     rule,
		State:    state,
		Outcome:  outcome,
		Message:  fmt.Sprintf(format, args...),
	}
}

func warningIssue(rule string, state StateKind, format string, args ...any) Issue {
	return Issue{
		Severity: SeverityWarning,
		Rule:     rule,
		State:    state,
		Message:  fmt.Sprintf(format, args...),
	}
}

// endpointsRule: the start state is declared, the terminal is named and is not a state.
type endpointsRule struct{}

func (r *endpointsRule) Name() string { return "Endpoints" }

func (r *endpointsRule) Check(g Graph) Issues {
	var out Issues

	if g.Terminal == "" {
		out = append(out, errorIssue(r.Name(), "", "", "%v", errNoTerminal))
	} else if _, ok := g.Decl(g.Terminal); ok {
		out = append(out, errorIssue(r.Name(), g.Terminal, "",
			"terminal %s must not be declared as a state", g.Terminal))
	}

	if _, ok := g.Decl(g.Start); !ok {
		out = append(out, errorIssue(r.Name(), g.Start, "", "start state %q is not declared", g.Start))
	}

	return out
}

type duplicateStateRule struct{}

func (r *duplicateStateRule) Name() string { return "DuplicateState" }

func (r *duplicateStateRule) Check(g Graph) Issues {
	var out Issues

	seen := map[StateKind]bool{}

	for _, d := range g.States {
		if d.Kind == "" {
			out = append(out, errorIssue(r.Name(), "", "", "state with empty kind"))

			continue
		}

		if seen[d.Kind] {
			out = append(out, errorIssue(r.Name(), d.Kind, "", "state %s declared more than once", d.Kind))
		}

		seen[d.Kind] = true
	}

	return out
}

type duplicateTransitionRule struct{}

func (r *duplicateTransitionRule) Name() string { return "DuplicateTransition" }

func (r *duplicateTransitionRule) Check(g Graph) Issues {
	var out Issues

	seen := map[transitionKey]StateKind{}

	for _, t := range g.Transitions {
		key := transitionKey{t.From, t.On}
		if prev, ok := seen[key]; ok {
			out = append(out, errorIssue(r.Name(), t.From, t.On,
				"%s on %s leads to both %s and %s", t.From, t.On, prev, t.To))

			continue
		}

		seen[key] = t.To
	}

	return out
}

type terminalEdgeRule struct{}

func (r *terminalEdgeRule) Name() string { return "TerminalEdge" }

func (r *terminalEdgeRule) Check(g Graph) Issues {
	var out Issues

	for _, t := range g.Transitions {
		if t.From == g.Terminal {
			out = append(out, errorIssue(r.Name(), t.From, t.On, "terminal has outgoing transition %s", t))
		}
	}

	return out
}

type unknownStateRule struct{}

func (r *unknownStateRule) Name() string { return "UnknownState" }

func (r *unknownStateRule) Check(g Graph) Issues {
	var out Issues

	for _, t := range g.Transitions {
		if _, ok := g.Decl(t.From); !ok && t.From != g.Terminal {
			out = append(out, errorIssue(r.Name(), t.From, t.On, "transition %s starts at undeclared state", t))
		}

		if _, ok := g.Decl(t.To); !ok && t.To != g.Terminal {
			out = append(out, errorIssue(r.Name(), t.To, t.On, "transition %s targets undeclared state", t))
		}
	}

	return out
}

// undeclaredOutcomeRule: every row's outcome is one its source state declares.
type undeclaredOutcomeRule struct{}

func (r *undeclaredOutcomeRule) Name() string { return "UndeclaredOutcome" }

func (r *undeclaredOutcomeRule) Check(g Graph) Issues {
	var out Issues

	for _, t := range g.Transitions {
		d, ok := g.Decl(t.From)
		if !ok {
			continue
		}

		if !slices.Contains(d.Outcomes, t.On) {
			out = append(out, errorIssue(r.Name(), t.From, t.On,
				"transition %s uses an outcome %s does not declare", t, t.From))
		}
	}

	return out
}

// missingTransitionRule: every declared (state, outcome) pair has a row.
type missingTransitionRule struct{}

func (r *missingTransitionRule) Name() string { return "MissingTransition" }

func (r *missingTransitionRule) Check(g Graph) Issues {
	var out Issues

	covered := map[transitionKey]bool{}
	for _, t := range g.Transitions {
		covered[transitionKey{t.From, t.On}] = true
	}

	for _, d := range g.States {
		for _, o := range d.Outcomes {
			if !covered[transitionKey{d.Kind, o}] {
				out = append(out, errorIssue(r.Name(), d.Kind, o,
					"no transition for %s on %s", d.Kind, o))
			}
		}
	}

	return out
}

type missingFactoryRule struct{}

func (r *missingFactoryRule) Name() string { return "MissingFactory" }

func (r *missingFactoryRule) Check(g Graph) Issues {
	var out Issues

	for _, d := range g.States {
		if !d.HasFactory {
			out = append(out, errorIssue(r.Name(), d.Kind, "", "%v: %s", ErrNoFactory, d.Kind))
		}
	}

	return out
}

type unreachableStateRule struct{}

func (r *unreachableStateRule) Name() string { return "UnreachableState" }

func (r *unreachableStateRule) Check(g Graph) Issues {
	var out Issues

	reachable := g.Reachable()

	for _, d := range g.States {
		if !reachable[d.Kind] {
			out = append(out, warningIssue(r.Name(), d.Kind, "state %s is unreachable from %s", d.Kind, g.Start))
		}
	}

	return out
}

// deadEndRule warns about states from which the terminal cannot be reached.
type deadEndRule struct{}

func (r *deadEndRule) Name() string { return "DeadEnd" }

func (r *deadEndRule) Check(g Graph) Issues {
	var out Issues

	canFinish := map[StateKind]bool{g.Terminal: true}

	for changed := true; changed; {
		changed = false

		for _, t := range g.Transitions {
			if canFinish[t.To] && !canFinish[t.From] {
				canFinish[t.From] = true
				changed = true
			}
		}
	}

	for _, d := range g.States {
		if !canFinish[d.Kind] {
			out = append(out, warningIssue(r.Name(), d.Kind, "state %s can never reach %s", d.Kind, g.Terminal))
		}
	}

	return out
}
