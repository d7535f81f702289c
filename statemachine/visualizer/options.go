package visualizer

import "github.com/amp-labs/amp-reconnect/statemachine"

// Options configures diagram output.
type Options struct {
	// ShowOutcomes labels edges with the outcome kind that triggers them.
	ShowOutcomes bool

	// Direction is the layout flow: "TB" (top to bottom) or "LR" (left to right).
	Direction string

	// HighlightPath marks the given states, e.g. the path a run took.
	HighlightPath []statemachine.StateKind
}

// DefaultOptions returns labelled, top-to-bottom output.
func DefaultOptions() Options {
	return Options{
		ShowOutcomes: true,
		Direction:    "TB",
	}
}

// WithShowOutcomes enables or disables edge labels.
func (o Options) WithShowOutcomes(show bool) Options {
	o.ShowOutcomes = show

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithHighlightPath sets the states to highlight.
func (o Options) WithHighlightPath(path []statemachine.StateKind) Options {
	o.HighlightPath = path

	return o
}

func (o Options) highlighted() map[statemachine.StateKind]bool {
	out := make(map[statemachine.StateKind]bool, len(o.HighlightPath))
	for _, s := range o.HighlightPath {
		out[s] = true
	}

	return out
}
