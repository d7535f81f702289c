// Package visualizer renders state machine graphs as Graphviz DOT or Mermaid.
//
// DOT output draws states as rectangles, the start state as a diamond and
// the terminal as an ellipse, with one edge per transition row labelled by
// its outcome kind.
package visualizer

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"facette.io/natsort"
	"github.com/amp-labs/amp-reconnect/statemachine"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoStart    = errors.New("graph must have a start state")
	ErrNoTerminal = errors.New("graph must have a terminal state")
)

// Format selects an output syntax.
type Format string

const (
	FormatDOT     Format = "dot"
	FormatMermaid Format = "mermaid"
)

// ErrUnknownFormat is returned by Render for formats other than dot and mermaid.
var ErrUnknownFormat = errors.New("unknown diagram format")

// Render produces g in the given format with default options.
func Render(g statemachine.Graph, format Format) (string, error) {
	switch format {
	case FormatDOT:
		return GenerateDOT(g)
	case FormatMermaid:
		return GenerateMermaid(g)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// GenerateDOT renders g as a Graphviz digraph.
func GenerateDOT(g statemachine.Graph) (string, error) {
	return GenerateDOTWithOptions(g, DefaultOptions())
}

// GenerateDOTWithOptions renders g as a Graphviz digraph.
func GenerateDOTWithOptions(g statemachine.Graph, opts Options) (string, error) {
	if err := checkEndpoints(g); err != nil {
		return "", err
	}

	highlight := opts.highlighted()

	var sb strings.Builder

	if g.Name != "" {
		fmt.Fprintf(&sb, "digraph %q {\n", g.Name)
	} else {
		sb.WriteString("digraph {\n")
	}

	if opts.Direction != "" {
		fmt.Fprintf(&sb, "  rankdir=%q\n", opts.Direction)
	}

	sb.WriteString("  node [shape=\"rectangle\"]\n")

	for _, kind := range nodes(g) {
		var attrs []string

		switch kind {
		case g.Start:
			attrs = append(attrs, `shape="diamond"`)
		case g.Terminal:
			attrs = append(attrs, `shape="ellipse"`)
		}

		if highlight[kind] {
			attrs = append(attrs, `style="filled"`, `fillcolor="#fff9c4"`)
		}

		if len(attrs) == 0 {
			fmt.Fprintf(&sb, "  %q\n", string(kind))
		} else {
			fmt.Fprintf(&sb, "  %q [%s]\n", string(kind), strings.Join(attrs, " "))
		}
	}

	for _, t := range g.Transitions {
		if opts.ShowOutcomes {
			fmt.Fprintf(&sb, "  %q -> %q [label=%q]\n", string(t.From), string(t.To), string(t.On))
		} else {
			fmt.Fprintf(&sb, "  %q -> %q\n", string(t.From), string(t.To))
		}
	}

	sb.WriteString("}\n")

	return sb.String(), nil
}

// GenerateMermaid renders g as a Mermaid state diagram.
func GenerateMermaid(g statemachine.Graph) (string, error) {
	return GenerateMermaidWithOptions(g, DefaultOptions())
}

// GenerateMermaidWithOptions renders g as a Mermaid state diagram. The
// terminal state is drawn as Mermaid's end marker.
func GenerateMermaidWithOptions(g statemachine.Graph, opts Options) (string, error) {
	if err := checkEndpoints(g); err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString("stateDiagram-v2\n")

	if opts.Direction != "" {
		fmt.Fprintf(&sb, "    direction %s\n", opts.Direction)
	}

	fmt.Fprintf(&sb, "    [*] --> %s\n", g.Start)

	for _, t := range g.Transitions {
		to := string(t.To)
		if t.To == g.Terminal {
			to = "[*]"
		}

		if opts.ShowOutcomes {
			fmt.Fprintf(&sb, "    %s --> %s: %s\n", t.From, to, t.On)
		} else {
			fmt.Fprintf(&sb, "    %s --> %s\n", t.From, to)
		}
	}

	if len(opts.HighlightPath) > 0 {
		sb.WriteString("\n")
		sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")

		for _, kind := range nodes(g) {
			if opts.highlighted()[kind] && kind != g.Terminal {
				fmt.Fprintf(&sb, "    class %s highlighted\n", kind)
			}
		}
	}

	return sb.String(), nil
}

// GenerateFromFile loads a YAML graph description and renders it.
func GenerateFromFile(path string, format Format) (string, error) {
	g, err := LoadGraph(path)
	if err != nil {
		return "", err
	}

	return Render(g, format)
}

// LoadGraph reads a YAML graph description with name, start, terminal,
// states and transitions keys.
func LoadGraph(path string) (statemachine.Graph, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return statemachine.Graph{}, fmt.Errorf("failed to read file: %w", err)
	}

	var g statemachine.Graph
	if err := yaml.Unmarshal(data, &g); err != nil {
		return statemachine.Graph{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return g, nil
}

func checkEndpoints(g statemachine.Graph) error {
	if g.Start == "" {
		return ErrNoStart
	}

	if g.Terminal == "" {
		return ErrNoTerminal
	}

	return nil
}

// nodes returns every state mentioned by g in natural order, start first and
// terminal last.
func nodes(g statemachine.Graph) []statemachine.StateKind {
	seen := map[statemachine.StateKind]bool{g.Start: true, g.Terminal: true}

	var names []string

	add := func(k statemachine.StateKind) {
		if !seen[k] {
			seen[k] = true
			names = append(names, string(k))
		}
	}

	for _, d := range g.States {
		add(d.Kind)
	}

	for _, t := range g.Transitions {
		add(t.From)
		add(t.To)
	}

	natsort.Sort(names)

	out := make([]statemachine.StateKind, 0, len(names)+2)
	out = append(out, g.Start)

	for _, n := range names {
		out = append(out, statemachine.StateKind(n))
	}

	return append(out, g.Terminal)
}
