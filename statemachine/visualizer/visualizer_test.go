package visualizer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amp-labs/amp-reconnect/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGraph() statemachine.Graph {
	return statemachine.Graph{
		Name:     "blink",
		Start:    "On",
		Terminal: "Off",
		States: []statemachine.StateDecl{
			{Kind: "On", Outcomes: []statemachine.OutcomeKind{"Dim", "ShutdownAck"}},
			{Kind: "Dim2", Outcomes: []statemachine.OutcomeKind{"ShutdownAck"}},
			{Kind: "Dim10", Outcomes: []statemachine.OutcomeKind{"ShutdownAck"}},
		},
		Transitions: []statemachine.Transition{
			statemachine.On("On", "Dim", "Dim2"),
			statemachine.On("On", "ShutdownAck", "Off"),
			statemachine.On("Dim2", "ShutdownAck", "Dim10"),
			statemachine.On("Dim10", "ShutdownAck", "Off"),
		},
	}
}

func TestGenerateDOT(t *testing.T) {
	t.Parallel()

	out, err := GenerateDOTWithOptions(testGraph(), DefaultOptions().WithDirection(""))
	require.NoError(t, err)

	want := `digraph "blink" {
  node [shape="rectangle"]
  "On" [shape="diamond"]
  "Dim2"
  "Dim10"
  "Off" [shape="ellipse"]
  "On" -> "Dim2" [label="Dim"]
  "On" -> "Off" [label="ShutdownAck"]
  "Dim2" -> "Dim10" [label="ShutdownAck"]
  "Dim10" -> "Off" [label="ShutdownAck"]
}
`
	assert.Equal(t, want, out)
}

func TestGenerateDOTOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions().
		WithShowOutcomes(false).
		WithDirection("LR").
		WithHighlightPath([]statemachine.StateKind{"Dim2"})

	out, err := GenerateDOTWithOptions(testGraph(), opts)
	require.NoError(t, err)

	assert.Contains(t, out, `rankdir="LR"`)
	assert.Contains(t, out, `"Dim2" [style="filled" fillcolor="#fff9c4"]`)
	assert.Contains(t, out, `"On" -> "Dim2"`+"\n")
	assert.NotContains(t, out, "label=")
}

func TestGenerateMermaid(t *testing.T) {
	t.Parallel()

	out, err := GenerateMermaid(testGraph())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{
		"stateDiagram-v2",
		"    direction TB",
		"    [*] --> On",
		"    On --> Dim2: Dim",
		"    On --> [*]: ShutdownAck",
		"    Dim2 --> Dim10: ShutdownAck",
		"    Dim10 --> [*]: ShutdownAck",
	}, lines)

	hl, err := GenerateMermaidWithOptions(testGraph(), DefaultOptions().WithHighlightPath(
		[]statemachine.StateKind{"On", "Off"}))
	require.NoError(t, err)
	assert.Contains(t, hl, "class On highlighted")
	assert.NotContains(t, hl, "class Off highlighted")
}

func TestRenderErrors(t *testing.T) {
	t.Parallel()

	_, err := Render(testGraph(), "svg")
	require.ErrorIs(t, err, ErrUnknownFormat)

	g := testGraph()
	g.Start = ""
	_, err = GenerateDOT(g)
	require.ErrorIs(t, err, ErrNoStart)

	g = testGraph()
	g.Terminal = ""
	_, err = GenerateMermaid(g)
	require.ErrorIs(t, err, ErrNoTerminal)
}

func TestGenerateFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: tiny
start: A
terminal: Z
states:
  - kind: A
    outcomes: [Go]
transitions:
  - {from: A, on: Go, to: Z}
`), 0o600))

	out, err := GenerateFromFile(path, FormatDOT)
	require.NoError(t, err)
	assert.Contains(t, out, `"A" -> "Z" [label="Go"]`)

	g, err := LoadGraph(path)
	require.NoError(t, err)
	assert.Len(t, g.Transitions, 1)

	_, err = GenerateFromFile(filepath.Join(t.TempDir(), "missing.yaml"), FormatDOT)
	require.Error(t, err)
}
