package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestGraphCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "reconnect dot",
			args: []string{"reconnect", "graph"},
			want: []string{`digraph "reconnect"`, `"Backoff" -> "Resolving" [label="Retry"]`},
		},
		{
			name: "ticktock mermaid",
			args: []string{"reconnect", "graph", "--machine", "ticktock", "--format", "mermaid"},
			want: []string{"stateDiagram-v2", "Ticked --> Tocked: Tock"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer

			app := newApp()
			app.Writer = &out

			require.NoError(t, app.Run(context.Background(), tt.args))

			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
		})
	}
}

func TestGraphCommandUnknownMachine(t *testing.T) {
	t.Parallel()

	app := newApp()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}
	app.ExitErrHandler = func(context.Context, *cli.Command, error) {}

	err := app.Run(context.Background(), []string{"reconnect", "graph", "--machine", "nope"})

	var exitErr cli.ExitCoder
	require.True(t, errors.As(err, &exitErr), "got %T", err)
	assert.Equal(t, 1, exitErr.ExitCode())
}
