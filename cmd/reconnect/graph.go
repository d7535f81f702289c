package main

import (
	"context"
	"fmt"

	"github.com/amp-labs/amp-reconnect/client"
	"github.com/amp-labs/amp-reconnect/statemachine"
	"github.com/amp-labs/amp-reconnect/statemachine/visualizer"
	"github.com/amp-labs/amp-reconnect/ticktock"
	"github.com/urfave/cli/v3"
)

var graphs = map[string]func() statemachine.Graph{
	"reconnect": client.Graph,
	"ticktock":  ticktock.Graph,
}

func newGraphCmd() *cli.Command {
	return &cli.Command{
		Name:  "graph",
		Usage: "Print a machine's transition graph",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "machine",
				Usage:   "reconnect or ticktock",
				Aliases: []string{"m"},
				Value:   "reconnect",
			},
			&cli.StringFlag{
				Name:    "format",
				Usage:   "dot or mermaid",
				Aliases: []string{"f"},
				Value:   string(visualizer.FormatDOT),
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: "Render a graph from a YAML file instead of a built-in machine",
			},
		},
		Action: graphAction,
	}
}

func graphAction(_ context.Context, cmd *cli.Command) error {
	format := visualizer.Format(cmd.String("format"))

	var (
		out string
		err error
	)

	if path := cmd.String("file"); path != "" {
		out, err = visualizer.GenerateFromFile(path, format)
	} else {
		graph, ok := graphs[cmd.String("machine")]
		if !ok {
			return cli.Exit(fmt.Sprintf("unknown machine %q", cmd.String("machine")), 1)
		}

		out, err = visualizer.Render(graph(), format)
	}

	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, out)

	return err
}
