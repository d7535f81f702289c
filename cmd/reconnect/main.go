// Command reconnect keeps a TCP connection to a line-oriented feed open,
// logging every line it receives and reconnecting with backoff on failure.
package main

import (
	"context"
	"os"

	"github.com/amp-labs/amp-reconnect/logger"
	"github.com/amp-labs/amp-reconnect/shutdown"
	"github.com/urfave/cli/v3"
)

// Version is set during build using ldflags.
var Version = "dev"

func main() {
	ctx := shutdown.SetupHandler(context.Background())

	logger.ConfigureLogging(ctx, "reconnect")

	if err := newApp().Run(ctx, os.Args); err != nil {
		logger.Fatal("reconnect failed", "error", err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "reconnect",
		Version: Version,
		Usage:   "Stay connected to a TCP line feed",
		Flags:   runFlags(),
		Action:  runAction,
		Commands: []*cli.Command{
			newGraphCmd(),
			newTicktockCmd(),
		},
	}
}
