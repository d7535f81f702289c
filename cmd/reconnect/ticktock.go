package main

import (
	"context"

	"github.com/amp-labs/amp-reconnect/eventloop"
	"github.com/amp-labs/amp-reconnect/logger"
	"github.com/amp-labs/amp-reconnect/ticktock"
	"github.com/urfave/cli/v3"
)

func newTicktockCmd() *cli.Command {
	return &cli.Command{
		Name:  "ticktock",
		Usage: "Alternate between two states until interrupted",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "period",
				Usage: "Time spent in each state",
				Value: ticktock.DefaultPeriod,
			},
		},
		Action: ticktockAction,
	}
}

func ticktockAction(ctx context.Context, cmd *cli.Command) error {
	loop := eventloop.New(eventloop.WithName("ticktock"))

	go func() {
		_ = loop.Run(context.WithoutCancel(ctx))
	}()

	defer loop.Stop()

	done := make(chan error, 1)

	tt := ticktock.New(loop, cmd.Duration("period"))
	if err := tt.Start(ctx, func(err error) { done <- err }); err != nil {
		return err
	}

	err := <-done

	logger.Get(ctx).Info("ticktock stopped", "error", err)

	return err
}
