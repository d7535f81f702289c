package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/amp-labs/amp-reconnect/client"
	"github.com/amp-labs/amp-reconnect/envutil"
	"github.com/amp-labs/amp-reconnect/eventloop"
	"github.com/amp-labs/amp-reconnect/logger"
	"github.com/amp-labs/amp-reconnect/shutdown"
	"github.com/amp-labs/amp-reconnect/statemachine/visualizer"
	"github.com/amp-labs/amp-reconnect/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
)

const (
	dnsRefreshInterval = time.Minute
	flushTimeout       = 5 * time.Second
)

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "addr",
			Usage:   "Target as host:port; overrides the config file",
			Aliases: []string{"a"},
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to a YAML configuration file",
			Aliases: []string{"c"},
		},
		&cli.StringFlag{
			Name:    "graph",
			Usage:   "Print the transition graph (dot or mermaid) before connecting",
			Sources: cli.EnvVars("RECONNECT_GRAPH"),
		},
		&cli.StringFlag{
			Name:    "metrics-addr",
			Usage:   "Serve Prometheus metrics on this address",
			Sources: cli.EnvVars("RECONNECT_METRICS_ADDR"),
		},
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	if addr := cmd.String("addr"); addr != "" {
		ctx = envutil.WithEnvOverride(ctx, "RECONNECT_ADDR", addr)
	}

	if path := cmd.String("config"); path != "" {
		ctx = envutil.WithEnvOverride(ctx, "RECONNECT_CONFIG", path)
	}

	cfg, err := client.LoadConfig(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if format := cmd.String("graph"); format != "" {
		out, err := visualizer.Render(client.Graph(), visualizer.Format(format))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		_, _ = fmt.Fprintln(cmd.Root().Writer, out)
	}

	stopTracing, err := setupTracing(ctx)
	if err != nil {
		return err
	}

	defer stopTracing()

	if addr := cmd.String("metrics-addr"); addr != "" {
		serveMetrics(ctx, addr)
	}

	loop := eventloop.New(eventloop.WithName("reconnect"))

	go func() {
		if err := loop.Run(context.WithoutCancel(ctx)); err != nil {
			logger.Get(ctx).Error("event loop failed", "error", err)
		}
	}()

	defer loop.Stop()

	resolver := client.NewDNSResolver()
	resolver.StartRefresh(ctx, dnsRefreshInterval)

	logger.Get(ctx).Info("Starting client",
		"host", cfg.Host,
		"service", cfg.Service,
		"idle_timeout", cfg.IdleTimeout.String())

	err = client.New(loop, cfg, client.WithResolver(resolver)).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Get(ctx).Info("Client stopped")

	return nil
}

func setupTracing(ctx context.Context) (func(), error) {
	tcfg, err := telemetry.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	stop, err := telemetry.Setup(ctx, tcfg)
	if err != nil {
		return nil, err
	}

	return func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()

		if err := stop(flushCtx); err != nil {
			logger.Get(ctx).Warn("Flushing traces failed", "error", err)
		}
	}, nil
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: flushTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	shutdown.BeforeShutdown(func() {
		_ = srv.Close()
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get(ctx).Error("metrics server failed", "error", err, "addr", addr)
			os.Exit(1)
		}
	}()
}
