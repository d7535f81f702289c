// Package envutil reads typed configuration values from environment variables.
package envutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidHostPort = errors.New("invalid host:port")

func get(ctx context.Context, key string) Reader[string] {
	val, ok := lookup(ctx, key)

	return Reader[string]{key: key, present: ok, value: val}
}

// String reads key verbatim.
func String(ctx context.Context, key string, opts ...Option[string]) Reader[string] {
	return apply(get(ctx, key), opts)
}

func Bool(ctx context.Context, key string, opts ...Option[bool]) Reader[bool] {
	return apply(Map(get(ctx, key), strconv.ParseBool), opts)
}

func Int(ctx context.Context, key string, opts ...Option[int]) Reader[int] {
	return apply(Map(get(ctx, key), strconv.Atoi), opts)
}

func Float64(ctx context.Context, key string, opts ...Option[float64]) Reader[float64] {
	return apply(Map(get(ctx, key), func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	}), opts)
}

func Duration(ctx context.Context, key string, opts ...Option[time.Duration]) Reader[time.Duration] {
	return apply(Map(get(ctx, key), time.ParseDuration), opts)
}

// SlogLevel accepts the names understood by slog.Level.UnmarshalText
// (debug, info, warn, error, with optional offsets like "info+2").
func SlogLevel(ctx context.Context, key string, opts ...Option[slog.Level]) Reader[slog.Level] {
	return apply(Map(get(ctx, key), func(s string) (slog.Level, error) {
		var lvl slog.Level

		err := lvl.UnmarshalText([]byte(strings.TrimSpace(s)))

		return lvl, err
	}), opts)
}

// HostPort is a parsed "host:port" pair. The port may be numeric or a service name.
type HostPort struct {
	Host string
	Port string
}

func (h HostPort) String() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// ParseHostPort splits and validates a "host:port" string.
func ParseHostPort(s string) (HostPort, error) {
	host, port, err := net.SplitHostPort(strings.TrimSpace(s))
	if err != nil {
		return HostPort{}, fmt.Errorf("%w: %w", ErrInvalidHostPort, err)
	}

	if host == "" || port == "" {
		return HostPort{}, fmt.Errorf("%w: %q", ErrInvalidHostPort, s)
	}

	return HostPort{Host: host, Port: port}, nil
}

func HostAndPort(ctx context.Context, key string, opts ...Option[HostPort]) Reader[HostPort] {
	return apply(Map(get(ctx, key), ParseHostPort), opts)
}
