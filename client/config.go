package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/amp-labs/amp-reconnect/backoff"
	"github.com/amp-labs/amp-reconnect/envutil"
	"gopkg.in/yaml.v3"
)

const (
	DefaultIdleTimeout   = 10 * time.Second
	DefaultMaxLineLength = 64 * 1024
)

var ErrInvalidConfig = errors.New("invalid client configuration")

// Config describes what to connect to and how to behave once connected.
type Config struct {
	Host          string           `yaml:"host"`
	Service       string           `yaml:"service"`
	IdleTimeout   time.Duration    `yaml:"idleTimeout"`
	MaxLineLength int              `yaml:"maxLineLength"`
	Backoff       backoff.Schedule `yaml:"backoff"`
}

// DefaultConfig has every field set except the target.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:   DefaultIdleTimeout,
		MaxLineLength: DefaultMaxLineLength,
		Backoff:       backoff.Default(),
	}
}

func (c Config) Validate() error {
	switch {
	case c.Host == "":
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	case c.Service == "":
		return fmt.Errorf("%w: service is required", ErrInvalidConfig)
	case c.IdleTimeout <= 0:
		return fmt.Errorf("%w: idle timeout must be positive, got %s", ErrInvalidConfig, c.IdleTimeout)
	case c.MaxLineLength <= 0:
		return fmt.Errorf("%w: max line length must be positive, got %d", ErrInvalidConfig, c.MaxLineLength)
	}

	if err := c.Backoff.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// ParseConfig overlays YAML onto the defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return cfg, nil
}

// LoadConfig builds a Config from the file named by RECONNECT_CONFIG, if
// any, then applies RECONNECT_ADDR, RECONNECT_HOST, RECONNECT_SERVICE and
// RECONNECT_IDLE_TIMEOUT on top. The result is validated.
func LoadConfig(ctx context.Context) (Config, error) {
	cfg := DefaultConfig()

	path, err := envutil.String(ctx, "RECONNECT_CONFIG", envutil.Default("")).Value()
	if err != nil {
		return Config{}, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}

		cfg, err = ParseConfig(data)
		if err != nil {
			return Config{}, err
		}
	}

	addr := envutil.HostAndPort(ctx, "RECONNECT_ADDR")
	if err := addr.Error(); err != nil {
		return Config{}, err
	}

	addr.DoWithValue(func(hp envutil.HostPort) {
		cfg.Host = hp.Host
		cfg.Service = hp.Port
	})

	cfg.Host = envutil.String(ctx, "RECONNECT_HOST").ValueOrElse(cfg.Host)
	cfg.Service = envutil.String(ctx, "RECONNECT_SERVICE").ValueOrElse(cfg.Service)

	idle := envutil.Duration(ctx, "RECONNECT_IDLE_TIMEOUT")
	if err := idle.Error(); err != nil {
		return Config{}, err
	}

	cfg.IdleTimeout = idle.ValueOrElse(cfg.IdleTimeout)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
