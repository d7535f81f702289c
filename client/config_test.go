package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amp-labs/amp-reconnect/backoff"
	"github.com/amp-labs/amp-reconnect/envutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()

	cfg, err := ParseConfig([]byte(`
host: feed.example.com
service: "7000"
idleTimeout: 30s
backoff:
  base: 500ms
  max: 8s
  factor: 3
`))
	require.NoError(t, err)

	assert.Equal(t, "feed.example.com", cfg.Host)
	assert.Equal(t, "7000", cfg.Service)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.Equal(t, DefaultMaxLineLength, cfg.MaxLineLength)
	assert.Equal(t, backoff.Schedule{Base: 500 * time.Millisecond, Max: 8 * time.Second, Factor: 3}, cfg.Backoff)
	require.NoError(t, cfg.Validate())

	_, err = ParseConfig([]byte("host: [unterminated"))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := DefaultConfig()
	valid.Host = "localhost"
	valid.Service = "echo"

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no host", func(c *Config) { c.Host = "" }},
		{"no service", func(c *Config) { c.Service = "" }},
		{"zero idle timeout", func(c *Config) { c.IdleTimeout = 0 }},
		{"zero line length", func(c *Config) { c.MaxLineLength = 0 }},
		{"max below base", func(c *Config) { c.Backoff.Max = time.Millisecond }},
		{"shrinking factor", func(c *Config) { c.Backoff.Factor = 0.5 }},
	}

	require.NoError(t, valid.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadConfigFromFileAndEnv(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reconnect.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: from-file\nservice: \"1\"\nidleTimeout: 3s\n"), 0o600))

	ctx := envutil.WithEnvOverride(context.Background(), "RECONNECT_CONFIG", path)
	ctx = envutil.WithEnvOverride(ctx, "RECONNECT_ADDR", "from-env:2000")
	ctx = envutil.WithEnvOverride(ctx, "RECONNECT_SERVICE", "3000")

	cfg, err := LoadConfig(ctx)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Host)
	assert.Equal(t, "3000", cfg.Service)
	assert.Equal(t, 3*time.Second, cfg.IdleTimeout)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverride(context.Background(), "RECONNECT_ADDR", "missing-port")
	_, err := LoadConfig(ctx)
	require.ErrorIs(t, err, envutil.ErrInvalidHostPort)

	ctx = envutil.WithEnvOverride(context.Background(), "RECONNECT_HOST", "h")
	ctx = envutil.WithEnvOverride(ctx, "RECONNECT_SERVICE", "1")
	ctx = envutil.WithEnvOverride(ctx, "RECONNECT_IDLE_TIMEOUT", "-1s")
	_, err = LoadConfig(ctx)
	require.ErrorIs(t, err, ErrInvalidConfig)
}
