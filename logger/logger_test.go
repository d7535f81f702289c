package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/amp-labs/amp-reconnect/envutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))

		out = append(out, rec)
	}

	return out
}

func TestGetCarriesContextFields(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{Subsystem: "reconnect", JSON: true, Output: &buf})

	Get().Info("plain")

	ctx := WithRunID(WithSubsystem(t.Context(), "engine"), "run-1")
	ctx = With(ctx, "state", "Online")
	Get(ctx).Info("tagged")

	Get(WithMuted(ctx, true)).Error("never printed")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 2)

	assert.Equal(t, "reconnect", recs[0]["subsystem"])
	assert.NotContains(t, recs[0], "run_id")

	assert.Equal(t, "engine", recs[1]["subsystem"])
	assert.Equal(t, "run-1", recs[1]["run_id"])
	assert.Equal(t, "Online", recs[1]["state"])
}

func TestAnnotatedErrorAttributes(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{Subsystem: "test", JSON: true, Output: &buf})

	err := AnnotateError(errors.New("dial failed"), "endpoint", "127.0.0.1:7")
	Get().Error("connect", "error", err)

	assert.Nil(t, AnnotateError(nil, "k", "v"))

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "dial failed", recs[0]["error"])
	assert.Equal(t, "127.0.0.1:7", recs[0]["endpoint"])
}

func TestConfigureLoggingFromEnv(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	ctx := envutil.WithEnvOverride(context.Background(), "LOG_JSON", "true")
	ctx = envutil.WithEnvOverride(ctx, "LOG_LEVEL", "warn")

	ConfigureLogging(ctx, "env-app", WithOutput(&buf))

	slog.Info("dropped")
	slog.Warn("kept")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "kept", recs[0]["msg"])
	assert.Equal(t, "env-app", GetSubsystem(context.Background()))
}
