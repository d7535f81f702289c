package envutil

import (
	"context"
	"os"
)

type envContextKey string

// WithEnvOverride returns a context in which key reads as value, regardless of
// the process environment. Tests use it to avoid mutating global state.
func WithEnvOverride(ctx context.Context, key string, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, envContextKey(key), value)
}

func lookup(ctx context.Context, key string) (string, bool) {
	if ctx != nil {
		if val, ok := ctx.Value(envContextKey(key)).(string); ok {
			return val, true
		}
	}

	return os.LookupEnv(key)
}
