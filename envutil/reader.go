package envutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

var (
	ErrBadEnvVar     = errors.New("error parsing environment variable")
	ErrEnvVarMissing = errors.New("missing environment variable")
)

// Reader holds the outcome of reading one environment variable: whether it
// was set, the parsed value, and any parse or validation error.
type Reader[A any] struct {
	key     string
	present bool
	err     error

	value A
}

// Key returns the name of the environment variable.
func (r Reader[A]) Key() string {
	return r.key
}

// Value returns the parsed value, or an error if the variable is missing or invalid.
func (r Reader[A]) Value() (A, error) { //nolint:ireturn
	if r.err != nil {
		return r.value, fmt.Errorf("%w %s: %w", ErrBadEnvVar, r.key, r.err)
	}

	if !r.present {
		return r.value, fmt.Errorf("%w %s", ErrEnvVarMissing, r.key)
	}

	return r.value, nil
}

// ValueOrFatal returns the value or exits the process.
func (r Reader[A]) ValueOrFatal() A { //nolint:ireturn
	value, err := r.Value()
	if err != nil {
		slog.Error("error reading environment variable", "key", r.key, "error", err)
		os.Exit(1)
	}

	return value
}

// ValueOrElse returns the value, or v if the variable is missing or invalid.
// Invalid values are logged before falling back.
func (r Reader[A]) ValueOrElse(v A) A { //nolint:ireturn
	if r.present && r.err == nil {
		return r.value
	}

	if r.err != nil {
		slog.Warn("error reading environment variable, using fallback value",
			"key", r.key, "error", r.err, "fallback", v)
	}

	return v
}

// DoWithValue calls f only when the variable is set and valid.
func (r Reader[A]) DoWithValue(f func(A)) {
	if r.present && r.err == nil {
		f(r.value)
	}
}

// HasValue reports whether the variable is set and valid.
func (r Reader[A]) HasValue() bool {
	return r.present && r.err == nil
}

// Error returns the parse or validation error, if any.
func (r Reader[A]) Error() error {
	return r.err
}

func (r Reader[A]) String() string {
	switch {
	case r.err != nil:
		return fmt.Sprintf("%s=<error: %v>", r.key, r.err)
	case r.present:
		return fmt.Sprintf("%s=%v", r.key, r.value)
	default:
		return r.key + "=<not set>"
	}
}

// WithDefault fills in v when the variable is not set.
func (r Reader[A]) WithDefault(v A) Reader[A] { //nolint:ireturn
	if r.present {
		return r
	}

	return Reader[A]{key: r.key, present: true, err: r.err, value: v}
}

// WithErrorIfMissing turns a missing variable into err.
func (r Reader[A]) WithErrorIfMissing(err error) Reader[A] { //nolint:ireturn
	if r.present || r.err != nil {
		return r
	}

	return Reader[A]{key: r.key, err: err}
}

// Map transforms the value, possibly changing its type. Missing and failed
// readers pass through untouched.
func Map[A any, B any](r Reader[A], f func(A) (B, error)) Reader[B] {
	if !r.present || r.err != nil {
		return Reader[B]{key: r.key, present: r.present, err: r.err}
	}

	val, err := f(r.value)

	return Reader[B]{key: r.key, present: true, err: err, value: val}
}
