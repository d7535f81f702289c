// Package backoff computes reconnect delays.
package backoff

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

var ErrInvalidSchedule = errors.New("invalid backoff schedule")

// Schedule is an exponential backoff: Base * Factor^attempt, clamped to
// [Base, Max], with optional jitter.
//
// The default schedule yields 1s, 2s, 4s, 8s, 16s, 16s, ...
type Schedule struct {
	Base   time.Duration `yaml:"base"`
	Max    time.Duration `yaml:"max"`
	Factor float64       `yaml:"factor"`
	Jitter Jitter        `yaml:"jitter"`
}

// Default returns the reconnect schedule: doubling from one second, capped
// at sixteen, no jitter.
func Default() Schedule {
	return Schedule{
		Base:   time.Second,
		Max:    16 * time.Second,
		Factor: 2, //nolint:mnd
		Jitter: WithoutJitter,
	}
}

// Validate reports schedules that cannot produce sensible delays.
func (s Schedule) Validate() error {
	switch {
	case s.Base <= 0:
		return fmt.Errorf("%w: base must be positive, got %s", ErrInvalidSchedule, s.Base)
	case s.Max < s.Base:
		return fmt.Errorf("%w: max %s is below base %s", ErrInvalidSchedule, s.Max, s.Base)
	case s.Factor < 1 || math.IsNaN(s.Factor) || math.IsInf(s.Factor, 0):
		return fmt.Errorf("%w: factor must be >= 1, got %v", ErrInvalidSchedule, s.Factor)
	case s.Jitter > FullJitter:
		return fmt.Errorf("%w: jitter must be <= 1, got %v", ErrInvalidSchedule, s.Jitter)
	}

	return nil
}

// Delay returns the wait before retry number attempt (zero-based), jitter
// included.
func (s Schedule) Delay(attempt uint) time.Duration {
	return s.Jitter.apply(s.Nominal(attempt), rand.Float64) //nolint:gosec
}

// Nominal returns the delay for attempt without jitter.
func (s Schedule) Nominal(attempt uint) time.Duration {
	f := float64(s.Base) * math.Pow(s.Factor, float64(attempt))

	switch {
	case math.IsNaN(f) || f >= float64(s.Max):
		return s.Max
	case f < float64(s.Base):
		return s.Base
	default:
		return time.Duration(f)
	}
}

// Jitter is the fraction of each delay that is randomized: 0 or less keeps
// delays exact, 0.5 draws from [d/2, d], 1 draws from [0, d].
type Jitter float64

const (
	WithoutJitter Jitter = 0
	EqualJitter   Jitter = 0.5
	FullJitter    Jitter = 1
)

func (j Jitter) apply(d time.Duration, random func() float64) time.Duration {
	if j <= 0 {
		return d
	}

	frac := float64(j)
	if frac > 1 {
		frac = 1
	}

	return time.Duration(float64(d) * (1 - frac*random()))
}
