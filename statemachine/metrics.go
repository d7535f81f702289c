package statemachine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStarted = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "statemachine_runs_started_total",
		Help: "Total number of state machine runs started",
	}, []string{"machine"})

	runsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "statemachine_runs_completed_total",
		Help: "Total number of state machine runs completed, by result (success or error)",
	}, []string{"machine", "result"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals
		Name:    "statemachine_run_duration_seconds",
		Help:    "Duration of state machine runs by result",
		Buckets: []float64{0.1, 0.5, 1, 5, 30, 60, 300, 1800, 3600},
	}, []string{"machine", "result"})

	transitionTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "statemachine_transitions_total",
		Help: "Total number of transitions by source state, outcome kind and target state",
	}, []string{"machine", "from_state", "outcome", "to_state"})

	stateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals
		Name:    "statemachine_state_duration_seconds",
		Help:    "Time spent in a state, by the outcome it completed with",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 600},
	}, []string{"machine", "state", "outcome"})

	activeState = promauto.NewGaugeVec(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "statemachine_active_state",
		Help: "Number of runs currently in each state",
	}, []string{"machine", "state"})

	staleOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "statemachine_stale_outcomes_total",
		Help: "Outcomes dropped because their state was no longer active",
	}, []string{"machine", "state"})
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}

	return "success"
}

func sanitizeMachine(name string) string {
	if name == "" {
		return "unknown"
	}

	return name
}
