package eventloop

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loopPosted = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "eventloop_posted_total",
		Help: "Functions posted to the event loop",
	}, []string{"loop"})

	loopExecuted = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "eventloop_executed_total",
		Help: "Functions executed to completion by the event loop",
	}, []string{"loop"})

	loopPanics = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "eventloop_panics_total",
		Help: "Panics raised by functions running on the event loop",
	}, []string{"loop"})

	loopQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "eventloop_queue_depth",
		Help: "Functions waiting to run on the event loop",
	}, []string{"loop"})

	workDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals
		Name:    "eventloop_work_duration_seconds",
		Help:    "Time spent in blocking work handed to the worker pool",
		Buckets: prometheus.DefBuckets,
	}, []string{"loop"})

	workDropped = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "eventloop_work_dropped_total",
		Help: "Blocking work whose result could not be posted back to a stopped loop",
	}, []string{"loop"})
)
