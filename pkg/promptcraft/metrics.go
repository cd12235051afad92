package promptcraft

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "promptcraft",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Duration of calls to the PromptCraft backend.",
		Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	upstreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptcraft",
		Subsystem: "upstream",
		Name:      "failures_total",
		Help:      "Failed calls to the PromptCraft backend by error kind.",
	}, []string{"endpoint", "kind"})
)
