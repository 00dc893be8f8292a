package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "simtelemetry_ingest_tick_duration_seconds",
		Help:    "Time spent in one ingestion tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.0167, 0.05},
	})

	tickOverruns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simtelemetry_ingest_tick_overruns_total",
		Help: "Ticks that took longer than the target period",
	})
)
