package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	seriesTelemetry = "telemetry"
	seriesRelative  = "relative"
	seriesStandings = "standings"
)

var (
	publishesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simtelemetry_publishes_total",
		Help: "Publishes per data series",
	}, []string{"series"})

	truncatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simtelemetry_list_entries_truncated_total",
		Help: "List entries dropped because the list was full",
	}, []string{"series"})
)
