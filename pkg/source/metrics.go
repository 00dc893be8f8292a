package source

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simtelemetry_source_transitions_total",
		Help: "Source manager state transitions by kind",
	}, []string{"kind"})

	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simtelemetry_source_frames_total",
		Help: "Frames published by producer",
	}, []string{"producer"})

	contractViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simtelemetry_source_contract_violations_total",
		Help: "List counts reported beyond the destination capacity",
	}, []string{"driver", "list"})

	activeProducer = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "simtelemetry_source_active_producer",
		Help: "Producer tag of the bound driver, 0 when idle",
	})
)
