package shm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var tornReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "simtelemetry_shm_torn_reads_total",
	Help: "Polls that gave up on a frame the bridge kept rewriting",
}, []string{"driver"})
