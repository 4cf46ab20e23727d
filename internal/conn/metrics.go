package conn

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orbitaldb",
		Subsystem: "conn",
		Name:      "opens_total",
		Help:      "Physical connection opens, by result.",
	}, []string{"result"})

	closesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orbitaldb",
		Subsystem: "conn",
		Name:      "closes_total",
		Help:      "Physical connection closes, by result.",
	}, []string{"result"})

	keepaliveCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orbitaldb",
		Subsystem: "conn",
		Name:      "keepalive_cancelled_total",
		Help:      "Delayed closes cancelled by a re-acquire inside the grace window.",
	})

	refcountUnderflowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orbitaldb",
		Subsystem: "conn",
		Name:      "refcount_underflows_total",
		Help:      "Releases that arrived without a matching acquire.",
	})

	openConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "orbitaldb",
		Subsystem: "conn",
		Name:      "open_connections",
		Help:      "Physical connections currently open.",
	})

	acquireDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "orbitaldb",
		Subsystem: "conn",
		Name:      "acquire_duration_seconds",
		Help:      "Time spent in Acquire, including any physical open.",
		Buckets:   prometheus.DefBuckets,
	})
)
