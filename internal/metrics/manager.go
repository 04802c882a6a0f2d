// Package metrics holds the Prometheus instruments shared by the HTTP
// server and the session manager.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds the instruments the server and session manager record to.
type Manager struct {
	// counters
	CounterRequests         *prometheus.CounterVec
	CounterSessionsStarted  prometheus.Counter
	CounterSessionsEnded    *prometheus.CounterVec
	CounterTransitions      *prometheus.CounterVec
	CounterRoutinesImported prometheus.Counter

	// gauges
	GaugeActiveSessions prometheus.Gauge

	// histograms
	HistRequestDuration *prometheus.HistogramVec
	HistSessionDuration prometheus.Histogram
}

// NewTestManager returns a Manager on a fresh registry.
func NewTestManager() *Manager {
	return NewManager("stitch", "test", prometheus.NewRegistry())
}

// NewTestManagerAndRegistry returns a Manager and the registry it is on.
func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("stitch", "test", reg), reg
}

// NewRegistry returns a registry carrying build info, Go runtime and
// process collectors plus any extra collectors given.
func NewRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg.MustRegister(extra...)
	return reg
}

// NewManager registers the instruments with reg under namespace and subsystem.
func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "requests_total",
		Help:      "The total number of incoming API requests",
	}, []string{"method", "route", "status"})
	counterSessionsStarted := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sessions_started_total",
		Help:      "The total number of workout sessions started",
	})
	counterSessionsEnded := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sessions_ended_total",
		Help:      "The total number of workout sessions ended, by reason",
	}, []string{"reason"})
	counterTransitions := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "session_transitions_total",
		Help:      "The total number of session transitions, by kind",
	}, []string{"transition"})
	counterRoutinesImported := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "routines_imported_total",
		Help:      "The total number of routines written by the importer",
	})

	gaugeActiveSessions := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_sessions",
		Help:      "Current number of sessions held in memory",
	})

	histReqDuration := factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests in seconds",
		},
		[]string{"route"},
	)
	histSessionDuration := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   []float64{60, 300, 600, 1200, 1800, 2700, 3600, 5400, 7200},
			Name:      "session_duration_seconds",
			Help:      "Elapsed workout time of ended sessions in seconds",
		},
	)

	return &Manager{
		CounterRequests:         counterRequests,
		CounterSessionsStarted:  counterSessionsStarted,
		CounterSessionsEnded:    counterSessionsEnded,
		CounterTransitions:      counterTransitions,
		CounterRoutinesImported: counterRoutinesImported,
		GaugeActiveSessions:     gaugeActiveSessions,
		HistRequestDuration:     histReqDuration,
		HistSessionDuration:     histSessionDuration,
	}
}
