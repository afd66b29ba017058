package symcc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the runtime's counters on a private registry so that several
// runtimes in one process do not collide.
type Metrics struct {
	Registry *prometheus.Registry

	Expressions     prometheus.Gauge
	Collections     prometheus.Counter
	Collected       prometheus.Counter
	CollectDuration prometheus.Histogram

	Branches      *prometheus.CounterVec
	Queries       *prometheus.CounterVec
	QueryDuration prometheus.Histogram
	TestCases     *prometheus.CounterVec

	Deferred           prometheus.Gauge
	DeferredPromotions prometheus.Counter
}

// NewMetrics returns metrics registered on a new registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		Expressions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "symcc_registry_expressions",
			Help: "Number of live expressions in the registry",
		}),
		Collections: factory.NewCounter(prometheus.CounterOpts{
			Name: "symcc_gc_runs_total",
			Help: "Total number of garbage collection passes",
		}),
		Collected: factory.NewCounter(prometheus.CounterOpts{
			Name: "symcc_gc_collected_total",
			Help: "Total number of expressions released by garbage collection",
		}),
		CollectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "symcc_gc_duration_seconds",
			Help:    "Duration of garbage collection passes",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),

		Branches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "symcc_path_constraints_total",
			Help: "Total number of symbolic path constraints by origin",
		}, []string{"origin"}),
		Queries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "symcc_solver_queries_total",
			Help: "Total number of solver queries by kind and result",
		}, []string{"kind", "result"}),
		QueryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "symcc_solver_query_duration_seconds",
			Help:    "Duration of solver queries",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		TestCases: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "symcc_test_cases_total",
			Help: "Total number of generated test cases by suffix",
		}, []string{"suffix"}),

		Deferred: factory.NewGauge(prometheus.GaugeOpts{
			Name: "symcc_deferred_constraints",
			Help: "Number of address constraints waiting in the deferred queue",
		}),
		DeferredPromotions: factory.NewCounter(prometheus.CounterOpts{
			Name: "symcc_deferred_promotions_total",
			Help: "Total number of deferred address constraints promoted to path constraints",
		}),
	}
}
