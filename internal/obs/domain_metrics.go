package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// StatementsFedTotal counts statements written by the feeder.
	StatementsFedTotal prometheus.Counter
	// StatementsProcessedTotal counts post-processing outcomes.
	StatementsProcessedTotal *prometheus.CounterVec
	// RowsAppendedTotal counts charge rows folded into statements.
	RowsAppendedTotal prometheus.Counter
	// ProcessLatency records statement post-processing latency in milliseconds.
	ProcessLatency prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		StatementsFedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_fed_total",
			Help:      "Number of statements written by the feeder.",
		})
		StatementsProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_processed_total",
			Help:      "Count of statement post-processing outcomes.",
		}, []string{"result"})
		RowsAppendedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_appended_total",
			Help:      "Number of charge rows folded into statements.",
		})
		ProcessLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "statement_process_duration_ms",
			Help:      "Latency of statement post-processing in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		})

		StatementsFedTotal = registerOrReuse(reg, StatementsFedTotal)
		StatementsProcessedTotal = registerOrReuse(reg, StatementsProcessedTotal)
		RowsAppendedTotal = registerOrReuse(reg, RowsAppendedTotal)
		ProcessLatency = registerOrReuse(reg, ProcessLatency)
	})
}
