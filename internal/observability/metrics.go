package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics registry and standard meters.
type Metrics struct {
	Registry          *prometheus.Registry
	OperationDuration *prometheus.HistogramVec
	OperationTotal    *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec
	RecordsHeld       prometheus.Gauge
	LedgerEntries     *prometheus.CounterVec
	EventsEmitted     *prometheus.CounterVec
}

// NewMetrics creates a custom Prometheus registry with standard ronin metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	opDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ronin_operation_duration_seconds",
		Help:    "Duration of contract operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})

	opTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ronin_operation_total",
		Help: "Total number of contract operations.",
	}, []string{"operation", "status"})

	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ronin_errors_total",
		Help: "Total number of errors.",
	}, []string{"operation", "type"})

	recordsHeld := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ronin_records_held",
		Help: "Number of identities currently holding a message record.",
	})

	ledgerEntries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ronin_ledger_entries_total",
		Help: "Total ledger entries appended.",
	}, []string{"ledger"})

	eventsEmitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ronin_events_emitted_total",
		Help: "Total domain events emitted.",
	}, []string{"event"})

	reg.MustRegister(opDuration, opTotal, errorsTotal, recordsHeld, ledgerEntries, eventsEmitted)

	return &Metrics{
		Registry:          reg,
		OperationDuration: opDuration,
		OperationTotal:    opTotal,
		ErrorsTotal:       errorsTotal,
		RecordsHeld:       recordsHeld,
		LedgerEntries:     ledgerEntries,
		EventsEmitted:     eventsEmitted,
	}
}
