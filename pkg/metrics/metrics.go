package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	CatalogMutations   *prometheus.CounterVec
	InvoiceOperations  *prometheus.CounterVec
	SaveBacks          *prometheus.CounterVec
	Exports            *prometheus.CounterVec
	ExportLatency      *prometheus.HistogramVec
	CollectionFailures *prometheus.CounterVec
	OpenSessions       prometheus.Gauge
}

// NewMetrics creates all application metrics and registers them on reg
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CatalogMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "mutations_total",
			Help:      "Catalog mutations by entity, operation and outcome",
		}, []string{"entity", "operation", "status"}),
		InvoiceOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invoice",
			Name:      "operations_total",
			Help:      "Invoice workspace operations by kind",
		}, []string{"operation"}),
		SaveBacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invoice",
			Name:      "save_backs_total",
			Help:      "Save-back attempts by outcome",
		}, []string{"status"}),
		Exports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "documents_total",
			Help:      "Exported documents by format and outcome",
		}, []string{"format", "status"}),
		ExportLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "Time spent rendering exported documents",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"format"}),
		CollectionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "collection_decode_failures_total",
			Help:      "Stored collections that could not be decoded and were replaced by an empty one",
		}, []string{"collection"}),
		OpenSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "invoice",
			Name:      "open_sessions",
			Help:      "Invoice sessions currently held in memory",
		}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// CatalogMutation records a catalog create, update or delete
func (m *Metrics) CatalogMutation(entity, operation string, err error) {
	if m == nil {
		return
	}
	m.CatalogMutations.WithLabelValues(entity, operation, status(err)).Inc()
}

// InvoiceOperation records an invoice workspace operation
func (m *Metrics) InvoiceOperation(operation string) {
	if m == nil {
		return
	}
	m.InvoiceOperations.WithLabelValues(operation).Inc()
}

// SaveBack records a save-back attempt
func (m *Metrics) SaveBack(err error) {
	if m == nil {
		return
	}
	m.SaveBacks.WithLabelValues(status(err)).Inc()
}

// Export records an export attempt and its duration in seconds
func (m *Metrics) Export(format string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.Exports.WithLabelValues(format, status(err)).Inc()
	m.ExportLatency.WithLabelValues(format).Observe(seconds)
}

// CollectionFailure records a corrupt stored collection
func (m *Metrics) CollectionFailure(collection string) {
	if m == nil {
		return
	}
	m.CollectionFailures.WithLabelValues(collection).Inc()
}

// SetOpenSessions records the number of in-memory invoice sessions
func (m *Metrics) SetOpenSessions(n int) {
	if m == nil {
		return
	}
	m.OpenSessions.Set(float64(n))
}
