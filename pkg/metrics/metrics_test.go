package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry(), "pharmacy")

	m.CatalogMutation("product", "create", nil)
	m.CatalogMutation("product", "create", errors.New("boom"))
	m.SaveBack(nil)
	m.Export("pdf", 0.2, nil)
	m.SetOpenSessions(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogMutations.WithLabelValues("product", "create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogMutations.WithLabelValues("product", "create", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SaveBacks.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Exports.WithLabelValues("pdf", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.OpenSessions))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CatalogMutation("patient", "delete", nil)
		m.InvoiceOperation("derive")
		m.SaveBack(nil)
		m.Export("receipt", 0, nil)
		m.CollectionFailure("products")
		m.SetOpenSessions(1)
	})
}
