package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestNew_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveBalance("user", 3, time.Now())
	m.SkippedParts.WithLabelValues("item").Add(2)

	assert.Equal(t, 1.0, counterValue(t, m.BalanceComputations.WithLabelValues("user")))
	assert.Equal(t, 2.0, counterValue(t, m.SkippedParts.WithLabelValues("item")))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["splitledger_balance_computations_total"])
	assert.True(t, names["splitledger_expenses_scanned"])
}

func TestNew_NilRegisterer(t *testing.T) {
	// A second New would panic on duplicate registration if nil registered.
	a := New(nil)
	b := New(nil)
	a.SplitsFilled.Inc()

	assert.Equal(t, 1.0, counterValue(t, a.SplitsFilled))
	assert.Equal(t, 0.0, counterValue(t, b.SplitsFilled))
}
