package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestObserveRecordsSuccessAndFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg, "test-vol")

	c.Observe("create", time.Now(), nil)
	c.Observe("create", time.Now(), errors.New("boom"))
	c.SetFreeSectors(42)

	families, err := reg.Gather()
	require.NoError(t, err)

	var sawTotal, sawFailed, sawFree bool
	for _, f := range families {
		switch f.GetName() {
		case "gofs_ops_total":
			sawTotal = true
			require.Equal(t, float64(2), f.Metric[0].GetCounter().GetValue())
		case "gofs_ops_failed_total":
			sawFailed = true
			require.Equal(t, float64(1), f.Metric[0].GetCounter().GetValue())
		case "gofs_free_sectors":
			sawFree = true
			require.Equal(t, float64(42), f.Metric[0].GetGauge().GetValue())
		}
	}
	require.True(t, sawTotal)
	require.True(t, sawFailed)
	require.True(t, sawFree)
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	require.NotPanics(t, func() {
		c.Observe("noop", time.Now(), nil)
		c.SetFreeSectors(1)
	})
}
