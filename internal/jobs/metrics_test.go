package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// counterValue sums the samples of family whose labels include want.
func counterValue(t *testing.T, reg *prometheus.Registry, family string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != family {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue metrics
				}
			}
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("fiscal_scan").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("fiscal_scan").End(boom), boom)

	require.Equal(t, 1.0, counterValue(t, reg, "facturly_jobs_total", map[string]string{"job": "fiscal_scan", "status": "success"}))
	require.Equal(t, 1.0, counterValue(t, reg, "facturly_jobs_total", map[string]string{"job": "fiscal_scan", "status": "failure"}))
	require.Equal(t, 1.0, counterValue(t, reg, "facturly_jobs_failures_total", map[string]string{"job": "fiscal_scan"}))
}

func TestAddNotifications(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.AddNotifications("approaching", 2)
	m.AddNotifications("approaching", 0)
	require.Equal(t, 2.0, counterValue(t, reg, "facturly_threshold_notifications_total", map[string]string{"state": "approaching"}))

	var nilMetrics *Metrics
	nilMetrics.AddNotifications("exceeded", 1)
	require.NoError(t, nilMetrics.Track("noop").End(nil))
}
