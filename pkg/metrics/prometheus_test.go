package metrics

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestWriteText(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evaluation",
		Name:      "test_events_total",
		Help:      "Test counter.",
	}, []string{"kind"})
	reg.MustRegister(counter)
	counter.WithLabelValues("team").Add(3)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))
	require.Contains(t, buf.String(), "# TYPE evaluation_test_events_total counter")
	require.Contains(t, buf.String(), `evaluation_test_events_total{kind="team"} 3`)
}
