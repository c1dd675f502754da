package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New("smoke", "throughput")

	m.ObserveRun(2*time.Second, nil)
	m.ObserveRun(3*time.Second, nil)
	m.ObserveRun(time.Second, errors.New("link down"))
	m.Failures.WithLabelValues("run").Inc()
	m.RecordsDone.Inc()
	m.Pending.Set(4)

	require.Equal(t, 2.0, testutil.ToFloat64(m.Runs.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("run")))
	require.Equal(t, 4.0, testutil.ToFloat64(m.Pending))
	require.Equal(t, 1, testutil.CollectAndCount(m.RunDuration))

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `benchcamp_records_done_total{campaign="smoke",kind="throughput"} 1`)
}
