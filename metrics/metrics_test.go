package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/slicetypes"
)

var _ slicetypes.MetricsRecorder = (*Metrics)(nil)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.AddListed(3)
	m.AddListed(0)
	m.ObserveTask(slicetypes.StatusCopied, "", 20*time.Millisecond)
	m.ObserveTask(slicetypes.StatusCopied, "", 30*time.Millisecond)
	m.ObserveTask(slicetypes.StatusFailed, "NOT_FOUND", 5*time.Millisecond)
	m.ObserveTask(slicetypes.StatusSkipped, "INVALID_INPUT", 0)
	m.ObservePhase("list", 2*time.Second)
	m.ObservePhase("copy", 3*time.Second)
	m.ObservePhase("copy", 4*time.Second)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.objectsListedTotal))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.copiesTotal.WithLabelValues("copied", "")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.copiesTotal.WithLabelValues("failed", "NOT_FOUND")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.copiesTotal.WithLabelValues("skipped", "INVALID_INPUT")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.runDurationSeconds.WithLabelValues("list")))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.runDurationSeconds.WithLabelValues("copy")), "gauge keeps the last run")

	// histogram series only for tasks that reached the backend
	assert.Equal(t, 2, testutil.CollectAndCount(m.copyDurationSeconds))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.AddListed(1)
		m.ObserveTask(slicetypes.StatusCopied, "", time.Second)
		m.ObservePhase("copy", time.Second)
	})
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "unused.prom")))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.AddListed(2)
	m.ObserveTask(slicetypes.StatusCopied, "", time.Millisecond)

	path := filepath.Join(t.TempDir(), "slicecopy.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.Contains(out, "slicecopy_objects_listed_total 2"))
	assert.True(t, strings.Contains(out, `status="copied"`))
	assert.True(t, strings.Contains(out, "# TYPE slicecopy_copy_duration_seconds histogram"))
}
