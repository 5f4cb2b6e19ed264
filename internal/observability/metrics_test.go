package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordIngest(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordIngest(10, 7, 2, 5, []string{"rate <= 0", "rate <= 0", "not a number"})

	assert.Equal(t, 10.0, testutil.ToFloat64(m.RatesFetched))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.ObservationsAccepted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DuplicatesDropped))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.ObservationsStored))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.InvalidRates.WithLabelValues("rate <= 0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvalidRates.WithLabelValues("not a number")))
}

func TestMetrics_SnapshotAndInsight(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordSnapshotWrite(nil)
	m.RecordSnapshotWrite(errors.New("down"))
	m.RecordInsight("created")
	m.RecordMetadataGaps(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotWrites.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotWrites.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InsightsTotal.WithLabelValues("created")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.MetadataGaps))
}

func TestHandlerFor(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	m.RecordPipelineRun("run", "success", 1.5)

	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `test_pipeline_runs_total{phase="run",status="success"} 1`))
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	// Two instances with the same namespace must not collide on distinct registries.
	assert.NotPanics(t, func() {
		NewMetrics("dup", prometheus.NewRegistry())
		NewMetrics("dup", prometheus.NewRegistry())
	})
}
