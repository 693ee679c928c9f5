package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveUpload("ok", 10)
		m.ObserveDeleted(3)
		m.ObserveShareResolution("ok")
		m.ObserveJanitor("staging", 1)
	})
	assert.Nil(t, m.Registry())

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveUpload("ok", 100)
	m.ObserveUpload("digest_mismatch", 0)
	m.ObserveDeleted(4)
	m.ObserveShareResolution("expired")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("ok")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.uploadBytes))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.entriesDeleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.shareResolutions.WithLabelValues("expired")))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gopan_uploads_total")
}
