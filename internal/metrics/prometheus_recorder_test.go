package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveGeneration(120*time.Millisecond, 12, OutcomeSuccess)
	pr.ObserveGeneration(5*time.Millisecond, 0, OutcomeOf(errors.New("root unreadable")))
	pr.IncVerifyResult(true)
	pr.IncVerifyResult(true)
	pr.IncVerifyResult(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(pr.generations.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.generations.WithLabelValues("failed")))
	assert.Equal(t, 12.0, testutil.ToFloat64(pr.urls))
	assert.Equal(t, 2.0, testutil.ToFloat64(pr.verifyResults.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.verifyResults.WithLabelValues("broken")))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).ObserveGeneration(time.Second, 3, OutcomeSuccess)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "sitemap_urls 3"))
}

func TestWriteTextfile(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveGeneration(time.Second, 7, OutcomeSuccess)
	pr.IncVerifyResult(false)

	path := filepath.Join(t.TempDir(), "sitemap.prom")
	require.NoError(t, WriteTextfile(path, reg))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), `sitemap_generations_total{outcome="success"} 1`)
	assert.Contains(t, string(body), "sitemap_urls 7")
	assert.Contains(t, string(body), `sitemap_verify_results_total{result="broken"} 1`)

	assert.Error(t, WriteTextfile(filepath.Join(t.TempDir(), "missing", "sitemap.prom"), reg))
}

func TestNilAndNoopRecorders(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveGeneration(time.Second, 1, OutcomeSuccess)
	pr.IncVerifyResult(false)

	var r Recorder = NoopRecorder{}
	r.ObserveGeneration(time.Second, 1, OutcomeSuccess)
	r.IncVerifyResult(true)
}
