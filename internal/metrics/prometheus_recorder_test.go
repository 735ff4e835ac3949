package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("bundle_styles", 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncStageResult("bundle_styles", ResultSuccess)
	pr.IncBuildOutcome("success")
	pr.SetBundleBytes("style", 2048)
	pr.IncIssue("MISSING_FRAGMENT", "bundle_styles", "warning")
	pr.ObserveHTTPRequest("static", http.MethodGet, http.StatusOK, 3*time.Millisecond)
	pr.IncSubmission(SubmissionSent)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"clickit_stage_duration_seconds",
		"clickit_build_duration_seconds",
		"clickit_stage_results_total",
		"clickit_build_outcomes_total",
		"clickit_bundle_bytes",
		"clickit_build_issues_total",
		"clickit_http_request_duration_seconds",
		"clickit_http_requests_total",
		"clickit_relay_submissions_total",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.ObserveStageDuration("x", time.Second)
		pr.IncSubmission(SubmissionFailed)
		pr.ObserveHTTPRequest("relay", http.MethodPost, 500, time.Second)
	})
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncBuildOutcome("warning")

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `clickit_build_outcomes_total{outcome="warning"} 1`))
}
