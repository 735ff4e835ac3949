package metrics

import (
	"strconv"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "clickit"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	stageResults  *prom.CounterVec
	buildOutcome  *prom.CounterVec
	bundleBytes   *prom.GaugeVec
	issues        *prom.CounterVec
	httpDuration  *prom.HistogramVec
	httpRequests  *prom.CounterVec
	submissions   *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.bundleBytes = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "bundle_bytes",
			Help:      "Size of the last minified bundle by asset kind",
		}, []string{"kind"})
		pr.issues = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_issues_total",
			Help:      "Build report issues by code, stage and severity",
		}, []string{"code", "stage", "severity"})
		pr.httpDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by handler",
			Buckets:   prom.DefBuckets,
		}, []string{"handler", "method"})
		pr.httpRequests = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by handler, method and status code",
		}, []string{"handler", "method", "code"})
		pr.submissions = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "relay_submissions_total",
			Help:      "Contact form submissions by result",
		}, []string{"result"})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome,
			pr.bundleBytes, pr.issues, pr.httpDuration, pr.httpRequests, pr.submissions)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetBundleBytes(kind string, n int) {
	if p == nil || p.bundleBytes == nil {
		return
	}
	p.bundleBytes.WithLabelValues(kind).Set(float64(n))
}

func (p *PrometheusRecorder) IncIssue(code, stage, severity string) {
	if p == nil || p.issues == nil {
		return
	}
	p.issues.WithLabelValues(code, stage, severity).Inc()
}

func (p *PrometheusRecorder) ObserveHTTPRequest(handler, method string, status int, d time.Duration) {
	if p == nil || p.httpDuration == nil {
		return
	}
	p.httpDuration.WithLabelValues(handler, method).Observe(d.Seconds())
	p.httpRequests.WithLabelValues(handler, method, strconv.Itoa(status)).Inc()
}

func (p *PrometheusRecorder) IncSubmission(result SubmissionResult) {
	if p == nil || p.submissions == nil {
		return
	}
	p.submissions.WithLabelValues(string(result)).Inc()
}
