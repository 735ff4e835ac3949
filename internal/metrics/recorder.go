package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// BuildOutcomeLabel is the final build status: success|warning|failed|canceled.
type BuildOutcomeLabel string

// SubmissionResult enumerates contact relay outcomes.
type SubmissionResult string

const (
	SubmissionSent    SubmissionResult = "sent"
	SubmissionInvalid SubmissionResult = "invalid"
	SubmissionFailed  SubmissionResult = "failed"
)

// Recorder defines observability hooks. Implementations may forward to
// Prometheus or any other backend.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	SetBundleBytes(kind string, n int)
	IncIssue(code, stage, severity string)
	ObserveHTTPRequest(handler, method string, status int, d time.Duration)
	IncSubmission(result SubmissionResult)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)            {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)                    {}
func (NoopRecorder) IncStageResult(string, ResultLabel)                    {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)                     {}
func (NoopRecorder) SetBundleBytes(string, int)                            {}
func (NoopRecorder) IncIssue(string, string, string)                       {}
func (NoopRecorder) ObserveHTTPRequest(string, string, int, time.Duration) {}
func (NoopRecorder) IncSubmission(SubmissionResult)                        {}
