package pipeline

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/clickit/internal/eventstore"
	"git.home.luguber.info/inful/clickit/internal/logfields"
	"git.home.luguber.info/inful/clickit/internal/metrics"
)

// BuildObserver receives callbacks around stage execution and build lifecycle.
type BuildObserver interface {
	OnStageStart(stage StageName)
	OnStageComplete(stage StageName, duration time.Duration, result StageResult)
	OnBuildComplete(report *BuildReport)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnStageStart(_ StageName)                                    {}
func (NoopObserver) OnStageComplete(_ StageName, _ time.Duration, _ StageResult) {}
func (NoopObserver) OnBuildComplete(_ *BuildReport)                              {}

// RecorderObserver adapts metrics.Recorder into a BuildObserver.
type RecorderObserver struct{ Recorder metrics.Recorder }

func (r RecorderObserver) OnStageStart(_ StageName) {}
func (r RecorderObserver) OnStageComplete(stage StageName, d time.Duration, _ StageResult) {
	if r.Recorder != nil {
		r.Recorder.ObserveStageDuration(string(stage), d)
	}
}

func (r RecorderObserver) OnBuildComplete(report *BuildReport) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.ObserveBuildDuration(report.End.Sub(report.Start))
	r.Recorder.IncBuildOutcome(metrics.BuildOutcomeLabel(report.Outcome))
	for _, is := range report.Issues {
		r.Recorder.IncIssue(string(is.Code), string(is.Stage), string(is.Severity))
	}
	for kind, b := range report.Bundles {
		r.Recorder.SetBundleBytes(kind, b.Bytes)
	}
}

// LogObserver writes stage lifecycle records to a slog.Logger.
type LogObserver struct {
	Logger  *slog.Logger
	BuildID string
}

func (o LogObserver) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o LogObserver) OnStageStart(stage StageName) {
	o.logger().Debug("Stage started", logfields.BuildID(o.BuildID), logfields.Stage(string(stage)))
}

func (o LogObserver) OnStageComplete(stage StageName, d time.Duration, res StageResult) {
	level := slog.LevelDebug
	if res != StageResultSuccess {
		level = slog.LevelWarn
	}
	o.logger().Log(context.Background(), level, "Stage completed",
		logfields.BuildID(o.BuildID),
		logfields.Stage(string(stage)),
		logfields.DurationMS(ms(d)),
		slog.String("result", string(res)))
}

func (o LogObserver) OnBuildComplete(report *BuildReport) {
	o.logger().Info("Build completed",
		logfields.BuildID(report.BuildID),
		slog.String("outcome", string(report.Outcome)),
		logfields.DurationMS(ms(report.End.Sub(report.Start))),
		slog.Int("warnings", len(report.Warnings)))
}

// EventAppender is the subset of the event store the build writes to.
type EventAppender interface {
	AppendJSON(ctx context.Context, stream, eventType string, v any, metadata map[string]string) error
}

// EventObserver appends build lifecycle events to an event store. Append
// failures are logged and never affect the build.
type EventObserver struct {
	Store   EventAppender
	BuildID string
}

func (o EventObserver) append(typ string, v any, meta map[string]string) {
	if o.Store == nil {
		return
	}
	if err := o.Store.AppendJSON(context.Background(), o.BuildID, typ, v, meta); err != nil {
		slog.Warn("Failed to append build event", logfields.BuildID(o.BuildID), logfields.Kind(typ), logfields.Error(err))
	}
}

func (o EventObserver) OnStageStart(_ StageName) {}

func (o EventObserver) OnStageComplete(stage StageName, d time.Duration, res StageResult) {
	o.append(eventstore.TypeStageCompleted, map[string]any{
		"stage":       stage,
		"duration_ms": d.Milliseconds(),
		"result":      res,
	}, map[string]string{"stage": string(stage), "result": string(res)})
}

func (o EventObserver) OnBuildComplete(report *BuildReport) {
	o.append(eventstore.TypeBuildCompleted, report.SanitizedCopy(), map[string]string{"outcome": string(report.Outcome)})
}

// MultiObserver fans out callbacks to several observers in order.
type MultiObserver []BuildObserver

func (m MultiObserver) OnStageStart(stage StageName) {
	for _, o := range m {
		o.OnStageStart(stage)
	}
}

func (m MultiObserver) OnStageComplete(stage StageName, d time.Duration, res StageResult) {
	for _, o := range m {
		o.OnStageComplete(stage, d, res)
	}
}

func (m MultiObserver) OnBuildComplete(report *BuildReport) {
	for _, o := range m {
		o.OnBuildComplete(report)
	}
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
