package pipeline

import (
	"context"
	"io"
	"log/slog"

	"git.home.luguber.info/inful/clickit/internal/config"
	"git.home.luguber.info/inful/clickit/internal/eventstore"
	"git.home.luguber.info/inful/clickit/internal/foundation/errors"
	"git.home.luguber.info/inful/clickit/internal/logfields"
	"git.home.luguber.info/inful/clickit/internal/manifest"
	"git.home.luguber.info/inful/clickit/internal/metrics"
)

// Options configures one build run.
type Options struct {
	SourceDir string
	OutputDir string
	Manifest  manifest.Manifest
	Verify    bool
	ReportDir string // when set, build-report.{json,txt} are written here
	Recorder  metrics.Recorder
	Events    EventAppender // optional build event sink
	Console   io.Writer     // progress lines; nil discards
	Logger    *slog.Logger
}

// OptionsFromConfig maps the site and build sections of cfg onto Options
// with the default manifest.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SourceDir: cfg.Site.SourceDir,
		OutputDir: cfg.Site.OutputDir,
		Manifest:  manifest.Default(),
		Verify:    cfg.Build.VerifyEnabled(),
		ReportDir: cfg.Build.ReportDir,
	}
}

// Run executes the full site build and returns its report. The returned
// error is non-nil only for fatal or canceled builds; missing sources and
// verification findings are warnings in the report.
func Run(ctx context.Context, opts Options) (*BuildReport, error) {
	if err := opts.Manifest.Validate(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid build manifest").Fatal().Build()
	}

	bs := NewBuildState(opts.SourceDir, opts.OutputDir, opts.Manifest)
	bs.Console = NewConsole(opts.Console)
	if opts.Recorder != nil {
		bs.Recorder = opts.Recorder
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	report := bs.Report
	report.SourceRevision = SourceRevision(opts.SourceDir)

	observers := MultiObserver{
		LogObserver{Logger: logger, BuildID: report.BuildID},
		RecorderObserver{Recorder: bs.Recorder},
	}
	if opts.Events != nil {
		events := EventObserver{Store: opts.Events, BuildID: report.BuildID}
		events.append(eventstore.TypeBuildStarted, map[string]any{
			"source_dir":      opts.SourceDir,
			"output_dir":      opts.OutputDir,
			"source_revision": report.SourceRevision,
			"version":         report.Version,
		}, nil)
		observers = append(observers, events)
	}
	bs.Observer = observers

	logger.Info("Starting site build",
		logfields.BuildID(report.BuildID),
		slog.String("source", opts.SourceDir),
		slog.String("output", opts.OutputDir))
	bs.Console.Step("Starting build...")

	err := RunStages(ctx, bs, DefaultStages(opts.Verify))

	if opts.ReportDir != "" {
		if perr := report.Persist(opts.ReportDir); perr != nil {
			logger.Warn("Failed to persist build report", logfields.Path(opts.ReportDir), logfields.Error(perr))
		}
	}

	if err != nil {
		bs.Console.Failure("Build failed: %v", err)
		return report, err
	}

	bs.Console.Step("")
	bs.Console.Step("Build complete (%s)", report.Outcome)
	bs.Console.Step("Output directory: %s", opts.OutputDir)
	if n := len(report.Warnings); n > 0 {
		bs.Console.Warning("%d warning(s); see above", n)
	}
	bs.Console.Step("Ready for deployment")
	return report, nil
}
