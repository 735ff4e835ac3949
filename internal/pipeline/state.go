package pipeline

import (
	"fmt"

	"git.home.luguber.info/inful/clickit/internal/manifest"
	"git.home.luguber.info/inful/clickit/internal/metrics"
	"git.home.luguber.info/inful/clickit/internal/rewrite"
)

// BuildState is the shared mutable state threaded through the stages.
type BuildState struct {
	SourceDir string
	OutputDir string
	Manifest  manifest.Manifest
	Rewrite   rewrite.Options
	Report    *BuildReport
	Recorder  metrics.Recorder
	Observer  BuildObserver
	Console   *Console
}

// NewBuildState wires a state with no-op metrics and observer defaults.
func NewBuildState(sourceDir, outputDir string, m manifest.Manifest) *BuildState {
	return &BuildState{
		SourceDir: sourceDir,
		OutputDir: outputDir,
		Manifest:  m,
		Rewrite:   rewrite.DefaultOptions(m),
		Report:    NewBuildReport(sourceDir, outputDir),
		Recorder:  metrics.NoopRecorder{},
		Observer:  NoopObserver{},
		Console:   NewConsole(nil),
	}
}

// warn records a non-fatal issue and echoes it to the console.
func (bs *BuildState) warn(code ReportIssueCode, stage StageName, format string, args ...any) {
	bs.Console.Warning(format, args...)
	bs.Report.Warn(code, stage, fmt.Sprintf(format, args...))
}
