package pipeline

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/clickit/internal/metrics"
	"git.home.luguber.info/inful/clickit/internal/verify"
	"git.home.luguber.info/inful/clickit/internal/version"
)

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeWarning  BuildOutcome = "warning"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// ReportIssueCode enumerates machine-parseable issue identifiers.
// Codes are a stable contract: append only.
type ReportIssueCode string

const (
	IssueMissingFragment   ReportIssueCode = "MISSING_FRAGMENT"
	IssueMissingCopySource ReportIssueCode = "MISSING_COPY_SOURCE"
	IssueMissingPage       ReportIssueCode = "MISSING_PAGE"
	IssueVerifyFinding     ReportIssueCode = "VERIFY_FINDING"
	IssueFileSystem        ReportIssueCode = "FILESYSTEM"
	IssueCanceled          ReportIssueCode = "BUILD_CANCELED"
	IssueGenericStageError ReportIssueCode = "GENERIC_STAGE_ERROR"
)

// IssueSeverity represents normalized severity levels.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// ReportIssue is a structured entry describing one problem encountered.
type ReportIssue struct {
	Code      ReportIssueCode `json:"code"`
	Stage     StageName       `json:"stage"`
	Severity  IssueSeverity   `json:"severity"`
	Message   string          `json:"message"`
	Transient bool            `json:"transient"`
}

// StageCount aggregates counts of outcomes for a stage.
type StageCount struct {
	Success  int `json:"success"`
	Warning  int `json:"warning"`
	Fatal    int `json:"fatal"`
	Canceled int `json:"canceled"`
}

// BundleInfo describes one written bundle.
type BundleInfo struct {
	Path      string   `json:"path"`
	Bytes     int      `json:"bytes"`
	Fragments int      `json:"fragments"`
	Missing   []string `json:"missing,omitempty"`
}

// CopiedEntry records one copy-list entry that was mirrored.
type CopiedEntry struct {
	Src   string `json:"src"`
	Dest  string `json:"dest"`
	Files int    `json:"files"`
	Bytes int64  `json:"bytes"`
}

// BuildReport captures what a build did and how it ended.
type BuildReport struct {
	SchemaVersion   int
	BuildID         string
	Version         string
	SourceRevision  string // HEAD of the enclosing git repository, if any
	SourceDir       string
	OutputDir       string
	Start           time.Time
	End             time.Time
	Errors          []error // fatal errors causing build abortion (at most one)
	Warnings        []error // non-fatal issues such as missing sources
	StageDurations  map[string]time.Duration
	StageErrorKinds map[StageName]StageErrorKind
	StageCounts     map[StageName]StageCount
	Bundles         map[string]BundleInfo // keyed by asset kind
	Copied          []CopiedEntry
	UpdatedPages    []string
	Findings        []verify.Finding
	Outcome         BuildOutcome
	Issues          []ReportIssue
}

// NewBuildReport constructs a report with a fresh build ID.
func NewBuildReport(sourceDir, outputDir string) *BuildReport {
	return &BuildReport{
		SchemaVersion:   1,
		BuildID:         uuid.NewString(),
		Version:         version.Version,
		SourceDir:       sourceDir,
		OutputDir:       outputDir,
		Start:           time.Now(),
		StageDurations:  make(map[string]time.Duration),
		StageErrorKinds: make(map[StageName]StageErrorKind),
		StageCounts:     make(map[StageName]StageCount),
		Bundles:         make(map[string]BundleInfo),
	}
}

// AddIssue appends a structured issue and mirrors severity into Errors/Warnings slices.
func (r *BuildReport) AddIssue(code ReportIssueCode, stage StageName, severity IssueSeverity, msg string, transient bool, err error) {
	r.Issues = append(r.Issues, ReportIssue{Code: code, Stage: stage, Severity: severity, Message: msg, Transient: transient})
	if err == nil {
		return
	}
	switch severity {
	case SeverityError:
		r.Errors = append(r.Errors, err)
	case SeverityWarning:
		r.Warnings = append(r.Warnings, err)
	}
}

// Warn records a non-fatal issue.
func (r *BuildReport) Warn(code ReportIssueCode, stage StageName, msg string) {
	r.AddIssue(code, stage, SeverityWarning, msg, false, stderrors.New(msg))
}

// Finish sets the end time of the report.
func (r *BuildReport) Finish() { r.End = time.Now() }

// RecordStageResult updates stage counters and emits metrics (if recorder non-nil).
func (r *BuildReport) RecordStageResult(stage StageName, res StageResult, recorder metrics.Recorder) {
	if r.StageCounts == nil {
		r.StageCounts = make(map[StageName]StageCount)
	}
	sc := r.StageCounts[stage]
	var label metrics.ResultLabel
	switch res {
	case StageResultSuccess:
		sc.Success++
		label = metrics.ResultSuccess
	case StageResultWarning:
		sc.Warning++
		label = metrics.ResultWarning
	case StageResultFatal:
		sc.Fatal++
		label = metrics.ResultFatal
	case StageResultCanceled:
		sc.Canceled++
		label = metrics.ResultCanceled
	case StageResultSkipped:
	}
	r.StageCounts[stage] = sc
	if recorder != nil && label != "" {
		recorder.IncStageResult(string(stage), label)
	}
}

// DeriveOutcome sets the Outcome field based on recorded errors/warnings.
func (r *BuildReport) DeriveOutcome() {
	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			var se *StageError
			if stderrors.As(e, &se) && se.Kind == StageErrorCanceled {
				r.Outcome = OutcomeCanceled
				return
			}
		}
		r.Outcome = OutcomeFailed
		return
	}
	if len(r.Warnings) > 0 {
		r.Outcome = OutcomeWarning
		return
	}
	r.Outcome = OutcomeSuccess
}

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	dur := r.End.Sub(r.Start)
	return fmt.Sprintf("build=%s duration=%s bundles=%d copied=%d pages=%d findings=%d errors=%d warnings=%d outcome=%s",
		r.BuildID, dur.Truncate(time.Millisecond), len(r.Bundles), len(r.Copied), len(r.UpdatedPages),
		len(r.Findings), len(r.Errors), len(r.Warnings), string(r.Outcome))
}

// Persist writes build-report.json and build-report.txt atomically into root.
func (r *BuildReport) Persist(root string) error {
	if r.End.IsZero() {
		r.Finish()
		r.DeriveOutcome()
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return fmt.Errorf("ensure root for report: %w", err)
	}
	jb, err := json.MarshalIndent(r.SanitizedCopy(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	if err := writeReplace(filepath.Join(root, "build-report.json"), jb); err != nil {
		return fmt.Errorf("write report json: %w", err)
	}
	if err := writeReplace(filepath.Join(root, "build-report.txt"), []byte(r.Summary()+"\n")); err != nil {
		return fmt.Errorf("write report summary: %w", err)
	}
	return nil
}

func writeReplace(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// SanitizedCopy returns a copy with error fields converted to strings for JSON output.
func (r *BuildReport) SanitizedCopy() *BuildReportSerializable {
	stageCounts := make(map[string]StageCount, len(r.StageCounts))
	for k, v := range r.StageCounts {
		stageCounts[string(k)] = v
	}
	sek := make(map[string]string, len(r.StageErrorKinds))
	for k, v := range r.StageErrorKinds {
		sek[string(k)] = string(v)
	}
	durations := make(map[string]int64, len(r.StageDurations))
	for k, v := range r.StageDurations {
		durations[k] = v.Milliseconds()
	}

	s := &BuildReportSerializable{
		SchemaVersion:    r.SchemaVersion,
		BuildID:          r.BuildID,
		Version:          r.Version,
		SourceRevision:   r.SourceRevision,
		SourceDir:        r.SourceDir,
		OutputDir:        r.OutputDir,
		Start:            r.Start,
		End:              r.End,
		Errors:           errorStrings(r.Errors),
		Warnings:         errorStrings(r.Warnings),
		StageDurationsMS: durations,
		StageErrorKinds:  sek,
		StageCounts:      stageCounts,
		Bundles:          r.Bundles,
		Copied:           r.Copied,
		UpdatedPages:     r.UpdatedPages,
		Findings:         r.Findings,
		Outcome:          string(r.Outcome),
		Issues:           r.Issues,
	}
	if s.Issues == nil {
		s.Issues = []ReportIssue{}
	}
	return s
}

func errorStrings(errs []error) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}

// BuildReportSerializable mirrors BuildReport with string errors for JSON output.
type BuildReportSerializable struct {
	SchemaVersion    int                   `json:"schema_version"`
	BuildID          string                `json:"build_id"`
	Version          string                `json:"version"`
	SourceRevision   string                `json:"source_revision,omitempty"`
	SourceDir        string                `json:"source_dir"`
	OutputDir        string                `json:"output_dir"`
	Start            time.Time             `json:"start"`
	End              time.Time             `json:"end"`
	Errors           []string              `json:"errors"`
	Warnings         []string              `json:"warnings"`
	StageDurationsMS map[string]int64      `json:"stage_durations_ms"`
	StageErrorKinds  map[string]string     `json:"stage_error_kinds"`
	StageCounts      map[string]StageCount `json:"stage_counts"`
	Bundles          map[string]BundleInfo `json:"bundles"`
	Copied           []CopiedEntry         `json:"copied"`
	UpdatedPages     []string              `json:"updated_pages"`
	Findings         []verify.Finding      `json:"findings,omitempty"`
	Outcome          string                `json:"outcome"`
	Issues           []ReportIssue         `json:"issues"`
}
