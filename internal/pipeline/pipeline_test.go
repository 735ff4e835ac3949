package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/clickit/internal/eventstore"
	"git.home.luguber.info/inful/clickit/internal/manifest"
	"git.home.luguber.info/inful/clickit/internal/metrics"
)

const fixturePage = `<!DOCTYPE html>
<html>
<head>
    <link rel="stylesheet" href="css/a.css">
    <link rel="stylesheet" href="css/b.css">
</head>
<body>
    <img src="images/logo.png">
    <!-- Scripts -->
    <script src="config/settings.js"></script>
    <script src="js/app.js"></script>
</body>
</html>
`

func testManifest() manifest.Manifest {
	return manifest.Manifest{
		Styles:  []string{"css/a.css", "css/b.css"},
		Scripts: []string{"config/settings.js", "js/app.js"},
		Copy: []manifest.CopyEntry{
			{Src: "index.html", Dest: "index.html"},
			{Src: "images", Dest: "images", IsDir: true},
			{Src: "config", Dest: "config", IsDir: true},
		},
		Pages: []string{"index.html"},
	}
}

func writeFixture(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
}

func fixtureSite(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	writeFixture(t, src, map[string]string{
		"index.html":         fixturePage,
		"css/a.css":          "/* base */\nbody {\n  color : red;\n}\n",
		"css/b.css":          ".x { margin: 0; }\n",
		"config/settings.js": "const SETTINGS = { brand: 'Click IT' };\n",
		"js/app.js":          "// boot\nfunction boot() { return SETTINGS; }\n",
		"images/logo.png":    "\x89PNG",
	})
	return src
}

func TestRun_EndToEnd(t *testing.T) {
	src := fixtureSite(t)
	out := filepath.Join(t.TempDir(), "dist")
	var console bytes.Buffer

	report, err := Run(t.Context(), Options{
		SourceDir: src,
		OutputDir: out,
		Manifest:  testManifest(),
		Verify:    true,
		Console:   &console,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Empty(t, report.Warnings)
	assert.NotEmpty(t, report.BuildID)

	css, err := os.ReadFile(filepath.Join(out, "css", "bundle.css"))
	require.NoError(t, err)
	assert.Equal(t, "body{color:red} .x{margin:0}", string(css))

	js, err := os.ReadFile(filepath.Join(out, "js", "bundle.js"))
	require.NoError(t, err)
	assert.Less(t, strings.Index(string(js), "SETTINGS ="), strings.Index(string(js), "function boot"))
	assert.NotContains(t, string(js), "// boot")

	page, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(page), `href="./css/bundle.css"`))
	assert.Equal(t, 1, strings.Count(string(page), `src="./js/bundle.js"`))
	assert.NotContains(t, string(page), "js/app.js")

	source, err := os.ReadFile(filepath.Join(src, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, fixturePage, string(source), "source page must not change")

	assert.FileExists(t, filepath.Join(out, "images", "logo.png"))
	assert.FileExists(t, filepath.Join(out, "config", "settings.js"))

	assert.Equal(t, []string{"index.html"}, report.UpdatedPages)
	assert.Len(t, report.Copied, 3)
	assert.Equal(t, 2, report.Bundles["style"].Fragments)
	for _, st := range []StageName{StagePrepareOutput, StageBundleStyles, StageBundleScripts, StageCopyStatic, StageRewritePages, StageVerifyPages} {
		assert.Equal(t, 1, report.StageCounts[st].Success, "stage %s", st)
	}

	assert.Contains(t, console.String(), "Updated: index.html")
	assert.True(t, strings.HasSuffix(console.String(), "Ready for deployment\n"))
}

func TestRun_StaleOutputIsRemoved(t *testing.T) {
	src := fixtureSite(t)
	out := filepath.Join(t.TempDir(), "dist")
	writeFixture(t, out, map[string]string{"old.html": "stale"})

	_, err := Run(t.Context(), Options{SourceDir: src, OutputDir: out, Manifest: testManifest()})
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(out, "old.html"))
}

func TestRun_MissingSourcesAreWarnings(t *testing.T) {
	src := fixtureSite(t)
	require.NoError(t, os.Remove(filepath.Join(src, "css", "b.css")))
	require.NoError(t, os.RemoveAll(filepath.Join(src, "images")))

	m := testManifest()
	m.Pages = append(m.Pages, "about.html")

	var console bytes.Buffer
	report, err := Run(t.Context(), Options{SourceDir: src, OutputDir: filepath.Join(t.TempDir(), "dist"), Manifest: m, Console: &console})
	require.NoError(t, err)
	assert.Equal(t, OutcomeWarning, report.Outcome)
	assert.Len(t, report.Warnings, 3)
	assert.Equal(t, []string{"css/b.css"}, report.Bundles["style"].Missing)
	assert.Equal(t, 1, report.StageCounts[StageBundleStyles].Warning)
	assert.Equal(t, 1, report.StageCounts[StageCopyStatic].Warning)
	assert.Equal(t, 1, report.StageCounts[StageRewritePages].Warning)

	var codes []ReportIssueCode
	for _, is := range report.Issues {
		codes = append(codes, is.Code)
	}
	assert.ElementsMatch(t, []ReportIssueCode{IssueMissingFragment, IssueMissingCopySource, IssueMissingPage}, codes)
	assert.Contains(t, console.String(), "Ready for deployment")
}

func TestRun_FatalStageAborts(t *testing.T) {
	src := fixtureSite(t)
	// A directory where a fragment file is expected is an unexpected I/O failure.
	require.NoError(t, os.Remove(filepath.Join(src, "js", "app.js")))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "js", "app.js"), 0o750))
	out := filepath.Join(t.TempDir(), "dist")

	var console bytes.Buffer
	report, err := Run(t.Context(), Options{SourceDir: src, OutputDir: out, Manifest: testManifest(), Console: &console})
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageBundleScripts, se.Stage)
	assert.Equal(t, StageErrorFatal, se.Kind)

	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Equal(t, 1, report.StageCounts[StageBundleScripts].Fatal)
	_, ran := report.StageCounts[StageCopyStatic]
	assert.False(t, ran, "stages after a fatal error must not run")
	assert.NoFileExists(t, filepath.Join(out, "index.html"))
	assert.NotContains(t, console.String(), "Ready for deployment")
}

func TestRun_RefusesOutputContainingSource(t *testing.T) {
	parent := t.TempDir()
	src := filepath.Join(parent, "site")
	writeFixture(t, src, map[string]string{"index.html": fixturePage})

	_, err := Run(t.Context(), Options{SourceDir: src, OutputDir: parent, Manifest: testManifest()})
	require.Error(t, err)
	assert.FileExists(t, filepath.Join(src, "index.html"))
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	report, err := Run(ctx, Options{SourceDir: fixtureSite(t), OutputDir: filepath.Join(t.TempDir(), "dist"), Manifest: testManifest()})
	require.Error(t, err)
	assert.Equal(t, OutcomeCanceled, report.Outcome)
}

func TestRun_InvalidManifest(t *testing.T) {
	m := testManifest()
	m.Styles = append(m.Styles, "../outside.css")
	_, err := Run(t.Context(), Options{SourceDir: t.TempDir(), OutputDir: filepath.Join(t.TempDir(), "dist"), Manifest: m})
	require.Error(t, err)
}

func TestRun_PersistsReportAndEvents(t *testing.T) {
	src := fixtureSite(t)
	reportDir := filepath.Join(t.TempDir(), "reports")
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	reg := prom.NewRegistry()
	report, err := Run(t.Context(), Options{
		SourceDir: src,
		OutputDir: filepath.Join(t.TempDir(), "dist"),
		Manifest:  testManifest(),
		ReportDir: reportDir,
		Recorder:  metrics.NewPrometheusRecorder(reg),
		Events:    store,
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(reportDir, "build-report.json"))
	require.NoError(t, err)
	var decoded BuildReportSerializable
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, report.BuildID, decoded.BuildID)
	assert.Equal(t, "success", decoded.Outcome)
	assert.FileExists(t, filepath.Join(reportDir, "build-report.txt"))

	events, err := store.GetByStream(t.Context(), report.BuildID)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, eventstore.TypeBuildStarted, events[0].Type)
	assert.Equal(t, eventstore.TypeBuildCompleted, events[len(events)-1].Type)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["clickit_build_outcomes_total"])
	assert.True(t, names["clickit_bundle_bytes"])
}

func TestPipelineBuilder(t *testing.T) {
	noop := func(context.Context, *BuildState) error { return nil }
	defs := NewPipeline().
		Add(StagePrepareOutput, noop).
		AddIf(false, StageVerifyPages, noop).
		AddIf(true, StageRewritePages, noop).
		Build()
	require.Len(t, defs, 2)
	assert.Equal(t, StageRewritePages, defs[1].Name)

	assert.Len(t, DefaultStages(true), 6)
	assert.Len(t, DefaultStages(false), 5)
}

type recordingObserver struct {
	started   []StageName
	completed map[StageName]StageResult
	report    *BuildReport
}

func (r *recordingObserver) OnStageStart(s StageName) { r.started = append(r.started, s) }
func (r *recordingObserver) OnStageComplete(s StageName, _ time.Duration, res StageResult) {
	r.completed[s] = res
}
func (r *recordingObserver) OnBuildComplete(rep *BuildReport) { r.report = rep }

func TestRunStages_Classification(t *testing.T) {
	obs := &recordingObserver{completed: map[StageName]StageResult{}}
	bs := NewBuildState(t.TempDir(), t.TempDir(), testManifest())
	bs.Observer = obs

	stages := NewPipeline().
		Add(StageBundleStyles, func(_ context.Context, bs *BuildState) error {
			bs.Report.Warn(IssueMissingFragment, StageBundleStyles, "style fragment not found: css/x.css")
			return nil
		}).
		Add(StageBundleScripts, func(context.Context, *BuildState) error {
			return NewWarnStageError(StageBundleScripts, assert.AnError)
		}).
		Add(StageCopyStatic, func(context.Context, *BuildState) error { return assert.AnError }).
		Add(StageRewritePages, func(context.Context, *BuildState) error {
			t.Fatal("must not run after a fatal stage")
			return nil
		}).
		Build()

	err := RunStages(t.Context(), bs, stages)
	require.ErrorIs(t, err, assert.AnError)

	assert.Equal(t, StageResultWarning, obs.completed[StageBundleStyles])
	assert.Equal(t, StageResultWarning, obs.completed[StageBundleScripts])
	assert.Equal(t, StageResultFatal, obs.completed[StageCopyStatic])
	assert.Equal(t, []StageName{StageBundleStyles, StageBundleScripts, StageCopyStatic}, obs.started)
	require.NotNil(t, obs.report)
	assert.Equal(t, OutcomeFailed, obs.report.Outcome)
	assert.Equal(t, StageErrorFatal, bs.Report.StageErrorKinds[StageCopyStatic])
}

func TestBuildReportSummary(t *testing.T) {
	r := NewBuildReport("src", "dist")
	r.UpdatedPages = []string{"index.html", "about.html"}
	r.Warn(IssueMissingPage, StageRewritePages, "page not found: vendors.html")
	r.Finish()
	r.DeriveOutcome()

	s := r.Summary()
	assert.Contains(t, s, "pages=2")
	assert.Contains(t, s, "warnings=1")
	assert.Contains(t, s, "outcome=warning")
}
