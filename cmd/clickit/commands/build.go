package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/clickit/internal/config"
	"git.home.luguber.info/inful/clickit/internal/eventstore"
	"git.home.luguber.info/inful/clickit/internal/foundation/errors"
	"git.home.luguber.info/inful/clickit/internal/logfields"
	"git.home.luguber.info/inful/clickit/internal/metrics"
	"git.home.luguber.info/inful/clickit/internal/pipeline"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Source   string `short:"s" help:"Source directory (overrides site.source_dir)"`
	Output   string `short:"o" help:"Output directory (overrides site.output_dir)"`
	NoVerify bool   `name:"no-verify" help:"Skip the page verification stage"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	b.apply(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	builder := newSiteBuilder(cfg, metrics.NoopRecorder{}, os.Stdout)
	defer builder.Close()
	_, err = builder.Build(ctx)
	return err
}

func (b *BuildCmd) apply(cfg *config.Config) {
	if b.Source != "" {
		cfg.Site.SourceDir = b.Source
	}
	if b.Output != "" {
		cfg.Site.OutputDir = b.Output
	}
	if b.NoVerify {
		off := false
		cfg.Build.Verify = &off
	}
}

// siteBuilder runs pipeline builds sharing one event store and recorder, so
// watch-mode rebuilds do not reopen the database.
type siteBuilder struct {
	cfg      *config.Config
	recorder metrics.Recorder
	console  io.Writer
	store    *eventstore.SQLiteStore
}

func newSiteBuilder(cfg *config.Config, recorder metrics.Recorder, console io.Writer) *siteBuilder {
	sb := &siteBuilder{cfg: cfg, recorder: recorder, console: console}
	if path := cfg.Build.EventStore; path != "" {
		store, err := eventstore.NewSQLiteStore(path)
		if err != nil {
			cerr := errors.WrapError(err, errors.CategoryEventStore, "open build event store").
				WithContext("path", path).
				Build()
			slog.Warn("Build history disabled", logfields.Error(cerr))
		} else {
			sb.store = store
		}
	}
	return sb
}

// Build runs one pipeline build.
func (sb *siteBuilder) Build(ctx context.Context) (*pipeline.BuildReport, error) {
	opts := pipeline.OptionsFromConfig(sb.cfg)
	opts.Recorder = sb.recorder
	opts.Console = sb.console
	opts.Logger = slog.Default()
	if sb.store != nil {
		opts.Events = sb.store
	}
	return pipeline.Run(ctx, opts)
}

func (sb *siteBuilder) Close() {
	if sb.store == nil {
		return
	}
	if err := sb.store.Close(); err != nil {
		slog.Warn("Failed to close event store", logfields.Error(err))
	}
}
