package commands

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/clickit/internal/config"
	"git.home.luguber.info/inful/clickit/internal/metrics"
	"git.home.luguber.info/inful/clickit/internal/server"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Port           int  `short:"p" help:"Port to listen on (overrides server.port)"`
	Watch          bool `short:"w" help:"Rebuild on source changes and live reload browsers"`
	LiveReloadPort int  `name:"live-reload-port" help:"Serve live reload on a separate port"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	s.apply(cfg)

	ctx, cancel := signalContext()
	defer cancel()
	return RunServe(ctx, cfg, g.Logger)
}

func (s *ServeCmd) apply(cfg *config.Config) {
	if s.Port > 0 {
		cfg.Server.Port = s.Port
	}
	if s.Watch {
		cfg.Server.Watch = true
	}
	if s.LiveReloadPort > 0 {
		cfg.Server.LiveReloadPort = s.LiveReloadPort
	}
}

// metricsFor returns a recorder and scrape handler when metrics are enabled.
func metricsFor(cfg *config.Config) (metrics.Recorder, http.Handler) {
	if !cfg.Monitoring.Metrics.Enabled {
		return metrics.NoopRecorder{}, nil
	}
	reg := prometheus.NewRegistry()
	return metrics.NewPrometheusRecorder(reg), metrics.HTTPHandler(reg)
}

// serverOptions maps cfg onto the dev server options. build may be nil when
// watch mode is off.
func serverOptions(cfg *config.Config, recorder metrics.Recorder, handler http.Handler, build server.BuildFunc) server.Options {
	return server.Options{
		Root:           cfg.Site.OutputDir,
		Port:           cfg.Server.Port,
		Watch:          cfg.Server.Watch,
		SourceDir:      cfg.Site.SourceDir,
		Build:          build,
		LiveReloadPort: cfg.Server.LiveReloadPort,
		MetricsPath:    cfg.Monitoring.Metrics.Path,
		Metrics:        handler,
		Recorder:       recorder,
	}
}

// RunServe serves the output root until ctx is done. In watch mode every
// rebuild runs the full pipeline and prints its console lines.
func RunServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	recorder, handler := metricsFor(cfg)

	var build server.BuildFunc
	if cfg.Server.Watch {
		builder := newSiteBuilder(cfg, recorder, os.Stdout)
		defer builder.Close()
		build = func(ctx context.Context) error {
			_, err := builder.Build(ctx)
			return err
		}
	}

	opts := serverOptions(cfg, recorder, handler, build)
	opts.Logger = logger
	return server.New(opts).Run(ctx)
}
