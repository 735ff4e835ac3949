package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"git.home.luguber.info/inful/clickit/internal/config"
	"git.home.luguber.info/inful/clickit/internal/eventstore"
	"git.home.luguber.info/inful/clickit/internal/foundation/errors"
	"git.home.luguber.info/inful/clickit/internal/logfields"
	"git.home.luguber.info/inful/clickit/internal/relay"
	"git.home.luguber.info/inful/clickit/internal/server/httpserver"
)

// RelayCmd implements the 'relay' command.
type RelayCmd struct {
	Port int `short:"p" help:"Port to listen on (overrides relay.port)"`
}

func (r *RelayCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if r.Port > 0 {
		cfg.Relay.Port = r.Port
	}

	ctx, cancel := signalContext()
	defer cancel()
	return RunRelay(ctx, cfg, g.Logger)
}

// RunRelay serves the contact relay until ctx is done.
func RunRelay(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	sender, closeSender, err := relay.NewSender(cfg.Relay)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSender(); err != nil {
			logger.Warn("Failed to close mail sender", logfields.Error(err))
		}
	}()

	recorder, metricsHandler := metricsFor(cfg)
	opts := relay.Options{
		Sender:         sender,
		Brand:          cfg.Brand.Name,
		SenderEmail:    cfg.Relay.SenderEmail,
		RecipientEmail: cfg.Relay.RecipientEmail,
		AllowedOrigin:  cfg.Relay.AllowedOrigin,
		Recorder:       recorder,
		Logger:         logger,
	}
	if path := cfg.Relay.ArchivePath; path != "" {
		store, err := eventstore.NewSQLiteStore(path)
		if err != nil {
			return errors.WrapError(err, errors.CategoryEventStore, "open submission archive").
				Fatal().
				WithContext("path", path).
				Build()
		}
		defer func() { _ = store.Close() }()
		opts.Archive = store
	}

	handler := relayHandler(relay.New(opts), cfg, metricsHandler)

	ln, err := httpserver.Listen(fmt.Sprintf(":%d", cfg.Relay.Port))
	if err != nil {
		return err
	}
	logger.Info("Contact relay listening",
		logfields.Addr(ln.Addr().String()),
		slog.String("path", cfg.Relay.Path),
		logfields.Provider(string(cfg.Relay.Provider)),
		logfields.Recipient(cfg.Relay.RecipientEmail))
	return httpserver.Serve(ctx, "relay", httpserver.New(handler, 30*time.Second), ln)
}

func relayHandler(r *relay.Relay, cfg *config.Config, metricsHandler http.Handler) http.Handler {
	if metricsHandler == nil {
		return relay.Router(r, cfg.Relay.Path)
	}
	mux := chi.NewRouter()
	mux.Handle(cfg.Monitoring.Metrics.Path, metricsHandler)
	mux.Mount("/", relay.Router(r, cfg.Relay.Path))
	return mux
}
