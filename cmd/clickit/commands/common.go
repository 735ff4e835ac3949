package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/clickit/internal/config"
)

// Global carries state shared by all subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"clickit.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" default:"withargs" help:"Bundle assets, copy static files and rewrite pages into the output directory"`
	Serve ServeCmd `cmd:"" help:"Serve the output directory, optionally rebuilding on change"`
	Relay RelayCmd `cmd:"" help:"Run the contact-form email relay"`
	Init  InitCmd  `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; it installs a logger honoring -v and
// CLICKIT_LOG_LEVEL until the configuration is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(newLogger(os.Stderr, parseLogLevel(c.Verbose, ""), config.LogFormatText))
	return nil
}

// parseLogLevel resolves the level with precedence -v > CLICKIT_LOG_LEVEL >
// configured level.
func parseLogLevel(verbose bool, configured config.LogLevel) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	if env := strings.TrimSpace(os.Getenv("CLICKIT_LOG_LEVEL")); env != "" {
		return config.NormalizeLogLevel(env).SlogLevel()
	}
	return configured.SlogLevel()
}

func newLogger(w io.Writer, level slog.Level, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadConfig reads the configuration and reinstalls the default logger with
// its logging settings.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(os.Stderr, parseLogLevel(root.Verbose, cfg.Monitoring.Logging.Level), cfg.Monitoring.Logging.Format)
	slog.SetDefault(logger)
	if g != nil {
		g.Logger = logger
	}
	return cfg, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
