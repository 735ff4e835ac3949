package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/clickit/internal/foundation/errors"
	"git.home.luguber.info/inful/clickit/internal/metrics"
	"git.home.luguber.info/inful/clickit/internal/server/httpserver"
	"git.home.luguber.info/inful/clickit/internal/server/middleware"
)

// Options configures the development server.
type Options struct {
	Root           string // output root to serve
	Port           int
	Watch          bool
	SourceDir      string    // watched in watch mode
	Ignore         []string  // paths below SourceDir that never trigger rebuilds
	Build          BuildFunc // required in watch mode
	LiveReloadPort int       // 0 mounts live reload on Port
	MetricsPath    string
	Metrics        http.Handler // nil disables the metrics endpoint
	Recorder       metrics.Recorder
	Logger         *slog.Logger
}

// Server is the development static server.
type Server struct {
	opts    Options
	logger  *slog.Logger
	static  *Static
	hub     *LiveReloadHub
	watcher *Watcher
}

// New wires a server from opts.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{opts: opts, logger: logger, static: NewStatic(opts.Root, logger)}
	if opts.Watch {
		s.hub = NewLiveReloadHub()
		s.watcher = NewWatcher(opts.SourceDir, append([]string{opts.Root}, opts.Ignore...), opts.Build, s.hub, logger)
		src := "/livereload.js"
		if opts.LiveReloadPort > 0 {
			src = fmt.Sprintf("http://localhost:%d/livereload.js", opts.LiveReloadPort)
		}
		s.static.InjectBeforeBody(`<script async src="` + src + `"></script>`)
	}
	return s
}

// Handler returns the main router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Chain(s.logger, errors.NewHTTPErrorAdapter(s.logger), s.opts.Recorder, "static"))

	r.Get("/healthz", s.handleHealth)
	if s.opts.Metrics != nil && s.opts.MetricsPath != "" {
		r.Handle(s.opts.MetricsPath, s.opts.Metrics)
	}
	if s.hub != nil && s.opts.LiveReloadPort == 0 {
		r.Handle("/livereload", s.hub)
		r.Handle("/livereload.js", liveReloadScriptHandler(""))
	}
	r.Handle("/*", s.static)
	return r
}

// liveReloadHandler serves the dedicated live reload port.
func (s *Server) liveReloadHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if req.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Handle("/livereload", s.hub)
	r.Handle("/livereload.js", liveReloadScriptHandler(fmt.Sprintf("http://localhost:%d", s.opts.LiveReloadPort)))
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status, code := "ok", http.StatusOK
	if s.watcher != nil {
		select {
		case <-s.watcher.Ready():
			if s.watcher.LastError() != nil {
				status = "build_failed"
			}
		default:
			status, code = "building", http.StatusServiceUnavailable
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, "{\"status\":%q}\n", status)
}

// Run serves until ctx is done. In watch mode the first build completes
// before the listener opens.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if s.watcher != nil {
		g.Go(func() error { return s.watcher.Run(gctx) })
		// Open event streams never go idle; close them before the servers shut down.
		g.Go(func() error {
			<-gctx.Done()
			s.hub.Shutdown()
			return nil
		})
		select {
		case <-s.watcher.Ready():
		case <-gctx.Done():
			return g.Wait()
		}
	}

	fail := func(err error) error {
		cancel()
		_ = g.Wait()
		return err
	}

	ln, err := httpserver.Listen(fmt.Sprintf(":%d", s.opts.Port))
	if err != nil {
		return fail(err)
	}
	s.logger.Info("Serving site", slog.String("root", s.opts.Root), slog.String("url", fmt.Sprintf("http://localhost:%d", s.opts.Port)))

	writeTimeout := 30 * time.Second
	if s.hub != nil && s.opts.LiveReloadPort == 0 {
		writeTimeout = 0
	}
	g.Go(func() error { return httpserver.Serve(gctx, "static", httpserver.New(s.Handler(), writeTimeout), ln) })

	if s.hub != nil && s.opts.LiveReloadPort > 0 {
		lrln, err := httpserver.Listen(fmt.Sprintf(":%d", s.opts.LiveReloadPort))
		if err != nil {
			return fail(err)
		}
		g.Go(func() error { return httpserver.Serve(gctx, "livereload", httpserver.New(s.liveReloadHandler(), 0), lrln) })
	}
	return g.Wait()
}
