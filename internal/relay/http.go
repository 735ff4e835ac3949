package relay

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"git.home.luguber.info/inful/clickit/internal/foundation/errors"
	"git.home.luguber.info/inful/clickit/internal/server/middleware"
)

const maxBodyBytes = 64 << 10

// Router mounts r at path behind the shared logging, metrics and recovery
// middleware.
func Router(r *Relay, path string) http.Handler {
	adapter := errors.NewHTTPErrorAdapter(r.logger)
	mux := chi.NewRouter()
	mux.Use(middleware.Chain(r.logger, adapter, r.recorder, "relay"))
	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
	})
	mux.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
		if err != nil {
			for k, v := range r.headers() {
				w.Header().Set(k, v)
			}
			adapter.WriteErrorResponse(w, req, errors.WrapError(err, errors.CategoryValidation, "read request body").Build())
			return
		}
		writeResponse(w, r.Handle(req.Context(), Event{HTTPMethod: req.Method, Body: string(body)}))
	})
	return mux
}

func writeResponse(w http.ResponseWriter, resp Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = io.WriteString(w, resp.Body)
	}
}
