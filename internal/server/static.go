package server

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"git.home.luguber.info/inful/clickit/internal/logfields"
)

// Static serves files from an output root.
type Static struct {
	fsys   fs.FS
	inject string // appended before </body> of HTML responses when non-empty
	logger *slog.Logger
}

// NewStatic returns a handler serving the directory root.
func NewStatic(root string, logger *slog.Logger) *Static {
	return NewStaticFS(os.DirFS(root), logger)
}

// NewStaticFS returns a handler serving fsys.
func NewStaticFS(fsys fs.FS, logger *slog.Logger) *Static {
	if logger == nil {
		logger = slog.Default()
	}
	return &Static{fsys: fsys, logger: logger}
}

// InjectBeforeBody sets a snippet inserted before the last </body> of every
// HTML response.
func (s *Static) InjectBeforeBody(snippet string) { s.inject = snippet }

func (s *Static) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name, ok := resolveName(r.URL.Path)
	if !ok {
		writeHTML(w, http.StatusForbidden, "<h1>403 - Forbidden</h1>")
		return
	}

	name, data, modTime, err := s.read(name)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			writeHTML(w, http.StatusNotFound, fmt.Sprintf("<h1>404 - File Not Found</h1><p>File: %s</p>", html.EscapeString(r.URL.Path)))
			return
		}
		s.logger.Error("Static file read failed", logfields.Path(name), logfields.Error(err))
		writeHTML(w, http.StatusInternalServerError, fmt.Sprintf("<h1>500 - Server Error</h1><p>Error: %s</p>", html.EscapeString(errorCode(err))))
		return
	}

	ct := ContentType(name)
	if s.inject != "" && strings.HasPrefix(ct, "text/html") {
		data = injectBeforeBody(data, s.inject)
	}
	w.Header().Set("Content-Type", ct)
	http.ServeContent(w, r, name, modTime, bytes.NewReader(data))
}

// resolveName maps a URL path to a slash-separated name below the root.
// "/" and directories map to their index.html. ok is false when the path
// resolves outside the root.
func resolveName(urlPath string) (name string, ok bool) {
	if strings.Contains(urlPath, "\x00") || strings.Contains(urlPath, `\`) {
		return "", false
	}
	rel := path.Clean(strings.TrimPrefix(urlPath, "/"))
	if rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return "", false
	}
	if rel == "." {
		return "index.html", true
	}
	return rel, true
}

// read loads name, descending into index.html for directories, and returns
// the name actually read.
func (s *Static) read(name string) (string, []byte, time.Time, error) {
	info, err := fs.Stat(s.fsys, name)
	if err != nil {
		return name, nil, time.Time{}, normalizeNotExist(err)
	}
	if info.IsDir() {
		name = path.Join(name, "index.html")
		if info, err = fs.Stat(s.fsys, name); err != nil {
			return name, nil, time.Time{}, normalizeNotExist(err)
		}
		if info.IsDir() {
			return name, nil, time.Time{}, fs.ErrNotExist
		}
	}
	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		return name, nil, time.Time{}, normalizeNotExist(err)
	}
	return name, data, info.ModTime(), nil
}

// fs.ErrInvalid is reported for names os.DirFS refuses; treat them as absent.
func normalizeNotExist(err error) error {
	if stderrors.Is(err, fs.ErrInvalid) {
		return fs.ErrNotExist
	}
	return err
}

// errorCode reports the innermost error text, without the file path.
func errorCode(err error) string {
	var pe *fs.PathError
	if stderrors.As(err, &pe) {
		return pe.Err.Error()
	}
	return err.Error()
}

func injectBeforeBody(data []byte, snippet string) []byte {
	idx := bytes.LastIndex(bytes.ToLower(data), []byte("</body>"))
	if idx < 0 {
		return append(data, snippet...)
	}
	out := make([]byte, 0, len(data)+len(snippet))
	out = append(out, data[:idx]...)
	out = append(out, snippet...)
	return append(out, data[idx:]...)
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
