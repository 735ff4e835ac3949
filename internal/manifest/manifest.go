// Package manifest declares what goes into a site build: the ordered style and
// script fragments, the verbatim copy list and the pages to rewrite.
//
// Bundle membership is never discovered from the filesystem. Fragment order is
// the cascade order for styles and the initialization order for scripts, so it
// is fixed at compile time and preserved exactly.
package manifest

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Kind is the asset class of a fragment or bundle.
type Kind string

const (
	KindStyle  Kind = "style"
	KindScript Kind = "script"
)

// Bundle output paths, relative to the output root.
const (
	StyleBundle  = "css/bundle.css"
	ScriptBundle = "js/bundle.js"
)

// Third-party CDN references patched into every page.
const (
	EmailWidgetSrc = "https://cdn.jsdelivr.net/npm/@emailjs/browser@3/dist/email.min.js"
	CDNHost        = "https://cdn.jsdelivr.net"
)

// CopyEntry mirrors one file or directory from the source root into the output root.
type CopyEntry struct {
	Src   string `json:"src"`
	Dest  string `json:"dest"`
	IsDir bool   `json:"is_dir,omitempty"`
}

// Manifest is the complete build input declaration.
type Manifest struct {
	Styles  []string    `json:"styles"`
	Scripts []string    `json:"scripts"`
	Copy    []CopyEntry `json:"copy"`
	Pages   []string    `json:"pages"`
}

// Default returns the Click IT site manifest.
func Default() Manifest {
	pages := []string{"index.html", "about.html", "contact.html", "customers.html", "vendors.html"}

	entries := make([]CopyEntry, 0, len(pages)+2)
	for _, p := range pages {
		entries = append(entries, CopyEntry{Src: p, Dest: p})
	}
	entries = append(entries,
		CopyEntry{Src: "images", Dest: "images", IsDir: true},
		CopyEntry{Src: "config", Dest: "config", IsDir: true},
	)

	return Manifest{
		Styles: []string{
			"css/base.css",
			"css/layout.css",
			"css/components.css",
			"css/theme.css",
			"css/homepage.css",
			"css/premium-design.css",
			"css/how-it-works.css",
			"css/vendor-onboarding.css",
			"css/coming-soon.css",
		},
		Scripts: []string{
			"config/constants.js",
			"js/theme.js",
			"js/components.js",
			"js/main.js",
		},
		Copy:  entries,
		Pages: pages,
	}
}

// Fragments returns the fragment list for kind.
func (m Manifest) Fragments(kind Kind) []string {
	if kind == KindScript {
		return m.Scripts
	}
	return m.Styles
}

// BundlePath returns the output-relative bundle path for kind.
func BundlePath(kind Kind) string {
	if kind == KindScript {
		return ScriptBundle
	}
	return StyleBundle
}

// Validate rejects manifests that could only come from a programming error:
// empty, absolute or parent-escaping paths and duplicate fragments.
func (m Manifest) Validate() error {
	var errs []error
	for _, group := range []struct {
		name  string
		paths []string
	}{
		{"styles", m.Styles},
		{"scripts", m.Scripts},
		{"pages", m.Pages},
	} {
		seen := make(map[string]struct{}, len(group.paths))
		for _, p := range group.paths {
			if err := checkRelative(p); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", group.name, err))
				continue
			}
			if _, dup := seen[p]; dup {
				errs = append(errs, fmt.Errorf("%s: duplicate entry %q", group.name, p))
			}
			seen[p] = struct{}{}
		}
	}
	for _, e := range m.Copy {
		if err := checkRelative(e.Src); err != nil {
			errs = append(errs, fmt.Errorf("copy src: %w", err))
		}
		if err := checkRelative(e.Dest); err != nil {
			errs = append(errs, fmt.Errorf("copy dest: %w", err))
		}
	}
	return errors.Join(errs...)
}

func checkRelative(p string) error {
	switch {
	case strings.TrimSpace(p) == "":
		return errors.New("empty path")
	case path.IsAbs(p) || strings.Contains(p, "\\"):
		return fmt.Errorf("path %q must be relative and slash-separated", p)
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("path %q escapes the root", p)
	}
	return nil
}

// ScriptPattern matches <script src> tags that load one of the manifest's
// script fragments or the script bundle itself. The optional leading group
// captures line-start indentation and the trailing group the line break, so
// callers can drop whole lines. The pattern tracks the current manifest;
// renamed fragments never leave stale tags behind.
func (m Manifest) ScriptPattern() *regexp.Regexp {
	srcs := make([]string, 0, len(m.Scripts)+1)
	for _, s := range append(append([]string{}, m.Scripts...), ScriptBundle) {
		srcs = append(srcs, regexp.QuoteMeta(path.Clean(s)))
	}
	return regexp.MustCompile(`(?mi)(^[ \t]*)?<script\b[^>]*?\bsrc=["'](?:\./|/)?(?:` +
		strings.Join(srcs, "|") +
		`)(?:\?[^"']*)?["'][^>]*>\s*</script>([ \t]*\r?\n)?`)
}
