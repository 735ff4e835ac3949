// Package verify inspects rewritten pages with a real HTML parser and reports
// anything the regex-based rewrite may have gotten wrong. Findings are
// advisory; they never fail a build.
package verify

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/clickit/internal/foundation/errors"
)

// FindingKind classifies a verification finding.
type FindingKind string

const (
	KindStyleBundleCount  FindingKind = "style_bundle_count"
	KindScriptBundleCount FindingKind = "script_bundle_count"
	KindStaleFragment     FindingKind = "stale_fragment_script"
	KindMissingAsset      FindingKind = "missing_asset"
)

// Finding is one problem found on a page.
type Finding struct {
	Page   string      `json:"page"`
	Kind   FindingKind `json:"kind"`
	Detail string      `json:"detail"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s: %s", f.Page, f.Kind, f.Detail)
}

// Expect describes what a correctly rewritten page references.
type Expect struct {
	Page         string   // page path relative to the output root
	StyleBundle  string   // output-relative style bundle path
	ScriptBundle string   // output-relative script bundle path
	Fragments    []string // script fragments that must no longer be referenced
	OutputRoot   string   // when set, local references must exist below it
}

// ref is one resource reference extracted from a page.
type ref struct {
	tag  string
	attr string
	url  string
}

// File verifies the page expect.Page below expect.OutputRoot.
func File(expect Expect) ([]Finding, error) {
	p := filepath.Join(expect.OutputRoot, filepath.FromSlash(expect.Page))
	f, err := os.Open(filepath.Clean(p))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to open HTML file").
			WithSeverity(errors.SeverityError).
			WithContext("html_path", p).
			Build()
	}
	defer func() {
		_ = f.Close()
	}()
	return Page(f, expect)
}

// Page parses r and checks it against expect.
func Page(r io.Reader, expect Expect) ([]Finding, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").
			WithSeverity(errors.SeverityError).
			WithContext("page", expect.Page).
			Build()
	}

	var refs []ref
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			refs = append(refs, extract(n)...)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	fragments := make(map[string]struct{}, len(expect.Fragments))
	for _, f := range expect.Fragments {
		fragments[path.Clean(f)] = struct{}{}
	}

	var findings []Finding
	add := func(kind FindingKind, format string, args ...any) {
		findings = append(findings, Finding{Page: expect.Page, Kind: kind, Detail: fmt.Sprintf(format, args...)})
	}

	var styles, scripts int
	for _, rf := range refs {
		target, local := resolve(expect.Page, rf.url)
		if !local {
			continue
		}
		switch {
		case rf.tag == "link" && target == expect.StyleBundle:
			styles++
		case rf.tag == "script" && target == expect.ScriptBundle:
			scripts++
		case rf.tag == "script":
			if _, stale := fragments[target]; stale {
				add(KindStaleFragment, "script fragment %s still referenced", target)
			}
		}
		if expect.OutputRoot != "" && !exists(expect.OutputRoot, target) {
			add(KindMissingAsset, "<%s %s=%q> does not resolve to a file", rf.tag, rf.attr, rf.url)
		}
	}

	if styles != 1 {
		add(KindStyleBundleCount, "expected 1 reference to %s, found %d", expect.StyleBundle, styles)
	}
	if scripts != 1 {
		add(KindScriptBundleCount, "expected 1 reference to %s, found %d", expect.ScriptBundle, scripts)
	}
	return findings, nil
}

func extract(n *html.Node) []ref {
	switch n.Data {
	case "a", "link":
		if v := getAttr(n, "href"); v != "" {
			return []ref{{tag: n.Data, attr: "href", url: v}}
		}
	case "script", "img", "source", "video", "audio":
		if v := getAttr(n, "src"); v != "" {
			return []ref{{tag: n.Data, attr: "src", url: v}}
		}
	}
	return nil
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// resolve maps a reference on page to an output-relative path. local is
// false for external URLs, anchors and non-file schemes.
func resolve(page, raw string) (target string, local bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, "//") {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return "", false
	}

	p := u.Path
	if strings.HasPrefix(p, "/") {
		p = strings.TrimPrefix(p, "/")
	} else {
		p = path.Join(path.Dir(page), p)
	}
	if p == "" || strings.HasSuffix(u.Path, "/") {
		p = path.Join(p, "index.html")
	}
	return path.Clean(p), true
}

func exists(root, rel string) bool {
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return false
	}
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil || !stderrors.Is(err, fs.ErrNotExist)
}
