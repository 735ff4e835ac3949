// Package rewrite patches built HTML pages so they load the asset bundles
// instead of the individual fragments. Every transformation is idempotent:
// rewriting an already rewritten page yields the same document.
package rewrite

import (
	"regexp"
	"strings"

	"git.home.luguber.info/inful/clickit/internal/manifest"
)

// Placement records where the script bundle tag was inserted.
type Placement string

const (
	PlacementMarker Placement = "marker"
	PlacementBody   Placement = "body"
	PlacementEnd    Placement = "end"
)

// Options configures a page rewrite.
type Options struct {
	StyleBundle    string         // href written for the style bundle, e.g. "./css/bundle.css"
	ScriptBundle   string         // src written for the script bundle
	ScriptTags     *regexp.Regexp // fragment and bundle script tags to remove; see manifest.ScriptPattern
	EmailWidgetSrc string
	CDNHost        string
}

// DefaultOptions derives rewrite options from m.
func DefaultOptions(m manifest.Manifest) Options {
	return Options{
		StyleBundle:    "./" + manifest.StyleBundle,
		ScriptBundle:   "./" + manifest.ScriptBundle,
		ScriptTags:     m.ScriptPattern(),
		EmailWidgetSrc: manifest.EmailWidgetSrc,
		CDNHost:        manifest.CDNHost,
	}
}

// Changes reports what a rewrite touched.
type Changes struct {
	StyleLinks            int // local stylesheet links found and collapsed
	StyleInserted         bool
	ScriptTagsRemoved     int
	ScriptPlacement       Placement
	EmailWidgetNormalized bool
	HintsInserted         bool
}

var (
	linkTag     = regexp.MustCompile(`(?mi)(^[ \t]*)?<link\b[^>]*>([ \t]*\r?\n)?`)
	relAttr     = regexp.MustCompile(`(?i)\brel\s*=\s*["']([^"']*)["']`)
	hrefAttr    = regexp.MustCompile(`(?i)\bhref\s*=\s*["']([^"']*)["']`)
	scriptsMark = regexp.MustCompile(`<!--\s*Scripts[^>]*>`)
	bodyClose   = regexp.MustCompile(`(?i)</body\s*>`)
	headClose   = regexp.MustCompile(`(?i)</head\s*>`)
)

// Page rewrites one HTML document:
//
//  1. local stylesheet links collapse to one style bundle link at the first
//     link's position (inserted before </head> when the page has none)
//  2. script tags for manifest fragments, and any earlier bundle tag, are removed
//  3. one script bundle tag is inserted on the line after the "<!-- Scripts"
//     marker, else before </body>, else at the end of the document
//  4. the email widget CDN tag loses defer/async and other attributes
//  5. dns-prefetch and preconnect hints for the CDN host are added before
//     </head> unless the page already has a dns-prefetch hint
func Page(html string, opts Options) (string, Changes) {
	var ch Changes
	html = collapseStyles(html, opts.StyleBundle, &ch)
	html = replaceScripts(html, opts, &ch)
	html = normalizeEmailWidget(html, opts.EmailWidgetSrc, &ch)
	html = insertHints(html, opts.CDNHost, &ch)
	return html, ch
}

func styleLink(href string) string {
	return `<link rel="stylesheet" href="` + href + `">`
}

func scriptTag(src string) string {
	return `<script src="` + src + `"></script>`
}

func collapseStyles(html, bundle string, ch *Changes) string {
	html = splice(html, linkTag, func(tag string) (string, bool) {
		if !isLocalStylesheet(tag) {
			return "", false
		}
		ch.StyleLinks++
		if ch.StyleLinks == 1 {
			return styleLink(bundle), true
		}
		return "", true
	})
	if ch.StyleLinks == 0 {
		if loc := headClose.FindStringIndex(html); loc != nil {
			html = insertLine(html, loc[0], "    "+styleLink(bundle)+"\n")
			ch.StyleInserted = true
		}
	}
	return html
}

// isLocalStylesheet reports whether tag is <link rel="stylesheet"> pointing
// at a .css file served from the site itself.
func isLocalStylesheet(tag string) bool {
	rel := relAttr.FindStringSubmatch(tag)
	if rel == nil || !hasToken(rel[1], "stylesheet") {
		return false
	}
	href := hrefAttr.FindStringSubmatch(tag)
	if href == nil {
		return false
	}
	target := strings.ToLower(strings.TrimSpace(href[1]))
	if strings.HasPrefix(target, "//") || strings.Contains(target, "://") || strings.HasPrefix(target, "data:") {
		return false
	}
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}
	return strings.HasSuffix(target, ".css")
}

func hasToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}

func replaceScripts(html string, opts Options, ch *Changes) string {
	if opts.ScriptTags != nil {
		html = splice(html, opts.ScriptTags, func(string) (string, bool) {
			ch.ScriptTagsRemoved++
			return "", true
		})
	}

	line := "    " + scriptTag(opts.ScriptBundle) + "\n"
	if loc := scriptsMark.FindStringIndex(html); loc != nil {
		ch.ScriptPlacement = PlacementMarker
		if nl := strings.IndexByte(html[loc[1]:], '\n'); nl >= 0 {
			at := loc[1] + nl + 1
			return html[:at] + line + html[at:]
		}
		return html[:loc[1]] + "\n" + line + html[loc[1]:]
	}
	if loc := bodyClose.FindStringIndex(html); loc != nil {
		ch.ScriptPlacement = PlacementBody
		return insertLine(html, loc[0], line)
	}
	ch.ScriptPlacement = PlacementEnd
	if html != "" && !strings.HasSuffix(html, "\n") {
		html += "\n"
	}
	return html + scriptTag(opts.ScriptBundle) + "\n"
}

func normalizeEmailWidget(html, src string, ch *Changes) string {
	if src == "" || !strings.Contains(html, src) {
		return html
	}
	re := regexp.MustCompile(`(?i)<script\b[^>]*\bsrc=["']` + regexp.QuoteMeta(src) + `["'][^>]*>\s*</script>`)
	canonical := scriptTag(src)
	return re.ReplaceAllStringFunc(html, func(tag string) string {
		if tag != canonical {
			ch.EmailWidgetNormalized = true
		}
		return canonical
	})
}

func insertHints(html, host string, ch *Changes) string {
	if host == "" || strings.Contains(strings.ToLower(html), "dns-prefetch") {
		return html
	}
	loc := headClose.FindStringIndex(html)
	if loc == nil {
		return html
	}
	ch.HintsInserted = true
	hints := `    <link rel="dns-prefetch" href="` + host + `">` + "\n" +
		`    <link rel="preconnect" href="` + host + `" crossorigin>` + "\n"
	return insertLine(html, loc[0], hints)
}

// insertLine places block (newline-terminated) on its own line(s) directly
// above the text at pos, keeping pos's indentation with its line.
func insertLine(s string, pos int, block string) string {
	start := strings.LastIndexByte(s[:pos], '\n') + 1
	if strings.TrimSpace(s[start:pos]) == "" {
		return s[:start] + block + s[start:]
	}
	return s[:pos] + "\n" + block + s[pos:]
}

// splice rewrites every match of re whose tag part fn accepts. re must carry
// two optional groups: line-start indentation before the tag and the line
// break after it. A removed tag that was alone on its line takes the whole
// line with it; otherwise surrounding text is kept as is.
func splice(s string, re *regexp.Regexp, fn func(tag string) (replacement string, ok bool)) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		tagStart, tagEnd := m[0], m[1]
		lead, trail := "", ""
		if m[2] >= 0 {
			tagStart = m[3]
			lead = s[m[2]:m[3]]
		}
		if m[4] >= 0 {
			tagEnd = m[4]
			trail = s[m[4]:m[5]]
		}

		repl, ok := fn(s[tagStart:tagEnd])
		if !ok {
			continue
		}
		b.WriteString(s[last:m[0]])
		switch {
		case repl != "":
			b.WriteString(lead + repl + trail)
		case m[2] >= 0 && (m[4] >= 0 || m[1] == len(s)):
			// whole line removed
		default:
			b.WriteString(lead + trail)
		}
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}
