// Package minify shrinks bundle text with a fixed sequence of regular
// expression rewrites.
//
// The rewrites are lexical, not syntactic. They do not understand string
// literals, so text such as "/* keep */" inside a JavaScript string, a URL
// containing "//" in a script, or a CSS value with an embedded ";}" sequence
// will be corrupted. Page authors keep such constructs out of bundled
// fragments. Replacing this with a tokenizer per asset kind is the way to make
// it safe; the current output format is kept stable until then.
//
// Rewrite order, per kind:
//
//	both:    strip /* block */ comments
//	script:  strip // line comments (on the original line structure)
//	both:    collapse whitespace runs to one space
//	both:    drop ';' and whitespace before '}'
//	both:    drop whitespace around '{'
//	style:   drop whitespace after ';'
//	style:   drop whitespace around ':'
//	both:    trim
package minify

import (
	"regexp"
	"strings"

	"git.home.luguber.info/inful/clickit/internal/manifest"
)

type rule struct {
	re   *regexp.Regexp
	repl string
}

var (
	blockComment = rule{regexp.MustCompile(`(?s)/\*.*?\*/`), ""}
	lineComment  = rule{regexp.MustCompile(`(?m)//.*$`), ""}
	whitespace   = rule{regexp.MustCompile(`\s+`), " "}
	closeBrace   = rule{regexp.MustCompile(`\s*;?\s*}`), "}"}
	openBrace    = rule{regexp.MustCompile(`\s*{\s*`), "{"}
	semicolon    = rule{regexp.MustCompile(`;\s*`), ";"}
	colon        = rule{regexp.MustCompile(`\s*:\s*`), ":"}
)

var pipelines = map[manifest.Kind][]rule{
	manifest.KindStyle:  {blockComment, whitespace, closeBrace, openBrace, semicolon, colon},
	manifest.KindScript: {blockComment, lineComment, whitespace, closeBrace, openBrace},
}

// Minify applies the rewrite sequence for kind. Unknown kinds are only trimmed.
func Minify(text string, kind manifest.Kind) string {
	for _, r := range pipelines[kind] {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return strings.TrimSpace(text)
}
