package verify

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectFor(page string) Expect {
	return Expect{
		Page:         page,
		StyleBundle:  "css/bundle.css",
		ScriptBundle: "js/bundle.js",
		Fragments:    []string{"config/constants.js", "js/main.js"},
	}
}

func kinds(findings []Finding) []FindingKind {
	out := make([]FindingKind, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Kind)
	}
	return out
}

func TestPage_Clean(t *testing.T) {
	page := `<!DOCTYPE html><html><head>
<link rel="stylesheet" href="./css/bundle.css">
<link rel="dns-prefetch" href="https://cdn.jsdelivr.net">
</head><body>
<a href="#top">top</a><a href="mailto:hello@clickituk.co.uk">mail</a>
<script src="./js/bundle.js"></script>
</body></html>`

	findings, err := Page(strings.NewReader(page), expectFor("index.html"))
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestPage_DuplicateScriptBundle(t *testing.T) {
	page := `<html><head><link rel="stylesheet" href="css/bundle.css"></head><body>
<script src="./js/bundle.js"></script>
<script src="/js/bundle.js"></script>
</body></html>`

	findings, err := Page(strings.NewReader(page), expectFor("index.html"))
	require.NoError(t, err)
	assert.Equal(t, []FindingKind{KindScriptBundleCount}, kinds(findings))
	assert.Contains(t, findings[0].Detail, "found 2")
}

func TestPage_StaleFragmentAndMissingStyle(t *testing.T) {
	page := `<html><head></head><body>
<script src="./js/main.js"></script>
<script src="./js/bundle.js"></script>
</body></html>`

	findings, err := Page(strings.NewReader(page), expectFor("about.html"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []FindingKind{KindStaleFragment, KindStyleBundleCount}, kinds(findings))
	for _, f := range findings {
		assert.Equal(t, "about.html", f.Page)
	}
}

func TestFile_MissingAssets(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "css"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "js"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "css", "bundle.css"), []byte("a{}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "js", "bundle.js"), []byte(""), 0o600))
	page := `<html><head><link rel="stylesheet" href="./css/bundle.css"></head><body>
<img src="images/logo.png"><a href="/">home</a><a href="about.html">about</a>
<script src="./js/bundle.js"></script></body></html>`
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte(page), 0o600))

	e := expectFor("index.html")
	e.OutputRoot = root
	findings, err := File(e)
	require.NoError(t, err)

	assert.Equal(t, []FindingKind{KindMissingAsset, KindMissingAsset}, kinds(findings))
	assert.Contains(t, findings[0].Detail, "images/logo.png")
	assert.Contains(t, findings[1].Detail, "about.html")
}

func TestResolve(t *testing.T) {
	tests := []struct {
		page, raw, want string
		local           bool
	}{
		{"index.html", "./css/bundle.css", "css/bundle.css", true},
		{"index.html", "/js/bundle.js?v=1", "js/bundle.js", true},
		{"blog/post.html", "../images/a.png", "images/a.png", true},
		{"index.html", "/", "index.html", true},
		{"index.html", "docs/", "docs/index.html", true},
		{"index.html", "https://cdn.jsdelivr.net/x.js", "", false},
		{"index.html", "//cdn.example.com/x.js", "", false},
		{"index.html", "#hero", "", false},
		{"index.html", "tel:+44", "", false},
	}
	for _, tt := range tests {
		got, local := resolve(tt.page, tt.raw)
		assert.Equal(t, tt.local, local, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}
