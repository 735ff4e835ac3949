package rewrite

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/clickit/internal/manifest"
)

const sourcePage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <link rel="stylesheet" href="css/base.css">
    <link rel="stylesheet" href="css/layout.css">
    <link rel="stylesheet" href="https://fonts.example.com/inter.css">
    <link rel="icon" href="images/favicon.ico">
</head>
<body>
    <main>Hello</main>
    <script src="https://cdn.jsdelivr.net/npm/@emailjs/browser@3/dist/email.min.js" defer></script>
    <!-- Scripts -->
    <script src="./config/constants.js"></script>
    <script src="./js/theme.js"></script>
    <script src="./js/main.js"></script>
</body>
</html>
`

const rewrittenPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <link rel="stylesheet" href="./css/bundle.css">
    <link rel="stylesheet" href="https://fonts.example.com/inter.css">
    <link rel="icon" href="images/favicon.ico">
    <link rel="dns-prefetch" href="https://cdn.jsdelivr.net">
    <link rel="preconnect" href="https://cdn.jsdelivr.net" crossorigin>
</head>
<body>
    <main>Hello</main>
    <script src="https://cdn.jsdelivr.net/npm/@emailjs/browser@3/dist/email.min.js"></script>
    <!-- Scripts -->
    <script src="./js/bundle.js"></script>
</body>
</html>
`

func bundleRefs(html string) (styles, scripts int) {
	return strings.Count(html, `href="./css/bundle.css"`), strings.Count(html, `src="./js/bundle.js"`)
}

func TestPage_FullRewrite(t *testing.T) {
	opts := DefaultOptions(manifest.Default())

	out, ch := Page(sourcePage, opts)
	assert.Equal(t, rewrittenPage, out)
	assert.Equal(t, Changes{
		StyleLinks:            2,
		ScriptTagsRemoved:     3,
		ScriptPlacement:       PlacementMarker,
		EmailWidgetNormalized: true,
		HintsInserted:         true,
	}, ch)
}

func TestPage_Idempotent(t *testing.T) {
	opts := DefaultOptions(manifest.Default())
	pages := []string{
		sourcePage,
		"<html><head><title>x</title></head><body>\n<p>no marker</p>\n</body></html>",
		"<p>fragment without body</p>",
		`<head><link rel="stylesheet" href="a.css"><link rel="stylesheet" href="b.css?v=2"></head><body></body>`,
	}
	for i, page := range pages {
		once, _ := Page(page, opts)
		twice, ch := Page(once, opts)
		assert.Equal(t, once, twice, "page %d", i)
		assert.False(t, ch.HintsInserted, "page %d", i)

		styles, scripts := bundleRefs(twice)
		assert.Equal(t, 1, scripts, "page %d script bundle refs", i)
		if strings.Contains(page, "</head>") {
			assert.Equal(t, 1, styles, "page %d style bundle refs", i)
		}
	}
}

func TestPage_ScriptPlacementFallbacks(t *testing.T) {
	opts := DefaultOptions(manifest.Default())

	out, ch := Page("<body>\n<p>x</p>\n</body>", opts)
	assert.Equal(t, PlacementBody, ch.ScriptPlacement)
	assert.Equal(t, "<body>\n<p>x</p>\n    <script src=\"./js/bundle.js\"></script>\n</body>", out)

	out, ch = Page("<p>fragment</p>", opts)
	assert.Equal(t, PlacementEnd, ch.ScriptPlacement)
	assert.Equal(t, "<p>fragment</p>\n<script src=\"./js/bundle.js\"></script>\n", out)

	out, ch = Page("<body><!-- Scripts: bundle goes here --></body>", opts)
	assert.Equal(t, PlacementMarker, ch.ScriptPlacement)
	assert.Equal(t, "<body><!-- Scripts: bundle goes here -->\n    <script src=\"./js/bundle.js\"></script>\n</body>", out)

	again, _ := Page(out, opts)
	assert.Equal(t, out, again)
}

func TestPage_RemovalTracksManifest(t *testing.T) {
	m := manifest.Manifest{Scripts: []string{"js/app.js"}}
	page := "<body>\n<script src=\"./js/app.js\"></script>\n<script src=\"./js/legacy.js\"></script>\n</body>"

	out, ch := Page(page, DefaultOptions(m))
	assert.Equal(t, 1, ch.ScriptTagsRemoved)
	assert.NotContains(t, out, "js/app.js")
	assert.Contains(t, out, "js/legacy.js", "tags outside the manifest are left alone")
}

func TestPage_SingleStyleReferenceFromManyLinks(t *testing.T) {
	page := "<head>\n" +
		"  <link rel=\"stylesheet\" href=\"css/a.css\">\n" +
		"  <link href=\"css/b.css\" rel=\"stylesheet\">\n" +
		"  <link rel='stylesheet' href='./css/c.css'>\n" +
		"  <link rel=\"preload\" href=\"css/d.css\">\n" +
		"</head>"
	out, ch := Page(page, DefaultOptions(manifest.Default()))
	assert.Equal(t, 3, ch.StyleLinks)
	styles, _ := bundleRefs(out)
	assert.Equal(t, 1, styles)
	assert.Contains(t, out, `rel="preload" href="css/d.css"`)
	assert.True(t, strings.Index(out, "./css/bundle.css") < strings.Index(out, "css/d.css"), "bundle takes the first link's position")
}

func TestPage_ExistingPrefetchLeftAlone(t *testing.T) {
	page := "<head>\n<link rel=\"dns-prefetch\" href=\"https://example.com\">\n</head>"
	out, ch := Page(page, DefaultOptions(manifest.Default()))
	assert.False(t, ch.HintsInserted)
	assert.NotContains(t, out, "preconnect")
}

func TestFile(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	opts := DefaultOptions(manifest.Default())

	srcPath := filepath.Join(src, "index.html")
	require.NoError(t, os.WriteFile(srcPath, []byte(sourcePage), 0o600))

	_, err := File(srcPath, filepath.Join(dst, "index.html"), opts)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dst, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, rewrittenPage, string(got))

	orig, err := os.ReadFile(srcPath)
	require.NoError(t, err)
	assert.Equal(t, sourcePage, string(orig), "source page must not change")

	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestFile_MissingSource(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "about.html")
	_, err := File(filepath.Join(t.TempDir(), "about.html"), dst, DefaultOptions(manifest.Default()))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, fs.ErrNotExist))
	assert.NoFileExists(t, dst)
}
