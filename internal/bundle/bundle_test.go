package bundle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/clickit/internal/foundation/errors"
	"git.home.luguber.info/inful/clickit/internal/manifest"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func TestConcatenate_PreservesDeclaredOrder(t *testing.T) {
	root := t.TempDir()
	// Created in reverse so directory listing order disagrees with the manifest.
	fragments := []string{"css/z.css", "css/m.css", "css/a.css"}
	for i := len(fragments) - 1; i >= 0; i-- {
		writeFile(t, root, fragments[i], ".f"+string(rune('0'+i))+"{}")
	}

	res, err := Concatenate(root, fragments, manifest.KindStyle, nil)
	require.NoError(t, err)
	assert.Equal(t, fragments, res.Included)
	assert.Empty(t, res.Missing)

	last := -1
	for _, f := range fragments {
		idx := strings.Index(res.Text, Marker(f))
		require.GreaterOrEqual(t, idx, 0, "marker for %s", f)
		assert.Greater(t, idx, last, "marker for %s out of order", f)
		last = idx
	}
}

func TestConcatenate_MarkerFormat(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "js/main.js", "init();")

	res, err := Concatenate(root, []string{"js/main.js"}, manifest.KindScript, nil)
	require.NoError(t, err)
	assert.Equal(t, "\n/* js/main.js */\ninit();\n", res.Text)
	assert.Equal(t, manifest.KindScript, res.Kind)
}

func TestConcatenate_MissingFragmentIsSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "css/a.css", "a{}")
	writeFile(t, root, "css/c.css", "c{}")

	var warned []string
	res, err := Concatenate(root, []string{"css/a.css", "css/b.css", "css/c.css"}, manifest.KindStyle, func(f string) {
		warned = append(warned, f)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"css/b.css"}, warned, "exactly one warning")
	assert.Equal(t, []string{"css/b.css"}, res.Missing)
	assert.Equal(t, []string{"css/a.css", "css/c.css"}, res.Included)
	assert.Contains(t, res.Text, "a{}")
	assert.Contains(t, res.Text, "c{}")
	assert.NotContains(t, res.Text, Marker("css/b.css"))
}

func TestConcatenate_UnreadableFragmentIsFatal(t *testing.T) {
	root := t.TempDir()
	// A directory where a file is expected cannot be read.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "css", "dir.css"), 0o750))

	_, err := Concatenate(root, []string{"css/dir.css"}, manifest.KindStyle, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFileSystem))
}

func TestConcatenate_EmptyManifest(t *testing.T) {
	res, err := Concatenate(t.TempDir(), nil, manifest.KindScript, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Text)
}
