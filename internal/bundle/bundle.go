// Package bundle concatenates manifest fragments into a single asset text.
package bundle

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/clickit/internal/foundation/errors"
	"git.home.luguber.info/inful/clickit/internal/manifest"
)

// Result is the unminified concatenation of one fragment group.
type Result struct {
	Kind     manifest.Kind
	Text     string
	Included []string // fragments found, in manifest order
	Missing  []string // fragments skipped because the source file is absent
}

// MissingFunc is notified once per absent fragment.
type MissingFunc func(fragment string)

// Marker returns the origin comment written before a fragment's content.
func Marker(fragment string) string {
	return "/* " + fragment + " */"
}

// Concatenate reads each fragment below root in the given order and joins
// them, each preceded by its origin marker. Absent fragments are skipped and
// reported through missing (which may be nil); any other read failure is fatal.
func Concatenate(root string, fragments []string, kind manifest.Kind, missing MissingFunc) (Result, error) {
	res := Result{Kind: kind}
	var b strings.Builder

	for _, fragment := range fragments {
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(fragment)))
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				res.Missing = append(res.Missing, fragment)
				if missing != nil {
					missing(fragment)
				}
				continue
			}
			return Result{}, errors.WrapError(err, errors.CategoryFileSystem, "read fragment").
				Fatal().
				WithContext("fragment", fragment).
				WithContext("kind", string(kind)).
				Build()
		}

		b.WriteString("\n")
		b.WriteString(Marker(fragment))
		b.WriteString("\n")
		b.Write(content)
		b.WriteString("\n")
		res.Included = append(res.Included, fragment)
	}

	res.Text = b.String()
	return res, nil
}
