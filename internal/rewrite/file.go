package rewrite

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/clickit/internal/foundation/errors"
)

// File rewrites the page at srcPath and writes the result to dstPath. The
// source is never modified. The destination is written through a temporary
// file and renamed into place, so a failed rewrite leaves no partial page.
// A missing source yields a not-found error wrapping fs.ErrNotExist.
func File(srcPath, dstPath string, opts Options) (Changes, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return Changes{}, errors.WrapError(err, errors.CategoryNotFound, "page source not found").
				WithContext("path", srcPath).
				Build()
		}
		return Changes{}, errors.WrapError(err, errors.CategoryFileSystem, "read page").
			Fatal().
			WithContext("path", srcPath).
			Build()
	}

	out, changes := Page(string(data), opts)
	if err := writeAtomic(dstPath, []byte(out)); err != nil {
		return changes, errors.WrapError(err, errors.CategoryFileSystem, "write page").
			Fatal().
			WithContext("path", dstPath).
			Build()
	}
	return changes, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
