// Package staticcopy mirrors verbatim assets (pages, images, config) from the
// source tree into the output tree.
package staticcopy

import (
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/clickit/internal/foundation/errors"
	"git.home.luguber.info/inful/clickit/internal/manifest"
)

// Stats summarizes one copy entry.
type Stats struct {
	Files int
	Dirs  int
	Bytes int64
}

func (s *Stats) add(o Stats) {
	s.Files += o.Files
	s.Dirs += o.Dirs
	s.Bytes += o.Bytes
}

// MissingFunc is notified when a copy entry's source does not exist.
type MissingFunc func(src string)

// Copy mirrors entry from srcRoot into dstRoot. Directories are copied
// depth-first preserving relative structure; files are duplicated byte for
// byte with intermediate directories created as needed. A missing source is
// reported through missing (which may be nil) and is not an error.
func Copy(srcRoot, dstRoot string, entry manifest.CopyEntry, missing MissingFunc) (Stats, error) {
	src := filepath.Join(srcRoot, filepath.FromSlash(entry.Src))
	dst := filepath.Join(dstRoot, filepath.FromSlash(entry.Dest))

	info, err := os.Stat(src)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			if missing != nil {
				missing(entry.Src)
			}
			return Stats{}, nil
		}
		return Stats{}, fsError(err, "stat copy source", entry.Src)
	}

	if info.IsDir() {
		return copyDir(src, dst)
	}
	n, err := copyFile(src, dst, info.Mode().Perm())
	if err != nil {
		return Stats{}, err
	}
	return Stats{Files: 1, Bytes: n}, nil
}

func copyDir(src, dst string) (Stats, error) {
	var stats Stats
	if err := os.MkdirAll(dst, 0o750); err != nil {
		return stats, fsError(err, "create directory", dst)
	}
	stats.Dirs++

	entries, err := os.ReadDir(src)
	if err != nil {
		return stats, fsError(err, "read directory", src)
	}
	for _, e := range entries {
		s := filepath.Join(src, e.Name())
		d := filepath.Join(dst, e.Name())
		info, err := os.Stat(s)
		if err != nil {
			return stats, fsError(err, "stat", s)
		}
		if info.IsDir() {
			sub, err := copyDir(s, d)
			stats.add(sub)
			if err != nil {
				return stats, err
			}
			continue
		}
		n, err := copyFile(s, d, info.Mode().Perm())
		if err != nil {
			return stats, err
		}
		stats.Files++
		stats.Bytes += n
	}
	return stats, nil
}

func copyFile(src, dst string, perm fs.FileMode) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return 0, fsError(err, "create directory", filepath.Dir(dst))
	}
	in, err := os.Open(src)
	if err != nil {
		return 0, fsError(err, "open source file", src)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return 0, fsError(err, "create destination file", dst)
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fsError(err, "copy file", dst)
	}
	return n, nil
}

func fsError(err error, msg, path string) error {
	return errors.WrapError(err, errors.CategoryFileSystem, msg).
		Fatal().
		WithContext("path", path).
		Build()
}
