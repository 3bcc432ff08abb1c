package bundler

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	perrors "github.com/fragment-platform/blogify/pkg/errors"
)

// Extract unpacks the package at pkgPath into destDir, which must not exist.
// Entries are written into a temporary sibling directory that is renamed to
// destDir once every entry has been read back successfully. Entry names are
// validated by Open, and each target is checked again against destDir, so
// nothing is ever written outside it. Returns the number of files written.
func Extract(pkgPath, destDir string) (int, error) {
	r, err := Open(pkgPath)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	if _, err := os.Lstat(destDir); err == nil {
		return 0, perrors.WithMetadata(perrors.CodeOutputConflict, "extraction directory already exists", perrors.Path(destDir))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return 0, perrors.WrapWithMetadata(perrors.CodeIOFailure, "stat extraction directory", perrors.Path(destDir), err)
	}

	parent := filepath.Dir(destDir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return 0, perrors.WrapWithMetadata(perrors.CodeIOFailure, "create parent directory", perrors.Path(parent), err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(destDir)+".*.tmp")
	if err != nil {
		return 0, perrors.WrapWithMetadata(perrors.CodeIOFailure, "create staging directory", perrors.Path(parent), err)
	}

	written, err := extractInto(r, staging)
	if err != nil {
		os.RemoveAll(staging)
		return 0, err
	}
	if err := os.Rename(staging, destDir); err != nil {
		os.RemoveAll(staging)
		return 0, perrors.WrapWithMetadata(perrors.CodeIOFailure, "move extracted package into place", perrors.Path(destDir), err)
	}
	return written, nil
}

func extractInto(r *Reader, root string) (int, error) {
	written := 0
	for _, e := range r.Entries() {
		rel := filepath.FromSlash(e.Name)
		if e.IsDir() {
			rel = filepath.Clean(rel)
		}
		if !filepath.IsLocal(rel) {
			return written, perrors.WithMetadata(perrors.CodeCorruptEntry, "entry escapes the extraction directory", perrors.Entry(r.Path(), e.Name))
		}
		target := filepath.Join(root, rel)

		if e.IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return written, perrors.WrapWithMetadata(perrors.CodeIOFailure, "create directory", perrors.Path(target), err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return written, perrors.WrapWithMetadata(perrors.CodeIOFailure, "create directory", perrors.Path(filepath.Dir(target)), err)
		}
		if err := extractEntry(e, target); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func extractEntry(e *Entry, target string) error {
	rc, err := e.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return perrors.WrapWithMetadata(perrors.CodeIOFailure, "create file", perrors.Path(target), err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		if perrors.CodeOf(err) != perrors.CodeUnknown {
			return err
		}
		return perrors.WrapWithMetadata(perrors.CodeIOFailure, "write file", perrors.Path(target), err)
	}
	if err := f.Close(); err != nil {
		return perrors.WrapWithMetadata(perrors.CodeIOFailure, "close file", perrors.Path(target), err)
	}
	return nil
}
