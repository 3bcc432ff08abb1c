package bundler

import (
	"archive/zip"
	"errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	perrors "github.com/fragment-platform/blogify/pkg/errors"
)

// ArchiveWriter collects package entries and writes them as an uncompressed
// zip in insertion order.
type ArchiveWriter struct {
	entries []archiveEntry
	names   map[string]struct{}
	ts      time.Time
}

type archiveEntry struct {
	name    string
	content []byte
}

// NewArchiveWriter creates a new writer instance. ts is stamped on every
// entry so the same input always produces the same bytes.
func NewArchiveWriter(ts time.Time) *ArchiveWriter {
	return &ArchiveWriter{
		names: make(map[string]struct{}),
		ts:    ts,
	}
}

// AddFile appends an entry. name must already be canonical (see
// CanonicalEntryName). Adding the same name twice is an error.
func (w *ArchiveWriter) AddFile(name string, content []byte) error {
	if _, dup := w.names[name]; dup {
		return fmt.Errorf("duplicate entry %q", name)
	}
	w.names[name] = struct{}{}
	w.entries = append(w.entries, archiveEntry{name: name, content: content})
	return nil
}

// Len returns the number of entries added so far.
func (w *ArchiveWriter) Len() int {
	return len(w.entries)
}

// WriteToDisk writes the package to archivePath. The archive is assembled in
// a temporary file next to the destination and renamed into place only once
// it is complete, so a failed write never leaves a partial package behind.
// Unless overwrite is set, an existing destination is an OutputConflict.
// It returns the size of the written file.
func (w *ArchiveWriter) WriteToDisk(archivePath string, overwrite bool) (size int64, err error) {
	dir := filepath.Dir(archivePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, perrors.WrapWithMetadata(perrors.CodeIOFailure, "create output directory", perrors.Path(dir), err)
	}
	if !overwrite {
		if err := checkNoConflict(archivePath); err != nil {
			return 0, err
		}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(archivePath)+".*.tmp")
	if err != nil {
		return 0, perrors.WrapWithMetadata(perrors.CodeIOFailure, "create temporary package", perrors.Path(dir), err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	zw := zip.NewWriter(tmp)
	for _, e := range w.entries {
		if err := w.writeEntry(zw, e); err != nil {
			return 0, perrors.WrapWithMetadata(perrors.CodeIOFailure, "write entry", perrors.Entry(archivePath, e.name), err)
		}
	}
	if err := zw.Close(); err != nil {
		return 0, perrors.WrapWithMetadata(perrors.CodeIOFailure, "finish package", perrors.Path(tmpPath), err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, perrors.WrapWithMetadata(perrors.CodeIOFailure, "sync package", perrors.Path(tmpPath), err)
	}
	info, err := tmp.Stat()
	if err != nil {
		return 0, perrors.WrapWithMetadata(perrors.CodeIOFailure, "stat package", perrors.Path(tmpPath), err)
	}
	if err := tmp.Close(); err != nil {
		return 0, perrors.WrapWithMetadata(perrors.CodeIOFailure, "close package", perrors.Path(tmpPath), err)
	}

	if !overwrite {
		if err := checkNoConflict(archivePath); err != nil {
			return 0, err
		}
	}
	if err := os.Rename(tmpPath, archivePath); err != nil {
		return 0, perrors.WrapWithMetadata(perrors.CodeIOFailure, "move package into place", perrors.Path(archivePath), err)
	}
	return info.Size(), nil
}

// writeEntry stores e without compression. Sizes and CRC are known up front,
// so the local header carries them and no data descriptor is written.
func (w *ArchiveWriter) writeEntry(zw *zip.Writer, e archiveEntry) error {
	size := uint64(len(e.content))
	header := &zip.FileHeader{
		Name:               e.name,
		Method:             zip.Store,
		Modified:           w.ts,
		CRC32:              crc32.ChecksumIEEE(e.content),
		CompressedSize64:   size,
		UncompressedSize64: size,
	}
	header.SetMode(0644)

	fw, err := zw.CreateRaw(header)
	if err != nil {
		return err
	}
	_, err = fw.Write(e.content)
	return err
}

func checkNoConflict(archivePath string) error {
	_, err := os.Lstat(archivePath)
	switch {
	case err == nil:
		return perrors.WithMetadata(perrors.CodeOutputConflict, "package already exists", perrors.Path(archivePath))
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return perrors.WrapWithMetadata(perrors.CodeIOFailure, "stat destination", perrors.Path(archivePath), err)
	}
}
