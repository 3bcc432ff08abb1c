package bundler

import (
	"archive/zip"
	"errors"
	"io"
	"io/fs"
	"os"

	perrors "github.com/fragment-platform/blogify/pkg/errors"
)

// Reader gives read-only, in-order access to the entries of a package.
type Reader struct {
	path    string
	zr      *zip.ReadCloser
	entries []*Entry
}

// Entry is a single package entry with its canonical name.
type Entry struct {
	Name string
	file *zip.File
	pkg  string
}

// Open opens the package at path and validates every entry name. Entries
// are returned in the order they are stored in the container. A name that
// escapes the package namespace, a duplicate name, or a metadata record that
// is not the first entry is reported as CorruptEntry.
func Open(path string) (*Reader, error) {
	if err := statPackage(path); err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(path)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, perrors.WrapWithMetadata(perrors.CodeIOFailure, "open package", perrors.Path(path), err)
		}
		return nil, perrors.WrapWithMetadata(perrors.CodeNotAPackage, "not a post package", perrors.Path(path), err)
	}

	r := &Reader{path: path, zr: zr}
	seen := make(map[string]struct{}, len(zr.File))
	for i, f := range zr.File {
		name, err := CanonicalEntryName(f.Name)
		if err != nil {
			zr.Close()
			return nil, perrors.WrapWithMetadata(perrors.CodeCorruptEntry, "invalid entry name", perrors.Entry(path, f.Name), err)
		}
		if _, dup := seen[name]; dup {
			zr.Close()
			return nil, perrors.WithMetadata(perrors.CodeCorruptEntry, "duplicate entry", perrors.Entry(path, name))
		}
		if name == MetadataFile && i != 0 {
			zr.Close()
			return nil, perrors.WithMetadata(perrors.CodeCorruptEntry, "metadata record is not the first entry", perrors.Entry(path, name))
		}
		seen[name] = struct{}{}
		r.entries = append(r.entries, &Entry{Name: name, file: f, pkg: path})
	}
	return r, nil
}

// Path returns the package path the reader was opened with.
func (r *Reader) Path() string {
	return r.path
}

// Entries returns the package entries in stored order.
func (r *Reader) Entries() []*Entry {
	return r.entries
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.zr.Close()
}

// IsDir reports whether the entry is a directory marker.
func (e *Entry) IsDir() bool {
	return e.Name[len(e.Name)-1] == '/'
}

// IsMetadata reports whether the entry is the package metadata record.
func (e *Entry) IsMetadata() bool {
	return e.Name == MetadataFile
}

// Size returns the declared uncompressed size.
func (e *Entry) Size() int64 {
	return int64(e.file.UncompressedSize64)
}

// Open returns a reader for the entry content. Read errors, including
// checksum mismatches detected at EOF, are reported as CorruptEntry.
func (e *Entry) Open() (io.ReadCloser, error) {
	rc, err := e.file.Open()
	if err != nil {
		return nil, perrors.WrapWithMetadata(perrors.CodeCorruptEntry, "open entry", perrors.Entry(e.pkg, e.Name), err)
	}
	return &entryReader{rc: rc, entry: e}, nil
}

type entryReader struct {
	rc    io.ReadCloser
	entry *Entry
}

func (r *entryReader) Read(p []byte) (int, error) {
	n, err := r.rc.Read(p)
	if err != nil && err != io.EOF {
		err = perrors.WrapWithMetadata(perrors.CodeCorruptEntry, "read entry", perrors.Entry(r.entry.pkg, r.entry.Name), err)
	}
	return n, err
}

func (r *entryReader) Close() error {
	return r.rc.Close()
}

// statPackage distinguishes a missing package from one that is not a file.
func statPackage(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return perrors.WrapWithMetadata(perrors.CodeIOFailure, "stat package", perrors.Path(path), err)
	}
	if !info.Mode().IsRegular() {
		return perrors.WithMetadata(perrors.CodeNotAPackage, "package is not a regular file", perrors.Path(path))
	}
	return nil
}
