// Package digest computes the content digest of a post package.
//
// The digest is SHA-256 over the concatenated contents of every entry, in
// the order the entries are stored, skipping the meta.toml metadata record.
// Entry names are not part of the digest. Two consequences follow and are
// kept for compatibility with packages already in circulation: posts that
// differ only in their metadata hash identically, and renaming an entry
// without moving it leaves the digest unchanged. Reordering entries does
// change it.
package digest

import (
	"time"

	"github.com/fragment-platform/blogify/pkg/bundler"
	perrors "github.com/fragment-platform/blogify/pkg/errors"
	"github.com/fragment-platform/blogify/pkg/types"
)

// Algorithm names the hash used for content digests.
const Algorithm = "sha256"

// File returns the content digest of the package at path.
func File(path string) (types.ContentDigest, error) {
	mb, err := walk(path, time.Time{})
	if err != nil {
		return types.ContentDigest{}, err
	}
	return mb.Digest(), nil
}

// Manifest returns the per-entry breakdown of the package at path along
// with its content digest.
func Manifest(path string) (types.PackageManifest, error) {
	mb, err := walk(path, time.Now().UTC())
	if err != nil {
		return types.PackageManifest{}, err
	}
	return mb.Build(), nil
}

func walk(path string, ts time.Time) (*bundler.ManifestBuilder, error) {
	r, err := bundler.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	mb := bundler.NewManifestBuilder(bundler.LayoutVersion, ts)
	for _, e := range r.Entries() {
		if err := addEntry(mb, r.Path(), e); err != nil {
			return nil, err
		}
	}
	return mb, nil
}

func addEntry(mb *bundler.ManifestBuilder, pkgPath string, e *bundler.Entry) error {
	rc, err := e.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	n, err := mb.AddEntry(e.Name, rc, !e.IsMetadata())
	if err != nil {
		return err
	}
	if n != e.Size() {
		return perrors.WithMetadata(perrors.CodeCorruptEntry, "entry size does not match its header", perrors.Entry(pkgPath, e.Name))
	}
	return nil
}
