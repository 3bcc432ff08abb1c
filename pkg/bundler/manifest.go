package bundler

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"time"

	"github.com/fragment-platform/blogify/pkg/types"
)

// ManifestBuilder records entries in stored order and accumulates the
// package content digest over the entries marked as hashed.
type ManifestBuilder struct {
	manifest types.PackageManifest
	content  hash.Hash
}

func NewManifestBuilder(version string, ts time.Time) *ManifestBuilder {
	return &ManifestBuilder{
		manifest: types.PackageManifest{
			Version:     version,
			GeneratedAt: ts,
			Files:       []types.FileEntry{},
		},
		content: sha256.New(),
	}
}

// AddFile records an in-memory entry.
func (mb *ManifestBuilder) AddFile(path string, data []byte, hashed bool) {
	// bytes.Reader and hash.Hash never fail.
	_, _ = mb.AddEntry(path, bytes.NewReader(data), hashed)
}

// AddEntry streams an entry's content through its own checksum and, when
// hashed is set, through the package content digest. It returns the number
// of bytes read; on a read error the entry is not recorded.
func (mb *ManifestBuilder) AddEntry(path string, r io.Reader, hashed bool) (int64, error) {
	entryHash := sha256.New()
	w := io.Writer(entryHash)
	if hashed {
		w = io.MultiWriter(entryHash, mb.content)
	}

	n, err := io.Copy(w, r)
	if err != nil {
		return n, err
	}

	mb.manifest.Files = append(mb.manifest.Files, types.FileEntry{
		Path:   path,
		Size:   n,
		SHA256: hex.EncodeToString(entryHash.Sum(nil)),
		Hashed: hashed,
	})
	mb.manifest.TotalFiles++
	return n, nil
}

// Digest returns the content digest over the hashed entries added so far.
func (mb *ManifestBuilder) Digest() types.ContentDigest {
	var d types.ContentDigest
	copy(d[:], mb.content.Sum(nil))
	return d
}

func (mb *ManifestBuilder) Build() types.PackageManifest {
	mb.manifest.ContentHash = mb.Digest().String()
	return mb.manifest
}
