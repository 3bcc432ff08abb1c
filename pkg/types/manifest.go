package types

import (
	"encoding/hex"
	"fmt"
	"time"
)

// DigestSize is the width in bytes of a ContentDigest.
const DigestSize = 32

// ContentDigest is the SHA-256 digest of a package's entry contents.
type ContentDigest [DigestSize]byte

// String returns the lowercase hex encoding of the digest.
func (d ContentDigest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the zero digest.
func (d ContentDigest) IsZero() bool {
	return d == ContentDigest{}
}

// ParseContentDigest decodes a 64 character lowercase hex string.
func ParseContentDigest(s string) (ContentDigest, error) {
	var d ContentDigest
	if len(s) != hex.EncodedLen(DigestSize) {
		return d, fmt.Errorf("digest must be %d hex characters, got %d", hex.EncodedLen(DigestSize), len(s))
	}
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return ContentDigest{}, fmt.Errorf("invalid digest: %w", err)
	}
	if d.String() != s {
		return ContentDigest{}, fmt.Errorf("digest must be lowercase hex")
	}
	return d, nil
}

// PackageManifest describes the contents of a post package.
type PackageManifest struct {
	// Version is the schema version of the package layout.
	Version string `json:"version"`

	// GeneratedAt is the timestamp when the manifest was computed.
	GeneratedAt time.Time `json:"generatedAt"`

	// TotalFiles is the count of entries in the package.
	TotalFiles int `json:"totalFiles"`

	// Files lists the entries in stored order.
	Files []FileEntry `json:"files"`

	// ContentHash is the package content digest in lowercase hex. The
	// metadata record is listed in Files but does not contribute to it.
	ContentHash string `json:"contentHash"`
}

// FileEntry represents a single entry inside the package.
type FileEntry struct {
	// Path is the entry name inside the package.
	Path string `json:"path"`

	// Size is the uncompressed size of the entry in bytes.
	Size int64 `json:"size"`

	// SHA256 is the checksum of the entry content.
	SHA256 string `json:"sha256"`

	// Hashed reports whether the entry contributes to ContentHash.
	Hashed bool `json:"hashed"`
}
