package types

import "time"

// PostMetadata is the metadata record stored as meta.toml in every package.
// It is created once at build time and never edited afterwards.
type PostMetadata struct {
	Name      string    `toml:"name"`
	Slug      string    `toml:"slug"`
	Published time.Time `toml:"published"`
}

// FileRef points at a source file on disk.
type FileRef struct {
	// Path is where the file is read from.
	Path string

	// Name is the entry name inside the package, relative to the region the
	// file is stored in (package root for the document, assets/ for assets).
	// Derived from Path when empty.
	Name string
}

// BuildInput is the input payload for creating a post package.
type BuildInput struct {
	Metadata PostMetadata // Serialized first, as meta.toml
	Document FileRef      // The HTML body, stored at the package root
	Assets   []FileRef    // Stored under assets/, in this order
}

// BuildResult represents the output of a successful packaging operation.
type BuildResult struct {
	ArchivePath string          // The absolute path to the generated package file
	FileCount   int             // Total number of entries in the package
	Manifest    PackageManifest // Per-entry breakdown and content digest
	SizeBytes   int64           // Size of the package file in bytes
}
