// Package bundler builds and reads post packages.
//
// A post package is an uncompressed zip holding, in this order, the
// meta.toml metadata record, the primary HTML document at the package root,
// and zero or more assets under assets/. Entry order is significant: it is
// the order in which the digest engine concatenates entry contents.
package bundler

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	perrors "github.com/fragment-platform/blogify/pkg/errors"
	"github.com/fragment-platform/blogify/pkg/types"
)

// Option configures the packaging process.
type Option func(*config)

type config struct {
	timestamp time.Time
	outputDir string
	overwrite bool
	logger    zerolog.Logger
}

// WithTimestamp sets the manifest generation time, and the published time
// when the metadata leaves it zero.
func WithTimestamp(t time.Time) Option {
	return func(c *config) {
		c.timestamp = t
	}
}

// WithOutputDir sets the directory where the package will be written.
func WithOutputDir(path string) Option {
	return func(c *config) {
		c.outputDir = path
	}
}

// WithOverwrite allows Build to replace an existing package for the same
// slug. Without it an existing package is an OutputConflict.
func WithOverwrite(overwrite bool) Option {
	return func(c *config) {
		c.overwrite = overwrite
	}
}

// WithLogger sets the logger used for per-entry progress events.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Build creates a post package from the given input.
func Build(input types.BuildInput, opts ...Option) (*types.BuildResult, error) {
	cfg := &config{
		timestamp: time.Now().UTC(),
		outputDir: ".",
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	meta := input.Metadata
	if err := ValidateSlug(meta.Slug); err != nil {
		return nil, err
	}
	if meta.Published.IsZero() {
		meta.Published = cfg.timestamp.Truncate(time.Second)
	}
	meta.Published = meta.Published.UTC()

	archivePath, err := filepath.Abs(PackagePath(cfg.outputDir, meta.Slug))
	if err != nil {
		return nil, perrors.WrapWithMetadata(perrors.CodeIOFailure, "resolve output path", perrors.Path(cfg.outputDir), err)
	}
	if !cfg.overwrite {
		// Fail before reading any source file; WriteToDisk checks again.
		if err := checkNoConflict(archivePath); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger.With().Str("package", archivePath).Logger()
	manifestBuilder := NewManifestBuilder(LayoutVersion, cfg.timestamp)
	archiveWriter := NewArchiveWriter(meta.Published)

	addFile := func(name, source string, content []byte) error {
		if err := archiveWriter.AddFile(name, content); err != nil {
			return perrors.WrapWithMetadata(perrors.CodeInvalidInput, "entry name collision", perrors.Entry(source, name), err)
		}
		manifestBuilder.AddFile(name, content, name != MetadataFile)
		logger.Debug().Str("entry", name).Str("source", source).Int("size", len(content)).Msg("Adding entry")
		return nil
	}

	// 1. Metadata record
	metaBytes, err := encodeMetadata(meta)
	if err != nil {
		return nil, perrors.Wrap(perrors.CodeInvalidInput, "serialize metadata", err)
	}
	if err := addFile(MetadataFile, MetadataFile, metaBytes); err != nil {
		return nil, err
	}

	// 2. Primary document, at the package root
	docName, err := documentEntryName(input.Document)
	if err != nil {
		return nil, err
	}
	docContent, err := readSource(input.Document.Path)
	if err != nil {
		return nil, err
	}
	if err := addFile(docName, input.Document.Path, docContent); err != nil {
		return nil, err
	}

	// 3. Assets, in caller order
	for _, asset := range input.Assets {
		name, err := assetEntryName(asset)
		if err != nil {
			return nil, err
		}
		content, err := readSource(asset.Path)
		if err != nil {
			return nil, err
		}
		if err := addFile(name, asset.Path, content); err != nil {
			return nil, err
		}
	}

	// 4. Write
	manifest := manifestBuilder.Build()
	size, err := archiveWriter.WriteToDisk(archivePath, cfg.overwrite)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("slug", meta.Slug).Int("entries", manifest.TotalFiles).Str("digest", manifest.ContentHash).Msg("Package written")

	return &types.BuildResult{
		ArchivePath: archivePath,
		FileCount:   manifest.TotalFiles,
		Manifest:    manifest,
		SizeBytes:   size,
	}, nil
}

// readSource loads a referenced file. Anything that prevents reading it,
// including it being a directory, is SourceFileMissing.
func readSource(path string) ([]byte, error) {
	if path == "" {
		return nil, perrors.New(perrors.CodeSourceFileMissing, "source path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, perrors.WrapWithMetadata(perrors.CodeSourceFileMissing, "source file is missing or unreadable", perrors.Path(path), err)
	}
	if !info.Mode().IsRegular() {
		return nil, perrors.WithMetadata(perrors.CodeSourceFileMissing, "source is not a regular file", perrors.Path(path))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, perrors.WrapWithMetadata(perrors.CodeSourceFileMissing, "source file is missing or unreadable", perrors.Path(path), err)
	}
	return content, nil
}
