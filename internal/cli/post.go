package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/fragment-platform/blogify/internal/config"
	"github.com/fragment-platform/blogify/pkg/bundler"
	"github.com/fragment-platform/blogify/pkg/catalog"
	"github.com/fragment-platform/blogify/pkg/types"
)

type postConfig struct {
	config.Config
	Name      string
	Slug      string
	Published string
	NoCatalog bool
	Document  string
	Assets    []string
}

func parsePostConfig(fs *flag.FlagSet, args []string, base config.Config) (postConfig, error) {
	cfg := postConfig{Config: base}
	fs.StringVar(&cfg.Name, "name", "", "post title (required)")
	fs.StringVar(&cfg.Slug, "slug", "", "URL slug (default: derived from -name)")
	fs.StringVar(&cfg.Published, "published", "", "publication time, RFC 3339 (default: now)")
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "output directory (default: BLOGIFY_OUTPUT_DIR or demo)")
	fs.BoolVar(&cfg.Overwrite, "overwrite", cfg.Overwrite, "replace an existing package with the same slug")
	fs.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "catalog database path (default: BLOGIFY_CATALOG_PATH or <out>/catalog.db)")
	fs.BoolVar(&cfg.NoCatalog, "no-catalog", false, "do not record the package in the catalog")
	addLogFlags(fs, &cfg.Config)
	if err := fs.Parse(args); err != nil {
		return postConfig{}, err
	}

	if fs.NArg() < 1 {
		return postConfig{}, errors.New("usage: blogify post -name <title> [-slug <slug>] <file> [assets...]")
	}
	cfg.Document = fs.Arg(0)
	cfg.Assets = fs.Args()[1:]

	if cfg.Name == "" {
		return postConfig{}, errors.New("-name is required")
	}
	if cfg.Slug == "" {
		cfg.Slug = bundler.Slugify(cfg.Name)
		if cfg.Slug == "" {
			return postConfig{}, fmt.Errorf("cannot derive a slug from %q; pass -slug", cfg.Name)
		}
	}
	return cfg, nil
}

func (a *App) runPost(ctx context.Context, cfg postConfig) error {
	log, err := a.logger(cfg.Config)
	if err != nil {
		return err
	}

	now := a.now().UTC()
	published := now
	if cfg.Published != "" {
		published, err = time.Parse(time.RFC3339, cfg.Published)
		if err != nil {
			return fmt.Errorf("parse -published: %w", err)
		}
	}

	input := types.BuildInput{
		Metadata: types.PostMetadata{
			Name:      cfg.Name,
			Slug:      cfg.Slug,
			Published: published.Truncate(time.Second),
		},
		Document: types.FileRef{Path: cfg.Document},
	}
	for _, asset := range cfg.Assets {
		input.Assets = append(input.Assets, types.FileRef{Path: asset})
	}

	result, err := bundler.Build(input,
		bundler.WithOutputDir(cfg.OutputDir),
		bundler.WithOverwrite(cfg.Overwrite),
		bundler.WithTimestamp(now),
		bundler.WithLogger(log),
	)
	if err != nil {
		return err
	}

	if !cfg.NoCatalog {
		if err := recordBuild(ctx, cfg.Config, input.Metadata, result); err != nil {
			log.Warn().Err(err).Str("slug", cfg.Slug).Msg("Package built but not catalogued")
		}
	}

	fmt.Fprintf(a.Out, "%s\n%s\n", result.ArchivePath, result.Manifest.ContentHash)
	return nil
}

func recordBuild(ctx context.Context, cfg config.Config, meta types.PostMetadata, result *types.BuildResult) error {
	cat, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	return cat.RecordBuild(ctx, catalog.Record{
		Slug:        meta.Slug,
		Name:        meta.Name,
		Path:        result.ArchivePath,
		Digest:      result.Manifest.ContentHash,
		Entries:     result.FileCount,
		SizeBytes:   result.SizeBytes,
		PublishedAt: meta.Published,
		BuiltAt:     result.Manifest.GeneratedAt,
	})
}
