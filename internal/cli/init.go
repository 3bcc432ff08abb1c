package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fragment-platform/blogify/internal/config"
	"github.com/fragment-platform/blogify/pkg/catalog"
)

type initConfig struct {
	config.Config
}

func parseInitConfig(fs *flag.FlagSet, args []string, base config.Config) (initConfig, error) {
	cfg := initConfig{Config: base}
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "output directory (default: BLOGIFY_OUTPUT_DIR or demo)")
	fs.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "catalog database path (default: BLOGIFY_CATALOG_PATH or <out>/catalog.db)")
	addLogFlags(fs, &cfg.Config)
	if err := fs.Parse(args); err != nil {
		return initConfig{}, err
	}
	if fs.NArg() != 0 {
		return initConfig{}, fmt.Errorf("init takes no arguments")
	}
	return cfg, nil
}

func (a *App) runInit(ctx context.Context, cfg initConfig) error {
	log, err := a.logger(cfg.Config)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	cat, err := openCatalog(cfg.Config)
	if err != nil {
		return err
	}
	defer cat.Close()

	version, err := cat.SchemaVersion()
	if err != nil {
		return fmt.Errorf("read catalog schema: %w", err)
	}
	log.Debug().Str("catalog", cfg.Catalog()).Int("schema", version).Msg("Catalog ready")

	fmt.Fprintf(a.Out, "Initialized %s\n", cfg.OutputDir)
	return ctx.Err()
}

// openCatalog opens the catalog for cfg, creating its directory.
func openCatalog(cfg config.Config) (*catalog.Catalog, error) {
	path := cfg.Catalog()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}
	cat, err := catalog.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	return cat, nil
}
