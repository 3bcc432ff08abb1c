package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fragment-platform/blogify/internal/config"
)

type listConfig struct {
	config.Config
}

func parseListConfig(fs *flag.FlagSet, args []string, base config.Config) (listConfig, error) {
	cfg := listConfig{Config: base}
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "output directory (default: BLOGIFY_OUTPUT_DIR or demo)")
	fs.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "catalog database path (default: BLOGIFY_CATALOG_PATH or <out>/catalog.db)")
	addLogFlags(fs, &cfg.Config)
	if err := fs.Parse(args); err != nil {
		return listConfig{}, err
	}
	if fs.NArg() != 0 {
		return listConfig{}, errors.New("list takes no arguments")
	}
	return cfg, nil
}

func (a *App) runList(ctx context.Context, cfg listConfig) error {
	cat, err := openCatalog(cfg.Config)
	if err != nil {
		return err
	}
	defer cat.Close()

	records, err := cat.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tPUBLISHED\tDIGEST\tSIGNED\tNAME")
	for _, r := range records {
		signed := "-"
		if r.Signature != nil {
			signed = r.Signature.Algorithm
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Slug, r.PublishedAt.Format(time.RFC3339), shortDigest(r.Digest), signed, r.Name)
	}
	return tw.Flush()
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
