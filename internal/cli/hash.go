package cli

import (
	"errors"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/fragment-platform/blogify/internal/config"
	"github.com/fragment-platform/blogify/pkg/digest"
)

type hashConfig struct {
	config.Config
	Verbose bool
	Package string
}

func parseHashConfig(fs *flag.FlagSet, args []string, base config.Config) (hashConfig, error) {
	cfg := hashConfig{Config: base}
	fs.BoolVar(&cfg.Verbose, "v", false, "list every entry with its size and checksum")
	addLogFlags(fs, &cfg.Config)
	if err := fs.Parse(args); err != nil {
		return hashConfig{}, err
	}
	if fs.NArg() != 1 {
		return hashConfig{}, errors.New("usage: blogify hash [-v] <file>")
	}
	cfg.Package = fs.Arg(0)
	return cfg, nil
}

func (a *App) runHash(cfg hashConfig) error {
	if !cfg.Verbose {
		d, err := digest.File(cfg.Package)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.Out, d.String())
		return nil
	}

	manifest, err := digest.Manifest(cfg.Package)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	for _, f := range manifest.Files {
		note := ""
		if !f.Hashed {
			note = "(not in digest)"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", f.SHA256, f.Size, f.Path, note)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(a.Out, manifest.ContentHash)
	return nil
}
