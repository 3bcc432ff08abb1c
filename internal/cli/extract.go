package cli

import (
	"errors"
	"flag"
	"fmt"

	"github.com/fragment-platform/blogify/internal/config"
	"github.com/fragment-platform/blogify/pkg/bundler"
)

type extractConfig struct {
	config.Config
	Package string
	Dest    string
}

func parseExtractConfig(fs *flag.FlagSet, args []string, base config.Config) (extractConfig, error) {
	cfg := extractConfig{Config: base}
	addLogFlags(fs, &cfg.Config)
	if err := fs.Parse(args); err != nil {
		return extractConfig{}, err
	}
	if fs.NArg() != 2 {
		return extractConfig{}, errors.New("usage: blogify extract <file> <dir>")
	}
	cfg.Package, cfg.Dest = fs.Arg(0), fs.Arg(1)
	return cfg, nil
}

func (a *App) runExtract(cfg extractConfig) error {
	log, err := a.logger(cfg.Config)
	if err != nil {
		return err
	}

	n, err := bundler.Extract(cfg.Package, cfg.Dest)
	if err != nil {
		return err
	}
	log.Debug().Str("path", cfg.Package).Str("dest", cfg.Dest).Int("files", n).Msg("Package extracted")

	fmt.Fprintf(a.Out, "Extracted %d files to %s\n", n, cfg.Dest)
	return nil
}
