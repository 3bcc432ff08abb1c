package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fragment-platform/blogify/internal/config"
	"github.com/fragment-platform/blogify/pkg/bundler"
	"github.com/fragment-platform/blogify/pkg/catalog"
	"github.com/fragment-platform/blogify/pkg/signing"
)

type signConfig struct {
	config.Config
	SignaturePath string
	Package       string
}

func parseSignConfig(fs *flag.FlagSet, args []string, base config.Config) (signConfig, error) {
	cfg := signConfig{Config: base}
	fs.StringVar(&cfg.SigningKey, "key", cfg.SigningKey, "private key PEM file (default: BLOGIFY_SIGNING_KEY)")
	fs.StringVar(&cfg.SignaturePath, "sig", "", "signature output path (default: <file>.sig)")
	fs.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "catalog database path (default: BLOGIFY_CATALOG_PATH or <out>/catalog.db)")
	addLogFlags(fs, &cfg.Config)
	if err := fs.Parse(args); err != nil {
		return signConfig{}, err
	}
	if fs.NArg() != 1 {
		return signConfig{}, errors.New("usage: blogify sign -key <pem> [-sig <path>] <file>")
	}
	if cfg.SigningKey == "" {
		return signConfig{}, errors.New("-key or BLOGIFY_SIGNING_KEY is required")
	}
	cfg.Package = fs.Arg(0)
	if cfg.SignaturePath == "" {
		cfg.SignaturePath = signing.SignaturePath(cfg.Package)
	}
	return cfg, nil
}

func (a *App) runSign(ctx context.Context, cfg signConfig) error {
	log, err := a.logger(cfg.Config)
	if err != nil {
		return err
	}

	keyPEM, err := os.ReadFile(cfg.SigningKey)
	if err != nil {
		return fmt.Errorf("read signing key: %w", err)
	}
	key, err := signing.ParsePrivateKey(keyPEM)
	if err != nil {
		return err
	}

	sig, err := signing.Sign(cfg.Package, key, signing.WithSignedAt(a.now()), signing.WithLogger(log))
	if err != nil {
		return err
	}
	if err := signing.WriteSignature(cfg.SignaturePath, sig); err != nil {
		return err
	}

	if err := recordSignature(ctx, cfg, sig.Algorithm, sig.KeyID, sig.Digest, sig.SignedAt); err != nil {
		log.Warn().Err(err).Str("path", cfg.Package).Msg("Signature written but not catalogued")
	}

	fmt.Fprintln(a.Out, cfg.SignaturePath)
	return nil
}

func recordSignature(ctx context.Context, cfg signConfig, algorithm, keyID, digest string, signedAt time.Time) error {
	meta, err := bundler.ReadMetadata(cfg.Package)
	if err != nil {
		return err
	}
	sigPath, err := filepath.Abs(cfg.SignaturePath)
	if err != nil {
		return err
	}

	cat, err := openCatalog(cfg.Config)
	if err != nil {
		return err
	}
	defer cat.Close()

	return cat.RecordSignature(ctx, meta.Slug, catalog.SignatureInfo{
		Path:      sigPath,
		Algorithm: algorithm,
		KeyID:     keyID,
		Digest:    digest,
		SignedAt:  signedAt,
	})
}
