package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/fragment-platform/blogify/internal/config"
	"github.com/fragment-platform/blogify/pkg/signing"
	"github.com/fragment-platform/blogify/pkg/types"
)

type verifyConfig struct {
	config.Config
	SignaturePath string
	Package       string
}

func parseVerifyConfig(fs *flag.FlagSet, args []string, base config.Config) (verifyConfig, error) {
	cfg := verifyConfig{Config: base}
	fs.StringVar(&cfg.PublicKey, "pub", cfg.PublicKey, "public key PEM file (default: BLOGIFY_PUBLIC_KEY)")
	fs.StringVar(&cfg.SignaturePath, "sig", "", "signature path (default: <file>.sig)")
	addLogFlags(fs, &cfg.Config)
	if err := fs.Parse(args); err != nil {
		return verifyConfig{}, err
	}
	if fs.NArg() != 1 {
		return verifyConfig{}, errors.New("usage: blogify verify -pub <pem> [-sig <path>] <file>")
	}
	if cfg.PublicKey == "" {
		return verifyConfig{}, errors.New("-pub or BLOGIFY_PUBLIC_KEY is required")
	}
	cfg.Package = fs.Arg(0)
	if cfg.SignaturePath == "" {
		cfg.SignaturePath = signing.SignaturePath(cfg.Package)
	}
	return cfg, nil
}

// runVerify prints the verification status. Invalid exits 1 and
// unverifiable exits 2.
func (a *App) runVerify(cfg verifyConfig) error {
	log, err := a.logger(cfg.Config)
	if err != nil {
		return err
	}

	status, err := a.verify(cfg, log)
	fmt.Fprintln(a.Out, status.String())
	switch status {
	case types.StatusValid:
		return nil
	case types.StatusInvalid:
		return &ExitError{Code: ExitInvalid}
	default:
		return &ExitError{Code: ExitUnverifiable, Err: err}
	}
}

func (a *App) verify(cfg verifyConfig, log zerolog.Logger) (types.VerifyStatus, error) {
	pubPEM, err := os.ReadFile(cfg.PublicKey)
	if err != nil {
		return types.StatusUnverifiable, fmt.Errorf("read public key: %w", err)
	}
	pub, err := signing.ParsePublicKey(pubPEM)
	if err != nil {
		return types.StatusUnverifiable, err
	}
	sig, err := signing.ReadSignature(cfg.SignaturePath)
	if err != nil {
		return types.StatusUnverifiable, err
	}
	return signing.Verify(cfg.Package, sig, pub, signing.WithLogger(log))
}
