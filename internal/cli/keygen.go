package cli

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fragment-platform/blogify/internal/config"
	"github.com/fragment-platform/blogify/pkg/signing"
)

type keygenConfig struct {
	config.Config
	Algorithm string
	Prefix    string
}

func parseKeygenConfig(fs *flag.FlagSet, args []string, base config.Config) (keygenConfig, error) {
	cfg := keygenConfig{Config: base}
	fs.StringVar(&cfg.Algorithm, "alg", signing.AlgorithmEd25519, "signature algorithm: "+strings.Join(signing.SupportedAlgorithms(), ", "))
	fs.StringVar(&cfg.Prefix, "out", "blogify", "key file prefix; writes <out>.key and <out>.pub")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "replace existing key files")
	addLogFlags(fs, &cfg.Config)
	if err := fs.Parse(args); err != nil {
		return keygenConfig{}, err
	}
	if fs.NArg() != 0 {
		return keygenConfig{}, errors.New("usage: blogify keygen [-alg <id>] [-out <prefix>]")
	}
	return cfg, nil
}

func (a *App) runKeygen(cfg keygenConfig) error {
	log, err := a.logger(cfg.Config)
	if err != nil {
		return err
	}

	key, err := signing.GenerateKey(cfg.Algorithm, a.Rand)
	if err != nil {
		return err
	}
	privPEM, err := signing.MarshalPrivateKey(key)
	if err != nil {
		return err
	}
	pubPEM, err := signing.MarshalPublicKey(key.Public())
	if err != nil {
		return err
	}
	keyID, err := signing.KeyID(key.Public())
	if err != nil {
		return err
	}

	privPath, pubPath := cfg.Prefix+".key", cfg.Prefix+".pub"
	if dir := filepath.Dir(cfg.Prefix); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create key directory: %w", err)
		}
	}
	if err := writeKeyFile(privPath, privPEM, 0600, cfg.Overwrite); err != nil {
		return err
	}
	if err := writeKeyFile(pubPath, pubPEM, 0644, cfg.Overwrite); err != nil {
		return err
	}
	log.Debug().Str("algorithm", cfg.Algorithm).Str("private", privPath).Str("public", pubPath).Msg("Key pair written")

	fmt.Fprintf(a.Out, "%s\n%s\n%s\n", privPath, pubPath, keyID)
	return nil
}

func writeKeyFile(path string, data []byte, perm os.FileMode, overwrite bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, perm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s already exists; pass -overwrite to replace it", path)
		}
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
