// Package cli implements the blogify subcommands. Each command parses its
// flags on top of the BLOGIFY_* environment configuration and then runs
// against the bundler, digest, signing and catalog packages.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/fragment-platform/blogify/internal/config"
	"github.com/fragment-platform/blogify/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Exit codes reported by verify.
const (
	ExitInvalid      = 1
	ExitUnverifiable = 2
)

// ExitError carries a specific process exit code. Err may be nil when the
// command already reported its outcome.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// App runs subcommands against a pair of output streams. Results go to Out,
// logs and usage text to ErrOut.
type App struct {
	Out    io.Writer
	ErrOut io.Writer

	// Rand is the entropy source for keygen; crypto/rand when nil.
	Rand io.Reader

	// Now returns the current time; time.Now when nil.
	Now func() time.Time
}

// Run executes the subcommand named by args[0].
func Run(ctx context.Context, args []string, out, errOut io.Writer) error {
	app := &App{Out: out, ErrOut: errOut}
	return app.Run(ctx, args)
}

// Run executes the subcommand named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if a.Out == nil {
		a.Out = io.Discard
	}
	if a.ErrOut == nil {
		a.ErrOut = io.Discard
	}
	if len(args) == 0 {
		a.printUsage(a.ErrOut)
		return errors.New("no command given")
	}

	base, err := config.Load()
	if err != nil {
		return err
	}

	name, rest := args[0], args[1:]
	switch name {
	case "init":
		cfg, err := parseInitConfig(a.flagSet(name), rest, base)
		if err != nil {
			return flagError(err)
		}
		return a.runInit(ctx, cfg)
	case "post":
		cfg, err := parsePostConfig(a.flagSet(name), rest, base)
		if err != nil {
			return flagError(err)
		}
		return a.runPost(ctx, cfg)
	case "hash":
		cfg, err := parseHashConfig(a.flagSet(name), rest, base)
		if err != nil {
			return flagError(err)
		}
		return a.runHash(cfg)
	case "sign":
		cfg, err := parseSignConfig(a.flagSet(name), rest, base)
		if err != nil {
			return flagError(err)
		}
		return a.runSign(ctx, cfg)
	case "verify":
		cfg, err := parseVerifyConfig(a.flagSet(name), rest, base)
		if err != nil {
			return flagError(err)
		}
		return a.runVerify(cfg)
	case "keygen":
		cfg, err := parseKeygenConfig(a.flagSet(name), rest, base)
		if err != nil {
			return flagError(err)
		}
		return a.runKeygen(cfg)
	case "list":
		cfg, err := parseListConfig(a.flagSet(name), rest, base)
		if err != nil {
			return flagError(err)
		}
		return a.runList(ctx, cfg)
	case "extract":
		cfg, err := parseExtractConfig(a.flagSet(name), rest, base)
		if err != nil {
			return flagError(err)
		}
		return a.runExtract(cfg)
	case "version":
		fmt.Fprintf(a.Out, "blogify %s\n", Version)
		return nil
	case "help", "-h", "--help":
		a.printUsage(a.Out)
		return nil
	default:
		fmt.Fprintf(a.ErrOut, "Unknown command: %s\n\n", name)
		a.printUsage(a.ErrOut)
		return fmt.Errorf("unknown command %q", name)
	}
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("blogify "+name, flag.ContinueOnError)
	fs.SetOutput(a.ErrOut)
	return fs
}

// flagError turns a -h request into a clean exit.
func flagError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

// addLogFlags registers the logging flags shared by every command.
func addLogFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error (default: BLOGIFY_LOG_LEVEL or info)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console or json (default: BLOGIFY_LOG_FORMAT or console)")
}

func (a *App) logger(cfg config.Config) (zerolog.Logger, error) {
	return logging.New(cfg.LogLevel, cfg.LogFormat, a.ErrOut)
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) printUsage(w io.Writer) {
	fmt.Fprintln(w, `blogify - package, hash, sign and verify blog posts

Usage:
  blogify <command> [flags] [arguments]

Commands:
  init                       Create the output directory and package catalog
  post <file> [assets...]    Build a .post package from an HTML document and assets
  hash [-v] <file>           Print the content digest of a package
  sign -key <pem> <file>     Sign a package, writing <file>.sig
  verify -pub <pem> <file>   Verify a package against its signature
  keygen [-alg <id>]         Generate a signing key pair
  list                       List catalogued packages
  extract <file> <dir>       Unpack a package into a new directory
  version                    Print the blogify version
  help                       Show this help message

Run "blogify <command> -h" for the flags of a command.`)
}
