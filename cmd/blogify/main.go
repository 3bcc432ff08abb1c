// Package main provides the blogify command.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fragment-platform/blogify/internal/cli"
	"github.com/fragment-platform/blogify/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if err == nil {
		return
	}

	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		stop()
		if exitErr.Err == nil {
			os.Exit(exitErr.Code)
		}
		config.ExitCodef(exitErr.Code, "Error: %v", exitErr.Err)
	}
	stop()
	config.Exitf("Error: %v", err)
}
