// Command sessionctl signs in to the Brewline backend from a terminal. The
// credential is kept in Redis per profile, so successive invocations share
// one session until logout or expiry.
//
//	sessionctl [--profile name] login --email a@b.c --password ...
//	sessionctl register --company "Acme" --email a@b.c --password ...
//	sessionctl whoami | status | logout
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/brewline/console/internal/pkg/config"
	"github.com/brewline/console/pkg/logger"
)

// errUsage marks errors already explained to the user.
var errUsage = errors.New("usage")

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Output: os.Stderr, Service: "sessionctl"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "sessionctl:", err)
		}
		os.Exit(1)
	}
}

func printUsage(w io.Writer, global *pflag.FlagSet) {
	fmt.Fprintln(w, "usage: sessionctl [flags] <login|register|logout|whoami|status> [command flags]")
	fmt.Fprintln(w, "\nflags:")
	global.SetOutput(w)
	global.PrintDefaults()
}
