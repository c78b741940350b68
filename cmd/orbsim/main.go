package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/MJE43/moonrock-orbs/internal/cmd/orbsim"
	"github.com/MJE43/moonrock-orbs/internal/config"
)

func main() {
	cfg, err := orbsim.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orbsim.Run(ctx, cfg, os.Stdout); err != nil {
		config.Exitf("orbsim: %v", err)
	}
}
