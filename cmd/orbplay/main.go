package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/MJE43/moonrock-orbs/internal/cmd/orbplay"
	"github.com/MJE43/moonrock-orbs/internal/config"
)

func main() {
	cfg, err := orbplay.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orbplay.Run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		config.Exitf("orbplay: %v", err)
	}
}
