package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/MJE43/moonrock-orbs/internal/cmd/orbd"
	"github.com/MJE43/moonrock-orbs/internal/config"
)

func main() {
	cfg, err := orbd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse config: %v", err)
	}

	if len(cfg.Args) > 0 {
		if cfg.Args[0] != "token" {
			config.Exitf("unknown command %q", cfg.Args[0])
		}
		if err := orbd.RunToken(cfg, cfg.Args[1:], os.Stdout); err != nil {
			config.Exitf("token: %v", err)
		}
		return
	}

	log.SetPrefix("[ORBD] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orbd.Serve(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
