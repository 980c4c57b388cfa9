// Package main runs the mesa voucher ledger command.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	mesacmd "github.com/gonzalobarria/mesa-compartida/internal/cmd/mesa"
	"github.com/gonzalobarria/mesa-compartida/internal/platform/config"
)

func main() {
	cfg, err := mesacmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[MESA] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mesacmd.Run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		log.Printf("%s: %v", cfg.Command, err)
		stop()
		config.Exitf("%s", mesacmd.UserMessage(err, cfg.Locale))
	}
}
