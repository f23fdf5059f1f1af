package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal/config"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/listener"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/logging"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	log := logging.New()
	defer func() { _ = log.Sync() }()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := listener.NewService(db, cfg, log)
	must(s.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
