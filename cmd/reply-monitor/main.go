package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chandler/internal/config"
	"chandler/internal/logging"
	"chandler/internal/replies"
	"chandler/internal/storage"
)

func main() {
	logger, err := logging.Init()
	must(err)
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	must(err)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	monitor, err := replies.NewMonitor(db, cfg)
	must(err)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		must(err)
	}
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
