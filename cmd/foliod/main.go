package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"folio/internal/config"
	"folio/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("foliod failed", logging.Error(err))
		log.Fatalf("foliod: %v", err)
	}
	logger.Info("foliod shut down")
}
