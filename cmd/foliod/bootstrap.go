package main

import (
	"context"
	"fmt"
	"path/filepath"

	"log/slog"

	"github.com/gofrs/flock"

	"folio/internal/audit"
	"folio/internal/config"
	"folio/internal/logging"
	"folio/internal/service"
)

// run wires the daemon together: a single-instance lock, the optional
// audit journal and the coordination server, then blocks until shutdown.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	instanceLock := flock.New(filepath.Join(cfg.Paths.LogDir, "foliod.lock"))
	locked, err := instanceLock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another foliod owns %s", instanceLock.Path())
	}
	defer func() { _ = instanceLock.Unlock() }()

	var journal *audit.Journal
	if cfg.Service.AuditJournal {
		journal, err = audit.Open(cfg)
		if err != nil {
			return fmt.Errorf("open audit journal: %w", err)
		}
		defer journal.Close()
		logger.Info("audit journal open", logging.String("path", journal.Path()))
	}

	srv, err := service.NewServer(cfg, journal, logger)
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer srv.Stop()

	<-ctx.Done()
	logger.Info("foliod shutting down")
	return nil
}
