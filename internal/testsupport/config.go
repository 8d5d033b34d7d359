package testsupport

import (
	"path/filepath"
	"testing"

	"folio/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per
// test and an ephemeral bind address.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LedgerDir = filepath.Join(base, "ledgers")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.Bind = "127.0.0.1:0"
	cfg.Service.AuditJournal = false

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithAllowedClients restricts the service to the given client hosts.
func WithAllowedClients(hosts ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Service.AllowedClients = hosts
	}
}

// WithAuditJournal toggles the SQLite journal on the test config.
func WithAuditJournal(enabled bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Service.AuditJournal = enabled
	}
}
