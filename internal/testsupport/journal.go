package testsupport

import (
	"testing"

	"folio/internal/audit"
	"folio/internal/config"
)

// MustOpenJournal opens an audit journal for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *audit.Journal {
	t.Helper()

	journal, err := audit.Open(cfg)
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = journal.Close()
	})
	return journal
}
