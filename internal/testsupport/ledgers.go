package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"folio/internal/ledger"
)

// OAIHeader is the canonical six-column ledger header.
var OAIHeader = []string{
	"IDENTIFIER", "SETSPEC", "CREATED", "INFO", "STATE", "STATE_TIME",
}

// OAIRows is a small harvest ledger snapshot covering finished, skipped
// and still-open records.
var OAIRows = [][]string{
	{"oai:opendata.uni-halle.de:1981185920/8853011", "ulbhaldod", "2021-08-03T08:00:01Z", "n.a.", "ocr_skip", "2021-08-03_15:03:56"},
	{"oai:opendata.uni-halle.de:1981185920/17320046", "ulbhaldod", "2021-08-03T08:00:01Z", "n.a.", "upload_done", "2021-08-03_15:05:10"},
	{"oai:opendata.uni-halle.de:1981185920/8853012", "ulbhaldod", "2021-08-03T08:00:21Z", "n.a.", "ocr_skip", "2021-08-03_15:14:45"},
	{"oai:opendata.uni-halle.de:1981185920/8853013", "ulbhaldod", "2021-08-03T08:00:41Z", "n.a.", "ocr_skip", "2021-08-03_15:20:45"},
	{"oai:opendata.uni-halle.de:1981185920/9510507", "ulbhaldod", "2021-08-03T08:01:01Z", "n.a.", "ocr_done", "2021-08-03_15:28:14"},
	{"oai:opendata.uni-halle.de:1981185920/9510508", "ulbhaldod", "2021-08-03T08:01:21Z", "n.a.", "n.a.", "n.a."},
}

// WriteLedger writes a tab-separated ledger file from a header and rows
// and returns its path.
func WriteLedger(t testing.TB, path string, header []string, rows [][]string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	var b strings.Builder
	b.WriteString(strings.Join(header, "\t"))
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(strings.Join(row, "\t"))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write ledger %s: %v", path, err)
	}
	return path
}

// WriteOAILedger writes the canonical fixture ledger to path.
func WriteOAILedger(t testing.TB, path string) string {
	t.Helper()
	return WriteLedger(t, path, OAIHeader, OAIRows)
}

// MustOpen opens a ledger handler for tests with default conventions.
func MustOpen(t testing.TB, path string) *ledger.Handler {
	t.Helper()

	h, err := ledger.Open(path, ledger.Options{})
	if err != nil {
		t.Fatalf("ledger.Open(%s): %v", path, err)
	}
	return h
}
