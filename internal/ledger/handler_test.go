package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var testHeader = []string{"IDENTIFIER", "SETSPEC", "CREATED", "INFO", "STATE", "STATE_TIME"}

var testRows = [][]string{
	{"oai:opendata.uni-halle.de:1981185920/8853011", "ulbhaldod", "2021-08-03T08:00:01Z", "n.a.", "ocr_skip", "2021-08-03_15:03:56"},
	{"oai:opendata.uni-halle.de:1981185920/17320046", "ulbhaldod", "2021-08-03T08:00:01Z", "n.a.", "upload_done", "2021-08-03_15:05:10"},
	{"oai:opendata.uni-halle.de:1981185920/8853012", "ulbhaldod", "2021-08-03T08:00:21Z", "n.a.", "ocr_skip", "2021-08-03_15:14:45"},
	{"oai:opendata.uni-halle.de:1981185920/8853013", "ulbhaldod", "2021-08-03T08:00:41Z", "n.a.", "ocr_skip", "2021-08-03_15:20:45"},
	{"oai:opendata.uni-halle.de:1981185920/9510507", "ulbhaldod", "2021-08-03T08:01:01Z", "n.a.", "ocr_done", "2021-08-03_15:28:14"},
	{"oai:opendata.uni-halle.de:1981185920/9510508", "ulbhaldod", "2021-08-03T08:01:21Z", "n.a.", "n.a.", "n.a."},
}

func writeTestLedger(t *testing.T, header []string, rows [][]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "oai-list.tsv")
	var b strings.Builder
	b.WriteString(strings.Join(header, "\t"))
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(strings.Join(row, "\t"))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write ledger: %v", err)
	}
	return path
}

func mustOpen(t *testing.T, path string) *Handler {
	t.Helper()

	h, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	return h
}

func TestOpenBuildsSchemaFromHeader(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	if got := h.Total(); got != 6 {
		t.Fatalf("Total() = %d, want 6", got)
	}
	if got := h.Schema().Identifier(); got != "IDENTIFIER" {
		t.Fatalf("identifier field = %q", got)
	}
	if got := h.Schema().State(); got != "STATE" {
		t.Fatalf("state field = %q", got)
	}
	if got := h.Schema().StateTime(); got != "STATE_TIME" {
		t.Fatalf("state time field = %q", got)
	}
}

func TestOpenRejectsMismatchedFields(t *testing.T) {
	path := writeTestLedger(t, testHeader, testRows)

	_, err := Open(path, Options{Fields: []string{"IDENT", "STATE", "STATE_TIME"}})
	if !errors.Is(err, ErrDataShape) {
		t.Fatalf("Open with foreign fields = %v, want ErrDataShape", err)
	}
}

func TestOpenRejectsRaggedRow(t *testing.T) {
	rows := append([][]string{}, testRows...)
	rows = append(rows, []string{"oai:x:1", "ulbhaldod", "2021-08-03T08:02:00Z", "n.a.", "n.a."})
	path := writeTestLedger(t, testHeader, rows)

	_, err := Open(path, Options{})
	if !errors.Is(err, ErrDataShape) {
		t.Fatalf("Open with ragged row = %v, want ErrDataShape", err)
	}
}

func TestOpenRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tsv")
	if err := os.WriteFile(path, []byte("# only a comment\n\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path, Options{}); !errors.Is(err, ErrDataShape) {
		t.Fatalf("Open on commented-out file = %v, want ErrDataShape", err)
	}
}

func TestNextDefaultsToOpenState(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	record := h.Next("")
	if record == nil {
		t.Fatal("Next(\"\") = nil, want the open record")
	}
	if !strings.HasSuffix(record.Identifier, "9510508") {
		t.Fatalf("Next picked %s", record.Identifier)
	}
	if got := h.Position(); got != "0006/0006" {
		t.Fatalf("Position() = %q, want 0006/0006", got)
	}
}

func TestNextByStateScansInFileOrder(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	record := h.Next("ocr_skip")
	if record == nil || !strings.HasSuffix(record.Identifier, "8853011") {
		t.Fatalf("Next(ocr_skip) = %v, want first ocr_skip record", record)
	}
	if got := h.Position(); got != "0001/0006" {
		t.Fatalf("Position() = %q, want 0001/0006", got)
	}
}

func TestNextExhausted(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	if record := h.Next("no_such_state"); record != nil {
		t.Fatalf("Next(no_such_state) = %v, want nil", record)
	}
}

func TestGetExact(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	record := h.Get("oai:opendata.uni-halle.de:1981185920/8853012", true)
	if record == nil {
		t.Fatal("Get exact = nil")
	}
	if record.State != "ocr_skip" || record.StateTime != "2021-08-03_15:14:45" {
		t.Fatalf("Get exact returned %+v", record)
	}
	if h.Get("8853012", true) != nil {
		t.Fatal("Get exact matched a suffix")
	}
}

func TestGetFuzzyMatchesSuffix(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	record := h.Get("1981185920/9510507", false)
	if record == nil || !strings.HasSuffix(record.Identifier, "9510507") {
		t.Fatalf("fuzzy Get = %v", record)
	}
	if h.Get("no-such-needle", false) != nil {
		t.Fatal("fuzzy Get matched garbage")
	}
}

func TestSaveStateLeasesRecord(t *testing.T) {
	path := writeTestLedger(t, testHeader, testRows)
	h := mustOpen(t, path)

	ident := "oai:opendata.uni-halle.de:1981185920/9510508"
	if err := h.SaveState(ident, "", nil); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	reloaded := mustOpen(t, path)
	record := reloaded.Get(ident, true)
	if record == nil {
		t.Fatal("record vanished after SaveState")
	}
	if record.State != DefaultLockState {
		t.Fatalf("state = %q, want %q", record.State, DefaultLockState)
	}
	if _, err := time.Parse(StateTimeLayout, record.StateTime); err != nil {
		t.Fatalf("state time %q does not parse: %v", record.StateTime, err)
	}
}

func TestSaveStateUnknownIdentifier(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	err := h.SaveState("oai:nowhere:1", "done", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("SaveState unknown = %v, want ErrNotFound", err)
	}
}

func TestSaveStateExtraFieldOverride(t *testing.T) {
	path := writeTestLedger(t, testHeader, testRows)
	h := mustOpen(t, path)

	ident := "oai:opendata.uni-halle.de:1981185920/8853011"
	extra := map[string]string{"INFO": `{"pages":9}`}
	if err := h.SaveState(ident, "ocr_done", extra); err != nil {
		t.Fatalf("SaveState with extra: %v", err)
	}

	record := mustOpen(t, path).Get(ident, true)
	if record.Info != `{"pages":9}` {
		t.Fatalf("info = %q", record.Info)
	}
	if record.State != "ocr_done" {
		t.Fatalf("state = %q", record.State)
	}
}

func TestSaveStateRejectsUnknownExtraField(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	err := h.SaveState("oai:opendata.uni-halle.de:1981185920/8853011",
		"ocr_done", map[string]string{"NO_SUCH_FIELD": "x"})
	if !errors.Is(err, ErrDataShape) {
		t.Fatalf("SaveState with unknown field = %v, want ErrDataShape", err)
	}
}

func TestStatesDefaultCriteriaMatchOpenRecords(t *testing.T) {
	h := mustOpen(t, writeTestLedger(t, testHeader, testRows))

	matches, err := h.States(nil, "", true)
	if err != nil {
		t.Fatalf("States: %v", err)
	}
	if len(matches) != 1 || !strings.HasSuffix(matches[0].Identifier(), "9510508") {
		t.Fatalf("open matches = %v", matches)
	}
}

func TestStatesRewriteReopensRecords(t *testing.T) {
	path := writeTestLedger(t, testHeader, testRows)
	h := mustOpen(t, path)

	matches, err := h.States([]Criteria{StateIs{State: "ocr_skip"}}, "", false)
	if err != nil {
		t.Fatalf("States: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("matched %d records, want 3", len(matches))
	}

	reloaded := mustOpen(t, path)
	record := reloaded.Next("")
	if record == nil || !strings.HasSuffix(record.Identifier, "8853011") {
		t.Fatalf("Next after reopen = %v, want 8853011", record)
	}
	// Bulk transitions must not fake fresh activity.
	if record.StateTime != "2021-08-03_15:03:56" {
		t.Fatalf("state time rewritten to %q", record.StateTime)
	}
}

func TestStatesDryRunLeavesFileUntouched(t *testing.T) {
	path := writeTestLedger(t, testHeader, testRows)
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	h := mustOpen(t, path)
	if _, err := h.States([]Criteria{StateIs{State: "ocr_skip"}}, "reset", true); err != nil {
		t.Fatalf("States dry run: %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("dry run rewrote the file")
	}
}

func TestRewritePreservesCommentsAndBlanks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotated.tsv")
	content := "# harvested 2021-08-03\n" +
		"\n" +
		strings.Join(testHeader, "\t") + "\n" +
		strings.Join(testRows[0], "\t") + "\n" +
		"# checkpoint after first batch\n" +
		strings.Join(testRows[5], "\t") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	h := mustOpen(t, path)
	if h.Total() != 2 {
		t.Fatalf("Total() = %d, want 2", h.Total())
	}
	if err := h.SaveState(testRows[5][0], "done", nil); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
	if lines[0] != "# harvested 2021-08-03" || lines[1] != "" {
		t.Fatalf("leading comment or blank line lost: %q", lines[:2])
	}
	if lines[2] != strings.Join(testHeader, "\t") {
		t.Fatalf("header rewritten: %q", lines[2])
	}
	if lines[4] != "# checkpoint after first batch" {
		t.Fatalf("inline comment lost: %q", lines[4])
	}
	if !strings.Contains(lines[5], "\tdone\t") {
		t.Fatalf("state not rewritten: %q", lines[5])
	}
}
