package ledger

import (
	"fmt"
	"os"
	"strings"

	"github.com/gofrs/flock"
)

// Options tunes how a ledger file is opened.
type Options struct {
	// Fields is an optional explicit field list. When set it must match
	// the file's header token for token; a mismatch is a data-shape
	// error naming both sides.
	Fields []string
	// Marks overrides the ledger's state conventions; zero fields fall
	// back to DefaultMarks.
	Marks Marks
}

type position struct {
	raw int // index into rawLines
	row int // index into rows
}

// Handler owns one ledger file: it loads the file once at construction,
// keeps the raw lines plus parsed rows in memory, and rewrites the whole
// file after every mutation. All mutations are serialized by the caller's
// own call order; the handler has no internal concurrency.
type Handler struct {
	path     string
	schema   Schema
	marks    Marks
	rawLines []string
	rows     []Row
	rawOf    []int // raw line index per row, stable under duplicate identifiers
	index    map[string]position
	progress string
	fileLock *flock.Flock
}

// Open loads a ledger file and builds its identifier index.
func Open(path string, opts Options) (*Handler, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	content := strings.TrimSuffix(string(raw), "\n")
	h := &Handler{
		path:     path,
		marks:    opts.Marks.orDefaults(),
		rawLines: strings.Split(content, "\n"),
		index:    map[string]position{},
		fileLock: flock.New(path + ".lock"),
	}
	for i := range h.rawLines {
		h.rawLines[i] = strings.TrimSuffix(h.rawLines[i], "\r")
	}

	headerLine, ok := h.firstDataLine()
	if !ok {
		return nil, fmt.Errorf("%w: %s holds no data", ErrDataShape, path)
	}
	header := strings.Split(headerLine, "\t")
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(opts.Fields) > 0 && !equalFields(header, opts.Fields) {
		return nil, fmt.Errorf("%w: invalid fields %q, expect %q", ErrDataShape, header, opts.Fields)
	}
	if h.schema, err = NewSchema(header); err != nil {
		return nil, err
	}
	if err := h.buildRows(); err != nil {
		return nil, err
	}
	return h, nil
}

// Path returns the ledger file path.
func (h *Handler) Path() string { return h.path }

// Schema returns the ledger's field schema.
func (h *Handler) Schema() Schema { return h.schema }

// Marks returns the ledger's state conventions.
func (h *Handler) Marks() Marks { return h.marks }

// Total returns the number of records.
func (h *Handler) Total() int { return len(h.rows) }

// Position reports the human-readable "position/total" marker of the
// last successful Next call, for progress reporting.
func (h *Handler) Position() string { return h.progress }

func (h *Handler) firstDataLine() (string, bool) {
	for _, line := range h.rawLines {
		if isDataLine(line) {
			return line, true
		}
	}
	return "", false
}

func isDataLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed != "" && !strings.HasPrefix(trimmed, CommentMark)
}

func equalFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (h *Handler) isHeaderLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), h.schema.Identifier())
}

func (h *Handler) buildRows() error {
	for i, line := range h.rawLines {
		if !isDataLine(line) || h.isHeaderLine(line) {
			continue
		}
		values := strings.Split(strings.TrimSpace(line), "\t")
		if len(values) != h.schema.Len() {
			return fmt.Errorf("%w: line %d of %s has %d fields, header declares %d",
				ErrDataShape, i+1, h.path, len(values), h.schema.Len())
		}
		row := newRow(h.schema, values)
		h.index[row.Identifier()] = position{raw: i, row: len(h.rows)}
		h.rawOf = append(h.rawOf, i)
		h.rows = append(h.rows, row)
	}
	return nil
}

// Next returns the first record in file order whose state equals the
// requested one, or nil when none matches. An empty state means the
// ledger's open sentinel. Next never mutates state; leasing happens via
// SaveState.
func (h *Handler) Next(state string) *Record {
	if state == "" {
		state = h.marks.Open
	}
	for i, row := range h.rows {
		if row.State() == state {
			h.progress = fmt.Sprintf("%04d/%04d", i+1, len(h.rows))
			return recordFromRow(row)
		}
	}
	return nil
}

// Get returns the first record with the given identifier without touching
// its state, or nil when nothing matches. In non-exact mode a ledger
// identifier matches when it ends with the needle, or failing that, when
// it contains the needle.
func (h *Handler) Get(identifier string, exact bool) *Record {
	for _, row := range h.rows {
		recordID := row.Identifier()
		if exact {
			if recordID == identifier {
				return recordFromRow(row)
			}
			continue
		}
		if strings.HasSuffix(recordID, identifier) || strings.Contains(recordID, identifier) {
			return recordFromRow(row)
		}
	}
	return nil
}

// SaveState is the sole mutation primitive: it sets the record's state
// (empty means the lock sentinel), stamps the state time with the current
// wall clock, applies any extra field overrides, rewrites the raw line
// and persists the whole file. This is the lease operation used by the
// coordination service.
func (h *Handler) SaveState(identifier, state string, extra map[string]string) error {
	if state == "" {
		state = h.marks.Lock
	}
	pos, known := h.index[identifier]
	if !known {
		return fmt.Errorf("%w: no record for %s in %s, cannot save state", ErrNotFound, identifier, h.path)
	}
	row := h.rows[pos.row]
	for field, value := range extra {
		if !row.set(field, value) {
			return fmt.Errorf("%w: no field %s in %s", ErrDataShape, field, h.path)
		}
	}
	row.setState(state)
	row.setStateTime(h.marks.Now())
	h.rawLines[pos.raw] = row.Line()
	return h.persist()
}

// States evaluates every record against the AND of the given criteria
// (default: state equals the open sentinel) and returns the matching
// rows. Unless dryRun is set, every match's state field is rewritten to
// setState (empty means the open sentinel) and the file is persisted.
// Bulk transitions deliberately leave the state timestamp untouched.
func (h *Handler) States(criteria []Criteria, setState string, dryRun bool) ([]Row, error) {
	if len(criteria) == 0 {
		criteria = []Criteria{StateIs{State: h.marks.Open}}
	}
	if setState == "" {
		setState = h.marks.Open
	}
	var matches []Row
	for i, row := range h.rows {
		ok, err := MatchesAll(criteria, row)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if !dryRun {
			row.setState(setState)
			h.rawLines[h.rawOf[i]] = row.Line()
		}
		matches = append(matches, row.Clone())
	}
	if !dryRun {
		if err := h.persist(); err != nil {
			return nil, err
		}
	}
	return matches, nil
}

// persist rewrites the whole file from the in-memory raw lines. An
// advisory flock on a sibling lock file keeps two cooperating processes
// from interleaving a single rewrite; the surrounding read-modify-write
// cycle is still only serialized within one process.
func (h *Handler) persist() error {
	if err := h.fileLock.Lock(); err != nil {
		return fmt.Errorf("lock ledger: %w", err)
	}
	defer func() { _ = h.fileLock.Unlock() }()

	content := strings.Join(h.rawLines, "\n") + "\n"
	if err := os.WriteFile(h.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}
