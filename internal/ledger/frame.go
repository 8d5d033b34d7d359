package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FrameMaskState is the default state written to records outside a frame
// window so another machine will not pick them up.
const FrameMaskState = "other_load"

// DefaultFrameSize is how many records a frame covers when unspecified.
const DefaultFrameSize = 1000

// Frame partitions the ledger into an active window of size records
// beginning at start (1-based, inclusive) and writes a new file next to
// the source: all records are carried over, but every record outside the
// window has its state overwritten with mark. The source file is left
// untouched. The output name embeds the window bounds as
// "<stem>_<start>_<end>.<ext>"; optionally the output is sorted by a
// named field first.
func (h *Handler) Frame(start, size int, mark, sortBy string) (string, error) {
	if mark == "" {
		mark = FrameMaskState
	}
	if size <= 0 {
		size = DefaultFrameSize
	}
	requested := start
	if start > 0 {
		start--
	}
	end := start + size
	if end > len(h.rows) {
		end = len(h.rows)
	}

	rows := make([]Row, 0, len(h.rows))
	for i, row := range h.rows {
		cp := row.Clone()
		if i < start || i >= end {
			cp.setState(mark)
		}
		rows = append(rows, cp)
	}

	if sortBy != "" {
		if _, ok := h.schema.Index(sortBy); !ok {
			return "", fmt.Errorf("%w: invalid sort field %s, only %q permitted",
				ErrDataShape, sortBy, h.schema.Fields())
		}
		sort.SliceStable(rows, func(i, j int) bool {
			a, _ := rows[i].Field(sortBy)
			b, _ := rows[j].Field(sortBy)
			return a < b
		})
	}

	dir := filepath.Dir(h.path)
	base := filepath.Base(h.path)
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if ext == "" {
		ext = "csv"
	}
	outPath := filepath.Join(dir, fmt.Sprintf("%s_%02d_%02d.%s", stem, requested, end, ext))

	var sb strings.Builder
	sb.WriteString(h.schema.HeaderLine())
	sb.WriteByte('\n')
	for _, row := range rows {
		sb.WriteString(row.Line())
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(outPath, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("write frame: %w", err)
	}
	return outPath, nil
}
