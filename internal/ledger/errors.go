package ledger

import "errors"

var (
	// ErrDataShape marks malformed ledger data: header mismatches, rows
	// with the wrong column count, or wire payloads missing one of the
	// three mandatory record fields. Fatal at load time.
	ErrDataShape = errors.New("ledger data shape")

	// ErrNotFound marks lookups or state updates against an identifier
	// the ledger does not index.
	ErrNotFound = errors.New("record not found")
)
