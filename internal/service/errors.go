package service

import "errors"

var (
	// ErrRecordsExhausted signals that the service holds no more records
	// in the requested state for the named ledger.
	ErrRecordsExhausted = errors.New("records exhausted")

	// ErrServiceUnreachable signals a transport-level failure before any
	// HTTP status was received.
	ErrServiceUnreachable = errors.New("record service unreachable")
)
