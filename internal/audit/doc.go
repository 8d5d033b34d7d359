// Package audit keeps a SQLite journal of coordination traffic: every
// record lease and every state update, stamped with the client address.
// The journal is append-only from the service's point of view; nothing
// in folio reads it back except operator tooling.
package audit
