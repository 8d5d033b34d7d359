// Package service implements the HTTP coordination boundary around
// record ledgers: a server that leases open records to workers and
// accepts their state reports, and the matching client. One request at
// a time touches a ledger, so a delivered record is leased exclusively.
package service
