// Package ledger owns the persistent record ledger: a tab-separated text
// file with one row per digitization object, a header naming the fields,
// and a positional convention that the first field identifies the record
// while the last two carry its lifecycle state and state timestamp.
//
// A Handler loads one ledger file, builds an identifier index, and exposes
// lease (Next + SaveState), query (Get, States), partition (Frame) and
// reconciliation (Merge) operations. Every mutation rewrites the whole file
// from the in-memory raw lines; the last successful rewrite wins. Comment
// lines ("#") and blank lines are carried through rewrites verbatim.
//
// The ledger file is a single-writer resource by convention: either one
// coordination service process owns it, or batch tooling operates on
// disjoint Frame partitions. Rewrites take an advisory flock so that two
// cooperating processes cannot interleave a single write, but the wider
// read-modify-write cycle is only serialized within one process.
package ledger
