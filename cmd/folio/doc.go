// Command folio inspects and mutates record ledgers from the shell:
// peeking at the next open record, looking up and bulk-rewriting states,
// merging ledgers and cutting frames for parallel runs.
package main
