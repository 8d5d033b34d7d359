// Command foliod serves record ledgers over HTTP so workers on many
// hosts can lease open records and report their outcomes.
package main
