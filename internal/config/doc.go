// Package config loads and validates folio's TOML configuration: ledger
// and log directories, the coordination service bind address and tuning,
// the per-ledger state conventions, and log output settings. Values are
// normalized (paths expanded, defaults applied) before validation so the
// rest of the repository can rely on absolute paths and non-empty labels.
package config
