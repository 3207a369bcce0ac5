// Package store provides a SQLite-backed registry of compiled IDLs.
//
// The registry keeps:
//   - Programs: the source document and canonical model, keyed by IdlHash
//   - Discriminators: every instruction, account and event tag of a program
//   - Runs: code generation runs, keyed by a random UUID
//
// # Ordering
//
// Rows carry a seq INTEGER assigned on insert. Listings order by seq and
// never by wall time, so two registries fed the same documents in the same
// order list identically.
//
// # Schema
//
// schema.sql creates the base tables. Later changes are appended to the
// migrations list in store.go and tracked through PRAGMA user_version, so
// Open upgrades an old registry in place.
//
// Stored programs are reloaded by recompiling their source, so a registry
// written by an older compiler still yields models with current semantics.
package store
