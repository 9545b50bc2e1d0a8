// Package recordsvc implements the reference record service the harness
// exercises: a contacts-like store of records, their data rows, synchronous
// aggregates, groups, and per-package restriction exceptions, persisted in
// SQLite through the storage binding it is attached with.
//
// The service enforces restriction on the read side only. A restricted
// record's rows are visible to the package that owns them and to packages
// granted an exception; writes are never blocked, so tests can stage
// cross-package state and then probe how reads behave.
//
// Uses SQLite with WAL mode; one service instance owns one database file
// and is driven single-threaded by the harness.
package recordsvc
