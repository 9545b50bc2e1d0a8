// Package provider defines the contract between the harness and a data
// service under test: three primitives (Insert, Update, Query) addressed by
// hierarchical addresses, a factory invoked once per service instance at
// attach time, and the cursor protocol for reading query results.
//
// Cursors must be released on every path, including error and not-found
// paths. A cursor left open is a defect in the calling test.
package provider
