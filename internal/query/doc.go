// Package query provides the abstract filter representation passed through
// the data operation surface, and its compilation to parameterized SQL.
//
// Filter is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the compiler.
//
// Two rules hold for every compiled statement:
//   - values are always bound through ? placeholders, never interpolated
//   - SELECTs carry a deterministic ORDER BY so repeated runs of a test
//     read rows back in the same order
package query
