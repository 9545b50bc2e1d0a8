// Package values provides the typed value bag used for insert and update
// payloads and for row cells read back out of cursors.
//
// This package contains type definitions and serialization only. All other
// internal packages may import values; values imports nothing internal, so it
// stays the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types - use Int (int64) for numbers
//   - Marshal output is deterministic: sorted keys, NFC strings, no HTML
//     escaping, so traces can be compared byte for byte
package values
