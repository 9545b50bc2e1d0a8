// Package address provides hierarchical resource addresses of the form
// //authority/segment/segment. The authority names a service instance; the
// segments name a resource held by it, with numeric segments carrying row
// ids (//records/records/7/data).
package address

import (
	"fmt"
	"strconv"
	"strings"
)

// Address identifies a resource: a logical authority plus a path of
// segments. The zero value is invalid; build addresses with New or Parse.
type Address struct {
	authority string
	segments  []string
}

// ParseError reports a malformed address string.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse address %q: %s", e.Input, e.Reason)
}

// New builds an address from an authority and path segments.
func New(authority string, segments ...string) Address {
	return Address{authority: authority, segments: append([]string(nil), segments...)}
}

// Parse parses "//authority/segment/..." into an Address. The authority is
// required; segments are optional.
func Parse(s string) (Address, error) {
	if !strings.HasPrefix(s, "//") {
		return Address{}, &ParseError{Input: s, Reason: "must start with //"}
	}
	rest := s[2:]
	if rest == "" {
		return Address{}, &ParseError{Input: s, Reason: "missing authority"}
	}

	parts := strings.Split(rest, "/")
	if parts[0] == "" {
		return Address{}, &ParseError{Input: s, Reason: "missing authority"}
	}
	for _, seg := range parts[1:] {
		if seg == "" {
			return Address{}, &ParseError{Input: s, Reason: "empty path segment"}
		}
	}
	return Address{authority: parts[0], segments: parts[1:]}, nil
}

// MustParse is Parse for statically known addresses; it panics on error.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Authority returns the logical service name the address targets.
func (a Address) Authority() string {
	return a.authority
}

// Segments returns a copy of the path segments.
func (a Address) Segments() []string {
	return append([]string(nil), a.segments...)
}

// String renders the address back to //authority/segment/... form.
func (a Address) String() string {
	var sb strings.Builder
	sb.WriteString("//")
	sb.WriteString(a.authority)
	for _, seg := range a.segments {
		sb.WriteByte('/')
		sb.WriteString(seg)
	}
	return sb.String()
}

// Child returns the address with one more path segment appended.
func (a Address) Child(segment string) Address {
	segs := make([]string, 0, len(a.segments)+1)
	segs = append(segs, a.segments...)
	segs = append(segs, segment)
	return Address{authority: a.authority, segments: segs}
}

// WithID returns the address with a numeric id segment appended. Inserts
// return the created row's address this way.
func (a Address) WithID(id int64) Address {
	return a.Child(strconv.FormatInt(id, 10))
}

// ID returns the trailing segment as a row id, or false when the address
// ends on a collection.
func (a Address) ID() (int64, bool) {
	if len(a.segments) == 0 {
		return 0, false
	}
	return a.IDAt(len(a.segments) - 1)
}

// IDAt returns segment i parsed as a row id.
func (a Address) IDAt(i int) (int64, bool) {
	if i < 0 || i >= len(a.segments) {
		return 0, false
	}
	id, err := strconv.ParseInt(a.segments[i], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Pattern returns the path with every numeric segment replaced by "#", for
// dispatching on address shape: //records/records/7/data yields
// "records/#/data". The authority is not part of the pattern.
func (a Address) Pattern() string {
	parts := make([]string, len(a.segments))
	for i, seg := range a.segments {
		if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
			parts[i] = "#"
		} else {
			parts[i] = seg
		}
	}
	return strings.Join(parts, "/")
}
