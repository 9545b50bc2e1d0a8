package query

import "github.com/roach88/crosshatch/internal/values"

// Filter represents an abstract row predicate.
//
// Filter types:
//   - Eq: column = literal value
//   - And: all filters must be true
//
// OR and subqueries are deliberately absent; the data operation surface
// only ever needs conjunctions of equality tests.
type Filter interface {
	filterNode() // Marker method - seals interface to this package
}

// Eq represents a column-equals-literal filter.
//
// The value is constrained to the values.Value scalar types and is always
// bound as a SQL parameter.
type Eq struct {
	Column string
	Value  values.Value
}

func (Eq) filterNode() {}

// And represents a conjunction of filters. An empty conjunction is always
// true.
type And struct {
	Filters []Filter
}

func (And) filterNode() {}

// EqString is shorthand for an Eq on a string literal.
func EqString(column, v string) Eq {
	return Eq{Column: column, Value: values.String(v)}
}

// EqInt is shorthand for an Eq on an integer literal.
func EqInt(column string, v int64) Eq {
	return Eq{Column: column, Value: values.Int(v)}
}

// EqBool is shorthand for an Eq on a boolean literal.
func EqBool(column string, v bool) Eq {
	return Eq{Column: column, Value: values.Bool(v)}
}
