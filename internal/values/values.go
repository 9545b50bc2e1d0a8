package values

import (
	"fmt"
	"sort"
)

// Value is a sealed interface over the types a payload cell may hold.
// Only Null, String, Int, Bool, List, and Values implement it.
// There is deliberately no float type: floats break deterministic
// serialization and nothing in the record model needs them.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents an explicit null cell, as distinct from an absent key.
type Null struct{}

func (Null) value() {}

// String represents a text cell.
type String string

func (String) value() {}

// Int represents an integer cell. Always int64.
type Int int64

func (Int) value() {}

// Bool represents a boolean cell.
type Bool bool

func (Bool) value() {}

// List represents an ordered sequence of values. Payload bags are flat;
// lists appear only in trace serialization.
type List []Value

func (List) value() {}

// Values is a string-keyed bag of values: the payload for inserts and
// updates, and the shape of a serialized trace event.
// Use SortedKeys for deterministic iteration.
type Values map[string]Value

func (Values) value() {}

// SortedKeys returns the bag's keys in lexicographic byte order.
func (v Values) SortedKeys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of the bag. Nested Values and List
// elements are shared.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// FromAny converts a decoded YAML or JSON value into a Value. Floats are
// rejected; integers of any Go width collapse to Int.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		if val > 1<<63-1 {
			return nil, fmt.Errorf("integer out of int64 range: %d", val)
		}
		return Int(int64(val)), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are not allowed in payloads: %v", val)
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = conv
		}
		return list, nil
	case map[string]any:
		bag := make(Values, len(val))
		for k, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			bag[k] = conv
		}
		return bag, nil
	default:
		return nil, fmt.Errorf("unsupported payload type: %T", v)
	}
}

// FromMap converts a decoded map into a Values bag via FromAny.
func FromMap(m map[string]any) (Values, error) {
	bag := make(Values, len(m))
	for k, elem := range m {
		conv, err := FromAny(elem)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		bag[k] = conv
	}
	return bag, nil
}

// Native converts a Value back to the plain Go type a database driver
// expects as a bind parameter.
func Native(v Value) (any, error) {
	switch val := v.(type) {
	case Null:
		return nil, nil
	case String:
		return string(val), nil
	case Int:
		return int64(val), nil
	case Bool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("value type %T cannot be a bind parameter", v)
	}
}
