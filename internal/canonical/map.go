package canonical

import (
	"fmt"
	"sort"
)

// Pair is one entry of a Map.
type Pair struct {
	Key   string
	Value any
}

// Map is an immutable string-keyed mapping whose keys are always in
// ascending order. The zero value is an empty map. Maps are built with
// NewMap or Canonicalize and are safe to share between goroutines.
type Map struct {
	pairs []Pair
}

// NewMap returns the canonical form of m.
func NewMap(m map[string]any) Map {
	return Canonicalize(m).(Map)
}

// Len returns the number of entries.
func (m Map) Len() int { return len(m.pairs) }

// Keys returns the keys in order.
func (m Map) Keys() []string {
	keys := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		keys[i] = p.Key
	}
	return keys
}

// Get returns the value stored under key. Sequences are returned as copies.
func (m Map) Get(key string) (any, bool) {
	i := sort.Search(len(m.pairs), func(i int) bool { return m.pairs[i].Key >= key })
	if i < len(m.pairs) && m.pairs[i].Key == key {
		return clone(m.pairs[i].Value), true
	}
	return nil, false
}

// Range calls fn for each entry in key order until fn returns false.
func (m Map) Range(fn func(key string, value any) bool) {
	for _, p := range m.pairs {
		if !fn(p.Key, clone(p.Value)) {
			return
		}
	}
}

// String returns the stable serialization of m.
func (m Map) String() string { return StableSerialize(m) }

// MarshalJSON encodes m with the canonical codec.
func (m Map) MarshalJSON() ([]byte, error) {
	return Marshal(m)
}

// UnmarshalJSON decodes a JSON object (or null) into m.
func (m *Map) UnmarshalJSON(data []byte) error {
	v, err := Unmarshal(data)
	if err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*m = Map{}
	case Map:
		*m = x
	default:
		return fmt.Errorf("canonical: cannot decode %T into Map", v)
	}
	return nil
}

// clone copies sequences so callers can't reach the backing arrays of a Map.
// Nested Maps are immutable and returned as-is.
func clone(v any) any {
	s, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]any, len(s))
	for i, item := range s {
		out[i] = clone(item)
	}
	return out
}
