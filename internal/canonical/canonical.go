// Package canonical normalizes nested property values so that equal logical
// content always serializes to the same bytes.
//
// Canonical values are nil, bool, int64, float64, string, []any of canonical
// values, and Map. Canonicalize converts the loosely typed values produced by
// database drivers and JSON decoding into that closed set; anything it does not
// recognize is passed through unchanged and treated as an opaque scalar.
package canonical

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// TimeLayout is the ISO-8601 layout used for timestamps in properties.
// Trailing zeros of the fractional seconds are trimmed, and dropped entirely
// for whole seconds, and the offset is always written as +hh:mm. Strings are
// therefore not byte-equal to a fixed six-digit microsecond rendering such as
// "2025-01-01T00:00:00.000000+00:00", though both parse to the same instant.
const TimeLayout = "2006-01-02T15:04:05.999999-07:00"

// FormatTime renders t with TimeLayout.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// Canonicalize returns the canonical form of v. Mappings become a Map with
// keys sorted ascending, sequences become []any with their order preserved,
// and scalars are returned with their type stabilized. The input is never
// modified.
func Canonicalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case Map:
		return fromPairs(x.pairs)
	case map[string]any:
		pairs := make([]Pair, 0, len(x))
		for k, val := range x {
			pairs = append(pairs, Pair{Key: k, Value: val})
		}
		return fromPairs(pairs)
	case map[string]string:
		pairs := make([]Pair, 0, len(x))
		for k, val := range x {
			pairs = append(pairs, Pair{Key: k, Value: val})
		}
		return fromPairs(pairs)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Canonicalize(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Canonicalize(item)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = item
		}
		return out
	case []int:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = int64(item)
		}
		return out
	case []int64:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = item
		}
		return out
	case []float64:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = item
		}
		return out
	case bool, string, int64, float64:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return fromUint(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	case time.Time:
		return FormatTime(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return FormatTime(*x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return string(x)
	default:
		return v
	}
}

func fromUint(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

// fromPairs canonicalizes every value and sorts by key. Empty input yields the
// zero Map so that empty mappings compare equal regardless of origin.
func fromPairs(in []Pair) Map {
	if len(in) == 0 {
		return Map{}
	}
	pairs := make([]Pair, len(in))
	for i, p := range in {
		pairs[i] = Pair{Key: p.Key, Value: Canonicalize(p.Value)}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Key < pairs[j].Key
	})
	// Map inputs can't repeat keys, but a Map built from decoded pairs
	// might; the last occurrence wins.
	out := pairs[:0]
	for _, p := range pairs {
		if n := len(out); n > 0 && out[n-1].Key == p.Key {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return Map{pairs: out}
}
