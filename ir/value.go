// Package ir defines the compiled instruction set produced by the compiler
// (package compile) and consumed by the engine: constants, tool definitions,
// define bodies, and bridges, plus the structured value model wires carry at
// request time.
package ir

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
)

// ValueKind identifies the concrete shape held by a Value.
type ValueKind int

const (
	// KindNull represents the JSON null / absent value.
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	// KindList represents an ordered sequence of values.
	KindList
	// KindMap represents a mapping from string keys to values. Key order is
	// preserved for deterministic serialization.
	KindMap
)

// Value is the tagged union of structured values flowing through wires:
// mappings, ordered sequences, and scalars, per the engine's wire-format
// contract. It intentionally mirrors encoding/json's decoded shapes so tool
// functions can exchange it with encoding/json at the boundary, and mirrors
// structpb.Value so it can cross a gRPC boundary without a bespoke schema.
type Value struct {
	Kind ValueKind
	Bool bool
	Num  float64
	Str  string
	List []Value
	// Map holds keys in MapKeys order; Map itself is unordered storage.
	Map     map[string]Value
	MapKeys []string
}

// Null is the canonical null value.
var Null = Value{Kind: KindNull}

// IsNullOrUndefined reports whether v represents the absence of a value, the
// condition that triggers null_fallback / "||" coalescing.
func (v Value) IsNullOrUndefined() bool {
	return v.Kind == KindNull
}

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// NumberValue wraps a float64.
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// ListValue wraps an ordered sequence.
func ListValue(items []Value) Value { return Value{Kind: KindList, List: items} }

// MapValue builds a mapping preserving the given key order.
func MapValue(keys []string, m map[string]Value) Value {
	return Value{Kind: KindMap, Map: m, MapKeys: keys}
}

// Get performs a single-segment field or numeric-index access used while
// walking a NodeRef.Path. A numeric segment against a KindList indexes it; a
// numeric segment against a KindMap is treated as a string key (so that the
// "digit-only strings mean array indices" rule in NodeRef.Path only applies
// to lists, matching the compiler's ArrayIndexOnTarget rejection of authored
// indices on wire targets while still letting engine-synthesized element
// paths address list items read from tool output).
func (v Value) Get(segment string) (Value, bool) {
	switch v.Kind {
	case KindMap:
		child, ok := v.Map[segment]
		return child, ok
	case KindList:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= len(v.List) {
			return Null, false
		}
		return v.List[idx], true
	default:
		return Null, false
	}
}

// Walk follows a dotted path, returning the terminal value. A numeric segment
// traversing a list indexes it; walking through a non-indexable segment stops
// and returns (Null, false).
func (v Value) Walk(path []string) (Value, bool) {
	cur := v
	for _, seg := range path {
		next, ok := cur.Get(seg)
		if !ok {
			return Null, false
		}
		cur = next
	}
	return cur, true
}

// FromJSON decodes arbitrary JSON-decoded Go data (as produced by
// encoding/json.Unmarshal into `any`) into a Value.
func FromJSON(data any) Value {
	switch t := data.(type) {
	case nil:
		return Null
	case bool:
		return BoolValue(t)
	case float64:
		return NumberValue(t)
	case json.Number:
		f, _ := t.Float64()
		return NumberValue(f)
	case string:
		return StringValue(t)
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = FromJSON(e)
		}
		return ListValue(items)
	case map[string]any:
		keys := make([]string, 0, len(t))
		m := make(map[string]Value, len(t))
		for k, e := range t {
			keys = append(keys, k)
			m[k] = FromJSON(e)
		}
		sort.Strings(keys)
		return MapValue(keys, m)
	default:
		return Null
	}
}

// ParseJSONText decodes a JSON literal (as stored in ConstDef.JSONText or a
// wire's constant Value) into a Value.
func ParseJSONText(text string) (Value, error) {
	var data any
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return Null, fmt.Errorf("invalid json literal %q: %w", text, err)
	}
	return FromJSON(data), nil
}

// ToJSON converts a Value back into plain Go data suitable for
// encoding/json.Marshal.
func (v Value) ToJSON() any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num
	case KindString:
		return v.Str
	case KindList:
		out := make([]any, len(v.List))
		for i, e := range v.List {
			out[i] = e.ToJSON()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.Map))
		for k, e := range v.Map {
			out[k] = e.ToJSON()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToJSON())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = FromJSON(raw)
	return nil
}

// ToStruct converts a Value into a structpb.Value, giving the engine a
// protobuf-native wire representation for the gRPC front door and for
// trace payloads published onto a Redis stream.
func (v Value) ToStruct() (*structpb.Value, error) {
	return structpb.NewValue(v.ToJSON())
}

// FromStruct converts a structpb.Value back into a Value.
func FromStruct(pv *structpb.Value) Value {
	if pv == nil {
		return Null
	}
	return FromJSON(pv.AsInterface())
}

