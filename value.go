// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sproto

import "fmt"

// Kind discriminates the tagged variant a Value holds.
type Kind int

const (
	KindInteger Kind = iota
	KindBoolean
	KindDouble
	KindString
	KindBinary
	KindStruct
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	case KindStruct:
		return "struct"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is the dynamically-typed record value the codec encodes and
// decodes: Integer(i64) | Boolean | Double(f64) | String | Binary([]byte) |
// Struct(field name -> Value) | Array([]Value), per spec §9 "Dynamic typing
// in the source vocabulary."
//
// A field absent from a Struct map is the "missing field" of spec §3/§4.3 —
// it is distinct from a present-but-empty Array or a zero-length
// String/Binary. A zero Value stored in the map is present: it is Int64(0).
type Value struct {
	Kind Kind

	Int    int64
	Bool   bool
	Double float64
	Str    string
	Bin    []byte
	Struct map[string]Value
	Array  []Value
}

// Int64 returns an integer Value.
func Int64(v int64) Value { return Value{Kind: KindInteger, Int: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{Kind: KindBoolean, Bool: v} }

// Float64 returns a double Value.
func Float64(v float64) Value { return Value{Kind: KindDouble, Double: v} }

// String returns a UTF-8 string Value.
func String(v string) Value { return Value{Kind: KindString, Str: v} }

// Binary returns an opaque-bytes Value.
func Binary(v []byte) Value { return Value{Kind: KindBinary, Bin: v} }

// StructOf returns a nested-struct Value from its field map.
func StructOf(fields map[string]Value) Value {
	return Value{Kind: KindStruct, Struct: fields}
}

// ArrayOf returns an array Value. A nil elems is normalised to an empty
// slice, so ArrayOf(nil) and ArrayOf([]Value{}) both represent a
// present-but-empty array, distinct from a field that is absent entirely.
func ArrayOf(elems []Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{Kind: KindArray, Array: elems}
}

// IsZero reports whether v is the zero Value (KindInteger with Int==0),
// which is indistinguishable from Int64(0); callers that need to
// distinguish "absent" from "zero" must test map membership instead.
func (v Value) IsZero() bool {
	return v.Kind == KindInteger && v.Int == 0
}
