// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/luxfi/sproto"
	"github.com/luxfi/sproto/codec"
	"github.com/luxfi/sproto/schema"
)

// field builds a FieldDescriptor with no main-index key (Key -1). typeOf
// builds a Type with Base -1 (binary-search lookup), which is always
// correct regardless of tag density.
func field(tag int, kind schema.FieldKind, name string) *schema.FieldDescriptor {
	return &schema.FieldDescriptor{Tag: tag, Kind: kind, Name: name, Key: -1}
}

func typeOf(name string, fields ...*schema.FieldDescriptor) *schema.Type {
	return &schema.Type{Name: name, Fields: fields, Base: -1}
}

func roundTrip(t *testing.T, ty *schema.Type, v sproto.Value) sproto.Value {
	t.Helper()
	data, err := codec.Encode(ty, v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := codec.Decode(ty, data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return got
}

func TestRoundTripScalars(t *testing.T) {
	p := field(0, schema.KindInteger, "a")
	b := field(1, schema.KindBoolean, "b")
	d := field(2, schema.KindDouble, "c")
	s := field(3, schema.KindString, "d")
	bin := field(4, schema.KindString, "e")
	bin.Extra = 1
	ty := typeOf("P", p, b, d, s, bin)

	in := sproto.StructOf(map[string]sproto.Value{
		"a": sproto.Int64(-1),
		"b": sproto.Bool(true),
		"c": sproto.Float64(3.5),
		"d": sproto.String("hello"),
		"e": sproto.Binary([]byte{0xde, 0xad, 0xbe, 0xef}),
	})

	got := roundTrip(t, ty, in)
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestIntegerWidthSelection(t *testing.T) {
	f := field(0, schema.KindInteger, "a")
	ty := typeOf("P", f)

	cases := []int64{0, sproto.MaxInline, sproto.MaxInline + 1, -1, 1 << 40, -(1 << 40)}
	for _, want := range cases {
		in := sproto.StructOf(map[string]sproto.Value{"a": sproto.Int64(want)})
		got := roundTrip(t, ty, in)
		if got.Struct["a"].Int != want {
			t.Errorf("integer %d round-tripped as %d", want, got.Struct["a"].Int)
		}
	}
}

func TestFixedPointScaling(t *testing.T) {
	f := field(0, schema.KindInteger, "price")
	f.Extra = 2 // scale 100
	ty := typeOf("P", f)

	in := sproto.StructOf(map[string]sproto.Value{"price": sproto.Float64(19.99)})
	data, err := codec.Encode(ty, in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := codec.Decode(ty, data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Struct["price"].Double != 19.99 {
		t.Errorf("price = %v, want 19.99", got.Struct["price"].Double)
	}
}

func TestNestedStruct(t *testing.T) {
	inner := typeOf("Inner", field(0, schema.KindInteger, "x"))
	outerField := field(0, schema.KindStruct, "inner")
	outerField.SubType = inner
	outer := typeOf("Outer", outerField)

	in := sproto.StructOf(map[string]sproto.Value{
		"inner": sproto.StructOf(map[string]sproto.Value{"x": sproto.Int64(42)}),
	})
	got := roundTrip(t, outer, in)
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestIntegerArrayPromotion(t *testing.T) {
	f := field(0, schema.KindInteger, "xs")
	f.IsArray = true
	ty := typeOf("P", f)

	in := sproto.StructOf(map[string]sproto.Value{
		"xs": sproto.ArrayOf([]sproto.Value{sproto.Int64(1), sproto.Int64(2), sproto.Int64(1 << 40)}),
	})
	data, err := codec.Encode(ty, in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// width byte must be 8 because the third element forces promotion.
	structBytes, _, err := sproto.DecodeStructFields(data)
	if err != nil {
		t.Fatalf("DecodeStructFields: %v", err)
	}
	if width := structBytes[0].Blob[0]; width != 8 {
		t.Fatalf("width byte = %d, want 8", width)
	}

	got, err := codec.Decode(ty, data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestArrayKinds(t *testing.T) {
	boolF := field(0, schema.KindBoolean, "bs")
	boolF.IsArray = true
	dblF := field(1, schema.KindDouble, "ds")
	dblF.IsArray = true
	strF := field(2, schema.KindString, "ss")
	strF.IsArray = true
	ty := typeOf("P", boolF, dblF, strF)

	in := sproto.StructOf(map[string]sproto.Value{
		"bs": sproto.ArrayOf([]sproto.Value{sproto.Bool(true), sproto.Bool(false), sproto.Bool(true)}),
		"ds": sproto.ArrayOf([]sproto.Value{sproto.Float64(1.5), sproto.Float64(-2.25)}),
		"ss": sproto.ArrayOf([]sproto.Value{sproto.String("a"), sproto.String("bc")}),
	})
	got := roundTrip(t, ty, in)
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStructArray(t *testing.T) {
	elem := typeOf("Elem", field(0, schema.KindInteger, "n"))
	f := field(0, schema.KindStruct, "elems")
	f.SubType = elem
	f.IsArray = true
	ty := typeOf("P", f)

	in := sproto.StructOf(map[string]sproto.Value{
		"elems": sproto.ArrayOf([]sproto.Value{
			sproto.StructOf(map[string]sproto.Value{"n": sproto.Int64(1)}),
			sproto.StructOf(map[string]sproto.Value{"n": sproto.Int64(2)}),
		}),
	})
	got := roundTrip(t, ty, in)
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyArrayIsPresentButEmpty(t *testing.T) {
	f := field(0, schema.KindInteger, "xs")
	f.IsArray = true
	ty := typeOf("P", f)

	in := sproto.StructOf(map[string]sproto.Value{"xs": sproto.ArrayOf(nil)})
	got := roundTrip(t, ty, in)
	if got.Struct["xs"].Kind != sproto.KindArray || len(got.Struct["xs"].Array) != 0 {
		t.Fatalf("got %+v, want present empty array", got.Struct["xs"])
	}
}

func TestMissingFieldStaysAbsent(t *testing.T) {
	a := field(0, schema.KindInteger, "a")
	b := field(1, schema.KindInteger, "b")
	ty := typeOf("P", a, b)

	in := sproto.StructOf(map[string]sproto.Value{"a": sproto.Int64(1)})
	got := roundTrip(t, ty, in)
	if _, present := got.Struct["b"]; present {
		t.Fatalf("field b should be absent, got %+v", got.Struct["b"])
	}
}

func TestUnknownFieldSkippedOnDecode(t *testing.T) {
	wide := typeOf("P", field(0, schema.KindInteger, "a"), field(1, schema.KindString, "b"))
	narrow := typeOf("P", field(0, schema.KindInteger, "a"))

	in := sproto.StructOf(map[string]sproto.Value{
		"a": sproto.Int64(7),
		"b": sproto.String("future field"),
	})
	data, err := codec.Encode(wide, in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := codec.Decode(narrow, data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Struct["a"].Int != 7 {
		t.Errorf("a = %d, want 7", got.Struct["a"].Int)
	}
	if _, present := got.Struct["b"]; present {
		t.Errorf("unknown field b should not appear in decoded struct")
	}
}

func TestTypeMismatch(t *testing.T) {
	f := field(0, schema.KindInteger, "a")
	ty := typeOf("P", f)

	in := sproto.StructOf(map[string]sproto.Value{"a": sproto.String("not an integer")})
	_, err := codec.Encode(ty, in)
	if !errors.Is(err, sproto.ErrTypeMismatch) {
		t.Fatalf("Encode error = %v, want ErrTypeMismatch", err)
	}
}

func TestRecursionDepthCap(t *testing.T) {
	// Codec must cap depth against a pathologically deep struct chain
	// rather than recurse unbounded; this builds a non-cyclic chain of
	// MaxDepth+5 wrapper types by hand.
	var chain *schema.Type
	leaf := typeOf("Leaf", field(0, schema.KindInteger, "n"))
	chain = leaf
	v := sproto.StructOf(map[string]sproto.Value{"n": sproto.Int64(0)})
	for i := 0; i < sproto.MaxDepth+5; i++ {
		f := field(0, schema.KindStruct, "inner")
		f.SubType = chain
		next := typeOf("Wrap", f)
		v = sproto.StructOf(map[string]sproto.Value{"inner": v})
		chain = next
	}

	_, err := codec.Encode(chain, v)
	if !errors.Is(err, sproto.ErrTooDeep) {
		t.Fatalf("Encode error = %v, want ErrTooDeep", err)
	}
}
