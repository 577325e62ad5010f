// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package codec encodes and decodes sproto.Value records against a
// schema.Type, per spec §4.3/§4.4. It is the schema-aware layer built on
// top of the root package's generic struct primitive: every field's wire
// treatment (inline vs data-area integer, boolean, double, string/binary,
// nested struct, array) is decided here by consulting the field's
// schema.FieldDescriptor.
package codec

import (
	"fmt"
	"math"

	"github.com/luxfi/sproto"
	"github.com/luxfi/sproto/schema"
)

// Encode renders v, which must be a sproto.KindStruct Value, as the wire
// bytes for type t.
func Encode(t *schema.Type, v sproto.Value) ([]byte, error) {
	return encodeStruct(t, v, 0)
}

func encodeStruct(t *schema.Type, v sproto.Value, depth int) ([]byte, error) {
	if depth > sproto.MaxDepth {
		return nil, sproto.ErrTooDeep
	}
	if v.Kind != sproto.KindStruct {
		return nil, fmt.Errorf("%w: expected struct, got %s", sproto.ErrTypeMismatch, v.Kind)
	}

	raw := make([]sproto.RawField, 0, len(t.Fields))
	for _, f := range t.Fields {
		fv, present := v.Struct[f.Name]
		if !present {
			continue
		}
		rf, err := encodeField(f, fv, depth)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		rf.Tag = f.Tag
		raw = append(raw, rf)
	}

	w := sproto.NewWriter(32)
	if err := sproto.EncodeStructFields(w, raw); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func encodeField(f *schema.FieldDescriptor, v sproto.Value, depth int) (sproto.RawField, error) {
	if f.IsArray {
		if v.Kind != sproto.KindArray {
			return sproto.RawField{}, fmt.Errorf("%w: expected array, got %s", sproto.ErrTypeMismatch, v.Kind)
		}
		blob, err := encodeArrayBody(f, v.Array, depth)
		if err != nil {
			return sproto.RawField{}, err
		}
		return sproto.RawField{Blob: blob}, nil
	}

	switch f.Kind {
	case schema.KindInteger:
		raw, err := scalarIntRaw(f, v)
		if err != nil {
			return sproto.RawField{}, err
		}
		return encodeIntegerRaw(raw), nil

	case schema.KindBoolean:
		if v.Kind != sproto.KindBoolean {
			return sproto.RawField{}, fmt.Errorf("%w: expected boolean, got %s", sproto.ErrTypeMismatch, v.Kind)
		}
		val := int64(0)
		if v.Bool {
			val = 1
		}
		return sproto.RawField{Inline: true, Value: val}, nil

	case schema.KindDouble:
		if v.Kind != sproto.KindDouble {
			return sproto.RawField{}, fmt.Errorf("%w: expected double, got %s", sproto.ErrTypeMismatch, v.Kind)
		}
		buf := make([]byte, 8)
		putFloat64(buf, v.Double)
		return sproto.RawField{Blob: buf}, nil

	case schema.KindString:
		if f.Binary() {
			if v.Kind != sproto.KindBinary {
				return sproto.RawField{}, fmt.Errorf("%w: expected binary, got %s", sproto.ErrTypeMismatch, v.Kind)
			}
			return sproto.RawField{Blob: v.Bin}, nil
		}
		if v.Kind != sproto.KindString {
			return sproto.RawField{}, fmt.Errorf("%w: expected string, got %s", sproto.ErrTypeMismatch, v.Kind)
		}
		return sproto.RawField{Blob: []byte(v.Str)}, nil

	case schema.KindStruct:
		if v.Kind != sproto.KindStruct {
			return sproto.RawField{}, fmt.Errorf("%w: expected struct, got %s", sproto.ErrTypeMismatch, v.Kind)
		}
		nested, err := encodeStruct(f.SubType, v, depth+1)
		if err != nil {
			return sproto.RawField{}, err
		}
		return sproto.RawField{Blob: nested}, nil

	default:
		return sproto.RawField{}, fmt.Errorf("%w: unhandled field kind %v", sproto.ErrMalformedSchema, f.Kind)
	}
}

// scalarIntRaw converts an application Value to the wire integer for a
// scalar (non-array) KindInteger field, applying fixed-point scaling per
// spec §3 "Fixed-point integers."
func scalarIntRaw(f *schema.FieldDescriptor, v sproto.Value) (int64, error) {
	scale := f.Scale()
	if scale != 1 {
		var real float64
		switch v.Kind {
		case sproto.KindDouble:
			real = v.Double
		case sproto.KindInteger:
			real = float64(v.Int)
		default:
			return 0, fmt.Errorf("%w: fixed-point field requires a number, got %s", sproto.ErrTypeMismatch, v.Kind)
		}
		return roundHalfAwayFromZero(real * float64(scale)), nil
	}
	if v.Kind != sproto.KindInteger {
		return 0, fmt.Errorf("%w: expected integer, got %s", sproto.ErrTypeMismatch, v.Kind)
	}
	return v.Int, nil
}

func roundHalfAwayFromZero(x float64) int64 {
	if x >= 0 {
		return int64(math.Floor(x + 0.5))
	}
	return int64(math.Ceil(x - 0.5))
}

// fitsInt32SignExtend reports whether raw round-trips through a signed
// 32-bit truncation, i.e. its high 33 bits are all-0 or all-1.
func fitsInt32SignExtend(raw int64) bool {
	return raw == int64(int32(raw))
}

// encodeIntegerRaw chooses inline vs 4-byte vs 8-byte representation for a
// wire integer, per spec §4.3 "Integer fields."
func encodeIntegerRaw(raw int64) sproto.RawField {
	if raw >= 0 && raw <= sproto.MaxInline {
		return sproto.RawField{Inline: true, Value: raw}
	}
	if fitsInt32SignExtend(raw) {
		buf := make([]byte, 4)
		putInt32(buf, int32(raw))
		return sproto.RawField{Blob: buf}
	}
	buf := make([]byte, 8)
	putInt64(buf, raw)
	return sproto.RawField{Blob: buf}
}

// encodeArrayBody renders the data-area body for an array field, per spec
// §4.3 "Array fields." Each element kind has its own body shape; a nil or
// empty elems always yields an empty blob (the outer length prefix alone
// signals a present-but-empty array).
func encodeArrayBody(f *schema.FieldDescriptor, elems []sproto.Value, depth int) ([]byte, error) {
	if len(elems) == 0 {
		return []byte{}, nil
	}

	switch f.Kind {
	case schema.KindInteger:
		return encodeIntegerArray(f, elems)
	case schema.KindBoolean:
		return encodeBooleanArray(elems)
	case schema.KindDouble:
		return encodeDoubleArray(elems)
	case schema.KindString:
		return encodeStringArray(f, elems)
	case schema.KindStruct:
		return encodeStructArray(f, elems, depth)
	default:
		return nil, fmt.Errorf("%w: unhandled array element kind %v", sproto.ErrMalformedSchema, f.Kind)
	}
}

// encodeIntegerArray writes a width:u8 byte followed by each element at a
// uniform width, promoting every element to 8 bytes if any one of them
// doesn't fit in a sign-extended 32-bit slot, per spec §4.3/§9 "Integer
// array promotion."
func encodeIntegerArray(f *schema.FieldDescriptor, elems []sproto.Value) ([]byte, error) {
	vals := make([]int64, len(elems))
	for i, e := range elems {
		raw, err := scalarIntRaw(f, e)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		vals[i] = raw
	}

	width := 4
	for _, v := range vals {
		if !fitsInt32SignExtend(v) {
			width = 8
			break
		}
	}

	buf := make([]byte, 1+width*len(vals))
	buf[0] = byte(width)
	for i, v := range vals {
		off := 1 + i*width
		if width == 4 {
			putInt32(buf[off:off+4], int32(v))
		} else {
			putInt64(buf[off:off+8], v)
		}
	}
	return buf, nil
}

func encodeBooleanArray(elems []sproto.Value) ([]byte, error) {
	buf := make([]byte, len(elems))
	for i, e := range elems {
		if e.Kind != sproto.KindBoolean {
			return nil, fmt.Errorf("%w: element %d: expected boolean, got %s", sproto.ErrTypeMismatch, i, e.Kind)
		}
		if e.Bool {
			buf[i] = 1
		}
	}
	return buf, nil
}

func encodeDoubleArray(elems []sproto.Value) ([]byte, error) {
	buf := make([]byte, 8*len(elems))
	for i, e := range elems {
		if e.Kind != sproto.KindDouble {
			return nil, fmt.Errorf("%w: element %d: expected double, got %s", sproto.ErrTypeMismatch, i, e.Kind)
		}
		putFloat64(buf[i*8:i*8+8], e.Double)
	}
	return buf, nil
}

// encodeStringArray and encodeStructArray share the "sequence of
// len:u32|bytes children" body shape of spec §4.3 "Struct/string array
// body," since neither element kind has a fixed wire size.
func encodeStringArray(f *schema.FieldDescriptor, elems []sproto.Value) ([]byte, error) {
	w := sproto.NewWriter(len(elems) * 8)
	for i, e := range elems {
		var b []byte
		if f.Binary() {
			if e.Kind != sproto.KindBinary {
				return nil, fmt.Errorf("%w: element %d: expected binary, got %s", sproto.ErrTypeMismatch, i, e.Kind)
			}
			b = e.Bin
		} else {
			if e.Kind != sproto.KindString {
				return nil, fmt.Errorf("%w: element %d: expected string, got %s", sproto.ErrTypeMismatch, i, e.Kind)
			}
			b = []byte(e.Str)
		}
		w.LenPrefixed(b)
	}
	return w.Bytes(), nil
}

func encodeStructArray(f *schema.FieldDescriptor, elems []sproto.Value, depth int) ([]byte, error) {
	w := sproto.NewWriter(len(elems) * 16)
	for i, e := range elems {
		if e.Kind != sproto.KindStruct {
			return nil, fmt.Errorf("%w: element %d: expected struct, got %s", sproto.ErrTypeMismatch, i, e.Kind)
		}
		nested, err := encodeStruct(f.SubType, e, depth+1)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		w.LenPrefixed(nested)
	}
	return w.Bytes(), nil
}
