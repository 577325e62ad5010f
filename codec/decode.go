// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"fmt"

	"github.com/luxfi/sproto"
	"github.com/luxfi/sproto/schema"
)

// Decode parses data as a record of type t into a sproto.KindStruct Value.
// Fields whose tag is absent from t (forward-compatible payloads written
// against a newer schema) are skipped, per spec §4.4 "Unknown fields."
func Decode(t *schema.Type, data []byte) (sproto.Value, error) {
	v, _, err := decodeStruct(t, data, 0)
	return v, err
}

// DecodePrefix decodes a record of type t from the start of data and also
// reports how many bytes it consumed, so callers that concatenate a record
// with a following payload (the RPC envelope, per spec §4.6) can slice the
// remainder without a separate length prefix.
func DecodePrefix(t *schema.Type, data []byte) (sproto.Value, int, error) {
	return decodeStruct(t, data, 0)
}

func decodeStruct(t *schema.Type, data []byte, depth int) (sproto.Value, int, error) {
	if depth > sproto.MaxDepth {
		return sproto.Value{}, 0, sproto.ErrTooDeep
	}

	rawFields, consumed, err := sproto.DecodeStructFields(data)
	if err != nil {
		return sproto.Value{}, 0, err
	}

	fields := make(map[string]sproto.Value, len(rawFields))
	for _, rf := range rawFields {
		fd, ok := t.Field(rf.Tag)
		if !ok {
			continue
		}
		v, err := decodeField(fd, rf, depth)
		if err != nil {
			return sproto.Value{}, 0, fmt.Errorf("field %q: %w", fd.Name, err)
		}
		fields[fd.Name] = v
	}
	return sproto.StructOf(fields), consumed, nil
}

func decodeField(fd *schema.FieldDescriptor, rf sproto.RawField, depth int) (sproto.Value, error) {
	if fd.IsArray {
		if rf.Inline {
			return sproto.Value{}, fmt.Errorf("%w: array field carried inline", sproto.ErrMalformedPayload)
		}
		return decodeArrayBody(fd, rf.Blob, depth)
	}

	switch fd.Kind {
	case schema.KindInteger:
		var raw int64
		var err error
		if rf.Inline {
			raw = rf.Value
		} else {
			raw, err = decodeIntegerBlob(rf.Blob)
			if err != nil {
				return sproto.Value{}, err
			}
		}
		if fd.Extra > 0 {
			return sproto.Float64(float64(raw) / float64(fd.Scale())), nil
		}
		return sproto.Int64(raw), nil

	case schema.KindBoolean:
		if !rf.Inline {
			return sproto.Value{}, fmt.Errorf("%w: boolean field carried out-of-line", sproto.ErrMalformedPayload)
		}
		return sproto.Bool(rf.Value != 0), nil

	case schema.KindDouble:
		if rf.Inline || len(rf.Blob) != 8 {
			return sproto.Value{}, fmt.Errorf("%w: double field needs an 8-byte blob, got inline=%v len=%d", sproto.ErrMalformedPayload, rf.Inline, len(rf.Blob))
		}
		return sproto.Float64(getFloat64(rf.Blob)), nil

	case schema.KindString:
		if rf.Inline {
			return sproto.Value{}, fmt.Errorf("%w: string field carried inline", sproto.ErrMalformedPayload)
		}
		if fd.Binary() {
			return sproto.Binary(append([]byte(nil), rf.Blob...)), nil
		}
		return sproto.String(string(rf.Blob)), nil

	case schema.KindStruct:
		if rf.Inline {
			return sproto.Value{}, fmt.Errorf("%w: struct field carried inline", sproto.ErrMalformedPayload)
		}
		v, _, err := decodeStruct(fd.SubType, rf.Blob, depth+1)
		return v, err

	default:
		return sproto.Value{}, fmt.Errorf("%w: unhandled field kind %v", sproto.ErrMalformedSchema, fd.Kind)
	}
}

// decodeIntegerBlob reconstructs a signed 64-bit value from a 4- or 8-byte
// data-area blob, sign-extending the 32-bit case.
func decodeIntegerBlob(blob []byte) (int64, error) {
	switch len(blob) {
	case 4:
		return int64(getInt32(blob)), nil
	case 8:
		return getInt64(blob), nil
	default:
		return 0, fmt.Errorf("%w: integer blob has inconsistent width %d", sproto.ErrMalformedPayload, len(blob))
	}
}

func decodeArrayBody(fd *schema.FieldDescriptor, blob []byte, depth int) (sproto.Value, error) {
	if len(blob) == 0 {
		return sproto.ArrayOf(nil), nil
	}

	switch fd.Kind {
	case schema.KindInteger:
		return decodeIntegerArray(fd, blob)
	case schema.KindBoolean:
		return decodeBooleanArray(blob)
	case schema.KindDouble:
		return decodeDoubleArray(blob)
	case schema.KindString:
		return decodeStringArray(fd, blob)
	case schema.KindStruct:
		return decodeStructArray(fd, blob, depth)
	default:
		return sproto.Value{}, fmt.Errorf("%w: unhandled array element kind %v", sproto.ErrMalformedSchema, fd.Kind)
	}
}

func decodeIntegerArray(fd *schema.FieldDescriptor, blob []byte) (sproto.Value, error) {
	width := int(blob[0])
	if width != 4 && width != 8 {
		return sproto.Value{}, fmt.Errorf("%w: integer array width byte %d not 4 or 8", sproto.ErrMalformedPayload, width)
	}
	rest := blob[1:]
	if len(rest)%width != 0 {
		return sproto.Value{}, fmt.Errorf("%w: integer array body length %d not a multiple of width %d", sproto.ErrMalformedPayload, len(rest), width)
	}
	n := len(rest) / width
	scale := fd.Scale()
	vals := make([]sproto.Value, n)
	for i := 0; i < n; i++ {
		off := i * width
		var raw int64
		if width == 4 {
			raw = int64(getInt32(rest[off : off+4]))
		} else {
			raw = getInt64(rest[off : off+8])
		}
		if fd.Extra > 0 {
			vals[i] = sproto.Float64(float64(raw) / float64(scale))
		} else {
			vals[i] = sproto.Int64(raw)
		}
	}
	return sproto.ArrayOf(vals), nil
}

func decodeBooleanArray(blob []byte) (sproto.Value, error) {
	vals := make([]sproto.Value, len(blob))
	for i, b := range blob {
		if b > 1 {
			return sproto.Value{}, fmt.Errorf("%w: boolean array element %d has value %d", sproto.ErrMalformedPayload, i, b)
		}
		vals[i] = sproto.Bool(b == 1)
	}
	return sproto.ArrayOf(vals), nil
}

func decodeDoubleArray(blob []byte) (sproto.Value, error) {
	if len(blob)%8 != 0 {
		return sproto.Value{}, fmt.Errorf("%w: double array body length %d not a multiple of 8", sproto.ErrMalformedPayload, len(blob))
	}
	n := len(blob) / 8
	vals := make([]sproto.Value, n)
	for i := 0; i < n; i++ {
		vals[i] = sproto.Float64(getFloat64(blob[i*8 : i*8+8]))
	}
	return sproto.ArrayOf(vals), nil
}

func decodeStringArray(fd *schema.FieldDescriptor, blob []byte) (sproto.Value, error) {
	r := sproto.NewReader(blob)
	var vals []sproto.Value
	for r.Len() > 0 {
		child, err := r.LenPrefixed()
		if err != nil {
			return sproto.Value{}, err
		}
		if fd.Binary() {
			vals = append(vals, sproto.Binary(append([]byte(nil), child...)))
		} else {
			vals = append(vals, sproto.String(string(child)))
		}
	}
	return sproto.ArrayOf(vals), nil
}

func decodeStructArray(fd *schema.FieldDescriptor, blob []byte, depth int) (sproto.Value, error) {
	r := sproto.NewReader(blob)
	var vals []sproto.Value
	for r.Len() > 0 {
		child, err := r.LenPrefixed()
		if err != nil {
			return sproto.Value{}, err
		}
		v, _, err := decodeStruct(fd.SubType, child, depth+1)
		if err != nil {
			return sproto.Value{}, err
		}
		vals = append(vals, v)
	}
	return sproto.ArrayOf(vals), nil
}
