// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package diag renders decoded sproto.Value trees as CBOR, for logging and
// ad-hoc inspection of records without a schema compiler or pretty-printer
// on hand. It is a debugging aid, not part of the wire format: nothing in
// schema, codec, pack, or rpc depends on it.
package diag

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/sproto"
)

// encMode is configured with Core Deterministic Encoding (RFC 8949 §4.2)
// so the same Value always renders to identical bytes.
var encMode cbor.EncMode

// decMode decodes any-typed CBOR maps as map[string]any, matching the
// string-keyed field maps sproto.Value.Struct uses.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("diag: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("diag: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal renders v as CBOR.
func Marshal(v sproto.Value) ([]byte, error) {
	return encMode.Marshal(toAny(v))
}

// Unmarshal parses CBOR data produced by Marshal back into a Value.
func Unmarshal(data []byte) (sproto.Value, error) {
	var a any
	if err := decMode.Unmarshal(data, &a); err != nil {
		return sproto.Value{}, err
	}
	return fromAny(a)
}

// Dump renders v as CBOR diagnostic notation (RFC 8949 §8) — a compact,
// human-readable text form suitable for log lines.
func Dump(v sproto.Value) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return cbor.Diagnose(data)
}

// toAny converts a Value into the plain Go value cbor.Marshal renders
// natively, recursively.
func toAny(v sproto.Value) any {
	switch v.Kind {
	case sproto.KindInteger:
		return v.Int
	case sproto.KindBoolean:
		return v.Bool
	case sproto.KindDouble:
		return v.Double
	case sproto.KindString:
		return v.Str
	case sproto.KindBinary:
		return v.Bin
	case sproto.KindStruct:
		m := make(map[string]any, len(v.Struct))
		for name, fv := range v.Struct {
			m[name] = toAny(fv)
		}
		return m
	case sproto.KindArray:
		a := make([]any, len(v.Array))
		for i, ev := range v.Array {
			a[i] = toAny(ev)
		}
		return a
	default:
		return nil
	}
}

// fromAny reconstructs a Value from CBOR-decoded data, dispatching on the
// concrete Go type the decoder produced. CBOR's native byte-string/text-
// string distinction round-trips as Binary vs String.
func fromAny(a any) (sproto.Value, error) {
	switch x := a.(type) {
	case int64:
		return sproto.Int64(x), nil
	case uint64:
		return sproto.Int64(int64(x)), nil
	case bool:
		return sproto.Bool(x), nil
	case float64:
		return sproto.Float64(x), nil
	case string:
		return sproto.String(x), nil
	case []byte:
		return sproto.Binary(x), nil
	case map[string]any:
		fields := make(map[string]sproto.Value, len(x))
		for name, raw := range x {
			fv, err := fromAny(raw)
			if err != nil {
				return sproto.Value{}, fmt.Errorf("field %q: %w", name, err)
			}
			fields[name] = fv
		}
		return sproto.StructOf(fields), nil
	case []any:
		elems := make([]sproto.Value, len(x))
		for i, raw := range x {
			ev, err := fromAny(raw)
			if err != nil {
				return sproto.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = ev
		}
		return sproto.ArrayOf(elems), nil
	case nil:
		return sproto.Value{}, nil
	default:
		return sproto.Value{}, fmt.Errorf("diag: unsupported decoded type %T", a)
	}
}
