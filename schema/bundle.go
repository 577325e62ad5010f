// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package schema

import (
	"fmt"

	"github.com/luxfi/sproto"
)

// Parse walks a precompiled bundle (spec §4.1, wire layout spec §6 "Bundle
// format") and returns the resulting Catalogue. The bundle is a single
// generic struct with at most two data-area fields — a types array at tag 0
// and a protocols array at tag 1 — each shaped "count:u32 | child[count]"
// where every child is a length-prefixed nested struct.
func Parse(bundle []byte) (*Catalogue, error) {
	fields, _, err := sproto.DecodeStructFields(bundle)
	if err != nil {
		return nil, fmt.Errorf("%w: bundle: %v", sproto.ErrMalformedSchema, err)
	}

	var typesBlob, protocolsBlob []byte
	haveTypes, haveProtocols := false, false
	for _, f := range fields {
		switch f.Tag {
		case 0:
			if f.Inline {
				return nil, fmt.Errorf("%w: bundle types field must be a data-area array", sproto.ErrMalformedSchema)
			}
			typesBlob, haveTypes = f.Blob, true
		case 1:
			if f.Inline {
				return nil, fmt.Errorf("%w: bundle protocols field must be a data-area array", sproto.ErrMalformedSchema)
			}
			protocolsBlob, haveProtocols = f.Blob, true
		default:
			return nil, fmt.Errorf("%w: bundle has unknown meta-tag %d", sproto.ErrMalformedSchema, f.Tag)
		}
	}

	var types []*Type
	if haveTypes {
		types, err = parseTypeArray(typesBlob)
		if err != nil {
			return nil, err
		}
	}

	var protocols []*Protocol
	if haveProtocols {
		protocols, err = parseProtocolArray(protocolsBlob, types)
		if err != nil {
			return nil, err
		}
	}

	return NewCatalogue(types, protocols), nil
}

// rawFieldDesc is a FieldDescriptor before subtype_ref indices have been
// resolved to *Type pointers — types may forward-reference types defined
// later in the bundle's type array, so resolution happens only once every
// Type shell exists.
type rawFieldDesc struct {
	tag          int
	kind         FieldKind
	name         string
	subTypeIndex int // -1 when not a struct field
	extra        int
	isArray      bool
	key          int
}

func parseTypeArray(blob []byte) ([]*Type, error) {
	r := sproto.NewReader(blob)
	count, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("%w: type array count: %v", sproto.ErrMalformedSchema, err)
	}

	names := make([]string, count)
	rawFields := make([][]rawFieldDesc, count)
	for i := range names {
		child, err := r.LenPrefixed()
		if err != nil {
			return nil, fmt.Errorf("%w: type child %d: %v", sproto.ErrMalformedSchema, i, err)
		}
		name, fields, err := parseTypeChild(child)
		if err != nil {
			return nil, fmt.Errorf("%w: type child %d (%s): %v", sproto.ErrMalformedSchema, i, name, err)
		}
		names[i] = name
		rawFields[i] = fields
	}

	types := make([]*Type, count)
	for i := range types {
		descs, err := resolveFieldOrder(rawFields[i])
		if err != nil {
			return nil, fmt.Errorf("%w: type %q: %v", sproto.ErrMalformedSchema, names[i], err)
		}
		types[i] = newType(names[i], descs)
	}

	// Resolve struct subtype_ref indices now that every Type shell exists,
	// rejecting a dangling or one-past-the-end index (spec §9 Open
	// Question i treats the latter as a bug, not a forward-compat escape
	// hatch).
	for _, t := range types {
		for _, f := range t.Fields {
			if f.Kind != KindStruct {
				continue
			}
			idx := f.subTypeIndex()
			if idx < 0 || idx >= len(types) {
				return nil, fmt.Errorf("%w: type %q field %q references out-of-range type index %d", sproto.ErrMalformedSchema, t.Name, f.Name, idx)
			}
			f.SubType = types[idx]
			f.Extra = 0
		}
	}

	return types, nil
}

// subTypeIndex reads back the unresolved subtype index that
// resolveFieldOrder stashes
// index inside the FieldDescriptor itself (in Extra, which KindStruct
// fields don't otherwise use) until the resolution pass above runs.
func (f *FieldDescriptor) subTypeIndex() int { return f.Extra }

func resolveFieldOrder(raw []rawFieldDesc) ([]*FieldDescriptor, error) {
	descs := make([]*FieldDescriptor, 0, len(raw))
	lastTag := -1
	for _, rf := range raw {
		if rf.tag <= lastTag {
			return nil, fmt.Errorf("%w: field tags are not strictly ascending (%d after %d)", sproto.ErrMalformedSchema, rf.tag, lastTag)
		}
		lastTag = rf.tag

		fd := &FieldDescriptor{
			Tag:     rf.tag,
			Kind:    rf.kind,
			Name:    rf.name,
			Key:     rf.key,
			IsArray: rf.isArray,
		}
		if rf.kind == KindStruct {
			fd.Extra = rf.subTypeIndex // stashed until parseTypeArray resolves SubType
		} else {
			fd.Extra = rf.extra
		}
		descs = append(descs, fd)
	}
	return descs, nil
}

func parseTypeChild(data []byte) (string, []rawFieldDesc, error) {
	fields, _, err := sproto.DecodeStructFields(data)
	if err != nil {
		return "", nil, err
	}

	var name string
	var raw []rawFieldDesc
	for _, f := range fields {
		switch f.Tag {
		case 0:
			if f.Inline {
				return "", nil, fmt.Errorf("%w: type name must be a string", sproto.ErrMalformedSchema)
			}
			name = string(f.Blob)
		case 1:
			if f.Inline {
				return "", nil, fmt.Errorf("%w: type field array must be a data-area array", sproto.ErrMalformedSchema)
			}
			raw, err = parseFieldArray(f.Blob)
			if err != nil {
				return "", nil, err
			}
		default:
			return "", nil, fmt.Errorf("%w: type has unknown meta-tag %d", sproto.ErrMalformedSchema, f.Tag)
		}
	}
	return name, raw, nil
}

func parseFieldArray(blob []byte) ([]rawFieldDesc, error) {
	r := sproto.NewReader(blob)
	count, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("%w: field array count: %v", sproto.ErrMalformedSchema, err)
	}
	out := make([]rawFieldDesc, count)
	for i := range out {
		child, err := r.LenPrefixed()
		if err != nil {
			return nil, fmt.Errorf("%w: field child %d: %v", sproto.ErrMalformedSchema, i, err)
		}
		rf, err := parseFieldChild(child)
		if err != nil {
			return nil, fmt.Errorf("%w: field child %d: %v", sproto.ErrMalformedSchema, i, err)
		}
		out[i] = rf
	}
	return out, nil
}

// parseFieldChild parses one field descriptor's meta-struct per spec §6
// "Field sub-schema": 0=name, 1=type-code, 2=subtype-id-or-extra,
// 3=field-tag, 4=is-array, 5=main-index key-tag. Meta-tag 1 is absent for
// struct fields — in that case meta-tag 2 carries the subtype_ref index
// instead of a fixed-point/binary-string extra value.
func parseFieldChild(data []byte) (rawFieldDesc, error) {
	fields, _, err := sproto.DecodeStructFields(data)
	if err != nil {
		return rawFieldDesc{}, err
	}

	rf := rawFieldDesc{subTypeIndex: -1, key: -1}
	haveTag, haveTypeCode, haveMeta2 := false, false, false
	var typeCode int
	var meta2 int64

	for _, f := range fields {
		switch f.Tag {
		case 0:
			if f.Inline {
				return rawFieldDesc{}, fmt.Errorf("%w: field name must be a string", sproto.ErrMalformedSchema)
			}
			rf.name = string(f.Blob)
		case 1:
			if !f.Inline {
				return rawFieldDesc{}, fmt.Errorf("%w: field type-code must be inline", sproto.ErrMalformedSchema)
			}
			typeCode, haveTypeCode = int(f.Value), true
		case 2:
			if !f.Inline {
				return rawFieldDesc{}, fmt.Errorf("%w: field subtype-id/extra must be inline", sproto.ErrMalformedSchema)
			}
			meta2, haveMeta2 = f.Value, true
		case 3:
			if !f.Inline {
				return rawFieldDesc{}, fmt.Errorf("%w: field-tag must be inline", sproto.ErrMalformedSchema)
			}
			rf.tag, haveTag = int(f.Value), true
		case 4:
			if !f.Inline {
				return rawFieldDesc{}, fmt.Errorf("%w: field is-array flag must be inline", sproto.ErrMalformedSchema)
			}
			rf.isArray = f.Value != 0
		case 5:
			if !f.Inline {
				return rawFieldDesc{}, fmt.Errorf("%w: field key-tag must be inline", sproto.ErrMalformedSchema)
			}
			rf.key = int(f.Value)
		default:
			return rawFieldDesc{}, fmt.Errorf("%w: field has unknown meta-tag %d", sproto.ErrMalformedSchema, f.Tag)
		}
	}

	if !haveTag {
		return rawFieldDesc{}, fmt.Errorf("%w: field missing field-tag (meta-tag 3)", sproto.ErrMalformedSchema)
	}

	if haveTypeCode {
		if typeCode < 0 || typeCode > int(KindDouble) {
			return rawFieldDesc{}, fmt.Errorf("%w: field has invalid type-code %d", sproto.ErrMalformedSchema, typeCode)
		}
		rf.kind = FieldKind(typeCode)
		if haveMeta2 {
			rf.extra = int(meta2)
		}
	} else {
		if !haveMeta2 {
			return rawFieldDesc{}, fmt.Errorf("%w: struct field missing subtype_ref", sproto.ErrMalformedSchema)
		}
		rf.kind = KindStruct
		rf.subTypeIndex = int(meta2)
	}

	return rf, nil
}

type rawProto struct {
	name        string
	tag         int
	requestIdx  int
	responseIdx int
	confirm     int
}

func parseProtocolArray(blob []byte, types []*Type) ([]*Protocol, error) {
	r := sproto.NewReader(blob)
	count, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("%w: protocol array count: %v", sproto.ErrMalformedSchema, err)
	}

	protocols := make([]*Protocol, count)
	lastTag := -1
	for i := range protocols {
		child, err := r.LenPrefixed()
		if err != nil {
			return nil, fmt.Errorf("%w: protocol child %d: %v", sproto.ErrMalformedSchema, i, err)
		}
		rp, err := parseProtocolChild(child)
		if err != nil {
			return nil, fmt.Errorf("%w: protocol child %d: %v", sproto.ErrMalformedSchema, i, err)
		}
		if rp.tag <= lastTag {
			return nil, fmt.Errorf("%w: protocol tags are not strictly ascending (%d after %d)", sproto.ErrMalformedSchema, rp.tag, lastTag)
		}
		lastTag = rp.tag

		p := &Protocol{Name: rp.name, Tag: rp.tag, Confirm: rp.confirm}
		if rp.requestIdx >= 0 {
			if rp.requestIdx >= len(types) {
				return nil, fmt.Errorf("%w: protocol %q request type index %d out of range", sproto.ErrMalformedSchema, rp.name, rp.requestIdx)
			}
			p.Request = types[rp.requestIdx]
		}
		if rp.responseIdx >= 0 {
			if rp.responseIdx >= len(types) {
				return nil, fmt.Errorf("%w: protocol %q response type index %d out of range", sproto.ErrMalformedSchema, rp.name, rp.responseIdx)
			}
			p.Response = types[rp.responseIdx]
		}
		protocols[i] = p
	}
	return protocols, nil
}

func parseProtocolChild(data []byte) (rawProto, error) {
	fields, _, err := sproto.DecodeStructFields(data)
	if err != nil {
		return rawProto{}, err
	}

	rp := rawProto{requestIdx: -1, responseIdx: -1}
	haveTag := false
	for _, f := range fields {
		switch f.Tag {
		case 0:
			if f.Inline {
				return rawProto{}, fmt.Errorf("%w: protocol name must be a string", sproto.ErrMalformedSchema)
			}
			rp.name = string(f.Blob)
		case 1:
			if !f.Inline {
				return rawProto{}, fmt.Errorf("%w: protocol tag must be inline", sproto.ErrMalformedSchema)
			}
			rp.tag, haveTag = int(f.Value), true
		case 2:
			if !f.Inline {
				return rawProto{}, fmt.Errorf("%w: protocol request type-id must be inline", sproto.ErrMalformedSchema)
			}
			rp.requestIdx = int(f.Value)
		case 3:
			if !f.Inline {
				return rawProto{}, fmt.Errorf("%w: protocol response type-id must be inline", sproto.ErrMalformedSchema)
			}
			rp.responseIdx = int(f.Value)
		case 4:
			if !f.Inline {
				return rawProto{}, fmt.Errorf("%w: protocol confirm flag must be inline", sproto.ErrMalformedSchema)
			}
			rp.confirm = int(f.Value)
		default:
			return rawProto{}, fmt.Errorf("%w: protocol has unknown meta-tag %d", sproto.ErrMalformedSchema, f.Tag)
		}
	}

	if !haveTag {
		return rawProto{}, fmt.Errorf("%w: protocol missing tag (meta-tag 1)", sproto.ErrMalformedSchema)
	}
	return rp, nil
}
