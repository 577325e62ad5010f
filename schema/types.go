// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package schema parses a precompiled sproto bundle into an in-memory
// type/protocol catalogue (spec §4.1, §4.2) and exposes indexed lookup by
// name, id, or tag.
package schema

import "sort"

// FieldKind is the declared type of a FieldDescriptor, per spec §3.
type FieldKind int

const (
	KindInteger FieldKind = iota
	KindBoolean
	KindString
	KindDouble
	// KindStruct is never carried as an on-wire type-code; a field is
	// KindStruct iff its SubType is set (spec §3 invariant: "A field's
	// declared type is never STRUCT unless subtype_ref is set").
	KindStruct
)

func (k FieldKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "string"
	case KindDouble:
		return "double"
	case KindStruct:
		return "struct"
	default:
		return "unknown"
	}
}

// FieldDescriptor describes one field within a Type, per spec §3.
type FieldDescriptor struct {
	Tag  int
	Kind FieldKind
	Name string

	// SubType is the resolved nested type for KindStruct fields, nil
	// otherwise.
	SubType *Type

	// Key is the index tag used for main-index arrays of structs, or -1
	// if the field has none. Carried for round-trip fidelity; this
	// implementation decodes array-of-struct fields positionally only
	// (spec §9 Open Question iii — keyed-map decoding is an extension
	// this spec does not implement).
	Key int

	// Extra carries, depending on Kind: the decimal power k of the scale
	// 10^k for KindInteger fixed-point fields, or a non-zero binary-string
	// marker for KindString fields (non-zero means "opaque bytes, do not
	// UTF-8 decode").
	Extra int

	IsArray bool
}

// Binary reports whether a KindString field carries opaque bytes rather
// than UTF-8 text.
func (f *FieldDescriptor) Binary() bool {
	return f.Kind == KindString && f.Extra != 0
}

// Scale returns the fixed-point scaling factor (10^Extra) for a KindInteger
// field, or 1 if the field is not scaled.
func (f *FieldDescriptor) Scale() int64 {
	if f.Kind != KindInteger || f.Extra <= 0 {
		return 1
	}
	scale := int64(1)
	for i := 0; i < f.Extra; i++ {
		scale *= 10
	}
	return scale
}

// Type is a named record type: an ascending-tag-ordered field list plus the
// indexing strategy derived from whether those tags are dense, per spec §3.
type Type struct {
	Name   string
	Fields []*FieldDescriptor

	// Base is fields[0].Tag when the tag sequence is contiguous (every
	// integer from fields[0].Tag to fields[n-1].Tag present), enabling
	// direct indexing; otherwise -1, requiring binary search.
	Base int

	// MaxN is the effective slot count including implicit gaps
	// (fields[n-1].Tag + 1). The encoder does not read it: it sizes the
	// header from the fields actually present.
	MaxN int
}

// newType derives Base and MaxN from an ascending-tag-sorted field list.
func newType(name string, fields []*FieldDescriptor) *Type {
	t := &Type{Name: name, Fields: fields, Base: -1}
	if len(fields) == 0 {
		return t
	}
	t.MaxN = fields[len(fields)-1].Tag + 1

	dense := true
	for i, f := range fields {
		if f.Tag != fields[0].Tag+i {
			dense = false
			break
		}
	}
	if dense {
		t.Base = fields[0].Tag
	}
	return t
}

// Field looks up a field by tag, using direct indexing when the type's tags
// are dense and binary search otherwise (spec §4.2).
func (t *Type) Field(tag int) (*FieldDescriptor, bool) {
	if t.Base >= 0 {
		idx := tag - t.Base
		if idx < 0 || idx >= len(t.Fields) {
			return nil, false
		}
		return t.Fields[idx], true
	}
	i := sort.Search(len(t.Fields), func(i int) bool { return t.Fields[i].Tag >= tag })
	if i < len(t.Fields) && t.Fields[i].Tag == tag {
		return t.Fields[i], true
	}
	return nil, false
}

// Protocol is a named, tagged RPC contract: an optional request type, an
// optional response type, and a confirm flag, per spec §3.
type Protocol struct {
	Name     string
	Tag      int
	Request  *Type
	Response *Type
	Confirm  int
}

// Responded reports whether this protocol expects a response — either a
// typed response body, or a confirm-only acknowledgement.
func (p *Protocol) Responded() bool {
	return p.Response != nil || p.Confirm != 0
}
