// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sproto

import "fmt"

// RawField is one tag-sparse field as it appears on the wire, before any
// schema-aware interpretation: either an inline small unsigned integer
// (header slot only) or an opaque length-prefixed blob living in the data
// region. This is the generic "struct" primitive of spec §6 — the bundle
// parser and the record codec both build on it, the bundle parser treating
// its own meta-tags as a hardcoded schema and the record codec dispatching
// each blob through a schema.Type's FieldDescriptor.
type RawField struct {
	Tag    int
	Inline bool
	Value  int64
	Blob   []byte
}

// MaxInline is the largest value a header slot can carry inline
// (2*(v+1) must fit in uint16), per spec §4.3.
const MaxInline = 0x7FFE

const maxInline = MaxInline

// DecodeStructFields parses the generic "field_count:u16 | field_slot:u16[] |
// data_region" struct primitive of spec §6 and returns one RawField per
// present tag in ascending order, plus the number of bytes consumed from
// data. It performs no schema lookup — unknown-field skipping and per-type
// dispatch are the caller's responsibility, which happens for free here
// because every data-area entry is already isolated as an opaque blob.
func DecodeStructFields(data []byte) ([]RawField, int, error) {
	r := NewReader(data)
	headerCount, err := r.U16()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: struct header count: %v", ErrMalformedPayload, err)
	}

	header := make([]uint16, headerCount)
	for i := range header {
		v, err := r.U16()
		if err != nil {
			return nil, 0, fmt.Errorf("%w: struct header entry %d: %v", ErrMalformedPayload, i, err)
		}
		header[i] = v
	}

	fields := make([]RawField, 0, headerCount)
	currentTag := -1
	for _, entry := range header {
		currentTag++
		if entry&1 == 1 {
			skip := int(entry-1) / 2
			currentTag += skip
			continue
		}
		if entry == 0 {
			blob, err := r.LenPrefixed()
			if err != nil {
				return nil, 0, fmt.Errorf("%w: struct data entry at tag %d: %v", ErrMalformedPayload, currentTag, err)
			}
			fields = append(fields, RawField{Tag: currentTag, Blob: blob})
			continue
		}
		fields = append(fields, RawField{Tag: currentTag, Inline: true, Value: int64(entry)/2 - 1})
	}

	return fields, r.Pos(), nil
}

// EncodeStructFields appends the generic struct primitive for fields
// (which must be sorted by ascending Tag with no duplicates) to w: a
// header_count, the header slots (tag-gap markers interleaved with value
// slots), and the data region in tag order.
func EncodeStructFields(w *Writer, fields []RawField) error {
	headerEntries := make([]uint16, 0, len(fields)*2)
	dataW := NewWriter(32)

	lastTag := -1
	for _, f := range fields {
		if f.Tag <= lastTag {
			return fmt.Errorf("%w: tag %d is not strictly greater than preceding tag %d", ErrEncodingOverflow, f.Tag, lastTag)
		}
		gap := f.Tag - lastTag - 1
		if gap > 0 {
			skip := gap - 1
			marker := skip*2 + 1
			if marker > 0xFFFF {
				return fmt.Errorf("%w: tag gap of %d before tag %d does not fit in 16 bits", ErrEncodingOverflow, gap, f.Tag)
			}
			headerEntries = append(headerEntries, uint16(marker))
		}

		if f.Inline {
			if f.Value < 0 || f.Value > maxInline {
				return fmt.Errorf("%w: inline value %d at tag %d out of range [0, %d]", ErrEncodingOverflow, f.Value, f.Tag, maxInline)
			}
			headerEntries = append(headerEntries, uint16(2*(f.Value+1)))
		} else {
			headerEntries = append(headerEntries, 0)
			dataW.LenPrefixed(f.Blob)
		}

		lastTag = f.Tag
	}

	if len(headerEntries) > 0xFFFF {
		return fmt.Errorf("%w: header has %d entries, max 65535", ErrEncodingOverflow, len(headerEntries))
	}

	w.U16(uint16(len(headerEntries)))
	for _, e := range headerEntries {
		w.U16(e)
	}
	w.Raw(dataW.Bytes())
	return nil
}
