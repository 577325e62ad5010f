// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sproto

import (
	"bytes"
	"testing"
)

func encodeFields(t *testing.T, fields []RawField) []byte {
	t.Helper()
	w := NewWriter(16)
	if err := EncodeStructFields(w, fields); err != nil {
		t.Fatalf("EncodeStructFields: %v", err)
	}
	return w.Bytes()
}

func TestEmptyStruct(t *testing.T) {
	got := encodeFields(t, nil)
	want := []byte{0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}

	fields, consumed, err := DecodeStructFields(got)
	if err != nil {
		t.Fatalf("DecodeStructFields: %v", err)
	}
	if len(fields) != 0 {
		t.Fatalf("fields = %v, want empty", fields)
	}
	if consumed != len(got) {
		t.Fatalf("consumed = %d, want %d", consumed, len(got))
	}
}

func TestSmallIntegerInline(t *testing.T) {
	got := encodeFields(t, []RawField{{Tag: 0, Inline: true, Value: 5}})
	want := []byte{0x01, 0x00, 0x0C, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestNegativeIntegerViaDataArea(t *testing.T) {
	blob := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	got := encodeFields(t, []RawField{{Tag: 0, Blob: blob}})

	fields, _, err := DecodeStructFields(got)
	if err != nil {
		t.Fatalf("DecodeStructFields: %v", err)
	}
	if len(fields) != 1 || fields[0].Inline || !bytes.Equal(fields[0].Blob, blob) {
		t.Fatalf("fields = %+v, want one data-area field carrying %#v", fields, blob)
	}

	// Data region must contain the length-prefixed blob verbatim.
	wantData := []byte{0x04, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF}
	if !bytes.Contains(got, wantData) {
		t.Fatalf("encoded bytes %#v do not contain expected data region %#v", got, wantData)
	}
}

func TestTagGap(t *testing.T) {
	got := encodeFields(t, []RawField{
		{Tag: 0, Inline: true, Value: 1},
		{Tag: 3, Inline: true, Value: 2},
	})
	want := []byte{
		0x03, 0x00, // header count = 3
		0x04, 0x00, // slot a: inline 2*(1+1)=4
		0x03, 0x00, // gap marker for tags 1-2: (2-1)*2+1=3
		0x06, 0x00, // slot b: inline 2*(2+1)=6
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}

	fields, _, err := DecodeStructFields(got)
	if err != nil {
		t.Fatalf("DecodeStructFields: %v", err)
	}
	if len(fields) != 2 || fields[0].Tag != 0 || fields[0].Value != 1 || fields[1].Tag != 3 || fields[1].Value != 2 {
		t.Fatalf("fields = %+v, want [{0 1} {3 2}]", fields)
	}
}

func TestStringRoundTrip(t *testing.T) {
	got := encodeFields(t, []RawField{{Tag: 0, Blob: []byte("hi")}})
	want := []byte{
		0x01, 0x00, // header count = 1
		0x00, 0x00, // slot: 0 (data area follows)
		0x02, 0x00, 0x00, 0x00, // length prefix = 2
		'h', 'i',
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}

	fields, _, err := DecodeStructFields(got)
	if err != nil {
		t.Fatalf("DecodeStructFields: %v", err)
	}
	if len(fields) != 1 || string(fields[0].Blob) != "hi" {
		t.Fatalf("fields = %+v, want [{0 \"hi\"}]", fields)
	}
}

func TestHeaderMonotonicity(t *testing.T) {
	fields := []RawField{
		{Tag: 0, Inline: true, Value: 1},
		{Tag: 2, Inline: true, Value: 2},
		{Tag: 5, Blob: []byte{1, 2, 3}},
	}
	data := encodeFields(t, fields)
	decoded, _, err := DecodeStructFields(data)
	if err != nil {
		t.Fatalf("DecodeStructFields: %v", err)
	}
	last := -1
	for _, f := range decoded {
		if f.Tag <= last {
			t.Fatalf("tags not strictly increasing: %d after %d", f.Tag, last)
		}
		last = f.Tag
	}
}

func TestEncodeRejectsDuplicateOrDescendingTags(t *testing.T) {
	w := NewWriter(16)
	err := EncodeStructFields(w, []RawField{
		{Tag: 3, Inline: true, Value: 1},
		{Tag: 1, Inline: true, Value: 2},
	})
	if err == nil {
		t.Fatal("expected an error encoding descending tags")
	}

	err = EncodeStructFields(NewWriter(16), []RawField{
		{Tag: 2, Inline: true, Value: 1},
		{Tag: 2, Inline: true, Value: 2},
	})
	if err == nil {
		t.Fatal("expected an error encoding duplicate tags")
	}
}
