// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sproto

import (
	"encoding/binary"
	"fmt"
)

// Reader walks a byte slice left to right, decoding little-endian
// primitives per spec §6. It never allocates; all reads are bounds-checked
// and return ErrMalformedPayload on underrun.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential little-endian reads.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Pos returns the current read offset.
func (r *Reader) Pos() int { return r.pos }

// U16 reads a little-endian uint16.
func (r *Reader) U16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	return r.take(n)
}

// LenPrefixed reads a uint32 length prefix followed by that many bytes, the
// "len:u32 | bytes[len]" shape used throughout the wire format.
func (r *Reader) LenPrefixed() ([]byte, error) {
	n, err := r.U32()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || n > r.Len() {
		return nil, fmt.Errorf("%w: need %d bytes, have %d at offset %d", ErrMalformedPayload, n, r.Len(), r.pos)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Writer accumulates little-endian primitives into a growing byte slice.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer with capacity hint size.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

// Bytes returns the accumulated bytes.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// U16 appends a little-endian uint16.
func (w *Writer) U16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// U32 appends a little-endian uint32.
func (w *Writer) U32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// U64 appends a little-endian uint64.
func (w *Writer) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// Raw appends b unchanged.
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// LenPrefixed appends a uint32 length prefix followed by b.
func (w *Writer) LenPrefixed(b []byte) {
	w.U32(uint32(len(b)))
	w.Raw(b)
}

// PatchU16 overwrites the uint16 at byte offset off with v, for
// backpatching a field written before its value was known.
// EncodeStructFields does not use it: it writes the header count only after
// collecting every header entry.
func (w *Writer) PatchU16(off int, v uint16) {
	binary.LittleEndian.PutUint16(w.buf[off:off+2], v)
}
