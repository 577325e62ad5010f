// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pack implements the zero-run-length byte framer used to shrink
// sparse encoded records before they hit the wire (spec §4.5). It operates
// purely at the byte level and does not interpret the payload it frames.
package pack

import (
	"fmt"

	"github.com/luxfi/sproto"
)

// denseThreshold is the minimum non-zero byte count within an 8-byte block
// that qualifies it to join a dense run instead of being framed as its own
// sparse segment.
const denseThreshold = 6

// maxRunBlocks is the largest number of 8-byte blocks a single dense
// segment can cover (n-1 must fit in a byte).
const maxRunBlocks = 256

// denseEscape is the sparse-header value reserved to introduce a dense
// segment. A block with all 8 bytes non-zero would otherwise produce this
// exact bitmask as a sparse header, which is why any block with at least
// denseThreshold non-zero bytes is always routed through the dense path.
const denseEscape = 0xFF

// Pack frames data into alternating sparse and dense 8-byte segments, per
// spec §4.5. Input shorter than a multiple of 8 is zero-padded before
// framing; Unpack of the result reproduces that padding, so callers that
// need the exact original length track it independently (the record codec
// does this naturally, since decode reports how many bytes it consumed).
func Pack(data []byte) []byte {
	blocks := (len(data) + 7) / 8
	padded := make([]byte, blocks*8)
	copy(padded, data)

	counts := make([]int, blocks)
	for i := 0; i < blocks; i++ {
		n := 0
		for _, b := range padded[i*8 : i*8+8] {
			if b != 0 {
				n++
			}
		}
		counts[i] = n
	}

	out := make([]byte, 0, len(padded))
	i := 0
	for i < blocks {
		if counts[i] >= denseThreshold {
			start := i
			for i < blocks && counts[i] >= denseThreshold && i-start < maxRunBlocks {
				i++
			}
			run := i - start
			out = append(out, denseEscape, byte(run-1))
			out = append(out, padded[start*8:start*8+run*8]...)
			continue
		}
		block := padded[i*8 : i*8+8]
		var header byte
		var nonzero []byte
		for j, b := range block {
			if b != 0 {
				header |= 1 << uint(j)
				nonzero = append(nonzero, b)
			}
		}
		out = append(out, header)
		out = append(out, nonzero...)
		i++
	}
	return out
}

// Unpack reverses Pack. It returns ErrMalformedPayload if the segment
// stream is truncated mid-segment.
func Unpack(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)*2)
	r := 0
	for r < len(data) {
		header := data[r]
		r++
		if header == denseEscape {
			if r >= len(data) {
				return nil, fmt.Errorf("%w: dense segment missing block-count byte", sproto.ErrMalformedPayload)
			}
			n := int(data[r]) + 1
			r++
			need := n * 8
			if r+need > len(data) {
				return nil, fmt.Errorf("%w: dense segment needs %d bytes, only %d remain", sproto.ErrMalformedPayload, need, len(data)-r)
			}
			out = append(out, data[r:r+need]...)
			r += need
			continue
		}

		var block [8]byte
		for j := 0; j < 8; j++ {
			if header&(1<<uint(j)) != 0 {
				if r >= len(data) {
					return nil, fmt.Errorf("%w: sparse segment truncated at bit %d", sproto.ErrMalformedPayload, j)
				}
				block[j] = data[r]
				r++
			}
		}
		out = append(out, block[:]...)
	}
	return out, nil
}
