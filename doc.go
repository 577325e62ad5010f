// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sproto provides the core value representation, byte-order
// primitives, and error kinds shared by the sproto wire-format codec.
//
// # Architecture
//
// The codec is split into single-purpose packages:
//
//   - sproto:         Value variant, little-endian primitives, error kinds
//   - sproto/schema:  bundle parser and type/protocol catalogue
//   - sproto/codec:   record encoder/decoder
//   - sproto/pack:    zero-run byte framer
//   - sproto/rpc:     session-multiplexed RPC envelope
//   - sproto/diag:    CBOR dump of decoded Value trees for debugging
//
// Application code reads a precompiled schema bundle with schema.Parse,
// encodes/decodes application records against its types with codec.Encode
// and codec.Decode, frames the resulting bytes with pack.Pack/pack.Unpack,
// and — when multiplexing requests and responses over one connection —
// routes them through an rpc.Host.
//
// None of these packages perform file I/O, logging, or network transport;
// those are the caller's concern.
package sproto
