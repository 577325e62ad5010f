// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sproto

import "errors"

// Error kinds surfaced by the schema, codec, pack, and rpc packages.
// Callers should match with errors.Is; wrapped errors carry offsets, tags,
// or names via fmt.Errorf("%w: ...", ...) for diagnostics.
var (
	// ErrMalformedSchema indicates a bundle failed structural validation:
	// size mismatch, non-monotonic tags, unknown meta-tag, or a dangling
	// type-id.
	ErrMalformedSchema = errors.New("sproto: malformed schema")

	// ErrMalformedPayload indicates a record or array body failed
	// structural validation: inconsistent integer width, a length prefix
	// overrunning the buffer, or a truncated body.
	ErrMalformedPayload = errors.New("sproto: malformed payload")

	// ErrTypeMismatch indicates an input value is not assignable to its
	// declared field type.
	ErrTypeMismatch = errors.New("sproto: type mismatch")

	// ErrTooDeep indicates recursive encode/decode exceeded MaxDepth.
	ErrTooDeep = errors.New("sproto: recursion too deep")

	// ErrUnknownProtocol indicates an RPC envelope referenced a protocol
	// tag absent from the catalogue.
	ErrUnknownProtocol = errors.New("sproto: unknown protocol")

	// ErrUnknownSession indicates a response arrived for a session id
	// absent from the host's session table.
	ErrUnknownSession = errors.New("sproto: unknown session")

	// ErrEncodingOverflow indicates an encode-side failure: a tag gap
	// that cannot be represented in 16 bits, an integer that cannot be
	// represented in 64 bits, or fields handed to EncodeStructFields out
	// of strictly ascending tag order.
	ErrEncodingOverflow = errors.New("sproto: encoding overflow")
)

// MaxDepth is the hard recursion cap for nested structs and arrays of
// structs, per spec §4.3 "Recursion depth."
const MaxDepth = 64
