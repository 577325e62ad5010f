// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package schema

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 content hash of a raw bundle, letting callers
// recognize "have I already parsed this exact bundle" (e.g. to key a
// Catalogue cache by schema version) without re-parsing it. It plays no
// part in the wire format itself.
type Digest [32]byte

// DigestBundle hashes the raw bundle bytes handed to Parse.
func DigestBundle(bundle []byte) Digest {
	h := blake3.New()
	h.Write(bundle)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// String returns the hex-encoded digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}
