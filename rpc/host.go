// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rpc multiplexes requests and responses over a single byte stream
// using a package envelope and a per-session table, per spec §4.6. A Host
// wraps a schema.Catalogue: Send builds outbound framed bytes and (for
// sessions expecting a reply) remembers what type to decode the reply
// against; Dispatch consumes inbound framed bytes, classifies them as a
// request or a response, and for requests hands back a respond
// continuation the caller invokes once it has an answer.
//
// The host's own state is a sync.Map keyed by session id plus an atomic
// counter for fresh ids. It performs no I/O and holds no net.Conn —
// callers read/write the framed bytes Send and the respond continuation
// produce over whatever transport they choose.
package rpc

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/luxfi/sproto"
	"github.com/luxfi/sproto/codec"
	"github.com/luxfi/sproto/pack"
	"github.com/luxfi/sproto/schema"
)

// confirmOnly is the session-table sentinel for a protocol that expects an
// acknowledgement but carries no typed response body.
var confirmOnly = &schema.Type{Name: "<confirm-only>"}

// Kind discriminates the two shapes Dispatch can yield.
type Kind int

const (
	// KindRequest is an inbound call awaiting a Respond.
	KindRequest Kind = iota
	// KindResponse is an inbound reply to a session this host started.
	KindResponse
)

// Result is what Dispatch yields for one framed message.
type Result struct {
	Kind Kind

	// ProtocolName is the resolved protocol name, set for KindRequest
	// only; a KindResponse result leaves it empty. Result is the decoded
	// request (KindRequest) or response (KindResponse) body. Result is the
	// zero Value for confirm-only responses and for protocols with no
	// request type.
	ProtocolName string
	Result       sproto.Value
	Session      int64

	// Respond builds the framed response for a KindRequest result. args
	// may be nil for a protocol with no response type (confirm only, or
	// no reply expected at all). Respond is nil on a KindResponse result.
	Respond func(args *sproto.Value) ([]byte, error)
}

// Host is a session-multiplexed RPC endpoint over one schema catalogue.
// The zero value is not usable; construct with NewHost. A Host's session
// table is shared mutable state; it is held in a sync.Map and session ids
// come from an atomic counter, so Send, Dispatch and NextSession may be
// called from multiple goroutines.
type Host struct {
	catalogue   *schema.Catalogue
	packageType *schema.Type

	sessions    sync.Map // int64 session -> *schema.Type response type, or confirmOnly
	nextSession atomic.Int64
}

// NewHost resolves packageTypeName (default "package") in cat as the
// envelope type and validates it carries a scalar integer "type" field and
// a scalar integer "session" field, per spec §4.6. Other fields of the
// package type are not checked.
func NewHost(cat *schema.Catalogue, packageTypeName string) (*Host, error) {
	if packageTypeName == "" {
		packageTypeName = "package"
	}
	t, ok := cat.TypeByName(packageTypeName)
	if !ok {
		return nil, fmt.Errorf("%w: package type %q not found", sproto.ErrMalformedSchema, packageTypeName)
	}

	var hasType, hasSession bool
	for _, f := range t.Fields {
		switch f.Name {
		case "type":
			if f.Kind != schema.KindInteger || f.IsArray {
				return nil, fmt.Errorf("%w: package type %q field \"type\" must be a scalar integer", sproto.ErrMalformedSchema, packageTypeName)
			}
			hasType = true
		case "session":
			if f.Kind != schema.KindInteger || f.IsArray {
				return nil, fmt.Errorf("%w: package type %q field \"session\" must be a scalar integer", sproto.ErrMalformedSchema, packageTypeName)
			}
			hasSession = true
		}
	}
	if !hasType || !hasSession {
		return nil, fmt.Errorf("%w: package type %q must carry integer fields \"type\" and \"session\"", sproto.ErrMalformedSchema, packageTypeName)
	}

	return &Host{catalogue: cat, packageType: t}, nil
}

// NextSession returns a fresh, host-unique session identifier starting
// from 1. Callers are free to supply their own session numbering instead;
// this is a convenience, not a requirement of the wire format.
func (h *Host) NextSession() int64 {
	return h.nextSession.Add(1)
}

// Send resolves protoName, builds the envelope + optional request body,
// packs it, and — if session is non-zero and the protocol expects a
// reply — remembers what to decode that reply against.
func (h *Host) Send(protoName string, args *sproto.Value, session int64) ([]byte, error) {
	proto, ok := h.catalogue.ProtocolByName(protoName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", sproto.ErrUnknownProtocol, protoName)
	}

	body, err := h.encodeEnvelope(map[string]sproto.Value{
		"type":    sproto.Int64(int64(proto.Tag)),
		"session": sproto.Int64(session),
	})
	if err != nil {
		return nil, err
	}

	if args != nil {
		if proto.Request == nil {
			return nil, fmt.Errorf("%w: protocol %q takes no request body", sproto.ErrTypeMismatch, protoName)
		}
		reqBytes, err := codec.Encode(proto.Request, *args)
		if err != nil {
			return nil, fmt.Errorf("encoding %q request: %w", protoName, err)
		}
		body = append(body, reqBytes...)
	}

	if session != 0 {
		switch {
		case proto.Response != nil:
			h.sessions.Store(session, proto.Response)
		case proto.Confirm != 0:
			h.sessions.Store(session, confirmOnly)
		}
	}

	return pack.Pack(body), nil
}

// Dispatch unpacks framed bytes, decodes the envelope, and classifies the
// result as a request or a response to a session this host started.
func (h *Host) Dispatch(framed []byte) (*Result, error) {
	raw, err := pack.Unpack(framed)
	if err != nil {
		return nil, err
	}

	env, consumed, err := codec.DecodePrefix(h.packageType, raw)
	if err != nil {
		return nil, err
	}
	payload := raw[consumed:]

	var session int64
	if sv, ok := env.Struct["session"]; ok {
		session = sv.Int
	}

	if tv, isRequest := env.Struct["type"]; isRequest {
		return h.dispatchRequest(int(tv.Int), session, payload)
	}
	return h.dispatchResponse(session, payload)
}

func (h *Host) dispatchRequest(tag int, session int64, payload []byte) (*Result, error) {
	proto, ok := h.catalogue.ProtocolByTag(tag)
	if !ok {
		return nil, fmt.Errorf("%w: tag %d", sproto.ErrUnknownProtocol, tag)
	}

	var result sproto.Value
	if proto.Request != nil {
		var err error
		result, err = codec.Decode(proto.Request, payload)
		if err != nil {
			return nil, fmt.Errorf("decoding %q request: %w", proto.Name, err)
		}
	}

	respond := func(args *sproto.Value) ([]byte, error) {
		body, err := h.encodeEnvelope(map[string]sproto.Value{"session": sproto.Int64(session)})
		if err != nil {
			return nil, err
		}
		if args != nil {
			if proto.Response == nil {
				return nil, fmt.Errorf("%w: protocol %q has no response type", sproto.ErrTypeMismatch, proto.Name)
			}
			respBytes, err := codec.Encode(proto.Response, *args)
			if err != nil {
				return nil, fmt.Errorf("encoding %q response: %w", proto.Name, err)
			}
			body = append(body, respBytes...)
		}
		return pack.Pack(body), nil
	}

	return &Result{
		Kind:         KindRequest,
		ProtocolName: proto.Name,
		Result:       result,
		Session:      session,
		Respond:      respond,
	}, nil
}

func (h *Host) dispatchResponse(session int64, payload []byte) (*Result, error) {
	v, ok := h.sessions.LoadAndDelete(session)
	if !ok {
		return nil, fmt.Errorf("%w: session %d", sproto.ErrUnknownSession, session)
	}

	if v == confirmOnly {
		return &Result{Kind: KindResponse, Session: session}, nil
	}

	respType := v.(*schema.Type)
	result, err := codec.Decode(respType, payload)
	if err != nil {
		return nil, fmt.Errorf("decoding response for session %d: %w", session, err)
	}
	return &Result{Kind: KindResponse, Session: session, Result: result}, nil
}

func (h *Host) encodeEnvelope(fields map[string]sproto.Value) ([]byte, error) {
	b, err := codec.Encode(h.packageType, sproto.StructOf(fields))
	if err != nil {
		return nil, fmt.Errorf("encoding package envelope: %w", err)
	}
	return b, nil
}
