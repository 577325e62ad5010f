// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package schema

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Catalogue is the immutable, indexed result of parsing a bundle: a type
// list, a protocol list sorted by tag, and memoising name/id caches (spec
// §3, §4.2). Once built it is read-only and safe for concurrent use by
// multiple goroutines without external synchronization (spec §5).
type Catalogue struct {
	types     []*Type
	protocols []*Protocol

	// group collapses concurrent first-lookups of the same uncached
	// name/id into a single scan, so readers racing to warm the cache
	// after construction don't all pay the O(n) scan cost independently.
	group singleflight.Group

	typeByName  mapCache
	protoByName mapCache
	protoByTag  mapCache
}

// mapCache is a simple memoizing cache guarded by a RWMutex. Lookups that
// race to populate the same key are deduplicated one level up by
// Catalogue.group; this just holds whatever the winner computed.
type mapCache struct {
	mu sync.RWMutex
	m  map[string]any
}

func (c *mapCache) get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *mapCache) set(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = make(map[string]any)
	}
	c.m[key] = v
}

// NewCatalogue builds a Catalogue directly from already-resolved types and
// protocols, bypassing bundle parsing. Protocols must already be in
// strictly ascending tag order, matching what Parse itself enforces while
// reading (spec §3 invariant); this lets callers that build a catalogue
// programmatically (tests, or an in-process schema compiler) reuse the
// same lookup/caching behaviour Parse produces.
func NewCatalogue(types []*Type, protocols []*Protocol) *Catalogue {
	return &Catalogue{types: types, protocols: protocols}
}

// Types returns the catalogue's type list in bundle order.
func (c *Catalogue) Types() []*Type { return c.types }

// Protocols returns the catalogue's protocol list in ascending tag order.
func (c *Catalogue) Protocols() []*Protocol { return c.protocols }

// TypeByID returns the type at the given bundle index.
func (c *Catalogue) TypeByID(id int) (*Type, bool) {
	if id < 0 || id >= len(c.types) {
		return nil, false
	}
	return c.types[id], true
}

// TypeByName looks up a type by name, memoising the result of the linear
// scan on first lookup.
func (c *Catalogue) TypeByName(name string) (*Type, bool) {
	if v, ok := c.typeByName.get(name); ok {
		t, _ := v.(*Type)
		return t, t != nil
	}
	v, _, _ := c.group.Do("type:"+name, func() (any, error) {
		for _, t := range c.types {
			if t.Name == name {
				return t, nil
			}
		}
		return (*Type)(nil), nil
	})
	t, _ := v.(*Type)
	c.typeByName.set(name, t)
	return t, t != nil
}

// ProtocolByTag looks up a protocol by tag via binary search (the
// catalogue's protocol list is kept sorted by tag).
func (c *Catalogue) ProtocolByTag(tag int) (*Protocol, bool) {
	key := fmt.Sprintf("tag:%d", tag)
	if v, ok := c.protoByTag.get(key); ok {
		p, _ := v.(*Protocol)
		return p, p != nil
	}
	v, _, _ := c.group.Do("proto-"+key, func() (any, error) {
		i := sort.Search(len(c.protocols), func(i int) bool { return c.protocols[i].Tag >= tag })
		if i < len(c.protocols) && c.protocols[i].Tag == tag {
			return c.protocols[i], nil
		}
		return (*Protocol)(nil), nil
	})
	p, _ := v.(*Protocol)
	c.protoByTag.set(key, p)
	return p, p != nil
}

// ProtocolByName looks up a protocol by name, memoising the result of the
// linear scan on first lookup.
func (c *Catalogue) ProtocolByName(name string) (*Protocol, bool) {
	if v, ok := c.protoByName.get(name); ok {
		p, _ := v.(*Protocol)
		return p, p != nil
	}
	v, _, _ := c.group.Do("proto:"+name, func() (any, error) {
		for _, p := range c.protocols {
			if p.Name == name {
				return p, nil
			}
		}
		return (*Protocol)(nil), nil
	})
	p, _ := v.(*Protocol)
	c.protoByName.set(name, p)
	return p, p != nil
}
