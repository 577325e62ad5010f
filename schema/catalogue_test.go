// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package schema_test

import (
	"sync"
	"testing"

	"github.com/luxfi/sproto/schema"
)

func smallCatalogue() *schema.Catalogue {
	a := &schema.Type{Name: "A", Fields: []*schema.FieldDescriptor{{Tag: 0, Kind: schema.KindInteger, Name: "x", Key: -1}}, Base: 0, MaxN: 1}
	b := &schema.Type{Name: "B"}
	protos := []*schema.Protocol{
		{Name: "one", Tag: 1},
		{Name: "five", Tag: 5},
		{Name: "ten", Tag: 10},
	}
	return schema.NewCatalogue([]*schema.Type{a, b}, protos)
}

func TestTypeByIDBounds(t *testing.T) {
	cat := smallCatalogue()
	if _, ok := cat.TypeByID(-1); ok {
		t.Error("TypeByID(-1) should miss")
	}
	if _, ok := cat.TypeByID(2); ok {
		t.Error("TypeByID(2) should miss (out of range)")
	}
	ty, ok := cat.TypeByID(0)
	if !ok || ty.Name != "A" {
		t.Errorf("TypeByID(0) = %+v, %v, want A", ty, ok)
	}
}

func TestTypeByNameMiss(t *testing.T) {
	cat := smallCatalogue()
	if _, ok := cat.TypeByName("Nonexistent"); ok {
		t.Error("TypeByName should miss for unknown name")
	}
	ty, ok := cat.TypeByName("B")
	if !ok || ty.Name != "B" {
		t.Errorf("TypeByName(B) = %+v, %v", ty, ok)
	}
}

func TestProtocolByTagBinarySearch(t *testing.T) {
	cat := smallCatalogue()
	for _, tag := range []int{1, 5, 10} {
		p, ok := cat.ProtocolByTag(tag)
		if !ok || p.Tag != tag {
			t.Errorf("ProtocolByTag(%d) = %+v, %v", tag, p, ok)
		}
	}
	if _, ok := cat.ProtocolByTag(7); ok {
		t.Error("ProtocolByTag(7) should miss")
	}
}

func TestProtocolByNameMiss(t *testing.T) {
	cat := smallCatalogue()
	if _, ok := cat.ProtocolByName("nope"); ok {
		t.Error("ProtocolByName should miss for unknown name")
	}
	p, ok := cat.ProtocolByName("five")
	if !ok || p.Tag != 5 {
		t.Errorf("ProtocolByName(five) = %+v, %v", p, ok)
	}
}

// TestConcurrentLookups exercises the singleflight-backed caches under
// concurrent first-access, matching the catalogue's documented safety for
// multiple readers racing to warm the cache (spec §5).
func TestConcurrentLookups(t *testing.T) {
	cat := smallCatalogue()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := cat.TypeByName("A"); !ok {
				t.Error("TypeByName(A) missed under concurrency")
			}
			if _, ok := cat.ProtocolByTag(5); !ok {
				t.Error("ProtocolByTag(5) missed under concurrency")
			}
		}()
	}
	wg.Wait()
}
