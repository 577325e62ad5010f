// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package diag_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/luxfi/sproto"
	"github.com/luxfi/sproto/diag"
)

func TestRoundTrip(t *testing.T) {
	v := sproto.StructOf(map[string]sproto.Value{
		"name":  sproto.String("widget"),
		"count": sproto.Int64(7),
		"price": sproto.Float64(19.99),
		"tags":  sproto.ArrayOf([]sproto.Value{sproto.String("a"), sproto.String("b")}),
		"blob":  sproto.Binary([]byte{0x01, 0x02, 0x03}),
		"nested": sproto.StructOf(map[string]sproto.Value{
			"active": sproto.Bool(true),
		}),
	})

	data, err := diag.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := diag.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(v, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDumpProducesText(t *testing.T) {
	v := sproto.StructOf(map[string]sproto.Value{"ok": sproto.Bool(true)})
	s, err := diag.Dump(v)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if s == "" {
		t.Fatal("Dump returned empty string")
	}
	t.Logf("diagnostic notation: %s", s)
}
