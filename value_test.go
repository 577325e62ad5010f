// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sproto

import "testing"

func TestArrayOfNormalizesNilToEmpty(t *testing.T) {
	v := ArrayOf(nil)
	if v.Kind != KindArray {
		t.Fatalf("Kind = %v, want KindArray", v.Kind)
	}
	if v.Array == nil {
		t.Fatal("Array is nil, want non-nil empty slice")
	}
	if len(v.Array) != 0 {
		t.Fatalf("len(Array) = %d, want 0", len(v.Array))
	}
}

func TestIsZero(t *testing.T) {
	if !Int64(0).IsZero() {
		t.Error("Int64(0).IsZero() = false, want true")
	}
	if Int64(1).IsZero() {
		t.Error("Int64(1).IsZero() = true, want false")
	}
	if String("").IsZero() {
		t.Error("String(\"\").IsZero() = true, want false (not KindInteger)")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindInteger: "integer",
		KindBoolean: "boolean",
		KindDouble:  "double",
		KindString:  "string",
		KindBinary:  "binary",
		KindStruct:  "struct",
		KindArray:   "array",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
