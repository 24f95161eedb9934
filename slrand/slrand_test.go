// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slrand

import (
	"strings"
	"testing"
)

func TestRand(t *testing.T) {
	var counter Uint2
	for i := 0; i < 100; i++ {
		f := RandFloat(counter, 0)
		if f < 0 || f >= 1 {
			t.Fatalf("RandFloat out of range: %g", f)
		}
		f11 := RandFloat11(counter, 1)
		if f11 < -1 || f11 >= 1 {
			t.Fatalf("RandFloat11 out of range: %g", f11)
		}
		CounterIncr(&counter)
	}
	if counter.X != 100 || counter.Y != 0 {
		t.Errorf("counter = %v, want {100 0}", counter)
	}
}

func TestCounterIncrCarry(t *testing.T) {
	c := Uint2{X: 0xffffffff, Y: 3}
	CounterIncr(&c)
	if c.X != 0 || c.Y != 4 {
		t.Errorf("carry: got %v", c)
	}
}

func TestDeterministic(t *testing.T) {
	a := RandUint2(Uint2{X: 7, Y: 9}, 42)
	b := RandUint2(Uint2{X: 7, Y: 9}, 42)
	if a != b {
		t.Errorf("Philox not deterministic: %v != %v", a, b)
	}
	if c := RandUint2(Uint2{X: 8, Y: 9}, 42); c == a {
		t.Errorf("different counters gave the same value %v", c)
	}
}

func TestMulHiLo64(t *testing.T) {
	lo, hi := MulHiLo64(0xD256D193, 0xffffffff)
	prod := uint64(0xD256D193) * uint64(0xffffffff)
	if lo != uint32(prod) || hi != uint32(prod>>32) {
		t.Errorf("MulHiLo64 = %x %x, want %x", lo, hi, prod)
	}
}

func TestHLSLDefinesEveryFunction(t *testing.T) {
	for _, fn := range []string{"MulHiLo64", "Philox2x32round", "Philox2x32bumpkey", "Philox2x32",
		"Uint32ToFloat", "Uint32ToFloat11", "Uint2ToFloat", "CounterIncr", "RandUint2", "RandUint32",
		"RandFloat2", "RandFloat", "RandFloat11", "RandBoolP", "SinCosPi", "RandNormFloat2", "RandNormFloat"} {
		if !strings.Contains(HLSL, " "+fn+"(") {
			t.Errorf("slrand.hlsl does not define %s", fn)
		}
	}
}
