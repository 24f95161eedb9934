// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package slrand is a stateless, counter based random number generator
(Philox2x32) that gives the same numbers on the CPU and in shaders.

Kernels call these functions directly. Each call lowers to the HLSL
function of the same name, and the HLSL block is emitted once per
shader that uses it.

Every draw is a pure function of a counter and a key. The key is
usually the index of the element being updated, and the counter is
advanced with CounterIncr once per draw, after all elements have drawn.
*/
package slrand

import (
	_ "embed"

	"goki.dev/mat32/v2"
	"goki.dev/slkernel/sltype"
)

// HLSL is the HLSL source of every function in this package.
//
//go:embed slrand.hlsl
var HLSL string

// Uint2 is the Go version of the HLSL uint2
type Uint2 = sltype.Uint2

// Float2 is the Go version of the HLSL float2
type Float2 = sltype.Float2

const (
	philoxMul  = 0xD256D193
	philoxBump = 0x9E3779B9

	// philoxRounds is the number of rounds followed by a key bump.
	philoxRounds = 9

	// unitScale maps a uint32 onto [0, 1).
	unitScale = float32(1.) / (float32(0xffffffff) + float32(1.))
)

// MulHiLo64 returns the low and high 32 bits of the 64 bit product.
// The HLSL version emulates it with 16 bit partial products.
func MulHiLo64(a, b uint32) (lo, hi uint32) {
	prod := uint64(a) * uint64(b)
	return uint32(prod), uint32(prod >> 32)
}

// Philox2x32round does one round of updating of the counter
func Philox2x32round(counter *Uint2, key uint32) {
	lo, hi := MulHiLo64(philoxMul, counter.X)
	counter.X, counter.Y = hi^key^counter.Y, lo
}

// Philox2x32bumpkey does one round of updating of the key
func Philox2x32bumpkey(key *uint32) {
	*key += philoxBump
}

// Philox2x32 returns the two 32 bit words determined by counter and key.
func Philox2x32(counter Uint2, key uint32) Uint2 {
	for i := 0; i < philoxRounds; i++ {
		Philox2x32round(&counter, key)
		Philox2x32bumpkey(&key)
	}
	Philox2x32round(&counter, key)
	return counter
}

// Uint32ToFloat maps val onto [0, 1), centered in its bucket.
func Uint32ToFloat(val uint32) float32 {
	return float32(val)*unitScale + 0.5*unitScale
}

// Uint32ToFloat11 maps val, read as signed, onto [-1, 1).
func Uint32ToFloat11(val uint32) float32 {
	return 2.0 * (float32(int32(val))*unitScale + 0.5*unitScale)
}

// Uint2ToFloat maps both words of val onto [0, 1).
func Uint2ToFloat(val Uint2) Float2 {
	return Float2{X: Uint32ToFloat(val.X), Y: Uint32ToFloat(val.Y)}
}

// CounterIncr advances counter as a 64 bit integer, X being the low word.
func CounterIncr(counter *Uint2) {
	counter.X++
	if counter.X == 0 {
		counter.Y++
	}
}

// RandUint2 returns two uniform 32 bit words.
func RandUint2(counter Uint2, key uint32) Uint2 {
	return Philox2x32(counter, key)
}

// RandUint32 returns one uniform 32 bit word.
func RandUint32(counter Uint2, key uint32) uint32 {
	return Philox2x32(counter, key).X
}

// RandFloat2 returns two uniform floats in [0, 1).
func RandFloat2(counter Uint2, key uint32) Float2 {
	return Uint2ToFloat(RandUint2(counter, key))
}

// RandFloat returns a uniform float in [0, 1).
func RandFloat(counter Uint2, key uint32) float32 {
	return Uint32ToFloat(RandUint32(counter, key))
}

// RandFloat11 returns a uniform float in [-1, 1).
func RandFloat11(counter Uint2, key uint32) float32 {
	return Uint32ToFloat11(RandUint32(counter, key))
}

// RandBoolP returns true with probability p.
func RandBoolP(counter Uint2, key uint32, p float32) bool {
	return RandFloat(counter, key) < p
}

// SinCosPi returns the sine and cosine of pi * x.
func SinCosPi(x float32) (float32, float32) {
	const pi = 3.1415926535897932
	return mat32.Sincos(pi * x)
}

// RandNormFloat2 returns two independent standard normal floats,
// by Box-Muller from one pair of words.
func RandNormFloat2(counter Uint2, key uint32) Float2 {
	ur := RandUint2(counter, key)
	var f Float2
	f.X, f.Y = SinCosPi(Uint32ToFloat11(ur.X))
	r := mat32.Sqrt(-2. * mat32.Log(Uint32ToFloat(ur.Y))) // never log(0)
	f.X *= r
	f.Y *= r
	return f
}

// RandNormFloat returns a standard normal float.
func RandNormFloat(counter Uint2, key uint32) float32 {
	return RandNormFloat2(counter, key).X
}
