// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sl

import (
	"math"
	"math/bits"

	"goki.dev/slkernel/sltype"
)

// Clamp lowers to clamp(x, lo, hi)
func Clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Saturate lowers to saturate(x): clamps to [0, 1].
func Saturate(x float32) float32 {
	return Clamp(x, 0, 1)
}

// Lerp lowers to lerp(a, b, t)
func Lerp(a, b, t float32) float32 {
	return a + t*(b-a)
}

// Step lowers to step(edge, x): 1 if x >= edge, else 0.
func Step(edge, x float32) float32 {
	if x >= edge {
		return 1
	}
	return 0
}

// SmoothStep lowers to smoothstep(e0, e1, x)
func SmoothStep(e0, e1, x float32) float32 {
	t := Saturate((x - e0) / (e1 - e0))
	return t * t * (3 - 2*t)
}

// Rsqrt lowers to rsqrt(x)
func Rsqrt(x float32) float32 {
	return float32(1 / math.Sqrt(float64(x)))
}

// Frac lowers to frac(x): x - floor(x).
func Frac(x float32) float32 {
	return x - float32(math.Floor(float64(x)))
}

// Sign lowers to sign(x)
func Sign(x float32) float32 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

// Fma lowers to mad(a, b, c)
func Fma(a, b, c float32) float32 {
	return a*b + c
}

// Mul returns m * v for the column-major matrix m.
// It lowers to mul(v, m), since m is uploaded row_major and the HLSL
// matrix is its transpose.
func Mul(m sltype.Float4x4, v sltype.Float4) sltype.Float4 {
	row := func(r int) float32 {
		return m[r]*v.X + m[4+r]*v.Y + m[8+r]*v.Z + m[12+r]*v.W
	}
	return sltype.Float4{X: row(0), Y: row(1), Z: row(2), W: row(3)}
}

// Mul3 returns m * v for the column-major 3x3 matrix m.
// It lowers to mul(v, m).
func Mul3(m sltype.Float3x3, v sltype.Float3) sltype.Float3 {
	row := func(r int) float32 {
		return m[r]*v.X + m[3+r]*v.Y + m[6+r]*v.Z
	}
	return sltype.Float3{X: row(0), Y: row(1), Z: row(2)}
}

// MulMat returns the matrix product a * b.
// It lowers to mul(b, a).
func MulMat(a, b sltype.Float4x4) sltype.Float4x4 {
	var p sltype.Float4x4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var s float32
			for k := 0; k < 4; k++ {
				s += a[k*4+r] * b[c*4+k]
			}
			p[c*4+r] = s
		}
	}
	return p
}

// AsFloat lowers to asfloat(u)
func AsFloat(u uint32) float32 { return math.Float32frombits(u) }

// AsUint lowers to asuint(f)
func AsUint(f float32) uint32 { return math.Float32bits(f) }

// AsInt lowers to asint(f)
func AsInt(f float32) int32 { return int32(math.Float32bits(f)) }

// CountBits lowers to countbits(u)
func CountBits(u uint32) uint32 { return uint32(bits.OnesCount32(u)) }

// ReverseBits lowers to reversebits(u)
func ReverseBits(u uint32) uint32 { return bits.Reverse32(u) }

// FirstBitHigh lowers to firstbithigh(u): the index of the
// highest set bit, or -1 if u is 0.
func FirstBitHigh(u uint32) int32 { return int32(31 - bits.LeadingZeros32(u)) }

// FirstBitLow lowers to firstbitlow(u): the index of the
// lowest set bit, or -1 if u is 0.
func FirstBitLow(u uint32) int32 {
	if u == 0 {
		return -1
	}
	return int32(bits.TrailingZeros32(u))
}

// GroupBarrier lowers to GroupMemoryBarrierWithGroupSync()
func GroupBarrier() {}

// DeviceBarrier lowers to DeviceMemoryBarrierWithGroupSync()
func DeviceBarrier() {}

// AllBarrier lowers to AllMemoryBarrierWithGroupSync()
func AllBarrier() {}
