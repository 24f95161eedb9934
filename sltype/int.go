// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sltype

// Int2 is a length 2 vector of int32 (HLSL int2)
type Int2 struct {
	X, Y int32
}

// Int3 is a length 3 vector of int32 (HLSL int3)
type Int3 struct {
	X, Y, Z int32
}

// Int4 is a length 4 vector of int32 (HLSL int4)
type Int4 struct {
	X, Y, Z, W int32
}

// Uint2 is a length 2 vector of uint32 (HLSL uint2)
type Uint2 struct {
	X, Y uint32
}

// Uint3 is a length 3 vector of uint32 (HLSL uint3)
type Uint3 struct {
	X, Y, Z uint32
}

// Uint4 is a length 4 vector of uint32 (HLSL uint4)
type Uint4 struct {
	X, Y, Z, W uint32
}

// Add returns the component-wise sum.
func (v Int2) Add(o Int2) Int2 { return Int2{v.X + o.X, v.Y + o.Y} }

// Sub returns the component-wise difference.
func (v Int2) Sub(o Int2) Int2 { return Int2{v.X - o.X, v.Y - o.Y} }

// Mul returns the component-wise product.
func (v Int2) Mul(o Int2) Int2 { return Int2{v.X * o.X, v.Y * o.Y} }

// MulScalar multiplies each component by s.
func (v Int2) MulScalar(s int32) Int2 { return Int2{v.X * s, v.Y * s} }

// Add returns the component-wise sum.
func (v Int3) Add(o Int3) Int3 { return Int3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns the component-wise difference.
func (v Int3) Sub(o Int3) Int3 { return Int3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Mul returns the component-wise product.
func (v Int3) Mul(o Int3) Int3 { return Int3{v.X * o.X, v.Y * o.Y, v.Z * o.Z} }

// MulScalar multiplies each component by s.
func (v Int3) MulScalar(s int32) Int3 { return Int3{v.X * s, v.Y * s, v.Z * s} }

// XY returns the first two components.
func (v Int3) XY() Int2 { return Int2{v.X, v.Y} }

// Add returns the component-wise sum.
func (v Int4) Add(o Int4) Int4 { return Int4{v.X + o.X, v.Y + o.Y, v.Z + o.Z, v.W + o.W} }

// Sub returns the component-wise difference.
func (v Int4) Sub(o Int4) Int4 { return Int4{v.X - o.X, v.Y - o.Y, v.Z - o.Z, v.W - o.W} }

// Add returns the component-wise sum.
func (v Uint2) Add(o Uint2) Uint2 { return Uint2{v.X + o.X, v.Y + o.Y} }

// Add returns the component-wise sum.
func (v Uint3) Add(o Uint3) Uint3 { return Uint3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Add returns the component-wise sum.
func (v Uint4) Add(o Uint4) Uint4 { return Uint4{v.X + o.X, v.Y + o.Y, v.Z + o.Z, v.W + o.W} }
