// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sltype defines the value types a kernel can hold in fields,
// locals and buffers. Each maps onto one HLSL scalar, vector or matrix type.
package sltype

import "goki.dev/mat32/v2"

// Float is identical to a float32
type Float = float32

// Float2 is a length 2 vector of float32 (HLSL float2)
type Float2 = mat32.Vec2

// Float3 is a length 3 vector of float32 (HLSL float3)
type Float3 = mat32.Vec3

// Float4 is a length 4 vector of float32 (HLSL float4)
type Float4 = mat32.Vec4

// Float4x4 is a 4x4 float32 matrix in column-major order (GLSL
// convention), as used by mat32. It is uploaded as row_major float4x4,
// so the HLSL matrix is its transpose and products swap operand order.
type Float4x4 = mat32.Mat4

// Float3x3 is a 3x3 float32 matrix in column-major order.
type Float3x3 [9]float32

// Float2x2 is a 2x2 float32 matrix in column-major order.
type Float2x2 [4]float32

// At returns the element at row r, column c.
func (m Float3x3) At(r, c int) float32 { return m[c*3+r] }

// At returns the element at row r, column c.
func (m Float2x2) At(r, c int) float32 { return m[c*2+r] }
