// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sl

import "goki.dev/slkernel/sltype"

// ReadOnlyBuffer is a structured buffer bound at a t register
// (HLSL StructuredBuffer<T>). len() of it lowers to GetDimensions.
type ReadOnlyBuffer[T any] []T

// ReadWriteBuffer is a structured buffer bound at a u register
// (HLSL RWStructuredBuffer<T>).
type ReadWriteBuffer[T any] []T

// Sampler is a sampler state bound at an s register.
// Sampling on the CPU is always nearest with clamping.
type Sampler struct{}

// ReadOnlyTexture2D is a 2D texture bound at a t register (HLSL Texture2D<T>).
// Data is stored row by row.
type ReadOnlyTexture2D[T any] struct {
	Width, Height int32
	Data          []T
}

// Load returns the texel at c.
func (t ReadOnlyTexture2D[T]) Load(c sltype.Int2) T {
	return t.Data[c.Y*t.Width+c.X]
}

// Sample returns the texel nearest to the normalized coordinate uv.
func (t ReadOnlyTexture2D[T]) Sample(s Sampler, uv sltype.Float2) T {
	return t.Load(sltype.Int2{X: nearest(uv.X, t.Width), Y: nearest(uv.Y, t.Height)})
}

// Dimensions returns the width and height.
func (t ReadOnlyTexture2D[T]) Dimensions() sltype.Int2 {
	return sltype.Int2{X: t.Width, Y: t.Height}
}

// ReadWriteTexture2D is a 2D texture bound at a u register (HLSL RWTexture2D<T>).
type ReadWriteTexture2D[T any] struct {
	Width, Height int32
	Data          []T
}

// NewReadWriteTexture2D returns a zeroed texture of the given size.
func NewReadWriteTexture2D[T any](width, height int32) ReadWriteTexture2D[T] {
	return ReadWriteTexture2D[T]{Width: width, Height: height, Data: make([]T, width*height)}
}

// Load returns the texel at c.
func (t ReadWriteTexture2D[T]) Load(c sltype.Int2) T {
	return t.Data[c.Y*t.Width+c.X]
}

// Store sets the texel at c.
func (t ReadWriteTexture2D[T]) Store(c sltype.Int2, v T) {
	t.Data[c.Y*t.Width+c.X] = v
}

// Dimensions returns the width and height.
func (t ReadWriteTexture2D[T]) Dimensions() sltype.Int2 {
	return sltype.Int2{X: t.Width, Y: t.Height}
}

// ReadOnlyTexture3D is a 3D texture bound at a t register (HLSL Texture3D<T>).
// Data is stored slice by slice, row by row.
type ReadOnlyTexture3D[T any] struct {
	Width, Height, Depth int32
	Data                 []T
}

// Load returns the texel at c.
func (t ReadOnlyTexture3D[T]) Load(c sltype.Int3) T {
	return t.Data[(c.Z*t.Height+c.Y)*t.Width+c.X]
}

// Sample returns the texel nearest to the normalized coordinate uvw.
func (t ReadOnlyTexture3D[T]) Sample(s Sampler, uvw sltype.Float3) T {
	return t.Load(sltype.Int3{X: nearest(uvw.X, t.Width), Y: nearest(uvw.Y, t.Height), Z: nearest(uvw.Z, t.Depth)})
}

// Dimensions returns the width, height and depth.
func (t ReadOnlyTexture3D[T]) Dimensions() sltype.Int3 {
	return sltype.Int3{X: t.Width, Y: t.Height, Z: t.Depth}
}

// ReadWriteTexture3D is a 3D texture bound at a u register (HLSL RWTexture3D<T>).
type ReadWriteTexture3D[T any] struct {
	Width, Height, Depth int32
	Data                 []T
}

// Load returns the texel at c.
func (t ReadWriteTexture3D[T]) Load(c sltype.Int3) T {
	return t.Data[(c.Z*t.Height+c.Y)*t.Width+c.X]
}

// Store sets the texel at c.
func (t ReadWriteTexture3D[T]) Store(c sltype.Int3, v T) {
	t.Data[(c.Z*t.Height+c.Y)*t.Width+c.X] = v
}

// Dimensions returns the width, height and depth.
func (t ReadWriteTexture3D[T]) Dimensions() sltype.Int3 {
	return sltype.Int3{X: t.Width, Y: t.Height, Z: t.Depth}
}

func nearest(u float32, n int32) int32 {
	i := int32(u * float32(n))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
