// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sl

import "goki.dev/slkernel/sltype"

// Component-wise comparisons lower to the HLSL operators on vectors,
// and the mask functions to select, and, or, any and all.

// Less2 lowers to (a < b)
func Less2(a, b sltype.Float2) sltype.Bool2 {
	return sltype.Bool2{X: a.X < b.X, Y: a.Y < b.Y}
}

// Less3 lowers to (a < b)
func Less3(a, b sltype.Float3) sltype.Bool3 {
	return sltype.Bool3{X: a.X < b.X, Y: a.Y < b.Y, Z: a.Z < b.Z}
}

// Less4 lowers to (a < b)
func Less4(a, b sltype.Float4) sltype.Bool4 {
	return sltype.Bool4{X: a.X < b.X, Y: a.Y < b.Y, Z: a.Z < b.Z, W: a.W < b.W}
}

// Greater2 lowers to (a > b)
func Greater2(a, b sltype.Float2) sltype.Bool2 {
	return sltype.Bool2{X: a.X > b.X, Y: a.Y > b.Y}
}

// Greater3 lowers to (a > b)
func Greater3(a, b sltype.Float3) sltype.Bool3 {
	return sltype.Bool3{X: a.X > b.X, Y: a.Y > b.Y, Z: a.Z > b.Z}
}

// Greater4 lowers to (a > b)
func Greater4(a, b sltype.Float4) sltype.Bool4 {
	return sltype.Bool4{X: a.X > b.X, Y: a.Y > b.Y, Z: a.Z > b.Z, W: a.W > b.W}
}

// Equal2 lowers to (a == b)
func Equal2(a, b sltype.Float2) sltype.Bool2 {
	return sltype.Bool2{X: a.X == b.X, Y: a.Y == b.Y}
}

// Equal3 lowers to (a == b)
func Equal3(a, b sltype.Float3) sltype.Bool3 {
	return sltype.Bool3{X: a.X == b.X, Y: a.Y == b.Y, Z: a.Z == b.Z}
}

// Equal4 lowers to (a == b)
func Equal4(a, b sltype.Float4) sltype.Bool4 {
	return sltype.Bool4{X: a.X == b.X, Y: a.Y == b.Y, Z: a.Z == b.Z, W: a.W == b.W}
}

// Select2 lowers to select(mask, a, b): a where mask is set, else b.
func Select2(mask sltype.Bool2, a, b sltype.Float2) sltype.Float2 {
	return sltype.Float2{X: pick(mask.X, a.X, b.X), Y: pick(mask.Y, a.Y, b.Y)}
}

// Select3 lowers to select(mask, a, b)
func Select3(mask sltype.Bool3, a, b sltype.Float3) sltype.Float3 {
	return sltype.Float3{X: pick(mask.X, a.X, b.X), Y: pick(mask.Y, a.Y, b.Y), Z: pick(mask.Z, a.Z, b.Z)}
}

// Select4 lowers to select(mask, a, b)
func Select4(mask sltype.Bool4, a, b sltype.Float4) sltype.Float4 {
	return sltype.Float4{X: pick(mask.X, a.X, b.X), Y: pick(mask.Y, a.Y, b.Y), Z: pick(mask.Z, a.Z, b.Z), W: pick(mask.W, a.W, b.W)}
}

// And2 lowers to and(a, b)
func And2(a, b sltype.Bool2) sltype.Bool2 { return sltype.Bool2{X: a.X && b.X, Y: a.Y && b.Y} }

// And3 lowers to and(a, b)
func And3(a, b sltype.Bool3) sltype.Bool3 {
	return sltype.Bool3{X: a.X && b.X, Y: a.Y && b.Y, Z: a.Z && b.Z}
}

// And4 lowers to and(a, b)
func And4(a, b sltype.Bool4) sltype.Bool4 {
	return sltype.Bool4{X: a.X && b.X, Y: a.Y && b.Y, Z: a.Z && b.Z, W: a.W && b.W}
}

// Or2 lowers to or(a, b)
func Or2(a, b sltype.Bool2) sltype.Bool2 { return sltype.Bool2{X: a.X || b.X, Y: a.Y || b.Y} }

// Or3 lowers to or(a, b)
func Or3(a, b sltype.Bool3) sltype.Bool3 {
	return sltype.Bool3{X: a.X || b.X, Y: a.Y || b.Y, Z: a.Z || b.Z}
}

// Or4 lowers to or(a, b)
func Or4(a, b sltype.Bool4) sltype.Bool4 {
	return sltype.Bool4{X: a.X || b.X, Y: a.Y || b.Y, Z: a.Z || b.Z, W: a.W || b.W}
}

// Any2 lowers to any(m)
func Any2(m sltype.Bool2) bool { return m.X || m.Y }

// Any3 lowers to any(m)
func Any3(m sltype.Bool3) bool { return m.X || m.Y || m.Z }

// Any4 lowers to any(m)
func Any4(m sltype.Bool4) bool { return m.X || m.Y || m.Z || m.W }

// All2 lowers to all(m)
func All2(m sltype.Bool2) bool { return m.X && m.Y }

// All3 lowers to all(m)
func All3(m sltype.Bool3) bool { return m.X && m.Y && m.Z }

// All4 lowers to all(m)
func All4(m sltype.Bool4) bool { return m.X && m.Y && m.Z && m.W }

func pick(m bool, a, b float32) float32 {
	if m {
		return a
	}
	return b
}
