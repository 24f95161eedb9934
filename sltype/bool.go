// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sltype

// Bool2 is a length 2 boolean mask (HLSL bool2), as produced by
// component-wise vector comparisons.
type Bool2 struct {
	X, Y bool
}

// Bool3 is a length 3 boolean mask (HLSL bool3)
type Bool3 struct {
	X, Y, Z bool
}

// Bool4 is a length 4 boolean mask (HLSL bool4)
type Bool4 struct {
	X, Y, Z, W bool
}
