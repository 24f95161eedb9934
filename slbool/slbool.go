// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
package slbool defines a HLSL int32 Bool type -- the standard bool type
is not allowed in kernel fields or buffer elements, because its size and
alignment differ between Go and HLSL. Bool lowers to HLSL int, True to 1
and False to 0.
*/
package slbool

type Bool int32

const (
	False Bool = 0
	True  Bool = 1
)

// IsTrue lowers to (b == 1)
func IsTrue(b Bool) bool {
	return b == True
}

// IsFalse lowers to (b == 0)
func IsFalse(b Bool) bool {
	return b == False
}

// FromBool lowers to (b ? 1 : 0)
func FromBool(b bool) Bool {
	if b {
		return True
	}
	return False
}

func (b Bool) IsTrue() bool {
	return b == True
}

func (b Bool) IsFalse() bool {
	return b == False
}

// SetBool sets b from the standard bool value.
func (b *Bool) SetBool(bv bool) {
	*b = FromBool(bv)
}

func (b Bool) String() string {
	if b.IsTrue() {
		return "true"
	}
	return "false"
}
