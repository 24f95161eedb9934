// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slwrite

import (
	"fmt"
	"go/constant"
	"math"
	"strconv"
	"strings"

	"goki.dev/slkernel/slsema"
)

// Types spells shader types with the HLSL names of user structs.
type Types struct {
	// Structs maps struct identities to their HLSL names.
	Structs map[string]string
}

// Type returns the HLSL spelling of t, without array dimensions.
func (ts *Types) Type(t *slsema.Type) string {
	switch t.Kind {
	case slsema.Scalar:
		if t.Bool32 {
			return "int"
		}
		if t.Untyped {
			return t.Default().HLSL()
		}
	case slsema.Struct:
		if n, ok := ts.Structs[t.Obj.ID()]; ok {
			return n
		}
	case slsema.Array, slsema.Pointer:
		return ts.Type(t.Elem)
	case slsema.Resource:
		return t.Resource.HLSL() + "<" + ts.Type(t.Elem) + ">"
	}
	return t.HLSL()
}

// dims returns the array dimensions of t, as in "[4][2]".
func dims(t *slsema.Type) string {
	var b strings.Builder
	for ; t.Kind == slsema.Array; t = t.Elem {
		fmt.Fprintf(&b, "[%d]", t.Len)
	}
	return b.String()
}

// Declare returns the declaration of name with type t.
func (ts *Types) Declare(t *slsema.Type, name string) string {
	t = t.Deref()
	return ts.Type(t) + " " + name + dims(t)
}

// Zero returns the zero value of t.
func (ts *Types) Zero(t *slsema.Type) string {
	switch t.Kind {
	case slsema.Scalar:
		if t.IsBool() {
			return "false"
		}
		return Literal(constant.MakeInt64(0), t)
	case slsema.Array:
		return "(" + ts.Type(t) + dims(t) + ")0"
	}
	return "(" + ts.Type(t) + ")0"
}

// Literal formats a constant of type t: floats always carry a decimal
// point or exponent, unsigned integers a u suffix and doubles an L
// suffix.
func Literal(v constant.Value, t *slsema.Type) string {
	t = t.Default()
	if v == nil || v.Kind() == constant.Unknown {
		return "0"
	}
	if v.Kind() == constant.Bool {
		if t.Bool32 {
			if constant.BoolVal(v) {
				return "1"
			}
			return "0"
		}
		return strconv.FormatBool(constant.BoolVal(v))
	}
	switch t.Scalar {
	case slsema.Float:
		f, _ := constant.Float32Val(constant.ToFloat(v))
		return formatFloat(float64(f), 32)
	case slsema.Double:
		f, _ := constant.Float64Val(constant.ToFloat(v))
		return formatFloat(f, 64) + "L"
	case slsema.Uint:
		return intLiteral(v) + "u"
	case slsema.Int64:
		return intLiteral(v) + "ll"
	case slsema.Uint64:
		return intLiteral(v) + "ull"
	}
	return intLiteral(v)
}

func intLiteral(v constant.Value) string {
	iv := constant.ToInt(v)
	if iv.Kind() != constant.Int {
		// truncation of a float constant
		f, _ := constant.Float64Val(v)
		return strconv.FormatInt(int64(f), 10)
	}
	return iv.ExactString()
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsInf(f, 1):
		return "1.#INF"
	case math.IsInf(f, -1):
		return "-1.#INF"
	case math.IsNaN(f):
		return "0.0/0.0"
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
