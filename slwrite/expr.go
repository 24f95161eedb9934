// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slwrite

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"strconv"
	"strings"

	"goki.dev/slkernel/sldiag"
	"goki.dev/slkernel/slsema"
)

// expr lowers an expression. Constant expressions become literals.
func (w *writer) expr(e ast.Expr) string {
	if v := w.info.ConstOf(e); v != nil && v.Kind() != constant.Unknown {
		if t := w.info.TypeOf(e); t.Kind == slsema.Scalar {
			return Literal(v, t)
		}
	}
	switch x := e.(type) {
	case *ast.Ident:
		return w.ident(x)
	case *ast.BasicLit:
		return x.Value
	case *ast.ParenExpr:
		return "(" + w.expr(x.X) + ")"
	case *ast.SelectorExpr:
		return w.selector(x)
	case *ast.CompositeLit:
		return w.composite(x)
	case *ast.CallExpr:
		return w.call(x, true)
	case *ast.BinaryExpr:
		return w.binary(x)
	case *ast.UnaryExpr:
		return w.unary(x)
	case *ast.StarExpr:
		return w.expr(x.X)
	case *ast.IndexExpr:
		return w.index(x)
	case *ast.SliceExpr, *ast.TypeAssertExpr, *ast.FuncLit, *ast.IndexListExpr:
		return w.standIn(e)
	}
	w.diag(sldiag.UnsupportedExpr, e, "cannot lower %T", e)
	return w.standIn(e)
}

// standIn returns the zero value of the type of an expression that
// cannot be lowered, which the validator has reported.
func (w *writer) standIn(e ast.Expr) string {
	if t := w.info.TypeOf(e); t.IsValid() && t.Kind != slsema.Func && t.Kind != slsema.Tuple {
		return w.res.Zero(t)
	}
	return "0"
}

// lvalue lowers an operand passed by reference: &x and *p are x and p.
func (w *writer) lvalue(e ast.Expr) string {
	switch x := ast.Unparen(e).(type) {
	case *ast.UnaryExpr:
		if x.Op == token.AND {
			return w.expr(x.X)
		}
	case *ast.StarExpr:
		return w.expr(x.X)
	}
	return w.expr(e)
}

func (w *writer) ident(x *ast.Ident) string {
	r := w.info.RefOf(x)
	switch r.Kind {
	case slsema.RefLocal, slsema.RefParam, slsema.RefReceiver:
		return w.local(r.Local)
	case slsema.RefVar:
		return w.varName(r.Obj)
	case slsema.RefFunc:
		return w.funcName(r.Obj)
	case slsema.RefType:
		if t := w.info.TypeOf(x); t.IsValid() {
			return w.res.Type(t)
		}
	}
	return x.Name
}

func (w *writer) varName(o *slsema.Object) string {
	if n, ok := w.vars[o.ID()]; ok {
		return n
	}
	return o.Name
}

func (w *writer) funcName(o *slsema.Object) string {
	if n, ok := w.funcs[o.ID()]; ok {
		return n
	}
	return o.Name
}

func (w *writer) selector(x *ast.SelectorExpr) string {
	r := w.info.RefOf(x)
	switch r.Kind {
	case slsema.RefField:
		if w.isKernel(r.Recv) {
			return w.res.Field(r.Name)
		}
		return w.expr(x.X) + "." + MemberName(r.Name)
	case slsema.RefComponent:
		return w.expr(x.X) + "." + strings.ToLower(r.Name)
	case slsema.RefVar:
		return w.varName(r.Obj)
	case slsema.RefFunc:
		return w.funcName(r.Obj)
	case slsema.RefType:
		if t := w.info.TypeOf(x); t.IsValid() {
			return w.res.Type(t)
		}
	}
	return w.expr(x.X) + "." + x.Sel.Name
}

// initializer lowers the initial value of a declaration, where
// composite literals are initializer lists.
func (w *writer) initializer(e ast.Expr) string {
	saved := w.init
	w.init = true
	defer func() { w.init = saved }()
	if _, ok := ast.Unparen(e).(*ast.CompositeLit); !ok {
		w.init = false
	}
	return w.expr(e)
}

// composite lowers a composite literal: structs construct through
// their constructor helper, vectors and matrices through the HLSL
// constructor, arrays through initializer lists.
func (w *writer) composite(x *ast.CompositeLit) string {
	t := w.info.TypeOf(x)
	switch t.Kind {
	case slsema.Struct:
		fs := w.c.Fields(t)
		vals := make([]string, len(fs))
		for i, f := range fs {
			vals[i] = w.res.Zero(f.Type)
		}
		for i, el := range x.Elts {
			if kv, ok := el.(*ast.KeyValueExpr); ok {
				if key, ok := kv.Key.(*ast.Ident); ok {
					for j, f := range fs {
						if f.Name == key.Name {
							vals[j] = w.element(kv.Value)
						}
					}
				}
				continue
			}
			if i < len(vals) {
				vals[i] = w.element(el)
			}
		}
		if w.init {
			return "{" + strings.Join(vals, ", ") + "}"
		}
		return w.ctor(t) + "(" + strings.Join(vals, ", ") + ")"
	case slsema.Vector, slsema.Matrix:
		n := t.Len
		if t.Kind == slsema.Matrix {
			n = t.Rows * t.Cols
		}
		if len(x.Elts) == 0 {
			return w.res.Zero(t)
		}
		vals := make([]string, n)
		zero := w.res.Zero(t.Component())
		for i := range vals {
			vals[i] = zero
		}
		for i, el := range x.Elts {
			if kv, ok := el.(*ast.KeyValueExpr); ok {
				idx := -1
				if key, ok := kv.Key.(*ast.Ident); ok && t.Kind == slsema.Vector {
					idx = slsema.ComponentIndex(key.Name)
				} else if v := w.info.ConstOf(kv.Key); v != nil {
					if iv, ok := constant.Int64Val(constant.ToInt(v)); ok {
						idx = int(iv)
					}
				}
				if idx >= 0 && idx < n {
					vals[idx] = w.expr(kv.Value)
				}
				continue
			}
			if i < n {
				vals[i] = w.expr(el)
			}
		}
		return w.res.Type(t) + "(" + strings.Join(vals, ", ") + ")"
	case slsema.Array:
		vals := make([]string, t.Len)
		zero := w.res.Zero(t.Elem)
		for i := range vals {
			vals[i] = zero
		}
		pos := 0
		for _, el := range x.Elts {
			v := el
			if kv, ok := el.(*ast.KeyValueExpr); ok {
				if c := w.info.ConstOf(kv.Key); c != nil {
					if iv, ok := constant.Int64Val(constant.ToInt(c)); ok {
						pos = int(iv)
					}
				}
				v = kv.Value
			}
			if pos >= 0 && pos < t.Len {
				vals[pos] = w.element(v)
			}
			pos++
		}
		list := "{" + strings.Join(vals, ", ") + "}"
		if w.init {
			return list
		}
		tmp := w.temp("_a")
		w.pre = append(w.pre, w.res.Declare(t, tmp)+" = "+list+";")
		return tmp
	}
	return w.standIn(x)
}

// element lowers an element of a composite literal: nested composites
// inside initializer lists are initializer lists too.
func (w *writer) element(e ast.Expr) string {
	if w.init {
		if _, ok := ast.Unparen(e).(*ast.CompositeLit); !ok {
			saved := w.init
			w.init = false
			defer func() { w.init = saved }()
		}
	}
	return w.expr(e)
}

// bitOp reports whether op has a different precedence in HLSL than
// in Go relative to arithmetic and comparisons.
func bitOp(op token.Token) bool {
	switch op {
	case token.AND, token.OR, token.XOR, token.SHL, token.SHR, token.AND_NOT:
		return true
	}
	return false
}

// operand lowers a binary operand, parenthesized where the HLSL
// precedence differs from Go.
func (w *writer) operand(e ast.Expr, parent token.Token) string {
	s := w.expr(e)
	b, ok := e.(*ast.BinaryExpr)
	if !ok || w.info.ConstOf(e) != nil {
		return s
	}
	if bitOp(b.Op) || bitOp(parent) {
		return "(" + s + ")"
	}
	return s
}

// shiftWidth returns the bit width of an integer operand whose shift
// by the constant count c clears or fills every bit, or 0. Go defines
// such shifts while HLSL masks the count.
func shiftWidth(t *slsema.Type, c constant.Value) int {
	if c == nil || (t.Kind != slsema.Scalar && t.Kind != slsema.Vector) {
		return 0
	}
	width := 32
	switch t.Scalar {
	case slsema.Int, slsema.Uint:
	case slsema.Int64, slsema.Uint64:
		width = 64
	default:
		return 0
	}
	if n, ok := constant.Uint64Val(constant.ToInt(c)); ok && n >= uint64(width) {
		return width
	}
	return 0
}

func signed(t *slsema.Type) bool {
	return t.Scalar == slsema.Int || t.Scalar == slsema.Int64
}

// wideShift lowers l shifted by at least its width: a signed right
// shift fills with the sign bit, any other shift gives 0.
func wideShift(op token.Token, l string, t *slsema.Type, width int) string {
	last := strconv.Itoa(width - 1)
	if op == token.SHR && signed(t) {
		return l + " >> " + last
	}
	return l + " " + op.String() + " " + last + " " + op.String() + " 1"
}

func (w *writer) binary(x *ast.BinaryExpr) string {
	l := w.operand(x.X, x.Op)
	if x.Op == token.SHL || x.Op == token.SHR {
		lt := w.info.TypeOf(x.X)
		if width := shiftWidth(lt, w.info.ConstOf(x.Y)); width > 0 {
			return wideShift(x.Op, l, lt, width)
		}
	}
	r := w.operand(x.Y, x.Op)
	if x.Op == token.AND_NOT {
		return l + " & ~" + paren(r)
	}
	if lt := w.info.TypeOf(x.X); lt.Kind == slsema.Vector {
		switch x.Op {
		case token.EQL:
			return "all(" + l + " == " + r + ")"
		case token.NEQ:
			return "any(" + l + " != " + r + ")"
		}
	}
	return l + " " + x.Op.String() + " " + r
}

// paren wraps s unless it is a single identifier or literal.
func paren(s string) string {
	for _, c := range s {
		if !(c == '_' || c == '.' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return "(" + s + ")"
		}
	}
	return s
}

func (w *writer) unary(x *ast.UnaryExpr) string {
	switch x.Op {
	case token.AND:
		return w.expr(x.X)
	case token.ADD:
		return w.expr(x.X)
	case token.ARROW:
		return w.standIn(x)
	}
	op := x.Op.String()
	if x.Op == token.XOR {
		op = "~"
	}
	s := w.expr(x.X)
	if strings.HasPrefix(s, op) || strings.HasPrefix(s, "-") && op == "-" {
		s = " " + s
	}
	return op + s
}

func (w *writer) index(x *ast.IndexExpr) string {
	t := w.info.TypeOf(x.X).Deref()
	xs := w.expr(x.X)
	if t.Kind == slsema.Matrix {
		// flat element of the row-major matrix
		if v := w.info.ConstOf(x.Index); v != nil {
			if i, ok := constant.Int64Val(constant.ToInt(v)); ok {
				return fmt.Sprintf("%s[%d][%d]", xs, int(i)/t.Cols, int(i)%t.Cols)
			}
		}
		i := paren(w.expr(x.Index))
		return fmt.Sprintf("%s[%s / %d][%s %% %d]", xs, i, t.Cols, i, t.Cols)
	}
	return xs + "[" + w.expr(x.Index) + "]"
}
