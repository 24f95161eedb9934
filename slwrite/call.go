// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slwrite

import (
	"fmt"
	"go/ast"
	"strings"

	"goki.dev/slkernel/alignsl"
	"goki.dev/slkernel/slsema"
)

// callee returns the function operand of a call, looking through the
// explicit instantiation of generic API functions.
func (w *writer) callee(x *ast.CallExpr) (ast.Expr, slsema.Ref) {
	fun := ast.Unparen(x.Fun)
	if ix, ok := fun.(*ast.IndexExpr); ok {
		if r := w.info.RefOf(ix.X); r.Kind == slsema.RefIntrinsic {
			return ix.X, r
		}
	}
	return fun, w.info.RefOf(fun)
}

// intrinsicOf returns the intrinsic a call lowers through, or nil.
func (w *writer) intrinsicOf(x *ast.CallExpr) *slsema.Intrinsic {
	if x == nil {
		return nil
	}
	_, r := w.callee(x)
	if r.Kind == slsema.RefIntrinsic {
		return r.Intrinsic
	}
	return nil
}

// recvOf returns the receiver operand of a method call.
func recvOf(fun ast.Expr) ast.Expr {
	if sel, ok := fun.(*ast.SelectorExpr); ok {
		return sel.X
	}
	return nil
}

// call lowers a call. A call whose value is used is an expression,
// otherwise the caller emits it as a statement.
func (w *writer) call(x *ast.CallExpr, used bool) string {
	fun, r := w.callee(x)
	switch r.Kind {
	case slsema.RefType:
		return w.conversion(x)
	case slsema.RefBuiltin:
		return w.builtin(x, r.Name)
	case slsema.RefIntrinsic:
		return w.intrinsic(x, fun, r, used)
	case slsema.RefFunc:
		return w.funcName(r.Obj) + "(" + strings.Join(w.args(x, r.Obj), ", ") + ")"
	case slsema.RefMethod:
		var as []string
		if !w.isKernel(r.Recv) {
			rx := recvOf(fun)
			if r.Obj.PtrRecv {
				w.markWritten(rx)
				as = append(as, w.lvalue(rx))
			} else {
				as = append(as, w.expr(rx))
			}
		}
		as = append(as, w.args(x, r.Obj)...)
		return w.funcName(r.Obj) + "(" + strings.Join(as, ", ") + ")"
	}
	return w.standIn(x)
}

// args lowers the arguments of a user function: pointer parameters
// take the variable they point to.
func (w *writer) args(x *ast.CallExpr, fn *slsema.Object) []string {
	sig := w.c.Signature(fn)
	as := make([]string, len(x.Args))
	for i, a := range x.Args {
		if i < len(sig.Params) && sig.Params[i].Type.Kind == slsema.Pointer {
			w.markWritten(a)
			as[i] = w.lvalue(a)
			continue
		}
		as[i] = w.expr(a)
	}
	return as
}

func (w *writer) conversion(x *ast.CallExpr) string {
	t := w.info.TypeOf(x)
	if len(x.Args) != 1 {
		return w.standIn(x)
	}
	a := x.Args[0]
	at := w.info.TypeOf(a)
	if t.Kind == slsema.Struct || slsema.Identical(t, at) && !at.Untyped {
		return w.expr(a)
	}
	return w.res.Type(t) + "(" + w.expr(a) + ")"
}

func (w *writer) builtin(x *ast.CallExpr, name string) string {
	switch name {
	case "len", "cap":
		if len(x.Args) == 1 && w.info.TypeOf(x.Args[0]).Deref().Kind == slsema.Resource {
			buf := w.expr(x.Args[0])
			n, s := w.temp("_n"), w.temp("_s")
			w.pre = append(w.pre,
				fmt.Sprintf("uint %s, %s;", n, s),
				fmt.Sprintf("%s.GetDimensions(%s, %s);", buf, n, s))
			return "int(" + n + ")"
		}
	case "min", "max":
		if len(x.Args) == 0 {
			break
		}
		s := w.expr(x.Args[0])
		for _, a := range x.Args[1:] {
			s = name + "(" + s + ", " + w.expr(a) + ")"
		}
		return s
	}
	return w.standIn(x)
}

// intrinsic lowers a call to an API function or method.
func (w *writer) intrinsic(x *ast.CallExpr, fun ast.Expr, r slsema.Ref, used bool) string {
	in := r.Intrinsic
	if in.Helper != "" {
		w.useHelper(in.Helper)
	}
	var rx ast.Expr
	if r.Recv != nil {
		rx = recvOf(fun)
	}
	switch in.Kind {
	case slsema.CallIntrinsic:
		as := w.intrinsicArgs(x)
		if in.Swap && len(as) == 2 {
			as[0], as[1] = as[1], as[0]
		}
		if rx != nil {
			as = append([]string{w.expr(rx)}, as...)
		}
		return in.HLSL + "(" + strings.Join(as, ", ") + ")"
	case slsema.OpIntrinsic:
		var ops []string
		if rx != nil {
			ops = append(ops, w.expr(rx))
		}
		ops = append(ops, w.intrinsicArgs(x)...)
		if len(ops) != 2 {
			return w.standIn(x)
		}
		return "(" + ops[0] + " " + in.HLSL + " " + ops[1] + ")"
	case slsema.UnaryIntrinsic:
		a := ""
		if rx != nil {
			a = w.expr(rx)
		} else if len(x.Args) > 0 {
			a = w.expr(x.Args[0])
		}
		return "(" + in.HLSL + a + ")"
	case slsema.SwizzleIntrinsic:
		if rx == nil {
			return w.standIn(x)
		}
		return w.expr(rx) + "." + in.HLSL
	case slsema.TemplateIntrinsic:
		var as []any
		if rx != nil {
			if in.Result(r.Recv, nil).Kind == slsema.Void {
				w.markWritten(rx)
				as = append(as, w.lvalue(rx))
			} else {
				as = append(as, w.expr(rx))
			}
		}
		for _, a := range w.intrinsicArgs(x) {
			as = append(as, a)
		}
		return fmt.Sprintf(in.HLSL, as...)
	case slsema.AccessorIntrinsic:
		return w.accessor(in.Name)
	case slsema.TextureIntrinsic:
		return w.texture(x, rx, r.Recv, in.HLSL)
	case slsema.AtomicIntrinsic:
		return w.atomic(x, in, used)
	case slsema.OutIntrinsic:
		t := w.info.TypeOf(x)
		targets := make([]string, len(t.Tuple))
		for i, rt := range t.Tuple {
			targets[i] = w.temp("_r")
			w.pre = append(w.pre, w.res.Declare(rt, targets[i])+";")
		}
		w.pre = append(w.pre, w.outCall(x, in, targets)+";")
		if len(targets) > 0 {
			return targets[0]
		}
		return ""
	}
	return w.standIn(x)
}

// intrinsicArgs lowers the arguments of an intrinsic: pointers are
// passed as the variable they point to, which HLSL passes inout.
func (w *writer) intrinsicArgs(x *ast.CallExpr) []string {
	as := make([]string, len(x.Args))
	for i, a := range x.Args {
		if w.info.TypeOf(a).Kind == slsema.Pointer {
			w.markWritten(a)
			as[i] = w.lvalue(a)
			continue
		}
		as[i] = w.expr(a)
	}
	return as
}

// outCall lowers a call to an intrinsic with out arguments, storing
// the results in targets.
func (w *writer) outCall(x *ast.CallExpr, in *slsema.Intrinsic, targets []string) string {
	as := w.intrinsicArgs(x)
	for _, o := range in.Outs {
		if o < len(targets) {
			as = append(as, targets[o])
		}
	}
	call := in.HLSL + "(" + strings.Join(as, ", ") + ")"
	if in.Ret >= 0 && in.Ret < len(targets) {
		return targets[in.Ret] + " = " + call
	}
	return call
}

// accessor lowers a dispatch coordinate accessor to an int3.
func (w *writer) accessor(name string) string {
	switch name {
	case "ThreadId":
		return "int3(" + ThreadIDVar + ")"
	case "GroupId":
		return "int3(" + GroupIDVar + ")"
	case "GroupThreadId":
		return "int3(" + GroupThreadIDVar + ")"
	case "GroupSize":
		return "int3(" + strings.Join(NumThreadsMacros[:], ", ") + ")"
	case "DispatchSize":
		var cs [3]string
		for i, b := range alignsl.BoundNames {
			cs[i] = "1"
			if w.layout.Bounds[i] >= 0 {
				cs[i] = "int(" + b + ")"
			}
		}
		return "int3(" + strings.Join(cs[:], ", ") + ")"
	}
	return "int3(0, 0, 0)"
}

// texture lowers a texture method.
func (w *writer) texture(x *ast.CallExpr, rx ast.Expr, rt *slsema.Type, op string) string {
	if rx == nil {
		return w.standIn(x)
	}
	rt = rt.Deref()
	tex := w.expr(rx)
	as := w.intrinsicArgs(x)
	n := rt.Resource.Dims()
	switch op {
	case "load":
		if len(as) != 1 {
			break
		}
		if rt.Resource.ReadWrite() {
			return tex + "[" + as[0] + "]"
		}
		return fmt.Sprintf("%s.Load(int%d(%s, 0))", tex, n+1, as[0])
	case "store":
		if len(as) != 2 {
			break
		}
		return tex + "[" + as[0] + "] = " + as[1]
	case "sample":
		if len(as) != 2 {
			break
		}
		return fmt.Sprintf("%s.SampleLevel(%s, %s, 0)", tex, as[0], as[1])
	case "dims":
		names := make([]string, n)
		for i := range names {
			names[i] = w.temp("_d")
		}
		w.pre = append(w.pre,
			"uint "+strings.Join(names, ", ")+";",
			tex+".GetDimensions("+strings.Join(names, ", ")+");")
		return fmt.Sprintf("int%d(%s)", n, strings.Join(names, ", "))
	}
	return w.standIn(x)
}

// atomic lowers an atomic read-modify-write. The original value is
// only fetched when used, except for exchanges which always take it.
func (w *writer) atomic(x *ast.CallExpr, in *slsema.Intrinsic, used bool) string {
	as := w.intrinsicArgs(x)
	if len(as) != 2 {
		return w.standIn(x)
	}
	if !used && in.HLSL != "InterlockedExchange" {
		w.pre = append(w.pre, in.HLSL+"("+as[0]+", "+as[1]+");")
		return ""
	}
	t := w.info.TypeOf(x)
	tmp := w.temp("_o")
	w.pre = append(w.pre,
		w.res.Declare(t, tmp)+";",
		in.HLSL+"("+as[0]+", "+as[1]+", "+tmp+");")
	return tmp
}
