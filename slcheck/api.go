// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slcheck

import (
	"fmt"
	"go/ast"
	"go/types"
	"strings"

	"goki.dev/slkernel/slclosure"
	"goki.dev/slkernel/sldiag"
	"goki.dev/slkernel/slsema"
)

func (ctx *Context) isKernelType(t *slsema.Type) bool {
	t = t.Deref()
	return t.Kind == slsema.Struct && t.Obj == ctx.Kernel.Object
}

func (ctx *Context) kernelField(name string) (slsema.Field, bool) {
	return ctx.Checker.Field(ctx.KernelType(), name)
}

// arity returns the argument count a call must have, and whether the
// callee is variadic. ok is false for calls that are not checked.
func (ctx *Context) arity(x *ast.CallExpr) (fun ast.Expr, want int, variadic, ok bool) {
	fun = ast.Unparen(x.Fun)
	if ix, isIndex := fun.(*ast.IndexExpr); isIndex {
		fun = ix.X
	}
	switch r := ctx.Ref(fun); r.Kind {
	case slsema.RefIntrinsic:
		return fun, r.Intrinsic.Args, false, true
	case slsema.RefFunc, slsema.RefMethod:
		sig := ctx.Checker.Signature(r.Obj)
		return fun, len(sig.Params), sig.Variadic, true
	}
	return fun, 0, false, false
}

func init() {
	Register(
		&Rule{Code: sldiag.UnsupportedExpr, Types: []ast.Node{callT},
			Check: func(ctx *Context, n ast.Node) string {
				x := n.(*ast.CallExpr)
				fun, want, variadic, ok := ctx.arity(x)
				if !ok {
					return ""
				}
				got := len(x.Args)
				if got == 1 {
					if t := ctx.TypeOf(x.Args[0]); t != nil && t.Kind == slsema.Tuple {
						got = len(t.Tuple)
					}
				}
				if got == want || (variadic && got >= want-1) {
					return ""
				}
				return fmt.Sprintf("%s takes %d arguments, not %d", types.ExprString(fun), want, got)
			}},
		&Rule{Code: sldiag.AccessorOutsideEntry, Types: []ast.Node{callT},
			Check: func(ctx *Context, n ast.Node) string {
				r := ctx.Ref(ast.Unparen(n.(*ast.CallExpr).Fun))
				if r.Kind != slsema.RefIntrinsic || r.Intrinsic.Kind != slsema.AccessorIntrinsic || ctx.InEntry() {
					return ""
				}
				return fmt.Sprintf("sl.%s is only available in the body of %s, called from %s", r.Intrinsic.Name, slsema.EntryName, ctx.path(ctx.Member))
			}},
		&Rule{Code: sldiag.ReceiverEscapes, Types: []ast.Node{identT},
			Check: func(ctx *Context, n ast.Node) string {
				id := n.(*ast.Ident)
				r := ctx.Ref(id)
				if r.Kind != slsema.RefReceiver || ctx.Info.Defs[id] != nil || !ctx.isKernelType(r.Local.Type) {
					return ""
				}
				if sel, ok := ctx.Parent().(*ast.SelectorExpr); ok && sel.X == n {
					return ""
				}
				return fmt.Sprintf("kernel receiver %s used as a value: access its fields instead", id.Name)
			}},
		&Rule{Code: sldiag.PointerReceiverEntry, Types: []ast.Node{funcDeclT},
			Check: func(ctx *Context, n ast.Node) string {
				if ctx.Member.Kind == slclosure.EntryNode && ctx.IsMemberDecl(n) && ctx.Member.Obj.PtrRecv {
					return fmt.Sprintf("%s must have a value receiver", slsema.EntryName)
				}
				return ""
			}},
		&Rule{Code: sldiag.ReadOnlyWrite, Types: []ast.Node{assignT, incDecT},
			Check: func(ctx *Context, n ast.Node) string {
				var ws []string
				for _, l := range lvalues(n) {
					name, indexed, ok := ctx.rootField(l)
					if !ok {
						continue
					}
					f, ok := ctx.kernelField(name)
					if !ok {
						continue
					}
					switch t := f.Type; {
					case t.Kind == slsema.Resource:
						if indexed && !t.Resource.ReadWrite() {
							ws = append(ws, fmt.Sprintf("%s is a read-only %s", name, t.Resource.HLSL()))
						}
					case t.Kind != slsema.Sampler:
						ws = append(ws, fmt.Sprintf("%s is a constant buffer field", name))
					}
				}
				if len(ws) == 0 {
					return ""
				}
				return "write to read-only data: " + strings.Join(ws, ", ")
			}},
	)
}
