// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slcheck

import (
	"fmt"
	"go/ast"
	"go/token"

	"github.com/gogpu/naga/hlsl"
	"goki.dev/slkernel/sldiag"
	"goki.dev/slkernel/slsema"
)

var (
	callT       = (*ast.CallExpr)(nil)
	identT      = (*ast.Ident)(nil)
	selectorT   = (*ast.SelectorExpr)(nil)
	unaryT      = (*ast.UnaryExpr)(nil)
	compositeT  = (*ast.CompositeLit)(nil)
	funcDeclT   = (*ast.FuncDecl)(nil)
	typeSpecT   = (*ast.TypeSpec)(nil)
	valueSpecT  = (*ast.ValueSpec)(nil)
	fieldT      = (*ast.Field)(nil)
	starT       = (*ast.StarExpr)(nil)
	arrayTypeT  = (*ast.ArrayType)(nil)
	basicLitT   = (*ast.BasicLit)(nil)
	branchT     = (*ast.BranchStmt)(nil)
	assignT     = (*ast.AssignStmt)(nil)
	incDecT     = (*ast.IncDecStmt)(nil)
	indexExprT  = (*ast.IndexExpr)(nil)
	rangeT      = (*ast.RangeStmt)(nil)
	ellipsisT   = (*ast.Ellipsis)(nil)
	returnT     = (*ast.ReturnStmt)(nil)
	structTypeT = (*ast.StructType)(nil)
)

// builtinCall returns the name of the builtin n calls, or "".
func builtinCall(ctx *Context, n ast.Node) string {
	call := n.(*ast.CallExpr)
	fun := ast.Unparen(call.Fun)
	switch r := ctx.Ref(fun); r.Kind {
	case slsema.RefBuiltin:
		return r.Name
	case slsema.RefInvalid:
		// unchecked code still names builtins
		if id, ok := fun.(*ast.Ident); ok && slsema.IsBuiltin(id.Name) {
			return id.Name
		}
	}
	return ""
}

func builtinRule(code sldiag.Code, name, msg string) *Rule {
	return &Rule{Code: code, Types: []ast.Node{callT}, Check: func(ctx *Context, n ast.Node) string {
		if builtinCall(ctx, n) == name {
			return msg
		}
		return ""
	}}
}

// nodeRule reports msg for every node of the given type.
func nodeRule(code sldiag.Code, t ast.Node, msg string) *Rule {
	return &Rule{Code: code, Types: []ast.Node{t}, Check: func(*Context, ast.Node) string { return msg }}
}

// hasSuspension reports whether n contains a channel operation.
func hasSuspension(n ast.Node) bool {
	found := false
	ast.Inspect(n, func(x ast.Node) bool {
		switch x := x.(type) {
		case *ast.SendStmt, *ast.SelectStmt:
			found = true
		case *ast.UnaryExpr:
			if x.Op == token.ARROW {
				found = true
			}
		}
		return !found
	})
	return found
}

// typeNamed returns the predeclared type name an identifier denotes, or "".
func typeNamed(ctx *Context, id *ast.Ident) string {
	if r := ctx.Ref(id); r.Kind == slsema.RefType && r.Obj == nil {
		return r.Name
	}
	return ""
}

// inSignatureParams reports whether the stack is within the parameters
// or receiver of a function.
func inSignatureParams(stack []ast.Node) bool {
	for i := len(stack) - 1; i > 0; i-- {
		fl, ok := stack[i].(*ast.FieldList)
		if !ok {
			continue
		}
		switch p := stack[i-1].(type) {
		case *ast.FuncType:
			return p.Params == fl
		case *ast.FuncDecl:
			return p.Recv == fl
		}
		return false
	}
	return false
}

// inStructFields reports whether the stack is within struct fields.
func inStructFields(stack []ast.Node) bool {
	for i := len(stack) - 1; i > 0; i-- {
		if _, ok := stack[i].(*ast.FieldList); ok {
			_, ok := stack[i-1].(*ast.StructType)
			return ok
		}
	}
	return false
}

func init() {
	Register(
		builtinRule(sldiag.Panic, "panic", "panic is not supported in kernels"),
		builtinRule(sldiag.Recover, "recover", "recover is not supported in kernels"),
		nodeRule(sldiag.Defer, (*ast.DeferStmt)(nil), "defer is not supported in kernels"),
		nodeRule(sldiag.Goroutine, (*ast.GoStmt)(nil), "go statements are not supported in kernels"),
		&Rule{Code: sldiag.Suspension, Types: []ast.Node{(*ast.SendStmt)(nil), (*ast.SelectStmt)(nil), unaryT},
			Check: func(ctx *Context, n ast.Node) string {
				switch n := n.(type) {
				case *ast.SendStmt:
					return "channel send suspends the invocation"
				case *ast.SelectStmt:
					return "select suspends the invocation"
				case *ast.UnaryExpr:
					if n.Op == token.ARROW {
						return "channel receive suspends the invocation"
					}
				}
				return ""
			}},
		&Rule{Code: sldiag.BlockingModifier, Types: []ast.Node{funcDeclT, valueSpecT},
			Check: func(ctx *Context, n ast.Node) string {
				if ctx.IsMemberDecl(n) && hasSuspension(n) {
					return fmt.Sprintf("%s blocks on channel operations", ctx.Member.Name)
				}
				return ""
			}},
		builtinRule(sldiag.NewCall, "new", "new allocates: declare a zero value instead"),
		builtinRule(sldiag.MakeCall, "make", "make allocates: use fixed size arrays"),
		&Rule{Code: sldiag.AddressOfComposite, Types: []ast.Node{unaryT},
			Check: func(ctx *Context, n ast.Node) string {
				u := n.(*ast.UnaryExpr)
				if _, ok := ast.Unparen(u.X).(*ast.CompositeLit); ok && u.Op == token.AND {
					return "address of a composite literal allocates"
				}
				return ""
			}},
		&Rule{Code: sldiag.SliceLiteral, Types: []ast.Node{compositeT},
			Check: func(ctx *Context, n ast.Node) string {
				if at, ok := n.(*ast.CompositeLit).Type.(*ast.ArrayType); ok && at.Len == nil {
					return "slice literals are not supported: use a fixed size array"
				}
				return ""
			}},
		&Rule{Code: sldiag.MapLiteral, Types: []ast.Node{compositeT},
			Check: func(ctx *Context, n ast.Node) string {
				if _, ok := n.(*ast.CompositeLit).Type.(*ast.MapType); ok {
					return "map literals are not supported"
				}
				return ""
			}},
		&Rule{Code: sldiag.AnonymousStruct, Types: []ast.Node{structTypeT},
			Check: func(ctx *Context, n ast.Node) string {
				if ts, ok := ctx.Parent().(*ast.TypeSpec); ok && ts.Type == n {
					return ""
				}
				return "anonymous struct types are not supported: declare a named type"
			}},
		&Rule{Code: sldiag.InterfaceType, Types: []ast.Node{(*ast.InterfaceType)(nil), identT},
			Check: func(ctx *Context, n ast.Node) string {
				switch n := n.(type) {
				case *ast.InterfaceType:
					return "interface types are not supported"
				case *ast.Ident:
					if nm := typeNamed(ctx, n); nm == "any" || nm == "error" {
						return fmt.Sprintf("interface type %s is not supported", nm)
					}
				}
				return ""
			}},
		&Rule{Code: sldiag.TypeAssertion, Types: []ast.Node{(*ast.TypeAssertExpr)(nil)},
			Check: func(ctx *Context, n ast.Node) string {
				if n.(*ast.TypeAssertExpr).Type != nil {
					return "type assertions are not supported"
				}
				return ""
			}},
		nodeRule(sldiag.TypeSwitch, (*ast.TypeSwitchStmt)(nil), "type switches are not supported"),
		&Rule{Code: sldiag.Reflect, Types: []ast.Node{identT},
			Check: func(ctx *Context, n ast.Node) string {
				if r := ctx.Ref(n); r.Kind == slsema.RefPackage && r.Path == "reflect" {
					return "package reflect is not available in kernels"
				}
				return ""
			}},
		&Rule{Code: sldiag.Unsafe, Types: []ast.Node{identT},
			Check: func(ctx *Context, n ast.Node) string {
				if r := ctx.Ref(n); r.Kind == slsema.RefPackage && r.Path == "unsafe" {
					return "package unsafe is not available in kernels"
				}
				return ""
			}},
		&Rule{Code: sldiag.PointerType, Types: []ast.Node{starT},
			Check: func(ctx *Context, n ast.Node) string {
				s := n.(*ast.StarExpr)
				t := ctx.TypeOf(s)
				if t.Kind != slsema.Pointer || !slsema.Identical(t.Elem, ctx.TypeOf(s.X)) {
					return ""
				}
				if inSignatureParams(ctx.Stack) || inStructFields(ctx.Stack) {
					return ""
				}
				return "pointer types are only supported for parameters and receivers"
			}},
		&Rule{Code: sldiag.SliceType, Types: []ast.Node{arrayTypeT},
			Check: func(ctx *Context, n ast.Node) string {
				at := n.(*ast.ArrayType)
				if at.Len != nil {
					return ""
				}
				if cl, ok := ctx.Parent().(*ast.CompositeLit); ok && cl.Type == n {
					return ""
				}
				return "slice types are not supported: use a fixed size array or a buffer"
			}},
		nodeRule(sldiag.SliceExpr, (*ast.SliceExpr)(nil), "slice expressions are not supported"),
		&Rule{Code: sldiag.RangeNonInteger, Types: []ast.Node{rangeT},
			Check: func(ctx *Context, n ast.Node) string {
				rs := n.(*ast.RangeStmt)
				if t := ctx.TypeOf(rs.X); !t.IsInteger() {
					return fmt.Sprintf("range over %s: only integer ranges are supported", t)
				}
				return ""
			}},
		nodeRule(sldiag.FuncLit, (*ast.FuncLit)(nil), "function literals are not supported"),
		&Rule{Code: sldiag.MultipleResults, Types: []ast.Node{funcDeclT},
			Check: func(ctx *Context, n ast.Node) string {
				fd := n.(*ast.FuncDecl)
				if fd.Type.Results.NumFields() > 1 {
					return fmt.Sprintf("%s returns %d results: return a struct", fd.Name.Name, fd.Type.Results.NumFields())
				}
				return ""
			}},
		&Rule{Code: sldiag.String, Types: []ast.Node{basicLitT, identT},
			Check: func(ctx *Context, n ast.Node) string {
				switch n := n.(type) {
				case *ast.BasicLit:
					if n.Kind != token.STRING {
						return ""
					}
					if f, ok := ctx.Parent().(*ast.Field); ok && f.Tag == n {
						return ""
					}
					return "strings are not supported"
				case *ast.Ident:
					if typeNamed(ctx, n) == "string" {
						return "type string is not supported"
					}
				}
				return ""
			}},
		nodeRule(sldiag.MapType, (*ast.MapType)(nil), "map types are not supported"),
		nodeRule(sldiag.ChanType, (*ast.ChanType)(nil), "channel types are not supported"),
		&Rule{Code: sldiag.Goto, Types: []ast.Node{branchT},
			Check: func(ctx *Context, n ast.Node) string {
				if n.(*ast.BranchStmt).Tok == token.GOTO {
					return "goto is not supported"
				}
				return ""
			}},
		nodeRule(sldiag.Label, (*ast.LabeledStmt)(nil), "labeled statements are not supported"),
		&Rule{Code: sldiag.Fallthrough, Types: []ast.Node{branchT},
			Check: func(ctx *Context, n ast.Node) string {
				if n.(*ast.BranchStmt).Tok == token.FALLTHROUGH {
					return "fallthrough is not supported"
				}
				return ""
			}},
		&Rule{Code: sldiag.FuncValue, Types: []ast.Node{identT, selectorT},
			Check: func(ctx *Context, n ast.Node) string {
				r := ctx.Ref(n)
				switch r.Kind {
				case slsema.RefFunc, slsema.RefMethod, slsema.RefIntrinsic, slsema.RefBuiltin:
				default:
					return ""
				}
				if isCallee(ctx.Stack) {
					return ""
				}
				if sel, ok := ctx.Parent().(*ast.SelectorExpr); ok && sel.Sel == n {
					return ""
				}
				return fmt.Sprintf("function %s used as a value", exprName(n))
			}},
		&Rule{Code: sldiag.Variadic, Types: []ast.Node{ellipsisT},
			Check: func(ctx *Context, n ast.Node) string {
				if _, ok := ctx.Parent().(*ast.Field); ok {
					return "variadic parameters are not supported"
				}
				return ""
			}},
		&Rule{Code: sldiag.Generic, Types: []ast.Node{funcDeclT, typeSpecT, (*ast.IndexListExpr)(nil), indexExprT},
			Check: func(ctx *Context, n ast.Node) string {
				switch n := n.(type) {
				case *ast.FuncDecl:
					if n.Type.TypeParams != nil {
						return fmt.Sprintf("generic function %s is not supported", n.Name.Name)
					}
				case *ast.TypeSpec:
					if n.TypeParams != nil {
						return fmt.Sprintf("generic type %s is not supported", n.Name.Name)
					}
				case *ast.IndexListExpr:
					return "generic instantiation is not supported"
				case *ast.IndexExpr:
					if t := ctx.TypeOf(n); t.Kind == slsema.Invalid && t.Name == "generic" {
						return "generic instantiation is not supported"
					}
				}
				return ""
			}},
		&Rule{Code: sldiag.Complex, Types: []ast.Node{basicLitT, identT, callT},
			Check: func(ctx *Context, n ast.Node) string {
				switch n := n.(type) {
				case *ast.BasicLit:
					if n.Kind == token.IMAG {
						return "complex numbers are not supported"
					}
				case *ast.Ident:
					if nm := typeNamed(ctx, n); nm == "complex64" || nm == "complex128" {
						return "complex numbers are not supported"
					}
				case *ast.CallExpr:
					switch builtinCall(ctx, n) {
					case "real", "imag", "complex":
						return "complex numbers are not supported"
					}
				}
				return ""
			}},
		&Rule{Code: sldiag.Int64, Types: []ast.Node{identT},
			Check: func(ctx *Context, n ast.Node) string {
				if ctx.Options.ShaderModel >= hlsl.ShaderModel6_0 {
					return ""
				}
				if nm := typeNamed(ctx, n.(*ast.Ident)); nm == "int64" || nm == "uint64" {
					return fmt.Sprintf("%s needs shader model 6.0, targeting %s", nm, ctx.Options.ShaderModel)
				}
				return ""
			}},
		&Rule{Code: sldiag.EmbeddedField, Types: []ast.Node{fieldT},
			Check: func(ctx *Context, n ast.Node) string {
				if len(n.(*ast.Field).Names) == 0 && inStructFields(ctx.Stack) {
					return "embedded fields are not supported: name the field"
				}
				return ""
			}},
		&Rule{Code: sldiag.UnsupportedBuiltin, Types: []ast.Node{callT},
			Check: func(ctx *Context, n ast.Node) string {
				switch name := builtinCall(ctx, n); name {
				case "append", "clear", "close", "copy", "delete", "print", "println":
					return fmt.Sprintf("builtin %s is not supported", name)
				}
				return ""
			}},
		&Rule{Code: sldiag.BoolField, Types: []ast.Node{fieldT},
			Check: func(ctx *Context, n ast.Node) string {
				f := n.(*ast.Field)
				if !inStructFields(ctx.Stack) {
					return ""
				}
				if t := ctx.TypeOf(f.Type); t.IsBool() && !t.Bool32 {
					return "bool fields have no fixed size: use slbool.Bool"
				}
				return ""
			}},
		&Rule{Code: sldiag.NamedResults, Types: []ast.Node{funcDeclT},
			Check: func(ctx *Context, n ast.Node) string {
				fd := n.(*ast.FuncDecl)
				if fd.Type.Results != nil && len(fd.Type.Results.List) > 0 && len(fd.Type.Results.List[0].Names) > 0 {
					return fmt.Sprintf("%s has named results", fd.Name.Name)
				}
				return ""
			}},
		&Rule{Code: sldiag.UnknownIntrinsic, Types: []ast.Node{selectorT},
			Check: func(ctx *Context, n ast.Node) string {
				if r := ctx.Ref(n); r.Kind == slsema.RefInvalid && r.Path != "" && slsema.IsAPIPackage(r.Path) {
					return fmt.Sprintf("%s.%s has no HLSL equivalent", r.Path, r.Name)
				}
				return ""
			}},
	)
}

// isCallee reports whether the stack top is the function of a call,
// possibly instantiated or parenthesized.
func isCallee(stack []ast.Node) bool {
	n := stack[len(stack)-1]
	for i := len(stack) - 2; i >= 0; i-- {
		switch p := stack[i].(type) {
		case *ast.ParenExpr:
			n = p
			continue
		case *ast.IndexExpr:
			if p.X == n {
				n = p
				continue
			}
		case *ast.CallExpr:
			return p.Fun == n
		}
		return false
	}
	return false
}

func exprName(n ast.Node) string {
	switch n := n.(type) {
	case *ast.Ident:
		return n.Name
	case *ast.SelectorExpr:
		return exprName(n.X) + "." + n.Sel.Name
	}
	return "?"
}
