// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slsema

import (
	"go/ast"
	"go/constant"
	"go/token"
	"strings"
)

func (c *Checker) expr(e ast.Expr) *Type {
	return c.exprHint(e, nil)
}

// exprHint checks e, using hint as the type of composite literals
// with elided types.
func (c *Checker) exprHint(e ast.Expr, hint *Type) *Type {
	t := c.expr0(e, hint)
	if t == nil {
		t = TypInvalid
	}
	c.Info.Types[e] = t
	return t
}

// convert gives an untyped constant expression the type t.
func (c *Checker) convert(e ast.Expr, t *Type) {
	if e == nil || t == nil || t.Kind != Scalar || t.Untyped {
		return
	}
	et := c.Info.Types[e]
	if et == nil || !et.Untyped {
		return
	}
	c.Info.Types[e] = t
	if v := c.Info.Consts[e]; v != nil {
		c.Info.Consts[e] = ConvertConst(v, t)
	}
	switch x := e.(type) {
	case *ast.ParenExpr:
		c.convert(x.X, t)
	case *ast.UnaryExpr:
		c.convert(x.X, t)
	case *ast.BinaryExpr:
		switch {
		case isComparison(x.Op), x.Op == token.LAND, x.Op == token.LOR:
		case x.Op == token.SHL, x.Op == token.SHR:
			c.convert(x.X, t)
		default:
			c.convert(x.X, t)
			c.convert(x.Y, t)
		}
	}
}

func isComparison(op token.Token) bool {
	switch op {
	case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ:
		return true
	}
	return false
}

func (c *Checker) objectRef(e ast.Expr, o *Object) *Type {
	switch o.Kind {
	case ConstObj:
		v, t := c.Const(o)
		c.Info.Refs[e] = Ref{Kind: RefConst, Obj: o}
		if v.Kind() != constant.Unknown {
			c.Info.Consts[e] = v
		}
		return t
	case VarObj:
		c.Info.Refs[e] = Ref{Kind: RefVar, Obj: o}
		return c.VarType(o)
	case FuncObj:
		c.Info.Refs[e] = Ref{Kind: RefFunc, Obj: o}
		return TypFunc
	case TypeObj:
		c.Info.Refs[e] = Ref{Kind: RefType, Obj: o}
		return c.NamedType(o)
	}
	return TypInvalid
}

func (c *Checker) expr0(e ast.Expr, hint *Type) *Type {
	switch x := e.(type) {
	case *ast.BadExpr:
		return TypInvalid
	case *ast.Ident:
		return c.ident(x)
	case *ast.BasicLit:
		return c.basicLit(x)
	case *ast.ParenExpr:
		t := c.exprHint(x.X, hint)
		if v := c.Info.Consts[x.X]; v != nil {
			c.Info.Consts[x] = v
		}
		if r, ok := c.Info.Refs[x.X]; ok && r.Kind == RefType {
			c.Info.Refs[x] = r
		}
		return t
	case *ast.SelectorExpr:
		if id, ok := x.X.(*ast.Ident); ok && c.isPackageName(id.Name) {
			path := c.imports()[id.Name]
			c.Info.Refs[id] = Ref{Kind: RefPackage, Path: path}
			c.Info.Types[id] = TypInvalid
			return c.qualified(x, path)
		}
		return c.selection(x, c.expr(x.X))
	case *ast.CompositeLit:
		t := hint
		if x.Type != nil {
			t = c.typeExpr(x.Type)
		}
		if t == nil {
			t = InvalidType("composite literal")
		}
		c.composite(x, t)
		return t
	case *ast.CallExpr:
		return c.call(x)
	case *ast.BinaryExpr:
		return c.binary(x)
	case *ast.UnaryExpr:
		return c.unary(x)
	case *ast.StarExpr:
		t := c.expr(x.X)
		if r := c.Info.RefOf(x.X); r.Kind == RefType {
			c.Info.Refs[x] = r
			return PointerTo(t)
		}
		if t.Kind == Pointer {
			return t.Elem
		}
		return InvalidType("dereference")
	case *ast.IndexExpr:
		return c.index(x)
	case *ast.IndexListExpr:
		c.expr(x.X)
		for _, ix := range x.Indices {
			c.typeExpr(ix)
		}
		return InvalidType("generic")
	case *ast.SliceExpr:
		c.expr(x.X)
		for _, ix := range []ast.Expr{x.Low, x.High, x.Max} {
			if ix != nil {
				c.expr(ix)
			}
		}
		return InvalidType("slice")
	case *ast.TypeAssertExpr:
		c.expr(x.X)
		return InvalidType("type assertion")
	case *ast.FuncLit:
		c.funcLit(x)
		return TypFunc
	case *ast.KeyValueExpr:
		c.expr(x.Key)
		return c.exprHint(x.Value, hint)
	case *ast.ArrayType, *ast.MapType, *ast.ChanType, *ast.FuncType, *ast.InterfaceType, *ast.StructType:
		t := c.typeExpr(x)
		c.Info.Refs[x] = Ref{Kind: RefType}
		return t
	}
	return TypInvalid
}

// funcLit checks the body of a function literal, with its parameters
// and named results in a scope of their own.
func (c *Checker) funcLit(x *ast.FuncLit) {
	sig := &Signature{}
	c.push()
	defer c.pop()
	for _, f := range x.Type.Params.List {
		t := c.typeExpr(f.Type)
		for _, n := range f.Names {
			sig.Params = append(sig.Params, c.declare(n, t, RefParam))
		}
	}
	if x.Type.Results != nil {
		for _, f := range x.Type.Results.List {
			t := c.typeExpr(f.Type)
			if len(f.Names) == 0 {
				sig.Results = append(sig.Results, t)
			}
			for _, n := range f.Names {
				c.declare(n, t, RefLocal)
				sig.Results = append(sig.Results, t)
			}
		}
	}
	outer := c.sig
	c.sig = sig
	defer func() { c.sig = outer }()
	if x.Body != nil {
		c.stmts(x.Body.List)
	}
}

func (c *Checker) ident(x *ast.Ident) *Type {
	if x.Name == "_" {
		return TypInvalid
	}
	if l := c.scope.lookup(x.Name); l != nil {
		c.Info.Refs[x] = Ref{Kind: l.Kind, Local: l}
		if l.Const != nil {
			c.Info.Consts[x] = l.Const
		}
		return l.Type
	}
	if x.Name == "iota" && c.iota != nil {
		c.Info.Consts[x] = c.iota
		return UntypedInt
	}
	if o := c.lookupObject(x.Name); o != nil {
		return c.objectRef(x, o)
	}
	switch x.Name {
	case "true", "false":
		c.Info.Consts[x] = constant.MakeBool(x.Name == "true")
		return UntypedBool
	case "nil":
		return InvalidType("nil")
	}
	if t := BasicType(x.Name); t != nil {
		c.Info.Refs[x] = Ref{Kind: RefType, Name: x.Name}
		return t
	}
	if IsBuiltin(x.Name) {
		c.Info.Refs[x] = Ref{Kind: RefBuiltin, Name: x.Name}
		return TypFunc
	}
	if path, ok := c.imports()[x.Name]; ok {
		c.Info.Refs[x] = Ref{Kind: RefPackage, Path: path}
		return TypInvalid
	}
	c.unresolved(x, x.Name)
	return TypInvalid
}

func (c *Checker) basicLit(x *ast.BasicLit) *Type {
	v := constant.MakeFromLiteral(x.Value, x.Kind, 0)
	switch x.Kind {
	case token.INT, token.CHAR:
		c.Info.Consts[x] = v
		return UntypedInt
	case token.FLOAT:
		c.Info.Consts[x] = v
		return UntypedFloat
	case token.IMAG:
		return InvalidType("complex")
	}
	return InvalidType("string")
}

// qualified resolves a package-qualified name.
func (c *Checker) qualified(x *ast.SelectorExpr, path string) *Type {
	name := x.Sel.Name
	if pkg := c.Prog.Package(path); pkg != nil {
		o := pkg.Lookup(name)
		if o == nil {
			c.unresolved(x, path+"."+name)
			return TypInvalid
		}
		return c.objectRef(x, o)
	}
	if in := LookupIntrinsic(path, name); in != nil {
		c.Info.Refs[x] = Ref{Kind: RefIntrinsic, Intrinsic: in, Path: path, Name: name}
		return TypFunc
	}
	if t := APIType(path, name, nil); t != nil {
		c.Info.Refs[x] = Ref{Kind: RefType, Path: path, Name: name}
		return t
	}
	if ac, ok := LookupAPIConst(path, name); ok {
		c.Info.Refs[x] = Ref{Kind: RefAPIConst, Path: path, Name: name}
		c.Info.Consts[x] = ac.Value
		return ac.Type
	}
	c.Info.Refs[x] = Ref{Kind: RefInvalid, Path: path, Name: name}
	if !IsAPIPackage(path) && path != "reflect" && path != "unsafe" {
		c.unresolved(x, path+"."+name)
	}
	return TypInvalid
}

// ComponentIndex returns the index of a vector component name, or -1.
func ComponentIndex(name string) int {
	if len(name) != 1 {
		return -1
	}
	return strings.IndexByte("XYZW", name[0])
}

// selection resolves a field, component or method of an operand of type bt.
func (c *Checker) selection(x *ast.SelectorExpr, bt *Type) *Type {
	name := x.Sel.Name
	t := bt.Deref()
	switch t.Kind {
	case Struct:
		if f, ok := c.Field(t, name); ok {
			c.Info.Refs[x] = Ref{Kind: RefField, Name: name, Recv: bt}
			return f.Type
		}
		if m := t.Obj.Methods[name]; m != nil {
			c.Info.Refs[x] = Ref{Kind: RefMethod, Obj: m, Recv: bt}
			return TypFunc
		}
	case Vector:
		if i := ComponentIndex(name); i >= 0 && i < t.Len {
			c.Info.Refs[x] = Ref{Kind: RefComponent, Name: name, Recv: bt}
			return t.Component()
		}
	}
	if in := LookupMethod(t, name); in != nil {
		c.Info.Refs[x] = Ref{Kind: RefIntrinsic, Intrinsic: in, Recv: bt, Name: name}
		return TypFunc
	}
	if bt.IsValid() {
		c.unresolved(x.Sel, name)
	}
	return TypInvalid
}

func (c *Checker) composite(x *ast.CompositeLit, t *Type) {
	switch t.Kind {
	case Struct:
		fs := c.Fields(t)
		for i, el := range x.Elts {
			var f Field
			v := el
			if kv, ok := el.(*ast.KeyValueExpr); ok {
				v = kv.Value
				if key, ok := kv.Key.(*ast.Ident); ok {
					f, _ = c.Field(t, key.Name)
					c.Info.Refs[key] = Ref{Kind: RefField, Name: key.Name, Recv: t}
					if f.Type != nil {
						c.Info.Types[key] = f.Type
					} else {
						c.unresolved(key, key.Name)
					}
				}
			} else if i < len(fs) {
				f = fs[i]
			}
			c.exprHint(v, f.Type)
			c.convert(v, f.Type)
		}
	case Vector, Matrix, Array:
		var elem *Type
		switch t.Kind {
		case Array:
			elem = t.Elem
		default:
			elem = t.Component()
		}
		for _, el := range x.Elts {
			v := el
			if kv, ok := el.(*ast.KeyValueExpr); ok {
				v = kv.Value
				if key, ok := kv.Key.(*ast.Ident); ok && t.Kind == Vector {
					c.Info.Refs[key] = Ref{Kind: RefComponent, Name: key.Name, Recv: t}
					c.Info.Types[key] = elem
				} else {
					c.expr(kv.Key)
					c.convert(kv.Key, TypInt)
				}
			}
			c.exprHint(v, elem)
			c.convert(v, elem)
		}
	default:
		for _, el := range x.Elts {
			c.expr(el)
		}
	}
}

func (c *Checker) call(x *ast.CallExpr) *Type {
	fun := ast.Unparen(x.Fun)
	if ix, ok := fun.(*ast.IndexExpr); ok {
		// explicit instantiation of a generic API function
		if sel, ok := ix.X.(*ast.SelectorExpr); ok {
			if id, ok := sel.X.(*ast.Ident); ok && c.isPackageName(id.Name) {
				c.typeExpr(ix.Index)
				fun = sel
			}
		}
	}
	ft := c.expr(fun)
	ref := c.Info.RefOf(fun)
	switch ref.Kind {
	case RefType:
		for _, a := range x.Args {
			c.expr(a)
		}
		if len(x.Args) == 1 {
			c.convert(x.Args[0], ft)
			if v := c.Info.Consts[x.Args[0]]; v != nil && ft.Kind == Scalar {
				c.Info.Consts[x] = ConvertConst(v, ft)
			}
		}
		return ft
	case RefBuiltin:
		return c.builtin(x, ref.Name)
	case RefIntrinsic:
		args := make([]*Type, len(x.Args))
		for i, a := range x.Args {
			args[i] = c.expr(a)
		}
		// untyped arguments take the scalar type of the result
		d := ref.Intrinsic.Result(ref.Recv, args)
		if d.Kind == Tuple && len(d.Tuple) > 0 {
			d = d.Tuple[0]
		}
		d = d.Component()
		for i, a := range x.Args {
			if !args[i].Untyped {
				continue
			}
			if d.Kind == Scalar && !d.IsBool() && !d.Untyped {
				c.convert(a, d)
				args[i] = d
			} else {
				c.convert(a, args[i].Default())
				args[i] = args[i].Default()
			}
		}
		return ref.Intrinsic.Result(ref.Recv, args)
	case RefFunc, RefMethod:
		sig := c.Signature(ref.Obj)
		for i, a := range x.Args {
			var pt *Type
			switch {
			case i < len(sig.Params):
				pt = sig.Params[i].Type
			case sig.Variadic && len(sig.Params) > 0:
				pt = sig.Params[len(sig.Params)-1].Type
			}
			c.exprHint(a, pt)
			c.convert(a, pt)
		}
		return sig.Result()
	}
	for _, a := range x.Args {
		c.expr(a)
	}
	if ref.Kind == RefInvalid && ref.Path == "" && ft.IsValid() && ft.Kind != Func {
		return InvalidType("call")
	}
	return TypInvalid
}

func (c *Checker) builtin(x *ast.CallExpr, name string) *Type {
	args := make([]*Type, len(x.Args))
	for i, a := range x.Args {
		args[i] = c.expr(a)
	}
	switch name {
	case "len", "cap":
		if len(args) == 1 {
			if a := args[0].Deref(); a.Kind == Array {
				c.Info.Consts[x] = constant.MakeInt64(int64(a.Len))
			}
		}
		return TypInt
	case "min", "max":
		var res *Type
		for _, a := range args {
			if !a.Untyped {
				res = a
				break
			}
		}
		if res == nil {
			if len(args) == 0 {
				return TypInvalid
			}
			res = args[0]
			for _, a := range args {
				if a.Scalar == Double {
					res = a
				}
			}
			c.foldMinMax(x, name)
			return res
		}
		for _, a := range x.Args {
			c.convert(a, res)
		}
		return res
	case "new":
		if len(args) == 1 {
			return PointerTo(args[0])
		}
	case "real", "imag", "complex":
		return InvalidType("complex")
	}
	return InvalidType(name)
}

func (c *Checker) foldMinMax(x *ast.CallExpr, name string) {
	var res constant.Value
	for _, a := range x.Args {
		v := c.Info.Consts[a]
		if v == nil || v.Kind() == constant.Unknown {
			return
		}
		switch {
		case res == nil:
			res = v
		case name == "min" && constant.Compare(v, token.LSS, res):
			res = v
		case name == "max" && constant.Compare(v, token.GTR, res):
			res = v
		}
	}
	if res != nil {
		c.Info.Consts[x] = res
	}
}

func (c *Checker) binary(x *ast.BinaryExpr) *Type {
	lt := c.expr(x.X)
	rt := c.expr(x.Y)
	shift := x.Op == token.SHL || x.Op == token.SHR
	if !shift {
		switch {
		case lt.Untyped && !rt.Untyped:
			c.convert(x.X, rt)
			lt = rt
		case rt.Untyped && !lt.Untyped:
			c.convert(x.Y, lt)
			rt = lt
		}
	}
	var res *Type
	switch {
	case isComparison(x.Op):
		res = TypBool
		if lt.Untyped && rt.Untyped {
			res = UntypedBool
		}
	case shift:
		res = lt
		if rt.Untyped {
			c.convert(x.Y, TypUint)
		}
	case lt.Untyped && rt.Untyped && rt.Scalar == Double:
		res = rt
	default:
		res = lt
	}
	lv, rv := c.Info.Consts[x.X], c.Info.Consts[x.Y]
	if lv == nil || rv == nil || lv.Kind() == constant.Unknown || rv.Kind() == constant.Unknown {
		return res
	}
	switch {
	case isComparison(x.Op):
		c.Info.Consts[x] = constant.MakeBool(constant.Compare(lv, x.Op, rv))
	case shift:
		if s, ok := constant.Uint64Val(constant.ToInt(rv)); ok {
			c.Info.Consts[x] = constant.Shift(constant.ToInt(lv), x.Op, uint(s))
		}
	case x.Op == token.QUO || x.Op == token.REM:
		if constant.Sign(rv) == 0 {
			return res
		}
		op := x.Op
		if op == token.QUO && res.IsInteger() {
			op = token.QUO_ASSIGN
			lv, rv = constant.ToInt(lv), constant.ToInt(rv)
		}
		c.Info.Consts[x] = constant.BinaryOp(lv, op, rv)
	default:
		c.Info.Consts[x] = constant.BinaryOp(lv, x.Op, rv)
	}
	return res
}

func (c *Checker) unary(x *ast.UnaryExpr) *Type {
	switch x.Op {
	case token.AND:
		return PointerTo(c.expr(x.X))
	case token.ARROW:
		c.expr(x.X)
		return InvalidType("receive")
	}
	t := c.expr(x.X)
	if v := c.Info.Consts[x.X]; v != nil && v.Kind() != constant.Unknown {
		prec := uint(0)
		switch {
		case t.Scalar == Uint && !t.Untyped:
			prec = 32
		case t.Scalar == Uint64:
			prec = 64
		}
		c.Info.Consts[x] = constant.UnaryOp(x.Op, v, prec)
	}
	return t
}

func (c *Checker) index(x *ast.IndexExpr) *Type {
	xt := c.expr(x.X)
	if r := c.Info.RefOf(x.X); r.Kind == RefFunc || r.Kind == RefType {
		c.typeExpr(x.Index)
		return InvalidType("generic")
	}
	c.expr(x.Index)
	c.convert(x.Index, TypInt)
	t := xt.Deref()
	switch t.Kind {
	case Array:
		return t.Elem
	case Resource:
		if !t.Resource.Texture() {
			return t.Elem
		}
	case Matrix, Vector:
		return t.Component()
	}
	if !xt.IsValid() {
		return TypInvalid
	}
	return InvalidType("index")
}
