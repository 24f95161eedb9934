// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slsema

import (
	"go/ast"
	"go/constant"
	"strconv"
)

// Field is a struct field.
type Field struct {
	Name     string
	Type     *Type
	Node     *ast.Field
	Tag      string
	Embedded bool
}

type env struct {
	pkg  *Package
	file *ast.File
	fn   *ast.FuncDecl
}

type scope struct {
	parent *scope
	names  map[string]*Local
}

func (s *scope) lookup(name string) *Local {
	for ; s != nil; s = s.parent {
		if l := s.names[name]; l != nil {
			return l
		}
	}
	return nil
}

type constVal struct {
	val constant.Value
	typ *Type
}

// Checker types kernel code on demand: each function body is checked
// once, when CheckFunc is first called for it. A Checker is used by one
// translation at a time.
type Checker struct {
	Prog *Program
	Info *Info

	named     map[*Object]*Type
	fields    map[*Object][]Field
	consts    map[*Object]constVal
	constBusy map[*Object]bool
	vars      map[*Object]*Type
	checked   map[*ast.FuncDecl]bool

	env   env
	scope *scope
	sig   *Signature
	iota  constant.Value
}

// NewChecker returns a checker recording into a fresh Info.
func NewChecker(prog *Program) *Checker {
	return &Checker{
		Prog:      prog,
		Info:      NewInfo(),
		named:     map[*Object]*Type{},
		fields:    map[*Object][]Field{},
		consts:    map[*Object]constVal{},
		constBusy: map[*Object]bool{},
		vars:      map[*Object]*Type{},
		checked:   map[*ast.FuncDecl]bool{},
	}
}

// enter switches to the declaration context of obj, returning the
// function restoring the previous context.
func (c *Checker) enter(obj *Object) func() {
	e, s, sig, io := c.env, c.scope, c.sig, c.iota
	c.env = env{pkg: obj.Pkg, file: obj.File, fn: obj.Func}
	c.scope, c.sig, c.iota = nil, nil, nil
	return func() {
		c.env, c.scope, c.sig, c.iota = e, s, sig, io
	}
}

func (c *Checker) unresolved(n ast.Node, name string) {
	for _, u := range c.Info.Unresolved {
		if u.Node == n {
			return
		}
	}
	c.Info.Unresolved = append(c.Info.Unresolved, Unresolved{Node: n, Name: name})
}

// ResolveType resolves a type expression in the declaration context of obj.
func (c *Checker) ResolveType(obj *Object, e ast.Expr) *Type {
	defer c.enter(obj)()
	return c.typeExpr(e)
}

// NamedType returns the type declared by a type object.
func (c *Checker) NamedType(obj *Object) *Type {
	if t, ok := c.named[obj]; ok {
		return t
	}
	ts := obj.TypeSpec()
	if ts.TypeParams != nil {
		t := InvalidType("generic")
		c.named[obj] = t
		return t
	}
	if _, ok := ts.Type.(*ast.StructType); ok {
		t := &Type{Kind: Struct, Obj: obj, Name: obj.Name}
		c.named[obj] = t
		return t
	}
	c.named[obj] = InvalidType("recursive type")
	t := c.ResolveType(obj, ts.Type)
	c.named[obj] = t
	return t
}

// Fields returns the fields of a struct type.
func (c *Checker) Fields(t *Type) []Field {
	if t.Kind != Struct {
		return nil
	}
	if fs, ok := c.fields[t.Obj]; ok {
		return fs
	}
	c.fields[t.Obj] = nil
	st := t.Obj.TypeSpec().Type.(*ast.StructType)
	defer c.enter(t.Obj)()
	var fs []Field
	for _, f := range st.Fields.List {
		ft := c.typeExpr(f.Type)
		tag := ""
		if f.Tag != nil {
			tag, _ = strconv.Unquote(f.Tag.Value)
		}
		if len(f.Names) == 0 {
			name, _ := RecvTypeName(f.Type)
			if sel, ok := f.Type.(*ast.SelectorExpr); ok {
				name = sel.Sel.Name
			}
			fs = append(fs, Field{Name: name, Type: ft, Node: f, Tag: tag, Embedded: true})
			continue
		}
		for _, n := range f.Names {
			fs = append(fs, Field{Name: n.Name, Type: ft, Node: f, Tag: tag})
		}
	}
	c.fields[t.Obj] = fs
	return fs
}

// Field returns the field name of a struct type.
func (c *Checker) Field(t *Type, name string) (Field, bool) {
	for _, f := range c.Fields(t) {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Const returns the value and type of a constant object.
// The value is unknown when it cannot be evaluated.
func (c *Checker) Const(obj *Object) (constant.Value, *Type) {
	if cv, ok := c.consts[obj]; ok {
		return cv.val, cv.typ
	}
	if c.constBusy[obj] {
		return constant.MakeUnknown(), InvalidType("constant cycle")
	}
	c.constBusy[obj] = true
	defer delete(c.constBusy, obj)

	restore := c.enter(obj)
	c.iota = constant.MakeInt64(int64(obj.Iota))
	val, typ := constant.MakeUnknown(), TypInvalid
	if obj.ConstValue != nil {
		typ = c.expr(obj.ConstValue)
		if v := c.Info.Consts[obj.ConstValue]; v != nil {
			val = v
		}
	}
	if obj.ConstType != nil {
		typ = c.typeExpr(obj.ConstType)
		val = ConvertConst(val, typ)
	}
	restore()
	c.consts[obj] = constVal{val, typ}
	return val, typ
}

// VarType returns the type of a package-level variable, checking
// its initializer.
func (c *Checker) VarType(obj *Object) *Type {
	if t, ok := c.vars[obj]; ok {
		return t
	}
	c.vars[obj] = InvalidType("initialization cycle")
	defer c.enter(obj)()
	vs := obj.ValueSpec()
	var t *Type
	if vs.Type != nil {
		t = c.typeExpr(vs.Type)
	}
	if obj.Index < len(vs.Values) {
		v := vs.Values[obj.Index]
		vt := c.exprHint(v, t)
		if t == nil {
			t = vt.Default()
		} else {
			c.convert(v, t)
		}
	}
	if t == nil {
		t = TypInvalid
	}
	c.vars[obj] = t
	return t
}

// Signature returns the typed signature of a function or method.
func (c *Checker) Signature(obj *Object) *Signature {
	fd := obj.FuncDecl()
	if s, ok := c.Info.Sigs[fd]; ok {
		return s
	}
	defer c.enter(obj)()
	s := &Signature{}
	c.Info.Sigs[fd] = s
	if fd.Recv != nil && len(fd.Recv.List) == 1 {
		f := fd.Recv.List[0]
		l := &Local{Type: c.typeExpr(f.Type), Kind: RefReceiver}
		if len(f.Names) == 1 {
			l.Name, l.Ident = f.Names[0].Name, f.Names[0]
		}
		s.Recv = l
	}
	for _, f := range fd.Type.Params.List {
		var t *Type
		if el, ok := f.Type.(*ast.Ellipsis); ok {
			s.Variadic = true
			t = c.typeExpr(el.Elt)
		} else {
			t = c.typeExpr(f.Type)
		}
		if len(f.Names) == 0 {
			s.Params = append(s.Params, &Local{Type: t, Kind: RefParam})
		}
		for _, n := range f.Names {
			s.Params = append(s.Params, &Local{Name: n.Name, Type: t, Ident: n, Kind: RefParam})
		}
	}
	if fd.Type.Results != nil {
		for _, f := range fd.Type.Results.List {
			t := c.typeExpr(f.Type)
			n := len(f.Names)
			if n == 0 {
				n = 1
			}
			for i := 0; i < n; i++ {
				s.Results = append(s.Results, t)
			}
		}
	}
	return s
}

// CheckFunc checks the body of a function or method once.
func (c *Checker) CheckFunc(obj *Object) *Signature {
	sig := c.Signature(obj)
	fd := obj.FuncDecl()
	if c.checked[fd] || fd.Body == nil {
		return sig
	}
	c.checked[fd] = true
	defer c.enter(obj)()
	c.sig = sig
	c.scope = &scope{names: map[string]*Local{}}
	if sig.Recv != nil && sig.Recv.Ident != nil {
		c.bind(sig.Recv)
	}
	for _, p := range sig.Params {
		if p.Ident != nil {
			c.bind(p)
		}
	}
	if fd.Type.Results != nil {
		i := 0
		for _, f := range fd.Type.Results.List {
			for _, n := range f.Names {
				c.declare(n, sig.Results[i], RefLocal)
				i++
			}
			if len(f.Names) == 0 {
				i++
			}
		}
	}
	c.stmts(fd.Body.List)
	return sig
}

func (c *Checker) bind(l *Local) {
	if l.Name == "_" || l.Name == "" {
		return
	}
	c.scope.names[l.Name] = l
	c.Info.Defs[l.Ident] = l
	c.Info.Refs[l.Ident] = Ref{Kind: l.Kind, Local: l}
	c.Info.Types[l.Ident] = l.Type
}

func (c *Checker) declare(id *ast.Ident, t *Type, kind RefKind) *Local {
	l := &Local{Name: id.Name, Type: t, Ident: id, Kind: kind}
	c.Info.Types[id] = t
	if id.Name == "_" {
		return l
	}
	c.scope.names[id.Name] = l
	c.Info.Defs[id] = l
	c.Info.Refs[id] = Ref{Kind: kind, Local: l}
	return l
}

func (c *Checker) push() {
	c.scope = &scope{parent: c.scope, names: map[string]*Local{}}
}

func (c *Checker) pop() {
	c.scope = c.scope.parent
}

func (c *Checker) imports() map[string]string {
	if c.env.pkg == nil {
		return nil
	}
	return c.env.pkg.Imports(c.env.file)
}

func (c *Checker) lookupObject(name string) *Object {
	if c.env.pkg == nil {
		return nil
	}
	if c.env.fn != nil {
		if o := c.env.pkg.LocalTypes(c.env.fn)[name]; o != nil {
			return o
		}
	}
	return c.env.pkg.Lookup(name)
}

func (c *Checker) isPackageName(name string) bool {
	if c.scope.lookup(name) != nil || c.lookupObject(name) != nil {
		return false
	}
	_, ok := c.imports()[name]
	return ok
}

// ConvertConst converts a constant value to the representation of t.
func ConvertConst(v constant.Value, t *Type) constant.Value {
	if v == nil || v.Kind() == constant.Unknown || t.Kind != Scalar {
		return v
	}
	switch {
	case t.IsFloat():
		return constant.ToFloat(v)
	case t.IsInteger():
		return constant.ToInt(v)
	}
	return v
}

// BasicType returns the type of a predeclared type name, or nil.
func BasicType(name string) *Type {
	switch name {
	case "bool":
		return TypBool
	case "int32", "rune", "int":
		return TypInt
	case "uint32", "uint":
		return TypUint
	case "float32":
		return TypFloat
	case "float64":
		return TypDouble
	case "int64":
		return TypInt64
	case "uint64":
		return TypUint64
	case "int8", "int16", "uint8", "uint16", "byte", "uintptr", "any", "error":
		return InvalidType(name)
	case "string":
		return InvalidType("string")
	case "complex64", "complex128":
		return InvalidType("complex")
	}
	return nil
}

// IsBuiltin reports whether name is a predeclared function.
func IsBuiltin(name string) bool {
	switch name {
	case "append", "cap", "clear", "close", "complex", "copy", "delete", "imag", "len",
		"make", "max", "min", "new", "panic", "print", "println", "real", "recover":
		return true
	}
	return false
}

func (c *Checker) typeExpr(e ast.Expr) *Type {
	t := c.typeExpr0(e)
	c.Info.Types[e] = t
	return t
}

func (c *Checker) typeExpr0(e ast.Expr) *Type {
	switch x := e.(type) {
	case *ast.Ident:
		if o := c.lookupObject(x.Name); o != nil && o.Kind == TypeObj {
			c.Info.Refs[x] = Ref{Kind: RefType, Obj: o}
			return c.NamedType(o)
		}
		if t := BasicType(x.Name); t != nil {
			c.Info.Refs[x] = Ref{Kind: RefType, Name: x.Name}
			return t
		}
		c.unresolved(x, x.Name)
		return TypInvalid
	case *ast.SelectorExpr:
		id, ok := x.X.(*ast.Ident)
		if !ok {
			return InvalidType("type")
		}
		path, ok := c.imports()[id.Name]
		if !ok {
			c.unresolved(id, id.Name)
			return TypInvalid
		}
		c.Info.Refs[id] = Ref{Kind: RefPackage, Path: path}
		if pkg := c.Prog.Package(path); pkg != nil {
			if o := pkg.Lookup(x.Sel.Name); o != nil && o.Kind == TypeObj {
				c.Info.Refs[x] = Ref{Kind: RefType, Obj: o}
				return c.NamedType(o)
			}
		}
		if t := APIType(path, x.Sel.Name, nil); t != nil {
			c.Info.Refs[x] = Ref{Kind: RefType, Path: path, Name: x.Sel.Name}
			return t
		}
		c.unresolved(x, id.Name+"."+x.Sel.Name)
		return TypInvalid
	case *ast.IndexExpr:
		targ := c.typeExpr(x.Index)
		if sel, ok := x.X.(*ast.SelectorExpr); ok {
			if id, ok := sel.X.(*ast.Ident); ok {
				path := c.imports()[id.Name]
				c.Info.Refs[id] = Ref{Kind: RefPackage, Path: path}
				if t := APIType(path, sel.Sel.Name, []*Type{targ}); t != nil {
					c.Info.Refs[sel] = Ref{Kind: RefType, Path: path, Name: sel.Sel.Name}
					return t
				}
			}
		}
		return InvalidType("generic")
	case *ast.IndexListExpr:
		return InvalidType("generic")
	case *ast.ArrayType:
		elem := c.typeExpr(x.Elt)
		if x.Len == nil {
			return InvalidType("slice")
		}
		if _, ok := x.Len.(*ast.Ellipsis); ok {
			return InvalidType("array length")
		}
		c.expr(x.Len)
		v := c.Info.Consts[x.Len]
		if v == nil {
			return InvalidType("array length")
		}
		n, ok := constant.Int64Val(constant.ToInt(v))
		if !ok || n < 0 {
			return InvalidType("array length")
		}
		return ArrayOf(elem, int(n))
	case *ast.StarExpr:
		return PointerTo(c.typeExpr(x.X))
	case *ast.ParenExpr:
		return c.typeExpr(x.X)
	case *ast.Ellipsis:
		c.typeExpr(x.Elt)
		return InvalidType("variadic")
	case *ast.StructType:
		return InvalidType("anonymous struct")
	case *ast.MapType:
		return InvalidType("map")
	case *ast.ChanType:
		return InvalidType("chan")
	case *ast.FuncType:
		return InvalidType("func")
	case *ast.InterfaceType:
		return InvalidType("interface")
	}
	return InvalidType("type")
}
