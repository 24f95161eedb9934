// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slsema

import (
	"go/ast"
	"go/token"
)

// ObjKind is the kind of a declared object.
type ObjKind int

const (
	TypeObj ObjKind = iota
	FuncObj
	MethodObj
	ConstObj
	VarObj
)

// Object is a declared name: a package-level declaration, a method,
// or a type declared in a function body.
type Object struct {
	Kind ObjKind
	Name string
	Pkg  *Package
	File *ast.File

	// Node is the *ast.TypeSpec, *ast.FuncDecl or *ast.ValueSpec.
	Node ast.Node

	// Index is the position of Name in a ValueSpec.
	Index int

	// Doc holds the directives of the declaration.
	Doc *ast.CommentGroup

	// Constant declarations repeat the type and values of the
	// previous spec when they omit them.
	ConstType  ast.Expr
	ConstValue ast.Expr
	Iota       int

	// Methods of a type, and the receiver type of a method.
	Methods map[string]*Object
	Recv    *Object
	PtrRecv bool

	// Func is the function declaring a local type.
	Func *ast.FuncDecl
}

// ID returns the qualified identity of o, unique in a program.
func (o *Object) ID() string {
	switch {
	case o.Kind == MethodObj && o.Recv != nil:
		return o.Recv.ID() + "." + o.Name
	case o.Kind == MethodObj:
		n, _ := RecvTypeName(o.Node.(*ast.FuncDecl).Recv.List[0].Type)
		return o.Pkg.Path + "." + n + "." + o.Name
	case o.Func != nil:
		return o.Pkg.Path + "." + o.Func.Name.Name + "." + o.Name
	}
	return o.Pkg.Path + "." + o.Name
}

// Pos returns the position of the declared name.
func (o *Object) Pos() token.Pos {
	switch n := o.Node.(type) {
	case *ast.TypeSpec:
		return n.Name.Pos()
	case *ast.FuncDecl:
		return n.Name.Pos()
	case *ast.ValueSpec:
		return n.Names[o.Index].Pos()
	}
	return token.NoPos
}

// Local reports whether o is declared in a function body.
func (o *Object) Local() bool { return o.Func != nil }

// TypeSpec returns the declaration of a type object.
func (o *Object) TypeSpec() *ast.TypeSpec {
	ts, _ := o.Node.(*ast.TypeSpec)
	return ts
}

// FuncDecl returns the declaration of a function or method object.
func (o *Object) FuncDecl() *ast.FuncDecl {
	fd, _ := o.Node.(*ast.FuncDecl)
	return fd
}

// ValueSpec returns the declaration of a const or var object.
func (o *Object) ValueSpec() *ast.ValueSpec {
	vs, _ := o.Node.(*ast.ValueSpec)
	return vs
}

// Directives returns the sl directives in the doc comment.
func (o *Object) Directives() []Directive {
	return ParseDirectives(o.Doc)
}

// declObjects returns the objects a GenDecl declares.
func declObjects(pkg *Package, f *ast.File, d *ast.GenDecl, fn *ast.FuncDecl) []*Object {
	var objs []*Object
	doc := func(spec *ast.CommentGroup) *ast.CommentGroup {
		if spec != nil {
			return spec
		}
		if !d.Lparen.IsValid() || len(d.Specs) == 1 {
			return d.Doc
		}
		return nil
	}
	var lastType, lastValues = ast.Expr(nil), []ast.Expr(nil)
	for si, s := range d.Specs {
		switch s := s.(type) {
		case *ast.TypeSpec:
			objs = append(objs, &Object{Kind: TypeObj, Name: s.Name.Name, Pkg: pkg, File: f, Node: s, Doc: doc(s.Doc), Func: fn})
		case *ast.ValueSpec:
			if d.Tok == token.CONST {
				if s.Type != nil || len(s.Values) > 0 {
					lastType, lastValues = s.Type, s.Values
				}
			}
			for i, n := range s.Names {
				o := &Object{Name: n.Name, Pkg: pkg, File: f, Node: s, Index: i, Doc: doc(s.Doc), Func: fn}
				if d.Tok == token.CONST {
					o.Kind = ConstObj
					o.ConstType = lastType
					if i < len(lastValues) {
						o.ConstValue = lastValues[i]
					}
					o.Iota = si
				} else {
					o.Kind = VarObj
				}
				objs = append(objs, o)
			}
		}
	}
	return objs
}
