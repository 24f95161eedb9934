// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slsema

import (
	"go/ast"
	"go/constant"
)

// RefKind is what an identifier or selector refers to.
type RefKind int

const (
	RefInvalid RefKind = iota
	RefLocal
	RefParam
	RefReceiver
	RefConst
	RefVar
	RefFunc
	RefType
	RefPackage
	RefField
	RefComponent
	RefMethod
	RefIntrinsic
	RefBuiltin
	RefAPIConst
)

// Local is a variable declared in a function: a local, a
// parameter or the receiver.
type Local struct {
	Name  string
	Type  *Type
	Ident *ast.Ident
	Kind  RefKind

	// Const is the value of a local constant.
	Const constant.Value
}

// Ref is the resolution of an *ast.Ident or *ast.SelectorExpr.
type Ref struct {
	Kind      RefKind
	Obj       *Object
	Local     *Local
	Intrinsic *Intrinsic

	// Name is the builtin, field or component name.
	Name string

	// Recv is the type of the selector operand of fields and methods.
	Recv *Type

	// Path is the import path of packages, API types and constants.
	Path string
}

// Signature is the typed signature of a function or method.
type Signature struct {
	Recv     *Local
	Params   []*Local
	Results  []*Type
	Variadic bool
}

// Result returns the result type: void, a single type or a tuple.
func (s *Signature) Result() *Type {
	switch len(s.Results) {
	case 0:
		return TypVoid
	case 1:
		return s.Results[0]
	}
	return TupleOf(s.Results...)
}

// Unresolved is a name the checker could not resolve.
type Unresolved struct {
	Node ast.Node
	Name string
}

// Info holds the results of checking.
type Info struct {
	Types      map[ast.Expr]*Type
	Refs       map[ast.Node]Ref
	Consts     map[ast.Expr]constant.Value
	Defs       map[*ast.Ident]*Local
	Sigs       map[*ast.FuncDecl]*Signature
	Unresolved []Unresolved
}

// NewInfo returns empty tables.
func NewInfo() *Info {
	return &Info{
		Types:  map[ast.Expr]*Type{},
		Refs:   map[ast.Node]Ref{},
		Consts: map[ast.Expr]constant.Value{},
		Defs:   map[*ast.Ident]*Local{},
		Sigs:   map[*ast.FuncDecl]*Signature{},
	}
}

// TypeOf returns the recorded type of e.
func (in *Info) TypeOf(e ast.Expr) *Type {
	if t, ok := in.Types[e]; ok {
		return t
	}
	return TypInvalid
}

// RefOf returns the resolution of an identifier or selector, looking
// through parentheses.
func (in *Info) RefOf(n ast.Node) Ref {
	if p, ok := n.(*ast.ParenExpr); ok {
		return in.RefOf(p.X)
	}
	return in.Refs[n]
}

// ConstOf returns the constant value of e, or nil.
func (in *Info) ConstOf(e ast.Expr) constant.Value {
	return in.Consts[e]
}
