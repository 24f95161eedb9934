// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slsema

import (
	"fmt"
	"strings"
)

// Kind is the kind of a shader type.
type Kind int

const (
	Invalid Kind = iota
	Void
	Scalar
	Vector
	Matrix
	Array
	Struct
	Resource
	Sampler
	Pointer
	Tuple
	Func
)

// ScalarKind is the element type of scalars, vectors and matrices.
type ScalarKind int

const (
	Bool ScalarKind = iota
	Int
	Uint
	Float
	Double
	Int64
	Uint64
)

var scalarNames = [...]string{"bool", "int", "uint", "float", "double", "int64_t", "uint64_t"}

func (s ScalarKind) String() string { return scalarNames[s] }

// Size returns the byte size of one element.
func (s ScalarKind) Size() int {
	switch s {
	case Double, Int64, Uint64:
		return 8
	}
	return 4
}

// ResourceKind is the kind of a bound resource.
type ResourceKind int

const (
	ReadOnlyBuffer ResourceKind = iota
	ReadWriteBuffer
	ReadOnlyTexture2D
	ReadWriteTexture2D
	ReadOnlyTexture3D
	ReadWriteTexture3D
)

var resourceNames = [...]string{"StructuredBuffer", "RWStructuredBuffer", "Texture2D", "RWTexture2D", "Texture3D", "RWTexture3D"}

// HLSL returns the HLSL resource type name.
func (r ResourceKind) HLSL() string { return resourceNames[r] }

// ReadWrite reports whether the resource binds at a u register.
func (r ResourceKind) ReadWrite() bool {
	return r == ReadWriteBuffer || r == ReadWriteTexture2D || r == ReadWriteTexture3D
}

// Texture reports whether the resource is a texture.
func (r ResourceKind) Texture() bool { return r >= ReadOnlyTexture2D }

// Dims returns the number of texture coordinates, or 1 for buffers.
func (r ResourceKind) Dims() int {
	switch r {
	case ReadOnlyTexture2D, ReadWriteTexture2D:
		return 2
	case ReadOnlyTexture3D, ReadWriteTexture3D:
		return 3
	}
	return 1
}

// Type is a shader type.
type Type struct {
	Kind   Kind
	Scalar ScalarKind

	// Untyped marks the type of an untyped constant expression.
	Untyped bool

	// Bool32 marks slbool.Bool: a 32-bit int used as a boolean.
	Bool32 bool

	// Len is the vector or array length.
	Len int

	Rows, Cols int

	// Elem is the element of arrays, resources and pointers.
	Elem *Type

	Resource ResourceKind

	// Obj is the declaration of a struct type.
	Obj *Object

	// Name is the Go spelling of named and invalid types.
	Name string

	Tuple []*Type
}

// Predeclared types.
var (
	TypInvalid  = &Type{Kind: Invalid}
	TypVoid     = &Type{Kind: Void}
	TypBool     = &Type{Kind: Scalar, Scalar: Bool}
	TypInt      = &Type{Kind: Scalar, Scalar: Int}
	TypUint     = &Type{Kind: Scalar, Scalar: Uint}
	TypFloat    = &Type{Kind: Scalar, Scalar: Float}
	TypDouble   = &Type{Kind: Scalar, Scalar: Double}
	TypInt64    = &Type{Kind: Scalar, Scalar: Int64}
	TypUint64   = &Type{Kind: Scalar, Scalar: Uint64}
	TypBool32   = &Type{Kind: Scalar, Scalar: Int, Bool32: true, Name: "slbool.Bool"}
	TypSampler  = &Type{Kind: Sampler}
	TypFunc     = &Type{Kind: Func}
	TypInt2     = VectorOf(Int, 2)
	TypInt3     = VectorOf(Int, 3)
	TypUint2    = VectorOf(Uint, 2)
	TypFloat2   = VectorOf(Float, 2)
	TypFloat3   = VectorOf(Float, 3)
	TypFloat4   = VectorOf(Float, 4)
	TypFloat4x4 = MatrixOf(4, 4)

	UntypedBool  = &Type{Kind: Scalar, Scalar: Bool, Untyped: true}
	UntypedInt   = &Type{Kind: Scalar, Scalar: Int, Untyped: true}
	UntypedFloat = &Type{Kind: Scalar, Scalar: Double, Untyped: true}
)

// InvalidType returns an invalid type named for diagnostics.
func InvalidType(name string) *Type {
	return &Type{Kind: Invalid, Name: name}
}

// ScalarOf returns the scalar type of kind s.
func ScalarOf(s ScalarKind) *Type {
	switch s {
	case Bool:
		return TypBool
	case Int:
		return TypInt
	case Uint:
		return TypUint
	case Float:
		return TypFloat
	case Double:
		return TypDouble
	case Int64:
		return TypInt64
	}
	return TypUint64
}

// VectorOf returns the n-vector of s.
func VectorOf(s ScalarKind, n int) *Type {
	return &Type{Kind: Vector, Scalar: s, Len: n}
}

// MatrixOf returns the rows x cols float matrix.
func MatrixOf(rows, cols int) *Type {
	return &Type{Kind: Matrix, Scalar: Float, Rows: rows, Cols: cols}
}

// ArrayOf returns the array [n]elem.
func ArrayOf(elem *Type, n int) *Type {
	return &Type{Kind: Array, Elem: elem, Len: n}
}

// PointerTo returns the pointer *elem.
func PointerTo(elem *Type) *Type {
	return &Type{Kind: Pointer, Elem: elem}
}

// ResourceOf returns the resource r with element elem.
func ResourceOf(r ResourceKind, elem *Type) *Type {
	return &Type{Kind: Resource, Resource: r, Elem: elem}
}

// TupleOf returns the result tuple of ts.
func TupleOf(ts ...*Type) *Type {
	return &Type{Kind: Tuple, Tuple: ts}
}

func (t *Type) IsValid() bool { return t != nil && t.Kind != Invalid }

// IsNumeric reports whether t is a non-bool scalar.
func (t *Type) IsNumeric() bool { return t.Kind == Scalar && t.Scalar != Bool }

// IsInteger reports whether t is an integer scalar.
func (t *Type) IsInteger() bool {
	return t.Kind == Scalar && (t.Scalar == Int || t.Scalar == Uint || t.Scalar == Int64 || t.Scalar == Uint64)
}

// IsFloat reports whether t is a floating point scalar.
func (t *Type) IsFloat() bool {
	return t.Kind == Scalar && (t.Scalar == Float || t.Scalar == Double)
}

// IsBool reports whether t is the bool scalar.
func (t *Type) IsBool() bool { return t.Kind == Scalar && t.Scalar == Bool }

// Is64 reports whether t holds 64-bit integers.
func (t *Type) Is64() bool {
	return (t.Kind == Scalar || t.Kind == Vector) && (t.Scalar == Int64 || t.Scalar == Uint64)
}

// Default returns the type an untyped constant gets when declared.
func (t *Type) Default() *Type {
	if !t.Untyped {
		return t
	}
	return ScalarOf(t.Scalar)
}

// Deref returns the element of a pointer, or t.
func (t *Type) Deref() *Type {
	if t.Kind == Pointer {
		return t.Elem
	}
	return t
}

// Component returns the scalar type of a vector or matrix.
func (t *Type) Component() *Type {
	switch t.Kind {
	case Vector, Matrix:
		return ScalarOf(t.Scalar)
	}
	return t
}

// String returns the canonical spelling of t, which identifies it.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case Invalid:
		if t.Name != "" {
			return "invalid(" + t.Name + ")"
		}
		return "invalid"
	case Void:
		return "void"
	case Scalar:
		s := t.Scalar.String()
		if t.Bool32 {
			s = "slbool"
		}
		if t.Untyped {
			s = "untyped " + s
		}
		return s
	case Vector:
		return fmt.Sprintf("%s%d", t.Scalar, t.Len)
	case Matrix:
		return fmt.Sprintf("%s%dx%d", t.Scalar, t.Rows, t.Cols)
	case Array:
		return fmt.Sprintf("[%d]%s", t.Len, t.Elem)
	case Struct:
		return t.Obj.ID()
	case Resource:
		return fmt.Sprintf("%s<%s>", t.Resource.HLSL(), t.Elem)
	case Sampler:
		return "SamplerState"
	case Pointer:
		return "*" + t.Elem.String()
	case Tuple:
		ss := make([]string, len(t.Tuple))
		for i, e := range t.Tuple {
			ss[i] = e.String()
		}
		return "(" + strings.Join(ss, ", ") + ")"
	case Func:
		return "func"
	}
	return "?"
}

// Identical reports whether a and b are the same type.
func Identical(a, b *Type) bool {
	return a.String() == b.String()
}

// HLSL returns the HLSL spelling of t, without array dimensions.
// Struct types are spelled with their Go name; callers that rename
// structs map them first.
func (t *Type) HLSL() string {
	switch t.Kind {
	case Void:
		return "void"
	case Scalar:
		return t.Scalar.String()
	case Vector:
		return fmt.Sprintf("%s%d", t.Scalar, t.Len)
	case Matrix:
		return fmt.Sprintf("%s%dx%d", t.Scalar, t.Rows, t.Cols)
	case Array, Pointer:
		return t.Elem.HLSL()
	case Struct:
		return t.Obj.Name
	case Resource:
		return t.Resource.HLSL() + "<" + t.Elem.HLSL() + ">"
	case Sampler:
		return "SamplerState"
	}
	return "void"
}
