// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sldiag

import "sort"

// Code is a stable diagnostic identifier. A code keeps its meaning
// across releases; retired codes are never reused.
type Code string

// Unsupported constructs.
const (
	Panic              Code = "SL0001"
	Recover            Code = "SL0002"
	Defer              Code = "SL0003"
	Goroutine          Code = "SL0004"
	Suspension         Code = "SL0005"
	BlockingModifier   Code = "SL0006"
	NewCall            Code = "SL0007"
	MakeCall           Code = "SL0008"
	AddressOfComposite Code = "SL0009"
	SliceLiteral       Code = "SL0010"
	MapLiteral         Code = "SL0011"
	AnonymousStruct    Code = "SL0012"
	InterfaceType      Code = "SL0013"
	TypeAssertion      Code = "SL0014"
	TypeSwitch         Code = "SL0015"
	Reflect            Code = "SL0016"
	Unsafe             Code = "SL0017"
	PointerType        Code = "SL0018"
	SliceType          Code = "SL0019"
	SliceExpr          Code = "SL0020"
	RangeNonInteger    Code = "SL0021"
	FuncLit            Code = "SL0022"
	MultipleResults    Code = "SL0023"
	String             Code = "SL0024"
	MapType            Code = "SL0025"
	ChanType           Code = "SL0026"
	Goto               Code = "SL0027"
	Label              Code = "SL0028"
	Fallthrough        Code = "SL0029"
	FuncValue          Code = "SL0030"
	Variadic           Code = "SL0031"
	Generic            Code = "SL0032"
	Complex            Code = "SL0033"
	Int64              Code = "SL0034"
	EmbeddedField      Code = "SL0035"
	UnsupportedBuiltin Code = "SL0036"
	BoolField          Code = "SL0037"
	NamedResults       Code = "SL0038"
	UnknownIntrinsic   Code = "SL0039"
	PossibleRecursion  Code = "SL0050"
)

// Field shapes.
const (
	InvalidFieldType        Code = "SL0100"
	ArrayField              Code = "SL0101"
	PointerField            Code = "SL0102"
	NestedResource          Code = "SL0103"
	InvalidResourceElement  Code = "SL0104"
	GroupSharedInstance     Code = "SL0105"
	GroupSharedNotArray     Code = "SL0106"
	GroupSharedOwnerKernel  Code = "SL0107"
	GroupSharedOwnerUnknown Code = "SL0108"
	MutableStatic           Code = "SL0109"
)

// API surface.
const (
	AccessorOutsideEntry Code = "SL0200"
	ReceiverEscapes      Code = "SL0201"
	PointerReceiverEntry Code = "SL0202"
	ReadOnlyWrite        Code = "SL0203"
)

// Kernel structure.
const (
	MissingNumThreads     Code = "SL0300"
	MissingResource       Code = "SL0301"
	InvalidNumThreads     Code = "SL0302"
	DuplicateNumThreads   Code = "SL0303"
	MissingEntry          Code = "SL0304"
	InvalidEntry          Code = "SL0305"
	KernelNotStruct       Code = "SL0306"
	ConflictingCapability Code = "SL0307"
	UnknownDirective      Code = "SL0308"
	Unresolved            Code = "SL0400"
)

// Accessibility.
const (
	LocalKernel    Code = "SL0500"
	LocalFieldType Code = "SL0501"
)

// Layout.
const (
	ConstantBufferExceeded Code = "SL0600"
	GroupSharedExceeded    Code = "SL0601"
	TooManyRegisters       Code = "SL0602"
	BufferAlignment        Code = "SL0603"
	PaddedBufferElement    Code = "SL0604"
)

// Lowering.
const (
	UnsupportedExpr Code = "SL0700"
	UnsupportedStmt Code = "SL0701"
	UntypedDecl     Code = "SL0702"
)

// Info describes a code.
type Info struct {
	Code     Code
	Category Category
	Severity Severity
	Title    string
}

func hard(c Code, cat Category, title string) Info {
	return Info{Code: c, Category: cat, Severity: Error, Title: title}
}

func soft(c Code, cat Category, title string) Info {
	return Info{Code: c, Category: cat, Severity: Warning, Title: title}
}

var catalogue = func() map[Code]Info {
	infos := []Info{
		hard(Panic, UnsupportedConstruct, "panic is not supported"),
		hard(Recover, UnsupportedConstruct, "recover is not supported"),
		hard(Defer, UnsupportedConstruct, "defer is not supported"),
		hard(Goroutine, UnsupportedConstruct, "go statements are not supported"),
		hard(Suspension, UnsupportedConstruct, "suspension points are not supported"),
		hard(BlockingModifier, UnsupportedConstruct, "functions that suspend cannot be lowered"),
		hard(NewCall, UnsupportedConstruct, "new allocates"),
		hard(MakeCall, UnsupportedConstruct, "make allocates"),
		hard(AddressOfComposite, UnsupportedConstruct, "address of a composite literal allocates"),
		hard(SliceLiteral, UnsupportedConstruct, "slice literals allocate"),
		hard(MapLiteral, UnsupportedConstruct, "map literals allocate"),
		hard(AnonymousStruct, UnsupportedConstruct, "anonymous struct types are not supported"),
		hard(InterfaceType, UnsupportedConstruct, "interface types are not supported"),
		hard(TypeAssertion, UnsupportedConstruct, "type assertions are not supported"),
		hard(TypeSwitch, UnsupportedConstruct, "type switches are not supported"),
		hard(Reflect, UnsupportedConstruct, "reflection is not supported"),
		hard(Unsafe, UnsupportedConstruct, "package unsafe is not supported"),
		hard(PointerType, UnsupportedConstruct, "pointers are only supported as parameters and receivers"),
		hard(SliceType, UnsupportedConstruct, "slice types are not supported"),
		hard(SliceExpr, UnsupportedConstruct, "slice expressions are not supported"),
		hard(RangeNonInteger, UnsupportedConstruct, "range is only supported over integers"),
		hard(FuncLit, UnsupportedConstruct, "function literals are not supported"),
		hard(MultipleResults, UnsupportedConstruct, "functions with multiple results are not supported"),
		hard(String, UnsupportedConstruct, "strings are not supported"),
		hard(MapType, UnsupportedConstruct, "map types are not supported"),
		hard(ChanType, UnsupportedConstruct, "channel types are not supported"),
		hard(Goto, UnsupportedConstruct, "goto is not supported"),
		hard(Label, UnsupportedConstruct, "labels are not supported"),
		hard(Fallthrough, UnsupportedConstruct, "fallthrough is not supported"),
		hard(FuncValue, UnsupportedConstruct, "function values are not supported"),
		hard(Variadic, UnsupportedConstruct, "variadic functions are not supported"),
		hard(Generic, UnsupportedConstruct, "type parameters are not supported"),
		hard(Complex, UnsupportedConstruct, "complex numbers are not supported"),
		soft(Int64, UnsupportedConstruct, "64-bit integers need shader model 6.0"),
		hard(EmbeddedField, UnsupportedConstruct, "embedded fields are not supported"),
		hard(UnsupportedBuiltin, UnsupportedConstruct, "builtin function is not supported"),
		hard(BoolField, UnsupportedConstruct, "bool fields are not supported, use slbool.Bool"),
		hard(NamedResults, UnsupportedConstruct, "named results are not supported"),
		hard(UnknownIntrinsic, UnsupportedConstruct, "function has no shader equivalent"),
		soft(PossibleRecursion, UnsupportedConstruct, "possible recursion"),

		hard(InvalidFieldType, UnsupportedConstruct, "invalid field type"),
		hard(ArrayField, UnsupportedConstruct, "array fields are only supported as group-shared variables"),
		hard(PointerField, UnsupportedConstruct, "pointer fields are not supported"),
		hard(NestedResource, UnsupportedConstruct, "resources must be kernel fields"),
		hard(InvalidResourceElement, UnsupportedConstruct, "invalid resource element type"),
		hard(GroupSharedInstance, UnsupportedConstruct, "group-shared memory must be a package-level variable"),
		hard(GroupSharedNotArray, UnsupportedConstruct, "group-shared variables must be arrays"),
		hard(GroupSharedOwnerKernel, UnsupportedConstruct, "group-shared owner is not a kernel"),
		hard(GroupSharedOwnerUnknown, UnsupportedConstruct, "group-shared owner is not declared"),
		soft(MutableStatic, UnsupportedConstruct, "assigned package variable is per invocation on the GPU"),

		hard(AccessorOutsideEntry, UnsupportedConstruct, "dispatch accessors are only valid in the entry method"),
		hard(ReceiverEscapes, UnsupportedConstruct, "the kernel receiver cannot be used as a value"),
		hard(PointerReceiverEntry, UnsupportedConstruct, "the entry method must have a value receiver"),
		hard(ReadOnlyWrite, UnsupportedConstruct, "write to a read-only field"),

		soft(MissingNumThreads, MissingMetadata, "missing thread group size"),
		hard(MissingResource, MissingMetadata, "kernel has no resource fields"),
		hard(InvalidNumThreads, MissingMetadata, "invalid thread group size"),
		hard(DuplicateNumThreads, MissingMetadata, "duplicate thread group size"),
		hard(MissingEntry, MissingMetadata, "missing Execute method"),
		hard(InvalidEntry, MissingMetadata, "invalid Execute signature"),
		hard(KernelNotStruct, UnsupportedConstruct, "kernel type is not a struct"),
		hard(ConflictingCapability, CapabilityConflict, "conflicting kernel capabilities"),
		soft(UnknownDirective, MissingMetadata, "unknown directive"),
		hard(Unresolved, UnsupportedConstruct, "unresolved reference"),

		hard(LocalKernel, AccessibilityViolation, "kernel type is declared inside a function"),
		hard(LocalFieldType, AccessibilityViolation, "field type is declared inside a function"),

		hard(ConstantBufferExceeded, ResourceLayoutExceeded, "constant buffer too large"),
		hard(GroupSharedExceeded, ResourceLayoutExceeded, "group-shared memory too large"),
		hard(TooManyRegisters, ResourceLayoutExceeded, "too many resources"),
		soft(BufferAlignment, ResourceLayoutExceeded, "buffer element layout differs between Go and HLSL"),
		soft(PaddedBufferElement, ResourceLayoutExceeded, "padded constant struct used as buffer element"),

		hard(UnsupportedExpr, UnsupportedConstruct, "expression cannot be lowered"),
		hard(UnsupportedStmt, UnsupportedConstruct, "statement cannot be lowered"),
		hard(UntypedDecl, UnsupportedConstruct, "declaration has no shader type"),
	}
	m := make(map[Code]Info, len(infos))
	for _, in := range infos {
		m[in.Code] = in
	}
	return m
}()

// Lookup returns the catalogue entry of code.
func Lookup(code Code) (Info, bool) {
	in, ok := catalogue[code]
	return in, ok
}

// Codes returns every catalogued code in ascending order.
func Codes() []Code {
	cs := make([]Code, 0, len(catalogue))
	for c := range catalogue {
		cs = append(cs, c)
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i] < cs[j] })
	return cs
}
