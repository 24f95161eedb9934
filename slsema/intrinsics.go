// Copyright 2022 The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slsema

import (
	"go/constant"
	"math"

	"golang.org/x/exp/slices"
)

// IntrinsicKind is how a call to an API function is lowered.
type IntrinsicKind int

const (
	// CallIntrinsic lowers to HLSL(args...).
	CallIntrinsic IntrinsicKind = iota

	// OpIntrinsic lowers to (a HLSL b), with the receiver as a for methods.
	OpIntrinsic

	// UnaryIntrinsic lowers to (HLSL a).
	UnaryIntrinsic

	// OutIntrinsic lowers a multiple result call to a call with
	// out arguments: Ret is the result returned by the HLSL call
	// (-1 for none), Outs the results passed as trailing arguments.
	OutIntrinsic

	// AccessorIntrinsic is a dispatch coordinate accessor.
	AccessorIntrinsic

	// SwizzleIntrinsic lowers to a.HLSL.
	SwizzleIntrinsic

	// TemplateIntrinsic lowers by formatting HLSL with the
	// receiver (if any) and arguments.
	TemplateIntrinsic

	// TextureIntrinsic is a texture method.
	TextureIntrinsic

	// AtomicIntrinsic lowers to an Interlocked function whose
	// original value out argument is only passed when used.
	AtomicIntrinsic
)

// Intrinsic maps an API function or method onto HLSL.
type Intrinsic struct {
	Pkg  string
	Name string
	Kind IntrinsicKind
	HLSL string

	// Swap reverses the two arguments (matrix products).
	Swap bool

	Ret  int
	Outs []int

	// Helper names the HLSL helper block the call needs.
	Helper string

	// Args is the number of arguments, not counting the receiver.
	Args int

	// Result computes the result type from the receiver and arguments.
	Result func(recv *Type, args []*Type) *Type
}

// ID returns the qualified name of the intrinsic.
func (in *Intrinsic) ID() string { return in.Pkg + "." + in.Name }

func fixed(t *Type) func(*Type, []*Type) *Type {
	return func(*Type, []*Type) *Type { return t }
}

func recvType(recv *Type, _ []*Type) *Type { return recv }

func recvComponent(recv *Type, _ []*Type) *Type { return recv.Component() }

func arg(i int) func(*Type, []*Type) *Type {
	return func(_ *Type, args []*Type) *Type {
		if i < len(args) {
			return args[i].Default()
		}
		return TypInvalid
	}
}

func pointee(_ *Type, args []*Type) *Type {
	if len(args) > 0 && args[0].Kind == Pointer {
		return args[0].Elem
	}
	return TypInvalid
}

func boolVec(n int) func(*Type, []*Type) *Type {
	return fixed(VectorOf(Bool, n))
}

func texElem(recv *Type, _ []*Type) *Type { return recv.Elem }

func texDims(recv *Type, _ []*Type) *Type { return VectorOf(Int, recv.Resource.Dims()) }

var intrinsics = map[string]*Intrinsic{}

var methods = map[string]*Intrinsic{}

func def(pkg, name string, kind IntrinsicKind, hlsl string, res func(*Type, []*Type) *Type) *Intrinsic {
	in := &Intrinsic{Pkg: pkg, Name: name, Kind: kind, HLSL: hlsl, Result: res, Ret: -1, Args: 1}
	intrinsics[pkg+"."+name] = in
	return in
}

func defMethod(class, name string, kind IntrinsicKind, hlsl string, res func(*Type, []*Type) *Type) *Intrinsic {
	in := &Intrinsic{Pkg: class, Name: name, Kind: kind, HLSL: hlsl, Result: res, Ret: -1, Args: 1}
	methods[class+"."+name] = in
	return in
}

// LookupIntrinsic returns the intrinsic for a package-level API
// function, or nil.
func LookupIntrinsic(pkg, name string) *Intrinsic {
	return intrinsics[pkg+"."+name]
}

// LookupMethod returns the intrinsic for a method of an API type, or nil.
func LookupMethod(recv *Type, name string) *Intrinsic {
	recv = recv.Deref()
	switch {
	case recv.Kind == Vector:
		return methods["vec."+name]
	case recv.Kind == Scalar && recv.Bool32:
		return methods["bool32."+name]
	case recv.Kind == Resource && recv.Resource.Texture():
		in := methods["tex."+name]
		if in != nil && in.HLSL == "store" && !recv.Resource.ReadWrite() {
			return nil
		}
		return in
	}
	return nil
}

// HelperFunctions returns the HLSL functions a helper block defines.
func HelperFunctions(helper string) []string {
	var ns []string
	for _, in := range intrinsics {
		if in.Helper == helper {
			ns = append(ns, in.HLSL)
		}
	}
	slices.Sort(ns)
	return ns
}

func init() {
	// functions on float32 in mat32 and on float64 in math
	for _, f := range []struct{ Go, HLSL string }{
		{"Exp", "exp"}, {"Exp2", "exp2"}, {"Log", "log"}, {"Log2", "log2"}, {"Log10", "log10"},
		{"Pow", "pow"}, {"Sqrt", "sqrt"}, {"Abs", "abs"}, {"Floor", "floor"}, {"Ceil", "ceil"},
		{"Round", "round"}, {"Trunc", "trunc"}, {"Sin", "sin"}, {"Cos", "cos"}, {"Tan", "tan"},
		{"Asin", "asin"}, {"Acos", "acos"}, {"Atan", "atan"}, {"Atan2", "atan2"}, {"Sinh", "sinh"},
		{"Cosh", "cosh"}, {"Tanh", "tanh"}, {"Min", "min"}, {"Max", "max"}, {"Mod", "fmod"},
	} {
		def(Mat32Path, f.Go, CallIntrinsic, f.HLSL, fixed(TypFloat))
		def(MathPath, f.Go, CallIntrinsic, f.HLSL, fixed(TypDouble))
	}
	def(Mat32Path, "FastExp", CallIntrinsic, "exp", fixed(TypFloat))
	def(Mat32Path, "IsNaN", CallIntrinsic, "isnan", fixed(TypBool))
	def(MathPath, "IsNaN", CallIntrinsic, "isnan", fixed(TypBool))
	def(MathPath, "Float32frombits", CallIntrinsic, "asfloat", fixed(TypFloat))
	def(MathPath, "Float32bits", CallIntrinsic, "asuint", fixed(TypUint))
	for _, p := range []struct {
		path string
		t    *Type
	}{{Mat32Path, TypFloat}, {MathPath, TypDouble}} {
		sc := def(p.path, "Sincos", OutIntrinsic, "sincos", fixed(TupleOf(p.t, p.t)))
		sc.Outs = []int{0, 1}
		mf := def(p.path, "Modf", OutIntrinsic, "modf", fixed(TupleOf(p.t, p.t)))
		mf.Ret, mf.Outs = 1, []int{0}
	}

	def(BitsPath, "OnesCount32", TemplateIntrinsic, "(int)countbits(%s)", fixed(TypInt))
	def(BitsPath, "Reverse32", CallIntrinsic, "reversebits", fixed(TypUint))
	def(BitsPath, "LeadingZeros32", TemplateIntrinsic, "(31 - (int)firstbithigh(%s))", fixed(TypInt))
	def(BitsPath, "TrailingZeros32", TemplateIntrinsic, "(%[1]s == 0 ? 32 : (int)firstbitlow(%[1]s))", fixed(TypInt))

	for _, f := range []struct{ Go, HLSL string }{
		{"Clamp", "clamp"}, {"Saturate", "saturate"}, {"Lerp", "lerp"}, {"Step", "step"},
		{"SmoothStep", "smoothstep"}, {"Rsqrt", "rsqrt"}, {"Frac", "frac"}, {"Sign", "sign"}, {"Fma", "mad"},
	} {
		def(SLPath, f.Go, CallIntrinsic, f.HLSL, fixed(TypFloat))
	}
	def(SLPath, "Mul", CallIntrinsic, "mul", fixed(TypFloat4)).Swap = true
	def(SLPath, "Mul3", CallIntrinsic, "mul", fixed(TypFloat3)).Swap = true
	def(SLPath, "MulMat", CallIntrinsic, "mul", fixed(TypFloat4x4)).Swap = true
	for n := 2; n <= 4; n++ {
		s := string(rune('0' + n))
		def(SLPath, "Less"+s, OpIntrinsic, "<", boolVec(n))
		def(SLPath, "Greater"+s, OpIntrinsic, ">", boolVec(n))
		def(SLPath, "Equal"+s, OpIntrinsic, "==", boolVec(n))
		def(SLPath, "Select"+s, CallIntrinsic, "select", arg(1))
		def(SLPath, "And"+s, CallIntrinsic, "and", boolVec(n))
		def(SLPath, "Or"+s, CallIntrinsic, "or", boolVec(n))
		def(SLPath, "Any"+s, CallIntrinsic, "any", fixed(TypBool))
		def(SLPath, "All"+s, CallIntrinsic, "all", fixed(TypBool))
	}
	def(SLPath, "AsFloat", CallIntrinsic, "asfloat", fixed(TypFloat))
	def(SLPath, "AsUint", CallIntrinsic, "asuint", fixed(TypUint))
	def(SLPath, "AsInt", CallIntrinsic, "asint", fixed(TypInt))
	def(SLPath, "CountBits", CallIntrinsic, "countbits", fixed(TypUint))
	def(SLPath, "ReverseBits", CallIntrinsic, "reversebits", fixed(TypUint))
	def(SLPath, "FirstBitHigh", TemplateIntrinsic, "(int)firstbithigh(%s)", fixed(TypInt))
	def(SLPath, "FirstBitLow", TemplateIntrinsic, "(int)firstbitlow(%s)", fixed(TypInt))
	def(SLPath, "GroupBarrier", CallIntrinsic, "GroupMemoryBarrierWithGroupSync", fixed(TypVoid))
	def(SLPath, "DeviceBarrier", CallIntrinsic, "DeviceMemoryBarrierWithGroupSync", fixed(TypVoid))
	def(SLPath, "AllBarrier", CallIntrinsic, "AllMemoryBarrierWithGroupSync", fixed(TypVoid))
	for _, op := range []string{"Add", "Min", "Max", "And", "Or", "Xor", "Exchange"} {
		def(SLPath, "Atomic"+op, AtomicIntrinsic, "Interlocked"+op, pointee)
	}
	for _, acc := range []string{"ThreadId", "GroupId", "GroupThreadId", "GroupSize", "DispatchSize"} {
		def(SLPath, acc, AccessorIntrinsic, acc, fixed(TypInt3))
	}

	def(SLBoolPath, "IsTrue", TemplateIntrinsic, "(%s == 1)", fixed(TypBool))
	def(SLBoolPath, "IsFalse", TemplateIntrinsic, "(%s == 0)", fixed(TypBool))
	def(SLBoolPath, "FromBool", TemplateIntrinsic, "(%s ? 1 : 0)", fixed(TypBool32))
	defMethod("bool32", "IsTrue", TemplateIntrinsic, "(%s == 1)", fixed(TypBool))
	defMethod("bool32", "IsFalse", TemplateIntrinsic, "(%s == 0)", fixed(TypBool))
	defMethod("bool32", "SetBool", TemplateIntrinsic, "%s = (%s ? 1 : 0)", fixed(TypVoid))

	rnd := func(name string, res *Type) *Intrinsic {
		in := def(SLRandPath, name, CallIntrinsic, name, fixed(res))
		in.Helper = "slrand"
		return in
	}
	rnd("MulHiLo64", TupleOf(TypUint, TypUint)).Kind = OutIntrinsic
	intrinsics[SLRandPath+".MulHiLo64"].Outs = []int{0, 1}
	rnd("SinCosPi", TupleOf(TypFloat, TypFloat)).Kind = OutIntrinsic
	intrinsics[SLRandPath+".SinCosPi"].Outs = []int{0, 1}
	rnd("Philox2x32round", TypVoid)
	rnd("Philox2x32bumpkey", TypVoid)
	rnd("Philox2x32", TypUint2)
	rnd("Uint32ToFloat", TypFloat)
	rnd("Uint32ToFloat11", TypFloat)
	rnd("Uint2ToFloat", TypFloat2)
	rnd("CounterIncr", TypVoid)
	rnd("RandUint2", TypUint2)
	rnd("RandUint32", TypUint)
	rnd("RandFloat2", TypFloat2)
	rnd("RandFloat", TypFloat)
	rnd("RandFloat11", TypFloat)
	rnd("RandBoolP", TypBool)
	rnd("RandNormFloat2", TypFloat2)
	rnd("RandNormFloat", TypFloat)

	// methods of the sltype and mat32 vectors
	defMethod("vec", "Add", OpIntrinsic, "+", recvType)
	defMethod("vec", "Sub", OpIntrinsic, "-", recvType)
	defMethod("vec", "Mul", OpIntrinsic, "*", recvType)
	defMethod("vec", "Div", OpIntrinsic, "/", recvType)
	defMethod("vec", "AddScalar", OpIntrinsic, "+", recvType)
	defMethod("vec", "SubScalar", OpIntrinsic, "-", recvType)
	defMethod("vec", "MulScalar", OpIntrinsic, "*", recvType)
	defMethod("vec", "DivScalar", OpIntrinsic, "/", recvType)
	defMethod("vec", "Negate", UnaryIntrinsic, "-", recvType)
	defMethod("vec", "Dot", CallIntrinsic, "dot", recvComponent)
	defMethod("vec", "Length", CallIntrinsic, "length", recvComponent)
	defMethod("vec", "Normal", CallIntrinsic, "normalize", recvType)
	defMethod("vec", "Cross", CallIntrinsic, "cross", recvType)
	defMethod("vec", "XY", SwizzleIntrinsic, "xy", func(recv *Type, _ []*Type) *Type { return VectorOf(recv.Scalar, 2) })

	defMethod("tex", "Load", TextureIntrinsic, "load", texElem)
	defMethod("tex", "Store", TextureIntrinsic, "store", fixed(TypVoid))
	defMethod("tex", "Sample", TextureIntrinsic, "sample", texElem)
	defMethod("tex", "Dimensions", TextureIntrinsic, "dims", texDims)

	setArgs()
}

// setArgs sets the argument count of the intrinsics that do not take
// exactly one.
func setArgs() {
	set := func(tab map[string]*Intrinsic, n int, ids ...string) {
		for _, id := range ids {
			tab[id].Args = n
		}
	}
	for _, p := range []string{Mat32Path, MathPath} {
		set(intrinsics, 2, p+".Pow", p+".Atan2", p+".Min", p+".Max", p+".Mod")
	}
	set(intrinsics, 0, SLPath+".GroupBarrier", SLPath+".DeviceBarrier", SLPath+".AllBarrier")
	set(intrinsics, 2, SLPath+".Step", SLPath+".Mul", SLPath+".Mul3", SLPath+".MulMat")
	set(intrinsics, 3, SLPath+".Clamp", SLPath+".Lerp", SLPath+".SmoothStep", SLPath+".Fma")
	for n := 2; n <= 4; n++ {
		s := string(rune('0' + n))
		set(intrinsics, 2, SLPath+".Less"+s, SLPath+".Greater"+s, SLPath+".Equal"+s, SLPath+".And"+s, SLPath+".Or"+s)
		set(intrinsics, 3, SLPath+".Select"+s)
	}
	for _, op := range []string{"Add", "Min", "Max", "And", "Or", "Xor", "Exchange"} {
		set(intrinsics, 2, SLPath+".Atomic"+op)
	}
	for _, acc := range []string{"ThreadId", "GroupId", "GroupThreadId", "GroupSize", "DispatchSize"} {
		set(intrinsics, 0, SLPath+"."+acc)
	}
	r := SLRandPath + "."
	set(intrinsics, 2, r+"MulHiLo64", r+"Philox2x32round", r+"Philox2x32", r+"RandUint2", r+"RandUint32",
		r+"RandFloat2", r+"RandFloat", r+"RandFloat11", r+"RandNormFloat2", r+"RandNormFloat")
	set(intrinsics, 3, r+"RandBoolP")

	set(methods, 0, "bool32.IsTrue", "bool32.IsFalse", "vec.Negate", "vec.Length", "vec.Normal", "vec.XY", "tex.Dimensions")
	set(methods, 2, "tex.Store", "tex.Sample")
}

// APIConst is a constant declared in an API package.
type APIConst struct {
	Type  *Type
	Value constant.Value
}

var apiConsts = map[string]APIConst{
	MathPath + ".Pi":                     {UntypedFloat, constant.MakeFloat64(math.Pi)},
	MathPath + ".E":                      {UntypedFloat, constant.MakeFloat64(math.E)},
	MathPath + ".Sqrt2":                  {UntypedFloat, constant.MakeFloat64(math.Sqrt2)},
	MathPath + ".Ln2":                    {UntypedFloat, constant.MakeFloat64(math.Ln2)},
	MathPath + ".MaxFloat32":             {UntypedFloat, constant.MakeFloat64(math.MaxFloat32)},
	MathPath + ".SmallestNonzeroFloat32": {UntypedFloat, constant.MakeFloat64(math.SmallestNonzeroFloat32)},
	MathPath + ".MaxInt32":               {UntypedInt, constant.MakeInt64(math.MaxInt32)},
	MathPath + ".MinInt32":               {UntypedInt, constant.MakeInt64(math.MinInt32)},
	MathPath + ".MaxUint32":              {UntypedInt, constant.MakeUint64(math.MaxUint32)},
	SLBoolPath + ".True":                 {TypBool32, constant.MakeInt64(1)},
	SLBoolPath + ".False":                {TypBool32, constant.MakeInt64(0)},
	SLRandPath + ".PIf":                  {TypFloat, constant.MakeFloat64(math.Pi)},
}

// LookupAPIConst returns a constant of an API package.
func LookupAPIConst(pkg, name string) (APIConst, bool) {
	c, ok := apiConsts[pkg+"."+name]
	return c, ok
}

// APIType returns the shader type of an API package type, with the
// type arguments of the generic resource types, or nil.
func APIType(pkg, name string, targs []*Type) *Type {
	switch pkg {
	case SLTypePath:
		switch name {
		case "Float":
			return TypFloat
		case "Float2", "Float3", "Float4":
			return VectorOf(Float, int(name[5]-'0'))
		case "Int2", "Int3", "Int4":
			return VectorOf(Int, int(name[3]-'0'))
		case "Uint2", "Uint3", "Uint4":
			return VectorOf(Uint, int(name[4]-'0'))
		case "Bool2", "Bool3", "Bool4":
			return VectorOf(Bool, int(name[4]-'0'))
		case "Float4x4":
			return MatrixOf(4, 4)
		case "Float3x3":
			return MatrixOf(3, 3)
		case "Float2x2":
			return MatrixOf(2, 2)
		}
	case Mat32Path:
		switch name {
		case "Vec2", "Vec3", "Vec4":
			return VectorOf(Float, int(name[3]-'0'))
		case "Mat4":
			return MatrixOf(4, 4)
		case "Mat3":
			return MatrixOf(3, 3)
		}
	case SLBoolPath:
		if name == "Bool" {
			return TypBool32
		}
	case SLRandPath:
		switch name {
		case "Uint2":
			return TypUint2
		case "Float2":
			return TypFloat2
		}
	case SLPath:
		res := map[string]ResourceKind{
			"ReadOnlyBuffer": ReadOnlyBuffer, "ReadWriteBuffer": ReadWriteBuffer,
			"ReadOnlyTexture2D": ReadOnlyTexture2D, "ReadWriteTexture2D": ReadWriteTexture2D,
			"ReadOnlyTexture3D": ReadOnlyTexture3D, "ReadWriteTexture3D": ReadWriteTexture3D,
		}
		if r, ok := res[name]; ok {
			elem := InvalidType("missing type argument")
			if len(targs) == 1 {
				elem = targs[0]
			}
			return ResourceOf(r, elem)
		}
		if name == "Sampler" {
			return TypSampler
		}
	}
	return nil
}
