// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slsema

import (
	"go/ast"
	"go/constant"
	"testing"
)

const kernelsSrc = `package kern

import (
	"goki.dev/mat32/v2"
	"goki.dev/slkernel/sl"
	"goki.dev/slkernel/sltype"
)

const (
	ModeA = iota
	ModeB
	ModeC
)

const Scale float32 = 2

const Half = 1.0 / 2

const Div = 7 / 2

type Params struct {
	Gain   float32
	Offset sltype.Float4
}

//sl:kernel
//sl:numthreads 64 1 1
type Add struct {
	P    Params
	In   sl.ReadOnlyBuffer[float32]
	Out  sl.ReadWriteBuffer[float32]
	Mode int32
}

func (k Add) Execute() {
	id := sl.ThreadId()
	x := k.In[id.X] * k.P.Gain
	y := x + 1
	if k.Mode == ModeB {
		y = mat32.Exp(y) * Scale
	}
	n := len(k.In)
	_ = n
	k.Out[id.X] = y
}

//sl:pixel
type Fill struct {
	Color sltype.Float4
}

func (k Fill) Execute() sltype.Float4 {
	return k.Color
}

type Implicit struct {
	Dst sl.ReadWriteBuffer[int32]
}

func (k Implicit) Execute() {
	k.Dst[0] = 1
}

//sl:kernel
//sl:pixel
type Both struct{}

func (k Both) Execute() {}

type NotKernel struct{}

func (n NotKernel) Execute(x int32) {}

func Outer() {
	//sl:kernel
	type Hidden struct {
		Out sl.ReadWriteBuffer[float32]
	}
	_ = Hidden{}
}
`

func parseKernels(t *testing.T) *Program {
	t.Helper()
	prog, err := ParseSources(Source{PkgPath: "example.com/kern", Filename: "kern.go", Text: kernelsSrc})
	if err != nil {
		t.Fatal(err)
	}
	return prog
}

func TestKernels(t *testing.T) {
	prog := parseKernels(t)
	ks := prog.Kernels()
	want := []struct {
		name     string
		cap      Capability
		explicit bool
		conflict bool
		local    bool
	}{
		{"Add", Compute, true, false, false},
		{"Fill", Pixel, true, false, false},
		{"Implicit", Compute, false, false, false},
		{"Both", Compute, true, true, false},
		{"Hidden", Compute, true, false, true},
	}
	if len(ks) != len(want) {
		for _, k := range ks {
			t.Log(k)
		}
		t.Fatalf("found %d kernels, want %d", len(ks), len(want))
	}
	for i, w := range want {
		k := ks[i]
		if k.Name != w.name || k.Capability != w.cap || k.Explicit != w.explicit || k.Conflict != w.conflict || k.Local != w.local {
			t.Errorf("kernel %d: got %s explicit=%v conflict=%v local=%v, want %+v", i, k, k.Explicit, k.Conflict, k.Local, w)
		}
	}
	add := ks[0]
	if !add.HasNumThreads || add.NumThreads != [3]int{64, 1, 1} {
		t.Errorf("Add numthreads = %v %v", add.HasNumThreads, add.NumThreads)
	}
	if add.ID() != "example.com/kern.Add" {
		t.Errorf("Add ID = %s", add.ID())
	}
	if ks[4].ID() != "example.com/kern.Outer.Hidden" {
		t.Errorf("Hidden ID = %s", ks[4].ID())
	}
	if ks[1].ThreadGroup([3]int{}) != [3]int{8, 8, 1} {
		t.Errorf("pixel default thread group = %v", ks[1].ThreadGroup([3]int{}))
	}
	if ks[1].Axes() != 2 || add.Axes() != 3 {
		t.Errorf("axes: %d %d", ks[1].Axes(), add.Axes())
	}
}

func TestKernelLookup(t *testing.T) {
	prog := parseKernels(t)
	if k, err := prog.Kernel("Fill"); err != nil || k.Name != "Fill" {
		t.Errorf("Kernel(Fill) = %v, %v", k, err)
	}
	if k, err := prog.Kernel("example.com/kern.Add"); err != nil || k.Name != "Add" {
		t.Errorf("Kernel(qualified) = %v, %v", k, err)
	}
	if _, err := prog.Kernel("Missing"); err == nil {
		t.Error("expected error for missing kernel")
	}
}

func TestParseNumThreads(t *testing.T) {
	tests := []struct {
		args []string
		ok   bool
	}{
		{[]string{"64", "1", "1"}, true},
		{[]string{"32", "32", "1"}, true},
		{[]string{"64", "1"}, false},
		{[]string{"0", "1", "1"}, false},
		{[]string{"x", "1", "1"}, false},
		{[]string{"1", "1", "65"}, false},
		{[]string{"64", "32", "1"}, false},
	}
	for _, tt := range tests {
		_, err := ParseNumThreads(Directive{Name: NumThreadsDirective, Args: tt.args})
		if (err == nil) != tt.ok {
			t.Errorf("ParseNumThreads(%v) err = %v", tt.args, err)
		}
	}
}

func TestDirectives(t *testing.T) {
	prog := parseKernels(t)
	k, _ := prog.Kernel("Add")
	ds := k.Directives
	if len(ds) != 2 || ds[0].Name != KernelDirective || ds[1].String() != "//sl:numthreads 64 1 1" {
		t.Errorf("directives = %v", ds)
	}
}

func TestConsts(t *testing.T) {
	prog := parseKernels(t)
	c := NewChecker(prog)
	pkg := prog.Package("example.com/kern")
	tests := []struct {
		name string
		val  string
		typ  string
	}{
		{"ModeA", "0", "int"},
		{"ModeC", "2", "int"},
		{"Scale", "2", "float"},
		{"Half", "0.5", "double"},
		{"Div", "3", "int"},
	}
	for _, tt := range tests {
		v, typ := c.Const(pkg.Lookup(tt.name))
		if v.String() != tt.val || typ.Default().String() != tt.typ {
			t.Errorf("%s = %s %s, want %s %s", tt.name, v.String(), typ.Default(), tt.val, tt.typ)
		}
	}
}

func TestCheckEntry(t *testing.T) {
	prog := parseKernels(t)
	k, _ := prog.Kernel("Add")
	c := NewChecker(prog)
	sig := c.CheckFunc(k.Entry)
	if sig.Recv == nil || sig.Recv.Name != "k" || sig.Recv.Type.Obj != k.Object {
		t.Fatalf("receiver = %+v", sig.Recv)
	}
	if len(c.Info.Unresolved) != 0 {
		t.Errorf("unresolved: %v", c.Info.Unresolved)
	}
	types := map[string]string{}
	for id, l := range c.Info.Defs {
		types[id.Name] = l.Type.String()
	}
	want := map[string]string{"k": "example.com/kern.Add", "id": "int3", "x": "float", "y": "float", "n": "int"}
	for n, ts := range want {
		if types[n] != ts {
			t.Errorf("type of %s = %q, want %q", n, types[n], ts)
		}
	}
	// the literal 1 in x + 1 becomes a float constant
	var found bool
	ast.Inspect(k.Entry.FuncDecl().Body, func(n ast.Node) bool {
		if bl, ok := n.(*ast.BasicLit); ok && bl.Value == "1" {
			found = true
			if tt := c.Info.TypeOf(bl); tt.String() != "float" {
				t.Errorf("literal 1 has type %s", tt)
			}
			if v := c.Info.ConstOf(bl); v.Kind() != constant.Float {
				t.Errorf("literal 1 value kind %v", v.Kind())
			}
		}
		return true
	})
	if !found {
		t.Error("literal not found")
	}
}

func TestFields(t *testing.T) {
	prog := parseKernels(t)
	k, _ := prog.Kernel("Add")
	c := NewChecker(prog)
	fs := c.Fields(c.NamedType(k.Object))
	want := []string{"P example.com/kern.Params", "In StructuredBuffer<float>", "Out RWStructuredBuffer<float>", "Mode int"}
	if len(fs) != len(want) {
		t.Fatalf("fields = %v", fs)
	}
	for i, f := range fs {
		if got := f.Name + " " + f.Type.String(); got != want[i] {
			t.Errorf("field %d = %q, want %q", i, got, want[i])
		}
	}
}

func TestUnresolved(t *testing.T) {
	src := `package u

func F() float32 {
	return missing + 1
}
`
	prog, err := ParseSources(Source{Filename: "u.go", Text: src})
	if err != nil {
		t.Fatal(err)
	}
	c := NewChecker(prog)
	c.CheckFunc(prog.Package("u").Lookup("F"))
	if len(c.Info.Unresolved) != 1 || c.Info.Unresolved[0].Name != "missing" {
		t.Errorf("unresolved = %v", c.Info.Unresolved)
	}
}

func TestLookupMethod(t *testing.T) {
	if in := LookupMethod(TypFloat3, "Dot"); in == nil || in.HLSL != "dot" {
		t.Errorf("vec Dot = %v", in)
	}
	if in := LookupMethod(ResourceOf(ReadOnlyTexture2D, TypFloat4), "Store"); in != nil {
		t.Error("Store on read-only texture resolved")
	}
	if in := LookupMethod(ResourceOf(ReadWriteTexture2D, TypFloat4), "Store"); in == nil {
		t.Error("Store on read-write texture not resolved")
	}
	if LookupIntrinsic(Mat32Path, "Exp") == nil || LookupIntrinsic(Mat32Path, "NoSuch") != nil {
		t.Error("LookupIntrinsic")
	}
}
