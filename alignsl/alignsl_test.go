// Copyright (c) 2022, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package alignsl

import (
	"fmt"
	"strings"
	"testing"

	"goki.dev/slkernel/slclosure"
	"goki.dev/slkernel/sldiag"
	"goki.dev/slkernel/slsema"
)

const header = `package kern

import (
	"goki.dev/slkernel/sl"
	"goki.dev/slkernel/sltype"
)

var _ sltype.Float4
var _ sl.Sampler
`

func resolve(t *testing.T, body, kernel string) *Layout {
	t.Helper()
	prog, err := slsema.ParseSources(slsema.Source{PkgPath: "example.com/kern", Filename: "kern.go", Text: header + body})
	if err != nil {
		t.Fatal(err)
	}
	k, err := prog.Kernel(kernel)
	if err != nil {
		t.Fatal(err)
	}
	return Resolve(slclosure.Collect(slsema.NewChecker(prog), k), Options{})
}

func offsets(fs []Field) map[string]int {
	m := map[string]int{}
	for _, f := range fs {
		m[f.Name] = f.Offset
	}
	return m
}

func TestPacking(t *testing.T) {
	l := resolve(t, `
//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	A   float32
	B   sltype.Float2
	C   sltype.Float3
	D   float32
	M   sltype.Float4x4
	In  sl.ReadOnlyBuffer[float32]
	Out sl.ReadWriteBuffer[float32]
}

func (k K) Execute() {
	k.Out[0] = k.In[0] * k.A
}
`, "K")
	want := map[string]int{"A": 0, "B": 8, "C": 16, "D": 28, "M": 32}
	got := offsets(l.ConstantFields())
	for n, off := range want {
		if got[n] != off {
			t.Errorf("%s offset = %d, want %d", n, got[n], off)
		}
	}
	if l.Bounds != [3]int{96, 100, 104} {
		t.Errorf("bounds = %v", l.Bounds)
	}
	if l.ConstantBufferSize != 112 {
		t.Errorf("constant buffer size = %d, want 112", l.ConstantBufferSize)
	}
	rs := l.Ranges
	if len(rs) != 2 || rs[0].Field != "In" || rs[0].Category != ReadOnly || rs[0].Slot != 0 ||
		rs[1].Field != "Out" || rs[1].Category != ReadWrite || rs[1].Slot != 0 {
		t.Errorf("ranges = %+v", rs)
	}
	if rs[0].HLSL != "StructuredBuffer<float>" {
		t.Errorf("hlsl = %s", rs[0].HLSL)
	}
	if len(l.Diagnostics) != 0 {
		t.Errorf("diagnostics = %v", l.Diagnostics)
	}
}

func TestNestedStruct(t *testing.T) {
	l := resolve(t, `
type P struct {
	A float32
	B sltype.Float3
}

//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	Q   float32
	P   P
	X   float32
	Out sl.ReadWriteBuffer[float32]
}

func (k K) Execute() {
	k.Out[0] = k.P.A + k.X + k.Q
}
`, "K")
	got := offsets(l.ConstantFields())
	if got["Q"] != 0 || got["P"] != 16 || got["X"] != 48 {
		t.Errorf("offsets = %v", got)
	}
	if l.ConstantBufferSize != 64 {
		t.Errorf("constant buffer size = %d, want 64", l.ConstantBufferSize)
	}
	p := l.ConstantFields()[1].Type
	if p.Size != 32 || len(p.Members) != 2 || p.Members[1].Offset != 16 {
		t.Errorf("struct desc = %+v", p)
	}
	pads := l.Pads["example.com/kern.P"]
	if len(pads) != 1 || pads[0] != (Pad{Offset: 4, Words: 3, Member: 1}) {
		t.Errorf("pads = %v", pads)
	}
}

// sizes equal the sum of aligned field sizes plus padding, rounded up
func TestLayoutSums(t *testing.T) {
	cases := []struct {
		fields string
		size   int
	}{
		{"A float32", 16},
		{"A, B, C float32", 32},
		{"A, B, C, D float32", 32},
		{"A float32\n\tV sltype.Float4", 48},
		{"V sltype.Float3\n\tA float32", 32},
		{"A sltype.Float2\n\tB sltype.Float2", 32},
		{"M sltype.Float3x3", 64},
	}
	for _, c := range cases {
		l := resolve(t, fmt.Sprintf(`
//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	%s
	Out sl.ReadWriteBuffer[float32]
}

func (k K) Execute() {
	k.Out[0] = 1
}
`, c.fields), "K")
		if l.ConstantBufferSize != c.size {
			t.Errorf("%q: size = %d, want %d", c.fields, l.ConstantBufferSize, c.size)
		}
	}
}

func TestScenarioD(t *testing.T) {
	src := `
//sl:kernel
//sl:numthreads 64 1 1
type A struct {
	Gain  float32
	Bias  sltype.Float3
	Src   sl.ReadOnlyBuffer[float32]
	Dst   sl.ReadWriteBuffer[float32]
	Table sl.ReadOnlyBuffer[int32]
}

func (k A) Execute() {
	i := sl.ThreadId().X
	k.Dst[i] = k.Src[i]*k.Gain + k.Bias.X + float32(k.Table[i])
}

//sl:kernel
//sl:numthreads 64 1 1
type B struct {
	Scale  float32
	Shift  sltype.Float3
	Input  sl.ReadOnlyBuffer[float32]
	Output sl.ReadWriteBuffer[float32]
	Lookup sl.ReadOnlyBuffer[int32]
}

func (k B) Execute() {
	i := sl.ThreadId().X
	k.Output[i] = k.Input[i]*k.Scale + k.Shift.X + float32(k.Lookup[i])
}
`
	a, b := resolve(t, src, "A"), resolve(t, src, "B")
	if a.ConstantBufferSize != b.ConstantBufferSize {
		t.Errorf("sizes differ: %d %d", a.ConstantBufferSize, b.ConstantBufferSize)
	}
	if len(a.Ranges) != len(b.Ranges) {
		t.Fatalf("ranges differ: %v %v", a.Ranges, b.Ranges)
	}
	for i := range a.Ranges {
		ra, rb := a.Ranges[i], b.Ranges[i]
		if ra.Slot != rb.Slot || ra.Category != rb.Category {
			t.Errorf("range %d: %+v vs %+v", i, ra, rb)
		}
	}
	if a.Ranges[2].Slot != 1 || a.Ranges[2].Category != ReadOnly {
		t.Errorf("table range = %+v", a.Ranges[2])
	}
}

func TestConstantBufferExceeded(t *testing.T) {
	l := resolve(t, `
//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	M1, M2, M3, M4, M5 sltype.Float4x4
	Out sl.ReadWriteBuffer[float32]
}

func (k K) Execute() {
	k.Out[0] = k.M1[0][0]
}
`, "K")
	if !l.Diagnostics.Has(sldiag.ConstantBufferExceeded) {
		t.Fatalf("diagnostics = %v", l.Diagnostics)
	}
	if !strings.Contains(l.Diagnostics[0].Message, "336") {
		t.Errorf("message = %s", l.Diagnostics[0].Message)
	}
}

func TestGroupSharedExceeded(t *testing.T) {
	l := resolve(t, `
//sl:groupshared K
var tile [9000]float32

//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	Out sl.ReadWriteBuffer[float32]
}

func (k K) Execute() {
	tile[0] = 1
	k.Out[0] = tile[0]
}
`, "K")
	gs := l.GroupSharedFields()
	if len(gs) != 1 || gs[0].Name != "tile" || gs[0].Size != 36000 {
		t.Errorf("group-shared = %+v", gs)
	}
	if !l.Diagnostics.Has(sldiag.GroupSharedExceeded) {
		t.Errorf("diagnostics = %v", l.Diagnostics)
	}
}

func TestTooManyRegisters(t *testing.T) {
	var b strings.Builder
	b.WriteString("\n//sl:kernel\n//sl:numthreads 64 1 1\ntype K struct {\n")
	for i := 0; i <= MaxReadWriteSlots; i++ {
		fmt.Fprintf(&b, "\tB%d sl.ReadWriteBuffer[float32]\n", i)
	}
	b.WriteString("}\n\nfunc (k K) Execute() {\n\tk.B0[0] = 1\n}\n")
	l := resolve(t, b.String(), "K")
	if !l.Diagnostics.Has(sldiag.TooManyRegisters) {
		t.Errorf("diagnostics = %v", l.Diagnostics)
	}
	if n := len(l.Resources()); n != MaxReadWriteSlots+1 || l.Resources()[n-1].Slot != MaxReadWriteSlots {
		t.Errorf("resources = %d", n)
	}
}

func TestPixelOutput(t *testing.T) {
	l := resolve(t, `
//sl:pixel
//sl:numthreads 8 8 1
type P struct {
	Color sltype.Float4
	Log   sl.ReadWriteBuffer[float32]
}

func (k P) Execute() sltype.Float4 {
	k.Log[0] = 1
	return k.Color
}
`, "P")
	rs := l.Resources()
	if len(rs) != 2 || rs[1].Name != OutputName || rs[1].Slot != 1 || rs[1].Category != ReadWrite {
		t.Errorf("resources = %+v", rs)
	}
	if rs[1].HLSL != "RWTexture2D<float4>" {
		t.Errorf("output = %s", rs[1].HLSL)
	}
	if l.Bounds != [3]int{16, 20, -1} || l.ConstantBufferSize != 32 {
		t.Errorf("bounds = %v size = %d", l.Bounds, l.ConstantBufferSize)
	}
}

func TestBufferElement(t *testing.T) {
	l := resolve(t, `
type Odd struct {
	A float32
	B float32
	C int32
}

type Padded struct {
	A float32
	V sltype.Float3
}

//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	P   Padded
	In  sl.ReadOnlyBuffer[Odd]
	Out sl.ReadWriteBuffer[Padded]
}

func (k K) Execute() {
	o := k.In[0]
	k.Out[0] = k.P
	k.Out[1].A = o.A
}
`, "K")
	ds := l.Diagnostics
	if !ds.Has(sldiag.BufferAlignment) || !ds.Has(sldiag.PaddedBufferElement) {
		t.Fatalf("diagnostics = %v", ds)
	}
	if ds.HasErrors() {
		t.Errorf("buffer element checks must be soft: %v", ds)
	}
	found := false
	for _, d := range ds {
		if d.Code == sldiag.BufferAlignment && strings.Contains(d.Message, "total size: 12 not even multiple of 16") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing size message: %v", ds)
	}
}

func TestCheckStruct(t *testing.T) {
	prog, err := slsema.ParseSources(slsema.Source{PkgPath: "example.com/kern", Filename: "kern.go", Text: `package kern

import "goki.dev/slkernel/sltype"

type Good struct {
	A, B, C, D float32
	V          sltype.Float4
}

type Bad struct {
	A    float64
	B, C float32
}
`})
	if err != nil {
		t.Fatal(err)
	}
	c := slsema.NewChecker(prog)
	pkg := prog.Package("example.com/kern")
	if msgs := CheckStruct(c, c.NamedType(pkg.Lookup("Good"))); len(msgs) != 0 {
		t.Errorf("Good: %v", msgs)
	}
	msgs := CheckStruct(c, c.NamedType(pkg.Lookup("Bad")))
	if len(msgs) != 1 || !strings.Contains(msgs[0], "basic type != [U]Int32 or Float32") {
		t.Errorf("Bad: %v", msgs)
	}
}
