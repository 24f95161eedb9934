// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slemit

import (
	"strings"
	"testing"

	"github.com/goki/go-difflib/difflib"
	"goki.dev/slkernel/alignsl"
	"goki.dev/slkernel/slcheck"
	"goki.dev/slkernel/slclosure"
	"goki.dev/slkernel/sldiag"
	"goki.dev/slkernel/slsema"
	"goki.dev/slkernel/slwrite"
)

const header = `package kern

import (
	"goki.dev/slkernel/sl"
	"goki.dev/slkernel/sltype"
)
`

func translate(t *testing.T, body, kernel string) *ShaderDescriptor {
	t.Helper()
	prog, err := slsema.ParseSources(slsema.Source{PkgPath: "example.com/kern", Filename: "kern.go", Text: header + body})
	if err != nil {
		t.Fatal(err)
	}
	k, err := prog.Kernel(kernel)
	if err != nil {
		t.Fatal(err)
	}
	g := slclosure.Collect(slsema.NewChecker(prog), k)
	diags := g.Diagnostics.Clone()
	diags = append(diags, slcheck.Validate(g, slcheck.Options{ShaderModel: DefaultShaderModel})...)
	l := alignsl.Resolve(g, alignsl.Options{})
	diags = append(diags, l.Diagnostics...)
	code := slwrite.Rewrite(g, l)
	diags = append(diags, code.Diagnostics...)
	return Emit(Input{Kernel: k, Layout: l, Code: code, Diagnostics: diags, Fingerprint: "f0"}, Options{ShaderModel: DefaultShaderModel})
}

func expectNoDiff(t *testing.T, want, got string) {
	t.Helper()
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	})
	if diff != "" {
		t.Error(diff)
	}
}

const scaleKernel = `
//sl:numthreads 64 1 1
type Scale struct {
	Factor float32
	In     sl.ReadOnlyBuffer[float32]
	Out    sl.ReadWriteBuffer[float32]
}

func (k Scale) Execute() {
	i := sl.ThreadId().X
	k.Out[i] = k.In[i] * k.Factor
}
`

func TestSource(t *testing.T) {
	d := translate(t, scaleKernel, "Scale")
	want := `// Code generated by slkernel from example.com/kern.Scale. DO NOT EDIT.
// compute kernel, profile cs_6_0

#define NUM_THREADS_X 64
#define NUM_THREADS_Y 1
#define NUM_THREADS_Z 1

cbuffer Constants : register(b0) {
	float Factor : packoffset(c0.x);
	uint __bound_x : packoffset(c0.y);
	uint __bound_y : packoffset(c0.z);
	uint __bound_z : packoffset(c0.w);
};

StructuredBuffer<float> In : register(t0);
RWStructuredBuffer<float> Out : register(u0);

[numthreads(NUM_THREADS_X, NUM_THREADS_Y, NUM_THREADS_Z)]
void main(uint3 __id : SV_DispatchThreadID, uint3 __gid : SV_GroupID, uint3 __gtid : SV_GroupThreadID) {
	if (__id.x < __bound_x && __id.y < __bound_y && __id.z < __bound_z) {
		int i = int3(__id).x;
		Out[i] = In[i] * Factor;
	}
}
`
	expectNoDiff(t, want, d.HlslSource)
	if len(d.Diagnostics) != 0 {
		t.Errorf("diagnostics:\n%s", d.Diagnostics)
	}
	if d.Profile != "cs_6_0" || d.ShaderModel != "SM 6.0" || d.EntryPoint != "main" {
		t.Errorf("profile = %q, model = %q, entry = %q", d.Profile, d.ShaderModel, d.EntryPoint)
	}
	if d.ConstantBufferSize != 16 || d.Bounds != [3]int{4, 8, 12} {
		t.Errorf("constant buffer = %d, bounds = %v", d.ConstantBufferSize, d.Bounds)
	}
	if d.Kernel != "example.com/kern.Scale" || d.Name != "Scale" || d.Capability != "compute" {
		t.Errorf("kernel = %q %q %q", d.Kernel, d.Name, d.Capability)
	}
	if cf := d.ConstantFields(); len(cf) != 1 || cf[0].Name != "Factor" {
		t.Errorf("constant fields = %v", cf)
	}
}

func TestDefaultNumThreads(t *testing.T) {
	d := translate(t, `
type Fill struct {
	Out sl.ReadWriteBuffer[float32]
}

func (k Fill) Execute() {
	k.Out[sl.ThreadId().X] = 1
}
`, "Fill")
	if got := d.Diagnostics.Codes(); len(got) != 1 || got[0] != sldiag.MissingNumThreads {
		t.Errorf("codes = %v, want [%s]", got, sldiag.MissingNumThreads)
	}
	if d.HasErrors() {
		t.Error("a missing numthreads directive is not an error")
	}
	if d.ThreadGroupSize != (ThreadGroupSize{X: 64, Y: 1, Z: 1}) {
		t.Errorf("thread group = %+v", d.ThreadGroupSize)
	}
	for _, l := range []string{"#define NUM_THREADS_X 64", "#define NUM_THREADS_Y 1", "RWStructuredBuffer<float> Out : register(u0);"} {
		if !strings.Contains(d.HlslSource, l+"\n") {
			t.Errorf("missing %q in:\n%s", l, d.HlslSource)
		}
	}
}

func TestPackOffset(t *testing.T) {
	tests := []struct {
		off  int
		agg  bool
		want string
	}{
		{0, false, "c0.x"},
		{4, false, "c0.y"},
		{12, false, "c0.w"},
		{16, false, "c1.x"},
		{32, true, "c2"},
		{40, true, "c2.z"},
	}
	for _, test := range tests {
		if got := packOffset(test.off, test.agg); got != test.want {
			t.Errorf("packOffset(%d, %v) = %q, want %q", test.off, test.agg, got, test.want)
		}
	}
}

func TestConstantBuffer(t *testing.T) {
	d := translate(t, `
type Params struct {
	Gain float32
	Bias float32
}

//sl:numthreads 8 8 1
type Mix struct {
	Tint   sltype.Float3
	Count  int32
	P      Params
	Weight sl.ReadOnlyBuffer[float32]
	Lut    sl.ReadOnlyTexture2D[sltype.Float4]
	Out    sl.ReadWriteBuffer[float32]
}

func (k Mix) Execute() {
	id := sl.ThreadId()
	k.Out[id.X] = k.Weight[id.X]*k.P.Gain + k.P.Bias + float32(k.Count)
}
`, "Mix")
	for _, l := range []string{
		"float3 Tint : packoffset(c0.x);",
		"int Count : packoffset(c0.w);",
		"Params P : packoffset(c1);",
		"StructuredBuffer<float> Weight : register(t0);",
		"Texture2D<float4> Lut : register(t1);",
		"RWStructuredBuffer<float> Out : register(u0);",
		"[numthreads(NUM_THREADS_X, NUM_THREADS_Y, NUM_THREADS_Z)]",
	} {
		if !strings.Contains(d.HlslSource, l) {
			t.Errorf("missing %q in:\n%s", l, d.HlslSource)
		}
	}
	if strings.Index(d.HlslSource, "struct Params") > strings.Index(d.HlslSource, "cbuffer Constants") {
		t.Errorf("struct declared after its use:\n%s", d.HlslSource)
	}
	if len(d.Ranges) != 3 {
		t.Errorf("ranges = %v", d.Ranges)
	}
	if d.ThreadGroupSize != (ThreadGroupSize{X: 8, Y: 8, Z: 1}) {
		t.Errorf("thread group = %+v", d.ThreadGroupSize)
	}
}

func TestPixelGuard(t *testing.T) {
	d := translate(t, `
//sl:pixel
type Clear struct {
	Color sltype.Float4
}

func (k Clear) Execute() sltype.Float4 {
	return k.Color
}
`, "Clear")
	if !strings.Contains(d.HlslSource, "if (__id.x < __bound_x && __id.y < __bound_y) {") {
		t.Errorf("pixel guard missing in:\n%s", d.HlslSource)
	}
	if strings.Contains(d.HlslSource, "__bound_z") {
		t.Errorf("pixel kernel has a z bound:\n%s", d.HlslSource)
	}
	if d.Capability != "pixel" || d.Bounds[2] != -1 {
		t.Errorf("capability = %q, bounds = %v", d.Capability, d.Bounds)
	}
}

func TestEqual(t *testing.T) {
	a := translate(t, scaleKernel, "Scale")
	b := translate(t, scaleKernel, "Scale")
	if !a.Equal(b) {
		t.Error("translations of the same kernel differ")
	}
	b.Helpers = append(b.Helpers, "extra")
	if a.Equal(b) {
		t.Error("descriptors with different helpers are equal")
	}
	var n *ShaderDescriptor
	if n.Equal(a) || !n.Equal(nil) {
		t.Error("nil descriptor comparison")
	}
}
