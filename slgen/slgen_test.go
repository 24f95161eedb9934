// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slgen

import (
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"goki.dev/slkernel/alignsl"
	"goki.dev/slkernel/slc"
	"goki.dev/slkernel/slsema"
)

const src = `package kern

import "goki.dev/slkernel/sl"

type Params struct {
	Gain float32
	Bias float32
}

//sl:numthreads 64 1 1
type Scale struct {
	Factor float32
	Count  int32
	P      Params
	Out    sl.ReadWriteBuffer[float32]
}

func (k Scale) Execute() {
	i := sl.ThreadId().X
	k.Out[i] = k.Out[i]*k.Factor*k.P.Gain + k.P.Bias + float32(k.Count)
}
`

func TestGenerate(t *testing.T) {
	prog, err := slsema.ParseSources(slsema.Source{PkgPath: "example.com/kern", Filename: "kern.go", Text: src})
	if err != nil {
		t.Fatal(err)
	}
	c := slc.New(prog, slc.DefaultOptions())
	k, err := c.Lookup("Scale")
	if err != nil {
		t.Fatal(err)
	}
	d, _, err := c.Compile(k)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Generate("kern", d)
	if err != nil {
		t.Fatal(err)
	}
	text := string(out)
	if _, err := parser.ParseFile(token.NewFileSet(), Filename("Scale"), out, 0); err != nil {
		t.Fatalf("generated file does not parse: %v\n%s", err, text)
	}
	for _, l := range []string{
		"package kern",
		"const ScaleConstantBufferSize = 48",
		"ScaleNumThreadsX = 64",
		"func (k Scale) PackConstants(dst []byte, x, y, z uint32) []byte {",
		"binary.LittleEndian.PutUint32(b[0:], math.Float32bits(k.Factor))",
		"binary.LittleEndian.PutUint32(b[4:], uint32(k.Count))",
		"binary.LittleEndian.PutUint32(b[16:], math.Float32bits(k.P.Gain))",
		"binary.LittleEndian.PutUint32(b[20:], math.Float32bits(k.P.Bias))",
		"binary.LittleEndian.PutUint32(b[32:], x)",
		"binary.LittleEndian.PutUint32(b[40:], z)",
	} {
		if !strings.Contains(text, l) {
			t.Errorf("missing %q in:\n%s", l, text)
		}
	}
	if !strings.Contains(text, "const ScaleHLSL = `// Code generated by slkernel") {
		t.Errorf("HLSL constant missing:\n%s", text)
	}
}

func TestArrayOffsets(t *testing.T) {
	g := &generator{}
	vec := &alignsl.TypeDesc{Kind: "vector", Scalar: "float", Len: 2, Size: 8, Align: 8}
	arr := &alignsl.TypeDesc{Kind: "array", Len: 3, Elem: vec, Size: 40, Align: 16}
	g.value(arr, "k.A", offset{n: 8})
	want := "for i0 := range k.A {\n" +
		"binary.LittleEndian.PutUint32(b[i0*16+8:], math.Float32bits(k.A[i0].X))\n" +
		"binary.LittleEndian.PutUint32(b[i0*16+12:], math.Float32bits(k.A[i0].Y))\n" +
		"}\n"
	if got := g.b.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
	if !g.usesMath {
		t.Error("float values need math")
	}
}

func TestMatrixOffsets(t *testing.T) {
	g := &generator{}
	m := &alignsl.TypeDesc{Kind: "matrix", Scalar: "float", Rows: 2, Cols: 2, Size: 24, Align: 16}
	g.value(m, "k.M", offset{n: 16})
	lines := strings.Split(strings.TrimSpace(g.b.String()), "\n")
	want := []string{"b[16:]", "b[20:]", "b[32:]", "b[36:]"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines:\n%s", len(lines), g.b.String())
	}
	for i, w := range want {
		if !strings.Contains(lines[i], w) {
			t.Errorf("line %d = %q, want %s", i, lines[i], w)
		}
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("Scale"); got != "scale_sl.go" {
		t.Errorf("Filename = %q", got)
	}
}
