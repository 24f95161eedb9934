// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slclosure

import (
	"strings"
	"testing"

	"goki.dev/slkernel/sldiag"
	"goki.dev/slkernel/slsema"
)

const src = `package kern

import (
	"goki.dev/slkernel/sl"
)

const Gain = 2

const Unused = 3

type Pair struct {
	A, B float32
}

type Inner struct {
	V float32
}

type Outer struct {
	In Inner
}

func (o Outer) Value() float32 {
	return o.In.V * Gain
}

func Even(n int32) bool {
	if n == 0 {
		return true
	}
	return Odd(n - 1)
}

func Odd(n int32) bool {
	if n == 0 {
		return false
	}
	return Even(n - 1)
}

func Sum(p Pair) float32 {
	return p.A + p.B
}

//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	O   Outer
	Out sl.ReadWriteBuffer[float32]
}

func (k K) Execute() {
	id := sl.ThreadId()
	p := Pair{A: 1, B: 2}
	v := Sum(p) + k.O.Value()
	if Even(id.X) {
		v += 1
	}
	k.Out[id.X] = v
}
`

func collect(t *testing.T, text string) *Graph {
	t.Helper()
	prog, err := slsema.ParseSources(slsema.Source{PkgPath: "example.com/kern", Filename: "kern.go", Text: text})
	if err != nil {
		t.Fatal(err)
	}
	k, err := prog.Kernel("K")
	if err != nil {
		t.Fatal(err)
	}
	return Collect(slsema.NewChecker(prog), k)
}

func TestCollectOrder(t *testing.T) {
	g := collect(t, src)
	var got []string
	for _, n := range g.Nodes {
		got = append(got, n.Kind.String()+" "+n.Name)
	}
	want := []string{
		"kernel K",
		"field O",
		"field Out",
		"entry Execute",
		"type Outer",
		"type Pair",
		"func Sum",
		"method Value",
		"func Even",
		"type Inner",
		"const Gain",
		"func Odd",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("closure order:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if g.Node("example.com/kern.Unused") != nil {
		t.Error("unreferenced constant in closure")
	}
}

func TestCycles(t *testing.T) {
	g := collect(t, src)
	if len(g.Cycles) != 1 {
		t.Fatalf("cycles = %v", g.Cycles)
	}
	cy := g.Cycles[0]
	if len(cy) != 2 || g.Nodes[cy[0]].Name != "Even" || g.Nodes[cy[1]].Name != "Odd" {
		t.Errorf("cycle = %v", cy)
	}
	if !g.Diagnostics.Has(sldiag.PossibleRecursion) || g.Diagnostics.HasErrors() {
		t.Errorf("diagnostics = %v", g.Diagnostics)
	}
}

func TestUnresolved(t *testing.T) {
	text := strings.Replace(src, "v += 1", "v += missing", 1)
	g := collect(t, text)
	if !g.Diagnostics.Has(sldiag.Unresolved) {
		t.Fatalf("diagnostics = %v", g.Diagnostics)
	}
	for _, d := range g.Diagnostics {
		if d.Code != sldiag.Unresolved {
			continue
		}
		if d.Anchor.Member != "example.com/kern.K.Execute" {
			t.Errorf("anchor member = %s", d.Anchor.Member)
		}
		sp := g.Span(d.Anchor)
		if sp.Line != 57 {
			t.Errorf("span = %v", sp)
		}
	}
}

func TestAnchorResolve(t *testing.T) {
	g := collect(t, src)
	e := g.Entry()
	body := e.Obj.FuncDecl().Body.List[1]
	a := g.Anchor(e, body)
	x, ok := g.Resolve(a)
	if !ok || x != body {
		t.Errorf("Resolve(%v) = %v, %v", a, x, ok)
	}
	// anchors do not depend on positions
	g2 := collect(t, "\n\n// moved\n"+src)
	e2 := g2.Entry()
	if a2 := g2.Anchor(e2, e2.Obj.FuncDecl().Body.List[1]); a2 != a {
		t.Errorf("anchor changed: %v != %v", a2, a)
	}
}
