// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slwrite

import (
	"go/constant"
	"math"
	"strings"
	"testing"

	"goki.dev/slkernel/alignsl"
	"goki.dev/slkernel/slclosure"
	"goki.dev/slkernel/sldiag"
	"goki.dev/slkernel/slsema"
)

const header = `package kern

import (
	"goki.dev/mat32/v2"
	"goki.dev/slkernel/sl"
	"goki.dev/slkernel/slrand"
	"goki.dev/slkernel/sltype"
)
`

func rewrite(t *testing.T, body, kernel string) *Result {
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
	return Rewrite(g, alignsl.Resolve(g, alignsl.Options{}))
}

// hasLines checks that want appear in text as whole lines, in order,
// ignoring indentation.
func hasLines(t *testing.T, text string, want ...string) {
	t.Helper()
	var got []string
	for _, l := range strings.Split(text, "\n") {
		got = append(got, strings.TrimSpace(l))
	}
	i := 0
	for _, l := range got {
		if i < len(want) && l == want[i] {
			i++
		}
	}
	if i < len(want) {
		t.Errorf("missing line %q in:\n%s", want[i], text)
	}
}

func TestSelect(t *testing.T) {
	r := rewrite(t, `
//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	A   sltype.Float4
	B   sltype.Float4
	Out sl.ReadWriteBuffer[sltype.Float4]
}

func (k K) Execute() {
	i := sl.ThreadId().X
	mask := sl.Less4(k.A, k.B)
	k.Out[i] = sl.Select4(mask, k.A, k.B)
}
`, "K")
	hasLines(t, r.Body,
		"int i = int3(__id).x;",
		"bool4 mask = (A < B);",
		"Out[i] = select(mask, A, B);")
	if len(r.Diagnostics) != 0 {
		t.Errorf("diagnostics = %v", r.Diagnostics)
	}
}

func TestWideShift(t *testing.T) {
	r := rewrite(t, `
//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	Out sl.ReadWriteBuffer[uint32]
	Neg sl.ReadWriteBuffer[int32]
}

func (k K) Execute() {
	i := sl.ThreadId().X
	v := k.Out[i]
	n := k.Neg[i]
	k.Out[i] = v << 33
	k.Neg[i] = n >> 40
	v >>= 32
	n >>= 32
	k.Out[i] = v
	k.Neg[i] = n
}
`, "K")
	hasLines(t, r.Body,
		"uint v = Out[i];",
		"int n = Neg[i];",
		"Out[i] = v << 31 << 1;",
		"Neg[i] = n >> 31;",
		"v = 0u;",
		"n >>= 31;",
		"Out[i] = v;")
	if len(r.Diagnostics) != 0 {
		t.Errorf("diagnostics = %v", r.Diagnostics)
	}
}

func TestLoweringDiagnostics(t *testing.T) {
	r := rewrite(t, `
func pair() (float32, float32) { return 1, 2 }

//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	Out sl.ReadWriteBuffer[float32]
}

func (k K) Execute() {
	i := sl.ThreadId().X
	a, b := pair()
	s := "x"
	_ = s
	k.Out[i] = a + b
}
`, "K")
	for _, c := range []sldiag.Code{sldiag.UnsupportedStmt, sldiag.UntypedDecl} {
		if !r.Diagnostics.Has(c) {
			t.Errorf("missing %s in %v", c, r.Diagnostics)
		}
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		v    constant.Value
		t    *slsema.Type
		want string
	}{
		{constant.MakeFloat64(1), slsema.TypFloat, "1.0"},
		{constant.MakeFloat64(0.5), slsema.TypFloat, "0.5"},
		{constant.MakeFloat64(1e20), slsema.TypFloat, "1e+20"},
		{constant.MakeFloat64(1.5), slsema.TypDouble, "1.5L"},
		{constant.MakeFloat64(2), slsema.UntypedFloat, "2.0L"},
		{constant.MakeInt64(3), slsema.TypUint, "3u"},
		{constant.MakeInt64(-2), slsema.TypInt, "-2"},
		{constant.MakeInt64(5), slsema.TypInt64, "5ll"},
		{constant.MakeInt64(5), slsema.TypUint64, "5ull"},
		{constant.MakeBool(true), slsema.TypBool, "true"},
		{constant.MakeBool(true), slsema.TypBool32, "1"},
		{constant.MakeInt64(7), slsema.TypFloat, "7.0"},
	}
	for _, test := range tests {
		if got := Literal(test.v, test.t); got != test.want {
			t.Errorf("Literal(%v, %v) = %q, want %q", test.v, test.t, got, test.want)
		}
	}
	if got := formatFloat(math.Inf(-1), 32); got != "-1.#INF" {
		t.Errorf("-Inf = %q", got)
	}
}

func TestNamer(t *testing.T) {
	n := NewNamer("main")
	if got := n.Name("main"); got != "main_1" {
		t.Errorf("main = %q", got)
	}
	if got := n.Name("float"); got != "float_" {
		t.Errorf("float = %q", got)
	}
	if got := n.Name("Main"); got != "Main" {
		t.Errorf("Main = %q", got)
	}
	if got := n.Name("P"); got != "P" {
		t.Errorf("P = %q", got)
	}
	if got := n.Name("p"); got != "p" {
		t.Errorf("p next to P = %q", got)
	}
	if got := n.Name("Technique"); got != "Technique_" {
		t.Errorf("Technique = %q", got)
	}
	if got := n.Name(""); got != "_unnamed" {
		t.Errorf("empty = %q", got)
	}
	c := n.Child()
	if got := c.Name("x"); got != "x" {
		t.Errorf("child x = %q", got)
	}
	if got := n.Name("x"); got != "x" {
		t.Errorf("parent x = %q", got)
	}
	if got := c.Name("x"); got == "x" {
		t.Errorf("child x reused")
	}
}

func TestSymbolTable(t *testing.T) {
	s := NewSymbolTable()
	if !s.Add("a", "A", "text a") || !s.Add("b", "B", "text b") {
		t.Fatal("add failed")
	}
	if s.Add("a", "A2", "other") {
		t.Error("duplicate add succeeded")
	}
	if s.Text("a") != "text a" || s.Len() != 2 {
		t.Errorf("text = %q, len = %d", s.Text("a"), s.Len())
	}
	if n, _ := s.Name("b"); n != "B" {
		t.Errorf("name = %q", n)
	}
}

func TestConstructor(t *testing.T) {
	r := rewrite(t, `
type Pair struct {
	A, B float32
}

//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	Out sl.ReadWriteBuffer[Pair]
}

func (k K) Execute() {
	i := sl.ThreadId().X
	p := Pair{A: 1, B: 2}
	k.Out[i] = p
	k.Out[i+1] = Pair{A: 3}
	k.Out[i+2] = Pair{B: 4}
}
`, "K")
	hasLines(t, r.Body,
		"Pair p = {1.0, 2.0};",
		"Out[i] = p;",
		"Out[i + 1] = Pair_ctor(3.0, 0.0);",
		"Out[i + 2] = Pair_ctor(0.0, 4.0);")
	if len(r.HelperNames) != 1 || r.HelperNames[0] != "Pair_ctor" {
		t.Fatalf("helpers = %v", r.HelperNames)
	}
	hasLines(t, r.Helpers[0],
		"Pair Pair_ctor(float A, float B) {",
		"Pair r;",
		"r.A = A;",
		"r.B = B;",
		"return r;")
	if len(r.StructDecls) != 1 || !strings.HasPrefix(r.StructDecls[0], "struct Pair {") {
		t.Errorf("structs = %v", r.StructDecls)
	}
}

func TestPads(t *testing.T) {
	r := rewrite(t, `
type Params struct {
	X float32
	V sltype.Float3
}

//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	Prm Params
	Out sl.ReadWriteBuffer[float32]
}

func (k K) Execute() {
	i := sl.ThreadId().X
	k.Out[i] = k.Prm.X + k.Prm.V.X
}
`, "K")
	want := "struct Params {\n\tfloat X;\n\tfloat __pad0;\n\tfloat __pad1;\n\tfloat __pad2;\n\tfloat3 V;\n};\n"
	if len(r.StructDecls) != 1 || r.StructDecls[0] != want {
		t.Errorf("structs = %q", r.StructDecls)
	}
	hasLines(t, r.Body, "Out[i] = Prm.X + Prm.V.x;")
}

func TestSwitch(t *testing.T) {
	r := rewrite(t, `
//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	Out sl.ReadWriteBuffer[float32]
}

func (k K) Execute() {
	i := sl.ThreadId().X
	v := float32(0)
	switch i {
	case 0:
		v = 1
	case 1, 2:
		v = 2
	default:
		v = 3
	}
	switch {
	case v > 1:
		v = 4
	}
	k.Out[i] = v
}
`, "K")
	hasLines(t, r.Body,
		"float v = 0.0;",
		"switch (i) {",
		"case 0: {",
		"v = 1.0;",
		"break;",
		"case 1:",
		"case 2: {",
		"v = 2.0;",
		"default: {",
		"v = 3.0;",
		"if ((v > 1.0)) {",
		"v = 4.0;",
		"Out[i] = v;")
}

func TestSwitchBreak(t *testing.T) {
	r := rewrite(t, `
//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	Scale float32
	Out   sl.ReadWriteBuffer[float32]
}

func (k K) Execute() {
	i := sl.ThreadId().X
	v := k.Scale
	switch v {
	case 1:
		if i > 3 {
			break
		}
		v = 2
	default:
		v = 0
	}
	k.Out[i] = v
}
`, "K")
	hasLines(t, r.Body,
		"float v = Scale;",
		"do {",
		"if ((v == 1.0)) {",
		"if (i > 3) {",
		"break;",
		"v = 2.0;",
		"} else {",
		"v = 0.0;",
		"} while (false);")
}

func TestDimensions(t *testing.T) {
	r := rewrite(t, `
//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	In  sl.ReadOnlyBuffer[float32]
	Out sl.ReadWriteBuffer[float32]
}

func (k K) Execute() {
	i := sl.ThreadId().X
	n := len(k.In)
	if i < n {
		k.Out[i] = k.In[i]
	}
}
`, "K")
	hasLines(t, r.Body,
		"uint _n, _s;",
		"In.GetDimensions(_n, _s);",
		"int n = int(_n);",
		"if (i < n) {",
		"Out[i] = In[i];")
}

func TestOutIntrinsics(t *testing.T) {
	r := rewrite(t, `
//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	X     float32
	Out   sl.ReadWriteBuffer[float32]
	Count sl.ReadWriteBuffer[int32]
}

func (k K) Execute() {
	i := sl.ThreadId().X
	s, c := mat32.Sincos(k.X)
	ip, fr := mat32.Modf(k.X)
	sl.AtomicAdd(&k.Count[0], 1)
	old := sl.AtomicAdd(&k.Count[1], 2)
	k.Out[i] = s + c + ip + fr + float32(old)
}
`, "K")
	hasLines(t, r.Body,
		"float s;",
		"float c;",
		"sincos(X, s, c);",
		"float ip;",
		"float fr;",
		"fr = modf(X, ip);",
		"InterlockedAdd(Count[0], 1);",
		"int _o;",
		"InterlockedAdd(Count[1], 2, _o);",
		"int old = _o;",
		"Out[i] = s + c + ip + fr + float(old);")
}

func TestRandHelper(t *testing.T) {
	r := rewrite(t, `
//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	Seed sltype.Uint2
	Out  sl.ReadWriteBuffer[float32]
}

func (k K) Execute() {
	i := sl.ThreadId().X
	c := k.Seed
	slrand.CounterIncr(&c)
	k.Out[i] = slrand.RandFloat(c, uint32(i)) + slrand.RandFloat(c, uint32(2))
}
`, "K")
	if len(r.HelperNames) != 1 || r.HelperNames[0] != "slrand" {
		t.Fatalf("helpers = %v", r.HelperNames)
	}
	if !strings.Contains(r.Helpers[0], "float RandFloat(uint2 counter, uint key)") {
		t.Errorf("helper block does not define RandFloat")
	}
	hasLines(t, r.Body,
		"uint2 c = Seed;",
		"CounterIncr(c);",
		"Out[i] = RandFloat(c, uint(i)) + RandFloat(c, 2u);")
}

func TestFunctions(t *testing.T) {
	r := rewrite(t, `
const Gain = 2

var table = [4]float32{1, 2, 3, 4}

type Acc struct {
	Sum float32
}

func (a *Acc) Add(v float32) {
	a.Sum += v
}

func scale(x float32) (y float32) {
	y = x * Gain
	return
}

//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	Out sl.ReadWriteBuffer[float32]
}

func (k K) Execute() {
	i := sl.ThreadId().X
	var a Acc
	for j := range 4 {
		a.Add(scale(table[j]))
	}
	u := uint32(i)
	m := u &^ 3
	z := u&1 == 0
	if z {
		m++
	}
	k.Out[i] = a.Sum + float32(m)
}
`, "K")
	if len(r.Prototypes) != 2 {
		t.Fatalf("prototypes = %v", r.Prototypes)
	}
	if r.Prototypes[0] != "void Acc_Add(inout Acc a, float v);" || r.Prototypes[1] != "float scale(float x);" {
		t.Errorf("prototypes = %v", r.Prototypes)
	}
	hasLines(t, r.Funcs[1],
		"float scale(float x) {",
		"float y = 0.0;",
		"y = x * 2.0;",
		"return y;")
	hasLines(t, r.Body,
		"Acc a = (Acc)0;",
		"for (int j = 0; j < 4; j++) {",
		"Acc_Add(a, scale(table[j]));",
		"uint u = uint(i);",
		"uint m = u & ~3u;",
		"bool z = (u & 1u) == 0u;",
		"m++;")
	if len(r.Statics) != 1 || r.Statics[0] != "static const float table[4] = {1.0, 2.0, 3.0, 4.0};" {
		t.Errorf("statics = %v", r.Statics)
	}
}

func TestPixelReturn(t *testing.T) {
	r := rewrite(t, `
//sl:pixel
//sl:numthreads 8 8 1
type P struct {
	Tint sltype.Float4
}

func (p P) Execute() sltype.Float4 {
	return sltype.Float4{X: p.Tint.X, W: 1}
}
`, "P")
	hasLines(t, r.Body,
		"__output[__id.xy] = float4(Tint.x, 0.0, 0.0, 1.0);",
		"return;")
}

func TestDeterministic(t *testing.T) {
	src := `
type Pair struct {
	A, B float32
}

//sl:kernel
//sl:numthreads 64 1 1
type K struct {
	Out sl.ReadWriteBuffer[Pair]
}

func (k K) Execute() {
	i := sl.ThreadId().X
	k.Out[i] = Pair{A: float32(i)}
}
`
	a := rewrite(t, src, "K")
	b := rewrite(t, src, "K")
	join := func(r *Result) string {
		return strings.Join(r.StructDecls, "") + strings.Join(r.Helpers, "") + strings.Join(r.Funcs, "") + r.Body
	}
	if join(a) != join(b) {
		t.Errorf("outputs differ:\n%s\n---\n%s", join(a), join(b))
	}
}
