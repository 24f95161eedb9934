// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slc

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"goki.dev/slkernel/slcache"
	"goki.dev/slkernel/sldiag"
	"goki.dev/slkernel/slsema"
)

const kernels = `package kern

import "goki.dev/slkernel/sl"

func half(x float32) float32 { return x / 2 }

//sl:numthreads 64 1 1
type Halve struct {
	Out sl.ReadWriteBuffer[float32]
}

func (k Halve) Execute() {
	i := sl.ThreadId().X
	k.Out[i] = half(k.Out[i])
}

//sl:numthreads 16 1 1
type Count struct {
	N int32
}

func (k Count) Execute() {
	n := k.N + 1
	_ = n
}
`

func program(t *testing.T, src string) *slsema.Program {
	t.Helper()
	prog, err := slsema.ParseSources(slsema.Source{PkgPath: "example.com/kern", Filename: "kern.go", Text: src})
	if err != nil {
		t.Fatal(err)
	}
	return prog
}

func kernel(t *testing.T, c *Compiler, name string) *slsema.Kernel {
	t.Helper()
	k, err := c.Lookup(name)
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func reasons(rep *Report) []slcache.Reason {
	var rs []slcache.Reason
	for _, s := range rep.Stages {
		rs = append(rs, s.Reason)
	}
	return rs
}

func all(rs []slcache.Reason, want slcache.Reason) bool {
	if len(rs) != int(slcache.NumStages) {
		return false
	}
	for _, r := range rs {
		if r != want {
			return false
		}
	}
	return true
}

func TestKernels(t *testing.T) {
	c := New(program(t, kernels), DefaultOptions())
	var names []string
	for _, k := range c.Kernels() {
		names = append(names, k.Name)
	}
	if strings.Join(names, " ") != "Halve Count" {
		t.Errorf("kernels = %v", names)
	}
	if _, err := c.Lookup("Missing"); err == nil {
		t.Error("lookup of a missing kernel succeeded")
	}
}

func TestIncremental(t *testing.T) {
	opts := DefaultOptions()
	c := New(program(t, kernels), opts)
	k := kernel(t, c, "Halve")
	first, rep := c.Translate(k)
	if !all(reasons(rep), slcache.Modified) {
		t.Errorf("first run reasons = %v", reasons(rep))
	}
	again, rep := c.Translate(k)
	if !all(reasons(rep), slcache.Unchanged) {
		t.Errorf("second run reasons = %v", reasons(rep))
	}
	if !first.Equal(again) {
		t.Error("repeated translation differs")
	}

	// a new program with comments only
	edited := strings.Replace(kernels, "func half(", "// half halves x.\nfunc half(", 1)
	c2 := New(program(t, edited), opts)
	d, rep := c2.Translate(kernel(t, c2, "Halve"))
	if !all(reasons(rep), slcache.Unchanged) {
		t.Errorf("comment edit reasons = %v", reasons(rep))
	}
	if d.HlslSource != first.HlslSource {
		t.Error("comment edit changed the shader")
	}

	// a behavior change
	changed := strings.Replace(kernels, "return x / 2", "return x / 4", 1)
	c3 := New(program(t, changed), opts)
	d, rep = c3.Translate(kernel(t, c3, "Halve"))
	for _, s := range []slcache.Stage{slcache.Rewrite, slcache.Emit} {
		if rep.Reason(s) != slcache.Modified {
			t.Errorf("%s after behavior change = %v", s, rep.Reason(s))
		}
	}
	if d.HlslSource == first.HlslSource {
		t.Error("behavior change kept the shader")
	}

	// going back finds the stored results
	_, rep = c.Translate(k)
	if rep.Reason(slcache.Emit) != slcache.Cached {
		t.Errorf("revert emit reason = %v", rep.Reason(slcache.Emit))
	}
}

const inherited = `package kern

import (
	m "math"

	"goki.dev/slkernel/sl"
)

const (
	Lo = iota * 2
	Hi
)

//sl:numthreads 64 1 1
type Fill struct {
	Out sl.ReadWriteBuffer[float32]
}

func (k Fill) Execute() {
	i := sl.ThreadId().X
	k.Out[i] = m.Abs(k.Out[i]) + Hi
}
`

func TestInheritedChanges(t *testing.T) {
	opts := DefaultOptions()
	c := New(program(t, inherited), opts)
	first, base := c.Translate(kernel(t, c, "Fill"))

	// Hi repeats the expression of Lo
	edited := strings.Replace(inherited, "iota * 2", "iota * 7", 1)
	c2 := New(program(t, edited), opts)
	d, rep := c2.Translate(kernel(t, c2, "Fill"))
	if rep.Fingerprint == base.Fingerprint {
		t.Error("editing an inherited constant expression keeps the fingerprint")
	}
	if rep.Reason(slcache.Emit) != slcache.Modified {
		t.Errorf("emit after constant edit = %v", rep.Reason(slcache.Emit))
	}
	if d.HlslSource == first.HlslSource {
		t.Error("constant edit kept the shader")
	}

	repointed := strings.Replace(inherited, `m "math"`, `m "goki.dev/mat32/v2"`, 1)
	c3 := New(program(t, repointed), opts)
	if _, rep = c3.Translate(kernel(t, c3, "Fill")); rep.Fingerprint == base.Fingerprint {
		t.Error("changing an import path keeps the fingerprint")
	}
}

func TestNoCache(t *testing.T) {
	opts := DefaultOptions()
	opts.Cache = nil
	c := New(program(t, kernels), opts)
	k := kernel(t, c, "Halve")
	a, _ := c.Translate(k)
	b, rep := c.Translate(k)
	if !all(reasons(rep), slcache.Modified) {
		t.Errorf("reasons without cache = %v", reasons(rep))
	}
	if !a.Equal(b) {
		t.Error("translation is not deterministic")
	}
}

func TestCompile(t *testing.T) {
	c := New(program(t, kernels), DefaultOptions())
	if _, _, err := c.Compile(kernel(t, c, "Halve")); err != nil {
		t.Errorf("Halve: %v", err)
	}
	d, rep, err := c.Compile(kernel(t, c, "Count"))
	if d != nil || rep == nil {
		t.Errorf("failed compile returned %v, %v", d, rep)
	}
	var ce *sldiag.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("error %v is not a CompileError", err)
	}
	if !ce.Diagnostics.Has(sldiag.MissingResource) {
		t.Errorf("diagnostics = %v", ce.Diagnostics.Codes())
	}
	for _, dg := range ce.Diagnostics {
		if dg.Code == sldiag.MissingResource && dg.Span.Line == 0 {
			t.Errorf("%s has no span", dg.Code)
		}
	}
}

func TestCompileAll(t *testing.T) {
	opts := DefaultOptions()
	opts.Workers = 2
	c := New(program(t, kernels), opts)
	res, err := c.CompileAll(c.Kernels())
	if len(res) != 2 || res[0].Kernel.Name != "Halve" || res[1].Kernel.Name != "Count" {
		t.Fatalf("results out of order: %v", res)
	}
	var ce *sldiag.CompileError
	if !errors.As(err, &ce) || ce.Kernel != "example.com/kern.Count" {
		t.Errorf("error = %v", err)
	}
	if res[0].Shader == nil || res[0].Shader.HasErrors() {
		t.Error("Halve should translate cleanly")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetLogger(nil)
	c := New(program(t, kernels), DefaultOptions())
	c.Translate(kernel(t, c, "Halve"))
	out := buf.String()
	for _, s := range []string{"msg=translated", "kernel=example.com/kern.Halve", "stage=rewrite", "reason=modified"} {
		if !strings.Contains(out, s) {
			t.Errorf("log lacks %q:\n%s", s, out)
		}
	}
	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger is enabled")
	}
}
