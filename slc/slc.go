// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package slc runs the translation pipeline over the kernels of a
program: collect, validate, layout, rewrite and emit, each stage
looked up in the incremental cache under the fingerprint of its input.

Translate always returns a descriptor. Compile additionally fails with
a *sldiag.CompileError, carrying every diagnostic, when the kernel has
hard diagnostics.
*/
package slc

import (
	"errors"
	"runtime"
	"sync"

	"github.com/emer/emergent/v2/timer"
	"github.com/gogpu/naga/hlsl"
	"goki.dev/slkernel/alignsl"
	"goki.dev/slkernel/slcache"
	"goki.dev/slkernel/slcheck"
	"goki.dev/slkernel/slclosure"
	"goki.dev/slkernel/sldiag"
	"goki.dev/slkernel/slemit"
	"goki.dev/slkernel/slsema"
	"goki.dev/slkernel/slwrite"
)

// Options configures a Compiler. Start from DefaultOptions: the zero
// ShaderModel is 5.0.
type Options struct {
	// NumThreads is the thread group size of kernels without a
	// numthreads directive. Zero selects 64 1 1 for compute kernels
	// and 8 8 1 for pixel kernels.
	NumThreads [3]int

	// MaxConstantWords is the constant buffer limit in 32-bit words.
	MaxConstantWords int

	ShaderModel hlsl.ShaderModel

	// Cache holds stage results across translations, nil for none.
	Cache *slcache.Cache

	// Workers bounds the parallel translations of CompileAll,
	// zero for GOMAXPROCS.
	Workers int
}

// DefaultOptions returns the default options, with a new cache.
func DefaultOptions() Options {
	return Options{
		MaxConstantWords: alignsl.DefaultMaxConstantWords,
		ShaderModel:      slemit.DefaultShaderModel,
		Cache:            slcache.New(),
	}
}

// Report describes how a translation went.
type Report struct {
	Kernel string `json:"kernel"`

	// Fingerprint is the structural fingerprint of the closure.
	Fingerprint string `json:"fingerprint"`

	Stages []slcache.StageReport `json:"stages"`

	// Seconds is the wall time of the translation.
	Seconds float64 `json:"seconds"`
}

// Reason returns the cache reason of a stage.
func (r *Report) Reason(s slcache.Stage) slcache.Reason {
	for _, st := range r.Stages {
		if st.Stage == s {
			return st.Reason
		}
	}
	return slcache.Modified
}

// Compiler translates the kernels of a program. It is safe for
// concurrent use: each translation has its own checker, and the
// cache is the only shared state.
type Compiler struct {
	prog *slsema.Program
	opts Options
}

// New returns a compiler for the kernels of prog.
func New(prog *slsema.Program, opts Options) *Compiler {
	if opts.MaxConstantWords <= 0 {
		opts.MaxConstantWords = alignsl.DefaultMaxConstantWords
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Compiler{prog: prog, opts: opts}
}

// Program returns the program being translated.
func (c *Compiler) Program() *slsema.Program { return c.prog }

// Options returns the effective options.
func (c *Compiler) Options() Options { return c.opts }

// Kernels returns the kernel candidates of the program.
func (c *Compiler) Kernels() []*slsema.Kernel { return c.prog.Kernels() }

// Lookup returns the kernel with a qualified ID or type name.
func (c *Compiler) Lookup(name string) (*slsema.Kernel, error) {
	return c.prog.Kernel(name)
}

// Translate translates kernel k. Kernel problems are reported in the
// descriptor diagnostics, with spans resolved against the program.
func (c *Compiler) Translate(k *slsema.Kernel) (*slemit.ShaderDescriptor, *Report) {
	var tm timer.Time
	tm.Start()
	id := k.ID()
	cache := c.opts.Cache
	log := Logger().With("kernel", id)

	g := slclosure.Collect(slsema.NewChecker(c.prog), k)
	fp := slcache.Fingerprint(g)
	rep := &Report{Kernel: id, Fingerprint: fp}
	stage := func(s slcache.Stage, key string, r slcache.Reason) {
		rep.Stages = append(rep.Stages, slcache.StageReport{Stage: s, Fingerprint: key, Reason: r})
		log.Debug("stage", "stage", s, "fingerprint", key[:12], "reason", r)
	}

	found, r := slcache.Get(cache, id, slcache.Collect, fp, func() sldiag.List {
		return g.Diagnostics.Clone()
	})
	stage(slcache.Collect, fp, r)

	vkey := slcache.Combine(fp, c.opts.ShaderModel)
	valid, r := slcache.Get(cache, id, slcache.Validate, vkey, func() sldiag.List {
		return slcheck.Validate(g, slcheck.Options{ShaderModel: c.opts.ShaderModel})
	})
	stage(slcache.Validate, vkey, r)

	lkey := slcache.Combine(fp, c.opts.MaxConstantWords)
	layout, r := slcache.Get(cache, id, slcache.Layout, lkey, func() *alignsl.Layout {
		return alignsl.Resolve(g, alignsl.Options{MaxConstantWords: c.opts.MaxConstantWords})
	})
	stage(slcache.Layout, lkey, r)

	code, r := slcache.Get(cache, id, slcache.Rewrite, lkey, func() *slwrite.Result {
		return slwrite.Rewrite(g, layout)
	})
	stage(slcache.Rewrite, lkey, r)

	ekey := slcache.Combine(vkey, lkey, c.opts.NumThreads, c.opts.ShaderModel)
	d, r := slcache.Get(cache, id, slcache.Emit, ekey, func() *slemit.ShaderDescriptor {
		var diags sldiag.List
		diags = append(diags, found...)
		diags = append(diags, valid...)
		diags = append(diags, layout.Diagnostics...)
		diags = append(diags, code.Diagnostics...)
		in := slemit.Input{Kernel: k, Layout: layout, Code: code, Diagnostics: diags, Fingerprint: fp}
		return slemit.Emit(in, slemit.Options{NumThreads: c.opts.NumThreads, ShaderModel: c.opts.ShaderModel})
	})
	stage(slcache.Emit, ekey, r)

	// cached descriptors are shared: spans go on a copy
	out := *d
	out.Diagnostics = d.Diagnostics.Clone()
	g.ResolveSpans(out.Diagnostics)

	tm.Stop()
	rep.Seconds = tm.TotalSecs()
	if n := len(out.Diagnostics); n > 0 {
		log.Warn("diagnostics", "errors", len(out.Diagnostics.Errors()), "warnings", len(out.Diagnostics.Warnings()))
	}
	log.Info("translated", "profile", out.Profile, "seconds", rep.Seconds)
	return &out, rep
}

// Compile translates kernel k and fails when it has hard diagnostics.
// The error is a *sldiag.CompileError holding every diagnostic.
func (c *Compiler) Compile(k *slsema.Kernel) (*slemit.ShaderDescriptor, *Report, error) {
	d, rep := c.Translate(k)
	if d.HasErrors() {
		return nil, rep, &sldiag.CompileError{Kernel: d.Kernel, Diagnostics: d.Diagnostics}
	}
	return d, rep, nil
}

// Result is the translation of one kernel by TranslateAll.
type Result struct {
	Kernel *slsema.Kernel
	Shader *slemit.ShaderDescriptor
	Report *Report
}

// TranslateAll translates ks in parallel, at most Workers at a time.
// Results are in the order of ks.
func (c *Compiler) TranslateAll(ks []*slsema.Kernel) []Result {
	res := make([]Result, len(ks))
	sem := make(chan struct{}, c.opts.Workers)
	var wg sync.WaitGroup
	for i, k := range ks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, k *slsema.Kernel) {
			defer func() {
				<-sem
				wg.Done()
			}()
			d, rep := c.Translate(k)
			res[i] = Result{Kernel: k, Shader: d, Report: rep}
		}(i, k)
	}
	wg.Wait()
	return res
}

// CompileAll translates ks in parallel. The error joins the
// *sldiag.CompileError of every kernel with hard diagnostics; the
// results hold all translations either way.
func (c *Compiler) CompileAll(ks []*slsema.Kernel) ([]Result, error) {
	res := c.TranslateAll(ks)
	var errs []error
	for _, r := range res {
		if r.Shader.HasErrors() {
			errs = append(errs, &sldiag.CompileError{Kernel: r.Shader.Kernel, Diagnostics: r.Shader.Diagnostics})
		}
	}
	return res, errors.Join(errs...)
}
