// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/emer/emergent/v2/timer"
	"goki.dev/grows/jsons"
	"goki.dev/slkernel/slc"
	"goki.dev/slkernel/slgen"
	"goki.dev/slkernel/slsema"
)

// session translates the kernels of a set of packages. Its options,
// and so its cache, are kept across the runs of watch.
type session struct {
	cfg      *Config
	opts     slc.Options
	dir      string
	patterns []string
	stdout   io.Writer
	stderr   io.Writer
}

func newSession(cfg *Config, args []string) *session {
	if len(args) == 0 {
		args = []string{"."}
	}
	return &session{cfg: cfg, opts: cfg.Options(), dir: ".", patterns: args, stdout: os.Stdout, stderr: os.Stderr}
}

// outcome counts what a run did.
type outcome struct {
	Kernels  int
	Errors   int
	Warnings int
	Written  []string
}

// load loads the packages of the session.
func (s *session) load() (*slsema.Program, error) {
	return slsema.Load(s.dir, s.patterns...)
}

// process translates every kernel of prog that is not excluded,
// printing diagnostics, and writes the outputs of clean kernels when
// write is set.
func (s *session) process(prog *slsema.Program, write bool) (outcome, error) {
	var tm timer.Time
	tm.Start()
	c := slc.New(prog, s.opts)
	var ks []*slsema.Kernel
	for _, k := range c.Kernels() {
		if s.cfg.Excluded(k.Name, k.ID()) {
			slc.Logger().Info("excluded", "kernel", k.ID())
			continue
		}
		ks = append(ks, k)
	}
	var o outcome
	for _, r := range c.TranslateAll(ks) {
		d := r.Shader
		o.Kernels++
		o.Errors += len(d.Diagnostics.Errors())
		o.Warnings += len(d.Diagnostics.Warnings())
		fmt.Fprint(s.stderr, d.Diagnostics)
		for _, st := range r.Report.Stages {
			slc.Logger().Debug("cache", "kernel", d.Kernel, "stage", st.Stage, "reason", st.Reason)
		}
		if !write || d.HasErrors() {
			continue
		}
		fs, err := s.write(r)
		o.Written = append(o.Written, fs...)
		if err != nil {
			return o, err
		}
	}
	tm.Stop()
	fmt.Fprintf(s.stdout, "%d kernels, %d errors, %d warnings (%.3gs)\n", o.Kernels, o.Errors, o.Warnings, tm.TotalSecs())
	return o, nil
}

// write writes the shader, descriptor and companion file of r,
// returning the files that changed.
func (s *session) write(r slc.Result) ([]string, error) {
	d := r.Shader
	if err := os.MkdirAll(s.cfg.Out, 0o755); err != nil {
		return nil, err
	}
	var written []string
	hfn := filepath.Join(s.cfg.Out, d.Name+".hlsl")
	changed, err := writeIfChanged(hfn, []byte(d.HlslSource))
	if err != nil {
		return written, err
	}
	if changed {
		written = append(written, hfn)
	}
	jfn := filepath.Join(s.cfg.Out, d.Name+".json")
	if err := jsons.Save(d, jfn); err != nil {
		return written, fmt.Errorf("writing %s: %w", jfn, err)
	}
	written = append(written, jfn)
	k := r.Kernel
	if !s.cfg.Companion || k.Local || k.Pkg.Dir == "" {
		return written, nil
	}
	src, err := slgen.Generate(k.Pkg.Name, d)
	if err != nil {
		return written, err
	}
	gfn := filepath.Join(k.Pkg.Dir, slgen.Filename(d.Name))
	changed, err = writeIfChanged(gfn, src)
	if err != nil {
		return written, err
	}
	if changed {
		written = append(written, gfn)
	}
	return written, nil
}

// writeIfChanged writes data to fn unless it already holds it.
func writeIfChanged(fn string, data []byte) (bool, error) {
	if old, err := os.ReadFile(fn); err == nil && bytes.Equal(old, data) {
		return false, nil
	}
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", fn, err)
	}
	slc.Logger().Info("wrote", slog.String("file", fn))
	return true, nil
}
