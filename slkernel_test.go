// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gogpu/naga/hlsl"
	"github.com/goki/go-difflib/difflib"
	"github.com/spf13/pflag"
	"goki.dev/slkernel/slc"
	"goki.dev/slkernel/slsema"
)

var update = flag.Bool("update", false, "update .golden files")

// testProgram parses testdata/<name>.go as package testdata/<name>.
func testProgram(t *testing.T, name string) *slsema.Program {
	t.Helper()
	fn := filepath.Join("testdata", name+".go")
	src, err := os.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	prog, err := slsema.ParseSources(slsema.Source{PkgPath: "testdata/" + name, Filename: fn, Text: string(src)})
	if err != nil {
		t.Fatal(err)
	}
	return prog
}

func diff(want, got string) string {
	d, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "expected",
		ToFile:   "got",
		Context:  3,
	})
	return d
}

// TestGolden translates the kernels of testdata/*.go and compares the
// shaders to testdata/<kernel>.golden.
func TestGolden(t *testing.T) {
	match, err := filepath.Glob("testdata/*.go")
	if err != nil {
		t.Fatal(err)
	}
	if len(match) == 0 {
		t.Fatal("no test inputs")
	}
	for _, in := range match {
		name := strings.TrimSuffix(filepath.Base(in), ".go")
		c := slc.New(testProgram(t, name), slc.DefaultOptions())
		for _, k := range c.Kernels() {
			t.Run(k.Name, func(t *testing.T) {
				d, _, err := c.Compile(k)
				if err != nil {
					t.Fatal(err)
				}
				out := filepath.Join("testdata", k.Name+".golden")
				if *update {
					if err := os.WriteFile(out, []byte(d.HlslSource), 0o666); err != nil {
						t.Error(err)
					}
					return
				}
				expected, err := os.ReadFile(out)
				if err != nil {
					t.Fatal(err)
				}
				if dd := diff(string(expected), d.HlslSource); dd != "" {
					t.Errorf("(slkernel %s) != %s\n%s", in, out, dd)
				}
			})
		}
	}
}

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), ConfigFile)
	if err := os.WriteFile(fn, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return fn
}

func TestLoadConfig(t *testing.T) {
	fn := writeConfig(t, `
out = "gen"
exclude = ["Offset", "example.com/kern.Count"]
shader_model = "6.2"
companion = true
`)
	cfg := DefaultConfig()
	if err := LoadConfig(fn, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Out != "gen" || !cfg.Companion || cfg.ShaderModel != "6.2" || cfg.MaxConstantWords != 64 {
		t.Errorf("config = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Error(err)
	}
	if !cfg.Excluded("Offset", "testdata/basic.Offset") || !cfg.Excluded("Count", "example.com/kern.Count") {
		t.Error("excluded kernels are not excluded")
	}
	if cfg.Excluded("Scale", "testdata/basic.Scale") {
		t.Error("Scale is excluded")
	}
	if opts := cfg.Options(); opts.ShaderModel != hlsl.ShaderModel6_2 || opts.Cache == nil {
		t.Errorf("options = %+v", opts)
	}

	cfg = DefaultConfig()
	if err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"), &cfg); err != nil {
		t.Errorf("missing file: %v", err)
	}
	if def := DefaultConfig(); cfg.Out != def.Out || cfg.Exclude != nil || cfg.Companion {
		t.Errorf("missing file changed the config: %+v", cfg)
	}

	err := LoadConfig(writeConfig(t, "outdir = \"x\"\n"), &cfg)
	if err == nil || !strings.Contains(err.Error(), "outdir") {
		t.Errorf("unknown key error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConstantWords = 0
	if cfg.Validate() == nil {
		t.Error("zero constant words is valid")
	}
	cfg = DefaultConfig()
	cfg.ShaderModel = "4.0"
	if cfg.Validate() == nil {
		t.Error("shader model 4.0 is valid")
	}
}

func TestParseShaderModel(t *testing.T) {
	for s, want := range map[string]hlsl.ShaderModel{
		"5.0":    hlsl.ShaderModel5_0,
		"6.0":    hlsl.ShaderModel6_0,
		" 6.5 ":  hlsl.ShaderModel6_5,
		"SM 6.7": hlsl.ShaderModel6_7,
	} {
		got, err := ParseShaderModel(s)
		if err != nil || got != want {
			t.Errorf("ParseShaderModel(%q) = %v, %v", s, got, err)
		}
	}
	for _, s := range []string{"", "6", "7.0", "cs_6_0"} {
		if _, err := ParseShaderModel(s); err == nil {
			t.Errorf("ParseShaderModel(%q) succeeded", s)
		}
	}
}

func TestFlags(t *testing.T) {
	fn := writeConfig(t, "out = \"gen\"\nmax_constant_words = 32\n")
	var gf globalFlags
	fs := pflag.NewFlagSet("slkernel", pflag.ContinueOnError)
	gf.register(fs)
	if err := fs.Parse([]string{"--config", fn, "--shader-model", "6.1", "--exclude", "A,B"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := gf.load(fs)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Out != "gen" || cfg.MaxConstantWords != 32 {
		t.Errorf("file values lost: %+v", cfg)
	}
	if cfg.ShaderModel != "6.1" || strings.Join(cfg.Exclude, ",") != "A,B" {
		t.Errorf("flags not applied: %+v", cfg)
	}

	fs = pflag.NewFlagSet("slkernel", pflag.ContinueOnError)
	gf = globalFlags{}
	gf.register(fs)
	if err := fs.Parse([]string{"--config", fn, "--out", "elsewhere"}); err != nil {
		t.Fatal(err)
	}
	if cfg, err = gf.load(fs); err != nil || cfg.Out != "elsewhere" {
		t.Errorf("--out = %+v, %v", cfg, err)
	}
}

func TestRoot(t *testing.T) {
	exited := false
	exit := func(int) { exited = true }

	var buf bytes.Buffer
	root := newRoot(context.Background(), exit)
	root.SetOut(&buf)
	root.SetArgs([]string{"--help"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"translate", "check", "watch", "--shader-model"} {
		if !strings.Contains(buf.String(), s) {
			t.Errorf("help lacks %q:\n%s", s, buf.String())
		}
	}

	root = newRoot(context.Background(), exit)
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"check", "--config", filepath.Join(t.TempDir(), "none.toml"), "--shader-model", "9.9"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "9.9") {
		t.Errorf("bad shader model error = %v", err)
	}
	if exited {
		t.Error("command ran with an invalid configuration")
	}
}

func testSession(t *testing.T, cfg *Config) (*session, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	s := newSession(cfg, nil)
	s.stdout = &stdout
	s.stderr = &stderr
	return s, &stdout, &stderr
}

func TestProcess(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Out = t.TempDir()
	cfg.Exclude = []string{"Offset"}
	s, stdout, stderr := testSession(t, &cfg)
	prog := testProgram(t, "basic")

	o, err := s.process(prog, true)
	if err != nil {
		t.Fatal(err)
	}
	if o.Kernels != 1 || o.Errors != 0 || o.Warnings != 0 {
		t.Errorf("outcome = %+v", o)
	}
	hfn := filepath.Join(cfg.Out, "Scale.hlsl")
	jfn := filepath.Join(cfg.Out, "Scale.json")
	if strings.Join(o.Written, " ") != hfn+" "+jfn {
		t.Errorf("written = %v", o.Written)
	}
	got, err := os.ReadFile(hfn)
	if err != nil {
		t.Fatal(err)
	}
	want, err := os.ReadFile(filepath.Join("testdata", "Scale.golden"))
	if err != nil {
		t.Fatal(err)
	}
	if dd := diff(string(want), string(got)); dd != "" {
		t.Errorf("written shader differs:\n%s", dd)
	}
	js, err := os.ReadFile(jfn)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(js, []byte(`"testdata/basic.Scale"`)) {
		t.Errorf("descriptor lacks the kernel id:\n%s", js)
	}
	if !strings.HasPrefix(stdout.String(), "1 kernels, 0 errors, 0 warnings") {
		t.Errorf("summary = %q", stdout.String())
	}
	if stderr.Len() != 0 {
		t.Errorf("stderr = %q", stderr.String())
	}

	// an unchanged shader is not written again
	o, err = s.process(prog, true)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(o.Written, " ") != jfn {
		t.Errorf("second run wrote %v", o.Written)
	}
}

func TestCheckErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Out = filepath.Join(t.TempDir(), "out")
	s, stdout, stderr := testSession(t, &cfg)
	prog, err := slsema.ParseSources(slsema.Source{PkgPath: "example.com/kern", Filename: "kern.go", Text: `package kern

type Count struct {
	N int32
}

func (k Count) Execute() {}
`})
	if err != nil {
		t.Fatal(err)
	}
	o, err := s.process(prog, true)
	if err != nil {
		t.Fatal(err)
	}
	if o.Errors == 0 || len(o.Written) != 0 {
		t.Errorf("outcome = %+v", o)
	}
	if !strings.Contains(stderr.String(), "SL0301") {
		t.Errorf("stderr lacks the diagnostic:\n%s", stderr.String())
	}
	if !strings.Contains(stdout.String(), "1 kernels") {
		t.Errorf("summary = %q", stdout.String())
	}
	if _, err := os.Stat(cfg.Out); !os.IsNotExist(err) {
		t.Error("output directory created for a failed kernel")
	}
}

func TestIsSource(t *testing.T) {
	for _, c := range []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "kern/a.go", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "kern/a.go", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "kern/a.go", Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: "kern/a.go", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "kern/scale_sl.go", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "kern/a_test.go", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "shaders/Scale.hlsl", Op: fsnotify.Write}, false},
	} {
		if got := isSource(c.ev); got != c.want {
			t.Errorf("isSource(%v) = %v", c.ev, got)
		}
	}
}

func TestWatchLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan fsnotify.Event)
	errs := make(chan error)
	ran := make(chan struct{}, 4)
	var runs atomic.Int32
	done := make(chan struct{})
	go func() {
		watchLoop(ctx, events, errs, 20*time.Millisecond, func() {
			runs.Add(1)
			ran <- struct{}{}
		})
		close(done)
	}()

	// a burst of changes runs once
	events <- fsnotify.Event{Name: "a.go", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "b.go", Op: fsnotify.Create}
	events <- fsnotify.Event{Name: "a.go", Op: fsnotify.Write}
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("no run after changes")
	}

	// companion files do not trigger a run
	events <- fsnotify.Event{Name: "scale_sl.go", Op: fsnotify.Write}
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}
	if n := runs.Load(); n != 1 {
		t.Errorf("runs = %d, want 1", n)
	}
}
