// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sldiag

import (
	"errors"
	"strings"
	"testing"
)

func TestCatalogue(t *testing.T) {
	codes := Codes()
	if len(codes) < 55 {
		t.Errorf("catalogue has %d codes", len(codes))
	}
	for _, c := range codes {
		in, _ := Lookup(c)
		if in.Title == "" {
			t.Errorf("%s has no title", c)
		}
		if !strings.HasPrefix(string(c), "SL") || len(c) != 6 {
			t.Errorf("malformed code %q", c)
		}
	}
	if in, _ := Lookup(MissingNumThreads); in.Severity != Warning {
		t.Error("missing thread group size must be soft")
	}
	if in, _ := Lookup(ConflictingCapability); in.Category != CapabilityConflict {
		t.Error("conflicting capability category")
	}
}

func TestEqualIgnoresSpan(t *testing.T) {
	at := Anchor{Member: "k.Scale.Execute", Index: 2, Node: 14}
	a := New(Panic, at, "panic is not supported")
	b := a
	b.Span = Span{File: "scale.go", Line: 10, Col: 2}
	if !a.Equal(b) {
		t.Error("spans must not take part in equality")
	}
	b.Anchor.Node++
	if a.Equal(b) {
		t.Error("anchors must take part in equality")
	}
}

func TestList(t *testing.T) {
	var l List
	l.Add(MissingNumThreads, Anchor{}, "using default 64 1 1")
	l.Add(Goroutine, Anchor{Index: 3, Node: 2}, "go statement")
	l.Add(Defer, Anchor{Index: 1, Node: 7}, "defer")
	if !l.HasErrors() || len(l.Errors()) != 2 || len(l.Warnings()) != 1 {
		t.Fatalf("classification: %v", l)
	}
	l.Sort()
	if l[0].Code != MissingNumThreads || l[1].Code != Defer || l[2].Code != Goroutine {
		t.Errorf("sort order: %v", l.Codes())
	}
	if !l.Has(Defer) || l.Has(Panic) {
		t.Error("Has")
	}
	c := l.Clone()
	if !c.Equal(l) {
		t.Error("clone not equal")
	}

	var err error = &CompileError{Kernel: "k.Scale", Diagnostics: l}
	var ce *CompileError
	if !errors.As(err, &ce) || len(ce.Diagnostics) != 3 {
		t.Error("CompileError must carry the whole list")
	}
	if !strings.Contains(err.Error(), "2 error(s)") {
		t.Errorf("error text: %s", err)
	}
}
