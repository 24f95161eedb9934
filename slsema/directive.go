// Copyright (c) 2022, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slsema

import (
	"go/ast"
	"go/token"
	"strings"
)

// DirectivePrefix starts every kernel directive comment line.
const DirectivePrefix = "//sl:"

// Directive names.
const (
	KernelDirective      = "kernel"
	PixelDirective       = "pixel"
	NumThreadsDirective  = "numthreads"
	GroupSharedDirective = "groupshared"
)

// Directive is one //sl: comment line: the name and its
// space separated arguments.
type Directive struct {
	Name string
	Args []string
	Pos  token.Pos
}

func (d Directive) String() string {
	return DirectivePrefix + strings.Join(append([]string{d.Name}, d.Args...), " ")
}

// IsKnownDirective reports whether name is a directive the
// translator understands.
func IsKnownDirective(name string) bool {
	switch name {
	case KernelDirective, PixelDirective, NumThreadsDirective, GroupSharedDirective:
		return true
	}
	return false
}

// ParseDirectives extracts the directives of a doc comment, in order.
func ParseDirectives(doc *ast.CommentGroup) []Directive {
	if doc == nil {
		return nil
	}
	var ds []Directive
	for _, c := range doc.List {
		ln := strings.TrimSpace(c.Text)
		if !strings.HasPrefix(ln, DirectivePrefix) {
			continue
		}
		fs := strings.Fields(ln[len(DirectivePrefix):])
		if len(fs) == 0 {
			continue
		}
		ds = append(ds, Directive{Name: fs[0], Args: fs[1:], Pos: c.Slash})
	}
	return ds
}

// FindDirectives returns the directives named name.
func FindDirectives(ds []Directive, name string) []Directive {
	var r []Directive
	for _, d := range ds {
		if d.Name == name {
			r = append(r, d)
		}
	}
	return r
}
