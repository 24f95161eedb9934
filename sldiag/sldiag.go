// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package sldiag defines kernel diagnostics and their stable codes.

Translation never stops at the first problem: every stage adds
diagnostics to a List, and only the caller decides whether the
hard ones make the result unusable.
*/
package sldiag

import (
	"fmt"
	"sort"
	"strings"
)

// Severity classifies a diagnostic as hard or soft.
type Severity int

const (
	// Warning is a soft diagnostic: translation output is usable.
	Warning Severity = iota

	// Error is a hard diagnostic: translation output is not usable.
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Category groups codes by the kind of problem.
type Category int

const (
	UnsupportedConstruct Category = iota
	MissingMetadata
	ResourceLayoutExceeded
	AccessibilityViolation
	CapabilityConflict
)

var categoryNames = [...]string{"unsupported-construct", "missing-metadata", "layout-exceeded", "accessibility", "conflicting-capability"}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Anchor locates a diagnostic independently of source positions:
// Member is the identity of a closure member, Index its index in the
// closure and Node the pre-order ordinal of the node within the
// member declaration (0 is the declaration itself).
type Anchor struct {
	Member string
	Index  int
	Node   int
}

// Span is a resolved source position.
type Span struct {
	File      string
	Line, Col int
}

func (s Span) IsValid() bool { return s.Line > 0 }

func (s Span) String() string {
	if !s.IsValid() {
		return s.File
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

// Diagnostic is one problem found in a kernel.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Category Category
	Message  string
	Anchor   Anchor

	// Span is resolved from Anchor against the current sources,
	// and is ignored by Equal.
	Span Span
}

// New returns a diagnostic for code, with the severity and category
// of its catalogue entry.
func New(code Code, at Anchor, format string, args ...any) Diagnostic {
	in, ok := Lookup(code)
	if !ok {
		in = Info{Code: code, Severity: Error}
	}
	return Diagnostic{Code: code, Severity: in.Severity, Category: in.Category, Message: fmt.Sprintf(format, args...), Anchor: at}
}

// IsError reports whether d is a hard diagnostic.
func (d Diagnostic) IsError() bool { return d.Severity == Error }

// Equal reports whether d and o are the same diagnostic, ignoring the span.
func (d Diagnostic) Equal(o Diagnostic) bool {
	return d.Code == o.Code && d.Severity == o.Severity && d.Category == o.Category && d.Message == o.Message && d.Anchor == o.Anchor
}

func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Span.File != "" {
		b.WriteString(d.Span.String())
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "%s %s: %s", d.Severity, d.Code, d.Message)
	return b.String()
}

// List accumulates diagnostics.
type List []Diagnostic

// Add appends a new diagnostic.
func (l *List) Add(code Code, at Anchor, format string, args ...any) {
	*l = append(*l, New(code, at, format, args...))
}

// HasErrors reports whether any diagnostic is hard.
func (l List) HasErrors() bool {
	for _, d := range l {
		if d.IsError() {
			return true
		}
	}
	return false
}

// Errors returns the hard diagnostics.
func (l List) Errors() List {
	return l.filter(Error)
}

// Warnings returns the soft diagnostics.
func (l List) Warnings() List {
	return l.filter(Warning)
}

func (l List) filter(s Severity) List {
	var r List
	for _, d := range l {
		if d.Severity == s {
			r = append(r, d)
		}
	}
	return r
}

// Has reports whether the list contains code.
func (l List) Has(code Code) bool {
	for _, d := range l {
		if d.Code == code {
			return true
		}
	}
	return false
}

// Codes returns the distinct codes in the list, ascending.
func (l List) Codes() []Code {
	seen := map[Code]bool{}
	var cs []Code
	for _, d := range l {
		if !seen[d.Code] {
			seen[d.Code] = true
			cs = append(cs, d.Code)
		}
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i] < cs[j] })
	return cs
}

// Sort orders the list by closure member, node, code and message,
// which depends only on the closure and not on source positions.
func (l List) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		a, b := l[i], l[j]
		if a.Anchor.Index != b.Anchor.Index {
			return a.Anchor.Index < b.Anchor.Index
		}
		if a.Anchor.Node != b.Anchor.Node {
			return a.Anchor.Node < b.Anchor.Node
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Message < b.Message
	})
}

// Equal reports whether both lists hold equal diagnostics in the same order.
func (l List) Equal(o List) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if !l[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Clone returns a copy of the list.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	return append(List(nil), l...)
}

func (l List) String() string {
	var b strings.Builder
	for _, d := range l {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// CompileError is returned when a kernel has hard diagnostics.
// It carries the whole list so every problem can be fixed at once.
type CompileError struct {
	Kernel      string
	Diagnostics List
}

func (e *CompileError) Error() string {
	n := len(e.Diagnostics.Errors())
	msg := fmt.Sprintf("kernel %s: %d error(s)", e.Kernel, n)
	if n > 0 {
		msg += ": " + e.Diagnostics.Errors()[0].String()
	}
	return msg
}
