// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package slwrite lowers the closure of a kernel to HLSL declarations and
statements: struct types, statics, helper functions, user functions and
the body of the entry point. The emitter assembles them into a shader.

Every name is allocated by a Namer, so Go identifiers that collide with
HLSL keywords or with each other are renamed deterministically. Text is
produced in the order members were first reached from the entry, which
makes the output a pure function of the closure.
*/
package slwrite

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"

	"github.com/gogpu/naga/hlsl"
	"goki.dev/slkernel/alignsl"
	"goki.dev/slkernel/slclosure"
	"goki.dev/slkernel/sldiag"
	"goki.dev/slkernel/slrand"
	"goki.dev/slkernel/slsema"
)

// Names of the entry point and its system values.
const (
	EntryPoint       = "main"
	ThreadIDVar      = "__id"
	GroupIDVar       = "__gid"
	GroupThreadIDVar = "__gtid"
	ConstantBuffer   = "Constants"
)

// NumThreadsMacros are the thread group size macros, per axis.
var NumThreadsMacros = [3]string{"NUM_THREADS_X", "NUM_THREADS_Y", "NUM_THREADS_Z"}

// Result is the lowered closure of a kernel.
type Result struct {
	Types

	// Names maps kernel field names, including the synthetic bounds
	// and output fields, to their HLSL global names.
	Names map[string]string

	// StructDecls are the struct declarations in dependency order.
	StructDecls []string

	// Statics are static and group-shared globals.
	Statics []string

	// Prototypes declare Funcs, in the same order.
	Prototypes []string

	// Helpers are the helper blocks and constructors, and
	// HelperNames their names, in order of first use.
	Helpers     []string
	HelperNames []string

	Funcs []string

	// Body is the lowered entry method, indented for the
	// dispatch-bounds guard of the entry point.
	Body string

	Diagnostics sldiag.List
}

// Field returns the HLSL name of a kernel field.
func (r *Result) Field(name string) string {
	if n, ok := r.Names[name]; ok {
		return n
	}
	return name
}

type writer struct {
	g        *slclosure.Graph
	c        *slsema.Checker
	info     *slsema.Info
	layout   *alignsl.Layout
	res      *Result
	kernelID string

	global  *Namer
	funcs   map[string]string
	statics *SymbolTable
	vars    map[string]string
	written map[*slsema.Object]bool
	helpers *SymbolTable

	// state of the function being lowered
	member *slclosure.Node
	names  *Namer
	locals map[*slsema.Local]string
	sig    *slsema.Signature
	entry  bool
	b      *strings.Builder
	indent int
	pre    []string
	init   bool
}

// Rewrite lowers the closure g with the layout l.
func Rewrite(g *slclosure.Graph, l *alignsl.Layout) *Result {
	w := &writer{
		g:        g,
		c:        g.Checker,
		info:     g.Info,
		layout:   l,
		kernelID: g.Kernel.ID(),
		funcs:    map[string]string{},
		statics:  NewSymbolTable(),
		vars:     map[string]string{},
		written:  map[*slsema.Object]bool{},
		helpers:  NewSymbolTable(),
		res: &Result{
			Types: Types{Structs: map[string]string{}},
			Names: map[string]string{},
		},
	}
	w.reserve()
	w.declareNames()
	for _, n := range g.Members(slclosure.FuncNode, slclosure.MethodNode) {
		proto, def := w.function(n)
		w.res.Prototypes = append(w.res.Prototypes, proto)
		w.res.Funcs = append(w.res.Funcs, def)
	}
	if e := g.Entry(); e != nil && e.Obj.FuncDecl().Body != nil {
		w.begin(e)
		w.entry = true
		w.indent = 2
		w.stmts(e.Obj.FuncDecl().Body.List)
		w.res.Body = w.b.String()
	}
	w.structs()
	w.staticDecls()
	w.res.Helpers = w.helpers.Texts()
	for _, id := range w.helpers.IDs() {
		n, _ := w.helpers.Name(id)
		w.res.HelperNames = append(w.res.HelperNames, n)
	}
	return w.res
}

// reserve reserves the names of the entry point and helper blocks.
func (w *writer) reserve() {
	w.global = NewNamer(EntryPoint, ThreadIDVar, GroupIDVar, GroupThreadIDVar, ConstantBuffer, alignsl.OutputName)
	for _, m := range NumThreadsMacros {
		w.global.Reserve(m)
	}
	for _, b := range alignsl.BoundNames {
		w.global.Reserve(b)
	}
	for _, f := range slsema.HelperFunctions("slrand") {
		w.global.Reserve(f)
	}
}

// declareNames names the kernel fields, struct types, functions and
// statics of the closure, in closure order.
func (w *writer) declareNames() {
	for _, f := range w.layout.Fields {
		switch {
		case f.Name == alignsl.OutputName:
			w.res.Names[f.Name] = f.Name
		case f.Kind != alignsl.GroupShared:
			w.res.Names[f.Name] = w.global.Name(f.Name)
		}
	}
	for i, b := range alignsl.BoundNames {
		if w.layout.Bounds[i] >= 0 {
			w.res.Names[b] = b
		}
	}
	for _, n := range w.g.Members(slclosure.TypeNode) {
		if n.ID == w.kernelID {
			continue
		}
		w.res.Types.Structs[n.ID] = w.global.Name(n.Obj.Name)
	}
	for _, n := range w.g.Members(slclosure.FuncNode, slclosure.MethodNode) {
		name := n.Obj.Name
		if n.Kind == slclosure.MethodNode && n.Obj.Recv != nil {
			name = n.Obj.Recv.Name + "_" + name
		}
		w.funcs[n.ID] = w.global.Name(name)
	}
	for _, n := range w.g.Members(slclosure.VarNode) {
		w.vars[n.ID] = w.global.Name(n.Obj.Name)
	}
}

func (w *writer) isKernel(t *slsema.Type) bool {
	if t == nil {
		return false
	}
	t = t.Deref()
	return t.Kind == slsema.Struct && t.Obj.ID() == w.kernelID
}

func (w *writer) diag(code sldiag.Code, x ast.Node, format string, args ...any) {
	n := w.member
	if n == nil {
		n = w.g.Nodes[0]
	}
	w.res.Diagnostics.Add(code, w.g.Anchor(n, x), format, args...)
}

// begin resets the function state for member n.
func (w *writer) begin(n *slclosure.Node) {
	w.member = n
	w.names = w.global.Child()
	w.locals = map[*slsema.Local]string{}
	w.sig = nil
	if n.Kind.IsFunc() {
		w.sig = w.c.Signature(n.Obj)
	}
	w.entry = false
	w.b = &strings.Builder{}
	w.indent = 1
	w.pre = nil
}

// local returns the HLSL name of a local, naming it on first use.
func (w *writer) local(l *slsema.Local) string {
	if n, ok := w.locals[l]; ok {
		return n
	}
	n := w.names.Name(l.Name)
	w.locals[l] = n
	return n
}

// temp returns a fresh local name.
func (w *writer) temp(base string) string {
	return w.names.Name(base)
}

// line writes one line of the current function.
func (w *writer) line(s string) {
	w.b.WriteString(strings.Repeat("\t", w.indent))
	w.b.WriteString(s)
	w.b.WriteByte('\n')
}

// emit writes the pending pre-statements, then s.
func (w *writer) emit(s string) {
	w.flush()
	w.line(s)
}

func (w *writer) flush() {
	pre := w.pre
	w.pre = nil
	for _, p := range pre {
		w.line(p)
	}
}

// param returns the declaration of a parameter: pointers are inout.
func (w *writer) param(l *slsema.Local) string {
	var name string
	if l.Ident == nil || l.Name == "_" || l.Name == "" {
		name = w.temp("_p")
	} else {
		name = w.local(l)
	}
	if l.Type.Kind == slsema.Pointer {
		return "inout " + w.res.Declare(l.Type.Elem, name)
	}
	return w.res.Declare(l.Type, name)
}

// function lowers a function or method to its prototype and definition.
func (w *writer) function(n *slclosure.Node) (proto, def string) {
	w.begin(n)
	fd := n.Obj.FuncDecl()
	sig := w.sig
	ret := "void"
	if len(sig.Results) > 0 {
		ret = w.res.Type(sig.Results[0])
	}
	var ps []string
	if sig.Recv != nil && !w.isKernel(sig.Recv.Type) {
		ps = append(ps, w.param(sig.Recv))
	}
	for _, p := range sig.Params {
		ps = append(ps, w.param(p))
	}
	head := fmt.Sprintf("%s %s(%s)", ret, w.funcs[n.ID], strings.Join(ps, ", "))
	if fd.Type.Results != nil {
		for _, f := range fd.Type.Results.List {
			for _, id := range f.Names {
				if l := w.info.Defs[id]; l != nil {
					w.line(w.res.Declare(l.Type, w.local(l)) + " = " + w.res.Zero(l.Type) + ";")
				}
			}
		}
	}
	if fd.Body != nil {
		w.stmts(fd.Body.List)
	}
	return head + ";", head + " {\n" + w.b.String() + "}\n"
}

// structs declares the struct types in dependency order, starting
// from first use.
func (w *writer) structs() {
	done := map[string]bool{}
	var visit func(t *slsema.Type)
	visit = func(t *slsema.Type) {
		switch t.Kind {
		case slsema.Struct:
			id := t.Obj.ID()
			if done[id] || id == w.kernelID {
				return
			}
			done[id] = true
			for _, f := range w.c.Fields(t) {
				visit(f.Type)
			}
			w.res.StructDecls = append(w.res.StructDecls, w.structDecl(t))
		case slsema.Array, slsema.Pointer, slsema.Resource:
			visit(t.Elem)
		}
	}
	for _, n := range w.g.Members(slclosure.TypeNode) {
		visit(w.c.NamedType(n.Obj))
	}
}

func (w *writer) structDecl(t *slsema.Type) string {
	id := t.Obj.ID()
	name, ok := w.res.Types.Structs[id]
	if !ok {
		name = w.global.Name(t.Obj.Name)
		w.res.Types.Structs[id] = name
	}
	var b strings.Builder
	fmt.Fprintf(&b, "struct %s {\n", name)
	pads := w.layout.Pads[id]
	np := 0
	for i, f := range w.c.Fields(t) {
		for _, p := range pads {
			if p.Member != i {
				continue
			}
			for j := 0; j < p.Words; j++ {
				fmt.Fprintf(&b, "\tfloat __pad%d;\n", np)
				np++
			}
		}
		mod := ""
		if f.Type.Kind == slsema.Matrix {
			mod = "row_major "
		}
		fmt.Fprintf(&b, "\t%s%s;\n", mod, w.res.Declare(f.Type, MemberName(f.Name)))
	}
	b.WriteString("};\n")
	return b.String()
}

// MemberName returns the HLSL name of a struct member.
func MemberName(name string) string {
	return hlsl.Escape(name)
}

// staticDecls declares the package variables of the closure:
// group-shared arrays, static constants and, when written by the
// kernel, static variables.
func (w *writer) staticDecls() {
	for _, n := range w.g.Members(slclosure.VarNode) {
		w.begin(n)
		name := w.vars[n.ID]
		t := w.c.VarType(n.Obj)
		var text string
		if len(slsema.FindDirectives(n.Obj.Directives(), slsema.GroupSharedDirective)) > 0 {
			text = "groupshared " + w.res.Declare(t, name) + ";"
		} else {
			mod := "static const "
			if w.written[n.Obj] {
				mod = "static "
			}
			init := w.res.Zero(t)
			vs := n.Obj.ValueSpec()
			if vs != nil && n.Obj.Index < len(vs.Values) && len(vs.Values) == len(vs.Names) {
				init = w.initializer(vs.Values[n.Obj.Index])
				if len(w.pre) > 0 {
					w.diag(sldiag.UnsupportedExpr, vs.Values[n.Obj.Index], "initializer of %s cannot be evaluated statically", n.Name)
					w.pre = nil
				}
			}
			text = mod + w.res.Declare(t, name) + " = " + init + ";"
		}
		w.statics.Add(n.ID, name, text)
	}
	w.res.Statics = w.statics.Texts()
	w.member = nil
}

// useHelper adds a helper block.
func (w *writer) useHelper(name string) {
	switch name {
	case "slrand":
		w.helpers.Add("slrand", "slrand", strings.TrimSpace(slrand.HLSL)+"\n")
	}
}

// ctor returns the name of the constructor helper of struct type t.
func (w *writer) ctor(t *slsema.Type) string {
	id := "ctor:" + t.Obj.ID()
	if n, ok := w.helpers.Name(id); ok {
		return n
	}
	tn := w.res.Type(t)
	name := w.global.Name(tn + "_ctor")
	names := w.global.Child()
	res := names.Name("r")
	var ps []string
	var body strings.Builder
	for _, f := range w.c.Fields(t) {
		m := MemberName(f.Name)
		p := names.Name(m)
		ps = append(ps, w.res.Declare(f.Type, p))
		fmt.Fprintf(&body, "\t%s.%s = %s;\n", res, m, p)
	}
	text := fmt.Sprintf("%s %s(%s) {\n\t%s %s;\n%s\treturn %s;\n}\n", tn, name, strings.Join(ps, ", "), tn, res, body.String(), res)
	w.helpers.Add(id, name, text)
	return name
}

// markWritten records the package variable an lvalue is rooted at.
func (w *writer) markWritten(e ast.Expr) {
	for {
		switch x := ast.Unparen(e).(type) {
		case *ast.Ident:
			if r := w.info.RefOf(x); r.Kind == slsema.RefVar {
				w.written[r.Obj] = true
			}
			return
		case *ast.SelectorExpr:
			if r := w.info.RefOf(x); r.Kind == slsema.RefVar {
				w.written[r.Obj] = true
				return
			}
			e = x.X
		case *ast.IndexExpr:
			e = x.X
		case *ast.StarExpr:
			e = x.X
		case *ast.UnaryExpr:
			if x.Op != token.AND {
				return
			}
			e = x.X
		default:
			return
		}
	}
}
