// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package slcheck validates the closure of a kernel against the subset
of Go that can be lowered to HLSL.

Every rule in the registry inspects the node types it declares and
reports at most one diagnostic per node. All rules run during a single
pre-order walk over the closure members: no rule depends on another,
and the walk never stops early, so one pass reports every problem.
*/
package slcheck

import (
	"go/ast"
	"go/token"
	"reflect"
	"strings"

	"github.com/gogpu/naga/hlsl"
	"goki.dev/slkernel/slclosure"
	"goki.dev/slkernel/sldiag"
	"goki.dev/slkernel/slsema"
	"golang.org/x/tools/go/ast/inspector"
)

// Rule is one validity check.
type Rule struct {
	Code sldiag.Code

	// Types are the nodes the rule inspects, as zero values
	// (for example (*ast.CallExpr)(nil)).
	Types []ast.Node

	// Check returns the diagnostic message, or "" when n is valid.
	Check func(ctx *Context, n ast.Node) string
}

// Options configures validation.
type Options struct {
	ShaderModel hlsl.ShaderModel
}

// Context is the state rules see during the walk.
type Context struct {
	Graph   *slclosure.Graph
	Kernel  *slsema.Kernel
	Checker *slsema.Checker
	Info    *slsema.Info
	Options Options

	// Member is the closure member the current node belongs to.
	Member *slclosure.Node

	// Stack holds the ancestors of the current node, the node last.
	Stack []ast.Node

	members map[ast.Node]*slclosure.Node
	fields  map[*ast.Field]bool
}

// Parent returns the parent of the current node, or nil.
func (ctx *Context) Parent() ast.Node {
	if len(ctx.Stack) < 2 {
		return nil
	}
	return ctx.Stack[len(ctx.Stack)-2]
}

// IsMemberDecl reports whether n is the declaration of a closure member.
func (ctx *Context) IsMemberDecl(n ast.Node) bool {
	_, ok := ctx.members[n]
	return ok
}

// IsKernelField reports whether f declares a field of the kernel.
func (ctx *Context) IsKernelField(f *ast.Field) bool {
	return ctx.fields[f]
}

// InEntry reports whether the current node is directly in the entry
// method body, outside function literals.
func (ctx *Context) InEntry() bool {
	if ctx.Member == nil || ctx.Member.Kind != slclosure.EntryNode {
		return false
	}
	for _, s := range ctx.Stack {
		if _, ok := s.(*ast.FuncLit); ok {
			return false
		}
	}
	return true
}

// Ref returns the resolution of an identifier or selector.
func (ctx *Context) Ref(n ast.Node) slsema.Ref {
	return ctx.Info.RefOf(n)
}

// TypeOf returns the type of an expression.
func (ctx *Context) TypeOf(e ast.Expr) *slsema.Type {
	return ctx.Info.TypeOf(e)
}

// KernelType returns the type of the kernel.
func (ctx *Context) KernelType() *slsema.Type {
	return ctx.Checker.NamedType(ctx.Kernel.Object)
}

var registry []*Rule

// Register adds rules to the registry.
func Register(rs ...*Rule) {
	registry = append(registry, rs...)
}

// Rules returns the registered rules in registration order.
func Rules() []*Rule {
	return registry
}

// Validate runs every rule over the closure of g and returns the
// diagnostics in anchor order.
func Validate(g *slclosure.Graph, opts Options) sldiag.List {
	ctx := &Context{
		Graph:   g,
		Kernel:  g.Kernel,
		Checker: g.Checker,
		Info:    g.Info,
		Options: opts,
		members: map[ast.Node]*slclosure.Node{},
		fields:  map[*ast.Field]bool{},
	}
	f := &ast.File{Name: ast.NewIdent(g.Kernel.Pkg.Name)}
	specs := map[*ast.ValueSpec]bool{}
	for _, n := range g.Nodes {
		switch d := n.Decl.(type) {
		case *ast.FuncDecl:
			f.Decls = append(f.Decls, d)
		case *ast.TypeSpec:
			f.Decls = append(f.Decls, &ast.GenDecl{Tok: token.TYPE, Specs: []ast.Spec{d}})
		case *ast.ValueSpec:
			if specs[d] {
				continue
			}
			specs[d] = true
			tok := token.VAR
			if n.Kind == slclosure.ConstNode {
				tok = token.CONST
			}
			f.Decls = append(f.Decls, &ast.GenDecl{Tok: tok, Specs: []ast.Spec{d}})
		case *ast.Field:
			ctx.fields[d] = true
		}
		if _, ok := ctx.members[n.Decl]; !ok {
			ctx.members[n.Decl] = n
		}
	}

	dispatch := map[reflect.Type][]*Rule{}
	var types []ast.Node
	for _, r := range registry {
		for _, t := range r.Types {
			rt := reflect.TypeOf(t)
			if _, ok := dispatch[rt]; !ok {
				types = append(types, t)
			}
			dispatch[rt] = append(dispatch[rt], r)
		}
	}

	var diags sldiag.List
	insp := inspector.New([]*ast.File{f})
	insp.WithStack(types, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return true
		}
		ctx.Stack = stack
		ctx.Member = ctx.memberOf(stack)
		if ctx.Member == nil {
			return true
		}
		for _, r := range dispatch[reflect.TypeOf(n)] {
			if msg := r.Check(ctx, n); msg != "" {
				diags.Add(r.Code, g.Anchor(ctx.Member, n), "%s", msg)
			}
		}
		return true
	})
	diags.Sort()
	return diags
}

// memberOf returns the innermost closure member declaring the stack top.
func (ctx *Context) memberOf(stack []ast.Node) *slclosure.Node {
	for i := len(stack) - 1; i >= 0; i-- {
		if m := ctx.members[stack[i]]; m != nil {
			return m
		}
	}
	return nil
}

// rootField returns the kernel field an lvalue expression is rooted
// at, as in k.F, k.F.X or k.F[i], with whether it is indexed.
func (ctx *Context) rootField(e ast.Expr) (name string, indexed, ok bool) {
	for {
		switch x := ast.Unparen(e).(type) {
		case *ast.IndexExpr:
			indexed = true
			e = x.X
		case *ast.SelectorExpr:
			if r := ctx.Ref(x.X); r.Kind == slsema.RefReceiver && ctx.Ref(x).Kind == slsema.RefField {
				if t := r.Local.Type.Deref(); t.Kind == slsema.Struct && t.Obj == ctx.Kernel.Object {
					return x.Sel.Name, indexed, true
				}
				return "", false, false
			}
			e = x.X
		default:
			return "", false, false
		}
	}
}

// path returns the member names on a shortest reference path from the
// entry method to m.
func (ctx *Context) path(m *slclosure.Node) string {
	entry := ctx.Graph.Entry()
	if entry == nil {
		return m.Name
	}
	prev := map[int]int{entry.Index: -1}
	queue := []int{entry.Index}
	for len(queue) > 0 {
		v := queue[0]
		if v == m.Index {
			break
		}
		queue = queue[1:]
		for _, w := range ctx.Graph.Nodes[v].Edges {
			if _, seen := prev[w]; !seen {
				prev[w] = v
				queue = append(queue, w)
			}
		}
	}
	if _, ok := prev[m.Index]; !ok {
		return m.Name
	}
	var names []string
	for v := m.Index; v >= 0; v = prev[v] {
		names = append([]string{ctx.Graph.Nodes[v].Name}, names...)
	}
	return strings.Join(names, " -> ")
}
