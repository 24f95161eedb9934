// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package slclosure collects the closure of a kernel: every field,
function, method, constant, package variable and struct type
reachable from its entry method, as an arena of nodes in
first-reference order.
*/
package slclosure

import (
	"fmt"
	"go/ast"
	"strings"

	"goki.dev/slkernel/sldiag"
	"goki.dev/slkernel/slsema"
	"golang.org/x/exp/slices"
)

// Kind is the kind of a closure member.
type Kind int

const (
	KernelNode Kind = iota
	FieldNode
	EntryNode
	MethodNode
	FuncNode
	TypeNode
	ConstNode
	VarNode
)

var kindNames = [...]string{"kernel", "field", "entry", "method", "func", "type", "const", "var"}

func (k Kind) String() string { return kindNames[k] }

// IsFunc reports whether members of kind k have a body.
func (k Kind) IsFunc() bool { return k == EntryNode || k == MethodNode || k == FuncNode }

// Node is one member of the closure.
type Node struct {
	Index int
	Kind  Kind

	// ID is the qualified identity of the member.
	ID   string
	Name string

	// Obj is the declaration, nil for kernel fields.
	Obj *slsema.Object

	// Field is set on kernel fields.
	Field *slsema.Field

	// Decl is the declaring syntax: *ast.TypeSpec, *ast.FuncDecl,
	// *ast.ValueSpec or *ast.Field.
	Decl ast.Node

	// Edges are the indexes of the members this one references,
	// in first-reference order.
	Edges []int

	ordinals map[ast.Node]int
	order    []ast.Node
}

func (n *Node) String() string {
	return fmt.Sprintf("%d %s %s", n.Index, n.Kind, n.ID)
}

func (n *Node) index() {
	if n.ordinals != nil {
		return
	}
	n.ordinals = map[ast.Node]int{}
	ast.Inspect(n.Decl, func(x ast.Node) bool {
		if x != nil {
			n.ordinals[x] = len(n.order)
			n.order = append(n.order, x)
		}
		return true
	})
}

// Ordinal returns the pre-order position of x in the declaration,
// or -1 when x is not part of it.
func (n *Node) Ordinal(x ast.Node) int {
	n.index()
	if i, ok := n.ordinals[x]; ok {
		return i
	}
	return -1
}

// Graph is the closure of one kernel.
type Graph struct {
	Kernel *slsema.Kernel
	Nodes  []*Node

	// Cycles are the recursive call chains, as node indexes.
	Cycles [][]int

	// Diagnostics are the unresolved references and possible recursions.
	Diagnostics sldiag.List

	Checker *slsema.Checker
	Info    *slsema.Info

	byID  map[string]*Node
	queue []*Node
}

// Node returns the member with the given identity, or nil.
func (g *Graph) Node(id string) *Node {
	return g.byID[id]
}

// Members returns the members of the given kinds in closure order.
func (g *Graph) Members(kinds ...Kind) []*Node {
	var ns []*Node
	for _, n := range g.Nodes {
		if slices.Contains(kinds, n.Kind) {
			ns = append(ns, n)
		}
	}
	return ns
}

// Entry returns the entry method member, or nil.
func (g *Graph) Entry() *Node {
	for _, n := range g.Nodes {
		if n.Kind == EntryNode {
			return n
		}
	}
	return nil
}

// Anchor returns the position independent anchor of x within member n.
func (g *Graph) Anchor(n *Node, x ast.Node) sldiag.Anchor {
	return sldiag.Anchor{Member: n.ID, Index: n.Index, Node: max(n.Ordinal(x), 0)}
}

// Resolve returns the syntax an anchor designates in this graph.
func (g *Graph) Resolve(a sldiag.Anchor) (ast.Node, bool) {
	n := g.byID[a.Member]
	if n == nil {
		return nil, false
	}
	n.index()
	if a.Node < 0 || a.Node >= len(n.order) {
		return nil, false
	}
	return n.order[a.Node], true
}

// Span returns the source position of an anchor.
func (g *Graph) Span(a sldiag.Anchor) sldiag.Span {
	x, ok := g.Resolve(a)
	if !ok {
		return sldiag.Span{}
	}
	p := g.Checker.Prog.Position(x.Pos())
	return sldiag.Span{File: p.Filename, Line: p.Line, Col: p.Column}
}

// ResolveSpans sets the span of every diagnostic from its anchor.
func (g *Graph) ResolveSpans(l sldiag.List) {
	for i := range l {
		l[i].Span = g.Span(l[i].Anchor)
	}
}

// Collect computes the closure of kernel k, checking every function
// it reaches with c. Node 0 is the kernel type, followed by its fields
// and the entry method.
func Collect(c *slsema.Checker, k *slsema.Kernel) *Graph {
	g := &Graph{Kernel: k, Checker: c, Info: c.Info, byID: map[string]*Node{}}
	g.add(KernelNode, k.Object)
	for len(g.queue) > 0 {
		n := g.queue[0]
		g.queue = g.queue[1:]
		g.visit(n)
	}
	g.findCycles()
	return g
}

func (g *Graph) insert(n *Node) {
	n.Index = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
	g.byID[n.ID] = n
	g.queue = append(g.queue, n)
}

// add returns the member for obj, adding it when first referenced.
func (g *Graph) add(kind Kind, o *slsema.Object) *Node {
	id := o.ID()
	if n := g.byID[id]; n != nil {
		return n
	}
	n := &Node{Kind: kind, ID: id, Name: o.Name, Obj: o, Decl: o.Node}
	g.insert(n)
	return n
}

func (g *Graph) edge(from, to *Node) {
	if !slices.Contains(from.Edges, to.Index) {
		from.Edges = append(from.Edges, to.Index)
	}
}

// addType adds the struct types t is built from.
func (g *Graph) addType(from *Node, t *slsema.Type) {
	if t == nil {
		return
	}
	switch t.Kind {
	case slsema.Struct:
		g.edge(from, g.add(TypeNode, t.Obj))
	case slsema.Array, slsema.Pointer, slsema.Resource:
		g.addType(from, t.Elem)
	case slsema.Tuple:
		for _, e := range t.Tuple {
			g.addType(from, e)
		}
	}
}

func (g *Graph) visit(n *Node) {
	c := g.Checker
	before := len(c.Info.Unresolved)
	switch n.Kind {
	case KernelNode:
		k := g.Kernel
		if k.IsStruct() {
			for _, f := range c.Fields(c.NamedType(k.Object)) {
				fn := &Node{Kind: FieldNode, ID: k.ID() + "." + f.Name, Name: f.Name, Field: &f, Decl: f.Node}
				g.insert(fn)
				g.edge(n, fn)
			}
		}
		if k.Entry != nil {
			g.edge(n, g.add(EntryNode, k.Entry))
		}
	case FieldNode:
		g.addType(n, n.Field.Type)
	case TypeNode:
		t := c.NamedType(n.Obj)
		if t.Kind == slsema.Struct {
			for _, f := range c.Fields(t) {
				g.addType(n, f.Type)
			}
		}
	case ConstNode:
		c.Const(n.Obj)
		g.refs(n, n.Obj.ConstType)
		g.refs(n, n.Obj.ConstValue)
	case VarNode:
		g.addType(n, c.VarType(n.Obj))
		g.refs(n, n.Decl)
	case EntryNode, MethodNode, FuncNode:
		sig := c.CheckFunc(n.Obj)
		if n.Kind == MethodNode && n.Obj.Recv != nil {
			g.edge(n, g.add(TypeNode, n.Obj.Recv))
		}
		for _, p := range sig.Params {
			g.addType(n, p.Type)
		}
		for _, r := range sig.Results {
			g.addType(n, r)
		}
		g.refs(n, n.Decl)
	}
	for _, u := range c.Info.Unresolved[before:] {
		g.Diagnostics.Add(sldiag.Unresolved, g.Anchor(n, u.Node), "unresolved reference %s in %s", u.Name, n.Name)
	}
}

// refs adds the members referenced in x, in source order.
func (g *Graph) refs(n *Node, x ast.Node) {
	if x == nil {
		return
	}
	info := g.Info
	kernelType := g.Nodes[0].ID
	ast.Inspect(x, func(s ast.Node) bool {
		switch s := s.(type) {
		case *ast.Ident:
			if l := info.Defs[s]; l != nil {
				g.addType(n, l.Type)
			}
			g.ref(n, info.Refs[s], kernelType)
		case *ast.SelectorExpr:
			g.ref(n, info.Refs[s], kernelType)
		case *ast.CompositeLit:
			g.addType(n, info.TypeOf(s))
		}
		return true
	})
}

func (g *Graph) ref(n *Node, r slsema.Ref, kernelType string) {
	switch r.Kind {
	case slsema.RefFunc:
		g.edge(n, g.add(FuncNode, r.Obj))
	case slsema.RefMethod:
		kind := MethodNode
		if r.Obj.Recv != nil && r.Obj.Recv.ID() == kernelType && r.Obj.Name == slsema.EntryName {
			kind = EntryNode
		}
		g.edge(n, g.add(kind, r.Obj))
	case slsema.RefConst:
		g.edge(n, g.add(ConstNode, r.Obj))
	case slsema.RefVar:
		g.edge(n, g.add(VarNode, r.Obj))
	case slsema.RefType:
		if r.Obj != nil {
			g.edge(n, g.add(TypeNode, r.Obj))
		}
	case slsema.RefField:
		if r.Recv != nil {
			if t := r.Recv.Deref(); t.Kind == slsema.Struct && t.Obj.ID() == kernelType {
				if f := g.byID[kernelType+"."+r.Name]; f != nil {
					g.edge(n, f)
				}
			}
		}
	}
}

// findCycles records the strongly connected components of the call
// graph that are recursive, with Tarjan's algorithm, each reported as
// a possible recursion.
func (g *Graph) findCycles() {
	index := make([]int, len(g.Nodes))
	low := make([]int, len(g.Nodes))
	onStack := make([]bool, len(g.Nodes))
	for i := range index {
		index[i] = -1
	}
	var stack []int
	next := 0
	var strong func(v int)
	strong = func(v int) {
		index[v], low[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range g.Nodes[v].Edges {
			if !g.Nodes[w].Kind.IsFunc() {
				continue
			}
			if index[w] < 0 {
				strong(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}
		if low[v] != index[v] {
			return
		}
		var scc []int
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		if len(scc) > 1 || slices.Contains(g.Nodes[v].Edges, v) {
			slices.Sort(scc)
			g.Cycles = append(g.Cycles, scc)
		}
	}
	for _, n := range g.Nodes {
		if n.Kind.IsFunc() && index[n.Index] < 0 {
			strong(n.Index)
		}
	}
	slices.SortFunc(g.Cycles, func(a, b []int) int { return a[0] - b[0] })
	for _, cy := range g.Cycles {
		names := make([]string, len(cy))
		for i, m := range cy {
			names[i] = g.Nodes[m].Name
		}
		first := g.Nodes[cy[0]]
		g.Diagnostics.Add(sldiag.PossibleRecursion, g.Anchor(first, first.Decl), "possible recursion through %s", strings.Join(names, " -> "))
	}
}
