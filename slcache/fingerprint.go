// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slcache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"go/ast"
	"hash"
	"strconv"

	"goki.dev/slkernel/slclosure"
)

// encoder writes a structural encoding of syntax to a hash.
// Strings are length prefixed so that adjacent values never merge.
type encoder struct {
	h   hash.Hash
	buf [binary.MaxVarintLen64]byte
}

func newEncoder() *encoder {
	return &encoder{h: sha256.New()}
}

func (e *encoder) int(v int) {
	n := binary.PutVarint(e.buf[:], int64(v))
	e.h.Write(e.buf[:n])
}

func (e *encoder) str(s string) {
	e.int(len(s))
	e.h.Write([]byte(s))
}

func (e *encoder) sum() string {
	return hex.EncodeToString(e.h.Sum(nil))
}

// node encodes x in pre-order: node kinds, names, literal values and
// operators, with a closing mark after the children of each node.
// Positions and comments do not take part.
func (e *encoder) node(x ast.Node) {
	if x == nil {
		return
	}
	ast.Inspect(x, func(n ast.Node) bool {
		switch n := n.(type) {
		case nil:
			e.str(")")
			return false
		case *ast.CommentGroup, *ast.Comment:
			return false
		case *ast.Ident:
			e.str("I" + n.Name)
		case *ast.BasicLit:
			e.str("L" + n.Kind.String() + n.Value)
		case *ast.BinaryExpr:
			e.str("B" + n.Op.String())
		case *ast.UnaryExpr:
			e.str("U" + n.Op.String())
		case *ast.AssignStmt:
			e.str("A" + n.Tok.String())
		case *ast.IncDecStmt:
			e.str("D" + n.Tok.String())
		case *ast.BranchStmt:
			e.str("R" + n.Tok.String())
		case *ast.GenDecl:
			e.str("G" + n.Tok.String())
		case *ast.RangeStmt:
			e.str("N" + n.Tok.String())
		case *ast.ChanType:
			e.str("C" + strconv.Itoa(int(n.Dir)))
		case *ast.CompositeLit:
			e.str("P" + strconv.FormatBool(n.Incomplete))
		default:
			e.str(fmt.Sprintf("%T", n))
		}
		return true
	})
}

// Fingerprint returns the structural fingerprint of a closure: every
// member's identity, kind, directives, edges and declaration syntax,
// the expression and iota a constant inherits from the specs above it,
// and the imports of the file declaring it.
// Editing comments or layout leaves it unchanged.
func Fingerprint(g *slclosure.Graph) string {
	e := newEncoder()
	k := g.Kernel
	e.str(k.ID())
	e.str(k.Capability.String())
	for _, d := range k.Directives {
		e.str(d.Name)
		e.int(len(d.Args))
		for _, a := range d.Args {
			e.str(a)
		}
	}
	e.int(len(g.Nodes))
	for _, n := range g.Nodes {
		e.str(n.Kind.String())
		e.str(n.ID)
		if n.Obj != nil {
			ds := n.Obj.Directives()
			e.int(len(ds))
			for _, d := range ds {
				e.str(d.Name)
				e.int(len(d.Args))
				for _, a := range d.Args {
					e.str(a)
				}
			}
			if n.Kind == slclosure.ConstNode {
				e.int(n.Obj.Iota)
				e.node(n.Obj.ConstType)
				e.str("=")
				e.node(n.Obj.ConstValue)
			}
			if n.Obj.File != nil {
				e.int(len(n.Obj.File.Imports))
				for _, is := range n.Obj.File.Imports {
					if is.Name != nil {
						e.str(is.Name.Name)
					} else {
						e.str("")
					}
					e.str(is.Path.Value)
				}
			}
		}
		e.int(len(n.Edges))
		for _, x := range n.Edges {
			e.int(x)
		}
		e.node(n.Decl)
	}
	return e.sum()
}

// Combine derives a fingerprint from parts, which are formatted with
// %v: fingerprints of inputs and the options a stage depends on.
func Combine(parts ...any) string {
	e := newEncoder()
	for _, p := range parts {
		e.str(fmt.Sprint(p))
	}
	return e.sum()
}
