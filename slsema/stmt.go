// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slsema

import (
	"go/ast"
	"go/constant"
	"go/token"
)

func (c *Checker) stmts(list []ast.Stmt) {
	for _, s := range list {
		c.stmt(s)
	}
}

func (c *Checker) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case nil, *ast.EmptyStmt, *ast.BranchStmt, *ast.BadStmt:
	case *ast.ExprStmt:
		c.expr(s.X)
	case *ast.IncDecStmt:
		c.expr(s.X)
	case *ast.AssignStmt:
		c.assign(s)
	case *ast.DeclStmt:
		c.decl(s.Decl.(*ast.GenDecl))
	case *ast.ReturnStmt:
		c.ret(s)
	case *ast.BlockStmt:
		c.push()
		c.stmts(s.List)
		c.pop()
	case *ast.IfStmt:
		c.push()
		c.stmt(s.Init)
		c.expr(s.Cond)
		c.convert(s.Cond, TypBool)
		c.stmt(s.Body)
		if s.Else != nil {
			c.stmt(s.Else)
		}
		c.pop()
	case *ast.ForStmt:
		c.push()
		c.stmt(s.Init)
		if s.Cond != nil {
			c.expr(s.Cond)
			c.convert(s.Cond, TypBool)
		}
		c.stmt(s.Post)
		c.stmt(s.Body)
		c.pop()
	case *ast.RangeStmt:
		c.rangeStmt(s)
	case *ast.SwitchStmt:
		c.push()
		c.stmt(s.Init)
		var tt *Type
		if s.Tag != nil {
			tt = c.expr(s.Tag)
			if tt.Untyped {
				c.convert(s.Tag, tt.Default())
				tt = tt.Default()
			}
		}
		for _, cl := range s.Body.List {
			cc := cl.(*ast.CaseClause)
			for _, e := range cc.List {
				c.expr(e)
				if tt != nil {
					c.convert(e, tt)
				} else {
					c.convert(e, TypBool)
				}
			}
			c.push()
			c.stmts(cc.Body)
			c.pop()
		}
		c.pop()
	case *ast.TypeSwitchStmt:
		c.push()
		c.stmt(s.Init)
		switch a := s.Assign.(type) {
		case *ast.AssignStmt:
			for _, r := range a.Rhs {
				c.expr(r)
			}
		case *ast.ExprStmt:
			c.expr(a.X)
		}
		for _, cl := range s.Body.List {
			c.push()
			c.stmts(cl.(*ast.CaseClause).Body)
			c.pop()
		}
		c.pop()
	case *ast.SelectStmt:
		for _, cl := range s.Body.List {
			cc := cl.(*ast.CommClause)
			c.push()
			c.stmt(cc.Comm)
			c.stmts(cc.Body)
			c.pop()
		}
	case *ast.SendStmt:
		c.expr(s.Chan)
		c.expr(s.Value)
	case *ast.GoStmt:
		c.expr(s.Call)
	case *ast.DeferStmt:
		c.expr(s.Call)
	case *ast.LabeledStmt:
		c.stmt(s.Stmt)
	}
}

func (c *Checker) assign(s *ast.AssignStmt) {
	rts := make([]*Type, len(s.Lhs))
	if len(s.Rhs) == 1 && len(s.Lhs) > 1 {
		if t := c.expr(s.Rhs[0]); t.Kind == Tuple {
			copy(rts, t.Tuple)
		}
	} else {
		for i, r := range s.Rhs {
			t := c.expr(r)
			if i < len(rts) {
				rts[i] = t
			}
		}
	}
	for i := range rts {
		if rts[i] == nil {
			rts[i] = TypInvalid
		}
	}
	paired := len(s.Rhs) == len(s.Lhs)
	if s.Tok == token.DEFINE {
		for i, l := range s.Lhs {
			id, ok := l.(*ast.Ident)
			if !ok {
				continue
			}
			if id.Name == "_" {
				if paired {
					c.convert(s.Rhs[i], rts[i].Default())
				}
				c.Info.Types[id] = rts[i].Default()
				continue
			}
			if loc := c.scope.names[id.Name]; loc != nil {
				c.Info.Refs[id] = Ref{Kind: loc.Kind, Local: loc}
				c.Info.Types[id] = loc.Type
				if paired {
					c.convert(s.Rhs[i], loc.Type)
				}
				continue
			}
			t := rts[i].Default()
			if paired {
				c.convert(s.Rhs[i], t)
			}
			c.declare(id, t, RefLocal)
		}
		return
	}
	for i, l := range s.Lhs {
		if id, ok := l.(*ast.Ident); ok && id.Name == "_" {
			continue
		}
		lt := c.expr(l)
		if paired {
			c.convert(s.Rhs[i], lt)
		}
	}
}

func (c *Checker) decl(d *ast.GenDecl) {
	switch d.Tok {
	case token.VAR:
		for _, sp := range d.Specs {
			vs := sp.(*ast.ValueSpec)
			var t *Type
			if vs.Type != nil {
				t = c.typeExpr(vs.Type)
			}
			var vts []*Type
			for _, v := range vs.Values {
				vt := c.exprHint(v, t)
				if t != nil {
					c.convert(v, t)
				}
				vts = append(vts, vt)
			}
			if len(vs.Values) == 1 && len(vs.Names) > 1 && vts[0].Kind == Tuple {
				vts = vts[0].Tuple
			}
			for i, n := range vs.Names {
				nt := t
				if nt == nil {
					nt = TypInvalid
					if i < len(vts) {
						nt = vts[i].Default()
						if len(vs.Values) == len(vs.Names) {
							c.convert(vs.Values[i], nt)
						}
					}
				}
				c.declare(n, nt, RefLocal)
			}
		}
	case token.CONST:
		var typ ast.Expr
		var vals []ast.Expr
		for si, sp := range d.Specs {
			vs := sp.(*ast.ValueSpec)
			if vs.Type != nil || len(vs.Values) > 0 {
				typ, vals = vs.Type, vs.Values
			}
			saved := c.iota
			c.iota = constant.MakeInt64(int64(si))
			for i, n := range vs.Names {
				t, v := TypInvalid, constant.MakeUnknown()
				if i < len(vals) {
					t = c.expr(vals[i])
					if cv := c.Info.Consts[vals[i]]; cv != nil {
						v = cv
					}
				}
				if typ != nil {
					t = c.typeExpr(typ)
					v = ConvertConst(v, t)
				}
				l := c.declare(n, t, RefLocal)
				l.Const = v
			}
			c.iota = saved
		}
	}
}

func (c *Checker) ret(s *ast.ReturnStmt) {
	if c.sig == nil {
		for _, r := range s.Results {
			c.expr(r)
		}
		return
	}
	for i, r := range s.Results {
		var rt *Type
		if len(s.Results) == len(c.sig.Results) {
			rt = c.sig.Results[i]
		}
		c.exprHint(r, rt)
		c.convert(r, rt)
	}
}

func (c *Checker) rangeStmt(s *ast.RangeStmt) {
	c.push()
	xt := c.expr(s.X)
	var kt, vt *Type
	switch t := xt.Deref(); {
	case t.IsInteger():
		kt = t.Default()
		c.convert(s.X, kt)
	case t.Kind == Array, t.Kind == Resource && !t.Resource.Texture():
		kt, vt = TypInt, t.Elem
	default:
		kt, vt = TypInvalid, TypInvalid
	}
	if vt == nil {
		vt = TypInvalid
	}
	if s.Tok == token.DEFINE {
		if id, ok := s.Key.(*ast.Ident); ok {
			c.declare(id, kt, RefLocal)
		}
		if id, ok := s.Value.(*ast.Ident); ok {
			c.declare(id, vt, RefLocal)
		}
	} else {
		if s.Key != nil {
			c.expr(s.Key)
		}
		if s.Value != nil {
			c.expr(s.Value)
		}
	}
	c.stmt(s.Body)
	c.pop()
}
