// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slwrite

import (
	"go/ast"
	"go/constant"
	"go/token"
	"strconv"
	"strings"

	"goki.dev/slkernel/alignsl"
	"goki.dev/slkernel/sldiag"
	"goki.dev/slkernel/slsema"
)

func (w *writer) stmts(list []ast.Stmt) {
	for _, s := range list {
		w.stmt(s)
	}
}

// block writes list in a nested scope.
func (w *writer) block(list []ast.Stmt) {
	w.indent++
	w.stmts(list)
	w.indent--
}

func (w *writer) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case nil, *ast.EmptyStmt:
	case *ast.ExprStmt:
		w.exprStmt(s)
	case *ast.IncDecStmt:
		w.emit(w.simple(s) + ";")
	case *ast.AssignStmt:
		w.assign(s)
	case *ast.DeclStmt:
		w.decl(s.Decl.(*ast.GenDecl))
	case *ast.ReturnStmt:
		w.ret(s)
	case *ast.BlockStmt:
		w.line("{")
		w.block(s.List)
		w.line("}")
	case *ast.IfStmt:
		w.ifStmt(s, "")
	case *ast.ForStmt:
		w.forStmt(s)
	case *ast.RangeStmt:
		w.rangeStmt(s)
	case *ast.SwitchStmt:
		w.switchStmt(s)
	case *ast.BranchStmt:
		switch s.Tok {
		case token.BREAK:
			w.line("break;")
		case token.CONTINUE:
			w.line("continue;")
		default:
			w.line("// unsupported " + s.Tok.String())
		}
	case *ast.LabeledStmt:
		w.stmt(s.Stmt)
	case *ast.GoStmt, *ast.DeferStmt, *ast.SelectStmt, *ast.SendStmt, *ast.TypeSwitchStmt:
		w.line("// unsupported statement")
	default:
		w.diag(sldiag.UnsupportedStmt, s, "cannot lower %T", s)
	}
}

func (w *writer) exprStmt(s *ast.ExprStmt) {
	x, ok := ast.Unparen(s.X).(*ast.CallExpr)
	if !ok {
		w.expr(s.X)
		w.flush()
		return
	}
	if in := w.intrinsicOf(x); in != nil && in.Kind == slsema.OutIntrinsic {
		w.outTargets(x, in, nil, false)
		w.flush()
		return
	}
	if c := w.call(x, false); c != "" {
		w.emit(c + ";")
		return
	}
	w.flush()
}

// simple lowers a simple statement without its terminating semicolon,
// as used in the clauses of for loops.
func (w *writer) simple(s ast.Stmt) string {
	switch s := s.(type) {
	case *ast.IncDecStmt:
		w.markWritten(s.X)
		return w.expr(s.X) + s.Tok.String()
	case *ast.ExprStmt:
		if x, ok := ast.Unparen(s.X).(*ast.CallExpr); ok {
			return w.call(x, false)
		}
		return w.expr(s.X)
	case *ast.AssignStmt:
		if len(s.Lhs) == 1 && len(s.Rhs) == 1 {
			return w.assignOne(s.Lhs[0], s.Tok, s.Rhs[0])
		}
	}
	w.diag(sldiag.UnsupportedStmt, s, "cannot lower %T in a loop clause", s)
	return ""
}

// containsCall reports whether e calls a function.
func containsCall(e ast.Expr) bool {
	found := false
	ast.Inspect(e, func(n ast.Node) bool {
		if _, ok := n.(*ast.CallExpr); ok {
			found = true
		}
		return !found
	})
	return found
}

func isBlank(e ast.Expr) bool {
	id, ok := e.(*ast.Ident)
	return ok && id.Name == "_"
}

func (w *writer) assign(s *ast.AssignStmt) {
	switch {
	case len(s.Rhs) == 1 && len(s.Lhs) > 1:
		x, ok := ast.Unparen(s.Rhs[0]).(*ast.CallExpr)
		in := w.intrinsicOf(x)
		if !ok || in == nil || in.Kind != slsema.OutIntrinsic {
			w.diag(sldiag.UnsupportedStmt, s, "cannot lower assignment of multiple results")
			return
		}
		w.outTargets(x, in, s.Lhs, s.Tok == token.DEFINE)
		w.flush()
	case len(s.Lhs) > 1:
		// parallel assignment evaluates every operand first
		tmps := make([]string, len(s.Rhs))
		for i, r := range s.Rhs {
			if isBlank(s.Lhs[i]) {
				if containsCall(r) {
					w.emit(w.expr(r) + ";")
				}
				continue
			}
			tmps[i] = w.temp("_t")
			w.emit(w.res.Declare(w.lhsType(s.Lhs[i]), tmps[i]) + " = " + w.initializer(r) + ";")
		}
		for i, l := range s.Lhs {
			if tmps[i] == "" {
				continue
			}
			if s.Tok == token.DEFINE {
				if d := w.define(l); d != "" {
					w.emit(d + " = " + tmps[i] + ";")
					continue
				}
			}
			w.markWritten(l)
			w.emit(w.expr(l) + " = " + tmps[i] + ";")
		}
	case len(s.Lhs) == 1 && len(s.Rhs) == 1:
		if isBlank(s.Lhs[0]) {
			if containsCall(s.Rhs[0]) {
				if x, ok := ast.Unparen(s.Rhs[0]).(*ast.CallExpr); ok {
					if c := w.call(x, false); c != "" {
						w.emit(c + ";")
						return
					}
				} else {
					w.emit(w.expr(s.Rhs[0]) + ";")
					return
				}
			}
			w.flush()
			return
		}
		w.emit(w.assignOne(s.Lhs[0], s.Tok, s.Rhs[0]) + ";")
	}
}

// defines reports whether l is a variable declared by its assignment.
func (w *writer) defines(l ast.Expr) bool {
	id, ok := l.(*ast.Ident)
	return ok && w.info.Defs[id] != nil
}

func (w *writer) lhsType(l ast.Expr) *slsema.Type {
	if id, ok := l.(*ast.Ident); ok {
		if loc := w.info.Defs[id]; loc != nil {
			return loc.Type
		}
	}
	return w.info.TypeOf(l)
}

// define returns the declaration of the local a := defines with l,
// or "" when l assigns an existing variable.
func (w *writer) define(l ast.Expr) string {
	id, ok := l.(*ast.Ident)
	if !ok {
		return ""
	}
	loc := w.info.Defs[id]
	if loc == nil {
		return ""
	}
	if !loc.Type.IsValid() {
		w.diag(sldiag.UntypedDecl, id, "cannot determine the type of %s", id.Name)
	}
	return w.res.Declare(loc.Type, w.local(loc))
}

// assignOne lowers a single assignment, declaration or operation
// assignment.
func (w *writer) assignOne(l ast.Expr, tok token.Token, r ast.Expr) string {
	if tok == token.DEFINE {
		if d := w.define(l); d != "" {
			return d + " = " + w.initializer(r)
		}
		tok = token.ASSIGN
	}
	w.markWritten(l)
	if tok == token.SHL_ASSIGN || tok == token.SHR_ASSIGN {
		lt := w.info.TypeOf(l)
		if width := shiftWidth(lt, w.info.ConstOf(r)); width > 0 {
			ls := w.expr(l)
			if tok == token.SHR_ASSIGN && signed(lt) {
				return ls + " >>= " + strconv.Itoa(width-1)
			}
			return ls + " = " + w.res.Zero(lt)
		}
	}
	rs := w.expr(r)
	ls := w.expr(l)
	switch tok {
	case token.ASSIGN:
		return ls + " = " + rs
	case token.AND_NOT_ASSIGN:
		return ls + " &= ~" + paren(rs)
	}
	return ls + " " + tok.String() + " " + rs
}

// outTargets lowers a call to an intrinsic with out arguments into
// the variables lhs. Blank and missing targets get temporaries.
func (w *writer) outTargets(x *ast.CallExpr, in *slsema.Intrinsic, lhs []ast.Expr, define bool) {
	t := w.info.TypeOf(x)
	targets := make([]string, len(t.Tuple))
	for i, rt := range t.Tuple {
		var l ast.Expr
		if i < len(lhs) {
			l = lhs[i]
		}
		switch {
		case l == nil || isBlank(l):
			targets[i] = w.temp("_r")
			w.pre = append(w.pre, w.res.Declare(rt, targets[i])+";")
		case define && w.defines(l):
			targets[i] = w.define(l)
			w.pre = append(w.pre, targets[i]+";")
			targets[i] = w.local(w.info.Defs[l.(*ast.Ident)])
		default:
			w.markWritten(l)
			targets[i] = w.expr(l)
		}
	}
	w.pre = append(w.pre, w.outCall(x, in, targets)+";")
}

func (w *writer) decl(d *ast.GenDecl) {
	if d.Tok != token.VAR {
		return
	}
	for _, sp := range d.Specs {
		vs := sp.(*ast.ValueSpec)
		if len(vs.Values) == 1 && len(vs.Names) > 1 {
			x, ok := ast.Unparen(vs.Values[0]).(*ast.CallExpr)
			if in := w.intrinsicOf(x); ok && in != nil && in.Kind == slsema.OutIntrinsic {
				lhs := make([]ast.Expr, len(vs.Names))
				for i, n := range vs.Names {
					lhs[i] = n
				}
				w.outTargets(x, in, lhs, true)
				w.flush()
				continue
			}
		}
		for i, id := range vs.Names {
			if id.Name == "_" {
				if i < len(vs.Values) && containsCall(vs.Values[i]) {
					w.emit(w.expr(vs.Values[i]) + ";")
				}
				continue
			}
			decl := w.define(id)
			if decl == "" {
				continue
			}
			init := w.res.Zero(w.info.Defs[id].Type)
			if i < len(vs.Values) && len(vs.Values) == len(vs.Names) {
				init = w.initializer(vs.Values[i])
			}
			w.emit(decl + " = " + init + ";")
		}
	}
}

// namedResult returns the named result of the function being lowered.
func (w *writer) namedResult() string {
	fd := w.member.Obj.FuncDecl()
	if fd == nil || fd.Type.Results == nil {
		return ""
	}
	for _, f := range fd.Type.Results.List {
		for _, id := range f.Names {
			if l := w.info.Defs[id]; l != nil {
				return w.local(l)
			}
		}
	}
	return ""
}

func (w *writer) ret(s *ast.ReturnStmt) {
	if w.entry {
		if len(s.Results) == 1 && w.g.Kernel.Capability == slsema.Pixel {
			w.emit(alignsl.OutputName + "[" + ThreadIDVar + ".xy] = " + w.expr(s.Results[0]) + ";")
		}
		w.emit("return;")
		return
	}
	switch len(s.Results) {
	case 0:
		if n := w.namedResult(); n != "" {
			w.emit("return " + n + ";")
			return
		}
		w.emit("return;")
	case 1:
		w.emit("return " + w.expr(s.Results[0]) + ";")
	default:
		w.diag(sldiag.UnsupportedStmt, s, "cannot lower return of multiple results")
	}
}

// needsPre reports whether lowering e writes statements ahead of the
// expression.
func (w *writer) needsPre(e ast.Expr) bool {
	found := false
	ast.Inspect(e, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.CompositeLit:
			if w.info.TypeOf(x).Kind == slsema.Array {
				found = true
			}
		case *ast.CallExpr:
			_, r := w.callee(x)
			switch r.Kind {
			case slsema.RefBuiltin:
				if (r.Name == "len" || r.Name == "cap") && len(x.Args) == 1 &&
					w.info.TypeOf(x.Args[0]).Deref().Kind == slsema.Resource {
					found = true
				}
			case slsema.RefIntrinsic:
				switch in := r.Intrinsic; in.Kind {
				case slsema.AtomicIntrinsic, slsema.OutIntrinsic:
					found = true
				case slsema.TextureIntrinsic:
					found = found || in.HLSL == "dims"
				}
			}
		}
		return !found
	})
	return found
}

// ifStmt writes an if statement; prefix continues an else branch on
// the same line.
func (w *writer) ifStmt(s *ast.IfStmt, prefix string) {
	if s.Init != nil {
		w.line("{")
		w.indent++
		w.stmt(s.Init)
	}
	w.emit(prefix + "if (" + w.expr(s.Cond) + ") {")
	w.block(s.Body.List)
	switch e := s.Else.(type) {
	case nil:
		w.line("}")
	case *ast.BlockStmt:
		w.line("} else {")
		w.block(e.List)
		w.line("}")
	case *ast.IfStmt:
		if e.Init == nil && !w.needsPre(e.Cond) {
			w.ifStmt(e, "} else ")
			break
		}
		w.line("} else {")
		w.indent++
		w.ifStmt(e, "")
		w.indent--
		w.line("}")
	}
	if s.Init != nil {
		w.indent--
		w.line("}")
	}
}

func (w *writer) forStmt(s *ast.ForStmt) {
	var init, post string
	if s.Init != nil {
		init = w.simple(s.Init)
	}
	w.flush()
	if s.Post != nil {
		post = w.simple(s.Post)
		if len(w.pre) > 0 {
			w.diag(sldiag.UnsupportedStmt, s.Post, "cannot lower loop post statement")
			w.pre = nil
		}
	}
	switch {
	case s.Cond != nil && w.needsPre(s.Cond):
		w.line("for (" + init + "; ; " + post + ") {")
		w.indent++
		w.emit("if (!(" + w.expr(s.Cond) + ")) break;")
		w.stmts(s.Body.List)
		w.indent--
	case s.Init == nil && s.Post == nil:
		cond := "true"
		if s.Cond != nil {
			cond = w.expr(s.Cond)
		}
		w.line("while (" + cond + ") {")
		w.block(s.Body.List)
	default:
		cond := ""
		if s.Cond != nil {
			cond = w.expr(s.Cond)
		}
		w.line("for (" + init + "; " + cond + "; " + post + ") {")
		w.block(s.Body.List)
	}
	w.line("}")
}

func (w *writer) rangeStmt(s *ast.RangeStmt) {
	xt := w.info.TypeOf(s.X).Deref()
	var n string
	var it *slsema.Type
	switch {
	case xt.IsInteger():
		it = xt.Default()
		n = w.expr(s.X)
		if _, ok := s.X.(*ast.Ident); !ok && w.info.ConstOf(s.X) == nil {
			tmp := w.temp("_n")
			w.emit(w.res.Declare(it, tmp) + " = " + n + ";")
			n = tmp
		}
	case xt.Kind == slsema.Array:
		it = slsema.TypInt
		n = Literal(constant.MakeInt64(int64(xt.Len)), it)
	case xt.Kind == slsema.Resource:
		it = slsema.TypInt
		buf := w.expr(s.X)
		c, st := w.temp("_n"), w.temp("_s")
		w.emit("uint " + c + ", " + st + ";")
		w.emit(buf + ".GetDimensions(" + c + ", " + st + ");")
		n = "int(" + c + ")"
	default:
		w.diag(sldiag.UnsupportedStmt, s, "cannot range over %s", xt)
		return
	}
	w.flush()
	idx := ""
	var pre []string
	if id, ok := s.Key.(*ast.Ident); ok && s.Tok == token.DEFINE && id.Name != "_" && w.info.Defs[id] != nil {
		idx = w.local(w.info.Defs[id])
	} else {
		idx = w.temp("_i")
		if s.Key != nil && !isBlank(s.Key) {
			w.markWritten(s.Key)
			pre = append(pre, w.expr(s.Key)+" = "+idx+";")
		}
	}
	if s.Value != nil && !isBlank(s.Value) {
		elem := w.expr(s.X) + "[" + idx + "]"
		if id, ok := s.Value.(*ast.Ident); ok && s.Tok == token.DEFINE && w.info.Defs[id] != nil {
			l := w.info.Defs[id]
			pre = append(pre, w.res.Declare(l.Type, w.local(l))+" = "+elem+";")
		} else {
			w.markWritten(s.Value)
			pre = append(pre, w.expr(s.Value)+" = "+elem+";")
		}
	}
	w.line("for (" + w.res.Declare(it, idx) + " = 0; " + idx + " < " + n + "; " + idx + "++) {")
	w.indent++
	for _, p := range pre {
		w.line(p)
	}
	w.stmts(s.Body.List)
	w.indent--
	w.line("}")
}

// branches reports whether list has a branch statement tok that
// targets the enclosing switch (break) or loop (continue).
func branches(list []ast.Stmt, tok token.Token) bool {
	found := false
	for _, s := range list {
		ast.Inspect(s, func(n ast.Node) bool {
			switch x := n.(type) {
			case *ast.ForStmt, *ast.RangeStmt, *ast.FuncLit:
				return false
			case *ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
				return tok == token.CONTINUE
			case *ast.BranchStmt:
				if x.Tok == tok && x.Label == nil {
					found = true
				}
			}
			return !found
		})
	}
	return found
}

// terminates reports whether list ends in a statement that leaves
// the switch case.
func terminates(list []ast.Stmt) bool {
	if len(list) == 0 {
		return false
	}
	switch list[len(list)-1].(type) {
	case *ast.ReturnStmt, *ast.BranchStmt:
		return true
	}
	return false
}

// switchStmt writes an integer switch over constant cases as an HLSL
// switch, and any other switch as an if chain.
func (w *writer) switchStmt(s *ast.SwitchStmt) {
	if s.Init != nil {
		w.line("{")
		w.indent++
		w.stmt(s.Init)
	}
	if w.nativeSwitch(s) {
		w.emit("switch (" + w.expr(s.Tag) + ") {")
		for _, cl := range s.Body.List {
			cc := cl.(*ast.CaseClause)
			if cc.List == nil {
				w.line("default: {")
			} else {
				for i, e := range cc.List {
					if i == len(cc.List)-1 {
						w.line("case " + w.expr(e) + ": {")
					} else {
						w.line("case " + w.expr(e) + ":")
					}
				}
			}
			w.indent++
			w.stmts(cc.Body)
			if !terminates(cc.Body) {
				w.line("break;")
			}
			w.indent--
			w.line("}")
		}
		w.line("}")
	} else {
		w.ifChain(s)
	}
	if s.Init != nil {
		w.indent--
		w.line("}")
	}
}

func (w *writer) nativeSwitch(s *ast.SwitchStmt) bool {
	if s.Tag == nil || !w.info.TypeOf(s.Tag).IsInteger() {
		return false
	}
	for _, cl := range s.Body.List {
		for _, e := range cl.(*ast.CaseClause).List {
			if w.info.ConstOf(e) == nil {
				return false
			}
		}
	}
	return true
}

func (w *writer) ifChain(s *ast.SwitchStmt) {
	tag := ""
	if s.Tag != nil {
		tag = w.expr(s.Tag)
		if _, ok := s.Tag.(*ast.Ident); !ok && w.info.ConstOf(s.Tag) == nil {
			tmp := w.temp("_sw")
			w.emit(w.res.Declare(w.info.TypeOf(s.Tag), tmp) + " = " + tag + ";")
			tag = tmp
		}
	}
	var conds []string
	var bodies [][]ast.Stmt
	var def []ast.Stmt
	hasDef, brk, cont := false, false, false
	for _, cl := range s.Body.List {
		cc := cl.(*ast.CaseClause)
		brk = brk || branches(cc.Body, token.BREAK)
		cont = cont || branches(cc.Body, token.CONTINUE)
		if cc.List == nil {
			def, hasDef = cc.Body, true
			continue
		}
		var cs []string
		for _, e := range cc.List {
			if tag == "" {
				cs = append(cs, "("+w.expr(e)+")")
			} else {
				cs = append(cs, "("+tag+" == "+w.expr(e)+")")
			}
		}
		conds = append(conds, strings.Join(cs, " || "))
		bodies = append(bodies, cc.Body)
	}
	w.flush()
	if brk && cont {
		w.diag(sldiag.UnsupportedStmt, s, "cannot lower a switch with both break and continue")
	}
	if brk {
		w.line("do {")
		w.indent++
	}
	for i, c := range conds {
		if i == 0 {
			w.line("if (" + c + ") {")
		} else {
			w.line("} else if (" + c + ") {")
		}
		w.block(bodies[i])
	}
	switch {
	case hasDef && len(conds) > 0:
		w.line("} else {")
		w.block(def)
		w.line("}")
	case hasDef:
		w.line("{")
		w.block(def)
		w.line("}")
	case len(conds) > 0:
		w.line("}")
	}
	if brk {
		w.indent--
		w.line("} while (false);")
	}
}
