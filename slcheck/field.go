// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slcheck

import (
	"fmt"
	"go/ast"
	"reflect"
	"strconv"

	"goki.dev/slkernel/slclosure"
	"goki.dev/slkernel/sldiag"
	"goki.dev/slkernel/slsema"
)

// GroupSharedTag is the struct tag value marking a field group-shared.
const GroupSharedTag = "groupshared"

// structField returns the field if n declares struct fields.
func structField(ctx *Context, n ast.Node) (*ast.Field, bool) {
	f := n.(*ast.Field)
	return f, inStructFields(ctx.Stack)
}

func fieldNames(f *ast.Field) string {
	if len(f.Names) == 0 {
		return "embedded field"
	}
	s := f.Names[0].Name
	for _, n := range f.Names[1:] {
		s += ", " + n.Name
	}
	return s
}

// containsResource reports whether t holds a resource or sampler.
func containsResource(ctx *Context, t *slsema.Type, seen map[*slsema.Object]bool) bool {
	switch t.Kind {
	case slsema.Resource, slsema.Sampler:
		return true
	case slsema.Array, slsema.Pointer:
		return containsResource(ctx, t.Elem, seen)
	case slsema.Struct:
		if seen[t.Obj] {
			return false
		}
		seen[t.Obj] = true
		for _, f := range ctx.Checker.Fields(t) {
			if containsResource(ctx, f.Type, seen) {
				return true
			}
		}
	}
	return false
}

// localStruct returns a struct type declared in a function body that t
// is built from, or nil.
func localStruct(ctx *Context, t *slsema.Type, seen map[*slsema.Object]bool) *slsema.Object {
	switch t.Kind {
	case slsema.Array, slsema.Pointer, slsema.Resource:
		return localStruct(ctx, t.Elem, seen)
	case slsema.Struct:
		if t.Obj.Local() {
			return t.Obj
		}
		if seen[t.Obj] {
			return nil
		}
		seen[t.Obj] = true
		for _, f := range ctx.Checker.Fields(t) {
			if o := localStruct(ctx, f.Type, seen); o != nil {
				return o
			}
		}
	}
	return nil
}

// hostSized returns the name of a platform sized predeclared type in e.
func hostSized(ctx *Context, e ast.Expr) string {
	name := ""
	ast.Inspect(e, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok {
			switch nm := typeNamed(ctx, id); nm {
			case "int", "uint", "uintptr", "int8", "int16", "uint8", "uint16", "byte":
				name = nm
			}
		}
		return name == ""
	})
	return name
}

func validElement(t *slsema.Type, texture bool) bool {
	switch t.Kind {
	case slsema.Scalar:
		return !t.IsBool() || (t.Bool32 && !texture)
	case slsema.Vector:
		return t.Scalar != slsema.Bool && t.Scalar != slsema.Double
	case slsema.Matrix, slsema.Struct:
		return !texture
	}
	return false
}

// groupShared returns the groupshared directive of a var member.
func groupShared(m *slclosure.Node) (slsema.Directive, bool) {
	if m == nil || m.Kind != slclosure.VarNode {
		return slsema.Directive{}, false
	}
	ds := slsema.FindDirectives(m.Obj.Directives(), slsema.GroupSharedDirective)
	if len(ds) == 0 {
		return slsema.Directive{}, false
	}
	return ds[0], true
}

// rootIdent returns the variable an lvalue is rooted at.
func rootIdent(e ast.Expr) *ast.Ident {
	for {
		switch x := ast.Unparen(e).(type) {
		case *ast.Ident:
			return x
		case *ast.IndexExpr:
			e = x.X
		case *ast.SelectorExpr:
			e = x.X
		case *ast.StarExpr:
			e = x.X
		default:
			return nil
		}
	}
}

func lvalues(n ast.Node) []ast.Expr {
	switch n := n.(type) {
	case *ast.AssignStmt:
		return n.Lhs
	case *ast.IncDecStmt:
		return []ast.Expr{n.X}
	}
	return nil
}

func init() {
	Register(
		&Rule{Code: sldiag.InvalidFieldType, Types: []ast.Node{fieldT},
			Check: func(ctx *Context, n ast.Node) string {
				f, ok := structField(ctx, n)
				if !ok {
					return ""
				}
				if nm := hostSized(ctx, f.Type); nm != "" {
					return fmt.Sprintf("%s: %s has no fixed GPU size: use int32, uint32 or float32", fieldNames(f), nm)
				}
				if t := ctx.TypeOf(f.Type); !t.IsValid() {
					return fmt.Sprintf("%s: unsupported field type %s", fieldNames(f), t)
				}
				return ""
			}},
		&Rule{Code: sldiag.ArrayField, Types: []ast.Node{fieldT},
			Check: func(ctx *Context, n ast.Node) string {
				f := n.(*ast.Field)
				if ctx.IsKernelField(f) && ctx.TypeOf(f.Type).Kind == slsema.Array {
					if _, gs := fieldTag(f); gs {
						return ""
					}
					return fmt.Sprintf("%s: array kernel fields are not supported: use a buffer", fieldNames(f))
				}
				return ""
			}},
		&Rule{Code: sldiag.PointerField, Types: []ast.Node{fieldT},
			Check: func(ctx *Context, n ast.Node) string {
				if f, ok := structField(ctx, n); ok && ctx.TypeOf(f.Type).Kind == slsema.Pointer {
					return fmt.Sprintf("%s: pointer fields are not supported", fieldNames(f))
				}
				return ""
			}},
		&Rule{Code: sldiag.NestedResource, Types: []ast.Node{fieldT},
			Check: func(ctx *Context, n ast.Node) string {
				f, ok := structField(ctx, n)
				if !ok {
					return ""
				}
				t := ctx.TypeOf(f.Type)
				if ctx.IsKernelField(f) {
					if t.Kind == slsema.Resource || t.Kind == slsema.Sampler || !containsResource(ctx, t, map[*slsema.Object]bool{}) {
						return ""
					}
				} else if !containsResource(ctx, t, map[*slsema.Object]bool{}) {
					return ""
				}
				return fmt.Sprintf("%s: resources must be direct kernel fields", fieldNames(f))
			}},
		&Rule{Code: sldiag.InvalidResourceElement, Types: []ast.Node{fieldT},
			Check: func(ctx *Context, n ast.Node) string {
				f := n.(*ast.Field)
				if !ctx.IsKernelField(f) {
					return ""
				}
				t := ctx.TypeOf(f.Type)
				if t.Kind != slsema.Resource {
					return ""
				}
				if !t.Elem.IsValid() {
					what := "unresolved"
					if t.Elem != nil && t.Elem.Name != "" {
						what = t.Elem.Name
					}
					return fmt.Sprintf("%s: %s element type is not supported (%s)", fieldNames(f), t.Resource.HLSL(), what)
				}
				if validElement(t.Elem, t.Resource.Texture()) {
					return ""
				}
				return fmt.Sprintf("%s: %s cannot hold %s elements", fieldNames(f), t.Resource.HLSL(), t.Elem)
			}},
		&Rule{Code: sldiag.GroupSharedInstance, Types: []ast.Node{fieldT},
			Check: func(ctx *Context, n ast.Node) string {
				f, ok := structField(ctx, n)
				if !ok {
					return ""
				}
				if _, gs := fieldTag(f); gs {
					return fmt.Sprintf("%s: group-shared memory must be a package variable with a //sl:groupshared directive", fieldNames(f))
				}
				return ""
			}},
		&Rule{Code: sldiag.GroupSharedNotArray, Types: []ast.Node{valueSpecT},
			Check: func(ctx *Context, n ast.Node) string {
				m := ctx.Member
				if _, ok := groupShared(m); !ok || !ctx.IsMemberDecl(n) {
					return ""
				}
				if t := ctx.Checker.VarType(m.Obj); t.Kind != slsema.Array {
					return fmt.Sprintf("group-shared %s must be an array, not %s", m.Name, t)
				}
				return ""
			}},
		&Rule{Code: sldiag.GroupSharedOwnerUnknown, Types: []ast.Node{valueSpecT},
			Check: func(ctx *Context, n ast.Node) string {
				m := ctx.Member
				d, ok := groupShared(m)
				if !ok || !ctx.IsMemberDecl(n) {
					return ""
				}
				if len(d.Args) != 1 {
					return fmt.Sprintf("group-shared %s must name its kernel: //sl:groupshared Kernel", m.Name)
				}
				if o := m.Obj.Pkg.Lookup(d.Args[0]); o == nil || o.Kind != slsema.TypeObj {
					return fmt.Sprintf("group-shared %s: unknown kernel %s", m.Name, d.Args[0])
				}
				return ""
			}},
		&Rule{Code: sldiag.GroupSharedOwnerKernel, Types: []ast.Node{valueSpecT},
			Check: func(ctx *Context, n ast.Node) string {
				m := ctx.Member
				d, ok := groupShared(m)
				if !ok || !ctx.IsMemberDecl(n) || len(d.Args) != 1 {
					return ""
				}
				o := m.Obj.Pkg.Lookup(d.Args[0])
				if o == nil || o.Kind != slsema.TypeObj {
					return ""
				}
				if o == ctx.Kernel.Object {
					return ""
				}
				for _, k := range ctx.Checker.Prog.Kernels() {
					if k.Object == o {
						return fmt.Sprintf("group-shared %s belongs to kernel %s, not %s", m.Name, o.Name, ctx.Kernel.Name)
					}
				}
				return fmt.Sprintf("group-shared %s: %s is not a kernel", m.Name, o.Name)
			}},
		&Rule{Code: sldiag.MutableStatic, Types: []ast.Node{assignT, incDecT},
			Check: func(ctx *Context, n ast.Node) string {
				for _, l := range lvalues(n) {
					id := rootIdent(l)
					if id == nil {
						continue
					}
					r := ctx.Ref(id)
					if r.Kind != slsema.RefVar {
						continue
					}
					if _, gs := groupShared(ctx.Graph.Node(r.Obj.ID())); gs {
						continue
					}
					return fmt.Sprintf("package variable %s is written: every invocation has its own copy", r.Obj.Name)
				}
				return ""
			}},
	)
}

// fieldTag returns the sl tag of a field and whether it marks the
// field group-shared.
func fieldTag(f *ast.Field) (string, bool) {
	if f.Tag == nil {
		return "", false
	}
	raw, err := strconv.Unquote(f.Tag.Value)
	if err != nil {
		return "", false
	}
	v := reflect.StructTag(raw).Get("sl")
	return v, v == GroupSharedTag
}
