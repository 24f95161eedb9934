// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slcheck

import (
	"fmt"
	"go/ast"
	"strings"

	"goki.dev/slkernel/slclosure"
	"goki.dev/slkernel/sldiag"
	"goki.dev/slkernel/slsema"
)

// kernelRule checks the kernel type declaration.
func kernelRule(code sldiag.Code, check func(ctx *Context, k *slsema.Kernel) string) *Rule {
	return &Rule{Code: code, Types: []ast.Node{typeSpecT}, Check: func(ctx *Context, n ast.Node) string {
		if ctx.Member.Kind != slclosure.KernelNode || !ctx.IsMemberDecl(n) {
			return ""
		}
		return check(ctx, ctx.Kernel)
	}}
}

func numThreads(k *slsema.Kernel) []slsema.Directive {
	return slsema.FindDirectives(k.Directives, slsema.NumThreadsDirective)
}

func hasResource(ctx *Context) bool {
	for _, f := range ctx.Checker.Fields(ctx.KernelType()) {
		if f.Type.Kind == slsema.Resource {
			return true
		}
	}
	return false
}

func init() {
	Register(
		kernelRule(sldiag.MissingNumThreads, func(ctx *Context, k *slsema.Kernel) string {
			if len(numThreads(k)) > 0 {
				return ""
			}
			d := k.Capability.DefaultNumThreads()
			return fmt.Sprintf("%s has no //sl:numthreads directive: using %d %d %d", k.Name, d[0], d[1], d[2])
		}),
		kernelRule(sldiag.MissingResource, func(ctx *Context, k *slsema.Kernel) string {
			if k.Capability != slsema.Compute || !k.IsStruct() || hasResource(ctx) {
				return ""
			}
			return fmt.Sprintf("compute kernel %s has no buffer or texture to write its results to", k.Name)
		}),
		kernelRule(sldiag.InvalidNumThreads, func(ctx *Context, k *slsema.Kernel) string {
			var errs []string
			for _, d := range numThreads(k) {
				if _, err := slsema.ParseNumThreads(d); err != nil {
					errs = append(errs, err.Error())
				}
			}
			return strings.Join(errs, "; ")
		}),
		kernelRule(sldiag.DuplicateNumThreads, func(ctx *Context, k *slsema.Kernel) string {
			if nt := numThreads(k); len(nt) > 1 {
				return fmt.Sprintf("%s has %d //sl:numthreads directives", k.Name, len(nt))
			}
			return ""
		}),
		kernelRule(sldiag.MissingEntry, func(ctx *Context, k *slsema.Kernel) string {
			if k.Entry == nil {
				return fmt.Sprintf("%s has no %s method", k.Name, slsema.EntryName)
			}
			return ""
		}),
		kernelRule(sldiag.KernelNotStruct, func(ctx *Context, k *slsema.Kernel) string {
			if !k.IsStruct() {
				return fmt.Sprintf("kernel %s must be a struct type", k.Name)
			}
			return ""
		}),
		kernelRule(sldiag.ConflictingCapability, func(ctx *Context, k *slsema.Kernel) string {
			if k.Conflict {
				return fmt.Sprintf("%s is marked both //sl:%s and //sl:%s", k.Name, slsema.KernelDirective, slsema.PixelDirective)
			}
			return ""
		}),
		kernelRule(sldiag.LocalKernel, func(ctx *Context, k *slsema.Kernel) string {
			if k.Local {
				return fmt.Sprintf("kernel %s is declared in function %s: declare it at package level", k.Name, k.Object.Func.Name.Name)
			}
			return ""
		}),
		&Rule{Code: sldiag.InvalidEntry, Types: []ast.Node{funcDeclT},
			Check: func(ctx *Context, n ast.Node) string {
				if ctx.Member.Kind != slclosure.EntryNode || !ctx.IsMemberDecl(n) {
					return ""
				}
				fd := n.(*ast.FuncDecl)
				k := ctx.Kernel
				if np := fd.Type.Params.NumFields(); np > 0 {
					return fmt.Sprintf("%s takes no parameters, has %d", slsema.EntryName, np)
				}
				nr := fd.Type.Results.NumFields()
				switch k.Capability {
				case slsema.Pixel:
					if nr != 1 {
						return fmt.Sprintf("pixel kernel %s must return sltype.Float4", k.Name)
					}
					if t := ctx.TypeOf(fd.Type.Results.List[0].Type); !slsema.Identical(t, slsema.TypFloat4) {
						return fmt.Sprintf("pixel kernel %s returns %s, not float4", k.Name, t)
					}
				case slsema.Compute:
					if nr != 0 && !k.Conflict {
						return fmt.Sprintf("compute kernel %s must not return a value", k.Name)
					}
				}
				return ""
			}},
		&Rule{Code: sldiag.UnknownDirective, Types: []ast.Node{typeSpecT, funcDeclT, valueSpecT},
			Check: func(ctx *Context, n ast.Node) string {
				m := ctx.Member
				if m.Obj == nil || !ctx.IsMemberDecl(n) {
					return ""
				}
				var unknown []string
				for _, d := range m.Obj.Directives() {
					if !slsema.IsKnownDirective(d.Name) {
						unknown = append(unknown, d.String())
					}
				}
				if len(unknown) == 0 {
					return ""
				}
				return "unknown directive " + strings.Join(unknown, ", ")
			}},
		&Rule{Code: sldiag.LocalFieldType, Types: []ast.Node{fieldT},
			Check: func(ctx *Context, n ast.Node) string {
				f := n.(*ast.Field)
				if !ctx.IsKernelField(f) {
					return ""
				}
				if o := localStruct(ctx, ctx.TypeOf(f.Type), map[*slsema.Object]bool{}); o != nil {
					return fmt.Sprintf("%s: type %s is declared in function %s", fieldNames(f), o.Name, o.Func.Name.Name)
				}
				return ""
			}},
	)
}
