// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package slsema is the semantic model of kernel source: the parsed
program, kernel directives, shader types, the intrinsic table and a
checker that types the restricted Go subset kernels are written in.

It does not use go/types: kernel code only needs the small type system
of shading languages, and the API packages (sl, sltype, slbool,
slrand, mat32, math) are recognized by import path, so their source is
never needed.
*/
package slsema

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/tools/go/packages"
)

// Import paths of the packages kernels use without source.
const (
	SLPath     = "goki.dev/slkernel/sl"
	SLTypePath = "goki.dev/slkernel/sltype"
	SLBoolPath = "goki.dev/slkernel/slbool"
	SLRandPath = "goki.dev/slkernel/slrand"
	Mat32Path  = "goki.dev/mat32/v2"
	MathPath   = "math"
	BitsPath   = "math/bits"
)

// IsAPIPackage reports whether path is recognized without source.
func IsAPIPackage(path string) bool {
	switch path {
	case SLPath, SLTypePath, SLBoolPath, SLRandPath, Mat32Path, MathPath, BitsPath:
		return true
	}
	return false
}

// Source is an in-memory Go file.
type Source struct {
	PkgPath  string
	Filename string
	Text     string
}

// Package is one parsed Go package.
type Package struct {
	Path  string
	Name  string
	Dir   string
	Files []*ast.File

	scope      map[string]*Object
	imports    map[*ast.File]map[string]string
	localTypes map[*ast.FuncDecl]map[string]*Object
	objects    []*Object
}

// Lookup returns the package-level object name, or nil.
func (p *Package) Lookup(name string) *Object {
	return p.scope[name]
}

// Objects returns all package-level objects in source order.
func (p *Package) Objects() []*Object {
	return p.objects
}

// Imports returns the local import names of f mapped to import paths.
func (p *Package) Imports(f *ast.File) map[string]string {
	return p.imports[f]
}

// LocalTypes returns the types declared in the body of fn.
func (p *Package) LocalTypes(fn *ast.FuncDecl) map[string]*Object {
	return p.localTypes[fn]
}

// Program is a set of packages holding kernels.
// It is not modified after construction, so translations of
// different kernels can share it.
type Program struct {
	Fset     *token.FileSet
	Packages []*Package

	byPath  map[string]*Package
	kernels []*Kernel
}

// Package returns the package with the import path, or nil.
func (p *Program) Package(path string) *Package {
	return p.byPath[path]
}

// Kernels returns the kernel candidates in package path order,
// then source order.
func (p *Program) Kernels() []*Kernel {
	return p.kernels
}

// Kernel looks up a kernel by its qualified ID or by its type name.
func (p *Program) Kernel(name string) (*Kernel, error) {
	var found []*Kernel
	for _, k := range p.kernels {
		if k.ID() == name {
			return k, nil
		}
		if k.Name == name {
			found = append(found, k)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("kernel %q not found", name)
	case 1:
		return found[0], nil
	}
	return nil, fmt.Errorf("kernel name %q is ambiguous: qualify it with the package path", name)
}

// Position returns the resolved position of pos.
func (p *Program) Position(pos token.Pos) token.Position {
	return p.Fset.Position(pos)
}

// ParseSources parses in-memory files into a program.
func ParseSources(srcs ...Source) (*Program, error) {
	fset := token.NewFileSet()
	byPath := map[string]*Package{}
	var pkgs []*Package
	for _, src := range srcs {
		f, err := parser.ParseFile(fset, src.Filename, src.Text, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			return nil, err
		}
		pp := src.PkgPath
		if pp == "" {
			pp = f.Name.Name
		}
		pkg := byPath[pp]
		if pkg == nil {
			pkg = &Package{Path: pp, Name: f.Name.Name}
			byPath[pp] = pkg
			pkgs = append(pkgs, pkg)
		}
		if pkg.Name != f.Name.Name {
			return nil, fmt.Errorf("%s: package %s, expected %s", src.Filename, f.Name.Name, pkg.Name)
		}
		pkg.Files = append(pkg.Files, f)
	}
	return NewProgram(fset, pkgs), nil
}

// LoadMode is the go/packages mode used by Load: syntax only, no type checking.
const LoadMode = packages.NeedName | packages.NeedFiles | packages.NeedSyntax | packages.NeedImports | packages.NeedDeps | packages.NeedModule

// Load loads the packages matching patterns, relative to dir, with
// every non-standard package they import.
func Load(dir string, patterns ...string) (*Program, error) {
	cfg := &packages.Config{Mode: LoadMode, Dir: dir}
	roots, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", strings.Join(patterns, " "), err)
	}
	var errs []error
	for _, r := range roots {
		for _, e := range r.Errors {
			errs = append(errs, e)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	var pkgs []*Package
	packages.Visit(roots, nil, func(lp *packages.Package) {
		if IsAPIPackage(lp.PkgPath) || lp.Module == nil || len(lp.Syntax) == 0 {
			return
		}
		pkg := &Package{Path: lp.PkgPath, Name: lp.Name, Files: lp.Syntax}
		if len(lp.GoFiles) > 0 {
			pkg.Dir = filepath.Dir(lp.GoFiles[0])
		}
		pkgs = append(pkgs, pkg)
	})
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages with Go files match %s", strings.Join(patterns, " "))
	}
	fset := roots[0].Fset
	return NewProgram(fset, pkgs), nil
}

// NewProgram indexes the declarations of pkgs and finds their kernels.
func NewProgram(fset *token.FileSet, pkgs []*Package) *Program {
	p := &Program{Fset: fset, byPath: map[string]*Package{}}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Path < pkgs[j].Path })
	for _, pkg := range pkgs {
		p.byPath[pkg.Path] = pkg
	}
	p.Packages = pkgs
	for _, pkg := range pkgs {
		sort.SliceStable(pkg.Files, func(i, j int) bool {
			return fset.Position(pkg.Files[i].Package).Filename < fset.Position(pkg.Files[j].Package).Filename
		})
		p.index(pkg)
	}
	for _, pkg := range pkgs {
		p.kernels = append(p.kernels, findKernels(pkg)...)
	}
	return p
}

func (p *Program) index(pkg *Package) {
	pkg.scope = map[string]*Object{}
	pkg.imports = map[*ast.File]map[string]string{}
	pkg.localTypes = map[*ast.FuncDecl]map[string]*Object{}
	add := func(o *Object) {
		pkg.objects = append(pkg.objects, o)
		if o.Kind != MethodObj && o.Name != "_" {
			pkg.scope[o.Name] = o
		}
	}
	var methods []*Object
	for _, f := range pkg.Files {
		imps := map[string]string{}
		for _, is := range f.Imports {
			ip, err := strconv.Unquote(is.Path.Value)
			if err != nil {
				continue
			}
			name := p.importName(ip)
			if is.Name != nil {
				name = is.Name.Name
			}
			if name == "_" || name == "." {
				continue
			}
			imps[name] = ip
		}
		pkg.imports[f] = imps

		for _, d := range f.Decls {
			switch d := d.(type) {
			case *ast.GenDecl:
				for _, o := range declObjects(pkg, f, d, nil) {
					add(o)
				}
			case *ast.FuncDecl:
				o := &Object{Kind: FuncObj, Name: d.Name.Name, Pkg: pkg, File: f, Node: d, Doc: d.Doc}
				if d.Recv != nil && len(d.Recv.List) == 1 {
					o.Kind = MethodObj
					methods = append(methods, o)
				}
				add(o)
				if d.Body != nil {
					p.indexLocalTypes(pkg, f, d)
				}
			}
		}
	}
	for _, m := range methods {
		fd := m.Node.(*ast.FuncDecl)
		name, ptr := RecvTypeName(fd.Recv.List[0].Type)
		m.PtrRecv = ptr
		if t := pkg.scope[name]; t != nil && t.Kind == TypeObj {
			m.Recv = t
			if t.Methods == nil {
				t.Methods = map[string]*Object{}
			}
			t.Methods[m.Name] = m
		}
	}
}

func (p *Program) indexLocalTypes(pkg *Package, f *ast.File, fd *ast.FuncDecl) {
	ast.Inspect(fd.Body, func(n ast.Node) bool {
		ds, ok := n.(*ast.DeclStmt)
		if !ok {
			return true
		}
		gd, ok := ds.Decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			return true
		}
		for _, o := range declObjects(pkg, f, gd, fd) {
			lt := pkg.localTypes[fd]
			if lt == nil {
				lt = map[string]*Object{}
				pkg.localTypes[fd] = lt
			}
			lt[o.Name] = o
		}
		return true
	})
}

// importName returns the default local name of an import path.
func (p *Program) importName(ip string) string {
	if pkg := p.byPath[ip]; pkg != nil {
		return pkg.Name
	}
	elems := strings.Split(ip, "/")
	last := elems[len(elems)-1]
	if len(elems) > 1 && isMajorVersion(last) {
		last = elems[len(elems)-2]
	}
	return last
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	_, err := strconv.Atoi(s[1:])
	return err == nil
}

// RecvTypeName returns the base type name of a receiver type expression.
func RecvTypeName(e ast.Expr) (name string, ptr bool) {
	if st, ok := e.(*ast.StarExpr); ok {
		ptr = true
		e = st.X
	}
	switch x := e.(type) {
	case *ast.Ident:
		return x.Name, ptr
	case *ast.IndexExpr:
		n, _ := RecvTypeName(x.X)
		return n, ptr
	case *ast.IndexListExpr:
		n, _ := RecvTypeName(x.X)
		return n, ptr
	case *ast.ParenExpr:
		return RecvTypeName(x.X)
	}
	return "", ptr
}
