// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slsema

import (
	"fmt"
	"go/ast"
	"sort"
	"strconv"
)

// EntryName is the name of the kernel entry method.
const EntryName = "Execute"

// Capability is the shape of a kernel.
type Capability int

const (
	// Compute kernels dispatch on three axes and return nothing.
	Compute Capability = iota

	// Pixel kernels dispatch on two axes and return the color
	// stored into the output texture.
	Pixel
)

func (c Capability) String() string {
	if c == Pixel {
		return "pixel"
	}
	return "compute"
}

// Axes returns the number of active dispatch axes.
func (c Capability) Axes() int {
	if c == Pixel {
		return 2
	}
	return 3
}

// DefaultNumThreads returns the thread-group size used when a kernel
// has no numthreads directive.
func (c Capability) DefaultNumThreads() [3]int {
	if c == Pixel {
		return [3]int{8, 8, 1}
	}
	return [3]int{64, 1, 1}
}

// Kernel is a kernel candidate: a type with an entry method or a
// kernel marker directive.
type Kernel struct {
	Name   string
	Pkg    *Package
	Object *Object
	Spec   *ast.TypeSpec

	// Entry is the Execute method, nil when missing.
	Entry *Object

	Directives []Directive
	Capability Capability

	// Explicit is set when the capability comes from a marker directive.
	Explicit bool

	// Conflict is set when both markers are present.
	Conflict bool

	// NumThreads is the parsed thread-group size, valid when
	// HasNumThreads is set.
	NumThreads    [3]int
	HasNumThreads bool

	// Local is set for types declared in a function body.
	Local bool
}

// ID returns the qualified identity of the kernel type.
func (k *Kernel) ID() string { return k.Object.ID() }

// Axes returns the number of active dispatch axes.
func (k *Kernel) Axes() int { return k.Capability.Axes() }

// IsStruct reports whether the kernel type is a struct.
func (k *Kernel) IsStruct() bool {
	_, ok := k.Spec.Type.(*ast.StructType)
	return ok && k.Spec.TypeParams == nil
}

// ThreadGroup returns the thread-group size, or def when the kernel
// has no valid numthreads directive.
func (k *Kernel) ThreadGroup(def [3]int) [3]int {
	if k.HasNumThreads {
		return k.NumThreads
	}
	if def == [3]int{} {
		return k.Capability.DefaultNumThreads()
	}
	return def
}

func (k *Kernel) String() string {
	return fmt.Sprintf("%s (%s)", k.ID(), k.Capability)
}

// ParseNumThreads parses the arguments of a numthreads directive.
// Sizes must be positive, z at most 64 and the product at most 1024.
func ParseNumThreads(d Directive) ([3]int, error) {
	var n [3]int
	if len(d.Args) != 3 {
		return n, fmt.Errorf("numthreads needs 3 sizes, got %d", len(d.Args))
	}
	for i, a := range d.Args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return n, fmt.Errorf("numthreads size %q is not an integer", a)
		}
		if v <= 0 {
			return n, fmt.Errorf("numthreads size %d is not positive", v)
		}
		n[i] = v
	}
	if n[2] > 64 {
		return n, fmt.Errorf("numthreads z size %d exceeds 64", n[2])
	}
	if p := n[0] * n[1] * n[2]; p > 1024 {
		return n, fmt.Errorf("numthreads %d threads per group exceeds 1024", p)
	}
	return n, nil
}

// findKernels returns the kernel candidates of pkg in source order:
// types with a marker directive, and struct types with an Execute
// method taking no parameters.
func findKernels(pkg *Package) []*Kernel {
	var objs []*Object
	for _, o := range pkg.objects {
		if o.Kind == TypeObj {
			objs = append(objs, o)
		}
	}
	for _, lt := range pkg.localTypes {
		for _, o := range lt {
			objs = append(objs, o)
		}
	}
	fileIndex := map[*ast.File]int{}
	for i, f := range pkg.Files {
		fileIndex[f] = i
	}
	sort.SliceStable(objs, func(i, j int) bool {
		fi, fj := fileIndex[objs[i].File], fileIndex[objs[j].File]
		if fi != fj {
			return fi < fj
		}
		return objs[i].Pos() < objs[j].Pos()
	})

	var ks []*Kernel
	for _, o := range objs {
		if k := newKernel(o); k != nil {
			ks = append(ks, k)
		}
	}
	return ks
}

func newKernel(o *Object) *Kernel {
	ds := o.Directives()
	compute := len(FindDirectives(ds, KernelDirective)) > 0
	pixel := len(FindDirectives(ds, PixelDirective)) > 0
	ts := o.TypeSpec()
	entry := o.Methods[EntryName]
	if !compute && !pixel {
		if o.Local() || entry == nil {
			return nil
		}
		if _, ok := ts.Type.(*ast.StructType); !ok {
			return nil
		}
		if ft := entry.FuncDecl().Type; ft.Params.NumFields() != 0 {
			return nil
		}
	}
	k := &Kernel{
		Name:       o.Name,
		Pkg:        o.Pkg,
		Object:     o,
		Spec:       ts,
		Entry:      entry,
		Directives: ds,
		Explicit:   compute || pixel,
		Conflict:   compute && pixel,
		Local:      o.Local(),
	}
	switch {
	case k.Conflict:
		if entry != nil && entry.FuncDecl().Type.Results.NumFields() == 1 {
			k.Capability = Pixel
		}
	case pixel:
		k.Capability = Pixel
	case compute:
		k.Capability = Compute
	case entry.FuncDecl().Type.Results.NumFields() == 1:
		k.Capability = Pixel
	}
	if nt := FindDirectives(ds, NumThreadsDirective); len(nt) > 0 {
		if n, err := ParseNumThreads(nt[0]); err == nil {
			k.NumThreads, k.HasNumThreads = n, true
		}
	}
	return k
}
