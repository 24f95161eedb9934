// Copyright (c) 2022, The Goki Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package alignsl resolves the layout of a kernel: constant buffer
offsets of its value fields, register slots of its resources and the
size of its group-shared memory. It also checks that structs used as
buffer elements are made of 32-bit members and have a size that is
an even multiple of 16 bytes (4 float32's), so the Go and HLSL sides
agree on their layout.
*/
package alignsl

import (
	"fmt"

	"goki.dev/slkernel/slclosure"
	"goki.dev/slkernel/sldiag"
	"goki.dev/slkernel/slsema"
)

// Hardware limits.
const (
	MaxReadOnlySlots   = 128
	MaxReadWriteSlots  = 64
	MaxSamplerSlots    = 16
	MaxGroupSharedSize = 32 << 10

	// DefaultMaxConstantWords is the default constant buffer limit
	// in 32-bit words.
	DefaultMaxConstantWords = 64
)

// OutputName is the implicit output texture of pixel kernels.
const OutputName = "__output"

// BoundNames are the synthetic dispatch bound fields, per axis.
var BoundNames = [3]string{"__bound_x", "__bound_y", "__bound_z"}

// FieldKind is how a kernel field is bound.
type FieldKind int

const (
	ConstantValue FieldKind = iota
	ResourceField
	GroupShared
)

func (k FieldKind) String() string {
	switch k {
	case ResourceField:
		return "resource"
	case GroupShared:
		return "groupshared"
	}
	return "constant"
}

// MarshalText encodes the kind by name.
func (k FieldKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Category is a resource register category.
type Category int

const (
	ReadOnly Category = iota
	ReadWrite
	SamplerCategory
)

// Register returns the HLSL register letter.
func (c Category) Register() string {
	return [...]string{"t", "u", "s"}[c]
}

func (c Category) String() string {
	return [...]string{"readonly", "readwrite", "sampler"}[c]
}

// MarshalText encodes the category by name.
func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Member is a struct member with its offset in the constant buffer.
type Member struct {
	Name   string    `json:"name"`
	Offset int       `json:"offset"`
	Type   *TypeDesc `json:"type"`
}

// TypeDesc describes the type of a field.
type TypeDesc struct {
	Kind    string    `json:"kind"`
	Scalar  string    `json:"scalar,omitempty"`
	Name    string    `json:"name,omitempty"`
	Len     int       `json:"len,omitempty"`
	Rows    int       `json:"rows,omitempty"`
	Cols    int       `json:"cols,omitempty"`
	Size    int       `json:"size"`
	Align   int       `json:"align"`
	Elem    *TypeDesc `json:"elem,omitempty"`
	Members []Member  `json:"members,omitempty"`

	id   string
	pads []Pad
}

// Field is the resolved binding of a kernel field.
type Field struct {
	Name string    `json:"name"`
	Kind FieldKind `json:"kind"`
	Type *TypeDesc `json:"type"`

	// Offset and Align locate constant values.
	Offset int `json:"offset"`
	Align  int `json:"align"`
	Size   int `json:"size"`

	// Slot and Category locate resources.
	Slot     int      `json:"slot"`
	Category Category `json:"category"`

	// HLSL is the declared type, for resources and group-shared arrays.
	HLSL string `json:"hlsl,omitempty"`

	// Go is the semantic type, not serialized.
	Go *slsema.Type `json:"-"`
}

// ResourceDescriptorRange is one bound register.
type ResourceDescriptorRange struct {
	Slot     int      `json:"slot"`
	Category Category `json:"category"`
	Field    string   `json:"field"`
	HLSL     string   `json:"hlsl"`
}

// Pad is a gap in a struct the HLSL packing would otherwise fill,
// before the member with index Member.
type Pad struct {
	Offset int
	Words  int
	Member int
}

// Layout is the resolved layout of one kernel.
type Layout struct {
	Fields []Field
	Ranges []ResourceDescriptorRange

	// ConstantBufferSize is the size in bytes, a multiple of 16.
	ConstantBufferSize int

	// Bounds are the offsets of the dispatch bound fields, -1 for
	// inactive axes.
	Bounds [3]int

	// Pads lists the padding of struct types in the constant buffer,
	// by struct identity.
	Pads map[string][]Pad

	// GroupSharedSize is the size of group-shared memory in bytes.
	GroupSharedSize int

	Diagnostics sldiag.List
}

// ConstantFields returns the fields in the constant buffer.
func (l *Layout) ConstantFields() []Field {
	return l.filter(ConstantValue)
}

// Resources returns the resource fields in declaration order.
func (l *Layout) Resources() []Field {
	return l.filter(ResourceField)
}

// GroupSharedFields returns the group-shared arrays.
func (l *Layout) GroupSharedFields() []Field {
	return l.filter(GroupShared)
}

func (l *Layout) filter(k FieldKind) []Field {
	var fs []Field
	for _, f := range l.Fields {
		if f.Kind == k {
			fs = append(fs, f)
		}
	}
	return fs
}

// Options configures layout resolution.
type Options struct {
	// MaxConstantWords is the constant buffer limit in 32-bit words.
	MaxConstantWords int
}

// Resolve computes the layout of the kernel of g.
func Resolve(g *slclosure.Graph, opts Options) *Layout {
	if opts.MaxConstantWords <= 0 {
		opts.MaxConstantWords = DefaultMaxConstantWords
	}
	r := &resolver{g: g, c: g.Checker, l: &Layout{Pads: map[string][]Pad{}, Bounds: [3]int{-1, -1, -1}}, descs: map[string]*TypeDesc{}}
	r.resolve(opts)
	return r.l
}

type resolver struct {
	g     *slclosure.Graph
	c     *slsema.Checker
	l     *Layout
	descs map[string]*TypeDesc
}

func (r *resolver) diag(code sldiag.Code, n *slclosure.Node, format string, args ...any) {
	r.l.Diagnostics.Add(code, r.g.Anchor(n, n.Decl), format, args...)
}

func (r *resolver) resolve(opts Options) {
	k := r.g.Kernel
	root := r.g.Nodes[0]
	slots := [3]int{}
	offset := 0
	var elems []*slclosure.Node
	for _, n := range r.g.Members(slclosure.FieldNode) {
		t := n.Field.Type
		switch t.Kind {
		case slsema.Resource, slsema.Sampler:
			cat := SamplerCategory
			if t.Kind == slsema.Resource {
				cat = ReadOnly
				if t.Resource.ReadWrite() {
					cat = ReadWrite
				}
				if t.Elem.Kind == slsema.Struct {
					elems = append(elems, n)
				}
			}
			f := Field{Name: n.Name, Kind: ResourceField, Type: r.desc(t), Slot: slots[cat], Category: cat, HLSL: t.HLSL(), Go: t}
			slots[cat]++
			r.l.Fields = append(r.l.Fields, f)
			r.l.Ranges = append(r.l.Ranges, ResourceDescriptorRange{Slot: f.Slot, Category: cat, Field: f.Name, HLSL: f.HLSL})
		default:
			if !r.packable(t) {
				continue
			}
			d := r.desc(t)
			off := place(offset, d.Size, d.Align)
			r.l.Fields = append(r.l.Fields, Field{Name: n.Name, Kind: ConstantValue, Type: d, Offset: off, Align: d.Align, Size: d.Size, Go: t})
			r.usePads(d)
			offset = off + d.Size
		}
	}
	if k.Capability == slsema.Pixel {
		t := slsema.ResourceOf(slsema.ReadWriteTexture2D, slsema.TypFloat4)
		f := Field{Name: OutputName, Kind: ResourceField, Type: r.desc(t), Slot: slots[ReadWrite], Category: ReadWrite, HLSL: t.HLSL(), Go: t}
		slots[ReadWrite]++
		r.l.Fields = append(r.l.Fields, f)
		r.l.Ranges = append(r.l.Ranges, ResourceDescriptorRange{Slot: f.Slot, Category: ReadWrite, Field: f.Name, HLSL: f.HLSL})
	}
	for ax := 0; ax < k.Axes(); ax++ {
		off := place(offset, 4, 4)
		r.l.Bounds[ax] = off
		offset = off + 4
	}
	r.l.ConstantBufferSize = alignUp(offset, 16)
	if limit := opts.MaxConstantWords * 4; r.l.ConstantBufferSize > limit {
		r.diag(sldiag.ConstantBufferExceeded, root, "constant buffer of %s is %d bytes, exceeds the limit of %d bytes (%d words)",
			k.Name, r.l.ConstantBufferSize, limit, opts.MaxConstantWords)
	}
	limits := [3]int{MaxReadOnlySlots, MaxReadWriteSlots, MaxSamplerSlots}
	for cat, n := range slots {
		if n > limits[cat] {
			r.diag(sldiag.TooManyRegisters, root, "%s uses %d %s registers (%s), the limit is %d",
				k.Name, n, Category(cat), Category(cat).Register(), limits[cat])
		}
	}
	r.groupShared()
	for _, n := range elems {
		r.checkElement(n)
	}
}

// packable reports whether t can be placed in the constant buffer.
func (r *resolver) packable(t *slsema.Type) bool {
	switch t.Kind {
	case slsema.Scalar:
		return !t.IsBool() || t.Bool32
	case slsema.Vector:
		return t.Scalar != slsema.Bool
	case slsema.Matrix:
		return true
	case slsema.Array:
		return r.packable(t.Elem)
	case slsema.Struct:
		for _, f := range r.c.Fields(t) {
			if !r.packable(f.Type) {
				return false
			}
		}
		return true
	}
	return false
}

func alignUp(n, a int) int {
	if a <= 1 {
		return n
	}
	return (n + a - 1) / a * a
}

// place returns the offset of a member of size and alignment placed
// after offset: members up to 16 bytes never straddle a 16-byte row.
func place(offset, size, align int) int {
	off := alignUp(offset, align)
	if size <= 16 && off/16 != (off+size-1)/16 {
		off = alignUp(off, 16)
	}
	return off
}

// desc returns the constant buffer description of t: scalars are 4
// bytes (8 for 64-bit), 2-vectors align to 8 and larger vectors to 16,
// matrices are rows of 16-aligned vectors and structs and arrays start
// and end on 16 bytes.
func (r *resolver) desc(t *slsema.Type) *TypeDesc {
	key := t.String()
	if d, ok := r.descs[key]; ok {
		return d
	}
	d := &TypeDesc{}
	switch t.Kind {
	case slsema.Scalar:
		d.Kind, d.Scalar = "scalar", t.Scalar.String()
		d.Size = t.Scalar.Size()
		d.Align = d.Size
	case slsema.Vector:
		d.Kind, d.Scalar, d.Len = "vector", t.Scalar.String(), t.Len
		d.Size = t.Scalar.Size() * t.Len
		d.Align = 16
		if d.Size <= 8 {
			d.Align = 8
		}
	case slsema.Matrix:
		d.Kind, d.Scalar, d.Rows, d.Cols = "matrix", t.Scalar.String(), t.Rows, t.Cols
		d.Size = 16*(t.Rows-1) + 4*t.Cols
		d.Align = 16
	case slsema.Array:
		d.Kind, d.Len = "array", t.Len
		d.Elem = r.desc(t.Elem)
		d.Align = 16
		if t.Len > 0 {
			d.Size = alignUp(d.Elem.Size, 16)*(t.Len-1) + d.Elem.Size
		}
	case slsema.Struct:
		d.Kind, d.Name, d.Align = "struct", t.Obj.Name, 16
		r.descs[key] = d
		off := 0
		var pads []Pad
		for i, f := range r.c.Fields(t) {
			md := r.desc(f.Type)
			mo := place(off, md.Size, md.Align)
			if gap := mo - hlslPlace(off, md); gap > 0 {
				pads = append(pads, Pad{Offset: mo - gap, Words: gap / 4, Member: i})
			}
			d.Members = append(d.Members, Member{Name: f.Name, Offset: mo, Type: md})
			off = mo + md.Size
		}
		d.Size = alignUp(off, 16)
		d.id, d.pads = t.Obj.ID(), pads
	case slsema.Resource:
		d.Kind, d.Name = "resource", t.Resource.HLSL()
		d.Elem = r.desc(t.Elem)
	case slsema.Sampler:
		d.Kind = "sampler"
	default:
		d.Kind = "invalid"
	}
	r.descs[key] = d
	return d
}

// usePads records the padding of the struct types in d.
func (r *resolver) usePads(d *TypeDesc) {
	switch d.Kind {
	case "array":
		r.usePads(d.Elem)
	case "struct":
		if _, done := r.l.Pads[d.id]; done {
			return
		}
		r.l.Pads[d.id] = d.pads
		for _, m := range d.Members {
			r.usePads(m.Type)
		}
	}
}

// hlslPlace is where the HLSL compiler puts a struct member without
// explicit padding: 4-byte alignment (8 for 64-bit scalars), 16 for
// aggregates, never straddling a 16-byte row.
func hlslPlace(offset int, d *TypeDesc) int {
	align := 4
	switch d.Kind {
	case "matrix", "array", "struct":
		align = 16
	case "scalar", "vector":
		if d.Scalar == "double" || d.Scalar == "int64_t" || d.Scalar == "uint64_t" {
			align = 8
		}
	}
	return place(offset, d.Size, align)
}

// naturalSize is the tightly packed size of t, as in structured
// buffers and group-shared memory.
func (r *resolver) naturalSize(t *slsema.Type) int {
	switch t.Kind {
	case slsema.Scalar:
		return t.Scalar.Size()
	case slsema.Vector:
		return t.Scalar.Size() * t.Len
	case slsema.Matrix:
		return 4 * t.Rows * t.Cols
	case slsema.Array:
		return t.Len * r.naturalSize(t.Elem)
	case slsema.Struct:
		n := 0
		for _, f := range r.c.Fields(t) {
			n += r.naturalSize(f.Type)
		}
		return n
	}
	return 0
}

func (r *resolver) groupShared() {
	k := r.g.Kernel
	for _, n := range r.g.Members(slclosure.VarNode) {
		ds := slsema.FindDirectives(n.Obj.Directives(), slsema.GroupSharedDirective)
		if len(ds) == 0 || len(ds[0].Args) != 1 || n.Obj.Pkg.Lookup(ds[0].Args[0]) != k.Object {
			continue
		}
		t := r.c.VarType(n.Obj)
		if t.Kind != slsema.Array {
			continue
		}
		size := r.naturalSize(t)
		r.l.Fields = append(r.l.Fields, Field{Name: n.Name, Kind: GroupShared, Type: r.desc(t), Size: size, HLSL: t.Elem.HLSL(), Go: t})
		r.l.GroupSharedSize += size
	}
	if r.l.GroupSharedSize > MaxGroupSharedSize {
		r.diag(sldiag.GroupSharedExceeded, r.g.Nodes[0], "%s uses %d bytes of group-shared memory, the limit is %d",
			k.Name, r.l.GroupSharedSize, MaxGroupSharedSize)
	}
}

// checkElement checks the element struct of a buffer field.
func (r *resolver) checkElement(n *slclosure.Node) {
	t := n.Field.Type.Elem
	if msgs := CheckStruct(r.c, t); len(msgs) > 0 {
		for _, m := range msgs {
			r.diag(sldiag.BufferAlignment, n, "%s element %s: %s", n.Name, t.Obj.Name, m)
		}
	}
	if pads := r.l.Pads[t.Obj.ID()]; len(pads) > 0 {
		r.diag(sldiag.PaddedBufferElement, n, "%s element %s is padded for the constant buffer: its buffer layout gains the padding", n.Name, t.Obj.Name)
	}
}

// CheckStruct checks that a buffer element struct is made of 32-bit
// members and has a size that is an even multiple of 16.
func CheckStruct(c *slsema.Checker, t *slsema.Type) []string {
	var msgs []string
	fs := c.Fields(t)
	if len(fs) == 0 {
		return nil
	}
	size := 0
	for _, f := range fs {
		ft := f.Type
		switch ft.Kind {
		case slsema.Scalar:
			if ft.Scalar != slsema.Int && ft.Scalar != slsema.Uint && ft.Scalar != slsema.Float {
				msgs = append(msgs, fmt.Sprintf("%s:  basic type != [U]Int32 or Float32: %s", f.Name, ft))
			}
		case slsema.Vector, slsema.Matrix:
			if ft.Scalar != slsema.Int && ft.Scalar != slsema.Uint && ft.Scalar != slsema.Float {
				msgs = append(msgs, fmt.Sprintf("%s:  component type != [U]Int32 or Float32: %s", f.Name, ft))
			}
		case slsema.Struct:
			msgs = append(msgs, CheckStruct(c, ft)...)
		default:
			msgs = append(msgs, fmt.Sprintf("%s:  unsupported type: %s", f.Name, ft))
		}
		size += (&resolver{c: c}).naturalSize(ft)
	}
	if size%16 != 0 {
		msgs = append(msgs, fmt.Sprintf("total size: %d not even multiple of 16", size))
	}
	return msgs
}
