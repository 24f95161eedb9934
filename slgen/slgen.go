// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package slgen writes the Go companion file of a translated kernel:
the HLSL source as a constant, the thread group size, and a
PackConstants method that lays the kernel's field values out in the
constant buffer the way the shader declares it.
*/
package slgen

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"

	"goki.dev/slkernel/alignsl"
	"goki.dev/slkernel/slemit"
)

// Filename returns the companion file name of a kernel type.
func Filename(kernel string) string {
	return strings.ToLower(kernel) + "_sl.go"
}

// offset is a constant buffer offset: a constant plus array index
// terms.
type offset struct {
	n   int
	dyn string
}

func (o offset) add(n int) offset { return offset{o.n + n, o.dyn} }

func (o offset) index(idx string, stride int) offset {
	t := fmt.Sprintf("%s*%d", idx, stride)
	if o.dyn != "" {
		t = o.dyn + "+" + t
	}
	return offset{o.n, t}
}

func (o offset) String() string {
	switch {
	case o.dyn == "":
		return fmt.Sprint(o.n)
	case o.n == 0:
		return o.dyn
	}
	return fmt.Sprintf("%s+%d", o.dyn, o.n)
}

type generator struct {
	b        bytes.Buffer
	usesMath bool
	depth    int
}

func (g *generator) printf(format string, args ...any) {
	fmt.Fprintf(&g.b, format, args...)
}

// put writes one scalar.
func (g *generator) put(scalar, expr string, off offset) {
	switch scalar {
	case "float":
		g.usesMath = true
		g.printf("binary.LittleEndian.PutUint32(b[%s:], math.Float32bits(%s))\n", off, expr)
	case "double":
		g.usesMath = true
		g.printf("binary.LittleEndian.PutUint64(b[%s:], math.Float64bits(%s))\n", off, expr)
	case "int64_t", "uint64_t":
		g.printf("binary.LittleEndian.PutUint64(b[%s:], uint64(%s))\n", off, expr)
	default:
		g.printf("binary.LittleEndian.PutUint32(b[%s:], uint32(%s))\n", off, expr)
	}
}

func scalarSize(scalar string) int {
	switch scalar {
	case "double", "int64_t", "uint64_t":
		return 8
	}
	return 4
}

var components = [...]string{"X", "Y", "Z", "W"}

// value writes expr of type d at off.
func (g *generator) value(d *alignsl.TypeDesc, expr string, off offset) {
	switch d.Kind {
	case "scalar":
		g.put(d.Scalar, expr, off)
	case "vector":
		sz := scalarSize(d.Scalar)
		for i := 0; i < d.Len && i < len(components); i++ {
			g.put(d.Scalar, expr+"."+components[i], off.add(i*sz))
		}
	case "matrix":
		for i := 0; i < d.Rows*d.Cols; i++ {
			g.put(d.Scalar, fmt.Sprintf("%s[%d]", expr, i), off.add(16*(i/d.Cols)+4*(i%d.Cols)))
		}
	case "struct":
		for _, m := range d.Members {
			g.value(m.Type, expr+"."+m.Name, off.add(m.Offset))
		}
	case "array":
		idx := fmt.Sprintf("i%d", g.depth)
		g.depth++
		g.printf("for %s := range %s {\n", idx, expr)
		g.value(d.Elem, expr+"["+idx+"]", off.index(idx, (d.Elem.Size+15)/16*16))
		g.printf("}\n")
		g.depth--
	}
}

// Generate returns the formatted companion file of d for package pkg.
func Generate(pkg string, d *slemit.ShaderDescriptor) ([]byte, error) {
	g := &generator{}
	name := d.Name
	g.printf("func (k %s) PackConstants(dst []byte, x, y, z uint32) []byte {\n", name)
	g.printf("n := len(dst)\n")
	g.printf("dst = append(dst, make([]byte, %sConstantBufferSize)...)\n", name)
	g.printf("b := dst[n:]\n")
	for _, f := range d.ConstantFields() {
		g.value(f.Type, "k."+f.Name, offset{n: f.Offset})
	}
	for i, v := range [...]string{"x", "y", "z"} {
		if d.Bounds[i] >= 0 {
			g.printf("binary.LittleEndian.PutUint32(b[%d:], %s)\n", d.Bounds[i], v)
		}
	}
	g.printf("return dst\n}\n")
	body := g.b.String()

	var b bytes.Buffer
	fmt.Fprintf(&b, "// Code generated by slkernel from %s. DO NOT EDIT.\n\n", d.Kernel)
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	if g.usesMath {
		b.WriteString("import (\n\"encoding/binary\"\n\"math\"\n)\n\n")
	} else {
		b.WriteString("import \"encoding/binary\"\n\n")
	}
	fmt.Fprintf(&b, "// %sHLSL is the %s shader of %s, profile %s, entry point %s.\n", name, d.Capability, name, d.Profile, d.EntryPoint)
	fmt.Fprintf(&b, "const %sHLSL = %s\n\n", name, quote(d.HlslSource))
	fmt.Fprintf(&b, "// Thread group size of %s.\n", name)
	tg := d.ThreadGroupSize
	fmt.Fprintf(&b, "const (\n%[1]sNumThreadsX = %[2]d\n%[1]sNumThreadsY = %[3]d\n%[1]sNumThreadsZ = %[4]d\n)\n\n", name, tg.X, tg.Y, tg.Z)
	fmt.Fprintf(&b, "// %sConstantBufferSize is the size of the constant buffer in bytes.\n", name)
	fmt.Fprintf(&b, "const %sConstantBufferSize = %d\n\n", name, d.ConstantBufferSize)
	fmt.Fprintf(&b, "// PackConstants appends the constant buffer of k to dst, with the\n// dispatch size x, y, z in threads.\n")
	b.WriteString(body)

	src, err := format.Source(b.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting companion of %s: %w", d.Kernel, err)
	}
	return src, nil
}

// quote returns a Go literal of s, raw when possible.
func quote(s string) string {
	if !strings.Contains(s, "`") && !strings.Contains(s, "\r") {
		return "`" + s + "`"
	}
	return fmt.Sprintf("%q", s)
}
