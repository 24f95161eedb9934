// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package slemit assembles the HLSL source of a kernel and its
ShaderDescriptor from the resolved layout and the lowered closure.

The source has a fixed shape: the thread group macros, struct types,
the constant buffer at register b0 with explicit packoffsets (the
dispatch bounds last), one declaration per resource in slot order,
statics, function prototypes, helper blocks, function definitions and
finally the entry point, whose body runs inside the dispatch-bounds
guard.
*/
package slemit

import (
	"fmt"
	"strings"

	"github.com/gogpu/naga/hlsl"
	"goki.dev/slkernel/alignsl"
	"goki.dev/slkernel/sldiag"
	"goki.dev/slkernel/slsema"
	"goki.dev/slkernel/slwrite"
	"golang.org/x/exp/slices"
)

// Options configures the emitter.
type Options struct {
	// NumThreads is the thread group size of kernels without a
	// numthreads directive; zero selects the capability default.
	NumThreads [3]int

	ShaderModel hlsl.ShaderModel
}

// DefaultShaderModel is the shader model of the emitted profile.
const DefaultShaderModel = hlsl.ShaderModel6_0

// Input is what the emitter assembles.
type Input struct {
	Kernel *slsema.Kernel
	Layout *alignsl.Layout
	Code   *slwrite.Result

	// Diagnostics of all stages, in stage order.
	Diagnostics sldiag.List

	Fingerprint string
}

// Profile returns the compute shader profile for a shader model.
func Profile(sm hlsl.ShaderModel) string {
	return "cs_" + sm.ProfileSuffix()
}

// Emit assembles the shader. It always returns a descriptor: stand-ins
// for what could not be lowered are reported in the diagnostics.
func Emit(in Input, opts Options) *ShaderDescriptor {
	k := in.Kernel
	tg := k.ThreadGroup(opts.NumThreads)
	d := &ShaderDescriptor{
		Kernel:             k.ID(),
		Name:               k.Name,
		Capability:         k.Capability.String(),
		EntryPoint:         slwrite.EntryPoint,
		Profile:            Profile(opts.ShaderModel),
		ShaderModel:        opts.ShaderModel.String(),
		Fingerprint:        in.Fingerprint,
		ThreadGroupSize:    ThreadGroupSize{X: tg[0], Y: tg[1], Z: tg[2]},
		Fields:             in.Layout.Fields,
		Ranges:             in.Layout.Ranges,
		ConstantBufferSize: in.Layout.ConstantBufferSize,
		Bounds:             in.Layout.Bounds,
		GroupSharedSize:    in.Layout.GroupSharedSize,
		Helpers:            in.Code.HelperNames,
		Diagnostics:        in.Diagnostics.Clone(),
	}
	e := &emitter{in: in, d: d}
	e.source()
	d.HlslSource = e.b.String()
	return d
}

type emitter struct {
	in     Input
	d      *ShaderDescriptor
	b      strings.Builder
	indent int
}

func (e *emitter) writeLine(format string, args ...any) {
	e.b.WriteString(strings.Repeat("\t", e.indent))
	fmt.Fprintf(&e.b, format, args...)
	e.b.WriteByte('\n')
}

// writeBlock writes text that already ends in a newline, followed by
// a blank line.
func (e *emitter) writeBlock(text string) {
	e.b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		e.b.WriteByte('\n')
	}
	e.b.WriteByte('\n')
}

func (e *emitter) source() {
	k := e.in.Kernel
	e.writeLine("// Code generated by slkernel from %s. DO NOT EDIT.", k.ID())
	e.writeLine("// %s kernel, profile %s", k.Capability, e.d.Profile)
	e.writeLine("")
	tg := e.d.ThreadGroupSize.Array()
	for i, m := range slwrite.NumThreadsMacros {
		e.writeLine("#define %s %d", m, tg[i])
	}
	e.writeLine("")
	for _, s := range e.in.Code.StructDecls {
		e.writeBlock(s)
	}
	e.constantBuffer()
	e.resources()
	if len(e.in.Code.Statics) > 0 {
		for _, s := range e.in.Code.Statics {
			e.writeLine("%s", s)
		}
		e.writeLine("")
	}
	if len(e.in.Code.Prototypes) > 0 {
		for _, p := range e.in.Code.Prototypes {
			e.writeLine("%s", p)
		}
		e.writeLine("")
	}
	for _, h := range e.in.Code.Helpers {
		e.writeBlock(h)
	}
	for _, f := range e.in.Code.Funcs {
		e.writeBlock(f)
	}
	e.entry()
}

// packOffset returns the packoffset of a constant buffer byte offset.
func packOffset(off int, aggregate bool) string {
	reg := fmt.Sprintf("c%d", off/16)
	if aggregate && off%16 == 0 {
		return reg
	}
	return reg + "." + string("xyzw"[(off%16)/4])
}

func (e *emitter) constantBuffer() {
	l := e.in.Layout
	e.writeLine("cbuffer %s : register(b0) {", slwrite.ConstantBuffer)
	e.indent++
	for _, f := range l.ConstantFields() {
		t := f.Go
		mod := ""
		if t.Kind == slsema.Matrix {
			mod = "row_major "
		}
		agg := t.Kind == slsema.Matrix || t.Kind == slsema.Struct || t.Kind == slsema.Array
		e.writeLine("%s%s : packoffset(%s);", mod, e.in.Code.Declare(t, e.in.Code.Field(f.Name)), packOffset(f.Offset, agg))
	}
	for i, b := range alignsl.BoundNames {
		if l.Bounds[i] >= 0 {
			e.writeLine("uint %s : packoffset(%s);", b, packOffset(l.Bounds[i], false))
		}
	}
	e.indent--
	e.writeLine("};")
	e.writeLine("")
}

func (e *emitter) resources() {
	var rs []alignsl.Field
	for _, f := range e.in.Layout.Fields {
		if f.Kind == alignsl.ResourceField {
			rs = append(rs, f)
		}
	}
	if len(rs) == 0 {
		return
	}
	slices.SortStableFunc(rs, func(a, b alignsl.Field) int {
		if a.Category != b.Category {
			return int(a.Category) - int(b.Category)
		}
		return a.Slot - b.Slot
	})
	for _, f := range rs {
		e.writeLine("%s %s : register(%s%d);", e.in.Code.Type(f.Go), e.in.Code.Field(f.Name), f.Category.Register(), f.Slot)
	}
	e.writeLine("")
}

// guard returns the dispatch-bounds test of the active axes.
func (e *emitter) guard() string {
	var cs []string
	for i, b := range alignsl.BoundNames {
		if e.in.Layout.Bounds[i] >= 0 {
			cs = append(cs, fmt.Sprintf("%s.%c < %s", slwrite.ThreadIDVar, "xyz"[i], b))
		}
	}
	return strings.Join(cs, " && ")
}

func (e *emitter) entry() {
	e.writeLine("[numthreads(%s)]", strings.Join(slwrite.NumThreadsMacros[:], ", "))
	e.writeLine("void %s(uint3 %s : SV_DispatchThreadID, uint3 %s : SV_GroupID, uint3 %s : SV_GroupThreadID) {",
		slwrite.EntryPoint, slwrite.ThreadIDVar, slwrite.GroupIDVar, slwrite.GroupThreadIDVar)
	e.indent++
	if g := e.guard(); g != "" {
		e.writeLine("if (%s) {", g)
		e.b.WriteString(e.in.Code.Body)
		e.writeLine("}")
	} else {
		e.b.WriteString(e.in.Code.Body)
	}
	e.indent--
	e.writeLine("}")
}
