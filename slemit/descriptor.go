// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slemit

import (
	"reflect"

	"goki.dev/slkernel/alignsl"
	"goki.dev/slkernel/sldiag"
	"golang.org/x/exp/slices"
)

// ThreadGroupSize is the number of threads of a group, per axis.
type ThreadGroupSize struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Array returns the size as an array.
func (t ThreadGroupSize) Array() [3]int { return [3]int{t.X, t.Y, t.Z} }

// ShaderDescriptor is the translation of one kernel type: the HLSL
// source plus everything a dispatch runtime needs to bind and run it.
// It is immutable once emitted.
type ShaderDescriptor struct {
	// Kernel is the identity of the kernel type.
	Kernel string `json:"kernel"`

	// Name is the Go name of the kernel type.
	Name string `json:"name"`

	Capability string `json:"capability"`
	EntryPoint string `json:"entryPoint"`

	// Profile is the shader profile, as in cs_6_0.
	Profile     string `json:"profile"`
	ShaderModel string `json:"shaderModel"`

	// Fingerprint identifies the closure the shader was emitted from.
	Fingerprint string `json:"fingerprint"`

	ThreadGroupSize ThreadGroupSize                   `json:"threadGroupSize"`
	Fields          []alignsl.Field                   `json:"fields"`
	Ranges          []alignsl.ResourceDescriptorRange `json:"ranges"`

	// ConstantBufferSize is in bytes, a multiple of 16.
	ConstantBufferSize int `json:"constantBufferSize"`

	// Bounds are the constant buffer offsets of the dispatch bounds,
	// -1 for inactive axes.
	Bounds [3]int `json:"bounds"`

	GroupSharedSize int `json:"groupSharedSize"`

	// Helpers are the helper blocks and constructors the shader defines.
	Helpers []string `json:"helpers"`

	HlslSource  string      `json:"hlsl"`
	Diagnostics sldiag.List `json:"diagnostics"`
}

// HasErrors reports whether the shader has hard diagnostics.
func (d *ShaderDescriptor) HasErrors() bool {
	return d.Diagnostics.HasErrors()
}

// ConstantFields returns the fields stored in the constant buffer.
func (d *ShaderDescriptor) ConstantFields() []alignsl.Field {
	var fs []alignsl.Field
	for _, f := range d.Fields {
		if f.Kind == alignsl.ConstantValue {
			fs = append(fs, f)
		}
	}
	return fs
}

// Equal reports whether d and o describe the same shader. Resolved
// diagnostic spans do not take part.
func (d *ShaderDescriptor) Equal(o *ShaderDescriptor) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.Kernel != o.Kernel || d.Name != o.Name || d.Capability != o.Capability ||
		d.EntryPoint != o.EntryPoint || d.Profile != o.Profile || d.ShaderModel != o.ShaderModel ||
		d.Fingerprint != o.Fingerprint || d.ThreadGroupSize != o.ThreadGroupSize ||
		d.ConstantBufferSize != o.ConstantBufferSize || d.Bounds != o.Bounds ||
		d.GroupSharedSize != o.GroupSharedSize || d.HlslSource != o.HlslSource {
		return false
	}
	if !slices.Equal(d.Helpers, o.Helpers) || !slices.Equal(d.Ranges, o.Ranges) {
		return false
	}
	if len(d.Fields) != len(o.Fields) {
		return false
	}
	for i := range d.Fields {
		a, b := d.Fields[i], o.Fields[i]
		a.Go, b.Go = nil, nil
		if !reflect.DeepEqual(a, b) {
			return false
		}
	}
	return d.Diagnostics.Equal(o.Diagnostics)
}
