// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slwrite

import (
	"fmt"

	"github.com/gogpu/naga/hlsl"
)

// Namer hands out unique HLSL identifiers. Names are case sensitive;
// reserved words, including the ones DXC matches in any case, are
// escaped with a trailing underscore.
type Namer struct {
	used    map[string]bool
	counter int
}

// NewNamer returns a namer with the given names reserved.
func NewNamer(reserved ...string) *Namer {
	n := &Namer{used: map[string]bool{}}
	for _, r := range reserved {
		n.Reserve(r)
	}
	return n
}

// Reserve marks name as used.
func (n *Namer) Reserve(name string) {
	n.used[name] = true
}

// Used reports whether name is taken.
func (n *Namer) Used(name string) bool {
	return n.used[name]
}

// Name returns a unique identifier based on base.
func (n *Namer) Name(base string) string {
	if base == "" || base == "_" {
		base = "_unnamed"
	}
	esc := hlsl.Escape(base)
	if !n.Used(esc) {
		n.Reserve(esc)
		return esc
	}
	for {
		n.counter++
		c := fmt.Sprintf("%s_%d", esc, n.counter)
		if !n.Used(c) {
			n.Reserve(c)
			return c
		}
	}
}

// Child returns a namer for a nested scope: it starts with every name
// of n and does not affect n.
func (n *Namer) Child() *Namer {
	c := &Namer{used: make(map[string]bool, len(n.used)), counter: n.counter}
	for k := range n.used {
		c.used[k] = true
	}
	return c
}
