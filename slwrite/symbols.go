// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slwrite

// SymbolTable maps qualified names to their emitted text, so that a
// declaration referenced by many members is emitted once, in the
// order of first use.
type SymbolTable struct {
	text  map[string]string
	names map[string]string
	order []string
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{text: map[string]string{}, names: map[string]string{}}
}

// Has reports whether id has been added.
func (s *SymbolTable) Has(id string) bool {
	_, ok := s.text[id]
	return ok
}

// Add records the text and HLSL name of id, reporting whether it was
// new. The first text of an id wins.
func (s *SymbolTable) Add(id, name, text string) bool {
	if s.Has(id) {
		return false
	}
	s.text[id] = text
	s.names[id] = name
	s.order = append(s.order, id)
	return true
}

// Name returns the HLSL name of id.
func (s *SymbolTable) Name(id string) (string, bool) {
	n, ok := s.names[id]
	return n, ok
}

// Text returns the emitted text of id.
func (s *SymbolTable) Text(id string) string {
	return s.text[id]
}

// IDs returns the ids in order of first use.
func (s *SymbolTable) IDs() []string {
	return s.order
}

// Texts returns the emitted texts in order of first use.
func (s *SymbolTable) Texts() []string {
	ts := make([]string, len(s.order))
	for i, id := range s.order {
		ts[i] = s.text[id]
	}
	return ts
}

// Len returns the number of symbols.
func (s *SymbolTable) Len() int { return len(s.order) }
