// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package slcache is the incremental translation cache: a content
addressed store of stage results keyed by fingerprints of their inputs.

Each pipeline stage looks up its result under (stage, fingerprint).
The result is reported as Unchanged when the kernel's previous run of
the stage had the same fingerprint, Cached when another run produced
it, and Modified when it had to be computed. Entries are never evicted.

The store is split into 16 shards. Concurrent lookups of one key run
the computation once: later callers wait for the first one to finish.
*/
package slcache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// Stage is a pipeline stage.
type Stage int

const (
	Collect Stage = iota
	Validate
	Layout
	Rewrite
	Emit

	NumStages
)

var stageNames = [...]string{"collect", "validate", "layout", "rewrite", "emit"}

func (s Stage) String() string {
	if s < 0 || s >= NumStages {
		return "stage?"
	}
	return stageNames[s]
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Reason tells how a stage result was obtained.
type Reason int

const (
	// Modified results were computed.
	Modified Reason = iota

	// Cached results were stored by an earlier run with other history.
	Cached

	// Unchanged results have the fingerprint of the previous run.
	Unchanged
)

func (r Reason) String() string {
	return [...]string{"modified", "cached", "unchanged"}[r]
}

// MarshalText encodes the reason by name.
func (r Reason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// NumShards is the number of store shards, a power of 2.
const NumShards = 16

// Key identifies a stage result.
type Key struct {
	Stage       Stage
	Fingerprint string
}

type entry struct {
	done  chan struct{}
	value any
	ok    bool // set before done is closed when fn returned
}

type shard struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

type historyKey struct {
	kernel string
	stage  Stage
}

// Cache is the incremental cache. The zero value is not usable: use
// New. A nil *Cache computes every result and reports it Modified.
type Cache struct {
	shards [NumShards]*shard

	mu      sync.Mutex
	history map[historyKey]string

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New returns an empty cache.
func New() *Cache {
	c := &Cache{history: map[historyKey]string{}}
	for i := range c.shards {
		c.shards[i] = &shard{entries: map[Key]*entry{}}
	}
	return c
}

func (c *Cache) shard(k Key) *shard {
	h := fnv.New64a()
	_, _ = h.Write([]byte(k.Fingerprint))
	return c.shards[(h.Sum64()+uint64(k.Stage))&(NumShards-1)]
}

// lookup returns the value under k, computing it with fn when absent.
// ok reports whether the value was already stored. When fn panics the
// entry is removed, and callers waiting on it compute it again.
func (c *Cache) lookup(k Key, fn func() any) (v any, ok bool) {
	s := c.shard(k)
	s.mu.Lock()
	for {
		e, found := s.entries[k]
		if !found {
			break
		}
		s.mu.Unlock()
		<-e.done
		if e.ok {
			c.hits.Add(1)
			return e.value, true
		}
		s.mu.Lock()
	}
	e := &entry{done: make(chan struct{})}
	s.entries[k] = e
	s.mu.Unlock()
	c.misses.Add(1)
	defer func() {
		if !e.ok {
			s.mu.Lock()
			if s.entries[k] == e {
				delete(s.entries, k)
			}
			s.mu.Unlock()
		}
		close(e.done)
	}()
	e.value = fn()
	e.ok = true
	return e.value, false
}

// record updates the history of (kernel, stage) and returns the reason
// of a result found or computed under fp.
func (c *Cache) record(kernel string, stage Stage, fp string, stored bool) Reason {
	hk := historyKey{kernel, stage}
	c.mu.Lock()
	prev, seen := c.history[hk]
	c.history[hk] = fp
	c.mu.Unlock()
	switch {
	case !stored:
		return Modified
	case seen && prev == fp:
		return Unchanged
	}
	return Cached
}

// Do returns the result of stage for kernel under fingerprint fp,
// computing it with fn when the store does not have it.
func (c *Cache) Do(kernel string, stage Stage, fp string, fn func() any) (any, Reason) {
	if c == nil {
		return fn(), Modified
	}
	v, stored := c.lookup(Key{Stage: stage, Fingerprint: fp}, fn)
	return v, c.record(kernel, stage, fp, stored)
}

// Get is the typed form of Do.
func Get[V any](c *Cache, kernel string, stage Stage, fp string, fn func() V) (V, Reason) {
	a, r := c.Do(kernel, stage, fp, func() any { return fn() })
	v, _ := a.(V)
	return v, r
}

// Previous returns the fingerprint of the last run of stage for kernel.
func (c *Cache) Previous(kernel string, stage Stage) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fp, ok := c.history[historyKey{kernel, stage}]
	return fp, ok
}

// Len returns the number of stored results.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Stats holds lookup counters.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// Stats returns the lookup counters.
func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// StageReport is the outcome of one stage of a translation.
type StageReport struct {
	Stage       Stage  `json:"stage"`
	Fingerprint string `json:"fingerprint"`
	Reason      Reason `json:"reason"`
}
