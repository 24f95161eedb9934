// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sl

// Integer is the element constraint of the interlocked operations.
type Integer interface {
	~int32 | ~uint32
}

// The atomics lower to the Interlocked functions and return the
// original value, which becomes the optional out argument.
// Dispatch runs invocations one at a time, so plain updates suffice here.

// AtomicAdd lowers to InterlockedAdd(*dst, v[, orig])
func AtomicAdd[T Integer](dst *T, v T) T {
	o := *dst
	*dst += v
	return o
}

// AtomicMin lowers to InterlockedMin(*dst, v[, orig])
func AtomicMin[T Integer](dst *T, v T) T {
	o := *dst
	if v < o {
		*dst = v
	}
	return o
}

// AtomicMax lowers to InterlockedMax(*dst, v[, orig])
func AtomicMax[T Integer](dst *T, v T) T {
	o := *dst
	if v > o {
		*dst = v
	}
	return o
}

// AtomicAnd lowers to InterlockedAnd(*dst, v[, orig])
func AtomicAnd[T Integer](dst *T, v T) T {
	o := *dst
	*dst &= v
	return o
}

// AtomicOr lowers to InterlockedOr(*dst, v[, orig])
func AtomicOr[T Integer](dst *T, v T) T {
	o := *dst
	*dst |= v
	return o
}

// AtomicXor lowers to InterlockedXor(*dst, v[, orig])
func AtomicXor[T Integer](dst *T, v T) T {
	o := *dst
	*dst ^= v
	return o
}

// AtomicExchange lowers to InterlockedExchange(*dst, v, orig)
func AtomicExchange[T Integer](dst *T, v T) T {
	o := *dst
	*dst = v
	return o
}
