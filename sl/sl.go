// Copyright (c) 2024, The GoKi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package sl is the kernel authoring API: a kernel is an ordinary Go struct
type with an Execute method, whose fields are constants and bound
resources, and whose code calls the intrinsics defined here.

The slkernel translator reads kernel source and lowers it to HLSL. The
same code also runs on the CPU through Dispatch, which is useful for tests
and for checking GPU results.

	//sl:kernel
	//sl:numthreads 64 1 1
	type Scale struct {
		Factor float32
		Data   sl.ReadWriteBuffer[float32]
	}

	func (k Scale) Execute() {
		i := sl.ThreadId().X
		k.Data[i] *= k.Factor
	}
*/
package sl

import "goki.dev/slkernel/sltype"

// Kernel is the compute kernel capability. Compute kernels
// dispatch over three axes.
type Kernel interface {
	Execute()
}

// PixelKernel is the pixel kernel capability: Execute returns the
// color stored at the current pixel of the output texture.
// Pixel kernels dispatch over two axes.
type PixelKernel interface {
	Execute() sltype.Float4
}

// Invocation holds the dispatch coordinates of the running invocation.
type Invocation struct {
	ThreadId      sltype.Int3
	GroupId       sltype.Int3
	GroupThreadId sltype.Int3
	GroupSize     sltype.Int3
	DispatchSize  sltype.Int3
}

// current is the invocation set by Dispatch.
var current Invocation

// SetInvocation sets the coordinates returned by the dispatch accessors.
func SetInvocation(inv Invocation) {
	current = inv
}

// ThreadId returns the global thread index (SV_DispatchThreadID).
func ThreadId() sltype.Int3 { return current.ThreadId }

// GroupId returns the thread group index (SV_GroupID).
func GroupId() sltype.Int3 { return current.GroupId }

// GroupThreadId returns the thread index within its group (SV_GroupThreadID).
func GroupThreadId() sltype.Int3 { return current.GroupThreadId }

// GroupSize returns the thread group size of the kernel.
func GroupSize() sltype.Int3 { return current.GroupSize }

// DispatchSize returns the number of threads requested on each axis.
func DispatchSize() sltype.Int3 { return current.DispatchSize }

// Dispatch runs k once for every thread in n, in groups of size
// group, sequentially in group order. Threads outside n are skipped,
// as the dispatch bounds guard does on the GPU.
// Barriers are no-ops, so kernels that exchange data through
// group-shared memory do not run correctly here.
func Dispatch(k Kernel, group, n sltype.Int3) {
	forEach(group, n, func() { k.Execute() })
}

// DispatchPixel runs k once for every pixel of out and stores the
// returned colors.
func DispatchPixel(k PixelKernel, group sltype.Int2, out ReadWriteTexture2D[sltype.Float4]) {
	n := sltype.Int3{X: out.Width, Y: out.Height, Z: 1}
	forEach(sltype.Int3{X: group.X, Y: group.Y, Z: 1}, n, func() {
		out.Store(current.ThreadId.XY(), k.Execute())
	})
}

func forEach(group, n sltype.Int3, fun func()) {
	groups := sltype.Int3{X: ceilDiv(n.X, group.X), Y: ceilDiv(n.Y, group.Y), Z: ceilDiv(n.Z, group.Z)}
	var gid, gtid sltype.Int3
	for gid.Z = 0; gid.Z < groups.Z; gid.Z++ {
		for gid.Y = 0; gid.Y < groups.Y; gid.Y++ {
			for gid.X = 0; gid.X < groups.X; gid.X++ {
				for gtid.Z = 0; gtid.Z < group.Z; gtid.Z++ {
					for gtid.Y = 0; gtid.Y < group.Y; gtid.Y++ {
						for gtid.X = 0; gtid.X < group.X; gtid.X++ {
							id := gid.Mul(group).Add(gtid)
							if id.X >= n.X || id.Y >= n.Y || id.Z >= n.Z {
								continue
							}
							SetInvocation(Invocation{ThreadId: id, GroupId: gid, GroupThreadId: gtid, GroupSize: group, DispatchSize: n})
							fun()
						}
					}
				}
			}
		}
	}
}

func ceilDiv(a, b int32) int32 {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
