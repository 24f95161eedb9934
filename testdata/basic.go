package basic

import "goki.dev/slkernel/sl"

// Scale multiplies In by Factor.
//
//sl:numthreads 64 1 1
type Scale struct {
	Factor float32
	In     sl.ReadOnlyBuffer[float32]
	Out    sl.ReadWriteBuffer[float32]
}

func (k Scale) Execute() {
	i := sl.ThreadId().X
	k.Out[i] = k.In[i] * k.Factor
}

// Offset adds Bias to In.
//
//sl:numthreads 128 1 1
type Offset struct {
	Bias float32
	In   sl.ReadOnlyBuffer[float32]
	Out  sl.ReadWriteBuffer[float32]
}

func (k Offset) Execute() {
	i := sl.ThreadId().X
	k.Out[i] = k.In[i] + k.Bias
}
