package riscv

// vtype layout: vlmul in bits [2:0], vsew in bits [5:3].
const (
	vlmulMask  = 0x7
	vsewShift  = 3
	vsewMask   = 0x7
	reservedLM = 0
	reservedSW = 0
)

var lmulTable = [8]float32{
	0: 1,
	1: 2,
	2: 4,
	3: 8,
	4: reservedLM,
	5: 1.0 / 8,
	6: 1.0 / 4,
	7: 1.0 / 2,
}

var sewTable = [8]uint8{
	0: 8,
	1: 16,
	2: 32,
	3: 64,
	4: reservedSW,
	5: reservedSW,
	6: reservedSW,
	7: reservedSW,
}

func (c *Classifier) LMUL(vtype uint64) float32 {
	return lmulTable[vtype&vlmulMask]
}

func (c *Classifier) SEW(vtype uint64) uint8 {
	return sewTable[(vtype>>vsewShift)&vsewMask]
}

// VType builds a vtype word from table indices, mostly for tests and engine adapters.
func VType(lmulIndex, sewIndex uint64) uint64 {
	return lmulIndex&vlmulMask | (sewIndex&vsewMask)<<vsewShift
}
