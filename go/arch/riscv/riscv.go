// Package riscv holds the RISC-V instruction tables used by the tracer:
// register classification, vtype decoding and instruction widths.
package riscv

import "encoding/binary"

var Order = binary.LittleEndian

// InsLen returns 2 for compressed encodings and 4 otherwise.
func InsLen(mem []byte) int {
	if len(mem) == 0 {
		return 0
	}
	if mem[0]&0x3 != 0x3 {
		return 2
	}
	return 4
}

const (
	opV        = 0x57
	funct3Cfg  = 0x7
	opcodeMask = 0x7f
)

// IsVectorConfig reports whether word is vsetvli, vsetivli or vsetvl.
// They share the OP-V major opcode with funct3 = 0b111.
func IsVectorConfig(word uint32) bool {
	return word&opcodeMask == opV && (word>>12)&0x7 == funct3Cfg
}

// Vset holds the operands of a vector configuration instruction.
type Vset struct {
	Rd, Rs2 int
	// VType is the immediate vtype of vsetvli/vsetivli; vsetvl takes it from Rs2.
	VType     uint64
	Immediate bool
}

func DecodeVset(word uint32) Vset {
	v := Vset{Rd: int(word>>7) & 0x1f}
	switch {
	case word>>31 == 0: // vsetvli
		v.VType, v.Immediate = uint64(word>>20)&0x7ff, true
	case word>>30 == 0x3: // vsetivli
		v.VType, v.Immediate = uint64(word>>20)&0x3ff, true
	default: // vsetvl
		v.Rs2 = int(word>>20) & 0x1f
	}
	return v
}
