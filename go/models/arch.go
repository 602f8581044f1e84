package models

import (
	"encoding/binary"
	"sort"

	"github.com/lunixbochs/fvbommel-util/sortorder"
)

// InsInfo is the classification of one instruction.
type InsInfo struct {
	Inputs  []string
	Outputs []string

	IsNop    bool
	IsBranch bool
	IsFlush  bool
	IsVctrl  bool
	// IsVector is set when any input or output lives in the vector register file.
	IsVector bool
}

// Classifier is the architecture table used by the trace encoder.
type Classifier interface {
	Classify(mnemonic string, operands []string) InsInfo
	// LMUL and SEW decode a raw vector configuration word. Both are total:
	// reserved encodings map to 0.
	LMUL(vtype uint64) float32
	SEW(vtype uint64) uint8
}

type regList []string

func (r regList) Len() int           { return len(r) }
func (r regList) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }
func (r regList) Less(i, j int) bool { return sortorder.NaturalLess(r[i], r[j]) }

// SortRegs orders register names naturally (x2 before x10) in place.
func SortRegs(regs []string) []string {
	sort.Sort(regList(regs))
	return regs
}

type Arch struct {
	Name    string
	Bits    int
	CS_ARCH int
	CS_MODE int
	UC_ARCH int
	UC_MODE int
	PC      int
	SP      int

	// Order is the natural byte order of instruction words.
	Order     binary.ByteOrder
	MaxInsLen int
	// InsLen returns the width of the instruction starting at mem, or 0 if unknown.
	InsLen func(mem []byte) int

	Classifier Classifier
}

func (a *Arch) String() string { return "<Arch " + a.Name + ">" }

// Opcode reads up to the first four instruction bytes as an integer in the arch byte order.
func (a *Arch) Opcode(raw []byte) uint32 {
	var tmp [4]byte
	n := copy(tmp[:], raw)
	if a.Order == binary.BigEndian {
		// keep the value right-aligned for short instructions
		var be [4]byte
		copy(be[4-n:], raw[:n])
		return binary.BigEndian.Uint32(be[:])
	}
	return binary.LittleEndian.Uint32(tmp[:])
}
