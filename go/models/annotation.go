package models

import "fmt"

// MemKind is the access type carried by a MemAccess annotation.
type MemKind uint8

const (
	MemRead MemKind = iota
	MemWrite
	IORead
	IOWrite
	MemFetch
)

var memKindNames = [...]string{"read", "write", "ioread", "iowrite", "fetch"}

func (k MemKind) String() string {
	if int(k) < len(memKindNames) {
		return memKindNames[k]
	}
	return fmt.Sprintf("MemKind(%d)", k)
}

// Annotation is side-channel data queued during block execution and tagged with the
// virtual address of the instruction that produced it.
// The set of implementations is closed: *MemAccess and *VectorConfig.
type Annotation interface {
	PC() uint64
	annotation()
}

type MemAccess struct {
	VAddr uint64
	Kind  MemKind
	Addr  uint64
}

func (m *MemAccess) PC() uint64  { return m.VAddr }
func (m *MemAccess) annotation() {}

func (m *MemAccess) String() string {
	return fmt.Sprintf("<%s %#x @%#x>", m.Kind, m.Addr, m.VAddr)
}

// VectorConfig carries the raw vtype bits and vector length set by a vector configuration instruction.
type VectorConfig struct {
	VAddr uint64
	VType uint64
	VL    uint64
}

func (v *VectorConfig) PC() uint64  { return v.VAddr }
func (v *VectorConfig) annotation() {}

func (v *VectorConfig) String() string {
	return fmt.Sprintf("<vconfig vtype=%#x vl=%d @%#x>", v.VType, v.VL, v.VAddr)
}
