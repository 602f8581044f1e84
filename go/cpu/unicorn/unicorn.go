package unicorn

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/Tarek92l/renode-infrastructure/go/log"
	"github.com/Tarek92l/renode-infrastructure/go/models"
)

// BlockSink consumes completed blocks, e.g. *trace.Trace.
type BlockSink interface {
	OnBlock(b *models.Block) error
}

// VectorReader lets a Tracer follow vector configuration changes.
type VectorReader interface {
	// Configures reports whether the instruction sets vtype and vl.
	Configures(ins []byte) bool
	// ReadConfig returns vtype and vl once that instruction has retired.
	ReadConfig(u uc.Unicorn, ins []byte) (vtype, vl uint64, err error)
}

// Tracer turns unicorn block, code and memory hooks into models.Blocks.
// Unicorn reports a block before executing it, so each block is handed to
// the sink when the next one starts or on Detach.
type Tracer struct {
	u    uc.Unicorn
	sink BlockSink
	log  zerolog.Logger

	// Flags is copied into every block
	Flags uint32
	// Vector is optional; without it no VectorConfig annotations are produced.
	Vector VectorReader

	hooks  []uc.Hook
	block  models.Block
	active bool
	pc     uint64
	err    error

	// vset retired when the next instruction or block starts
	vset []byte
}

func NewTracer(u uc.Unicorn, sink BlockSink) *Tracer {
	return &Tracer{u: u, sink: sink, log: log.Engine}
}

func (t *Tracer) hook(htype int, cb interface{}) error {
	hh, err := t.u.HookAdd(htype, cb, 1, 0)
	if err != nil {
		return errors.Wrap(err, "u.HookAdd failed")
	}
	t.hooks = append(t.hooks, hh)
	return nil
}

func (t *Tracer) Attach() error {
	if err := t.hook(uc.HOOK_BLOCK, func(_ uc.Unicorn, addr uint64, size uint32) {
		t.OnBlock(addr)
	}); err != nil {
		return err
	}
	if err := t.hook(uc.HOOK_CODE, func(_ uc.Unicorn, addr uint64, size uint32) {
		var ins []byte
		if t.Vector != nil {
			ins, _ = t.u.MemRead(addr, uint64(size))
		}
		t.OnStep(addr, ins)
	}); err != nil {
		return err
	}
	return t.hook(uc.HOOK_MEM_READ|uc.HOOK_MEM_WRITE,
		func(_ uc.Unicorn, access int, addr uint64, size int, val int64) {
			t.OnMem(access, addr)
		})
}

// OnBlock finishes the previous block and starts a new one at addr.
func (t *Tracer) OnBlock(addr uint64) {
	t.flush()
	// user-mode emulation: virtual and physical addresses coincide
	t.block.Reset(addr, addr, t.Flags)
	t.active = true
}

// OnStep counts the instruction at addr. ins is its encoding, only needed with a Vector reader.
func (t *Tracer) OnStep(addr uint64, ins []byte) {
	t.retireVset()
	t.pc = addr
	t.block.Count++
	if t.Vector != nil && t.Vector.Configures(ins) {
		t.vset = append(t.vset[:0], ins...)
	}
}

func (t *Tracer) retireVset() {
	if len(t.vset) == 0 {
		return
	}
	vtype, vl, err := t.Vector.ReadConfig(t.u, t.vset)
	t.vset = t.vset[:0]
	if err != nil {
		t.log.Debug().Err(err).Uint64("pc", t.pc).Msg("vector config not recorded")
		return
	}
	t.OnVectorConfig(vtype, vl)
}

// OnMem records a memory access by the instruction currently executing.
func (t *Tracer) OnMem(access int, addr uint64) {
	if !t.active {
		return
	}
	var kind models.MemKind
	switch access {
	case uc.MEM_READ:
		kind = models.MemRead
	case uc.MEM_WRITE:
		kind = models.MemWrite
	case uc.MEM_FETCH:
		kind = models.MemFetch
	default:
		return
	}
	t.block.Annotate(&models.MemAccess{VAddr: t.pc, Kind: kind, Addr: addr})
}

// OnVectorConfig lets an arch hook report a vector configuration change.
func (t *Tracer) OnVectorConfig(vtype, vl uint64) {
	if t.active {
		t.block.Annotate(&models.VectorConfig{VAddr: t.pc, VType: vtype, VL: vl})
	}
}

func (t *Tracer) flush() {
	t.retireVset()
	if !t.active || t.err != nil {
		return
	}
	t.active = false
	if err := t.sink.OnBlock(&t.block); err != nil {
		t.err = err
		t.log.Error().Err(err).Uint64("addr", t.block.VAddr).Msg("trace write failed, stopping emulation")
		t.u.Stop()
	}
}

// Detach hands over the last block and removes the hooks. It returns the first sink error.
func (t *Tracer) Detach() error {
	t.flush()
	for _, hh := range t.hooks {
		t.u.HookDel(hh)
	}
	t.hooks = nil
	return t.err
}
