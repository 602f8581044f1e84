package cpu

import (
	cs "github.com/lunixbochs/capstr"
	"github.com/pkg/errors"

	"github.com/Tarek92l/renode-infrastructure/go/models"
)

// MemReader is the slice of an execution engine the decoder needs.
type MemReader interface {
	MemReadInto(p []byte, addr uint64) error
}

// Capstr decodes instructions from emulator memory with capstone.
// Wrap it in a models.Discache; Capstr itself does no caching.
type Capstr struct {
	Arch *models.Arch
	Mem  MemReader
	// Mode selects the capstone mode for a set of decode flags, e.g. thumb on ARM.
	// nil always uses Arch.CS_MODE.
	Mode func(flags uint32) int

	engines map[int]*cs.Engine
}

func (c *Capstr) engine(mode int) (*cs.Engine, error) {
	if c.engines == nil {
		c.engines = make(map[int]*cs.Engine)
	}
	if engine, ok := c.engines[mode]; ok {
		return engine, nil
	}
	engine, err := cs.New(c.Arch.CS_ARCH, mode)
	if err != nil {
		return nil, errors.Wrap(err, "cs.New() failed")
	}
	c.engines[mode] = engine
	return engine, nil
}

func (c *Capstr) read(addr uint64) ([]byte, error) {
	mem := make([]byte, c.Arch.MaxInsLen)
	err := c.Mem.MemReadInto(mem, addr)
	if err == nil || c.Arch.InsLen == nil {
		return mem, errors.Wrapf(err, "failed to read instruction at %#x", addr)
	}
	// a short instruction can sit at the very end of a mapping
	for size := c.Arch.MaxInsLen / 2; size > 0; size /= 2 {
		if c.Mem.MemReadInto(mem[:size], addr) == nil && c.Arch.InsLen(mem[:size]) <= size {
			return mem[:size], nil
		}
	}
	return nil, errors.Wrapf(err, "failed to read instruction at %#x", addr)
}

func (c *Capstr) Decode(addr uint64, flags uint32) (*models.Decoded, error) {
	mode := c.Arch.CS_MODE
	if c.Mode != nil {
		mode = c.Mode(flags)
	}
	engine, err := c.engine(mode)
	if err != nil {
		return nil, err
	}
	mem, err := c.read(addr)
	if err != nil {
		return nil, err
	}
	dis, err := engine.Dis(mem, addr, 1)
	if err != nil || len(dis) == 0 {
		// the width is still known, so the instruction can be traced without text
		if c.Arch.InsLen != nil {
			if n := c.Arch.InsLen(mem); n > 0 && n <= len(mem) {
				return &models.Decoded{Address: addr, Raw: mem[:n]}, nil
			}
		}
		if err == nil {
			err = errors.Errorf("no instruction at %#x", addr)
		}
		return nil, errors.Wrap(err, "capstone disassembly failed")
	}
	ins := dis[0]
	text := ins.Mnemonic()
	if op := ins.OpStr(); op != "" {
		text += "\t" + op
	}
	raw := make([]byte, len(ins.Bytes()))
	copy(raw, ins.Bytes())
	return &models.Decoded{Address: addr, Raw: raw, Text: text}, nil
}
