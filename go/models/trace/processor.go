package trace

import (
	"github.com/rs/zerolog"

	"github.com/Tarek92l/renode-infrastructure/go/models"
)

// Step is one decoded instruction of a block plus the annotations it produced.
type Step struct {
	Ins    *models.Decoded
	VAddr  uint64
	Opcode []byte
	Notes  []models.Annotation
}

// Processor turns an executed block into steps, decoding through a Discache.
type Processor struct {
	dc  *models.Discache
	log zerolog.Logger
}

func NewProcessor(dc *models.Discache, log zerolog.Logger) *Processor {
	return &Processor{dc: dc, log: log}
}

// Process decodes b.Count instructions from b.PAddr and attaches each queued
// annotation to the instruction whose virtual address it carries.
// Decoding stops at the first instruction that cannot be decoded; the steps before it are returned.
func (p *Processor) Process(b *models.Block) []Step {
	steps := make([]Step, 0, b.Count)
	paddr, vaddr := b.PAddr, b.VAddr
	notes := b.Notes
	for count := 0; count < b.Count; count++ {
		ins, ok := p.dc.Get(paddr, b.Flags)
		if !ok || ins.Size() == 0 {
			p.log.Debug().Uint64("addr", paddr).Int("decoded", count).Int("count", b.Count).
				Msg("decode failed, dropping rest of block")
			break
		}
		// annotations tagged before this pc can never match
		for len(notes) > 0 && notes[0].PC() < vaddr {
			p.log.Debug().Uint64("pc", notes[0].PC()).Msg("dropping stale annotation")
			notes = notes[1:]
		}
		var mine []models.Annotation
		for len(notes) > 0 && notes[0].PC() == vaddr {
			mine = append(mine, notes[0])
			notes = notes[1:]
		}
		opcode := make([]byte, ins.Size())
		copy(opcode, ins.Raw)
		steps = append(steps, Step{Ins: ins, VAddr: vaddr, Opcode: opcode, Notes: mine})

		size := uint64(ins.Size())
		paddr += size
		vaddr += size
	}
	if len(notes) > 0 {
		p.log.Debug().Int("count", len(notes)).Uint64("next", notes[0].PC()).Msg("unmatched annotations left in block")
	}
	return steps
}
