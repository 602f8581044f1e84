package trace

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/Tarek92l/renode-infrastructure/go/models"
)

const operandSep = ", "

// Encoder converts steps into wire instructions. It owns the sticky vector state.
type Encoder struct {
	arch *models.Arch
	vec  VectorState
	log  zerolog.Logger
}

func NewEncoder(arch *models.Arch, log zerolog.Logger) *Encoder {
	return &Encoder{arch: arch, vec: NewVectorState(), log: log}
}

func (e *Encoder) Vector() VectorState { return e.vec }

// Encode appends one Instruction per step to dst. Steps without disassembly
// text still produce a zero Instruction so indices line up with the block.
func (e *Encoder) Encode(dst []Instruction, steps []Step) []Instruction {
	for i := range steps {
		dst = append(dst, e.encodeStep(&steps[i]))
	}
	return dst
}

// operands splits a capstone operand string; "" has no operands.
func operands(opstr string) []string {
	if opstr == "" {
		return nil
	}
	return strings.Split(opstr, operandSep)
}

// applyVector folds every vector config of the step into the sticky state.
// With several configs on one instruction the last one wins.
func (e *Encoder) applyVector(s *Step) {
	for _, note := range s.Notes {
		if cfg, ok := note.(*models.VectorConfig); ok {
			e.vec.Update(e.arch.Classifier, cfg)
		}
	}
}

func (e *Encoder) encodeStep(s *Step) Instruction {
	e.applyVector(s)
	if s.Ins == nil || s.Ins.Text == "" {
		var addr uint64
		if s.Ins != nil {
			addr = s.Ins.Address
		}
		e.log.Warn().Uint64("addr", addr).Hex("opcode", s.Opcode).Msg("no disassembly text, writing empty instruction")
		return Instruction{}
	}
	mnemonic, ops := s.Ins.Mnemonic(), operands(s.Ins.OpStr())
	info := e.arch.Classifier.Classify(mnemonic, ops)

	ins := Instruction{
		Addr:     s.Ins.Address,
		Opcode:   e.arch.Opcode(s.Opcode),
		Mnemonic: mnemonic,
		Operands: ops,
		Inputs:   info.Inputs,
		Outputs:  info.Outputs,
		IsNop:    info.IsNop,
		IsBranch: info.IsBranch,
		IsFlush:  info.IsFlush,
		IsVctrl:  info.IsVctrl,
		// not computed at this layer
		BranchTarget: 0,
		VL:           NoVL,
	}
	for _, note := range s.Notes {
		if m, ok := note.(*models.MemAccess); ok {
			switch m.Kind {
			case models.MemRead, models.IORead:
				ins.Loads = append(ins.Loads, m.Addr)
			case models.MemWrite, models.IOWrite:
				ins.Stores = append(ins.Stores, m.Addr)
			}
		}
	}
	if info.IsVector {
		ins.LMUL = e.vec.LMUL
		ins.SEW = e.vec.SEW
		ins.VL = e.vec.VL
	}
	return ins
}
