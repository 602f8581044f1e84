package riscv

import (
	"strings"

	"github.com/Tarek92l/renode-infrastructure/go/models"
)

// Classifier implements models.Classifier for RV32/RV64 with the V extension.
type Classifier struct{}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

var (
	nops = set("nop", "c.nop")

	// conditional branches, all operands are read
	condBranches = set(
		"beq", "bne", "blt", "bge", "bltu", "bgeu",
		"beqz", "bnez", "blez", "bgez", "bltz", "bgtz",
		"bgt", "ble", "bgtu", "bleu",
		"c.beqz", "c.bnez",
	)
	// unconditional transfers without a destination operand
	jumps = set("j", "c.j", "jr", "c.jr", "ret", "tail", "mret", "sret", "uret", "dret")
	// transfers that link into ra when no destination is given
	links = set("jal", "c.jal", "jalr", "c.jalr", "call")

	// instructions that write nothing architecturally visible through operands
	noDest = set("ecall", "ebreak", "c.ebreak", "wfi")

	scalarStores = set(
		"sb", "sh", "sw", "sd", "sq",
		"c.sw", "c.sd", "c.swsp", "c.sdsp",
		"fsh", "fsw", "fsd", "fsq",
		"c.fsw", "c.fsd", "c.fswsp", "c.fsdsp",
	)

	// two-operand compressed forms where rd is also a source
	readsDest = set(
		"c.addi", "c.addiw", "c.addi16sp", "c.add", "c.addw", "c.sub", "c.subw",
		"c.and", "c.andi", "c.or", "c.xor", "c.slli", "c.srli", "c.srai",
	)

	vctrl = set("vsetvl", "vsetvli", "vsetivli")
)

func isFlush(m string) bool {
	return strings.HasPrefix(m, "fence") || strings.HasPrefix(m, "sfence.") || strings.HasPrefix(m, "hfence.")
}

func isVectorStore(m string) bool {
	switch {
	case strings.HasPrefix(m, "vset"):
		return false
	case strings.HasPrefix(m, "vse") && len(m) > 3 && m[3] >= '0' && m[3] <= '9':
		return true
	case strings.HasPrefix(m, "vsse"), strings.HasPrefix(m, "vssseg"),
		strings.HasPrefix(m, "vsox"), strings.HasPrefix(m, "vsux"):
		return true
	case m == "vsm.v", m == "vs1r.v", m == "vs2r.v", m == "vs4r.v", m == "vs8r.v":
		return true
	}
	return false
}

// vector multiply-add forms read their destination as the accumulator
func isVectorAccumulate(m string) bool {
	if !strings.HasPrefix(m, "v") {
		return false
	}
	op := m
	if i := strings.IndexByte(op, '.'); i >= 0 {
		op = op[:i]
	}
	for _, s := range []string{"macc", "msac", "madd", "msub"} {
		if strings.HasSuffix(op, s) || strings.Contains(op, s+"su") || strings.Contains(op, s+"us") {
			return true
		}
	}
	return false
}

// operandReg extracts the register named by one operand token, or "".
func operandReg(op string) string {
	op = strings.TrimSpace(op)
	// memory operand: imm(reg)
	if i := strings.IndexByte(op, '('); i >= 0 {
		if j := strings.IndexByte(op[i:], ')'); j > 0 {
			op = op[i+1 : i+j]
		}
	}
	// mask operand: v0.t
	op = strings.TrimSuffix(op, ".t")
	if lookupReg(op) != notReg {
		return op
	}
	return ""
}

func (c *Classifier) Classify(mnemonic string, operands []string) models.InsInfo {
	m := strings.ToLower(strings.TrimSpace(mnemonic))
	info := models.InsInfo{
		IsNop:    nops[m],
		IsBranch: condBranches[m] || jumps[m] || links[m],
		IsFlush:  isFlush(m),
		IsVctrl:  vctrl[m],
	}
	var regs []string
	for _, op := range operands {
		if r := operandReg(op); r != "" {
			regs = append(regs, r)
		}
	}
	var in, out []string
	switch {
	case links[m]:
		// jal/jalr with an explicit rd, otherwise ra is implied
		if len(operands) >= 2 && operandReg(operands[0]) != "" && !strings.Contains(operands[0], "(") {
			out, in = regs[:1], regs[1:]
		} else {
			out, in = []string{"ra"}, regs
		}
	case m == "ret":
		in = []string{"ra"}
	case condBranches[m], jumps[m], noDest[m], info.IsFlush, scalarStores[m], isVectorStore(m):
		in = regs
	case readsDest[m], isVectorAccumulate(m):
		if len(regs) > 0 {
			out, in = regs[:1], regs
		}
	default:
		// the first operand is the destination only when it is a register
		if len(operands) > 0 && len(regs) > 0 && operandReg(operands[0]) == regs[0] && !strings.Contains(operands[0], "(") {
			out, in = regs[:1], regs[1:]
		} else {
			in = regs
		}
	}
	info.Inputs = uniqueRegs(in)
	info.Outputs = uniqueRegs(out)
	for _, r := range info.Inputs {
		info.IsVector = info.IsVector || lookupReg(r) == vectorReg
	}
	for _, r := range info.Outputs {
		info.IsVector = info.IsVector || lookupReg(r) == vectorReg
	}
	return info
}

func uniqueRegs(regs []string) []string {
	if len(regs) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(regs))
	ret := make([]string, 0, len(regs))
	for _, r := range regs {
		if !seen[r] {
			seen[r] = true
			ret = append(ret, r)
		}
	}
	return models.SortRegs(ret)
}
