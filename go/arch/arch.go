package arch

import (
	"github.com/pkg/errors"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/Tarek92l/renode-infrastructure/go/arch/riscv"
	"github.com/Tarek92l/renode-infrastructure/go/models"
)

// capstone 5 enums; capstr predates the RISC-V backend and does not export them
const (
	csArchRISCV   = 15
	csModeRISCV32 = 1 << 0
	csModeRISCV64 = 1 << 1
	csModeRISCVC  = 1 << 2
)

var Riscv32 = &models.Arch{
	Name:      "riscv32",
	Bits:      32,
	CS_ARCH:   csArchRISCV,
	CS_MODE:   csModeRISCV32 | csModeRISCVC,
	UC_ARCH:   uc.ARCH_RISCV,
	UC_MODE:   uc.MODE_RISCV32,
	PC:        uc.RISCV_REG_PC,
	SP:        uc.RISCV_REG_SP,
	Order:     riscv.Order,
	MaxInsLen: 4,
	InsLen:    riscv.InsLen,

	Classifier: &riscv.Classifier{},
}

var Riscv64 = &models.Arch{
	Name:      "riscv64",
	Bits:      64,
	CS_ARCH:   csArchRISCV,
	CS_MODE:   csModeRISCV64 | csModeRISCVC,
	UC_ARCH:   uc.ARCH_RISCV,
	UC_MODE:   uc.MODE_RISCV64,
	PC:        uc.RISCV_REG_PC,
	SP:        uc.RISCV_REG_SP,
	Order:     riscv.Order,
	MaxInsLen: 4,
	InsLen:    riscv.InsLen,

	Classifier: &riscv.Classifier{},
}

var archMap = map[string]*models.Arch{
	"riscv32": Riscv32,
	"riscv64": Riscv64,
	"rv32":    Riscv32,
	"rv64":    Riscv64,
}

func GetArch(name string) (*models.Arch, error) {
	a, ok := archMap[name]
	if !ok {
		return nil, errors.Errorf("Arch '%s' not found.", name)
	}
	return a, nil
}
