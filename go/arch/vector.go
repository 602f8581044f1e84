package arch

import (
	"github.com/pkg/errors"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/Tarek92l/renode-infrastructure/go/arch/riscv"
)

// RiscvVector recovers vector configurations from retired vset* instructions.
// vtype comes from the immediate (or rs2 for vsetvl) and vl from rd, since
// unicorn does not expose the vector CSRs.
type RiscvVector struct{}

func (RiscvVector) Configures(ins []byte) bool {
	return len(ins) == 4 && riscv.IsVectorConfig(riscv.Order.Uint32(ins))
}

func (RiscvVector) ReadConfig(u uc.Unicorn, ins []byte) (vtype, vl uint64, err error) {
	if len(ins) != 4 {
		return 0, 0, errors.Errorf("bad vset length %d", len(ins))
	}
	v := riscv.DecodeVset(riscv.Order.Uint32(ins))
	if v.Rd == 0 {
		return 0, 0, errors.New("vl is not observable with rd = x0")
	}
	vtype = v.VType
	if !v.Immediate {
		if vtype, err = u.RegRead(uc.RISCV_REG_X0 + v.Rs2); err != nil {
			return 0, 0, errors.Wrap(err, "failed to read vtype source")
		}
	}
	if vl, err = u.RegRead(uc.RISCV_REG_X0 + v.Rd); err != nil {
		return 0, 0, errors.Wrap(err, "failed to read vl")
	}
	return vtype, vl, nil
}
