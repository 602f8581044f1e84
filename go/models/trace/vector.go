package trace

import (
	"math"

	"github.com/Tarek92l/renode-infrastructure/go/models"
)

// VectorState is the last vector configuration seen by a trace. It persists
// across instructions and blocks until another configuration replaces it.
type VectorState struct {
	LMUL float32
	SEW  uint8
	VL   int16
}

// NoVL marks the vector length of scalar instructions and of an unset state.
const NoVL = -1

func NewVectorState() VectorState {
	return VectorState{VL: NoVL}
}

func (v *VectorState) Update(c models.Classifier, cfg *models.VectorConfig) {
	v.LMUL = c.LMUL(cfg.VType)
	v.SEW = c.SEW(cfg.VType)
	if cfg.VL > math.MaxInt16 {
		v.VL = math.MaxInt16
	} else {
		v.VL = int16(cfg.VL)
	}
}
