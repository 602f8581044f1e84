package riscv

import "strconv"

type regFile uint8

const (
	notReg regFile = iota
	intReg
	floatReg
	vectorReg
)

var regFiles = make(map[string]regFile)

func init() {
	add := func(f regFile, prefix string, n int) {
		for i := 0; i < n; i++ {
			regFiles[prefix+strconv.Itoa(i)] = f
		}
	}
	add(intReg, "x", 32)
	add(floatReg, "f", 32)
	add(vectorReg, "v", 32)

	for _, name := range []string{"zero", "ra", "sp", "gp", "tp", "fp"} {
		regFiles[name] = intReg
	}
	add(intReg, "t", 7)
	add(intReg, "s", 12)
	add(intReg, "a", 8)

	add(floatReg, "ft", 12)
	add(floatReg, "fs", 12)
	add(floatReg, "fa", 8)
}

func lookupReg(name string) regFile {
	return regFiles[name]
}
