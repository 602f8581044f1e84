package trace

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

var order = binary.LittleEndian

var strucOptions = &struc.Options{Order: order}

// Instruction is one record of a trace frame.
type Instruction struct {
	Addr     uint64   `json:"addr"`
	Opcode   uint32   `json:"opcode"`
	Mnemonic string   `json:"mnemonic"`
	Operands []string `json:"operands"`
	Inputs   []string `json:"inputs"`
	Outputs  []string `json:"outputs"`

	IsNop    bool `json:"is_nop"`
	IsBranch bool `json:"is_branch"`
	IsFlush  bool `json:"is_flush"`
	IsVctrl  bool `json:"is_vctrl"`

	BranchTarget uint64   `json:"branch_target"`
	Loads        []uint64 `json:"loads"`
	Stores       []uint64 `json:"stores"`

	LMUL float32 `json:"lmul"`
	SEW  uint8   `json:"sew"`
	VL   int16   `json:"vl"`
}

// fixed-size part of a record
type instructionHead struct {
	Addr         uint64
	Opcode       uint32
	IsNop        bool
	IsBranch     bool
	IsFlush      bool
	IsVctrl      bool
	BranchTarget uint64
	LMUL         float32
	SEW          uint8
	VL           int16
}

func putStr(w *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return errors.Errorf("string too long: %d bytes", len(s))
	}
	var tmp [2]byte
	order.PutUint16(tmp[:], uint16(len(s)))
	w.Write(tmp[:])
	w.WriteString(s)
	return nil
}

func putStrs(w *bytes.Buffer, list []string) error {
	if len(list) > math.MaxUint16 {
		return errors.Errorf("string list too long: %d entries", len(list))
	}
	var tmp [2]byte
	order.PutUint16(tmp[:], uint16(len(list)))
	w.Write(tmp[:])
	for _, s := range list {
		if err := putStr(w, s); err != nil {
			return err
		}
	}
	return nil
}

func putAddrs(w *bytes.Buffer, list []uint64) {
	var tmp [8]byte
	order.PutUint32(tmp[:], uint32(len(list)))
	w.Write(tmp[:4])
	for _, v := range list {
		order.PutUint64(tmp[:], v)
		w.Write(tmp[:])
	}
}

func (i *Instruction) Pack(w *bytes.Buffer) error {
	head := instructionHead{
		Addr:         i.Addr,
		Opcode:       i.Opcode,
		IsNop:        i.IsNop,
		IsBranch:     i.IsBranch,
		IsFlush:      i.IsFlush,
		IsVctrl:      i.IsVctrl,
		BranchTarget: i.BranchTarget,
		LMUL:         i.LMUL,
		SEW:          i.SEW,
		VL:           i.VL,
	}
	if err := struc.PackWithOptions(w, &head, strucOptions); err != nil {
		return errors.Wrap(err, "instruction head pack")
	}
	if err := putStr(w, i.Mnemonic); err != nil {
		return err
	}
	for _, list := range [][]string{i.Operands, i.Inputs, i.Outputs} {
		if err := putStrs(w, list); err != nil {
			return err
		}
	}
	putAddrs(w, i.Loads)
	putAddrs(w, i.Stores)
	return nil
}

func readStr(r io.Reader) (string, error) {
	var tmp [2]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return "", err
	}
	buf := make([]byte, order.Uint16(tmp[:]))
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readStrs(r io.Reader) ([]string, error) {
	var tmp [2]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return nil, err
	}
	count := int(order.Uint16(tmp[:]))
	if count == 0 {
		return nil, nil
	}
	list := make([]string, count)
	for i := range list {
		s, err := readStr(r)
		if err != nil {
			return nil, err
		}
		list[i] = s
	}
	return list, nil
}

func readAddrs(r io.Reader) ([]uint64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(r, tmp[:4]); err != nil {
		return nil, err
	}
	count := int(order.Uint32(tmp[:4]))
	if count == 0 {
		return nil, nil
	}
	list := make([]uint64, 0, count)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(r, tmp[:]); err != nil {
			return nil, err
		}
		list = append(list, order.Uint64(tmp[:]))
	}
	return list, nil
}

func (i *Instruction) Unpack(r io.Reader) error {
	var head instructionHead
	if err := struc.UnpackWithOptions(r, &head, strucOptions); err != nil {
		return errors.Wrap(err, "instruction head unpack")
	}
	*i = Instruction{
		Addr:         head.Addr,
		Opcode:       head.Opcode,
		IsNop:        head.IsNop,
		IsBranch:     head.IsBranch,
		IsFlush:      head.IsFlush,
		IsVctrl:      head.IsVctrl,
		BranchTarget: head.BranchTarget,
		LMUL:         head.LMUL,
		SEW:          head.SEW,
		VL:           head.VL,
	}
	var err error
	if i.Mnemonic, err = readStr(r); err != nil {
		return errors.Wrap(err, "mnemonic unpack")
	}
	for _, list := range []*[]string{&i.Operands, &i.Inputs, &i.Outputs} {
		if *list, err = readStrs(r); err != nil {
			return errors.Wrap(err, "register list unpack")
		}
	}
	if i.Loads, err = readAddrs(r); err != nil {
		return errors.Wrap(err, "loads unpack")
	}
	if i.Stores, err = readAddrs(r); err != nil {
		return errors.Wrap(err, "stores unpack")
	}
	return nil
}

// packPayload writes a record count followed by every record.
func packPayload(w *bytes.Buffer, list []Instruction) error {
	var tmp [4]byte
	order.PutUint32(tmp[:], uint32(len(list)))
	w.Write(tmp[:])
	for i := range list {
		if err := list[i].Pack(w); err != nil {
			return errors.Wrapf(err, "packing record %d", i)
		}
	}
	return nil
}

func unpackPayload(p []byte) ([]Instruction, error) {
	r := bytes.NewReader(p)
	var tmp [4]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return nil, errors.Wrap(err, "payload count")
	}
	count := int(order.Uint32(tmp[:]))
	// every record is at least the head plus empty lists
	if count > len(p)/minRecordSize {
		return nil, errors.Errorf("payload claims %d records in %d bytes", count, len(p))
	}
	list := make([]Instruction, count)
	for i := range list {
		if err := list[i].Unpack(r); err != nil {
			return list[:i], errors.Wrapf(err, "unpacking record %d", i)
		}
	}
	if r.Len() != 0 {
		return list, errors.Errorf("%d trailing bytes after %d records", r.Len(), count)
	}
	return list, nil
}

// head + mnemonic len + 3 list counts + 2 address counts
const minRecordSize = 8 + 4 + 4 + 8 + 4 + 1 + 2 + 2 + 3*2 + 2*4
