package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mgutz/ansi"
	"github.com/pkg/errors"

	"github.com/Tarek92l/renode-infrastructure/go/models/trace"
)

// Reader is satisfied by *trace.TraceReader.
type Reader interface {
	Next() ([]trace.Instruction, error)
}

// PrintJson writes one JSON object per record, tagged with its frame index.
func PrintJson(tr Reader, out io.Writer) error {
	enc := json.NewEncoder(out)
	for frame := 0; ; frame++ {
		list, err := tr.Next()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrapf(err, "error reading frame %d", frame)
		}
		for i := range list {
			rec := struct {
				Frame int `json:"frame"`
				*trace.Instruction
			}{frame, &list[i]}
			if err := enc.Encode(&rec); err != nil {
				return errors.Wrap(err, "error printing record")
			}
		}
	}
}

type palette struct {
	addr, mnem, branch, vector, meta, reset string
}

var noColor = palette{}

var colors = palette{
	addr:   ansi.ColorCode("cyan"),
	mnem:   ansi.ColorCode("default+b"),
	branch: ansi.ColorCode("yellow+b"),
	vector: ansi.ColorCode("magenta+b"),
	meta:   ansi.ColorCode("black+h"),
	reset:  ansi.Reset,
}

func hexList(addrs []uint64) string {
	s := make([]string, len(addrs))
	for i, a := range addrs {
		s[i] = "0x" + strconv.FormatUint(a, 16)
	}
	return strings.Join(s, ",")
}

func formatIns(ins *trace.Instruction, p *palette) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%#x%s: ", p.addr, ins.Addr, p.reset)
	mnem := p.mnem
	switch {
	case ins.IsBranch:
		mnem = p.branch
	case ins.IsVctrl:
		mnem = p.vector
	}
	name := ins.Mnemonic
	if name == "" {
		name = fmt.Sprintf(".word %#x", ins.Opcode)
	}
	fmt.Fprintf(&b, "%s%s%s", mnem, name, p.reset)
	if len(ins.Operands) > 0 {
		b.WriteString(" " + strings.Join(ins.Operands, ", "))
	}

	var meta []string
	if len(ins.Inputs) > 0 {
		meta = append(meta, "in="+strings.Join(ins.Inputs, ","))
	}
	if len(ins.Outputs) > 0 {
		meta = append(meta, "out="+strings.Join(ins.Outputs, ","))
	}
	if len(ins.Loads) > 0 {
		meta = append(meta, "ld="+hexList(ins.Loads))
	}
	if len(ins.Stores) > 0 {
		meta = append(meta, "st="+hexList(ins.Stores))
	}
	for _, f := range []struct {
		set  bool
		name string
	}{{ins.IsNop, "nop"}, {ins.IsBranch, "branch"}, {ins.IsFlush, "flush"}, {ins.IsVctrl, "vctrl"}} {
		if f.set {
			meta = append(meta, f.name)
		}
	}
	if ins.SEW != 0 {
		vl := "?"
		if ins.VL != trace.NoVL {
			vl = strconv.Itoa(int(ins.VL))
		}
		meta = append(meta, fmt.Sprintf("lmul=%g sew=%d vl=%s", ins.LMUL, ins.SEW, vl))
	}
	if len(meta) > 0 {
		fmt.Fprintf(&b, "  %s; %s%s", p.meta, strings.Join(meta, " "), p.reset)
	}
	return b.String()
}

// PrintPretty writes one line per record with a separator line per frame.
func PrintPretty(tr Reader, out io.Writer, color bool) error {
	p := &noColor
	if color {
		p = &colors
	}
	for frame := 0; ; frame++ {
		list, err := tr.Next()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrapf(err, "error reading frame %d", frame)
		}
		fmt.Fprintf(out, "%s# frame %d (%d instructions)%s\n", p.meta, frame, len(list), p.reset)
		for i := range list {
			fmt.Fprintln(out, formatIns(&list[i], p))
		}
	}
}

type Summary struct {
	Frames, Instructions, Loads, Stores, Branches int
}

// Summarize counts the records of a trace without printing them.
func Summarize(tr Reader) (Summary, error) {
	var s Summary
	for {
		list, err := tr.Next()
		if err == io.EOF {
			return s, nil
		} else if err != nil {
			return s, errors.Wrapf(err, "error reading frame %d", s.Frames)
		}
		s.Frames++
		s.Instructions += len(list)
		for i := range list {
			s.Loads += len(list[i].Loads)
			s.Stores += len(list[i].Stores)
			if list[i].IsBranch {
				s.Branches++
			}
		}
	}
}
