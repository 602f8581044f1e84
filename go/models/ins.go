package models

import "strings"

// Decoded is one disassembled instruction as produced by a Decoder.
// An empty Text means the decoder knew the instruction width but could not render it.
type Decoded struct {
	Address uint64
	Raw     []byte
	// Text is "mnemonic\toperands", capstone style
	Text string
}

func (d *Decoded) Size() int { return len(d.Raw) }

// Mnemonic is the disassembly text before the first tab.
func (d *Decoded) Mnemonic() string {
	if i := strings.IndexByte(d.Text, '\t'); i >= 0 {
		return d.Text[:i]
	}
	return d.Text
}

// OpStr is the disassembly text after the first tab, or "" without one.
func (d *Decoded) OpStr() string {
	if i := strings.IndexByte(d.Text, '\t'); i >= 0 {
		return d.Text[i+1:]
	}
	return ""
}

// Decoder maps (address, flags) to a decoded instruction.
// An error means nothing could be decoded at addr (e.g. unmapped memory).
type Decoder interface {
	Decode(addr uint64, flags uint32) (*Decoded, error)
}
