package models

// Block is one contiguous run of executed instructions, handed to the tracer once.
type Block struct {
	PAddr uint64
	VAddr uint64
	Count int
	Flags uint32
	// Notes is ordered by non-decreasing PC.
	Notes []Annotation
}

func (b *Block) Annotate(a Annotation) {
	b.Notes = append(b.Notes, a)
}

// Reset clears the block for reuse, keeping the annotation backing array.
func (b *Block) Reset(paddr, vaddr uint64, flags uint32) {
	for i := range b.Notes {
		b.Notes[i] = nil
	}
	*b = Block{PAddr: paddr, VAddr: vaddr, Flags: flags, Notes: b.Notes[:0]}
}
