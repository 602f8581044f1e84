package trace

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Tarek92l/renode-infrastructure/go/arch/riscv"
	"github.com/Tarek92l/renode-infrastructure/go/models"
)

var testArch = &models.Arch{
	Name:       "riscv64",
	Bits:       64,
	Order:      binary.LittleEndian,
	MaxInsLen:  4,
	InsLen:     riscv.InsLen,
	Classifier: &riscv.Classifier{},
}

// fakeDecoder serves 4-byte instructions from a text table. Missing addresses fail
// to decode, "?" decodes without text.
type fakeDecoder struct {
	text  map[uint64]string
	calls int
}

func (f *fakeDecoder) Decode(addr uint64, flags uint32) (*models.Decoded, error) {
	f.calls++
	text, ok := f.text[addr]
	if !ok {
		return nil, errors.Errorf("unmapped address %#x", addr)
	}
	if text == "?" {
		text = ""
	}
	raw := make([]byte, 4)
	binary.LittleEndian.PutUint32(raw, uint32(addr)|0x3)
	return &models.Decoded{Address: addr, Raw: raw, Text: text}, nil
}

// program lays out instructions 4 bytes apart from base.
func program(base uint64, text ...string) *fakeDecoder {
	f := &fakeDecoder{text: make(map[uint64]string)}
	for i, s := range text {
		f.text[base+uint64(i*4)] = s
	}
	return f
}

type bufCloser struct {
	bytes.Buffer
	closed int
}

func (b *bufCloser) Close() error {
	b.closed++
	return nil
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }
func (failWriter) Close() error                { return nil }

func newTestTrace(t *testing.T, dec models.Decoder, compress bool) (*Trace, *bufCloser) {
	out := &bufCloser{}
	logger := zerolog.Nop()
	tr, err := NewTrace(&models.TraceConfig{TraceWriter: out, Compress: compress, Logger: &logger}, testArch, dec)
	require.NoError(t, err)
	return tr, out
}

// readFrames decodes every frame in p.
func readFrames(t *testing.T, p []byte, compress bool) [][]Instruction {
	r := NewReader(io.NopCloser(bytes.NewReader(p)), compress)
	defer r.Close()
	var frames [][]Instruction
	for {
		list, err := r.Next()
		if err == io.EOF {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, list)
	}
}
