package trace

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tarek92l/renode-infrastructure/go/arch/riscv"
	"github.com/Tarek92l/renode-infrastructure/go/models"
)

func TestTraceLoadsAndStores(t *testing.T) {
	dec := program(0x1000, "lw\ta0, 0(a1)", "sw\ta0, 4(a1)", "addi\ta0, a0, 1")
	tr, out := newTestTrace(t, dec, false)
	block := &models.Block{PAddr: 0x1000, VAddr: 0x1000, Count: 3, Flags: 1}
	block.Annotate(&models.MemAccess{VAddr: 0x1000, Kind: models.MemRead, Addr: 0x1000})
	block.Annotate(&models.MemAccess{VAddr: 0x1000, Kind: models.MemFetch, Addr: 0x1000})
	block.Annotate(&models.MemAccess{VAddr: 0x1004, Kind: models.MemWrite, Addr: 0x1004})
	require.NoError(t, tr.OnBlock(block))
	require.NoError(t, tr.Close())

	frames := readFrames(t, out.Bytes(), false)
	// one frame for the block, one empty frame from Close
	require.Len(t, frames, 2)
	assert.Empty(t, frames[1])
	list := frames[0]
	require.Len(t, list, 3)

	assert.Equal(t, []uint64{0x1000}, list[0].Loads)
	assert.Empty(t, list[0].Stores)
	assert.Empty(t, list[1].Loads)
	assert.Equal(t, []uint64{0x1004}, list[1].Stores)
	assert.Empty(t, list[2].Loads)
	assert.Empty(t, list[2].Stores)

	assert.Equal(t, "lw", list[0].Mnemonic)
	assert.Equal(t, []string{"a0", "0(a1)"}, list[0].Operands)
	assert.Equal(t, []string{"a1"}, list[0].Inputs)
	assert.Equal(t, []string{"a0"}, list[0].Outputs)
	assert.Equal(t, uint32(0x1003), list[0].Opcode)
	assert.Equal(t, uint64(0), list[0].BranchTarget)
	for _, ins := range list {
		assert.Equal(t, int16(NoVL), ins.VL)
	}
}

func TestTraceIOAccessesAreLoadsAndStores(t *testing.T) {
	dec := program(0x1000, "lw\ta0, 0(a1)")
	tr, out := newTestTrace(t, dec, false)
	block := &models.Block{PAddr: 0x1000, VAddr: 0x1000, Count: 1}
	block.Annotate(&models.MemAccess{VAddr: 0x1000, Kind: models.IORead, Addr: 0x10000000})
	block.Annotate(&models.MemAccess{VAddr: 0x1000, Kind: models.IOWrite, Addr: 0x10000004})
	require.NoError(t, tr.OnBlock(block))
	require.NoError(t, tr.Close())

	list := readFrames(t, out.Bytes(), false)[0]
	assert.Equal(t, []uint64{0x10000000}, list[0].Loads)
	assert.Equal(t, []uint64{0x10000004}, list[0].Stores)
}

func TestTraceDecodeFailureMidBlock(t *testing.T) {
	dec := program(0x1000, "nop")
	tr, out := newTestTrace(t, dec, false)
	require.NoError(t, tr.OnBlock(&models.Block{PAddr: 0x1000, VAddr: 0x1000, Count: 3}))
	// nothing decodes here, an empty frame is still written
	require.NoError(t, tr.OnBlock(&models.Block{PAddr: 0x9000, VAddr: 0x9000, Count: 2}))
	require.NoError(t, tr.Close())

	frames := readFrames(t, out.Bytes(), false)
	require.Len(t, frames, 3)
	require.Len(t, frames[0], 1)
	assert.True(t, frames[0][0].IsNop)
	assert.Empty(t, frames[1])
	assert.Empty(t, frames[2])
}

func TestTraceMissingTextKeepsAlignment(t *testing.T) {
	dec := program(0x1000, "nop", "?", "addi\ta0, a0, 1")
	tr, out := newTestTrace(t, dec, false)
	require.NoError(t, tr.OnBlock(&models.Block{PAddr: 0x1000, VAddr: 0x1000, Count: 3}))
	require.NoError(t, tr.Close())

	list := readFrames(t, out.Bytes(), false)[0]
	require.Len(t, list, 3)
	assert.Equal(t, Instruction{}, list[1])
	assert.Equal(t, uint64(0x1008), list[2].Addr)
}

func TestTraceVectorState(t *testing.T) {
	dec := program(0x2000,
		"vsetvli\ta0, a1, e16, m4, ta, ma",
		"vadd.vv\tv8, v8, v16",
		"add\ta0, a0, a1",
		"vle16.v\tv4, (a0)",
	)
	tr, out := newTestTrace(t, dec, false)
	block := &models.Block{PAddr: 0x2000, VAddr: 0x2000, Count: 4}
	block.Annotate(&models.VectorConfig{VAddr: 0x2000, VType: riscv.VType(2, 1), VL: 8})
	require.NoError(t, tr.OnBlock(block))

	// the configuration survives into the next block
	block = &models.Block{PAddr: 0x2004, VAddr: 0x2004, Count: 1}
	require.NoError(t, tr.OnBlock(block))
	require.NoError(t, tr.Close())

	frames := readFrames(t, out.Bytes(), false)
	require.Len(t, frames, 3)
	list := frames[0]
	require.Len(t, list, 4)

	// vsetvli itself touches no vector register
	assert.True(t, list[0].IsVctrl)
	assert.Equal(t, float32(0), list[0].LMUL)
	assert.Equal(t, int16(NoVL), list[0].VL)

	assert.Equal(t, float32(4), list[1].LMUL)
	assert.Equal(t, uint8(16), list[1].SEW)
	assert.Equal(t, int16(8), list[1].VL)

	assert.Equal(t, float32(0), list[2].LMUL)
	assert.Equal(t, uint8(0), list[2].SEW)
	assert.Equal(t, int16(NoVL), list[2].VL)

	assert.Equal(t, int16(8), list[3].VL)
	assert.Equal(t, VectorState{LMUL: 4, SEW: 16, VL: 8}, tr.Vector())

	require.Len(t, frames[1], 1)
	assert.Equal(t, float32(4), frames[1][0].LMUL)
}

func TestTraceLastVectorConfigWins(t *testing.T) {
	dec := program(0x2000, "vsetvli\ta0, a1, e8, m1, ta, ma", "vadd.vv\tv1, v2, v3")
	tr, out := newTestTrace(t, dec, false)
	block := &models.Block{PAddr: 0x2000, VAddr: 0x2000, Count: 2}
	block.Annotate(&models.VectorConfig{VAddr: 0x2000, VType: riscv.VType(0, 0), VL: 4})
	block.Annotate(&models.VectorConfig{VAddr: 0x2000, VType: riscv.VType(7, 3), VL: 2})
	require.NoError(t, tr.OnBlock(block))
	require.NoError(t, tr.Close())

	list := readFrames(t, out.Bytes(), false)[0]
	assert.Equal(t, float32(0.5), list[1].LMUL)
	assert.Equal(t, uint8(64), list[1].SEW)
	assert.Equal(t, int16(2), list[1].VL)
}

func TestTraceVectorDefaultsBeforeConfig(t *testing.T) {
	dec := program(0x2000, "vadd.vv\tv1, v2, v3")
	tr, out := newTestTrace(t, dec, false)
	require.NoError(t, tr.OnBlock(&models.Block{PAddr: 0x2000, VAddr: 0x2000, Count: 1}))
	require.NoError(t, tr.Close())

	ins := readFrames(t, out.Bytes(), false)[0][0]
	assert.Equal(t, float32(0), ins.LMUL)
	assert.Equal(t, uint8(0), ins.SEW)
	assert.Equal(t, int16(NoVL), ins.VL)
}

func TestTraceTextlessVectorConfig(t *testing.T) {
	dec := program(0x2000, "?", "vadd.vv\tv8, v8, v16")
	tr, out := newTestTrace(t, dec, false)
	block := &models.Block{PAddr: 0x2000, VAddr: 0x2000, Count: 2}
	block.Annotate(&models.VectorConfig{VAddr: 0x2000, VType: riscv.VType(2, 1), VL: 8})
	require.NoError(t, tr.OnBlock(block))
	require.NoError(t, tr.Close())

	list := readFrames(t, out.Bytes(), false)[0]
	require.Len(t, list, 2)
	assert.Equal(t, Instruction{}, list[0])
	assert.Equal(t, float32(4), list[1].LMUL)
	assert.Equal(t, uint8(16), list[1].SEW)
	assert.Equal(t, int16(8), list[1].VL)
	assert.Equal(t, VectorState{LMUL: 4, SEW: 16, VL: 8}, tr.Vector())
}

func TestTraceFramePerBlock(t *testing.T) {
	text := make([]string, 32)
	for i := range text {
		text[i] = "addi\ta0, a0, 1"
	}
	dec := program(0x1000, text...)
	for _, compress := range []bool{false, true} {
		tr, out := newTestTrace(t, dec, compress)
		var want []uint64
		for _, n := range []int{1, 5, 32, 7} {
			require.NoError(t, tr.OnBlock(&models.Block{PAddr: 0x1000, VAddr: 0x1000, Count: n}))
			for i := 0; i < n; i++ {
				want = append(want, 0x1000+uint64(i*4))
			}
		}
		require.NoError(t, tr.Close())

		frames := readFrames(t, out.Bytes(), compress)
		require.Len(t, frames, 5)
		assert.Empty(t, frames[4])
		var got []uint64
		for _, list := range frames {
			for _, ins := range list {
				got = append(got, ins.Addr)
			}
		}
		assert.Equal(t, want, got)
		stats := tr.Stats()
		assert.Equal(t, uint64(4), stats.Blocks)
		assert.Equal(t, uint64(45), stats.Instructions)
		assert.Equal(t, uint64(5), stats.Frames)
		assert.Equal(t, uint64(out.Len()), stats.Bytes)
	}
}

func TestTraceFrameLayout(t *testing.T) {
	dec := program(0x1000, "nop")
	tr, out := newTestTrace(t, dec, false)
	require.NoError(t, tr.OnBlock(&models.Block{PAddr: 0x1000, VAddr: 0x1000, Count: 1}))
	require.NoError(t, tr.Close())

	p := out.Bytes()
	size := int(binary.LittleEndian.Uint32(p))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(p[FrameHeaderSize:]))

	// the frame written by Close holds only a zero record count
	tail := p[FrameHeaderSize+size:]
	require.Len(t, tail, FrameHeaderSize+4)
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(tail))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(tail[FrameHeaderSize:]))
}

func TestTraceCloseIsIdempotent(t *testing.T) {
	dec := program(0x1000, "nop", "nop")
	tr, out := newTestTrace(t, dec, false)
	require.NoError(t, tr.OnBlock(&models.Block{PAddr: 0x1000, VAddr: 0x1000, Count: 2}))
	require.NoError(t, tr.Close())
	once := append([]byte(nil), out.Bytes()...)
	require.NoError(t, tr.Close())
	assert.Equal(t, once, out.Bytes())
	assert.Equal(t, 1, out.closed)

	assert.Error(t, tr.OnBlock(&models.Block{PAddr: 0x1000, VAddr: 0x1000, Count: 1}))
}

func TestTraceCloseWithoutBlocks(t *testing.T) {
	tr, out := newTestTrace(t, program(0x1000, "nop"), false)
	require.NoError(t, tr.Close())
	frames := readFrames(t, out.Bytes(), false)
	require.Len(t, frames, 1)
	assert.Empty(t, frames[0])
	assert.Equal(t, uint64(1), tr.Stats().Frames)
}

func TestTraceWriteErrorPropagates(t *testing.T) {
	dec := program(0x1000, "nop")
	tr, err := NewTrace(&models.TraceConfig{TraceWriter: failWriter{}}, testArch, dec)
	require.NoError(t, err)
	err = tr.OnBlock(&models.Block{PAddr: 0x1000, VAddr: 0x1000, Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	// the stream is broken, nothing is left pending
	assert.Error(t, tr.Close())

	stats := tr.Stats()
	assert.Equal(t, uint64(1), stats.Blocks)
	assert.Zero(t, stats.Instructions)
	assert.Zero(t, stats.Frames)
}

func TestNewTraceNeedsOutput(t *testing.T) {
	_, err := NewTrace(&models.TraceConfig{}, testArch, program(0))
	assert.Error(t, err)
	_, err = NewTrace(&models.TraceConfig{TraceWriter: &bufCloser{}}, &models.Arch{}, program(0))
	assert.Error(t, err)
}

func TestTraceTracefile(t *testing.T) {
	path := t.TempDir() + "/out.trace"
	dec := program(0x1000, "nop")
	tr, err := NewTrace(&models.TraceConfig{Tracefile: path}, testArch, dec)
	require.NoError(t, err)
	require.NoError(t, tr.OnBlock(&models.Block{PAddr: 0x1000, VAddr: 0x1000, Count: 1}))
	// the frame is on disk before close
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
	require.NoError(t, tr.Close())
}

func TestTracePurge(t *testing.T) {
	dec := program(0x1000, "nop")
	tr, _ := newTestTrace(t, dec, false)
	block := &models.Block{PAddr: 0x1000, VAddr: 0x1000, Count: 1}
	require.NoError(t, tr.OnBlock(block))
	require.NoError(t, tr.OnBlock(block))
	assert.Equal(t, 1, dec.calls)
	tr.Purge()
	require.NoError(t, tr.OnBlock(block))
	assert.Equal(t, 2, dec.calls)
	stats := tr.Stats()
	assert.Equal(t, uint64(1), stats.CacheHits)
	assert.Equal(t, uint64(2), stats.CacheMisses)
	require.NoError(t, tr.Close())
}

func BenchmarkTraceBlock(b *testing.B) {
	text := make([]string, 8)
	for i := range text {
		text[i] = "lw\ta0, 0(a1)"
	}
	dec := program(0x1000, text...)
	out := &bufCloser{}
	tr, err := NewTrace(&models.TraceConfig{TraceWriter: out}, testArch, dec)
	if err != nil {
		b.Fatal(err)
	}
	block := &models.Block{PAddr: 0x1000, VAddr: 0x1000, Count: 8}
	for i := 0; i < 8; i++ {
		block.Annotate(&models.MemAccess{VAddr: 0x1000 + uint64(i*4), Kind: models.MemRead, Addr: 0x8000})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		out.Reset()
		if err := tr.OnBlock(block); err != nil {
			b.Fatal(err)
		}
	}
}
