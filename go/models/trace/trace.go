package trace

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/Tarek92l/renode-infrastructure/go/log"
	"github.com/Tarek92l/renode-infrastructure/go/models"
)

type Stats struct {
	Blocks       uint64
	Instructions uint64
	Frames       uint64
	Bytes        uint64
	CacheHits    uint64
	CacheMisses  uint64
}

// Trace owns one trace stream. Every OnBlock call writes exactly one frame.
// A Trace must only be used from the emulation goroutine.
type Trace struct {
	arch   *models.Arch
	config *models.TraceConfig
	log    zerolog.Logger

	dc   *models.Discache
	proc *Processor
	enc  *Encoder
	tf   *TraceWriter

	pending []Step
	out     []Instruction

	blocks, instructions uint64
	closed               bool
}

func NewTrace(config *models.TraceConfig, arch *models.Arch, dec models.Decoder) (*Trace, error) {
	if arch == nil || arch.Classifier == nil {
		return nil, errors.New("trace needs an arch with a classifier")
	}
	logger := log.Trace
	if config.Logger != nil {
		logger = *config.Logger
	}
	w := config.TraceWriter
	if w == nil {
		if config.Tracefile == "" {
			return nil, errors.New("no trace output configured")
		}
		f, err := os.Create(config.Tracefile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create tracefile '%s'", config.Tracefile)
		}
		w = f
	}
	dc := models.NewDiscache(dec, config.CacheSize)
	t := &Trace{
		arch:   arch,
		config: config,
		log:    logger,
		dc:     dc,
		proc:   NewProcessor(dc, logger),
		enc:    NewEncoder(arch, logger),
		tf:     NewWriter(w, config.Compress),
	}
	return t, nil
}

// OnBlock decodes and correlates one executed block and writes it as a frame.
func (t *Trace) OnBlock(b *models.Block) error {
	if t.closed {
		return errors.New("trace is closed")
	}
	steps := t.proc.Process(b)
	t.pending = append(t.pending, steps...)
	t.blocks++
	return t.Flush()
}

// Flush encodes pending steps into one frame and clears the buffers, even on error.
func (t *Trace) Flush() error {
	t.out = t.enc.Encode(t.out[:0], t.pending)
	err := t.tf.WriteFrame(t.out)
	if err == nil {
		t.instructions += uint64(len(t.pending))
	}
	for i := range t.pending {
		t.pending[i] = Step{}
	}
	t.pending = t.pending[:0]
	for i := range t.out {
		t.out[i] = Instruction{}
	}
	t.out = t.out[:0]
	return err
}

// Close writes one last frame with whatever is pending, usually nothing, and
// closes the stream. Calling it again does nothing.
func (t *Trace) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	err := t.Flush()
	if cerr := t.tf.Close(); err == nil {
		err = cerr
	}
	t.log.Debug().Uint64("blocks", t.blocks).Uint64("frames", t.tf.Frames).Msg("trace closed")
	return err
}

// Purge drops cached disassembly, e.g. after the emulator rewrote code memory.
func (t *Trace) Purge() { t.dc.Purge() }

func (t *Trace) Vector() VectorState { return t.enc.Vector() }

func (t *Trace) Stats() Stats {
	return Stats{
		Blocks:       t.blocks,
		Instructions: t.instructions,
		Frames:       t.tf.Frames,
		Bytes:        t.tf.Bytes,
		CacheHits:    t.dc.Hits,
		CacheMisses:  t.dc.Misses,
	}
}
