package run

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/pkg/errors"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/Tarek92l/renode-infrastructure/go/arch"
	"github.com/Tarek92l/renode-infrastructure/go/cmd"
	"github.com/Tarek92l/renode-infrastructure/go/cpu"
	"github.com/Tarek92l/renode-infrastructure/go/cpu/unicorn"
	"github.com/Tarek92l/renode-infrastructure/go/log"
	"github.com/Tarek92l/renode-infrastructure/go/models"
	"github.com/Tarek92l/renode-infrastructure/go/models/trace"
)

const pageSize = 0x1000

func align(n uint64) uint64 { return (n + pageSize - 1) &^ (pageSize - 1) }

// Runner executes a raw code blob under unicorn and traces it.
type Runner struct {
	Arch   *models.Arch
	Config *models.TraceConfig

	Base      uint64
	StackSize uint64
	// Count stops emulation after this many instructions; 0 runs until the end of the blob.
	Count int
	// Vector follows vset* instructions, nil leaves vector fields unset.
	Vector unicorn.VectorReader
}

func (r *Runner) Run(code []byte) (trace.Stats, error) {
	var stats trace.Stats
	if len(code) == 0 {
		return stats, errors.New("empty code blob")
	}
	u, err := uc.NewUnicorn(r.Arch.UC_ARCH, r.Arch.UC_MODE)
	if err != nil {
		return stats, errors.Wrap(err, "uc.NewUnicorn() failed")
	}
	defer u.Close()

	end := r.Base + uint64(len(code))
	if err := u.MemMap(r.Base, align(uint64(len(code)))); err != nil {
		return stats, errors.Wrapf(err, "failed to map code at %#x", r.Base)
	}
	if err := u.MemWrite(r.Base, code); err != nil {
		return stats, errors.Wrap(err, "failed to write code")
	}
	if r.StackSize > 0 {
		stack := align(end) + pageSize
		if err := u.MemMap(stack, align(r.StackSize)); err != nil {
			return stats, errors.Wrapf(err, "failed to map stack at %#x", stack)
		}
		if err := u.RegWrite(r.Arch.SP, stack+align(r.StackSize)); err != nil {
			return stats, errors.Wrap(err, "failed to set stack pointer")
		}
	}

	dec := &cpu.Capstr{Arch: r.Arch, Mem: u}
	tr, err := trace.NewTrace(r.Config, r.Arch, dec)
	if err != nil {
		return stats, err
	}
	tracer := unicorn.NewTracer(u, tr)
	tracer.Vector = r.Vector
	if err := tracer.Attach(); err != nil {
		tr.Close()
		return stats, err
	}

	log.Engine.Info().Str("arch", r.Arch.Name).Uint64("base", r.Base).Int("size", len(code)).Msg("starting emulation")
	runErr := u.StartWithOptions(r.Base, end, &uc.UcOptions{Count: uint64(r.Count)})
	if runErr != nil {
		pc, _ := u.RegRead(r.Arch.PC)
		runErr = errors.Wrapf(runErr, "emulation stopped at %#x", pc)
	}
	if err := tracer.Detach(); err != nil && runErr == nil {
		runErr = err
	}
	if err := tr.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return tr.Stats(), runErr
}

func Main(args []string) {
	// unicorn hooks must stay on one OS thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	fs := flag.NewFlagSet("run", flag.ExitOnError)
	archName := fs.String("arch", "riscv64", "guest architecture (riscv32, riscv64)")
	base := fs.Uint64("base", 0x10000, "load address of the code blob")
	stack := fs.Uint64("stack", 0x10000, "stack size mapped after the code (0 disables)")
	count := fs.Int("count", 0, "stop after this many instructions (0 = run to the end)")
	out := fs.String("o", "trace.bin", "binary trace output file")
	compress := fs.Bool("compress", false, "snappy-compress trace frames")
	cache := fs.Int("cache", models.DefaultDiscacheSize, "disassembly cache entries")
	initLog := cmd.LogFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <code.bin>\n\nOptions:\n", args[0])
		fs.PrintDefaults()
	}
	fs.Parse(args[1:])
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	if err := initLog(); err != nil {
		cmd.PrintError(os.Stderr, err)
		os.Exit(1)
	}

	a, err := arch.GetArch(*archName)
	if err != nil {
		cmd.PrintError(os.Stderr, err)
		os.Exit(1)
	}
	code, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		cmd.PrintError(os.Stderr, errors.Wrap(err, "failed to read code blob"))
		os.Exit(1)
	}
	r := &Runner{
		Arch:      a,
		Config:    &models.TraceConfig{Tracefile: *out, CacheSize: *cache, Compress: *compress},
		Base:      *base,
		StackSize: *stack,
		Count:     *count,
		Vector:    arch.RiscvVector{},
	}
	stats, err := r.Run(code)
	fmt.Fprintf(os.Stderr, "[blocks=%d instructions=%d frames=%d bytes=%d cache hits=%d misses=%d]\n",
		stats.Blocks, stats.Instructions, stats.Frames, stats.Bytes, stats.CacheHits, stats.CacheMisses)
	if err != nil {
		cmd.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func init() { cmd.Register("run", "trace a raw code blob", Main) }
