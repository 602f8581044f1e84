package trace

import (
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/Tarek92l/renode-infrastructure/go/cmd"
	"github.com/Tarek92l/renode-infrastructure/go/models/trace"
)

func Main(args []string) {
	fs := flag.NewFlagSet("args", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "output trace as line-delimited JSON objects")
	prettyFlag := fs.Bool("pretty", false, "output trace as human-readable console text")
	statsFlag := fs.Bool("stats", false, "only print frame and record counts")
	colorFlag := fs.Bool("color", false, "colorize -pretty output")
	compressed := fs.Bool("compressed", false, "frames were written with snappy compression")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <tracefile>\n", args[0])
		fs.PrintDefaults()
	}

	fs.Parse(args[1:])
	if fs.NArg() == 0 || !(*jsonFlag || *prettyFlag || *statsFlag) {
		fs.Usage()
		os.Exit(1)
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open: %s %v\n", fs.Arg(0), err)
		os.Exit(1)
	}
	tr := trace.NewReader(f, *compressed)
	defer tr.Close()

	switch {
	case *jsonFlag:
		err = PrintJson(tr, os.Stdout)
	case *prettyFlag:
		err = PrintPretty(tr, os.Stdout, *colorFlag)
	case *statsFlag:
		var s Summary
		if s, err = Summarize(tr); err == nil {
			fmt.Printf("frames=%d instructions=%d loads=%d stores=%d branches=%d\n",
				s.Frames, s.Instructions, s.Loads, s.Stores, s.Branches)
		}
	}
	if err != nil {
		cmd.PrintError(os.Stderr, errors.Wrap(err, "error dumping trace"))
		os.Exit(1)
	}
}

func init() { cmd.Register("trace", "dump a saved trace file", Main) }
