package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
)

type command struct {
	name, desc string
	main       func(args []string)
}

var commands = make(map[string]*command)

// Register adds a subcommand. main receives "prog name" as args[0].
// Registering a name twice is a programming error.
func Register(name, desc string, main func(args []string)) {
	if _, ok := commands[name]; ok {
		panic("cmd: duplicate command " + name)
	}
	commands[name] = &command{name, desc, main}
}

// Usage lists the registered subcommands by name.
func Usage(w io.Writer, prog string) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "Commands:")
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t| %s\n", name, commands[name].desc)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nExample: %s run -arch rv64 -o out.trace firmware.bin\n", prog)
	fmt.Fprintf(w, "         %s trace -pretty out.trace\n\n", prog)
}

// Dispatch runs the subcommand named by argv[1]. It returns false, after
// printing usage to stderr, when there is none.
func Dispatch(argv []string, stderr io.Writer) bool {
	if len(argv) < 2 {
		Usage(stderr, argv[0])
		return false
	}
	cmd, ok := commands[argv[1]]
	if !ok {
		fmt.Fprintf(stderr, "Command '%s' not found.\n\n", argv[1])
		Usage(stderr, argv[0])
		return false
	}
	args := append([]string{argv[0] + " " + argv[1]}, argv[2:]...)
	cmd.main(args)
	return true
}

func Main() {
	if !Dispatch(os.Args, os.Stderr) {
		os.Exit(1)
	}
}
