package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type LoggerType uint8

const (
	ConsoleLogger LoggerType = iota
	JSONLogger
)

var (
	Root   = zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	Trace  = Root.With().Str("component", "trace").Logger()
	Engine = Root.With().Str("component", "engine").Logger()
)

// Options for Init
type Options struct {
	LogLevel zerolog.Level
	Type     LoggerType
	// Out defaults to stderr, trace output may own stdout
	Out io.Writer
}

func ParseLogLevel(loglevel string) (zerolog.Level, error) {
	return zerolog.ParseLevel(loglevel)
}

func Init(opts Options) {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	switch opts.Type {
	case ConsoleLogger:
		out = newConsoleWriter(out)
	}
	Root = zerolog.New(out).Level(opts.LogLevel).With().Timestamp().Logger()
	Trace = Root.With().Str("component", "trace").Logger()
	Engine = Root.With().Str("component", "engine").Logger()
}

func newConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	cw := zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: time.RFC3339}

	cw.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	cw.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("%s |", i)
	}
	return cw
}
