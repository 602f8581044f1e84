package models

import (
	"io"

	"github.com/rs/zerolog"
)

type TraceConfig struct {
	// Tracefile is created when TraceWriter is nil.
	Tracefile   string
	TraceWriter io.WriteCloser

	// CacheSize bounds the disassembly cache; 0 selects DefaultDiscacheSize.
	CacheSize int
	// Compress snappy-encodes each frame payload.
	Compress bool

	// Logger overrides the package trace logger.
	Logger *zerolog.Logger
}
