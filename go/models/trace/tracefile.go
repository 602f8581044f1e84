package trace

import (
	"bufio"
	"bytes"
	"io"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// FrameHeaderSize is the little-endian payload length preceding every frame.
const FrameHeaderSize = 4

// TraceWriter appends length-prefixed frames to a stream, flushing after each one
// so the file is readable up to the last complete frame.
type TraceWriter struct {
	w        io.WriteCloser
	bw       *bufio.Writer
	compress bool

	buf   bytes.Buffer
	zbuf  []byte
	frame []byte

	Frames, Bytes uint64
}

func NewWriter(w io.WriteCloser, compress bool) *TraceWriter {
	return &TraceWriter{w: w, bw: bufio.NewWriter(w), compress: compress}
}

// WriteFrame encodes list as one frame. An empty list still produces a frame.
func (t *TraceWriter) WriteFrame(list []Instruction) error {
	t.buf.Reset()
	t.buf.Write(make([]byte, FrameHeaderSize))
	if err := packPayload(&t.buf, list); err != nil {
		return err
	}
	frame := t.buf.Bytes()
	if t.compress {
		t.zbuf = snappy.Encode(t.zbuf[:cap(t.zbuf)], frame[FrameHeaderSize:])
		t.frame = append(t.frame[:0], frame[:FrameHeaderSize]...)
		t.frame = append(t.frame, t.zbuf...)
		frame = t.frame
	}
	order.PutUint32(frame, uint32(len(frame)-FrameHeaderSize))
	if _, err := t.bw.Write(frame); err != nil {
		return errors.Wrap(err, "failed to write frame")
	}
	if err := t.bw.Flush(); err != nil {
		return errors.Wrap(err, "failed to flush frame")
	}
	t.Frames++
	t.Bytes += uint64(len(frame))
	return nil
}

func (t *TraceWriter) Close() error {
	ferr := t.bw.Flush()
	if err := t.w.Close(); err != nil {
		return errors.Wrap(err, "failed to close trace stream")
	}
	return errors.Wrap(ferr, "failed to flush trace stream")
}

// TraceReader reads frames until the end of the stream.
type TraceReader struct {
	r        io.ReadCloser
	br       *bufio.Reader
	compress bool
	buf      []byte
}

func NewReader(r io.ReadCloser, compress bool) *TraceReader {
	return &TraceReader{r: r, br: bufio.NewReader(r), compress: compress}
}

// Next returns the records of the next frame, or io.EOF after the last one.
func (t *TraceReader) Next() ([]Instruction, error) {
	var tmp [FrameHeaderSize]byte
	if _, err := io.ReadFull(t.br, tmp[:]); err == io.EOF {
		return nil, io.EOF
	} else if err != nil {
		return nil, errors.Wrap(err, "truncated frame header")
	}
	size := int(order.Uint32(tmp[:]))
	if cap(t.buf) < size {
		t.buf = make([]byte, size)
	}
	payload := t.buf[:size]
	if _, err := io.ReadFull(t.br, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.Wrap(err, "truncated frame payload")
	}
	if t.compress {
		var err error
		if payload, err = snappy.Decode(nil, payload); err != nil {
			return nil, errors.Wrap(err, "frame decompression failed")
		}
	}
	return unpackPayload(payload)
}

func (t *TraceReader) Close() error {
	t.br.Reset(nil)
	return t.r.Close()
}
