// Package linestream frames a raw byte stream into text lines for
// line-oriented network protocols such as IMAP, POP3 and SMTP.
// It accepts any mixture of CR, LF and CRLF terminators, also when a
// terminator is split across reads, enforces an optional maximum line
// length, and can switch into a fixed-size raw read for literal blocks
// embedded in the exchange.
package linestream

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// Stream is the byte source and sink a Framer owns.
//
// Optional capabilities are detected at runtime: io.Closer (released by
// Framer.Close), io.ByteReader (used for the per-byte read loop), and
// SetReadDeadline / SetWriteDeadline (required for timeouts; net.Conn has
// all of them).
type Stream interface {
	io.Reader
	io.Writer
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

var crlf = []byte{cr, lf}

// maxConsecutiveEmptyReads bounds Read calls that return no data and no error.
const maxConsecutiveEmptyReads = 100

// Framer reads and writes CRLF-framed lines over a Stream.
//
// A Framer is not safe for concurrent use: one caller drives it, issuing
// one operation at a time. Close may be called from another goroutine to
// unblock a pending read on streams that support it.
type Framer struct {
	stream Stream
	opts   options

	state   State
	line    []byte
	scratch [1]byte

	// readDeadline and writeDeadline record whether a deadline is
	// currently armed on the stream and must be cleared.
	readDeadline  bool
	writeDeadline bool

	// pending is an error that arrived together with the last byte read; it
	// is raised by the next read.
	pending error

	err    error // first transport fault, sticky
	closed atomic.Bool
}

// NewFramer creates a framer bound to stream.
// It applies the provided options and validates them against the stream's
// capabilities. The framer takes ownership of the stream; Close releases it.
func NewFramer(stream Stream, opt ...Option) (*Framer, error) {
	if stream == nil {
		return nil, ErrInvalidStream
	}

	var opts options
	for _, o := range opt {
		o(&opts)
	}

	err := checkOptions(&opts, stream)
	if err != nil {
		return nil, err
	}

	return &Framer{
		stream: stream,
		opts:   opts,
		state:  StateLineData,
	}, nil
}

// Codec returns the codec used for every line.
func (f *Framer) Codec() Codec {
	return f.opts.codec
}

// State returns the current framing state.
func (f *Framer) State() State {
	return f.state
}

// ReadLine returns the next line with its terminator stripped.
//
// A CR, an LF or a CRLF pair ends a line; a CRLF split across reads or
// across calls is recognised as one terminator. When the stream ends, the
// unterminated remainder is returned once, then every call returns io.EOF
// without touching the stream again.
//
// A line longer than the maximum length is returned truncated to exactly
// that many bytes; the rest of it, up to and including its terminator, is
// discarded so the next call starts a fresh line. A truncated line cannot
// be told apart from a short one.
func (f *Framer) ReadLine(opt ...ReadOption) (string, error) {
	if err := f.usable(); err != nil {
		return "", err
	}

	ro, err := f.readOptions(opt)
	if err != nil {
		return "", err
	}

	if f.state == StateEOF {
		return "", io.EOF
	}

	for {
		b, err := f.readByte(ro.timeout)
		if err == io.EOF {
			f.state = StateEOF
			if len(f.line) == 0 {
				return "", io.EOF
			}
			return f.takeLine()
		}
		if err != nil {
			return "", f.fail("read", err)
		}

		var act action
		f.state, act = step(f.state, b)
		switch act {
		case actEmit:
			return f.takeLine()
		case actAppend:
			f.line = append(f.line, b)
			if ro.maxLength > 0 && len(f.line) >= ro.maxLength {
				f.state = StateExcess
				return f.takeLine()
			}
		}
	}
}

// WriteLine encodes text with the codec and writes it followed by CRLF.
// The terminator is always appended; text must not contain line breaks if
// the protocol needs a single physical line.
func (f *Framer) WriteLine(text string) error {
	if err := f.usable(); err != nil {
		return err
	}

	b, err := f.opts.codec.Encode(text)
	if err != nil {
		return err
	}

	f.trace("C:" + text)
	return f.writeLine(b)
}

// WriteRawLine writes already encoded bytes followed by CRLF.
func (f *Framer) WriteRawLine(b []byte) error {
	if err := f.usable(); err != nil {
		return err
	}

	f.trace(fmt.Sprintf("C: (WRITE RAW [%d] BYTES)", len(b)))
	return f.writeLine(b)
}

// ConsumeRaw reads a block of exactly size bytes, typically a literal whose
// length a previous line announced.
//
// If the previous line ended on a bare CR, the byte following that CR has
// not been consumed yet. ConsumeRaw then reads it first and places it at
// the front of the block, where it counts towards size. For a CRLF-ended
// line this means the block starts with the LF. The framing state is left
// as it is; call ReadLine to resume line mode.
//
// If the stream ends before the block is complete, the bytes read so far
// are returned with io.ErrUnexpectedEOF, or nil with io.EOF if there were
// none, and the framer is at end of stream.
func (f *Framer) ConsumeRaw(size int) ([]byte, error) {
	if err := f.usable(); err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, ErrInvalidSize
	}

	f.trace(fmt.Sprintf("S: (CONSUME RAW [%d] BYTES)", size))

	if size == 0 {
		return []byte{}, nil
	}
	if f.state == StateEOF {
		return nil, io.EOF
	}

	block := make([]byte, size)
	n := 0
	timeout := f.opts.readTimeout

	if f.state == StateSawCR {
		b, err := f.readByte(timeout)
		if err == io.EOF {
			f.state = StateEOF
			return nil, io.EOF
		}
		if err != nil {
			return nil, f.fail("consume", err)
		}
		block[0] = b
		n = 1
	}

	empty := 0
	for n < size {
		if err := f.takePending(); err == io.EOF {
			f.state = StateEOF
			break
		} else if err != nil {
			return nil, f.fail("consume", err)
		}
		if err := f.armReadDeadline(timeout); err != nil {
			return nil, f.fail("consume", err)
		}

		m, err := f.stream.Read(block[n:])
		n += m
		if err == io.EOF {
			f.state = StateEOF
			break
		}
		if err != nil {
			return nil, f.fail("consume", err)
		}

		if m > 0 {
			empty = 0
			continue
		}
		empty++
		if empty >= maxConsecutiveEmptyReads {
			return nil, f.fail("consume", io.ErrNoProgress)
		}
	}

	switch {
	case n == size:
		return block, nil
	case n == 0:
		return nil, io.EOF
	default:
		return block[:n], io.ErrUnexpectedEOF
	}
}

// Close releases the underlying stream. It is safe to call multiple times
// and from another goroutine; only the first call closes the stream.
func (f *Framer) Close() error {
	if f.closed.Swap(true) {
		return nil // already closed
	}

	if c, ok := f.stream.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// IsClosed returns true if the framer has been closed.
func (f *Framer) IsClosed() bool {
	return f.closed.Load()
}

// usable returns the error an operation must fail with, if any.
func (f *Framer) usable() error {
	if f.closed.Load() {
		return ErrClosed
	}
	return f.err
}

// readOptions merges per-call options over the framer defaults.
func (f *Framer) readOptions(opt []ReadOption) (readOptions, error) {
	var ro readOptions
	for _, o := range opt {
		o(&ro)
	}

	if !ro.maxLengthSet {
		ro.maxLength = f.opts.maxLineLength
	} else if ro.maxLength <= 0 {
		return ro, errors.Wrapf(ErrUnsupported, "max length %d", ro.maxLength)
	}

	if !ro.timeoutSet {
		ro.timeout = f.opts.readTimeout
	} else if ro.timeout == 0 {
		return ro, errors.Wrap(ErrUnsupported, "non-blocking read")
	}

	if ro.timeout > 0 {
		if _, ok := f.stream.(readDeadliner); !ok {
			return ro, errors.Wrap(ErrUnsupported, "stream has no read deadline")
		}
	}

	return ro, nil
}

// readByte reads a single byte from the stream.
func (f *Framer) readByte(timeout time.Duration) (byte, error) {
	if err := f.takePending(); err != nil {
		return 0, err
	}
	if err := f.armReadDeadline(timeout); err != nil {
		return 0, err
	}

	if br, ok := f.stream.(io.ByteReader); ok {
		return br.ReadByte()
	}

	for empty := 0; empty < maxConsecutiveEmptyReads; empty++ {
		n, err := f.stream.Read(f.scratch[:])
		if n == 1 {
			f.pending = err
			return f.scratch[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
	return 0, io.ErrNoProgress
}

// takePending returns and clears the error held back by readByte.
func (f *Framer) takePending() error {
	err := f.pending
	f.pending = nil
	return err
}

// armReadDeadline sets a read deadline timeout from now, or clears a
// previously armed one when timeout is not positive.
func (f *Framer) armReadDeadline(timeout time.Duration) error {
	rd, ok := f.stream.(readDeadliner)
	if !ok {
		return nil
	}

	if timeout > 0 {
		f.readDeadline = true
		return rd.SetReadDeadline(time.Now().Add(timeout))
	}
	if f.readDeadline {
		f.readDeadline = false
		return rd.SetReadDeadline(time.Time{})
	}
	return nil
}

// writeLine writes b and the CRLF terminator in a single write.
func (f *Framer) writeLine(b []byte) error {
	if wd, ok := f.stream.(writeDeadliner); ok {
		var err error
		if f.opts.writeTimeout > 0 {
			f.writeDeadline = true
			err = wd.SetWriteDeadline(time.Now().Add(f.opts.writeTimeout))
		} else if f.writeDeadline {
			f.writeDeadline = false
			err = wd.SetWriteDeadline(time.Time{})
		}
		if err != nil {
			return f.fail("write", err)
		}
	}

	buf := make([]byte, 0, len(b)+len(crlf))
	buf = append(buf, b...)
	buf = append(buf, crlf...)

	if _, err := f.stream.Write(buf); err != nil {
		return f.fail("write", err)
	}
	return nil
}

// takeLine decodes and returns the accumulated line and resets the
// accumulator.
func (f *Framer) takeLine() (string, error) {
	line, err := f.opts.codec.Decode(f.line)
	f.line = f.line[:0]
	if err != nil {
		return "", err
	}

	f.trace("S:" + line)
	return line, nil
}

// fail records a transport fault. The framer is unusable afterwards.
func (f *Framer) fail(op string, err error) error {
	f.opts.logger.Debug("transport error", "op", op, "state", f.state, "error", err)
	f.err = &TransportError{Op: op, Err: errors.WithStack(err)}
	return f.err
}

func (f *Framer) trace(record string) {
	if f.opts.tracer != nil {
		f.opts.tracer.Trace(record)
	}
}
