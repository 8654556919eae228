package linestream

import (
	"github.com/pkg/errors"
)

// Errors returned by framer operations.
var (
	// ErrInvalidStream is returned when no stream is provided.
	ErrInvalidStream = errors.New("linestream: invalid stream")
	// ErrUnknownCharset is returned when a charset name cannot be resolved.
	ErrUnknownCharset = errors.New("linestream: unknown charset")
	// ErrUnsupported is returned for a call shape the framer has no defined
	// behavior for, such as a zero-timeout read.
	ErrUnsupported = errors.New("linestream: unsupported configuration")
	// ErrInvalidSize is returned when a raw block size is negative.
	ErrInvalidSize = errors.New("linestream: invalid raw block size")
)

// ErrClosed is returned when operating on a closed framer.
var ErrClosed = errors.New("linestream: framer closed")

// TransportError reports a read or write failure of the underlying stream,
// including timeouts. After a TransportError the framer is unusable and
// every further operation returns the same error.
type TransportError struct {
	Op  string // "read", "write" or "consume"
	Err error
}

func (e *TransportError) Error() string {
	return "linestream: " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline expiring.
func (e *TransportError) Timeout() bool {
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}
