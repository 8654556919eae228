package linestream

import (
	"time"
)

// options holds the configuration for a framer.
type options struct {
	codec  Codec
	logger Logger
	tracer Tracer // nil disables tracing

	maxLineLength int           // 0 means unbounded
	readTimeout   time.Duration // 0 means no read deadline
	writeTimeout  time.Duration // 0 means no write deadline
}

// Option is a function that configures framer options.
type Option func(*options)

// CodecOption returns an Option that sets the codec used for every line.
// If not set, UTF8 is used.
func CodecOption(codec Codec) Option {
	return func(o *options) {
		o.codec = codec
	}
}

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// TraceOption returns an Option that sets the trace sink.
// Every line read or written and every raw block size is reported to it,
// prefixed with "S:" for inbound and "C:" for outbound traffic.
func TraceOption(tracer Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// MaxLineLengthOption returns an Option that sets the default maximum line
// length in bytes. Longer lines are truncated and the rest of the line is
// discarded. Zero or negative means unbounded.
func MaxLineLengthOption(n int) Option {
	return func(o *options) {
		o.maxLineLength = n
	}
}

// ReadTimeoutOption returns an Option that sets how long a single read of
// the underlying stream may block. The stream must support read deadlines.
func ReadTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.readTimeout = timeout
	}
}

// WriteTimeoutOption returns an Option that sets how long a single write to
// the underlying stream may block. The stream must support write deadlines.
func WriteTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = timeout
	}
}

// checkOptions validates and sets default values for framer options
// against the capabilities of stream.
func checkOptions(opts *options, stream Stream) error {
	if opts.codec == nil {
		opts.codec = UTF8
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	if opts.maxLineLength < 0 {
		opts.maxLineLength = 0
	}

	if opts.readTimeout < 0 {
		opts.readTimeout = 0
	}
	if opts.readTimeout > 0 {
		if _, ok := stream.(readDeadliner); !ok {
			return ErrUnsupported
		}
	}

	if opts.writeTimeout < 0 {
		opts.writeTimeout = 0
	}
	if opts.writeTimeout > 0 {
		if _, ok := stream.(writeDeadliner); !ok {
			return ErrUnsupported
		}
	}

	return nil
}

// readOptions holds the per-call parameters of ReadLine.
type readOptions struct {
	maxLength    int
	maxLengthSet bool
	timeout      time.Duration
	timeoutSet   bool
}

// ReadOption configures a single ReadLine call.
type ReadOption func(*readOptions)

// MaxLength bounds the line returned by this call to n bytes, overriding
// MaxLineLengthOption. n must be positive.
func MaxLength(n int) ReadOption {
	return func(o *readOptions) {
		o.maxLength = n
		o.maxLengthSet = true
	}
}

// Timeout sets how long each underlying read of this call may block,
// overriding ReadTimeoutOption. A negative timeout blocks without a
// deadline. Zero asks for a non-blocking read, which is not supported.
func Timeout(timeout time.Duration) ReadOption {
	return func(o *readOptions) {
		o.timeout = timeout
		o.timeoutSet = true
	}
}
