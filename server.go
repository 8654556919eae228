package linestream

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Handler is the interface for serving a line-oriented connection.
// The framer is closed by the server once Handle returns, and also when the
// shutdown grace period ends or Close is called, so a blocked read is
// released. ctx is the context passed to Serve; its cancellation tells the
// handler to wind down.
type Handler interface {
	Handle(ctx context.Context, f *Framer) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, f *Framer) error

// Handle calls fn(ctx, f).
func (fn HandlerFunc) Handle(ctx context.Context, f *Framer) error {
	return fn(ctx, f)
}

// Server represents a TCP server that serves line-oriented connections.
type Server struct {
	listener        *net.TCPListener
	logger          Logger
	shutdownTimeout time.Duration
	maxConns        int
	framerOpts      []Option

	mu          sync.Mutex
	shutdown    bool
	release     context.CancelFunc // closes the framers of the running Serve
	shutdownNow chan struct{} // signals immediate shutdown, bypassing timeout
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// ServerLoggerOption sets the logger for the server.
// Framers created by the server log to it unless FramerOptions overrides it.
func ServerLoggerOption(logger Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// ServerShutdownTimeoutOption sets the graceful shutdown timeout.
// When the context is canceled, the server stops accepting at once and lets
// running handlers keep their connections for up to this duration before
// closing them. Default is 0 (immediate shutdown).
func ServerShutdownTimeoutOption(timeout time.Duration) ServerOption {
	return func(s *Server) {
		s.shutdownTimeout = timeout
	}
}

// ServerMaxConnsOption limits the number of connections handled at once.
// Accepting pauses while the limit is reached. Zero means no limit.
func ServerMaxConnsOption(n int) ServerOption {
	return func(s *Server) {
		s.maxConns = n
	}
}

// FramerOptions sets the options used for every accepted connection.
func FramerOptions(opts ...Option) ServerOption {
	return func(s *Server) {
		s.framerOpts = append(s.framerOpts, opts...)
	}
}

// New creates a new TCP server bound to the specified address.
// Returns an error if the address cannot be bound.
func New(addr *net.TCPAddr, opts ...ServerOption) (*Server, error) {
	listener, err := net.ListenTCP(addr.Network(), addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		listener:    listener,
		logger:      slog.Default(),
		shutdownNow: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Serve accepts connections and runs handler for each of them in its own
// goroutine. It blocks until the context is canceled, Close is called or
// accepting fails, then waits for running handlers to return.
//
// Accepting stops as soon as the context is canceled. Running handlers keep
// their connections for the ServerShutdownTimeoutOption grace period, after
// which their framers are closed. Call Close() to end the grace period early.
func (s *Server) Serve(ctx context.Context, handler Handler) error {
	s.logger.Info("server started", "addr", s.listener.Addr())

	var group errgroup.Group
	if s.maxConns > 0 {
		group.SetLimit(s.maxConns)
	}

	// connCtx outlives ctx by the grace period; canceling it closes every
	// framer handed out by this call.
	connCtx, release := context.WithCancel(context.WithoutCancel(ctx))
	defer release()

	s.mu.Lock()
	s.release = release
	if s.shutdown {
		release()
	}
	s.mu.Unlock()

	// Start a goroutine to handle context cancellation
	go func() {
		select {
		case <-ctx.Done():
		case <-connCtx.Done():
			return
		}

		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		// Set a deadline to unblock Accept
		_ = s.listener.SetDeadline(time.Now())

		// Give running handlers the grace period, but allow early exit via Close()
		if s.shutdownTimeout > 0 {
			s.logger.Info("graceful shutdown initiated", "timeout", s.shutdownTimeout)
			select {
			case <-time.After(s.shutdownTimeout):
			case <-s.shutdownNow:
				s.logger.Debug("shutdown timeout bypassed via Close()")
			case <-connCtx.Done():
			}
		}
		release()
	}()

	for {
		conn, err := s.listener.AcceptTCP()
		if err != nil {
			s.mu.Lock()
			isShutdown := s.shutdown
			s.mu.Unlock()

			if isShutdown {
				_ = group.Wait()
				s.logger.Info("server stopped", "addr", s.listener.Addr())
				return ctx.Err()
			}

			// Check if it's a temporary error
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Error("accept error", "error", err)
			release()
			_ = group.Wait()
			return err
		}

		s.logger.Debug("accepted connection", "remote_addr", conn.RemoteAddr())
		_ = conn.SetNoDelay(true)

		opts := append([]Option{LoggerOption(s.logger)}, s.framerOpts...)
		framer, err := NewFramer(conn, opts...)
		if err != nil {
			s.logger.Error("framer setup failed", "remote_addr", conn.RemoteAddr(), "error", err)
			_ = conn.Close()
			continue
		}

		group.Go(func() error {
			s.handle(ctx, connCtx, handler, framer, conn.RemoteAddr())
			return nil
		})
	}
}

// handle runs handler on one connection and releases it afterwards, or
// earlier when connCtx ends.
func (s *Server) handle(ctx, connCtx context.Context, handler Handler, f *Framer, addr net.Addr) {
	stop := context.AfterFunc(connCtx, func() {
		_ = f.Close()
	})
	defer stop()
	defer f.Close()

	s.logger.Info("connection established", "addr", addr)

	err := handler.Handle(ctx, f)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, ErrClosed) {
		s.logger.Info("connection closed with error", "addr", addr, "error", err)
		return
	}
	s.logger.Info("connection closed", "addr", addr)
}

// Close stops the server by closing the underlying listener and the
// connections of running handlers.
// If a shutdown timeout is configured, Close() bypasses the remaining timeout.
// Any blocked Accept calls will return with an error.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	release := s.release
	s.mu.Unlock()

	// Signal to bypass any pending shutdown timeout
	select {
	case s.shutdownNow <- struct{}{}:
	default:
	}

	if release != nil {
		release()
	}
	return s.listener.Close()
}

// Addr returns the listener's network address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Dial connects to address and returns a framer that owns the connection.
func Dial(ctx context.Context, network, address string, opt ...Option) (*Framer, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}

	f, err := NewFramer(conn, opt...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return f, nil
}
