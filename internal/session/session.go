package session

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/relayctl/internal/protocol/frame"
	"github.com/danmuck/relayctl/internal/relay"
)

var (
	// ErrTimeout reports that one exchange hit its deadline before any
	// response bytes arrived. The session remains usable.
	ErrTimeout = errors.New("session: exchange timeout")

	// ErrSessionFatal reports a connection-fatal failure. The session must
	// be discarded and a new one dialed.
	ErrSessionFatal = errors.New("session: connection fatal")

	ErrSessionClosed = errors.New("session: closed")
)

// ConnectKind classifies connection establishment failures.
type ConnectKind string

const (
	ConnectUnreachable ConnectKind = "unreachable"
	ConnectRefused     ConnectKind = "refused"
	ConnectTimeout     ConnectKind = "timeout"
)

// ConnectError is a failed attempt to establish a session.
type ConnectError struct {
	Kind ConnectKind
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("session: connect %s: %s: %v", e.Addr, e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Session is one live connection to a relay. At most one exchange may be in
// flight at a time; SendReceive serializes callers internally.
type Session struct {
	conn   net.Conn
	reader *bufio.Reader
	cfg    Config
	limits frame.Limits

	mu        sync.Mutex
	fatal     atomic.Bool
	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// Dial establishes a session to addr, wrapping in TLS when configured.
func Dial(ctx context.Context, addr relay.Address, cfg Config) (*Session, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.ValidateClientTransport(); err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		return nil, classifyConnectErr(addr.String(), err)
	}

	conn := rawConn
	if cfg.TLS.Enabled {
		tlsCfg, err := cfg.clientTLSConfig(addr.Host())
		if err != nil {
			_ = rawConn.Close()
			return nil, err
		}
		tlsConn := tls.Client(rawConn, tlsCfg)
		handshakeCtx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
		defer cancel()
		if err := tlsConn.HandshakeContext(handshakeCtx); err != nil {
			_ = rawConn.Close()
			return nil, classifyConnectErr(addr.String(), err)
		}
		conn = tlsConn
	}

	log.Debug().Str("addr", addr.String()).Bool("tls", cfg.TLS.Enabled).Msg("session established")
	return &Session{
		conn:   conn,
		reader: bufio.NewReader(conn),
		cfg:    cfg,
		limits: frame.DefaultLimits(),
	}, nil
}

// SendReceive writes one request frame and reads one response frame. A
// deadline hit before anything was flushed or received surfaces ErrTimeout
// and leaves the session reusable. Cancellation, partial transfers, and all
// other I/O failures mark the session fatal.
func (s *Session) SendReceive(ctx context.Context, reqFrame []byte) (frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return frame.Frame{}, ErrSessionClosed
	}
	if s.fatal.Load() {
		return frame.Frame{}, ErrSessionFatal
	}

	// Cancellation unblocks in-flight I/O by expiring the deadline. A frame
	// may be half-sent at that point, so the session is condemned first.
	stop := context.AfterFunc(ctx, func() {
		s.fatal.Store(true)
		_ = s.conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := s.conn.SetWriteDeadline(s.deadline(ctx, s.cfg.WriteTimeout)); err != nil {
		return frame.Frame{}, s.condemn(err)
	}
	n, err := s.conn.Write(reqFrame)
	if err != nil {
		if ctx.Err() != nil {
			return frame.Frame{}, s.condemn(ctx.Err())
		}
		if isTimeout(err) && n == 0 {
			// Nothing flushed; the stream is still clean.
			return frame.Frame{}, fmt.Errorf("%w: write: %v", ErrTimeout, err)
		}
		return frame.Frame{}, s.condemn(err)
	}

	if err := s.conn.SetReadDeadline(s.deadline(ctx, s.cfg.ReadTimeout)); err != nil {
		return frame.Frame{}, s.condemn(err)
	}
	cr := &countingReader{r: s.reader}
	f, err := frame.ReadFrame(cr, s.limits)
	if err != nil {
		if ctx.Err() != nil {
			return frame.Frame{}, s.condemn(ctx.Err())
		}
		if isTimeout(err) && cr.n == 0 {
			// No response bytes consumed; frame boundaries are intact and
			// the session can carry the next exchange.
			return frame.Frame{}, fmt.Errorf("%w: read: %v", ErrTimeout, err)
		}
		return frame.Frame{}, s.condemn(err)
	}
	return f, nil
}

// Fatal reports whether the session has been condemned.
func (s *Session) Fatal() bool { return s.fatal.Load() }

// Close releases the connection. Safe to call multiple times and
// concurrently with an in-flight exchange.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func (s *Session) condemn(err error) error {
	s.fatal.Store(true)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrSessionFatal, err)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: peer closed: %v", ErrSessionFatal, err)
	}
	return fmt.Errorf("%w: %v", ErrSessionFatal, err)
}

func (s *Session) deadline(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return deadline
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func classifyConnectErr(addr string, err error) error {
	kind := ConnectUnreachable
	switch {
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		kind = ConnectTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		kind = ConnectRefused
	}
	return &ConnectError{Kind: kind, Addr: addr, Err: err}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
