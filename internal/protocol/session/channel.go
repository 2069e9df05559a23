package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrCleanEOF reports that the peer closed exactly on a read boundary.
	ErrCleanEOF = errors.New("session: clean end of stream")
	// ErrShortRead reports that the peer closed after part of a read was satisfied.
	ErrShortRead = errors.New("session: short read")
	ErrClosed    = errors.New("session: channel closed")
)

// Channel is a byte-oriented duplex connection used for one exchange.
type Channel interface {
	// Write sends all of b or returns an error.
	Write(b []byte) error
	// ReadExact blocks until n bytes arrive. It returns ErrCleanEOF when the
	// peer closed before the first byte and ErrShortRead when it closed after
	// some but not all of them.
	ReadExact(n int) ([]byte, error)
	Close() error
}

// Dialer opens channels. Each call returns a fresh, independently owned channel.
type Dialer interface {
	Open(ctx context.Context, host string, port int) (Channel, error)
}

// TCPDialer opens plain TCP channels.
type TCPDialer struct {
	cfg Config
}

func NewTCPDialer(cfg Config) *TCPDialer {
	return &TCPDialer{cfg: cfg.WithDefaults()}
}

func (d *TCPDialer) Open(ctx context.Context, host string, port int) (Channel, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := net.Dialer{Timeout: d.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewConnChannel(conn, d.cfg), nil
}

// ConnChannel adapts a net.Conn to Channel. Close may be called from another
// goroutine to unblock a pending read or write.
type ConnChannel struct {
	conn      net.Conn
	cfg       Config
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func NewConnChannel(conn net.Conn, cfg Config) *ConnChannel {
	return &ConnChannel{conn: conn, cfg: cfg}
}

func (c *ConnChannel) Write(b []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if c.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	return writeAll(c.conn, b)
}

func (c *ConnChannel) ReadExact(n int) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if c.cfg.ReadTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	}
	return ReadExact(c.conn, n)
}

func (c *ConnChannel) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// ReadExact reads n bytes from r and classifies how the read ended.
func ReadExact(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := io.ReadFull(r, buf)
	switch {
	case err == nil:
		return buf, nil
	case errors.Is(err, io.EOF) && got == 0:
		return nil, ErrCleanEOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return buf[:got], fmt.Errorf("%w: got %d of %d bytes: %w", ErrShortRead, got, n, io.ErrUnexpectedEOF)
	default:
		return buf[:got], err
	}
}

// writeAll loops over partial writes until b is drained.
func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}
