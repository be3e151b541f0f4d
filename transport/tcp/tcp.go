package tcp

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Listener accepts peer connections on a TCP port.
type Listener struct {
	listener net.Listener
}

// Listen - binds the port; an empty host listens on all interfaces.
func Listen(port string) (*Listener, error) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %s: %w", port, err)
	}

	return &Listener{listener: listener}, nil
}

// Accept - waits for one connection or for ctx to end.
func (that *Listener) Accept(ctx context.Context) (net.Conn, error) {
	type accepted struct {
		conn net.Conn
		err  error
	}

	result := make(chan accepted, 1)
	go func() {
		conn, err := that.listener.Accept()
		result <- accepted{conn: conn, err: err}
	}()

	select {
	case res := <-result:
		if res.err != nil {
			return nil, fmt.Errorf("failed to accept connection: %w", res.err)
		}
		return res.conn, nil
	case <-ctx.Done():
		// unblocks the pending Accept
		_ = that.listener.Close()
		if res := <-result; res.conn != nil {
			_ = res.conn.Close()
		}
		return nil, ctx.Err()
	}
}

func (that *Listener) Addr() string {
	return that.listener.Addr().String()
}

func (that *Listener) Close() error {
	if err := that.listener.Close(); err != nil {
		return fmt.Errorf("failed to close listener: %w", err)
	}

	return nil
}

// Dialer connects to a listening peer within a fixed timeout.
type Dialer struct {
	timeout time.Duration
}

func NewDialer(timeout time.Duration) *Dialer {
	return &Dialer{timeout: timeout}
}

func (that *Dialer) Dial(ctx context.Context, addr string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: that.timeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	return conn, nil
}
