package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"nhooyr.io/websocket"
)

// Path is the endpoint a hosting peer serves.
const Path = "/peer"

// Listener serves the peer endpoint and hands every upgraded connection to Accept as a net.Conn
// carrying binary messages.
type Listener struct {
	logger   *slog.Logger
	listener net.Listener
	server   *http.Server
	conns    chan net.Conn
	done     chan struct{}
}

// Listen - starts the HTTP server on port.
func Listen(logger *slog.Logger, port string) (*Listener, error) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %s: %w", port, err)
	}

	that := &Listener{
		logger:   logger.With("component", "websocket_listener"),
		listener: listener,
		conns:    make(chan net.Conn, 1),
		done:     make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(Path, that.upgrade)

	that.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		if err := that.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			that.logger.Error("websocket server stopped", "error", err)
		}
	}()

	return that, nil
}

// upgrade - accepts the websocket handshake. Only the first peer is kept.
func (that *Listener) upgrade(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgrade", "remote", req.RemoteAddr)

	ws, err := websocket.Accept(writer, req, nil)
	if err != nil {
		log.Error("failed to accept websocket", "error", err)
		return
	}

	// the request context ends with this handler, the peer link must outlive it
	conn := websocket.NetConn(context.Background(), ws, websocket.MessageBinary)

	select {
	case that.conns <- conn:
		log.Info("websocket peer connected")
	case <-that.done:
		_ = ws.Close(websocket.StatusGoingAway, "host closed")
	default:
		log.Warn("rejecting extra peer")
		_ = ws.Close(websocket.StatusTryAgainLater, "session busy")
	}
}

func (that *Listener) Accept(ctx context.Context) (net.Conn, error) {
	select {
	case conn := <-that.conns:
		return conn, nil
	case <-that.done:
		return nil, net.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (that *Listener) Addr() string {
	return that.listener.Addr().String()
}

// Close - stops the HTTP server. Connections already handed out stay open.
func (that *Listener) Close() error {
	select {
	case <-that.done:
		return nil
	default:
		close(that.done)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := that.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down websocket server: %w", err)
	}

	return nil
}

// Dialer connects to a hosting peer's websocket endpoint.
type Dialer struct {
	timeout time.Duration
}

func NewDialer(timeout time.Duration) *Dialer {
	return &Dialer{timeout: timeout}
}

func (that *Dialer) Dial(ctx context.Context, addr string) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, that.timeout)
	defer cancel()

	ws, _, err := websocket.Dial(dialCtx, "ws://"+addr+Path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	return websocket.NetConn(context.Background(), ws, websocket.MessageBinary), nil
}
