package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
	"github.com/rocketscienceinc/tictactoe-peer/internal/protocol"
)

type State string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateClosed     State = "closed"
)

var ErrAlreadyUsed = errors.New("channel already used")

// Listener is the accepting half of a transport.
type Listener interface {
	Accept(ctx context.Context) (net.Conn, error)
	Addr() string
	Close() error
}

// Dialer is the connecting half of a transport.
type Dialer interface {
	Dial(ctx context.Context, addr string) (net.Conn, error)
}

// Channel is one peer link. Roles are agreed during Host/Join and never change afterwards.
// Close may be called at any time, including while Host or Join is still waiting; they then fail.
type Channel struct {
	logger           *slog.Logger
	handshakeTimeout time.Duration

	mu        sync.Mutex
	state     State
	listener  Listener
	conn      net.Conn
	localRole entity.Mark
}

func NewChannel(logger *slog.Logger, handshakeTimeout time.Duration) *Channel {
	return &Channel{
		logger:           logger.With("component", "peer_channel"),
		handshakeTimeout: handshakeTimeout,
		state:            StateIdle,
	}
}

// Host - waits for one peer on the listener and assigns roles. The host keeps turn (the mark to
// move on its board right now) and the joiner gets the complement. The listener is closed once a
// peer is accepted or the wait fails.
func (that *Channel) Host(ctx context.Context, listener Listener, turn entity.Mark) error {
	log := that.logger.With("method", "Host", "addr", listener.Addr())

	if !turn.IsPlayer() {
		return fmt.Errorf("host role must be X or O, got %q", turn)
	}

	if err := that.transition(StateIdle, StateListening); err != nil {
		return err
	}

	if err := that.attachListener(listener); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrListen, err)
	}

	defer func() {
		if err := listener.Close(); err != nil {
			log.Debug("failed to close listener", "error", err)
		}
	}()

	log.Info("waiting for peer")

	conn, err := listener.Accept(ctx)
	if err != nil {
		that.setState(StateClosed)
		return fmt.Errorf("%w: %w", apperror.ErrListen, err)
	}

	if err = that.attach(conn); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrListen, err)
	}

	hostRole, joinerRole := turn, turn.Opponent()

	if err = that.handshake(conn, func() error {
		if err := protocol.WriteMessage(conn, protocol.NewHello(hostRole, joinerRole)); err != nil {
			return err
		}

		ack, err := protocol.ReadMessage(conn)
		if err != nil {
			return err
		}

		if echoed, _ := ack.Roles(); ack.Kind != protocol.KindAck || echoed != joinerRole {
			return fmt.Errorf("%w: expected ack for %s, got %q %s", apperror.ErrProtocolViolation, joinerRole, ack.Kind, echoed)
		}

		return nil
	}); err != nil {
		return fmt.Errorf("%w: handshake: %w", apperror.ErrListen, err)
	}

	if err = that.connected(hostRole); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrListen, err)
	}

	log.Info("peer connected", "remote", conn.RemoteAddr().String(), "role", hostRole)

	return nil
}

// Join - connects to a hosting peer and takes the role it assigns.
func (that *Channel) Join(ctx context.Context, dialer Dialer, addr string) error {
	log := that.logger.With("method", "Join", "addr", addr)

	if err := that.transition(StateIdle, StateConnecting); err != nil {
		return err
	}

	conn, err := dialer.Dial(ctx, addr)
	if err != nil {
		that.setState(StateClosed)
		return fmt.Errorf("%w: %w", apperror.ErrConnect, err)
	}

	if err = that.attach(conn); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrConnect, err)
	}

	var role entity.Mark

	if err = that.handshake(conn, func() error {
		hello, err := protocol.ReadMessage(conn)
		if err != nil {
			return err
		}

		if hello.Kind != protocol.KindHello {
			return fmt.Errorf("%w: expected hello, got %q", apperror.ErrProtocolViolation, hello.Kind)
		}

		_, role = hello.Roles()

		return protocol.WriteMessage(conn, protocol.NewAck(role))
	}); err != nil {
		return fmt.Errorf("%w: handshake: %w", apperror.ErrConnect, err)
	}

	if err = that.connected(role); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrConnect, err)
	}

	log.Info("connected to peer", "role", role)

	return nil
}

// LocalRole - the mark agreed for this side; Empty before the handshake completes.
func (that *Channel) LocalRole() entity.Mark {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.localRole
}

func (that *Channel) State() State {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.state
}

func (that *Channel) IsClosed() bool {
	return that.State() == StateClosed
}

// SendMove - writes one move frame.
func (that *Channel) SendMove(move entity.Move) error {
	msg, err := protocol.NewMove(move.Row, move.Col, move.Game)
	if err != nil {
		return fmt.Errorf("failed to encode move: %w", err)
	}

	return that.send(msg)
}

// SendReset - tells the peer that game number game started.
func (that *Channel) SendReset(game uint8) error {
	return that.send(protocol.NewReset(game))
}

// Receive - blocks for the next frame from the peer. Handshake frames after the handshake are
// protocol violations.
func (that *Channel) Receive() (protocol.Message, error) {
	conn, err := that.connectedConn()
	if err != nil {
		return protocol.Message{}, err
	}

	msg, err := protocol.ReadMessage(conn)
	if err != nil {
		if that.IsClosed() {
			return protocol.Message{}, apperror.ErrLinkClosed
		}
		return protocol.Message{}, err
	}

	if msg.Kind != protocol.KindMove && msg.Kind != protocol.KindReset {
		return protocol.Message{}, fmt.Errorf("%w: unexpected %q frame", apperror.ErrProtocolViolation, msg.Kind)
	}

	return msg, nil
}

// Close - moves the channel to Closed. Safe to call more than once. A pending Accept or handshake
// is interrupted.
func (that *Channel) Close() error {
	that.mu.Lock()
	conn, listener := that.conn, that.listener
	alreadyClosed := that.state == StateClosed
	that.state = StateClosed
	that.mu.Unlock()

	if alreadyClosed {
		return nil
	}

	if conn == nil {
		if listener != nil {
			if err := listener.Close(); err != nil {
				that.logger.Debug("failed to close listener", "error", err)
			}
		}
		return nil
	}

	that.logger.Info("peer link closed")

	if err := conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	return nil
}

func (that *Channel) send(msg protocol.Message) error {
	conn, err := that.connectedConn()
	if err != nil {
		return err
	}

	if err = protocol.WriteMessage(conn, msg); err != nil {
		return fmt.Errorf("failed to send %q frame: %w", msg.Kind, err)
	}

	return nil
}

func (that *Channel) connectedConn() (net.Conn, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state != StateConnected {
		return nil, fmt.Errorf("%w: channel is %s", apperror.ErrLinkClosed, that.state)
	}

	return that.conn, nil
}

// handshake - runs the exchange under the handshake deadline and drops the connection on failure.
func (that *Channel) handshake(conn net.Conn, exchange func() error) error {
	if that.handshakeTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(that.handshakeTimeout)); err != nil {
			that.abort(conn)
			return fmt.Errorf("failed to set handshake deadline: %w", err)
		}
	}

	if err := exchange(); err != nil {
		that.abort(conn)
		return err
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		that.abort(conn)
		return fmt.Errorf("failed to clear handshake deadline: %w", err)
	}

	return nil
}

func (that *Channel) abort(conn net.Conn) {
	_ = conn.Close()
	that.setState(StateClosed)
}

// attachListener - records the listener so Close can interrupt Accept.
func (that *Channel) attachListener(listener Listener) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state == StateClosed {
		return apperror.ErrLinkClosed
	}

	that.listener = listener

	return nil
}

// attach - records the handshake connection so Close can interrupt it.
func (that *Channel) attach(conn net.Conn) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state == StateClosed {
		_ = conn.Close()
		return apperror.ErrLinkClosed
	}

	that.conn = conn

	return nil
}

// connected - completes the handshake unless the channel was closed meanwhile.
func (that *Channel) connected(role entity.Mark) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state == StateClosed {
		_ = that.conn.Close()
		return apperror.ErrLinkClosed
	}

	that.localRole = role
	that.state = StateConnected

	return nil
}

func (that *Channel) transition(from, to State) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state != from {
		return fmt.Errorf("%w: channel is %s", ErrAlreadyUsed, that.state)
	}

	that.state = to

	return nil
}

func (that *Channel) setState(state State) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.state = state
}
