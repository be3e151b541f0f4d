package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
	"github.com/rocketscienceinc/tictactoe-peer/internal/protocol"
	"github.com/rocketscienceinc/tictactoe-peer/internal/usecase"
)

var ErrSessionClosed = fmt.Errorf("%w: session closed", apperror.ErrLinkClosed)

// Link is a connected peer channel.
type Link interface {
	SendMove(move entity.Move) error
	SendReset(game uint8) error
	IsClosed() bool
	Receive() (protocol.Message, error)
	LocalRole() entity.Mark
	Close() error
}

type botPlayer interface {
	SelectMove(board *entity.Board) (int, error)
}

// Session runs one game. Every call that touches the controller, including frames from the peer,
// is executed on the goroutine running Run. The observer runs there too and must not call back
// into the session.
type Session struct {
	id       string
	logger   *slog.Logger
	link     Link
	observer usecase.Observer

	controller *usecase.GameController

	events    chan func()
	done      chan struct{}
	closeOnce sync.Once
}

func NewLocal(logger *slog.Logger, observer usecase.Observer) *Session {
	that := newSession(logger, nil, observer)
	that.controller = usecase.NewLocalGame(logger, that.publish)

	return that
}

func NewBot(logger *slog.Logger, bot botPlayer, botMark entity.Mark, observer usecase.Observer) *Session {
	that := newSession(logger, nil, observer)
	that.controller = usecase.NewBotGame(logger, bot, botMark, that.publish)

	return that
}

// NewNetworked - a session over a link whose handshake has completed.
func NewNetworked(logger *slog.Logger, link Link, observer usecase.Observer) *Session {
	that := newSession(logger, link, observer)
	that.controller = usecase.NewNetworkGame(logger, link.LocalRole(), link, that.publish)

	return that
}

func newSession(logger *slog.Logger, link Link, observer usecase.Observer) *Session {
	id := uuid.NewString()

	return &Session{
		id:       id,
		logger:   logger.With("component", "session", "sessionID", id),
		link:     link,
		observer: observer,
		events:   make(chan func()),
		done:     make(chan struct{}),
	}
}

func (that *Session) ID() string {
	return that.id
}

// Run - processes events until ctx ends or Close is called.
func (that *Session) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")
	log.Info("session started")

	if that.link != nil {
		go that.readLoop()
	}

	for {
		select {
		case event := <-that.events:
			event()
		case <-ctx.Done():
			log.Info("context canceled, closing session")
			that.Close()
			return nil
		case <-that.done:
			log.Info("session closed")
			return nil
		}
	}
}

// Done - closed once the session is closed.
func (that *Session) Done() <-chan struct{} {
	return that.done
}

// Close - stops the session and the link. Safe to call more than once.
func (that *Session) Close() {
	that.closeOnce.Do(func() {
		close(that.done)

		if that.link != nil {
			if err := that.link.Close(); err != nil {
				that.logger.Error("failed to close link", "error", err)
			}
		}
	})
}

// Play - a move by whoever sits at this screen.
func (that *Session) Play(row, col int) error {
	var err error
	if postErr := that.do(func() { err = that.controller.Play(row, col) }); postErr != nil {
		return fmt.Errorf("%w: %w", apperror.ErrIllegalMove, postErr)
	}

	return err
}

// SubmitMove - a move by an explicit mark.
func (that *Session) SubmitMove(row, col int, by entity.Mark) error {
	var err error
	if postErr := that.do(func() { err = that.controller.SubmitMove(row, col, by) }); postErr != nil {
		return fmt.Errorf("%w: %w", apperror.ErrIllegalMove, postErr)
	}

	return err
}

func (that *Session) NewGame() error {
	var err error
	if postErr := that.do(func() { err = that.controller.NewGame() }); postErr != nil {
		return postErr
	}

	return err
}

func (that *Session) Snapshot() (entity.Snapshot, error) {
	var snapshot entity.Snapshot
	if err := that.do(func() { snapshot = that.snapshot() }); err != nil {
		return entity.Snapshot{}, err
	}

	return snapshot, nil
}

// Role - the mark played at this screen, if there is a single one.
func (that *Session) Role() (entity.Mark, bool, error) {
	var (
		role entity.Mark
		ok   bool
	)

	if err := that.do(func() { role, ok = that.controller.Role() }); err != nil {
		return entity.Empty, false, err
	}

	return role, ok, nil
}

// do - runs fn on the session goroutine and waits for it.
func (that *Session) do(fn func()) error {
	finished := make(chan struct{})

	select {
	case that.events <- func() { fn(); close(finished) }:
	case <-that.done:
		return ErrSessionClosed
	}

	<-finished

	return nil
}

func (that *Session) readLoop() {
	log := that.logger.With("method", "readLoop")

	for {
		msg, err := that.link.Receive()
		if err != nil {
			_ = that.do(func() { that.handleLinkError(err) })
			return
		}

		if postErr := that.do(func() { that.handleMessage(msg) }); postErr != nil {
			log.Debug("dropping frame, session closed", "kind", msg.Kind)
			return
		}
	}
}

func (that *Session) handleMessage(msg protocol.Message) {
	log := that.logger.With("method", "handleMessage", "kind", msg.Kind)

	var err error

	switch msg.Kind {
	case protocol.KindMove:
		move := msg.Move()
		err = that.controller.ApplyRemoteMove(int(move.Row), int(move.Col), msg.Game)
	case protocol.KindReset:
		err = that.controller.ApplyRemoteReset(msg.Game)
	default:
		err = fmt.Errorf("%w: unexpected %q frame", apperror.ErrProtocolViolation, msg.Kind)
	}

	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrLinkClosed):
		log.Debug("ignoring frame after link closed")
	case errors.Is(err, apperror.ErrStaleFrame):
		log.Debug("dropping frame from a previous game", "game", msg.Game)
	default:
		log.Error("protocol violation, closing link", "error", err)
		that.closeLink()
	}
}

func (that *Session) handleLinkError(err error) {
	log := that.logger.With("method", "handleLinkError")

	switch {
	case errors.Is(err, apperror.ErrLinkClosed):
		log.Debug("link closed locally")
	case errors.Is(err, io.EOF):
		log.Info("peer disconnected")
	case errors.Is(err, apperror.ErrProtocolViolation):
		log.Error("protocol violation, closing link", "error", err)
	default:
		log.Error("failed to receive from peer", "error", err)
	}

	that.closeLink()
}

// closeLink - ends the networked game; the session stays readable until Close.
func (that *Session) closeLink() {
	if that.link.IsClosed() {
		return
	}

	if err := that.link.Close(); err != nil {
		that.logger.Error("failed to close link", "error", err)
	}

	that.publish(that.controller.Snapshot())
}

func (that *Session) snapshot() entity.Snapshot {
	snapshot := that.controller.Snapshot()
	snapshot.SessionID = that.id

	return snapshot
}

func (that *Session) publish(snapshot entity.Snapshot) {
	if that.observer == nil {
		return
	}

	snapshot.SessionID = that.id
	that.observer(snapshot)
}
