package usecase

import (
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
	"github.com/rocketscienceinc/tictactoe-peer/internal/tictactoe"
)

type peerChannel interface {
	SendMove(move entity.Move) error
	SendReset(game uint8) error
	IsClosed() bool
}

type botPlayer interface {
	SelectMove(board *entity.Board) (int, error)
}

// Observer is the single state-change notification handed to the presentation layer.
type Observer func(snapshot entity.Snapshot)

// GameController owns one board and is the only code that mutates it. It is not safe for
// concurrent use; callers serialize access (see the session package).
//
// Every NewGame bumps the game number, which travels with moves and resets so that frames sent
// for a game the other side already left are dropped instead of applied to the new board.
type GameController struct {
	logger   *slog.Logger
	mode     entity.Mode
	board    entity.Board
	game     uint8
	peer     peerChannel
	bot      botPlayer
	observer Observer
}

// NewLocalGame - two players sharing one screen.
func NewLocalGame(logger *slog.Logger, observer Observer) *GameController {
	return newGameController(logger, entity.Local(), nil, nil, observer)
}

// NewBotGame - a human against the bot, which plays botMark. If the bot owns X it opens at once.
func NewBotGame(logger *slog.Logger, bot botPlayer, botMark entity.Mark, observer Observer) *GameController {
	that := newGameController(logger, entity.LocalWithAI(botMark), nil, bot, observer)
	that.playBotIfDue()

	return that
}

// NewNetworkGame - the local side of a connected peer session. localRole must already be agreed
// with the peer.
func NewNetworkGame(logger *slog.Logger, localRole entity.Mark, peer peerChannel, observer Observer) *GameController {
	return newGameController(logger, entity.Networked(localRole), peer, nil, observer)
}

func newGameController(logger *slog.Logger, mode entity.Mode, peer peerChannel, bot botPlayer, observer Observer) *GameController {
	return &GameController{
		logger:   logger.With("component", "game_controller", "mode", mode.Kind),
		mode:     mode,
		board:    entity.NewBoard(),
		peer:     peer,
		bot:      bot,
		observer: observer,
	}
}

// SubmitMove - a locally originated move by the given mark. A rejected move returns an error
// wrapping apperror.ErrIllegalMove and changes nothing. In networked mode the accepted move is
// applied first and then sent; a failed send is reported but the move stays applied.
func (that *GameController) SubmitMove(row, col int, by entity.Mark) error {
	log := that.logger.With("method", "SubmitMove", "row", row, "col", col, "by", by)

	if err := that.checkLocalMove(by); err != nil {
		log.Debug("move rejected", "error", err)
		return err
	}

	if err := that.apply(row, col); err != nil {
		log.Debug("move rejected", "error", err)
		return err
	}

	if that.mode.IsNetworked() {
		if err := that.peer.SendMove(entity.Move{Row: row, Col: col, Player: by, Game: that.game}); err != nil {
			log.Error("failed to send move to peer", "error", err)
			return fmt.Errorf("move applied but not delivered: %w", err)
		}
	}

	that.playBotIfDue()

	return nil
}

// Play - SubmitMove on behalf of whoever sits at this screen.
func (that *GameController) Play(row, col int) error {
	return that.SubmitMove(row, col, that.localPlayer())
}

// ApplyRemoteMove - a move received from the peer for the given game. It always belongs to the
// peer's role and is never echoed back. A move for an earlier game crossed a reset on the wire and
// is dropped with apperror.ErrStaleFrame. Anything the local rules reject is a protocol violation.
func (that *GameController) ApplyRemoteMove(row, col int, game uint8) error {
	if !that.mode.IsNetworked() {
		return fmt.Errorf("%w: remote move outside a networked game", apperror.ErrProtocolViolation)
	}

	if that.peer.IsClosed() {
		return apperror.ErrLinkClosed
	}

	switch {
	case isAhead(game, that.game):
		return fmt.Errorf("%w: move for game %d while playing game %d", apperror.ErrProtocolViolation, game, that.game)
	case game != that.game:
		return fmt.Errorf("%w: move for game %d while playing game %d", apperror.ErrStaleFrame, game, that.game)
	}

	if that.board.IsFinished() {
		return fmt.Errorf("%w: %w", apperror.ErrProtocolViolation, apperror.ErrGameFinished)
	}

	if remote := that.mode.Role.Opponent(); that.board.Turn != remote {
		return fmt.Errorf("%w: move by %s on %s's turn: %w",
			apperror.ErrProtocolViolation, remote, that.board.Turn, apperror.ErrNotYourTurn)
	}

	if err := that.apply(row, col); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrProtocolViolation, err)
	}

	return nil
}

// NewGame - clears the board, gives the move to X and starts the next game number. In networked
// mode the peer is told to do the same unless the link is already gone.
func (that *GameController) NewGame() error {
	that.reset(that.game + 1)

	if that.mode.IsNetworked() && !that.peer.IsClosed() {
		if err := that.peer.SendReset(that.game); err != nil {
			that.logger.Error("failed to send reset to peer", "method", "NewGame", "error", err)
			return fmt.Errorf("board reset but peer not notified: %w", err)
		}
	}

	that.playBotIfDue()

	return nil
}

// ApplyRemoteReset - the peer started game number game. A reset that is not ahead of the current
// game means both sides reset at once, or it was overtaken by a later local reset; it is dropped
// with apperror.ErrStaleFrame and the board is kept.
func (that *GameController) ApplyRemoteReset(game uint8) error {
	if !that.mode.IsNetworked() {
		return fmt.Errorf("%w: remote reset outside a networked game", apperror.ErrProtocolViolation)
	}

	if that.peer.IsClosed() {
		return apperror.ErrLinkClosed
	}

	if !isAhead(game, that.game) {
		return fmt.Errorf("%w: reset to game %d while playing game %d", apperror.ErrStaleFrame, game, that.game)
	}

	that.reset(game)

	return nil
}

func (that *GameController) Snapshot() entity.Snapshot {
	return entity.Snapshot{
		Board:      that.board,
		Mode:       that.mode,
		Game:       that.game,
		LinkClosed: that.mode.IsNetworked() && that.peer.IsClosed(),
	}
}

// Role - the mark played at this screen, if there is a single one.
func (that *GameController) Role() (entity.Mark, bool) {
	switch that.mode.Kind {
	case entity.ModeNetworked:
		return that.mode.Role, true
	case entity.ModeLocalWithAI:
		return that.mode.Role.Opponent(), true
	default:
		return entity.Empty, false
	}
}

func (that *GameController) Mode() entity.Mode {
	return that.mode
}

// IsGameOver - true in the GameOver state, false while waiting for a move.
func (that *GameController) IsGameOver() bool {
	return that.board.IsFinished()
}

// Turn - whose move the controller is waiting for.
func (that *GameController) Turn() entity.Mark {
	return that.board.Turn
}

func (that *GameController) checkLocalMove(by entity.Mark) error {
	if that.mode.IsNetworked() && that.peer.IsClosed() {
		return fmt.Errorf("%w: %w", apperror.ErrIllegalMove, apperror.ErrLinkClosed)
	}

	if that.board.IsFinished() {
		return apperror.ErrGameFinished
	}

	if !by.IsPlayer() {
		return fmt.Errorf("%w: %q", apperror.ErrNotYourRole, by)
	}

	if that.mode.IsNetworked() && by != that.mode.Role {
		return fmt.Errorf("%w: local role is %s", apperror.ErrNotYourRole, that.mode.Role)
	}

	if that.mode.WithBot() && by == that.mode.Role {
		return fmt.Errorf("%w: %s is played by the bot", apperror.ErrNotYourRole, by)
	}

	if by != that.board.Turn {
		return apperror.ErrNotYourTurn
	}

	return nil
}

// apply - the one mutation path shared by local, remote and bot moves.
func (that *GameController) apply(row, col int) error {
	if err := tictactoe.ApplyMove(&that.board, row, col); err != nil {
		return err
	}

	status, winner := tictactoe.CheckTerminal(&that.board)
	that.board.Status = status
	that.board.Winner = winner

	if status == entity.StatusInProgress {
		that.board.Turn = that.board.Turn.Opponent()
	} else {
		that.logger.Info("game over", "status", status, "winner", winner)
	}

	that.notify()

	return nil
}

func (that *GameController) reset(game uint8) {
	that.game = game
	that.board.Reset()
	that.notify()
}

// isAhead - whether game a comes after game b, allowing the counter to wrap.
func isAhead(a, b uint8) bool {
	return int8(a-b) > 0
}

func (that *GameController) playBotIfDue() {
	if !that.mode.WithBot() || that.board.IsFinished() || that.board.Turn != that.mode.Role {
		return
	}

	log := that.logger.With("method", "playBotIfDue")

	cell, err := that.bot.SelectMove(&that.board)
	if err != nil {
		log.Error("bot failed to select a move", "error", err)
		return
	}

	row, col, err := entity.RowCol(cell)
	if err != nil {
		log.Error("bot selected an invalid cell", "cell", cell, "error", err)
		return
	}

	if err = that.apply(row, col); err != nil {
		log.Error("bot failed to make turn", "cell", cell, "error", err)
	}
}

func (that *GameController) localPlayer() entity.Mark {
	switch that.mode.Kind {
	case entity.ModeNetworked:
		return that.mode.Role
	case entity.ModeLocalWithAI:
		return that.mode.Role.Opponent()
	default:
		return that.board.Turn
	}
}

func (that *GameController) notify() {
	if that.observer != nil {
		that.observer(that.Snapshot())
	}
}
