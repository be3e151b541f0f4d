package apperror

import (
	"errors"
	"fmt"
)

// ErrIllegalMove is the parent of every rejected-move error, so callers can test for the whole
// class with errors.Is.
var ErrIllegalMove = errors.New("illegal move")

var (
	ErrGameFinished = fmt.Errorf("%w: game is already finished", ErrIllegalMove)
	ErrCellOccupied = fmt.Errorf("%w: cell is already occupied", ErrIllegalMove)
	ErrInvalidCell  = fmt.Errorf("%w: invalid cell index", ErrIllegalMove)
	ErrNotYourTurn  = fmt.Errorf("%w: it's not your turn", ErrIllegalMove)
	ErrNotYourRole  = fmt.Errorf("%w: mark does not belong to the local player", ErrIllegalMove)
)

var (
	ErrConnect           = errors.New("could not connect to peer")
	ErrListen            = errors.New("could not listen for peer")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrLinkClosed        = errors.New("peer link is closed")
	ErrStaleFrame        = errors.New("frame belongs to a previous game")
)
