package entity

import (
	"errors"
	"fmt"
)

const (
	BoardSide = 3
	CellCount = BoardSide * BoardSide
)

// Mark is the content of a cell and, for X and O, the symbol a player plays with.
type Mark string

const (
	Empty   Mark = ""
	PlayerX Mark = "X"
	PlayerO Mark = "O"
)

// Opponent returns the complementary mark. Empty has no opponent.
func (that Mark) Opponent() Mark {
	switch that {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return Empty
	}
}

// IsPlayer reports whether the mark is X or O.
func (that Mark) IsPlayer() bool {
	return that == PlayerX || that == PlayerO
}

func (that Mark) String() string {
	if that == Empty {
		return "-"
	}
	return string(that)
}

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
	StatusDraw       Status = "draw"
)

// IsTerminal reports whether the game has concluded.
func (that Status) IsTerminal() bool {
	return that == StatusWon || that == StatusDraw
}

var ErrOutOfRange = errors.New("coordinates out of range")

// WinCombos lists the eight winning triples by cell index.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board is the authoritative game state. It is a plain value: copying it yields an independent board.
type Board struct {
	Cells  [CellCount]Mark `json:"cells"`
	Turn   Mark            `json:"turn"`
	Status Status          `json:"status"`
	Winner Mark            `json:"winner,omitempty"`
}

func NewBoard() Board {
	return Board{
		Turn:   PlayerX,
		Status: StatusInProgress,
	}
}

// Reset clears every cell and gives the move back to X.
func (that *Board) Reset() {
	*that = NewBoard()
}

func (that *Board) IsFinished() bool {
	return that.Status.IsTerminal()
}

func (that *Board) IsFull() bool {
	for _, cell := range that.Cells {
		if cell == Empty {
			return false
		}
	}

	return true
}

// At returns the mark at (row, col).
func (that *Board) At(row, col int) (Mark, error) {
	index, err := Index(row, col)
	if err != nil {
		return Empty, err
	}

	return that.Cells[index], nil
}

// Index converts a (row, col) pair into its row-major cell index.
func Index(row, col int) (int, error) {
	if row < 0 || row >= BoardSide || col < 0 || col >= BoardSide {
		return 0, fmt.Errorf("%w: row %d, col %d", ErrOutOfRange, row, col)
	}

	return row*BoardSide + col, nil
}

// RowCol converts a row-major cell index back into its (row, col) pair.
func RowCol(index int) (int, int, error) {
	if index < 0 || index >= CellCount {
		return 0, 0, fmt.Errorf("%w: index %d", ErrOutOfRange, index)
	}

	return index / BoardSide, index % BoardSide, nil
}
