package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
)

// IsLegal - reports whether the player to move may take (row, col).
func IsLegal(board *entity.Board, row, col int) bool {
	return validateMove(board, row, col) == nil
}

// ApplyMove - places board.Turn at (row, col). The turn is not flipped here so that the search can
// place and lift marks without touching turn bookkeeping.
func ApplyMove(board *entity.Board, row, col int) error {
	if err := validateMove(board, row, col); err != nil {
		return fmt.Errorf("invalid move: %w", err)
	}

	index, _ := entity.Index(row, col)
	board.Cells[index] = board.Turn

	return nil
}

// CheckTerminal - evaluates the board after a move. The winner is Empty unless the status is Won.
func CheckTerminal(board *entity.Board) (entity.Status, entity.Mark) {
	for _, combo := range entity.WinCombos {
		a, b, c := board.Cells[combo[0]], board.Cells[combo[1]], board.Cells[combo[2]]
		if a != entity.Empty && a == b && b == c {
			return entity.StatusWon, a
		}
	}

	// the game continues while any cell is free
	if !board.IsFull() {
		return entity.StatusInProgress, entity.Empty
	}

	return entity.StatusDraw, entity.Empty
}

// EmptyCells - indexes of the free cells in ascending order.
func EmptyCells(board *entity.Board) []int {
	cells := make([]int, 0, entity.CellCount)
	for i, cell := range board.Cells {
		if cell == entity.Empty {
			cells = append(cells, i)
		}
	}

	return cells
}

// validateMove - checks if the move is valid.
func validateMove(board *entity.Board, row, col int) error {
	if board.IsFinished() {
		return apperror.ErrGameFinished
	}

	index, err := entity.Index(row, col)
	if err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrInvalidCell, err)
	}

	if board.Cells[index] != entity.Empty {
		return apperror.ErrCellOccupied
	}

	return nil
}
