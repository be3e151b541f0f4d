package tictactoe

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
)

const (
	x = entity.PlayerX
	o = entity.PlayerO
	e = entity.Empty
)

func TestIsLegal(t *testing.T) {
	t.Run("Empty cell on a running game", func(t *testing.T) {
		board := entity.NewBoard()

		assert.True(t, IsLegal(&board, 0, 0))
		assert.True(t, IsLegal(&board, 2, 2))
	})

	t.Run("Occupied cell", func(t *testing.T) {
		board := entity.NewBoard()
		board.Cells[4] = x

		assert.False(t, IsLegal(&board, 1, 1))
	})

	t.Run("Out of range", func(t *testing.T) {
		board := entity.NewBoard()

		assert.False(t, IsLegal(&board, 3, 0))
		assert.False(t, IsLegal(&board, 0, -1))
	})

	t.Run("Finished game", func(t *testing.T) {
		board := entity.NewBoard()
		board.Status = entity.StatusDraw

		assert.False(t, IsLegal(&board, 0, 0))
	})
}

func TestApplyMove(t *testing.T) {
	t.Run("Places the mark to move without flipping the turn", func(t *testing.T) {
		// Given: a new board
		board := entity.NewBoard()

		// When: X takes the top-right corner
		err := ApplyMove(&board, 0, 2)

		// Then: only that cell changed and X is still to move
		require.NoError(t, err)

		expected := entity.NewBoard()
		expected.Cells[2] = x
		assert.Equal(t, expected, board)
	})

	t.Run("Occupied cell leaves the board untouched", func(t *testing.T) {
		// Given: a board with X at cell 0 and O to move
		board := entity.NewBoard()
		board.Cells[0] = x
		board.Turn = o
		before := board

		// When: O tries cell 0
		err := ApplyMove(&board, 0, 0)

		// Then: ErrCellOccupied is returned and nothing changed
		require.ErrorIs(t, err, apperror.ErrCellOccupied)
		assert.ErrorIs(t, err, apperror.ErrIllegalMove)
		assert.Equal(t, before, board)
	})

	t.Run("Invalid cell", func(t *testing.T) {
		board := entity.NewBoard()

		err := ApplyMove(&board, 5, 1)

		assert.ErrorIs(t, err, apperror.ErrInvalidCell)
		assert.ErrorIs(t, err, entity.ErrOutOfRange)
	})

	t.Run("Finished game", func(t *testing.T) {
		board := entity.NewBoard()
		board.Status = entity.StatusWon
		board.Winner = x

		err := ApplyMove(&board, 1, 1)

		assert.ErrorIs(t, err, apperror.ErrGameFinished)
		assert.Equal(t, e, board.Cells[4])
	})
}

func TestCheckTerminal(t *testing.T) {
	t.Run("Every winning triple is detected", func(t *testing.T) {
		for _, combo := range entity.WinCombos {
			// Given: a board where only this triple holds O
			board := entity.NewBoard()
			for _, i := range combo {
				board.Cells[i] = o
			}

			// When: the board is checked
			status, winner := CheckTerminal(&board)

			// Then: O has won
			assert.Equal(t, entity.StatusWon, status, "combo %v", combo)
			assert.Equal(t, o, winner, "combo %v", combo)
		}
	})

	t.Run("Mixed triple does not win", func(t *testing.T) {
		board := entity.NewBoard()
		board.Cells = [9]entity.Mark{x, x, o, e, e, e, e, e, e}

		status, winner := CheckTerminal(&board)

		assert.Equal(t, entity.StatusInProgress, status)
		assert.Equal(t, e, winner)
	})

	t.Run("Full board without a triple is a draw", func(t *testing.T) {
		board := entity.NewBoard()
		board.Cells = [9]entity.Mark{
			x, o, x,
			x, o, o,
			o, x, x,
		}

		status, winner := CheckTerminal(&board)

		assert.Equal(t, entity.StatusDraw, status)
		assert.Equal(t, e, winner)
	})

	t.Run("Win on the last free cell is a win, not a draw", func(t *testing.T) {
		board := entity.NewBoard()
		board.Cells = [9]entity.Mark{
			x, o, x,
			o, x, o,
			o, x, x,
		}

		status, winner := CheckTerminal(&board)

		assert.Equal(t, entity.StatusWon, status)
		assert.Equal(t, x, winner)
	})
}

// Random legal games alternating X and O stay in progress until a triple or a full board appears.
func TestCheckTerminal_RandomGames(t *testing.T) {
	rnd := rand.New(rand.NewSource(42)) //nolint: gosec // deterministic test input

	for game := 0; game < 500; game++ {
		board := entity.NewBoard()

		for {
			free := EmptyCells(&board)
			cell := free[rnd.Intn(len(free))]
			row, col, err := entity.RowCol(cell)
			require.NoError(t, err)

			require.NoError(t, ApplyMove(&board, row, col), "game %d", game)

			status, winner := CheckTerminal(&board)
			if status == entity.StatusInProgress {
				assert.False(t, hasTriple(board), "game %d", game)
				assert.False(t, board.IsFull(), "game %d", game)
				board.Turn = board.Turn.Opponent()
				continue
			}

			if status == entity.StatusWon {
				assert.Equal(t, board.Turn, winner, "only the mover can complete a triple")
			} else {
				assert.True(t, board.IsFull())
			}
			break
		}
	}
}

func TestEmptyCells(t *testing.T) {
	board := entity.NewBoard()
	board.Cells[0] = x
	board.Cells[4] = o
	board.Cells[8] = x

	assert.Equal(t, []int{1, 2, 3, 5, 6, 7}, EmptyCells(&board))
}

func hasTriple(board entity.Board) bool {
	for _, combo := range entity.WinCombos {
		a := board.Cells[combo[0]]
		if a != e && a == board.Cells[combo[1]] && a == board.Cells[combo[2]] {
			return true
		}
	}

	return false
}
