package service

import (
	"errors"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
	"github.com/rocketscienceinc/tictactoe-peer/internal/tictactoe"
)

const (
	scoreWin  = 1
	scoreLoss = -1
	scoreDraw = 0
)

var ErrNoAvailableMoves = errors.New("no available moves")

type BotService interface {
	SelectMove(board *entity.Board) (int, error)
}

type botService struct {
	maxDepth int
}

// NewBotService - minimax player limited to maxDepth plies. The first ply is always searched.
func NewBotService(maxDepth int) BotService {
	if maxDepth < 1 {
		maxDepth = 1
	}

	return &botService{
		maxDepth: maxDepth,
	}
}

// SelectMove - picks the cell for the mark to move. The board is searched in place and is
// identical to its input when this returns. Among equal scores the lowest index wins.
func (that *botService) SelectMove(board *entity.Board) (int, error) {
	if board.IsFinished() {
		return 0, apperror.ErrGameFinished
	}

	self := board.Turn
	bestCell, bestScore := -1, scoreLoss-1

	for _, cell := range tictactoe.EmptyCells(board) {
		board.Cells[cell] = self
		score := that.minimax(board, self, that.maxDepth-1, false)
		board.Cells[cell] = entity.Empty

		if score > bestScore {
			bestCell, bestScore = cell, score
		}
	}

	if bestCell < 0 {
		return 0, ErrNoAvailableMoves
	}

	return bestCell, nil
}

// minimax - scores the position from self's point of view.
func (that *botService) minimax(board *entity.Board, self entity.Mark, depth int, maximizing bool) int {
	switch status, winner := tictactoe.CheckTerminal(board); status {
	case entity.StatusWon:
		if winner == self {
			return scoreWin
		}
		return scoreLoss
	case entity.StatusDraw:
		return scoreDraw
	}

	if depth == 0 {
		return scoreDraw
	}

	if maximizing {
		best := scoreLoss
		for _, cell := range tictactoe.EmptyCells(board) {
			board.Cells[cell] = self
			best = max(best, that.minimax(board, self, depth-1, false))
			board.Cells[cell] = entity.Empty
		}
		return best
	}

	best := scoreWin
	for _, cell := range tictactoe.EmptyCells(board) {
		board.Cells[cell] = self.Opponent()
		best = min(best, that.minimax(board, self, depth-1, true))
		board.Cells[cell] = entity.Empty
	}
	return best
}
