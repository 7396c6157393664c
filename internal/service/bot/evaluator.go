package bot

import (
	"github.com/iamasit07/four-in-a-row/internal/domain"
)

const (
	SCORE_LINE      = 100 // three or more connected
	SCORE_OPEN_PAIR = 10  // two connected with room on at least one side
	SCORE_OPEN_ONE  = 1   // a lone disc with room on both sides
)

// scorePosition sums the line potential of a disc at (row, col) on all four axes.
func scorePosition(board *domain.Board, row, col int, slot domain.Slot) int {
	score := 0
	for _, dir := range domain.Axes {
		score += linePotential(board, row, col, dir[0], dir[1], slot)
	}
	return score
}

func linePotential(board *domain.Board, row, col, dRow, dCol int, slot domain.Slot) int {
	posCount, posOpen := board.Count(row, col, dRow, dCol, slot)
	negCount, negOpen := board.Count(row, col, -dRow, -dCol, slot)

	count := 1 + posCount + negCount
	empty := 0
	if posOpen {
		empty++
	}
	if negOpen {
		empty++
	}

	switch {
	case count >= 3:
		return SCORE_LINE
	case count == 2 && empty > 0:
		return SCORE_OPEN_PAIR
	case count == 1 && empty > 1:
		return SCORE_OPEN_ONE
	}
	return 0
}
