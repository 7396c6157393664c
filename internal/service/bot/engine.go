package bot

import (
	"github.com/iamasit07/four-in-a-row/internal/domain"
)

// Player is the automated opponent seated in a slot.
type Player struct {
	Slot domain.Slot
}

func New(slot domain.Slot) *Player {
	return &Player{Slot: slot}
}

// ChooseColumn picks a column for the bot, in priority order:
// win now, block the opponent, best strategic score, center, first open.
// It never returns a full column.
func (p *Player) ChooseColumn(board domain.Board) (int, error) {
	open := board.OpenColumns()
	if len(open) == 0 {
		return -1, domain.ErrBoardFull
	}

	if col, ok := winningColumn(board, open, p.Slot); ok {
		return col, nil
	}

	if col, ok := winningColumn(board, open, p.Slot.Opponent()); ok {
		return col, nil
	}

	if col, ok := strategicColumn(board, open, p.Slot); ok {
		return col, nil
	}

	if board.Open(domain.CenterColumn) {
		return domain.CenterColumn, nil
	}

	return open[0], nil
}

// winningColumn returns the first open column where slot connects four.
func winningColumn(board domain.Board, open []int, slot domain.Slot) (int, bool) {
	for _, col := range open {
		trial, row, err := board.Trial(col, slot)
		if err != nil {
			continue
		}
		if trial.CheckLine(row, col, slot) != nil {
			return col, true
		}
	}
	return -1, false
}

// strategicColumn returns the highest scoring column, lowest index on ties.
// Zero scores still count, so any board with an open column yields a pick.
func strategicColumn(board domain.Board, open []int, slot domain.Slot) (int, bool) {
	best, bestScore := -1, -1
	for _, col := range open {
		trial, row, err := board.Trial(col, slot)
		if err != nil {
			continue
		}
		if score := scorePosition(&trial, row, col, slot); score > bestScore {
			best, bestScore = col, score
		}
	}
	return best, best >= 0
}
