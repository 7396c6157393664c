package bot

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamasit07/four-in-a-row/internal/domain"
)

// stripedBoard is a full board with no four in a row anywhere.
func stripedBoard() domain.Board {
	pattern := [domain.Columns]domain.Slot{
		domain.Slot1, domain.Slot1, domain.Slot2, domain.Slot2,
		domain.Slot1, domain.Slot1, domain.Slot2,
	}
	var b domain.Board
	for r := 0; r < domain.Rows; r++ {
		for c := 0; c < domain.Columns; c++ {
			s := pattern[c]
			if r%2 == 1 {
				s = s.Opponent()
			}
			b[r][c] = s
		}
	}
	return b
}

func TestWinBeatsBlock(t *testing.T) {
	var b domain.Board
	for _, row := range []int{5, 4, 3} {
		b[row][6] = domain.Slot2
		b[row][0] = domain.Slot1
	}

	col, err := New(domain.Slot2).ChooseColumn(b)
	require.NoError(t, err)
	assert.Equal(t, 6, col, "winning column must win over the lower blocking column")
}

func TestBlocksOpponentWin(t *testing.T) {
	var b domain.Board
	b[5][0], b[5][1], b[5][2] = domain.Slot1, domain.Slot1, domain.Slot1
	b[4][0], b[4][1] = domain.Slot2, domain.Slot2

	col, err := New(domain.Slot2).ChooseColumn(b)
	require.NoError(t, err)
	assert.Equal(t, 3, col)
}

func TestStrategicTiesGoToLowestColumn(t *testing.T) {
	var b domain.Board

	// on an empty board columns 1..5 all score one point
	col, err := New(domain.Slot2).ChooseColumn(b)
	require.NoError(t, err)
	assert.Equal(t, 1, col)
}

func TestStrategicPrefersConnectedDiscs(t *testing.T) {
	var b domain.Board
	b[5][4] = domain.Slot2
	b[5][0] = domain.Slot1

	// stacking on column 4 builds an open vertical pair plus a horizontal single
	col, err := New(domain.Slot2).ChooseColumn(b)
	require.NoError(t, err)
	assert.Equal(t, 4, col)
}

func TestZeroScoresGoToLowestColumn(t *testing.T) {
	b := stripedBoard()
	b[0][2] = domain.SlotNone
	b[0][3] = domain.SlotNone

	// neither top-row drop scores, the lower column still wins over the center
	col, err := New(domain.Slot2).ChooseColumn(b)
	require.NoError(t, err)
	assert.Equal(t, 2, col)
}

func TestOnlyOpenColumnIsChosen(t *testing.T) {
	b := stripedBoard()
	b[0][4] = domain.SlotNone

	col, err := New(domain.Slot1).ChooseColumn(b)
	require.NoError(t, err)
	assert.Equal(t, 4, col)
}

func TestFullBoard(t *testing.T) {
	_, err := New(domain.Slot1).ChooseColumn(stripedBoard())
	assert.ErrorIs(t, err, domain.ErrBoardFull)
}

func TestNeverPicksFullColumn(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	bot := New(domain.Slot2)

	for game := 0; game < 50; game++ {
		var b domain.Board
		turn := domain.Slot1

		for !b.IsFull() {
			var col int
			if turn == bot.Slot {
				var err error
				col, err = bot.ChooseColumn(b)
				require.NoError(t, err)
				require.True(t, b.Open(col), "bot picked full column %d", col)
			} else {
				open := b.OpenColumns()
				col = open[rng.IntN(len(open))]
			}

			row, err := b.Place(col, turn)
			require.NoError(t, err)
			if b.CheckLine(row, col, turn) != nil {
				break
			}
			turn = turn.Opponent()
		}
	}
}

func TestChooseColumnDoesNotMutateBoard(t *testing.T) {
	var b domain.Board
	b[5][3] = domain.Slot1
	b[5][2] = domain.Slot2
	before := b

	_, err := New(domain.Slot2).ChooseColumn(b)
	require.NoError(t, err)
	assert.Equal(t, before, b)
}
