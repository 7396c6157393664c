package domain

import "encoding/json"

// Position is a (row, column) pair. It encodes as a two element JSON array.
type Position [2]int

// Board is the 6x7 grid. Row 0 is the top row, row 5 the bottom.
// It is a value type, so assigning it copies every cell.
type Board [Rows][Columns]Slot

// Axes are the four line directions as (row, column) steps: horizontal,
// vertical, and the two diagonals. CheckLine reports each run starting from
// the end opposite to the step, so vertical runs start at the bottom.
var Axes = [4][2]int{
	{0, 1},
	{-1, 0},
	{1, 1},
	{-1, 1},
}

func inBounds(row, col int) bool {
	return row >= 0 && row < Rows && col >= 0 && col < Columns
}

// Open reports whether a disc can still be dropped into column.
func (b *Board) Open(column int) bool {
	if column < 0 || column >= Columns {
		return false
	}
	// here row 0 is the top (0 -> top and 5 -> bottom)
	return b[0][column] == SlotNone
}

// Drop returns the row a disc would land in without changing the board.
func (b *Board) Drop(column int) (int, error) {
	if !b.Open(column) {
		return -1, ErrInvalidColumn
	}
	for row := Rows - 1; row >= 0; row-- {
		if b[row][column] == SlotNone {
			return row, nil
		}
	}
	return -1, ErrInvalidColumn
}

// Place drops a disc for slot into column and returns the landing row.
func (b *Board) Place(column int, slot Slot) (int, error) {
	row, err := b.Drop(column)
	if err != nil {
		return -1, err
	}
	b[row][column] = slot
	return row, nil
}

// Trial places a disc on a copy of the board. The receiver is left untouched.
func (b Board) Trial(column int, slot Slot) (Board, int, error) {
	row, err := b.Place(column, slot)
	if err != nil {
		return b, -1, err
	}
	return b, row, nil
}

// IsFull reports whether every column is closed.
func (b *Board) IsFull() bool {
	for c := 0; c < Columns; c++ {
		if b[0][c] == SlotNone {
			return false
		}
	}
	return true
}

// OpenColumns lists the playable columns in ascending order.
func (b *Board) OpenColumns() []int {
	cols := make([]int, 0, Columns)
	for c := 0; c < Columns; c++ {
		if b.Open(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// CheckLine looks for four or more connected discs of slot through (row, col).
// The run is returned ordered end to end, or nil when there is none.
func (b *Board) CheckLine(row, col int, slot Slot) []Position {
	if !inBounds(row, col) || slot == SlotNone || b[row][col] != slot {
		return nil
	}

	for _, axis := range Axes {
		dr, dc := axis[0], axis[1]

		// walk backwards first so the run comes out in board order
		back := b.walk(row, col, -dr, -dc, slot)
		forward := b.walk(row, col, dr, dc, slot)
		if len(back)+1+len(forward) < ToWin {
			continue
		}

		run := make([]Position, 0, len(back)+1+len(forward))
		for i := len(back) - 1; i >= 0; i-- {
			run = append(run, back[i])
		}
		run = append(run, Position{row, col})
		run = append(run, forward...)
		return run
	}
	return nil
}

// walk collects up to ToWin-1 matching cells from (row, col) along (dr, dc).
func (b *Board) walk(row, col, dr, dc int, slot Slot) []Position {
	cells := make([]Position, 0, ToWin-1)
	r, c := row+dr, col+dc
	for i := 0; i < ToWin-1 && inBounds(r, c) && b[r][c] == slot; i++ {
		cells = append(cells, Position{r, c})
		r += dr
		c += dc
	}
	return cells
}

// Count returns how many discs of slot are connected to (row, col) along
// (dr, dc), and whether the first cell past the run is empty.
func (b *Board) Count(row, col, dr, dc int, slot Slot) (int, bool) {
	cells := b.walk(row, col, dr, dc, slot)
	r, c := row+dr*(len(cells)+1), col+dc*(len(cells)+1)
	return len(cells), inBounds(r, c) && b[r][c] == SlotNone
}

// Cells converts the board into plain ints for transport and storage.
func (b *Board) Cells() [][]int {
	out := make([][]int, Rows)
	for r := 0; r < Rows; r++ {
		out[r] = make([]int, Columns)
		for c := 0; c < Columns; c++ {
			out[r][c] = int(b[r][c])
		}
	}
	return out
}

func (b Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Cells())
}
