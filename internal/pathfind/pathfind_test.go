package pathfind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/tetrisbot/internal/rules"
)

func TestFindMovesOnEmptyBoardCoversAllColumns(t *testing.T) {
	board := rules.NewBoard()
	spawn, ok := rules.Spawn(rules.O, board, rules.Row19Or20)
	require.True(t, ok)

	placements := FindMoves(board, spawn, ZeroG)
	require.NotEmpty(t, placements)

	cols := map[int]bool{}
	for _, p := range placements {
		cols[p.Location.X] = true
	}
	// O piece is 2 wide, so columns 0..8 are all valid left edges.
	assert.True(t, len(cols) >= 8)
}

func TestFindMovesIsDeterministicAcrossCalls(t *testing.T) {
	board := rules.NewBoard()
	spawn, ok := rules.Spawn(rules.T, board, rules.Row19Or20)
	require.True(t, ok)

	first := FindMoves(board, spawn, ZeroG)
	for i := 0; i < 10; i++ {
		next := FindMoves(board, spawn, ZeroG)
		require.Len(t, next, len(first))
		for j := range first {
			assert.Equal(t, first[j].Location, next[j].Location, "placement order must not vary across calls")
		}
	}
}

func TestFindMovesHardDropOnlyGivesSingleLandingPerOrientation(t *testing.T) {
	board := rules.NewBoard()
	spawn, ok := rules.Spawn(rules.T, board, rules.Row19Or20)
	require.True(t, ok)

	placements := FindMoves(board, spawn, HardDropOnly)
	require.Len(t, placements, 1)
	assert.Equal(t, spawn.X, placements[0].Location.X)
}

func TestFindMovesLandingsRestOnStack(t *testing.T) {
	board := rules.NewBoard()
	for x := 0; x < rules.Width; x++ {
		if x != 5 {
			board.ColumnHeights[x] = 3
			for y := 0; y < 3; y++ {
				board.Rows[y] |= 1 << uint(x)
			}
		}
	}
	spawn, ok := rules.Spawn(rules.I, board, rules.Row19Or20)
	require.True(t, ok)

	placements := FindMoves(board, spawn, ZeroG)
	found := false
	for _, p := range placements {
		if p.Location.Rotation == rules.East || p.Location.Rotation == rules.West {
			for _, c := range p.Location.Cells() {
				if c.X == 5 {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "expected a vertical I placement reaching into the column-5 well")
}
