package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/tetrisbot/internal/eval"
	"github.com/brensch/tetrisbot/internal/rules"
)

func childBoard(h int) *rules.Board {
	b := rules.NewBoard()
	for x := 0; x < rules.Width; x++ {
		b.ColumnHeights[x] = h
	}
	return b
}

func TestFindAndMarkLeafMarksRootFirst(t *testing.T) {
	s := NewStore(rules.NewBoard())
	id, board, serial, ok := s.FindAndMarkLeaf(nil)
	require.True(t, ok)
	assert.Equal(t, NodeID{0, 0}, id)
	assert.NotNil(t, board)
	assert.Equal(t, uint32(0), serial)

	_, _, _, ok = s.FindAndMarkLeaf(nil)
	assert.False(t, ok, "a second selection should fail while the root is still marked")
}

func TestUpdateKnownEmptyChildrenMarksDeath(t *testing.T) {
	s := NewStore(rules.NewBoard())
	id, _, serial, ok := s.FindAndMarkLeaf(nil)
	require.True(t, ok)

	s.UpdateKnown(id, serial, rules.T, nil)
	assert.True(t, s.IsDead())
}

func TestUpdateKnownRanksDescendingByComposedValue(t *testing.T) {
	s := NewStore(rules.NewBoard())
	id, _, serial, ok := s.FindAndMarkLeaf(nil)
	require.True(t, ok)

	children := []ChildData{
		{Placement: rules.FallingPiece{Kind: rules.T, X: 0}, Board: childBoard(5), Eval: eval.StdValue{Accumulated: 10}, Reward: eval.StdReward(0)},
		{Placement: rules.FallingPiece{Kind: rules.T, X: 1}, Board: childBoard(3), Eval: eval.StdValue{Accumulated: 50}, Reward: eval.StdReward(0)},
		{Placement: rules.FallingPiece{Kind: rules.T, X: 2}, Board: childBoard(9), Eval: eval.StdValue{Accumulated: 1}, Reward: eval.StdReward(0)},
	}
	s.UpdateKnown(id, serial, rules.T, children)

	candidates := s.GetNextCandidates()
	require.Len(t, candidates, 3)
	for i := 1; i < len(candidates); i++ {
		assert.False(t, candidates[i].Composed.(eval.StdValue).Accumulated > candidates[i-1].Composed.(eval.StdValue).Accumulated)
	}
	assert.Equal(t, 0, candidates[0].OriginalRank)
}

func TestDeathPropagatesToAncestorWithNoOtherChildren(t *testing.T) {
	s := NewStore(rules.NewBoard())
	id, _, serial, ok := s.FindAndMarkLeaf(nil)
	require.True(t, ok)

	only := []ChildData{
		{Placement: rules.FallingPiece{Kind: rules.T, X: 0}, Board: childBoard(1), Eval: eval.StdValue{}},
	}
	s.UpdateKnown(id, serial, rules.T, only)
	require.False(t, s.IsDead())

	childID := NodeID{Gen: 1, Slab: 0}
	s.UpdateKnown(childID, s.Serial(), rules.O, nil)
	assert.True(t, s.IsDead())
}

func TestSpeculatedResolvesToKnownOnAddNextPiece(t *testing.T) {
	s := NewStore(rules.NewBoard())
	id, _, serial, ok := s.FindAndMarkLeaf(nil)
	require.True(t, ok)

	branches := map[rules.Piece][]ChildData{
		rules.T: {{Placement: rules.FallingPiece{Kind: rules.T}, Board: childBoard(2), Eval: eval.StdValue{Accumulated: 5}}},
		rules.O: {{Placement: rules.FallingPiece{Kind: rules.O}, Board: childBoard(2), Eval: eval.StdValue{Accumulated: 7}}},
	}
	s.UpdateSpeculated(id, serial, branches)

	s.AddNextPiece(rules.O)

	kc, ok := s.root().Children.(*KnownChildren)
	require.True(t, ok)
	assert.Equal(t, rules.O, kc.Piece)
	require.Len(t, kc.Slice, 1)
	assert.Equal(t, rules.O, kc.Slice[0].Placement.Kind)
}

func TestAdvanceMoveShiftsGenerationsAndBumpsSerial(t *testing.T) {
	s := NewStore(rules.NewBoard())
	id, _, serial, ok := s.FindAndMarkLeaf(nil)
	require.True(t, ok)

	placement := rules.FallingPiece{Kind: rules.T, X: 4}
	s.UpdateKnown(id, serial, rules.T, []ChildData{
		{Placement: placement, Board: childBoard(1), Eval: eval.StdValue{}},
	})

	beforeSerial := s.Serial()
	lock, ok := s.AdvanceMove(placement)
	require.True(t, ok)
	_ = lock
	assert.NotEqual(t, beforeSerial, s.Serial())
	assert.Equal(t, 0, s.Depth())
}

func TestStaleSerialResultIsIgnored(t *testing.T) {
	s := NewStore(rules.NewBoard())
	id, _, serial, ok := s.FindAndMarkLeaf(nil)
	require.True(t, ok)

	s.serial++ // simulate a reset happening concurrently
	s.UpdateKnown(id, serial, rules.T, []ChildData{
		{Placement: rules.FallingPiece{Kind: rules.T}, Board: childBoard(1), Eval: eval.StdValue{}},
	})

	assert.Nil(t, s.root().Children, "stale result must not mutate the tree")
}

func TestBackpropagationIsIdempotent(t *testing.T) {
	s := NewStore(rules.NewBoard())
	id, _, serial, ok := s.FindAndMarkLeaf(nil)
	require.True(t, ok)

	s.UpdateKnown(id, serial, rules.T, []ChildData{
		{Placement: rules.FallingPiece{Kind: rules.T}, Board: childBoard(1), Eval: eval.StdValue{Accumulated: 3}},
	})
	before := s.root().Eval
	s.backpropagate(NodeID{0, 0})
	assert.Equal(t, before, s.root().Eval)
}

func TestResetDetectsPureGarbageShift(t *testing.T) {
	s := NewStore(rules.NewBoard())
	field := s.root().Board.GetField()
	field[0] = 0b1111111110 // one garbage row with a gap at column 0

	var shifted rules.Field
	for y := rules.Height - 1; y >= 1; y-- {
		shifted[y] = field[y-1]
	}
	shifted[0] = 0b1111111101

	d, ok := garbageRowShift(field, shifted)
	assert.True(t, ok)
	assert.Equal(t, 1, d)
}
