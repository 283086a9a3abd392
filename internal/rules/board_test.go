package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockPieceClearsFullRows(t *testing.T) {
	b := NewBoard()
	for x := 0; x < Width-1; x++ {
		b.set(x, 0)
	}
	fp := FallingPiece{Kind: O, Rotation: North, X: 7, Y: -1}
	result := b.LockPiece(fp)

	assert.Equal(t, KindClear1, result.Kind)
	assert.Equal(t, 1, len(result.ClearedLines))
	assert.False(t, result.LockedOut)
}

func TestLockPiecePerfectClearOverridesGarbage(t *testing.T) {
	b := NewBoard()
	for x := 0; x < Width; x++ {
		if x == 3 {
			continue
		}
		b.set(x, 0)
		b.set(x, 1)
		b.set(x, 2)
		b.set(x, 3)
	}
	fp := FallingPiece{Kind: I, Rotation: East, X: 1, Y: 0}
	result := b.LockPiece(fp)

	require.True(t, result.PerfectClear)
	assert.Equal(t, 10, result.GarbageSent)
}

func TestLockPieceBackToBackTetris(t *testing.T) {
	b := NewBoard()
	b.BackToBack = true
	for x := 0; x < Width-1; x++ {
		b.set(x, 0)
		b.set(x, 1)
		b.set(x, 2)
		b.set(x, 3)
	}
	b.set(0, 4) // a leftover cell above keeps this from being a perfect clear
	fp := FallingPiece{Kind: I, Rotation: West, X: 8, Y: 0}
	result := b.LockPiece(fp)

	assert.Equal(t, KindClear4, result.Kind)
	assert.True(t, result.B2B)
	assert.Equal(t, 5, result.GarbageSent) // 4 base + 1 b2b
}

func TestLockPieceLockOutAboveVisible(t *testing.T) {
	b := NewBoard()
	fp := FallingPiece{Kind: O, Rotation: North, X: 4, Y: VisibleHeight + 2}
	result := b.LockPiece(fp)
	assert.True(t, result.LockedOut)
}

func TestComboCountEscalates(t *testing.T) {
	b := NewBoard()
	for i := 0; i < 3; i++ {
		for x := 0; x < Width-1; x++ {
			b.set(x, 0)
		}
		fp := FallingPiece{Kind: O, Rotation: North, X: 7, Y: -1}
		result := b.LockPiece(fp)
		assert.Equal(t, i, result.Combo)
	}
}

func TestTSpinClassification(t *testing.T) {
	b := NewBoard()
	// Build an overhang pocket a T can spin into from the East orientation:
	// occupy both bottom corners and the top-left corner, leave the slot open.
	b.set(0, 0)
	b.set(2, 0)
	b.set(0, 2)
	for x := 0; x < Width; x++ {
		if x != 1 {
			b.set(x, 0)
		}
	}

	fp := FallingPiece{Kind: T, Rotation: North, X: 0, Y: 0}
	rotated, ok := fp.CW(b)
	require.True(t, ok)
	assert.NotEqual(t, TspinNone, rotated.Tspin)
}

func TestTSpinFullRequiresBothFrontCorners(t *testing.T) {
	b := NewBoard()
	// East-facing T centered at (4,4): front corners are top-right (5,5)
	// and bottom-right (5,3). Occupy both, plus one back corner, for a
	// 3-corner Full T-spin.
	b.set(5, 5)
	b.set(5, 3)
	b.set(3, 5)

	status := classifyTspin(FallingPiece{Kind: T, Rotation: East, X: 3, Y: 3}, b)
	assert.Equal(t, TspinFull, status)
}

func TestTSpinMiniWithOnlyOneFrontCorner(t *testing.T) {
	b := NewBoard()
	// Same East-facing T, but only one front corner (top-right) occupied
	// alongside both back corners - a 3-corner Mini T-spin.
	b.set(5, 5)
	b.set(3, 5)
	b.set(3, 3)

	status := classifyTspin(FallingPiece{Kind: T, Rotation: East, X: 3, Y: 3}, b)
	assert.Equal(t, TspinMini, status)
}

func TestAddGarbageShiftsStackUp(t *testing.T) {
	b := NewBoard()
	b.set(0, 0)
	overflow := b.AddGarbage(5)
	assert.False(t, overflow)
	assert.True(t, b.Occupied(0, 1))
	assert.False(t, b.Occupied(5, 0))
	assert.True(t, b.Occupied(0, 0))
}

func TestStateKeyDedupAndReserveOrigin(t *testing.T) {
	b1 := NewBoard()
	b1.set(0, 0)
	b2 := NewBoard()
	b2.set(0, 0)

	assert.Equal(t, b1.StateKey(T, true), b2.StateKey(T, true))
	assert.NotEqual(t, b1.StateKey(T, true), b1.StateKey(T, false))
	assert.NotEqual(t, b1.StateKey(T, true), b1.StateKey(O, true))

	b2.set(1, 0)
	assert.NotEqual(t, b1.StateKey(T, true), b2.StateKey(T, true))
}

func TestAddNextPieceRefillsBag(t *testing.T) {
	b := NewBoard()
	for _, p := range AllPieces {
		b.AddNextPiece(p)
	}
	assert.Equal(t, FullPieceSet(), b.Bag)
	assert.Equal(t, len(AllPieces), len(b.Queue))
}
