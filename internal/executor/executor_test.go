package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/tetrisbot/internal/eval"
	"github.com/brensch/tetrisbot/internal/pathfind"
	"github.com/brensch/tetrisbot/internal/rules"
	"github.com/brensch/tetrisbot/internal/search"
)

func TestUpdateOnSpawnWhenIdleDoesNotReset(t *testing.T) {
	board := rules.NewBoard()
	board.AddNextPiece(rules.T)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	iface, stop := search.Start(ctx, board, search.Options{UseHold: false, Speculate: false, MaxNodes: 10000, Threads: 1}, eval.NewStandardEvaluator())
	defer func() {
		cancel()
		stop()
	}()

	exec := New(iface)
	reset := exec.Update(board, []Event{{Kind: PieceSpawned, NewInQueue: rules.O}})
	assert.False(t, reset)
}

func TestPiecePlacedMismatchTriggersReset(t *testing.T) {
	board := rules.NewBoard()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	iface, stop := search.Start(ctx, board, search.Options{UseHold: false, Speculate: false, MaxNodes: 10000, Threads: 1}, eval.NewStandardEvaluator())
	defer func() {
		cancel()
		stop()
	}()

	exec := New(iface)
	exec.pending = &pendingMove{expected: rules.FallingPiece{Kind: rules.T, X: 3, Y: 19}}
	reset := exec.Update(board, []Event{{Kind: PiecePlaced, Placed: rules.FallingPiece{Kind: rules.T, X: 5, Y: 19}}})
	assert.True(t, reset)
	assert.Nil(t, exec.pending)
}

func TestGarbageAddedAlwaysTriggersReset(t *testing.T) {
	board := rules.NewBoard()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	iface, stop := search.Start(ctx, board, search.Options{UseHold: false, Speculate: false, MaxNodes: 10000, Threads: 1}, eval.NewStandardEvaluator())
	defer func() {
		cancel()
		stop()
	}()

	exec := New(iface)
	reset := exec.Update(board, []Event{{Kind: GarbageAdded}})
	assert.True(t, reset)
}

func TestPieceHeldClearsPendingHoldToggle(t *testing.T) {
	board := rules.NewBoard()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	iface, stop := search.Start(ctx, board, search.Options{UseHold: false, Speculate: false, MaxNodes: 10000, Threads: 1}, eval.NewStandardEvaluator())
	defer func() {
		cancel()
		stop()
	}()

	exec := New(iface)
	exec.pending = &pendingMove{
		holdPending: true,
		expected:    rules.FallingPiece{Kind: rules.T, X: 3, Y: 19},
	}
	exec.step(board, rules.FallingPiece{Kind: rules.T, X: 4, Y: 19})
	require.True(t, exec.buttons.Hold, "first step toggles Hold on while holdPending is set")

	exec.Update(board, []Event{{Kind: PieceHeld}})
	assert.False(t, exec.pending.holdPending)
	assert.False(t, exec.buttons.Hold)

	exec.step(board, rules.FallingPiece{Kind: rules.T, X: 4, Y: 19})
	assert.True(t, exec.buttons.HardDrop, "once holdPending clears, step proceeds to the stored movement list")
}

func TestStepHoldsLeftUntilBlocked(t *testing.T) {
	board := rules.NewBoard()
	exec := &Executor{pending: &pendingMove{
		movements: []pathfind.Movement{pathfind.Left, pathfind.Left},
	}}
	falling := rules.FallingPiece{Kind: rules.T, X: 5, Y: 19}
	exec.step(board, falling)
	assert.True(t, exec.buttons.Left)
	require.Len(t, exec.pending.movements, 2, "movement is only consumed once the rules module reports no further shift")
}

func TestInterfaceStopCompletesPromptly(t *testing.T) {
	board := rules.NewBoard()
	board.AddNextPiece(rules.T)
	ctx, cancel := context.WithCancel(context.Background())

	_, stop := search.Start(ctx, board, search.Options{UseHold: false, Speculate: false, MaxNodes: 200, Threads: 2}, eval.NewStandardEvaluator())
	cancel()

	done := make(chan error, 1)
	go func() { done <- stop() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stop() did not return after context cancellation")
	}
}
