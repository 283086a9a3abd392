package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/tetrisbot/internal/eval"
	"github.com/brensch/tetrisbot/internal/rules"
)

func queueBoard(pieces ...rules.Piece) *rules.Board {
	b := rules.NewBoard()
	b.Bag = rules.FullPieceSet()
	for _, p := range pieces {
		b.AddNextPiece(p)
	}
	return b
}

func TestThinkExpandsRootWithKnownQueue(t *testing.T) {
	board := queueBoard(rules.T, rules.O, rules.I)
	bot := NewBot(board, Options{Mode: 0, UseHold: true, Speculate: false, MaxNodes: 10000}, eval.NewStandardEvaluator())

	require.True(t, bot.Think())
	assert.Greater(t, bot.store.Nodes(), 1)
}

func TestThinkSpeculatesWithEmptyQueue(t *testing.T) {
	board := rules.NewBoard()
	board.Bag = rules.FullPieceSet()
	bot := NewBot(board, Options{UseHold: false, Speculate: true, MaxNodes: 10000}, eval.NewStandardEvaluator())

	require.True(t, bot.Think())
	assert.Greater(t, bot.store.Nodes(), 1)
}

func TestNextMoveWithholdsBelowMinNodes(t *testing.T) {
	board := queueBoard(rules.T, rules.O, rules.I)
	bot := NewBot(board, Options{UseHold: true, Speculate: false, MinNodes: 1000, MaxNodes: 10000}, eval.NewStandardEvaluator())

	bot.Think()
	_, _, ok := bot.NextMove(0)
	assert.False(t, ok)
}

func TestNextMoveReturnsAPlacementOnceExpanded(t *testing.T) {
	board := queueBoard(rules.T, rules.O, rules.I, rules.L, rules.J)
	bot := NewBot(board, Options{UseHold: true, Speculate: false, MaxNodes: 10000}, eval.NewStandardEvaluator())

	for i := 0; i < 50 && bot.Think(); i++ {
	}

	mv, info, ok := bot.NextMove(0)
	require.True(t, ok)
	assert.NotEmpty(t, mv.Inputs)
	assert.Greater(t, info.Nodes, 0)
}

func TestPendingForceAnalysisLineWithholdsNextMove(t *testing.T) {
	board := queueBoard(rules.T, rules.O, rules.I)
	bot := NewBot(board, Options{UseHold: false, Speculate: false, MaxNodes: 10000}, eval.NewStandardEvaluator())
	require.True(t, bot.Think())

	candidates := bot.store.GetNextCandidates()
	require.NotEmpty(t, candidates)
	bot.ForceAnalysisLine([]rules.FallingPiece{candidates[0].Placement})

	_, _, ok := bot.NextMove(0)
	assert.False(t, ok, "a pending forced line withholds NextMove")
}
