package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brensch/tetrisbot/internal/rules"
)

func TestEvaluateRewardsClears(t *testing.T) {
	e := NewStandardEvaluator()
	board := rules.NewBoard()
	single := rules.LockResult{Kind: rules.KindClear1}
	tetris := rules.LockResult{Kind: rules.KindClear4}

	vSingle, _ := e.Evaluate(single, board, 0, false)
	vTetris, _ := e.Evaluate(tetris, board, 0, false)

	assert.True(t, vSingle.(StdValue).Accumulated < vTetris.(StdValue).Accumulated)
}

func TestCombineIsComponentwiseMax(t *testing.T) {
	a := StdValue{Accumulated: 10, Transient: -5}
	b := StdValue{Accumulated: 2, Transient: 30}
	c := a.Combine(b).(StdValue)
	assert.Equal(t, int64(10), c.Accumulated)
	assert.Equal(t, int64(30), c.Transient)
}

func TestModifyDeathPullsValueDown(t *testing.T) {
	v := StdValue{Accumulated: 100, Transient: 0}
	d := v.ModifyDeath().(StdValue)
	assert.True(t, d.Transient < v.Transient)
}

func TestPickMoveDiscountsTallBoardsUnderIncomingGarbage(t *testing.T) {
	e := NewStandardEvaluator()
	low := rules.NewBoard()
	high := rules.NewBoard()
	for y := 0; y < 15; y++ {
		high.ColumnHeights[0] = y + 1
	}
	candidates := []Candidate{
		{Board: low, Composed: StdValue{Accumulated: 100}},
		{Board: high, Composed: StdValue{Accumulated: 100}},
	}
	best := e.PickMove(candidates, 4)
	assert.Same(t, low, best.Board)
}
