// Package eval defines the opaque Value/Reward algebra the search core
// folds over, plus a concrete StandardEvaluator grounded on board-shape
// and placement-kind heuristics. The core never inspects a Value's
// fields; it only calls the operations this package exposes.
package eval

import "github.com/brensch/tetrisbot/internal/rules"

// Value is an opaque, ordered, combinable evaluation attached to a DAG
// node. The core treats it as an algebra, never as a bare number, because
// an evaluator may track more than one dimension (e.g. expected value vs.
// peak attack) whose components are each other's tiebreakers.
type Value interface {
	Add(Reward) Value
	Plus(Value) Value    // true addition, used when averaging speculation branches
	Combine(Value) Value // "improve": pointwise maximum across dimensions
	Scale(n int) Value
	Div(n int) Value
	Less(Value) bool
	ModifyDeath() Value
	Weight(min Value, rank int) int64
}

// Reward is the immediate score contributed by a single child edge: line
// clears, garbage sent, time cost.
type Reward interface {
	AddTo(Value) Value
}

// Evaluator scores placements and picks among top-level candidates. It is
// a collaborator the search loop consumes; the core never evaluates a
// board itself.
type Evaluator interface {
	// Evaluate scores the board that resulted from locking a piece,
	// returning both the node's standalone Value and the edge's Reward.
	Evaluate(lock rules.LockResult, board *rules.Board, moveTimeTicks int, softDropped bool) (Value, Reward)
	// ZeroValue is the starting Value for a node with no evaluation yet
	// (used as the identity element before any child has been folded in).
	ZeroValue() Value
	// PickMove chooses among root candidates, optionally weighing
	// survivability against incoming garbage.
	PickMove(candidates []Candidate, incoming int) Candidate
}

// Candidate is a root-level move choice surfaced to PickMove and to the
// bot-facing API.
type Candidate struct {
	Placement    rules.FallingPiece
	Board        *rules.Board
	Hold         bool
	Composed     Value
	OriginalRank int
}
