// Package dag is THE CORE: a generation-sliced arena of search-tree
// nodes with dedup, weighted leaf selection, and value backpropagation
// across both known and speculated piece generations. It never reaches
// into the rules/pathfind/eval collaborators beyond the narrow
// eval.Evaluator and rules.Board/FallingPiece types they hand back.
package dag

import (
	"github.com/brensch/tetrisbot/internal/eval"
	"github.com/brensch/tetrisbot/internal/rules"
)

// NodeID identifies a node by its depth-from-root generation and its slab
// index within that generation's arena.
type NodeID struct {
	Gen  uint32
	Slab int32
}

// Child is one outgoing edge from a node: the placement that produced it,
// its immediate reward, whether it used hold, its rank among its
// siblings, and the node it leads to in the next generation.
// OriginalRank is set to the child's position at first expansion and is
// overwritten with its new position each time backpropagation re-sorts
// the slice, so it does not keep the first-expansion rank.
type Child struct {
	Placement    rules.FallingPiece
	Lock         rules.LockResult
	Reward       eval.Reward
	Hold         bool
	OriginalRank int
	Node         NodeID
}

// Children is the per-node expansion state: nil until expanded, then
// either a KnownChildren or a SpeculatedChildren.
type Children interface {
	isChildren()
}

// KnownChildren holds the single child slice for a node whose next piece
// was determined when it was expanded.
type KnownChildren struct {
	Piece rules.Piece
	Slice []Child
}

func (*KnownChildren) isChildren() {}

// SpeculatedChildren holds one child slice per possible actual piece, for
// a node expanded before the next piece was revealed.
type SpeculatedChildren struct {
	Slices map[rules.Piece][]Child
}

func (*SpeculatedChildren) isChildren() {}

// Node is one position in the search tree: its resulting board, the
// parents that can reach it (for dedup and backpropagation), its
// evaluation, and its expansion state.
type Node struct {
	Board    *rules.Board
	Parents  []NodeID
	Children Children
	Eval     eval.Value
	Marked   bool
	Death    bool
}

// Generation owns all nodes reached by placing one additional piece past
// the previous generation, plus the dedup index used to collapse nodes
// with identical reachable state. Dropping a Generation (by reslicing it
// out of the Store's gens slice) frees its entire arena in one step; Go's
// GC reclaims the backing Nodes array once nothing references it, the
// idiomatic equivalent of a per-generation bump allocator.
type Generation struct {
	Nodes []Node
	Dedup map[string]int32
}

func newGeneration() *Generation {
	return &Generation{Dedup: make(map[string]int32)}
}

// ChildData is what a worker hands back to the store after expanding a
// leaf: one record per placement it found.
type ChildData struct {
	Placement rules.FallingPiece
	Board     *rules.Board
	Lock      rules.LockResult
	Eval      eval.Value
	Reward    eval.Reward
	Hold      bool
}

// PlanStep is one entry of a followed best-rank chain, surfaced for
// display and for forced-analysis-line seeding after a reset.
type PlanStep struct {
	Placement rules.FallingPiece
	Lock      rules.LockResult
}

// genMeta tracks whether the generation at a given depth has a determined
// piece yet, independent of whether any node there has been expanded.
type genMeta struct {
	known bool
	piece rules.Piece
}
