package search

import (
	"github.com/brensch/tetrisbot/internal/dag"
	"github.com/brensch/tetrisbot/internal/pathfind"
	"github.com/brensch/tetrisbot/internal/rules"
)

// Move is the bot's answer to NextMove: a hold decision, the button
// sequence to reach the chosen placement, and the placement itself so the
// caller can detect a misdrop by comparing against the post-lock board.
type Move struct {
	Hold             bool
	Inputs           []pathfind.Movement
	ExpectedLocation rules.FallingPiece
}

// Info carries diagnostics alongside a Move: how much the search has
// explored, the chosen child's rank among its siblings as of the last
// re-sort (see dag.Child.OriginalRank), and the
// best-known continuation beyond it.
type Info struct {
	Nodes        int
	Depth        int
	OriginalRank int
	Plan         []dag.PlanStep
}
