package dag

import (
	"golang.org/x/exp/slices"

	"github.com/brensch/tetrisbot/internal/eval"
)

// backpropagate recomputes a node's evaluation from its (possibly just
// installed) children, then if that evaluation or its death status
// changed, pushes every parent into the next layer. The start node's
// parents are always pushed, since its children (or its death flag) were
// just set by the caller. Processing goes
// breadth-first by layer - all nodes at one remove from the trigger
// before any at two - rather than recursively, to bound stack depth at
// the tree's width instead of its depth.
func (s *Store) backpropagate(start NodeID) {
	current := []NodeID{start}
	for len(current) > 0 {
		next := make(map[NodeID]bool)
		for _, id := range current {
			if s.recompute(s.node(id)) || id == start {
				for _, p := range s.node(id).Parents {
					next[p] = true
				}
			}
		}
		current = current[:0]
		for id := range next {
			current = append(current, id)
		}
	}
}

// recompute rebuilds one node's evaluation (and, for known children,
// rank order) from its current children, pruning any that have since
// become death. It reports whether anything about the node changed.
func (s *Store) recompute(node *Node) bool {
	switch c := node.Children.(type) {
	case nil:
		return false
	case *KnownChildren:
		return s.recomputeKnown(node, c)
	case *SpeculatedChildren:
		return s.recomputeSpeculated(node, c)
	}
	return false
}

func (s *Store) composedValue(c Child) eval.Value {
	return c.Reward.AddTo(s.node(c.Node).Eval)
}

func (s *Store) recomputeKnown(node *Node, c *KnownChildren) bool {
	alive := c.Slice[:0]
	for _, child := range c.Slice {
		if !s.node(child.Node).Death {
			alive = append(alive, child)
		}
	}
	c.Slice = alive

	if len(c.Slice) == 0 {
		if !node.Death {
			node.Death = true
			return true
		}
		return false
	}

	slices.SortStableFunc(c.Slice, func(a, b Child) int {
		return compareDescending(s.composedValue(a), s.composedValue(b))
	})
	for i := range c.Slice {
		c.Slice[i].OriginalRank = i
	}

	var newEval eval.Value
	for i, child := range c.Slice {
		v := s.node(child.Node).Eval
		if i == 0 {
			newEval = v
		} else {
			newEval = newEval.Combine(v)
		}
	}
	return s.setEval(node, newEval)
}

func (s *Store) recomputeSpeculated(node *Node, c *SpeculatedChildren) bool {
	total := len(c.Slices)
	if total == 0 {
		if !node.Death {
			node.Death = true
			return true
		}
		return false
	}

	deaths := 0
	var sum eval.Value
	var worst eval.Value
	have := false

	for piece, slice := range c.Slices {
		alive := slice[:0]
		for _, child := range slice {
			if !s.node(child.Node).Death {
				alive = append(alive, child)
			}
		}
		c.Slices[piece] = alive

		if len(alive) == 0 {
			deaths++
			continue
		}

		slices.SortStableFunc(alive, func(a, b Child) int {
			return compareDescending(s.composedValue(a), s.composedValue(b))
		})
		for i := range alive {
			alive[i].OriginalRank = i
		}
		c.Slices[piece] = alive

		var branchBest eval.Value
		for i, child := range alive {
			v := s.node(child.Node).Eval
			if i == 0 {
				branchBest = v
			} else {
				branchBest = branchBest.Combine(v)
			}
		}

		if !have {
			sum, worst, have = branchBest, branchBest, true
		} else {
			sum = sum.Plus(branchBest)
			if branchBest.Less(worst) {
				worst = branchBest
			}
		}
	}

	if !have {
		if !node.Death {
			node.Death = true
			return true
		}
		return false
	}

	// Expected value under a uniform piece draw, with dead branches
	// standing in at the worst surviving branch's penalized value (see
	// DESIGN.md for why "worst surviving branch" rather than some other
	// death stand-in).
	newEval := sum
	if deaths > 0 {
		newEval = newEval.Plus(worst.ModifyDeath().Scale(deaths))
	}
	newEval = newEval.Div(total)

	changed := node.Death
	node.Death = false
	if s.setEval(node, newEval) {
		changed = true
	}
	return changed
}

func (s *Store) setEval(node *Node, v eval.Value) bool {
	if node.Eval != nil && !node.Eval.Less(v) && !v.Less(node.Eval) {
		return false
	}
	node.Eval = v
	return true
}

// compareDescending orders a before b when a is the larger value, the
// three-way comparison slices.SortFunc/SortStableFunc expect, built
// from the two Less calls the Value algebra actually exposes.
func compareDescending(a, b eval.Value) int {
	switch {
	case b.Less(a):
		return -1
	case a.Less(b):
		return 1
	default:
		return 0
	}
}
