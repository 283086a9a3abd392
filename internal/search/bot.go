package search

import (
	"sync"

	"github.com/brensch/tetrisbot/internal/dag"
	"github.com/brensch/tetrisbot/internal/eval"
	"github.com/brensch/tetrisbot/internal/pathfind"
	"github.com/brensch/tetrisbot/internal/rules"
)

// Bot owns a DAG store and the collaborators needed to expand it: an
// evaluator for scoring placements and a set of forced analysis lines the
// search probes before falling back to weighted sampling. It corresponds
// to cold-clear's BotState, minus the message channel - that lives in
// Interface.
type Bot struct {
	store     *dag.Store
	options   Options
	evaluator eval.Evaluator

	linesMu sync.Mutex
	lines   [][]rules.FallingPiece
}

// NewBot creates a bot over a fresh single-root tree starting at board.
func NewBot(board *rules.Board, options Options, evaluator eval.Evaluator) *Bot {
	return &Bot{
		store:     dag.NewStore(board),
		options:   options,
		evaluator: evaluator,
	}
}

// ForceAnalysisLine seeds (replaces) the set of forced analysis lines.
func (b *Bot) ForceAnalysisLine(line []rules.FallingPiece) {
	b.linesMu.Lock()
	defer b.linesMu.Unlock()
	b.lines = [][]rules.FallingPiece{line}
}

func (b *Bot) clearForcedLines() {
	b.linesMu.Lock()
	defer b.linesMu.Unlock()
	b.lines = nil
}

func (b *Bot) pickForcedLine() []rules.FallingPiece {
	b.linesMu.Lock()
	defer b.linesMu.Unlock()
	if len(b.lines) == 0 {
		return nil
	}
	return b.lines[0]
}

// Think performs one worker cycle: select a leaf, expand it outside any
// lock, install the result. It reports false when there is nothing
// useful to do right now (tree full, dead, or every leaf is currently
// claimed by another worker) so the caller can back off.
func (b *Bot) Think() bool {
	if b.store.Nodes() >= b.options.MaxNodes || b.store.IsDead() {
		return false
	}

	line := b.pickForcedLine()
	id, board, serial, ok := b.store.FindAndMarkLeaf(line)
	if !ok {
		return false
	}
	if line != nil {
		// A forced line is spent by the one leaf search that followed it.
		b.clearForcedLines()
	}

	b.generateChildren(id, serial, board)
	return true
}

// generateChildren mirrors cold-clear's generate_children: decide whether
// the next piece (and, if hold matters, the piece after) is known or must
// be speculated, build the child set(s) outside the store lock, then
// install them.
func (b *Bot) generateChildren(node dag.NodeID, serial uint32, board *rules.Board) {
	piece, remaining, ok := board.GetNextPiece()
	if !ok {
		b.speculateOrUnmark(node, serial, board, remaining)
		return
	}

	if b.options.UseHold && board.Hold == nil {
		if _, nextNextOk := board.GetNextNextPiece(); !nextNextOk {
			clone := board.Clone()
			clone.AdvanceQueue()
			_, possibilities, known := clone.GetNextPiece()
			if known {
				// The queue already had a second entry; nothing to
				// speculate on after all.
				children := b.makeChildren(board)
				b.store.UpdateKnown(node, serial, piece, children)
				return
			}
			b.speculateOrUnmark(node, serial, board, possibilities)
			return
		}
	}

	children := b.makeChildren(board)
	b.store.UpdateKnown(node, serial, piece, children)
}

func (b *Bot) speculateOrUnmark(node dag.NodeID, serial uint32, board *rules.Board, possibilities rules.PieceSet) {
	if !b.options.Speculate {
		b.store.Unmark(node, serial)
		return
	}
	branches := make(map[rules.Piece][]dag.ChildData, 7)
	for _, p := range possibilities.Pieces() {
		clone := board.Clone()
		clone.AddNextPiece(p)
		branches[p] = b.makeChildren(clone)
	}
	b.store.UpdateSpeculated(node, serial, branches)
}

// makeChildren builds the child set for one fully-known board: spawn the
// next piece, enumerate its placements, and (if hold is enabled and
// distinct from next) repeat for the piece that holding would bring into
// play.
func (b *Bot) makeChildren(board *rules.Board) []dag.ChildData {
	board = board.Clone()
	next, _, ok := board.GetNextPiece()
	if !ok {
		return nil
	}
	board.AdvanceQueue()

	spawned, ok := rules.Spawn(next, board, rules.Row19Or20)
	if !ok {
		return nil
	}

	var children []dag.ChildData
	b.addChildren(&children, board, spawned, false)

	if !b.options.UseHold {
		return children
	}

	var holdPiece rules.Piece
	if prev, had := board.HoldPiece(next); had {
		holdPiece = prev
	} else {
		p, _, ok := board.GetNextPiece()
		if !ok {
			return children
		}
		board.AdvanceQueue()
		holdPiece = p
	}
	if holdPiece == next {
		return children
	}

	spawnedHold, ok := rules.Spawn(holdPiece, board, rules.Row19Or20)
	if !ok {
		return children
	}
	b.addChildren(&children, board, spawnedHold, true)
	return children
}

func (b *Bot) addChildren(children *[]dag.ChildData, board *rules.Board, spawned rules.FallingPiece, hold bool) {
	for _, mv := range pathfind.FindMoves(board, spawned, b.options.Mode) {
		canBeHardDropped := board.AboveStack(mv.Location) && allColumnsVisible(board)

		result := board.Clone()
		lock := result.LockPiece(mv.Location)
		if lock.LockedOut {
			continue
		}
		if canBeHardDropped && lock.Kind == rules.KindMiniTspin {
			// A mini t-spin reachable by a straight hard drop is a
			// wasted rotation input a real player would never bother
			// with; cold-clear drops these from the expansion set too.
			continue
		}

		moveTime := int(mv.Inputs.Time)
		if hold {
			moveTime++
		}
		value, reward := b.evaluator.Evaluate(lock, result, moveTime, false)
		*children = append(*children, dag.ChildData{
			Placement: mv.Location,
			Board:     result,
			Lock:      lock,
			Eval:      value,
			Reward:    reward,
			Hold:      hold,
		})
	}
}

func allColumnsVisible(board *rules.Board) bool {
	for _, h := range board.ColumnHeights {
		if h >= rules.VisibleHeight-2 {
			return false
		}
	}
	return true
}

// IsDead reports whether the root has no living path forward.
func (b *Bot) IsDead() bool { return b.store.IsDead() }

// AddNextPiece reveals the actual next piece to the store.
func (b *Bot) AddNextPiece(p rules.Piece) { b.store.AddNextPiece(p) }

// Reset restates the playfield. A pure-garbage reset re-seeds the forced
// analysis lines from the previous plan, shifted up by the garbage row
// count, so the search probes its own continuation first instead of
// starting cold.
func (b *Bot) Reset(field rules.Field, b2b bool, combo int) {
	plan := b.store.GetPlan()
	shift, pureGarbage := b.store.Reset(field, b2b, combo)
	if !pureGarbage || len(plan) == 0 {
		b.clearForcedLines()
		return
	}
	line := make([]rules.FallingPiece, len(plan))
	for i, step := range plan {
		shifted := step.Placement
		shifted.Y += shift
		line[i] = shifted
	}
	b.ForceAnalysisLine(line)
}

// MinThinkingReached reports whether enough nodes have been explored to
// honour a NextMove request.
func (b *Bot) MinThinkingReached() bool {
	return b.store.Nodes() > b.options.MinNodes
}

// NextMove chooses among the root's candidates and reports diagnostics.
// It returns ok=false if the minimum-thinking threshold hasn't been
// reached yet, there are still outstanding forced-analysis lines, or the
// root has no living child.
func (b *Bot) NextMove(incoming int) (Move, Info, bool) {
	if !b.MinThinkingReached() {
		return Move{}, Info{}, false
	}
	if len(b.pickForcedLine()) > 0 {
		return Move{}, Info{}, false
	}

	candidates := b.store.GetNextCandidates()
	if len(candidates) == 0 {
		return Move{}, Info{}, false
	}

	chosen := b.evaluator.PickMove(candidates, incoming)

	spawned, ok := rules.Spawn(chosen.Placement.Kind, b.store.RootBoard(), rules.Row19Or20)
	if !ok {
		return Move{}, Info{}, false
	}
	var inputs []pathfind.Movement
	for _, p := range pathfind.FindMoves(b.store.RootBoard(), spawned, b.options.Mode) {
		if p.Location.SameLocation(chosen.Placement) {
			inputs = p.Inputs.Movements
			break
		}
	}

	mv := Move{
		Hold:             chosen.Hold,
		Inputs:           inputs,
		ExpectedLocation: chosen.Placement,
	}
	info := Info{
		Nodes:        b.store.Nodes(),
		Depth:        b.store.Depth(),
		OriginalRank: chosen.OriginalRank,
		Plan:         b.store.GetPlan(),
	}

	b.store.AdvanceMove(chosen.Placement)
	return mv, info, true
}
