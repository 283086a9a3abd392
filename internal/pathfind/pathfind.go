// Package pathfind enumerates reachable placements for a falling piece
// and reconstructs the minimal input sequence to reach each one - the
// collaborator named "Pathfinder" in the search loop's design, kept
// entirely outside the DAG core.
package pathfind

import (
	"golang.org/x/exp/slices"

	"github.com/brensch/tetrisbot/internal/rules"
)

// Movement is one atom of the input alphabet the move executor plays
// back; SonicDrop soft-drops to the stack, the final hard-drop is always
// implicit and never appears in a movement list.
type Movement int

const (
	Left Movement = iota
	Right
	Cw
	Ccw
	SonicDrop
)

func (m Movement) String() string {
	switch m {
	case Left:
		return "Left"
	case Right:
		return "Right"
	case Cw:
		return "Cw"
	case Ccw:
		return "Ccw"
	case SonicDrop:
		return "SonicDrop"
	default:
		return "?"
	}
}

// Mode controls which movements the search considers available, mirroring
// the three gravity regimes a real client might be running under.
type Mode int

const (
	ZeroG Mode = iota
	TwentyG
	HardDropOnly
)

// InputList is a sequence of movements plus an estimated tick cost, used
// to prefer cheaper sequences when two inputs reach the same resting
// location.
type InputList struct {
	Movements []Movement
	Time      uint32
}

// Placement is one reachable resting location plus the inputs to reach it.
type Placement struct {
	Inputs   InputList
	Location rules.FallingPiece
}

type queueEntry struct {
	piece rules.FallingPiece
	moves InputList
}

type visitKey struct {
	x, y int
	rot  rules.Rotation
}

// FindMoves performs a breadth-first search over reachable piece states
// from spawn, recording every resting position (one the piece cannot
// descend further from) along with the shortest input sequence found to
// reach it. Dedup is by final (cells, tspin) so two input sequences that
// land the same shape in the same place keep only the cheaper one.
//
// This deliberately does not model DAS hold-timing costs the way a
// button-level pathfinder would (see original_source/bot/src/moves.rs's
// zero_g_starts/attempt machinery) - every Left/Right step is a single
// shift. The core only needs a reachable-placement enumerator with
// reproducible dedup, which this provides; see DESIGN.md.
func FindMoves(board *rules.Board, spawn rules.FallingPiece, mode Mode) []Placement {
	visited := map[visitKey]bool{}
	queue := []queueEntry{{piece: spawn, moves: InputList{}}}

	type landing struct {
		fp    rules.FallingPiece
		moves InputList
	}
	best := map[[5]int]landing{} // dedup key -> cheapest landing

	landingKey := func(fp rules.FallingPiece) [5]int {
		cells := fp.Cells()
		return [5]int{cells[0].X*100 + cells[0].Y, cells[1].X*100 + cells[1].Y, cells[2].X*100 + cells[2].Y, cells[3].X*100 + cells[3].Y, int(fp.Tspin)}
	}

	considerLanding := func(fp rules.FallingPiece, moves InputList) {
		k := landingKey(fp)
		if cur, ok := best[k]; !ok || moves.Time < cur.moves.Time {
			best[k] = landing{fp: fp, moves: moves}
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		vk := visitKey{cur.piece.X, cur.piece.Y, cur.piece.Rotation}
		if visited[vk] {
			continue
		}
		visited[vk] = true

		if !canDescend(cur.piece, board) {
			if mode != HardDropOnly {
				considerLanding(cur.piece, cur.moves)
			}
			continue
		}
		if mode == HardDropOnly {
			dropped := cur.piece.SonicDrop(board)
			moves := appendMove(cur.moves, SonicDrop, 2*(cur.piece.Y-dropped.Y))
			considerLanding(dropped, moves)
			continue
		}

		for _, mv := range []Movement{Left, Right, Cw, Ccw} {
			next, ok := tryMove(cur.piece, board, mv)
			if !ok {
				continue
			}
			nvk := visitKey{next.X, next.Y, next.Rotation}
			if visited[nvk] {
				continue
			}
			queue = append(queue, queueEntry{piece: next, moves: appendMove(cur.moves, mv, 1)})
		}

		dropped := cur.piece.SonicDrop(board)
		if dropped != cur.piece {
			dvk := visitKey{dropped.X, dropped.Y, dropped.Rotation}
			if !visited[dvk] {
				queue = append(queue, queueEntry{piece: dropped, moves: appendMove(cur.moves, SonicDrop, 2*(cur.piece.Y-dropped.Y))})
			}
		}
	}

	keys := make([][5]int, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b [5]int) int {
		for i := range a {
			if a[i] != b[i] {
				return a[i] - b[i]
			}
		}
		return 0
	})

	out := make([]Placement, 0, len(best))
	for _, k := range keys {
		l := best[k]
		out = append(out, Placement{Inputs: l.moves, Location: l.fp})
	}
	return out
}

func canDescend(fp rules.FallingPiece, board *rules.Board) bool {
	_, ok := fp.Shift(board, 0, -1)
	return ok
}

func tryMove(fp rules.FallingPiece, board *rules.Board, mv Movement) (rules.FallingPiece, bool) {
	switch mv {
	case Left:
		return fp.Shift(board, -1, 0)
	case Right:
		return fp.Shift(board, 1, 0)
	case Cw:
		return fp.CW(board)
	case Ccw:
		return fp.CCW(board)
	}
	return fp, false
}

func appendMove(moves InputList, mv Movement, cost int) InputList {
	out := InputList{Movements: append(append([]Movement(nil), moves.Movements...), mv), Time: moves.Time + uint32(cost)}
	return out
}
