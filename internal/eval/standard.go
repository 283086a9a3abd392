package eval

import (
	"github.com/brensch/tetrisbot/internal/rules"
)

// StdValue is the concrete realization of the opaque Value algebra: an
// accumulated component (permanent score - clears, perfect clears) and a
// transient component (board-shape quality, recomputed fresh at every
// node rather than carried forward). Ordering compares the sum of the
// two components.
type StdValue struct {
	Accumulated int64
	Transient   int64
}

func (v StdValue) total() int64 { return v.Accumulated + v.Transient }

func (v StdValue) Add(r Reward) Value {
	sr := r.(StdReward)
	return StdValue{Accumulated: v.Accumulated + int64(sr), Transient: v.Transient}
}

// Plus is true componentwise addition, used only when averaging
// speculated branches together - distinct from Combine, which takes the
// pointwise maximum instead of summing.
func (v StdValue) Plus(other Value) Value {
	o := other.(StdValue)
	return StdValue{Accumulated: v.Accumulated + o.Accumulated, Transient: v.Transient + o.Transient}
}

// Combine implements "improve": componentwise maximum, not a max of the
// summed total, because two children can each dominate in a different
// dimension (one keeps a higher floor, the other a higher ceiling).
func (v StdValue) Combine(other Value) Value {
	o := other.(StdValue)
	return StdValue{
		Accumulated: maxI64(v.Accumulated, o.Accumulated),
		Transient:   maxI64(v.Transient, o.Transient),
	}
}

func (v StdValue) Scale(n int) Value {
	return StdValue{Accumulated: v.Accumulated * int64(n), Transient: v.Transient * int64(n)}
}

func (v StdValue) Div(n int) Value {
	if n == 0 {
		return v
	}
	return StdValue{Accumulated: v.Accumulated / int64(n), Transient: v.Transient / int64(n)}
}

func (v StdValue) Less(other Value) bool {
	o := other.(StdValue)
	return v.total() < o.total()
}

// ModifyDeath penalizes a value used to stand in for a dead branch during
// speculation averaging - a flat, heavily negative transient so dying
// branches pull the average down without overflowing accumulated score
// already banked.
func (v StdValue) ModifyDeath() Value {
	return StdValue{Accumulated: v.Accumulated, Transient: v.Transient - 1_000_000}
}

// Weight implements the default sampling policy: better-ranked children
// are favoured but lower ranks retain nonzero exploration weight.
func (v StdValue) Weight(min Value, rank int) int64 {
	m := min.(StdValue)
	diff := float64(v.total()-m.total()) + 1
	if diff < 1 {
		diff = 1
	}
	w := diff * diff / float64(rank*rank+1)
	if w < 1 {
		w = 1
	}
	return int64(w)
}

// StdReward is the immediate per-edge score. StandardEvaluator always
// returns a zero reward: it folds clear, perfect-clear, combo and
// back-to-back scores into the child's Accumulated value instead, and it
// applies no time cost.
type StdReward int64

func (r StdReward) AddTo(v Value) Value { return v.(StdValue).Add(r) }

// BoardWeights scores the post-lock board shape. Field names mirror the
// evaluator collaborator this is grounded on.
type BoardWeights struct {
	BackToBack     int64
	Bumpiness      int64
	BumpinessSq    int64
	Height         int64
	TopHalf        int64
	TopQuarter     int64
	CavityCells    int64
	CavityCellsSq  int64
	OverhangCells  int64
	OverhangCellsSq int64
	CoveredCells   int64
	CoveredCellsSq int64
	TslotPresent   int64
	WellDepth      int64
	MaxWellDepth   int64
}

// DefaultBoardWeights are reasonable stock weights, not tuned against
// real play - a starting point a consumer is expected to retune.
func DefaultBoardWeights() BoardWeights {
	return BoardWeights{
		BackToBack:      52,
		Bumpiness:       -24,
		BumpinessSq:     -7,
		Height:          -39,
		TopHalf:         -150,
		TopQuarter:      -511,
		CavityCells:     -173,
		CavityCellsSq:   -3,
		OverhangCells:   -34,
		OverhangCellsSq: -1,
		CoveredCells:    -17,
		CoveredCellsSq:  -1,
		TslotPresent:    150,
		WellDepth:       57,
		MaxWellDepth:    17,
	}
}

// PlacementWeights scores the placement kind itself.
type PlacementWeights struct {
	B2BClear    int64
	Clear1      int64
	Clear2      int64
	Clear3      int64
	Clear4      int64
	Tspin1      int64
	Tspin2      int64
	Tspin3      int64
	MiniTspin1  int64
	MiniTspin2  int64
	PerfectClear int64
	Combo       [12]int64
	SoftDrop    int64
}

func DefaultPlacementWeights() PlacementWeights {
	return PlacementWeights{
		B2BClear:     52,
		Clear1:       -150,
		Clear2:       -100,
		Clear3:       -50,
		Clear4:       400,
		Tspin1:       130,
		Tspin2:       400,
		Tspin3:       700,
		MiniTspin1:   0,
		MiniTspin2:   150,
		PerfectClear: 999,
		Combo:        [12]int64{0, 50, 100, 150, 200, 250, 300, 350, 400, 450, 500, 550},
		SoftDrop:     -1,
	}
}

// StandardEvaluator is the concrete Evaluator used by default: board
// shape plus placement kind, folded into the accumulated/transient Value.
type StandardEvaluator struct {
	Board     BoardWeights
	Placement PlacementWeights
}

func NewStandardEvaluator() *StandardEvaluator {
	return &StandardEvaluator{Board: DefaultBoardWeights(), Placement: DefaultPlacementWeights()}
}

func (e *StandardEvaluator) ZeroValue() Value { return StdValue{} }

func (e *StandardEvaluator) Evaluate(lock rules.LockResult, board *rules.Board, moveTimeTicks int, softDropped bool) (Value, Reward) {
	pw := e.Placement
	var accumulated int64

	switch lock.Kind {
	case rules.KindClear1:
		accumulated += pw.Clear1
	case rules.KindClear2:
		accumulated += pw.Clear2
	case rules.KindClear3:
		accumulated += pw.Clear3
	case rules.KindClear4:
		accumulated += pw.Clear4
	case rules.KindTspin1:
		accumulated += pw.Tspin1
	case rules.KindTspin2:
		accumulated += pw.Tspin2
	case rules.KindTspin3:
		accumulated += pw.Tspin3
	case rules.KindMiniTspin1:
		accumulated += pw.MiniTspin1
	case rules.KindMiniTspin2:
		accumulated += pw.MiniTspin2
	}
	if lock.B2B {
		accumulated += pw.B2BClear
	}
	if lock.PerfectClear {
		accumulated += pw.PerfectClear
	}
	if lock.Combo >= 0 {
		accumulated += pw.Combo[min(lock.Combo, len(pw.Combo)-1)]
	}
	if softDropped {
		accumulated += pw.SoftDrop
	}

	bw := e.Board
	var transient int64
	if board.BackToBack {
		transient += bw.BackToBack
	}

	totalHeight := int64(0)
	maxHeight := 0
	for _, h := range board.ColumnHeights {
		totalHeight += int64(h)
		if h > maxHeight {
			maxHeight = h
		}
	}
	transient += bw.Height * totalHeight
	if maxHeight > rules.VisibleHeight/2 {
		transient += bw.TopHalf * int64(maxHeight-rules.VisibleHeight/2)
	}
	if maxHeight > rules.VisibleHeight*3/4 {
		transient += bw.TopQuarter * int64(maxHeight-rules.VisibleHeight*3/4)
	}

	wellCol, wellDepth := findWell(board)
	bump, bumpSq := bumpiness(board, wellCol)
	transient += bw.Bumpiness * bump
	transient += bw.BumpinessSq * bumpSq

	cavities, overhangs := cavitiesAndOverhangs(board)
	transient += bw.CavityCells*int64(cavities) + bw.CavityCellsSq*int64(cavities*cavities)
	transient += bw.OverhangCells*int64(overhangs) + bw.OverhangCellsSq*int64(overhangs*overhangs)

	covered, coveredSq := coveredCells(board)
	transient += bw.CoveredCells*covered + bw.CoveredCellsSq*coveredSq

	depth := int64(min(wellDepth, int(bw.MaxWellDepth)))
	transient += bw.WellDepth * depth

	if tslotPresent(board) {
		transient += bw.TslotPresent
	}

	return StdValue{Accumulated: accumulated, Transient: transient}, StdReward(0)
}

// findWell returns the deepest single-column well (a column much lower
// than both neighbours) and its depth, used both for bumpiness (the well
// column is excluded from the jaggedness sum) and for the well-depth bonus.
func findWell(board *rules.Board) (col, depth int) {
	best := -1
	bestDepth := 0
	for x := 0; x < rules.Width; x++ {
		left, right := 99, 99
		if x > 0 {
			left = board.ColumnHeights[x-1]
		}
		if x < rules.Width-1 {
			right = board.ColumnHeights[x+1]
		}
		d := min(left, right) - board.ColumnHeights[x]
		if d > bestDepth {
			bestDepth = d
			best = x
		}
	}
	return best, bestDepth
}

func bumpiness(board *rules.Board, well int) (sum, sumSq int64) {
	prev := -1
	for x := 0; x < rules.Width; x++ {
		if x == well {
			continue
		}
		if prev >= 0 {
			d := board.ColumnHeights[x] - board.ColumnHeights[prev]
			if d < 0 {
				d = -d
			}
			sum += int64(d)
			sumSq += int64(d * d)
		}
		prev = x
	}
	return sum, sumSq
}

// cavitiesAndOverhangs flood-fills each unvisited empty cell below its
// column's stack height; a connected empty region counts as an overhang
// if the flood reaches a cell at or above some other column's height in
// the region (meaning it is reachable from above), else a cavity.
func cavitiesAndOverhangs(board *rules.Board) (cavities, overhangs int) {
	visited := make(map[rules.Point]bool)
	for x := 0; x < rules.Width; x++ {
		for y := 0; y < board.ColumnHeights[x]; y++ {
			p := rules.Point{X: x, Y: y}
			if board.Occupied(x, y) || visited[p] {
				continue
			}
			region := []rules.Point{p}
			visited[p] = true
			isOverhang := false
			for i := 0; i < len(region); i++ {
				cur := region[i]
				if cur.Y >= board.ColumnHeights[cur.X] {
					isOverhang = true
				}
				neighbors := []rules.Point{{cur.X - 1, cur.Y}, {cur.X + 1, cur.Y}, {cur.X, cur.Y - 1}, {cur.X, cur.Y + 1}}
				for _, n := range neighbors {
					if n.X < 0 || n.X >= rules.Width || n.Y < 0 {
						continue
					}
					if n.Y >= board.ColumnHeights[n.X] {
						// Open air above that column's stack.
						isOverhang = true
						continue
					}
					if board.Occupied(n.X, n.Y) || visited[n] {
						continue
					}
					visited[n] = true
					region = append(region, n)
				}
			}
			if isOverhang {
				overhangs += len(region)
			} else {
				cavities += len(region)
			}
		}
	}
	return cavities, overhangs
}

// coveredCells counts, per column, the filled cells sitting above the
// first hole found scanning down from the stack top.
func coveredCells(board *rules.Board) (count, sq int64) {
	for x := 0; x < rules.Width; x++ {
		covered := 0
		hole := false
		for y := board.ColumnHeights[x] - 1; y >= 0; y-- {
			if !board.Occupied(x, y) {
				hole = true
				break
			}
			covered++
		}
		if !hole {
			continue
		}
		count += int64(covered)
		sq += int64(covered * covered)
	}
	return count, sq
}

// tslotPresent checks whether a T is among the first six queued pieces
// (or in hold) and some East- or West-facing T fits in the visible field
// with both corners on its pointed side filled. This is a two-corner
// probe, looser than the three-corner rule in rules.classifyTspin.
func tslotPresent(board *rules.Board) bool {
	hasT := false
	for i, p := range board.Queue {
		if i >= 6 {
			break
		}
		if p == rules.I {
			continue
		}
		if p == rules.T {
			hasT = true
		}
	}
	if board.Hold != nil && *board.Hold == rules.T {
		hasT = true
	}
	if !hasT {
		return false
	}
	for x := 1; x < rules.Width-1; x++ {
		for y := 1; y < rules.VisibleHeight-1; y++ {
			left := rules.FallingPiece{Kind: rules.T, Rotation: rules.West, X: x, Y: y}
			right := rules.FallingPiece{Kind: rules.T, Rotation: rules.East, X: x, Y: y}
			if tslotAt(board, left) || tslotAt(board, right) {
				return true
			}
		}
	}
	return false
}

func tslotAt(board *rules.Board, fp rules.FallingPiece) bool {
	if board.Obstructed(fp) {
		return false
	}
	cx, cy := fp.X+1, fp.Y+1
	backCorners := [2]rules.Point{}
	switch fp.Rotation {
	case rules.West:
		backCorners = [2]rules.Point{{cx - 1, cy + 1}, {cx - 1, cy - 1}}
	case rules.East:
		backCorners = [2]rules.Point{{cx + 1, cy + 1}, {cx + 1, cy - 1}}
	default:
		return false
	}
	for _, c := range backCorners {
		if !board.Occupied(c.X, c.Y) {
			return false
		}
	}
	return true
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// PickMove chooses the best root candidate. When garbage is incoming it
// mildly discounts candidates whose resulting stack is already tall,
// since they have the least room to absorb it.
func (e *StandardEvaluator) PickMove(candidates []Candidate, incoming int) Candidate {
	best := candidates[0]
	bestScore := candidateScore(best, incoming)
	for _, c := range candidates[1:] {
		s := candidateScore(c, incoming)
		if s > bestScore {
			best = c
			bestScore = s
		}
	}
	return best
}

func candidateScore(c Candidate, incoming int) int64 {
	v := c.Composed.(StdValue).total()
	if incoming > 0 {
		maxHeight := 0
		for _, h := range c.Board.ColumnHeights {
			if h > maxHeight {
				maxHeight = h
			}
		}
		v -= int64(incoming*maxHeight) / 4
	}
	return v
}
