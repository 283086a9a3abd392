package rules

import "strings"

// Width and Height are the playfield dimensions. Height includes the
// hidden rows above the visible 20x10 field so I-pieces and spins have
// somewhere to kick into; VisibleHeight marks the lock-out boundary.
const (
	Width         = 10
	Height        = 40
	VisibleHeight = 20
)

// Board is the full simulated playfield plus the reserve/queue state the
// dedup key and speculation logic need.
type Board struct {
	Rows          [Height]uint16 // bit i set means column i occupied
	ColumnHeights [Width]int
	Combo         int
	BackToBack    bool
	Hold          *Piece
	Queue         []Piece
	Bag           PieceSet
}

// NewBoard returns an empty board with a full bag and no queue.
func NewBoard() *Board {
	return &Board{Bag: FullPieceSet()}
}

// Clone deep-copies a board; workers always operate on clones so the
// store's canonical board is only ever touched under its lock.
func (b *Board) Clone() *Board {
	c := *b
	c.Queue = append([]Piece(nil), b.Queue...)
	if b.Hold != nil {
		h := *b.Hold
		c.Hold = &h
	}
	return &c
}

// Occupied reports whether the cell is filled. Out-of-bounds columns and
// rows below the floor count as occupied; rows above the ceiling do not
// (a piece may float arbitrarily high while still falling).
func (b *Board) Occupied(x, y int) bool {
	if x < 0 || x >= Width {
		return true
	}
	if y < 0 {
		return true
	}
	if y >= Height {
		return false
	}
	return b.Rows[y]&(1<<uint(x)) != 0
}

func (b *Board) set(x, y int) {
	if y >= 0 && y < Height {
		b.Rows[y] |= 1 << uint(x)
		if y+1 > b.ColumnHeights[x] {
			b.ColumnHeights[x] = y + 1
		}
	}
}

// Obstructed reports whether any of the piece's cells overlap the stack.
func (b *Board) Obstructed(fp FallingPiece) bool {
	for _, c := range fp.Cells() {
		if b.Occupied(c.X, c.Y) {
			return true
		}
	}
	return false
}

// AboveStack reports whether every cell of the piece is above the
// column's current stack height - used by the search's child expansion
// to tell whether a placement could have been reached by a straight hard
// drop.
func (b *Board) AboveStack(fp FallingPiece) bool {
	for _, c := range fp.Cells() {
		if c.Y < b.ColumnHeights[c.X] {
			return false
		}
	}
	return true
}

// GetNextPiece reports the next piece without removing it from the queue
// (AdvanceQueue removes it). ok is false when the
// queue is empty, in which case remaining reports the bag the real next
// piece must be drawn from - the search loop's signal to speculate.
func (b *Board) GetNextPiece() (p Piece, remaining PieceSet, ok bool) {
	if len(b.Queue) == 0 {
		return 0, b.Bag, false
	}
	return b.Queue[0], 0, true
}

// GetNextNextPiece reports the piece after next, if known.
func (b *Board) GetNextNextPiece() (Piece, bool) {
	if len(b.Queue) < 2 {
		return 0, false
	}
	return b.Queue[1], true
}

// AdvanceQueue pops the consumed piece off the front of the queue.
func (b *Board) AdvanceQueue() {
	if len(b.Queue) > 0 {
		b.Queue = b.Queue[1:]
	}
}

// AddNextPiece appends a revealed piece to the queue, drawing it from the
// bag and refilling the bag to full once it empties - the standard
// 7-bag randomizer.
func (b *Board) AddNextPiece(p Piece) {
	b.Bag = b.Bag.Without(p)
	if b.Bag.Empty() {
		b.Bag = FullPieceSet()
	}
	b.Queue = append(b.Queue, p)
}

// HoldPiece swaps the given piece into the reserve slot, returning whatever
// was held before (ok is false if the slot was empty).
func (b *Board) HoldPiece(p Piece) (prev Piece, ok bool) {
	if b.Hold == nil {
		h := p
		b.Hold = &h
		return 0, false
	}
	prev = *b.Hold
	*b.Hold = p
	return prev, true
}

// LockResult is the outcome of locking a piece into the stack: everything
// the evaluator and the reward computation need.
type LockResult struct {
	Kind         PlacementKind
	B2B          bool
	Combo        int
	HadCombo     bool
	GarbageSent  int
	PerfectClear bool
	LockedOut    bool
	ClearedLines []int
}

var comboGarbage = [12]int{0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 4, 5}

// LockPiece commits a falling piece to the stack: sets its cells, clears
// completed lines, and updates combo/back-to-back/garbage bookkeeping.
// The board is mutated in place; callers that need the pre-lock state
// must clone first.
func (b *Board) LockPiece(fp FallingPiece) LockResult {
	lockedOut := true
	for _, c := range fp.Cells() {
		if c.Y < VisibleHeight {
			lockedOut = false
		}
		b.set(c.X, c.Y)
	}

	cleared := b.removeClearedLines()
	kind := GetPlacementKind(len(cleared), fp.Tspin)

	garbage := kind.Garbage()
	didB2B := false
	if kind.IsHard() {
		if b.BackToBack {
			garbage++
			didB2B = true
		}
		b.BackToBack = true
	} else if kind.IsClear() {
		b.BackToBack = false
	}

	garbage += comboGarbage[min(b.Combo, 11)]

	hadCombo := b.Combo > 0
	if len(cleared) > 0 {
		b.Combo++
	} else {
		b.Combo = 0
	}

	perfectClear := true
	for _, h := range b.ColumnHeights {
		if h != 0 {
			perfectClear = false
			break
		}
	}
	if perfectClear {
		garbage = 10
	}

	return LockResult{
		Kind:         kind,
		B2B:          didB2B,
		Combo:        b.Combo - 1,
		HadCombo:     hadCombo,
		GarbageSent:  garbage,
		PerfectClear: perfectClear,
		LockedOut:    lockedOut,
		ClearedLines: cleared,
	}
}

func (b *Board) removeClearedLines() []int {
	var cleared []int
	write := 0
	for y := 0; y < Height; y++ {
		full := b.Rows[y] == (1<<Width)-1
		if full {
			cleared = append(cleared, y)
			continue
		}
		b.Rows[write] = b.Rows[y]
		write++
	}
	for y := write; y < Height; y++ {
		b.Rows[y] = 0
	}
	b.recomputeHeights()
	return cleared
}

func (b *Board) recomputeHeights() {
	for x := 0; x < Width; x++ {
		h := 0
		for y := Height - 1; y >= 0; y-- {
			if b.Rows[y]&(1<<uint(x)) != 0 {
				h = y + 1
				break
			}
		}
		b.ColumnHeights[x] = h
	}
}

// AddGarbage inserts one full-width garbage row with a single gap at the
// given column, shifting the existing stack up. It reports whether the
// insertion pushed filled cells off the top of the board (a death
// condition the search loop should treat the resulting board as lost).
func (b *Board) AddGarbage(col int) (overflow bool) {
	overflow = b.Rows[Height-1] != 0
	for y := Height - 1; y > 0; y-- {
		b.Rows[y] = b.Rows[y-1]
	}
	var row uint16
	for x := 0; x < Width; x++ {
		if x != col {
			row |= 1 << uint(x)
		}
	}
	b.Rows[0] = row
	b.recomputeHeights()
	return overflow
}

// Field is the full row-bitmask array (all Height rows) used by Reset to
// compare against the board's current stack, ignoring queue/hold/bag.
type Field [Height]uint16

func (b *Board) GetField() Field { return Field(b.Rows) }

func (b *Board) SetField(f Field) { b.Rows = [Height]uint16(f); b.recomputeHeights() }

// String renders the visible board for logs and diagnostics, bottom row
// last so terminal output reads top-to-bottom like the real field.
func (b *Board) String() string {
	var sb strings.Builder
	for y := VisibleHeight - 1; y >= 0; y-- {
		for x := 0; x < Width; x++ {
			if b.Occupied(x, y) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
