package rules

import (
	"encoding/binary"
	"strconv"
	"strings"
)

// StateKey is the dedup equality key for a board reached at some DAG
// generation: row bitmasks (trimmed of empty top rows), combo, bag,
// reserve piece, back-to-back status, and whether the reserve is the
// hold piece or the next piece in queue. Two paths that arrive at
// identical states collapse to one node.
//
// Grounded on SimplifiedBoard in the dag store this was distilled from:
// the same five-field equality (grid, combo, bag, reserve, b2b) plus the
// reserve-origin bit that distinguishes "reserve via hold" from "reserve
// via queue" paths that would otherwise compare equal.
func (b *Board) StateKey(reserve Piece, reserveIsHold bool) string {
	var sb strings.Builder
	top := Height
	for top > 0 && b.Rows[top-1] == 0 {
		top--
	}
	buf := make([]byte, 2)
	for y := 0; y < top; y++ {
		binary.LittleEndian.PutUint16(buf, b.Rows[y])
		sb.Write(buf)
	}
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(b.Combo))
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(int(b.Bag)))
	sb.WriteByte('|')
	sb.WriteString(reserve.String())
	sb.WriteByte('|')
	if b.BackToBack {
		sb.WriteByte('1')
	} else {
		sb.WriteByte('0')
	}
	sb.WriteByte('|')
	if reserveIsHold {
		sb.WriteByte('1')
	} else {
		sb.WriteByte('0')
	}
	return sb.String()
}
