// Package executor plays back a chosen placement's input sequence one
// game-tick at a time, and detects the misdrops/garbage events that
// should trigger a bot reset. It is a frame-driven state machine: its
// only memory is the remaining movement list, a button-toggle buffer,
// and a hold-pending flag - grounded on
// original_source/bot/src/controller.rs's Controller::update.
package executor

import (
	"github.com/brensch/tetrisbot/internal/pathfind"
	"github.com/brensch/tetrisbot/internal/rules"
	"github.com/brensch/tetrisbot/internal/search"
)

// Buttons is the set of held inputs for one game tick, mirroring
// libtetris::Controller's boolean fields.
type Buttons struct {
	Left, Right         bool
	RotateCW, RotateCCW bool
	SoftDrop            bool
	HardDrop            bool
	Hold                bool
}

// EventKind enumerates the tick events the executor reacts to.
type EventKind int

const (
	// PieceSpawned fires once a new piece enters the queue; its kind is
	// reported to the bot and, if nothing is currently executing, a
	// move request is issued.
	PieceSpawned EventKind = iota
	// PieceFalling fires every tick the active piece is airborne,
	// carrying its current location so the executor can confirm a
	// queued movement landed before advancing to the next one.
	PieceFalling
	// PiecePlaced fires once the active piece locks, carrying its final
	// location for misdrop comparison.
	PiecePlaced
	// PieceHeld fires once the held piece changes as a result of the
	// queued hold press landing, clearing the pending hold toggle so
	// the executor moves on to the stored movement list.
	PieceHeld
	// GarbageAdded fires when incoming garbage changes the field
	// outside of the bot's own placements.
	GarbageAdded
)

// Event is one tick's worth of input from the real-time game loop this
// executor is embedded in. Only the fields relevant to Kind are read.
type Event struct {
	Kind       EventKind
	NewInQueue rules.Piece
	Falling    rules.FallingPiece
	Placed     rules.FallingPiece
}

type pendingMove struct {
	holdPending bool
	movements   []pathfind.Movement
	expected    rules.FallingPiece
}

// Executor drives a search.Interface through one game's worth of ticks.
type Executor struct {
	iface   *search.Interface
	pending *pendingMove
	buttons Buttons
}

// New wraps a running bot interface.
func New(iface *search.Interface) *Executor {
	return &Executor{iface: iface}
}

// Buttons returns the button state computed by the most recent Update
// call, for the caller to feed into its own input layer.
func (e *Executor) Buttons() Buttons { return e.buttons }

// Update processes one tick's events against the current board,
// returning true if a misdrop or external garbage event was detected
// (in which case the bot has already been sent a Reset).
func (e *Executor) Update(board *rules.Board, events []Event) bool {
	if e.iface.IsDead() {
		e.buttons.HardDrop = !e.buttons.HardDrop
	}

	if mv, _, ok := e.iface.PollNextMove(); ok {
		e.pending = &pendingMove{
			holdPending: mv.Hold,
			movements:   append([]pathfind.Movement(nil), mv.Inputs...),
			expected:    mv.ExpectedLocation,
		}
	}

	reset := false
	for _, ev := range events {
		switch ev.Kind {
		case PieceSpawned:
			e.iface.NewPiece(ev.NewInQueue)
			if e.pending == nil {
				e.iface.RequestNextMove(0)
			}
		case PieceFalling:
			e.step(board, ev.Falling)
		case PieceHeld:
			if e.pending != nil {
				e.pending.holdPending = false
			}
			e.buttons.Hold = false
		case PiecePlaced:
			e.buttons = Buttons{}
			if e.pending != nil && !e.pending.expected.SameLocation(ev.Placed) {
				reset = true
			} else if e.pending == nil {
				reset = true
			}
			e.pending = nil
		case GarbageAdded:
			reset = true
		}
	}

	if reset {
		e.iface.Reset(board.GetField(), board.BackToBack, board.Combo)
	}
	return reset
}

// step advances the pending move by one tick given the piece's current
// airborne location, toggling exactly one button family per tick.
// Left/right pop the front movement once the rules collaborator reports
// the piece can no longer shift that way, or after one tick when the next
// queued movement differs. Cw/ccw pop their movement on the tick the
// button is pressed, without checking that the rotation shows up in the
// piece's location. Sonic drop pops once the piece cannot move down.
func (e *Executor) step(board *rules.Board, falling rules.FallingPiece) {
	if e.pending == nil {
		return
	}
	if e.pending.holdPending {
		e.buttons = Buttons{Hold: !e.buttons.Hold}
		return
	}
	e.buttons.Hold = false
	e.buttons.HardDrop = false

	if len(e.pending.movements) == 0 {
		e.buttons = Buttons{HardDrop: true}
		return
	}

	switch e.pending.movements[0] {
	case pathfind.Left:
		e.buttons.Right, e.buttons.RotateCW, e.buttons.RotateCCW, e.buttons.SoftDrop = false, false, false, false
		e.buttons.Left = true
		if _, ok := falling.Shift(board, -1, 0); !ok {
			e.pending.movements = e.pending.movements[1:]
			e.buttons.Left = false
		} else if len(e.pending.movements) > 1 && e.pending.movements[1] != pathfind.Left {
			e.pending.movements = e.pending.movements[1:]
		}
	case pathfind.Right:
		e.buttons.Left, e.buttons.RotateCW, e.buttons.RotateCCW, e.buttons.SoftDrop = false, false, false, false
		e.buttons.Right = true
		if _, ok := falling.Shift(board, 1, 0); !ok {
			e.pending.movements = e.pending.movements[1:]
			e.buttons.Right = false
		} else if len(e.pending.movements) > 1 && e.pending.movements[1] != pathfind.Right {
			e.pending.movements = e.pending.movements[1:]
		}
	case pathfind.Cw:
		e.buttons.Left, e.buttons.Right, e.buttons.SoftDrop = false, false, false
		e.buttons.RotateCCW = false
		e.buttons.RotateCW = !e.buttons.RotateCW
		if e.buttons.RotateCW {
			e.pending.movements = e.pending.movements[1:]
		}
	case pathfind.Ccw:
		e.buttons.Left, e.buttons.Right, e.buttons.SoftDrop = false, false, false
		e.buttons.RotateCW = false
		e.buttons.RotateCCW = !e.buttons.RotateCCW
		if e.buttons.RotateCCW {
			e.pending.movements = e.pending.movements[1:]
		}
	case pathfind.SonicDrop:
		e.buttons.Left, e.buttons.Right, e.buttons.RotateCW, e.buttons.RotateCCW = false, false, false, false
		e.buttons.SoftDrop = true
		if _, ok := falling.Shift(board, 0, -1); !ok {
			e.pending.movements = e.pending.movements[1:]
		}
	}
}
