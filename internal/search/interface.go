package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/brensch/tetrisbot/internal/eval"
	"github.com/brensch/tetrisbot/internal/rules"
)

// Interface is the bot-facing API, translated from cold-clear's
// mpsc-channel Interface to Go channels: a command channel
// carries NewPiece/Reset/ForceAnalysisLine/NextMove requests to a single
// owning goroutine, which drains it in order and pushes completed moves
// onto a reply channel. Worker goroutines run independently against the
// same Bot, synchronised through the store's own lock.
type Interface struct {
	cmds   chan command
	replies chan reply

	deadMu sync.RWMutex
	dead   bool
}

type command struct {
	reset     *resetCmd
	newPiece  *rules.Piece
	force     []rules.FallingPiece
	nextMove  *int // incoming garbage, non-nil means "request a move"
}

type resetCmd struct {
	field rules.Field
	b2b   bool
	combo int
}

type reply struct {
	move Move
	info Info
}

// Start launches a bot goroutine plus Options.Threads worker goroutines,
// all cancelled together when ctx is done. It returns an Interface the
// caller drives with NewPiece/Reset/ForceAnalysisLine/RequestNextMove/
// PollNextMove, and a Stop function that cancels the workers and waits
// for them to exit, aggregating any reported errors.
func Start(ctx context.Context, board *rules.Board, options Options, evaluator eval.Evaluator) (*Interface, func() error) {
	if options.Threads <= 0 {
		options.Threads = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	bot := NewBot(board, options, evaluator)
	iface := &Interface{
		cmds:    make(chan command, 8),
		replies: make(chan reply, 1),
	}

	var wg sync.WaitGroup
	errs := make(chan error, options.Threads+1)

	for i := 0; i < options.Threads; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs <- fmt.Errorf("search worker %d: %v", worker, r)
				}
			}()
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if !bot.Think() {
					select {
					case <-ctx.Done():
						return
					default:
					}
				}
			}
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		iface.run(ctx, bot)
	}()

	stop := func() error {
		cancel()
		var result *multierror.Error
		wg.Wait()
		close(errs)
		for err := range errs {
			result = multierror.Append(result, err)
		}
		return result.ErrorOrNil()
	}

	return iface, stop
}

func (i *Interface) run(ctx context.Context, bot *Bot) {
	for {
		select {
		case <-ctx.Done():
			i.markDead()
			return
		case cmd := <-i.cmds:
			switch {
			case cmd.reset != nil:
				bot.Reset(cmd.reset.field, cmd.reset.b2b, cmd.reset.combo)
			case cmd.newPiece != nil:
				bot.AddNextPiece(*cmd.newPiece)
			case cmd.force != nil:
				bot.ForceAnalysisLine(cmd.force)
			case cmd.nextMove != nil:
				i.awaitMove(ctx, bot, *cmd.nextMove)
			}
		}
	}
}

// awaitMove polls the bot until it produces a move or the context ends,
// matching lib.rs's run loop retrying next_move until it succeeds or the
// bot dies.
func (i *Interface) awaitMove(ctx context.Context, bot *Bot, incoming int) {
	for {
		if bot.IsDead() {
			i.markDead()
			return
		}
		mv, info, ok := bot.NextMove(incoming)
		if ok {
			select {
			case i.replies <- reply{move: mv, info: info}:
			case <-ctx.Done():
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (i *Interface) markDead() {
	i.deadMu.Lock()
	i.dead = true
	i.deadMu.Unlock()
}

// IsDead reports whether the bot was found to have no living path forward
// while a move request was being served, or the context has ended. A bot
// that dies while no move request is pending is not reported until the
// next request.
func (i *Interface) IsDead() bool {
	i.deadMu.RLock()
	defer i.deadMu.RUnlock()
	return i.dead
}

// NewPiece appends a revealed piece to the queue; it must be drawable
// from the current bag while speculation is enabled.
func (i *Interface) NewPiece(p rules.Piece) {
	i.cmds <- command{newPiece: &p}
}

// Reset restates the playfield, back-to-back status, and combo count.
func (i *Interface) Reset(field rules.Field, b2b bool, combo int) {
	i.cmds <- command{reset: &resetCmd{field: field, b2b: b2b, combo: combo}}
}

// ForceAnalysisLine seeds the forced-lines set the search probes first.
func (i *Interface) ForceAnalysisLine(line []rules.FallingPiece) {
	i.cmds <- command{force: line}
}

// RequestNextMove asks the bot to provide a move as soon as it can. The
// reply arrives asynchronously; poll it with PollNextMove.
func (i *Interface) RequestNextMove(incoming int) {
	i.cmds <- command{nextMove: &incoming}
}

// PollNextMove returns the most recently completed move, if any is
// ready, without blocking.
func (i *Interface) PollNextMove() (Move, Info, bool) {
	select {
	case r := <-i.replies:
		return r.move, r.info, true
	default:
		return Move{}, Info{}, false
	}
}
