package search

import "github.com/brensch/tetrisbot/internal/pathfind"

// Options configures a Bot, field-for-field cold-clear's bot::Options.
type Options struct {
	Mode      pathfind.Mode
	UseHold   bool
	Speculate bool
	MinNodes  int
	MaxNodes  int
	Threads   int
}

// DefaultOptions mirrors cold-clear's Options::default: zero-g movement,
// hold and speculation on, no node floor, an effectively unbounded
// ceiling, one worker.
func DefaultOptions() Options {
	return Options{
		Mode:      pathfind.ZeroG,
		UseHold:   true,
		Speculate: true,
		MinNodes:  0,
		MaxNodes:  int(^uint(0) >> 1),
		Threads:   1,
	}
}
