// Package replay persists a played game as a header plus a sequence of
// per-frame records, for deterministic playback. This implementation
// follows original_source/battle/src/battle.rs's Replay struct
// (p1/p2 names, three RNG seeds, a queue of per-tick controller/event
// updates) and original_source/cc-client/src/replay.rs's
// InfoReplay wrapper (the same plus per-player search.Info snapshots),
// translated to a JSON header (human-inspectable, easy to version) with
// gob-encoded frames. The Header here records a single player: one name,
// one set of search options, a queue seed and a garbage seed; it has no
// second player's configuration or seed. A Writer keeps every frame in
// memory until it is encoded, and decoding reads the whole replay into
// memory.
package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/brensch/tetrisbot/internal/executor"
	"github.com/brensch/tetrisbot/internal/search"
	"github.com/brensch/tetrisbot/internal/secrets"
)

// Header describes a recorded game, written once before any frames.
type Header struct {
	ID           string
	PlayerName   string
	QueueSeed    int64
	GarbageSeed  int64
	Options      search.Options
}

// Frame is one tick's worth of recorded state: the buttons the executor
// produced and, when the bot completed a think cycle this tick, its
// diagnostics.
type Frame struct {
	Tick    uint32
	Buttons executor.Buttons
	Info    *search.Info
}

// Writer accumulates frames in memory and flushes a completed replay as
// a JSON header line followed by gob-encoded frames.
type Writer struct {
	header Header
	frames []Frame
}

// NewWriter starts a new replay for the given game, generating an id if
// none was supplied.
func NewWriter(header Header) *Writer {
	if header.ID == "" {
		header.ID = uuid.NewString()
	}
	return &Writer{header: header}
}

// Record appends one tick's frame.
func (w *Writer) Record(f Frame) {
	w.frames = append(w.frames, f)
}

// Encode serialises the header (as a JSON line) followed by every
// recorded frame (gob), in order.
func (w *Writer) Encode() ([]byte, error) {
	var buf bytes.Buffer
	headerBytes, err := json.Marshal(w.header)
	if err != nil {
		return nil, fmt.Errorf("replay: marshal header: %w", err)
	}
	buf.Write(headerBytes)
	buf.WriteByte('\n')

	enc := gob.NewEncoder(&buf)
	for _, f := range w.frames {
		if err := enc.Encode(f); err != nil {
			return nil, fmt.Errorf("replay: encode frame %d: %w", f.Tick, err)
		}
	}
	return buf.Bytes(), nil
}

// Upload encodes the replay and streams it to the given bucket under
// "<id>.replay".
func (w *Writer) Upload(ctx context.Context, bucket *secrets.Bucket) error {
	data, err := w.Encode()
	if err != nil {
		return err
	}
	return bucket.Upload(ctx, w.header.ID+".replay", bytes.NewReader(data))
}

// Decode reads a header line followed by gob-encoded frames, the inverse
// of Encode.
func Decode(r io.Reader) (Header, []Frame, error) {
	br := bufio.NewReader(r)
	line, err := br.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return Header{}, nil, fmt.Errorf("replay: read header: %w", err)
	}
	var header Header
	if err := json.Unmarshal(bytes.TrimRight(line, "\n"), &header); err != nil {
		return Header{}, nil, fmt.Errorf("replay: unmarshal header: %w", err)
	}

	dec := gob.NewDecoder(br)
	var frames []Frame
	for {
		var f Frame
		if err := dec.Decode(&f); err != nil {
			if err == io.EOF {
				break
			}
			return Header{}, nil, fmt.Errorf("replay: decode frame: %w", err)
		}
		frames = append(frames, f)
	}
	return header, frames, nil
}
