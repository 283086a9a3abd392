package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// StreamFrames dials a websocket endpoint emitting one JSON-encoded
// Frame message per game tick and records each one into w, returning
// once the server sends a normal close frame or ctx is cancelled.
// Mirrors renderer.go's collectGameFrames: dial with a bounded context,
// read messages in a loop, treat a normal close as the end of the
// stream rather than an error.
func StreamFrames(ctx context.Context, url string, w *Writer) error {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return fmt.Errorf("replay: dial frame stream: %w", err)
	}
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, message, err := conn.ReadMessage()
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("replay: read frame: %w", err)
		}

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			return fmt.Errorf("replay: decode frame: %w", err)
		}
		w.Record(frame)
	}
}
