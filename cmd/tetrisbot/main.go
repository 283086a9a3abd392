// Command tetrisbot runs the HTTP service fronting the placement
// search engine: one session per game, started on /start and driven
// by /piece, /reset, and /move requests, in main.go's
// handleStart/handleMove/handleEnd style (a package-level session map
// instead of a single global board, since this engine can run more
// than one game concurrently).
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/tetrisbot/internal/cloudlog"
	"github.com/brensch/tetrisbot/internal/eval"
	"github.com/brensch/tetrisbot/internal/executor"
	"github.com/brensch/tetrisbot/internal/notify"
	"github.com/brensch/tetrisbot/internal/pathfind"
	"github.com/brensch/tetrisbot/internal/render"
	"github.com/brensch/tetrisbot/internal/replay"
	"github.com/brensch/tetrisbot/internal/rules"
	"github.com/brensch/tetrisbot/internal/search"
	"github.com/brensch/tetrisbot/internal/secrets"
)

func main() {
	handler := cloudlog.New(os.Stdout, slog.LevelInfo)
	slog.SetDefault(slog.New(handler))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	notifyClient := buildNotifyClient()
	notifyClient.Announce(context.Background(), "tetrisbot starting up")

	srv := newServer(notifyClient)
	defer srv.shutdownMessage()

	http.HandleFunc("/start", srv.handleStart)
	http.HandleFunc("/piece", srv.handlePiece)
	http.HandleFunc("/reset", srv.handleReset)
	http.HandleFunc("/move", srv.handleMove)
	http.HandleFunc("/tick", srv.handleTick)
	http.HandleFunc("/end", srv.handleEnd)

	slog.Info("starting tetrisbot", "port", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		slog.Error("server exited", "error", err.Error())
	}
}

func buildNotifyClient() *notify.Client {
	ctx := context.Background()
	client, err := secrets.NewClient(ctx)
	if err != nil {
		slog.Error("failed to create secret manager client, notifications disabled", "error", err.Error())
		return notify.New("", nil)
	}
	defer client.Close()

	webhookURL, err := client.Access(ctx, os.Getenv("DISCORD_WEBHOOK_SECRET"))
	if err != nil {
		slog.Warn("no discord webhook secret available", "error", err.Error())
	}

	tidbytToken, err := client.Access(ctx, os.Getenv("TIDBYT_SECRET"))
	var tidbyt *notify.Tidbyt
	if err != nil {
		slog.Warn("no tidbyt secret available", "error", err.Error())
	} else if deviceID := os.Getenv("TIDBYT_DEVICE_ID"); deviceID != "" {
		tidbyt = notify.NewTidbyt(deviceID, tidbytToken)
	}

	return notify.New(webhookURL, tidbyt)
}

// session is one live game: its running search interface, the executor
// translating its moves into button state, and the replay/render
// recorders accumulating its history.
type session struct {
	id       string
	iface    *search.Interface
	stop     func() error
	exec     *executor.Executor
	replay   *replay.Writer
	recorder render.Recorder
	cancel   context.CancelFunc
	tick     uint32
}

type server struct {
	sessions map[string]*session
	notify   *notify.Client
}

func newServer(n *notify.Client) *server {
	return &server{sessions: make(map[string]*session), notify: n}
}

func (s *server) shutdownMessage() {
	s.notify.Announce(context.Background(), "tetrisbot shutting down")
}

type startRequest struct {
	PlayerName string   `json:"player_name"`
	Queue      []string `json:"queue"`
	Mode       string   `json:"mode"`
	Threads    int      `json:"threads"`
}

func (s *server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	board := rules.NewBoard()
	for _, name := range req.Queue {
		p, err := parsePiece(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		board.AddNextPiece(p)
	}

	options := search.DefaultOptions()
	options.Mode = parseMode(req.Mode)
	options.Threads = req.Threads
	if options.Threads <= 0 {
		options.Threads = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())
	iface, stop := search.Start(ctx, board, options, eval.NewStandardEvaluator())

	id := uuid.NewString()
	sess := &session{
		id:     id,
		iface:  iface,
		stop:   stop,
		exec:   executor.New(iface),
		replay: replay.NewWriter(replay.Header{ID: id, PlayerName: req.PlayerName, Options: options}),
		cancel: cancel,
	}
	s.sessions[id] = sess

	s.notify.Announce(r.Context(), fmt.Sprintf("session %s started for %s", id, req.PlayerName))
	writeJSON(w, map[string]string{"session_id": id})
}

type pieceRequest struct {
	SessionID string `json:"session_id"`
	Piece     string `json:"piece"`
}

func (s *server) handlePiece(w http.ResponseWriter, r *http.Request) {
	var req pieceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess, ok := s.sessions[req.SessionID]
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	p, err := parsePiece(req.Piece)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess.iface.NewPiece(p)
	writeJSON(w, map[string]string{})
}

type resetRequest struct {
	SessionID string   `json:"session_id"`
	Field     []uint16 `json:"field"`
	B2B       bool     `json:"b2b"`
	Combo     int      `json:"combo"`
}

func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess, ok := s.sessions[req.SessionID]
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	var field rules.Field
	for i := 0; i < rules.Height && i < len(req.Field); i++ {
		field[i] = req.Field[i]
	}
	sess.iface.Reset(field, req.B2B, req.Combo)
	writeJSON(w, map[string]string{})
}

type moveRequest struct {
	SessionID string `json:"session_id"`
	Incoming  int    `json:"incoming"`
}

type moveResponse struct {
	Hold   bool                `json:"hold"`
	Inputs []pathfind.Movement `json:"inputs"`
	Nodes  int                 `json:"nodes"`
	Depth  int                 `json:"depth"`
}

func (s *server) handleMove(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess, ok := s.sessions[req.SessionID]
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	// 5-second safety timeout, the same defensive ceiling main.go puts
	// on its own per-request think budget.
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sess.iface.RequestNextMove(req.Incoming)

	var move search.Move
	var info search.Info
	for {
		select {
		case <-ctx.Done():
			http.Error(w, "search did not produce a move in time", http.StatusGatewayTimeout)
			return
		default:
		}
		if m, i, ok := sess.iface.PollNextMove(); ok {
			move, info = m, i
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	sess.tick++
	sess.replay.Record(replay.Frame{Tick: sess.tick, Buttons: sess.exec.Buttons(), Info: &info})

	slog.Info("move processed",
		"session_id", req.SessionID,
		"hold", move.Hold,
		"nodes", info.Nodes,
		"depth", info.Depth,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	writeJSON(w, moveResponse{Hold: move.Hold, Inputs: move.Inputs, Nodes: info.Nodes, Depth: info.Depth})
}

// fallingPieceDTO is the wire shape of rules.FallingPiece for the real-time
// event feed a front-end game loop posts to /tick.
type fallingPieceDTO struct {
	Piece    string `json:"piece"`
	Rotation int    `json:"rotation"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
}

func (d fallingPieceDTO) toFallingPiece() (rules.FallingPiece, error) {
	p, err := parsePiece(d.Piece)
	if err != nil {
		return rules.FallingPiece{}, err
	}
	if d.Rotation < 0 || d.Rotation > 3 {
		return rules.FallingPiece{}, fmt.Errorf("tetrisbot: rotation %d out of range", d.Rotation)
	}
	return rules.FallingPiece{Kind: p, Rotation: rules.Rotation(d.Rotation), X: d.X, Y: d.Y}, nil
}

// tickEvent mirrors one executor.Event, translated from the Kind enum to a
// wire-friendly string.
type tickEvent struct {
	Kind       string           `json:"kind"`
	NewInQueue string           `json:"new_in_queue,omitempty"`
	Falling    *fallingPieceDTO `json:"falling,omitempty"`
	Placed     *fallingPieceDTO `json:"placed,omitempty"`
}

func (e tickEvent) toEvent() (executor.Event, error) {
	kind, err := parseEventKind(e.Kind)
	if err != nil {
		return executor.Event{}, err
	}
	out := executor.Event{Kind: kind}
	if e.NewInQueue != "" {
		p, err := parsePiece(e.NewInQueue)
		if err != nil {
			return executor.Event{}, err
		}
		out.NewInQueue = p
	}
	if e.Falling != nil {
		fp, err := e.Falling.toFallingPiece()
		if err != nil {
			return executor.Event{}, err
		}
		out.Falling = fp
	}
	if e.Placed != nil {
		fp, err := e.Placed.toFallingPiece()
		if err != nil {
			return executor.Event{}, err
		}
		out.Placed = fp
	}
	return out, nil
}

func parseEventKind(name string) (executor.EventKind, error) {
	switch name {
	case "spawned":
		return executor.PieceSpawned, nil
	case "falling":
		return executor.PieceFalling, nil
	case "placed":
		return executor.PiecePlaced, nil
	case "held":
		return executor.PieceHeld, nil
	case "garbage":
		return executor.GarbageAdded, nil
	default:
		return 0, fmt.Errorf("tetrisbot: unknown event kind %q", name)
	}
}

// tickRequest carries one real-time tick's board state and events, the
// counterpart to main.go's per-request BattleSnakeGame payload but fed
// continuously by a game loop rather than once per move.
type tickRequest struct {
	SessionID string      `json:"session_id"`
	Field     []uint16    `json:"field"`
	Combo     int         `json:"combo"`
	B2B       bool        `json:"b2b"`
	Events    []tickEvent `json:"events"`
}

type tickResponse struct {
	Buttons executor.Buttons `json:"buttons"`
	Reset   bool             `json:"reset"`
}

func (s *server) handleTick(w http.ResponseWriter, r *http.Request) {
	var req tickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess, ok := s.sessions[req.SessionID]
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	board := rules.NewBoard()
	var field rules.Field
	for i := 0; i < rules.Height && i < len(req.Field); i++ {
		field[i] = req.Field[i]
	}
	board.SetField(field)
	board.Combo = req.Combo
	board.BackToBack = req.B2B

	events := make([]executor.Event, 0, len(req.Events))
	var falling *rules.FallingPiece
	for _, raw := range req.Events {
		ev, err := raw.toEvent()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if raw.Falling != nil {
			fp := ev.Falling
			falling = &fp
		}
		events = append(events, ev)
	}

	reset := sess.exec.Update(board, events)
	sess.recorder.Add(render.Snapshot{Board: board, Falling: falling, Combo: board.Combo, B2B: board.BackToBack})

	writeJSON(w, tickResponse{Buttons: sess.exec.Buttons(), Reset: reset})
}

type endRequest struct {
	SessionID string `json:"session_id"`
}

func (s *server) handleEnd(w http.ResponseWriter, r *http.Request) {
	var req endRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess, ok := s.sessions[req.SessionID]
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	delete(s.sessions, req.SessionID)

	sess.cancel()
	if err := sess.stop(); err != nil {
		slog.Error("search worker errors on shutdown", "session_id", req.SessionID, "error", err.Error())
		s.notify.AlertDeadSearch(r.Context(), fmt.Sprintf("session %s: %v", req.SessionID, err))
	}

	if bucketName := os.Getenv("REPLAY_BUCKET"); bucketName != "" {
		go uploadReplay(sess, bucketName)
	}

	if s.notify != nil && s.notify.Tidbyt != nil {
		go pushFinalSnapshot(s.notify, sess, req.SessionID)
	}

	writeJSON(w, map[string]string{})
}

// pushFinalSnapshot encodes every recorded tick as a GIF and pushes it to
// the configured Tidbyt device, the same "render the finished game, push
// once" flow as renderer.go's RetrieveGameRenderAndSendToTidbyt.
func pushFinalSnapshot(n *notify.Client, sess *session, sessionID string) {
	gifBytes, err := sess.recorder.EncodeGIF(3000, 500)
	if err != nil {
		slog.Warn("no snapshot to push", "session_id", sessionID, "error", err.Error())
		return
	}
	encoded := base64.StdEncoding.EncodeToString(gifBytes)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := n.PushSnapshot(ctx, encoded, "", false); err != nil {
		slog.Error("failed to push snapshot to tidbyt", "session_id", sessionID, "error", err.Error())
	}
}

func uploadReplay(sess *session, bucketName string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bucket, err := secrets.OpenBucket(ctx, bucketName)
	if err != nil {
		slog.Error("failed to open replay bucket", "error", err.Error())
		return
	}
	defer bucket.Close()

	if err := sess.replay.Upload(ctx, bucket); err != nil {
		slog.Error("failed to upload replay", "error", err.Error())
	}
}

func parsePiece(name string) (rules.Piece, error) {
	for _, p := range rules.AllPieces {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("tetrisbot: unknown piece %q", name)
}

func parseMode(name string) pathfind.Mode {
	switch name {
	case "20g":
		return pathfind.TwentyG
	case "harddrop":
		return pathfind.HardDropOnly
	default:
		return pathfind.ZeroG
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err.Error())
	}
}
