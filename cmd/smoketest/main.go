// Command smoketest drives a running tetrisbot server through one game's
// worth of requests and prints the search diagnostics for each move, the
// same "marshal a fixed payload, POST with a timeout client, decode and
// print the result" shape as tester/main.go, retargeted from a single
// fixed BattleSnake turn to a full start/move/end tetrisbot session.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

const defaultBaseURL = "http://localhost:8080"

type startRequest struct {
	PlayerName string   `json:"player_name"`
	Queue      []string `json:"queue"`
	Mode       string   `json:"mode"`
	Threads    int      `json:"threads"`
}

type startResponse struct {
	SessionID string `json:"session_id"`
}

type moveRequest struct {
	SessionID string `json:"session_id"`
	Incoming  int    `json:"incoming"`
}

type moveResponse struct {
	Hold   bool          `json:"hold"`
	Inputs []interface{} `json:"inputs"`
	Nodes  int           `json:"nodes"`
	Depth  int           `json:"depth"`
}

type endRequest struct {
	SessionID string `json:"session_id"`
}

func main() {
	baseURL := os.Getenv("TETRISBOT_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := &http.Client{Timeout: 10 * time.Second}

	start := startResponse{}
	if err := post(client, baseURL+"/start", startRequest{
		PlayerName: "smoketest",
		Queue:      []string{"I", "O", "T", "L", "J", "S", "Z"},
		Mode:       "harddrop",
		Threads:    0,
	}, &start); err != nil {
		fmt.Printf("start failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("started session %s\n", start.SessionID)

	for i := 0; i < 10; i++ {
		reqStart := time.Now()
		var move moveResponse
		if err := post(client, baseURL+"/move", moveRequest{SessionID: start.SessionID}, &move); err != nil {
			fmt.Printf("move %d failed: %v\n", i, err)
			break
		}
		fmt.Printf("move %d: hold=%v nodes=%d depth=%d (%s)\n", i, move.Hold, move.Nodes, move.Depth, time.Since(reqStart))
	}

	if err := post(client, baseURL+"/end", endRequest{SessionID: start.SessionID}, &map[string]string{}); err != nil {
		fmt.Printf("end failed: %v\n", err)
	}
}

func post(client *http.Client, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
