package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/botarena/api"
	"github.com/wricardo/botarena/game/config"
	"github.com/wricardo/botarena/game/engine"
	"github.com/wricardo/botarena/game/service"
	"github.com/wricardo/botarena/game/session"
)

// newArena starts a REST server over a real game service with one tiny
// lights map
func newArena(t *testing.T) *Client {
	t.Helper()
	maps, err := config.NewManager(t.TempDir(), engine.DefaultOptions())
	if err != nil {
		t.Fatalf("Failed to create map manager: %v", err)
	}
	if err := maps.SaveMap(engine.Lights, "tiny", "rows 2\ncols 2\nplayers 2\nm 10\nm 00\n"); err != nil {
		t.Fatalf("Failed to save map: %v", err)
	}

	svc := service.NewGameService(session.NewManager(), maps)
	server := httptest.NewServer(api.NewServer(svc, nil))
	t.Cleanup(server.Close)
	return NewClient(server.URL)
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (string, bool) {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}

	result, err := handler(context.Background(), request)
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if len(result.Content) == 0 {
		t.Fatal("Expected content in result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected TextContent, got %T", result.Content[0])
	}
	return text.Text, result.IsError
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}

	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}

	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCallError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "not this player's turn"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.apiCall(context.Background(), "POST", "/api/matches/x/advance", nil, nil)
	if err == nil || err.Error() != "not this player's turn" {
		t.Errorf("Expected API error message, got %v", err)
	}

	bare := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bare.Close()

	err = NewClient(bare.URL).apiCall(context.Background(), "GET", "/api/matches", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("Expected status in error, got %v", err)
	}
}

func TestGameRules(t *testing.T) {
	client := NewClient("http://unused")

	text, isErr := callTool(t, client.handleGameRules, map[string]interface{}{"game": "lights"})
	if isErr || !strings.Contains(text, "Lights Out") {
		t.Errorf("Unexpected rules: %s", text)
	}

	text, isErr = callTool(t, client.handleGameRules, nil)
	if isErr || !strings.Contains(text, "Game of Life") {
		t.Errorf("Expected life rules by default, got %s", text)
	}

	_, isErr = callTool(t, client.handleGameRules, map[string]interface{}{"game": "chess"})
	if !isErr {
		t.Error("Expected error for unknown game")
	}
}

func TestArgumentHelpers(t *testing.T) {
	args := map[string]interface{}{
		"f":     float64(3),
		"s":     "7",
		"bad":   "x",
		"list":  []interface{}{"0 1", " ", 5, "1 1 "},
		"lines": "0 0\n\n1 0\n",
	}

	if n, ok := intArg(args, "f"); !ok || n != 3 {
		t.Errorf("Expected 3, got %d %v", n, ok)
	}
	if n, ok := intArg(args, "s"); !ok || n != 7 {
		t.Errorf("Expected 7, got %d %v", n, ok)
	}
	if _, ok := intArg(args, "bad"); ok {
		t.Error("Expected non-numeric string to be rejected")
	}
	if _, ok := intArg(args, "missing"); ok {
		t.Error("Expected missing argument to be rejected")
	}

	if got := stringsArg(args, "list"); len(got) != 2 || got[1] != "1 1" {
		t.Errorf("Unexpected list %q", got)
	}
	if got := stringsArg(args, "lines"); len(got) != 2 || got[0] != "0 0" || got[1] != "1 0" {
		t.Errorf("Unexpected lines %q", got)
	}
}

func TestPlayMatchThroughTools(t *testing.T) {
	client := newArena(t)

	text, isErr := callTool(t, client.handleCreateMatch, map[string]interface{}{
		"game":    "lights",
		"map":     "tiny",
		"players": []interface{}{"alice", "bob"},
	})
	if isErr {
		t.Fatalf("create_match failed: %s", text)
	}
	if !strings.HasPrefix(text, "Created match ") {
		t.Fatalf("Unexpected output: %s", text)
	}
	matchID := strings.TrimSpace(strings.SplitN(strings.TrimPrefix(text, "Created match "), "\n", 2)[0])

	text, _ = callTool(t, client.handleListMatches, map[string]interface{}{"game": "lights"})
	if !strings.Contains(text, matchID) {
		t.Errorf("Expected match in list, got %s", text)
	}

	text, isErr = callTool(t, client.handlePlayerState, map[string]interface{}{"match_id": matchID, "player": float64(0)})
	if isErr || text != "1\n10\n00\n" {
		t.Errorf("Unexpected state %q", text)
	}

	_, isErr = callTool(t, client.handlePlayerState, map[string]interface{}{"match_id": matchID})
	if !isErr {
		t.Error("Expected error without player")
	}

	text, isErr = callTool(t, client.handleSubmitOrders, map[string]interface{}{"match_id": matchID, "player": float64(1), "orders": "0 0"})
	if !isErr || !strings.Contains(text, "turn") {
		t.Errorf("Expected out of turn error, got %s", text)
	}

	moves := []struct {
		player float64
		order  string
	}{
		{0, "0 0"},
		{1, "0 1"},
		{0, "1 0"},
	}
	for _, m := range moves {
		text, isErr = callTool(t, client.handleSubmitOrders, map[string]interface{}{
			"match_id": matchID,
			"player":   m.player,
			"orders":   []interface{}{m.order},
		})
		if isErr || !strings.Contains(text, "Accepted: 1") {
			t.Fatalf("submit_orders %q: %s", m.order, text)
		}

		text, isErr = callTool(t, client.handleAdvanceTurn, map[string]interface{}{"match_id": matchID})
		if isErr {
			t.Fatalf("advance_turn failed: %s", text)
		}
	}

	if !strings.Contains(text, "Game over") || !strings.Contains(text, "Winner: seat 0") {
		t.Errorf("Expected seat 0 to win, got %s", text)
	}

	text, isErr = callTool(t, client.handleGetReplay, map[string]interface{}{"match_id": matchID})
	if isErr {
		t.Fatalf("get_replay failed: %s", text)
	}
	var replay engine.Replay
	if err := json.Unmarshal([]byte(text), &replay); err != nil {
		t.Errorf("Replay is not JSON: %v", err)
	}

	text, isErr = callTool(t, client.handleLeaderboard, nil)
	if isErr || text != "No finished matches yet" {
		t.Errorf("Expected empty leaderboard without a store, got %s", text)
	}
}

func TestRunBotsAndMaps(t *testing.T) {
	client := newArena(t)

	text, isErr := callTool(t, client.handleListMaps, map[string]interface{}{"game": "lights"})
	if isErr || !strings.Contains(text, "lights/tiny: 2x2, 2 players") {
		t.Errorf("Unexpected maps: %s", text)
	}

	text, isErr = callTool(t, client.handleRunBots, map[string]interface{}{
		"game": "lights",
		"map":  "tiny",
		"bots": []interface{}{"first", "first"},
	})
	if isErr {
		t.Fatalf("run_bots failed: %s", text)
	}
	if !strings.Contains(text, "finished after 3 turns") || !strings.Contains(text, "Winner: seat 0") {
		t.Errorf("Unexpected run output: %s", text)
	}

	_, isErr = callTool(t, client.handleRunBots, map[string]interface{}{"game": "lights", "map": "tiny", "bots": []interface{}{"first"}})
	if !isErr {
		t.Error("Expected error for a missing bot")
	}
}
