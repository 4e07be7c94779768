package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/botarena/game/engine"
	"github.com/wricardo/botarena/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			// Bot runs can take a while
			Timeout: 2 * time.Minute,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Bot Arena",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Bot Arena - MCP Interface

Play turn based grid games (life, lights) against other players or bots.
Every tool proxies to the REST API server.

TURN LOOP:
1. create_match (or list_matches to join one)
2. player_state for your seat; the first line is your symbol, then the board
3. submit_orders with one "row col" line per order
4. advance_turn once every seat due to move has submitted

AVAILABLE TOOLS:
- game_rules: How a game is played and scored
- list_maps: Maps available per game
- create_match, list_matches, get_match: Match management
- player_state, submit_orders, advance_turn: Play a turn
- run_bots: Play a whole match between built-in or command line bots
- get_replay: Replay of a finished match
- leaderboard: Ranking over finished matches`),
	)

	c.registerTools()
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func intProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

func stringListProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": description,
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	gameProp := stringProp("Game variant: life (default) or lights")
	matchProp := stringProp("Match ID")
	playerProp := intProp("Seat index, starting at 0")

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Describe how a game is played: state format, order format and scoring",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"game": gameProp},
		},
	}, c.handleGameRules)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_maps",
		Description: "List the maps available for a game, or for every game",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"game": stringProp("Game variant (optional)")},
		},
	}, c.handleListMaps)

	// Match management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_match",
		Description: "Create a new match on a map",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game":    gameProp,
				"map":     stringProp("Map name (optional, default map otherwise)"),
				"players": stringListProp("Player names, one per seat (optional)"),
				"turns":   intProp("Turn limit (optional)"),
				"seed":    intProp("Random seed (optional)"),
			},
		},
	}, c.handleCreateMatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_matches",
		Description: "List matches in progress and recently finished",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"game": stringProp("Only list matches of this game (optional)")},
		},
	}, c.handleListMatches)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_match",
		Description: "Show a match: turn, seats to move, scores and board",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"match_id": matchProp},
			Required:   []string{"match_id"},
		},
	}, c.handleGetMatch)

	// Turn loop
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "player_state",
		Description: "Get the state a seat sees: its symbol on the first line, then the board",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": matchProp,
				"player":   playerProp,
			},
			Required: []string{"match_id", "player"},
		},
	}, c.handlePlayerState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "submit_orders",
		Description: "Submit orders for a seat on the current turn. Each order is a \"row col\" line. Resubmitting replaces earlier orders.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"match_id": matchProp,
				"player":   playerProp,
				"orders":   stringListProp("Orders, one \"row col\" per entry"),
			},
			Required: []string{"match_id", "player", "orders"},
		},
	}, c.handleSubmitOrders)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "advance_turn",
		Description: "Close the current turn, apply the submitted orders and start the next one",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"match_id": matchProp},
			Required:   []string{"match_id"},
		},
	}, c.handleAdvanceTurn)

	// Bots and results
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_bots",
		Description: "Play a whole match between bots. A bot is \"first\", \"random\" or a command line reading the state on stdin.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game":  gameProp,
				"map":   stringProp("Map name (optional)"),
				"bots":  stringListProp("One bot per seat"),
				"turns": intProp("Turn limit (optional)"),
				"seed":  intProp("Random seed (optional)"),
			},
			Required: []string{"bots"},
		},
	}, c.handleRunBots)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_replay",
		Description: "Get the replay of a finished match",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"match_id": matchProp},
			Required:   []string{"match_id"},
		},
	}, c.handleGetReplay)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leaderboard",
		Description: "Rank players by wins and points over finished matches",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game":  stringProp("Game variant (optional)"),
				"limit": intProp("Maximum rows (optional)"),
			},
		},
	}, c.handleLeaderboard)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result == nil {
		return nil
	}
	if text, ok := result.(*string); ok {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		*text = string(data)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

// Argument helpers

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

// intArg reads an integer argument; JSON numbers arrive as float64
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

// stringsArg accepts a list of strings or a single newline separated string
func stringsArg(args map[string]interface{}, key string) []string {
	var out []string
	switch v := args[key].(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		out = v
	case string:
		for _, line := range strings.Split(v, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}

func requireMatchAndPlayer(args map[string]interface{}) (string, int, error) {
	matchID := stringArg(args, "match_id")
	if matchID == "" {
		return "", 0, fmt.Errorf("match_id is required")
	}
	player, ok := intArg(args, "player")
	if !ok {
		return "", 0, fmt.Errorf("player is required")
	}
	return matchID, player, nil
}

// Tool handlers

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	variant := engine.Variant(stringArg(arguments(request), "game"))
	if variant == "" {
		variant = engine.Life
	}

	rules := engine.Rules(variant)
	if rules == "" {
		return mcp.NewToolResultError(fmt.Sprintf("unknown game %q", variant)), nil
	}
	return mcp.NewToolResultText(rules), nil
}

func (c *Client) handleListMaps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/maps"
	if game := stringArg(arguments(request), "game"); game != "" {
		path += "?game=" + url.QueryEscape(game)
	}

	var maps []*service.MapInfo
	if err := c.apiCall(ctx, "GET", path, nil, &maps); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Maps:\n\n")
	for _, m := range maps {
		fmt.Fprintf(&b, "- %s/%s: %dx%d, %d players", m.Game, m.MapID, m.Rows, m.Cols, m.Players)
		if m.Description != "" {
			fmt.Fprintf(&b, " (%s)", m.Description)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleCreateMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	req := service.CreateMatchRequest{
		Game:    engine.Variant(stringArg(args, "game")),
		Map:     stringArg(args, "map"),
		Players: stringsArg(args, "players"),
	}
	if turns, ok := intArg(args, "turns"); ok {
		req.Turns = turns
	}
	if seed, ok := intArg(args, "seed"); ok {
		req.Seed = int64(seed)
	}

	var info service.MatchInfo
	if err := c.apiCall(ctx, "POST", "/api/matches", req, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Created match " + info.ID + "\n\n" + formatMatchInfo(&info)), nil
}

func (c *Client) handleListMatches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/matches"
	if game := stringArg(arguments(request), "game"); game != "" {
		path += "?game=" + url.QueryEscape(game)
	}

	var response struct {
		Count   int                  `json:"count"`
		Matches []*service.MatchInfo `json:"matches"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if response.Count == 0 {
		return mcp.NewToolResultText("No matches"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Matches (%d):\n\n", response.Count)
	for _, m := range response.Matches {
		fmt.Fprintf(&b, "- %s %s/%s turn %d/%d %s, players %s\n",
			m.ID, m.Game, m.Map, m.Turn, m.Turns, m.Phase, strings.Join(m.Players, ", "))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID := stringArg(arguments(request), "match_id")
	if matchID == "" {
		return mcp.NewToolResultError("match_id is required"), nil
	}

	var info service.MatchInfo
	if err := c.apiCall(ctx, "GET", "/api/matches/"+url.PathEscape(matchID), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMatchInfo(&info)), nil
}

func (c *Client) handlePlayerState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID, player, err := requireMatchAndPlayer(arguments(request))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state string
	path := fmt.Sprintf("/api/matches/%s/players/%d/state", url.PathEscape(matchID), player)
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(state), nil
}

func (c *Client) handleSubmitOrders(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	matchID, player, err := requireMatchAndPlayer(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string][]string{"orders": stringsArg(args, "orders")}
	var result service.OrdersResult
	path := fmt.Sprintf("/api/matches/%s/players/%d/orders", url.PathEscape(matchID), player)
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatOrdersResult(&result)), nil
}

func (c *Client) handleAdvanceTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID := stringArg(arguments(request), "match_id")
	if matchID == "" {
		return mcp.NewToolResultError("match_id is required"), nil
	}

	var info service.MatchInfo
	if err := c.apiCall(ctx, "POST", "/api/matches/"+url.PathEscape(matchID)+"/advance", nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMatchInfo(&info)), nil
}

func (c *Client) handleRunBots(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	req := service.RunRequest{
		Game: engine.Variant(stringArg(args, "game")),
		Map:  stringArg(args, "map"),
		Bots: stringsArg(args, "bots"),
	}
	if turns, ok := intArg(args, "turns"); ok {
		req.Turns = turns
	}
	if seed, ok := intArg(args, "seed"); ok {
		req.Seed = int64(seed)
	}

	var result service.RunResult
	if err := c.apiCall(ctx, "POST", "/api/runs", req, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Match %s finished after %d turns (%s)\n", result.MatchID, result.Turns, result.Cutoff)
	for i, bot := range result.Bots {
		fmt.Fprintf(&b, "  seat %d %s: %d\n", i, bot, result.Scores[i])
	}
	b.WriteString(formatWinners(result.Winners))
	for _, e := range result.Errors {
		fmt.Fprintf(&b, "  error: %s\n", e)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetReplay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID := stringArg(arguments(request), "match_id")
	if matchID == "" {
		return mcp.NewToolResultError("match_id is required"), nil
	}

	var replay json.RawMessage
	if err := c.apiCall(ctx, "GET", "/api/matches/"+url.PathEscape(matchID)+"/replay", nil, &replay); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(replay)), nil
}

func (c *Client) handleLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	query := url.Values{}
	if game := stringArg(args, "game"); game != "" {
		query.Set("game", game)
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}
	path := "/api/leaderboard"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var entries []*service.LeaderboardEntry
	if err := c.apiCall(ctx, "GET", path, nil, &entries); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No finished matches yet"), nil
	}

	var b strings.Builder
	b.WriteString("Leaderboard:\n\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%2d. %s: %d wins, %d points in %d games\n", i+1, e.Player, e.Wins, e.Points, e.Games)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// Formatting

func formatMatchInfo(info *service.MatchInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Match %s (%s/%s)\n", info.ID, info.Game, info.Map)
	fmt.Fprintf(&b, "Turn %d of %d, %s\n", info.Turn, info.Turns, info.Phase)

	for i, name := range info.Players {
		status := ""
		if i < len(info.Alive) && !info.Alive[i] {
			status = " (eliminated)"
		}
		score := 0
		if i < len(info.Scores) {
			score = info.Scores[i]
		}
		fmt.Fprintf(&b, "  seat %d %s: %d%s\n", i, name, score, status)
	}

	if info.GameOver() {
		fmt.Fprintf(&b, "Game over: %s\n", info.Cutoff)
		b.WriteString(formatWinners(info.Winners))
	} else if len(info.ToMove) > 0 {
		seats := make([]string, len(info.ToMove))
		for i, p := range info.ToMove {
			seats[i] = fmt.Sprint(p)
		}
		fmt.Fprintf(&b, "To move: %s\n", strings.Join(seats, ", "))
	}

	if len(info.Board) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(info.Board, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

func formatWinners(winners []int) string {
	switch len(winners) {
	case 0:
		return "No winner\n"
	case 1:
		return fmt.Sprintf("Winner: seat %d\n", winners[0])
	}
	seats := make([]string, len(winners))
	for i, w := range winners {
		seats[i] = fmt.Sprint(w)
	}
	return "Tied: seats " + strings.Join(seats, ", ") + "\n"
}

func formatOrdersResult(r *service.OrdersResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Turn %d, seat %d\n", r.Turn, r.Player)
	fmt.Fprintf(&b, "Accepted: %d\n", len(r.Valid))
	for _, o := range r.Valid {
		fmt.Fprintf(&b, "  %s\n", o)
	}
	if len(r.Invalid) > 0 {
		fmt.Fprintf(&b, "Rejected: %d\n", len(r.Invalid))
		for _, o := range r.Invalid {
			fmt.Fprintf(&b, "  %s\n", o)
		}
	}
	if len(r.Ignored) > 0 {
		fmt.Fprintf(&b, "Ignored: %d\n", len(r.Ignored))
		for _, o := range r.Ignored {
			fmt.Fprintf(&b, "  %s\n", o)
		}
	}
	return b.String()
}
