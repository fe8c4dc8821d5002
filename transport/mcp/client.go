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
	log "github.com/sirupsen/logrus"

	"github.com/wricardo/mcp-training/keydoor/game/engine"
	"github.com/wricardo/mcp-training/keydoor/game/service"
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
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Key and Door Puzzle",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Key and Door Puzzle - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Push the key (K) into the door (D) to open it, then walk the player (P) onto
the open door (E). Finish every level of the set to win.

AVAILABLE TOOLS:
- create_session / get_session / list_sessions: manage sessions
- start_game, continue_game, challenge_menu, select_challenge, quit_game, acknowledge: session state machine
- game_state: current board and counters
- move / bulk_move: move the player (up/down/left/right) - requires intent explanation
- undo: revert the last step of every entity
- reset_level: restore the current level
- action_history: paginated action log
- describe_cell: what occupies a given grid cell
- list_level_sets: available level sets
- game_instructions: complete rules

NOTE: The 'intent' parameter on move/bulk_move serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// sessionTool declares a tool whose only argument is the session ID
func sessionTool(name, description string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with an optional level set",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"level_set_id": map[string]interface{}{
					"type":        "string",
					"description": "Level set to play (optional, see list_level_sets)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(sessionTool("get_session", "Get details of a specific session"), c.handleGetSession)

	// State machine
	c.mcpServer.AddTool(sessionTool("start_game", "Start a normal run from the first level"), c.transitionHandler("start"))
	c.mcpServer.AddTool(sessionTool("continue_game", "Resume the last saved normal run"), c.transitionHandler("continue"))
	c.mcpServer.AddTool(sessionTool("challenge_menu", "Open the challenge level picker"), c.transitionHandler("challenge-menu"))
	c.mcpServer.AddTool(sessionTool("quit_game", "Leave the current run"), c.transitionHandler("quit"))
	c.mcpServer.AddTool(sessionTool("acknowledge", "Dismiss the ended or won screen and return to the start screen"), c.transitionHandler("acknowledge"))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "select_challenge",
		Description: "Play a single level as a challenge. Winning that level wins the session.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"level": map[string]interface{}{
					"type":        "integer",
					"description": "Zero-based level index",
				},
			},
			Required: []string{"session_id", "level"},
		},
	}, c.handleSelectChallenge)

	// Game operations
	c.mcpServer.AddTool(sessionTool("game_state", "Get the current game state"), c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Move the player one cell, pushing whatever stands in the way",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"up", "down", "left", "right"},
					"description": "Direction to move",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this move (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "direction"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_move",
		Description: fmt.Sprintf("Execute up to %d moves in sequence. Stops at the first rejected move or finished level.", engine.MaxBulkMoves),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"moves": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []string{"up", "down", "left", "right"},
					},
					"description": "Array of moves",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this sequence of moves (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "moves"},
		},
	}, c.handleBulkMove)

	c.mcpServer.AddTool(sessionTool("undo", "Revert the last step of every entity in the level"), c.handleUndo)
	c.mcpServer.AddTool(sessionTool("reset_level", "Restore the current level to its starting layout"), c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "action_history",
		Description: "Get the action log for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Sort order, newest first by default",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleActionHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe what occupies a grid cell. Columns and rows count from 0 and include the wall ring.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"column": map[string]interface{}{
					"type":        "integer",
					"description": "Column of the cell (0-based)",
				},
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row of the cell (0-based)",
				},
			},
			Required: []string{"session_id", "column", "row"},
		},
	}, c.handleDescribeCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_level_sets",
		Description: "List available level sets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListLevelSets)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
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
		var errResp struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix, nil
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	body := map[string]string{}
	if levelSet, _ := args["level_set_id"].(string); levelSet != "" {
		body["level_set_id"] = levelSet
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nLevel set: %s\nCall start_game to begin.\n", session.ID, session.LevelSetID)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		state := ""
		if s.GameState != nil {
			state = fmt.Sprintf(", %s level %d/%d", s.GameState.State, s.GameState.LevelIndex+1, s.GameState.LevelCount)
		}
		fmt.Fprintf(&b, "- %s (Level set: %s%s, Created: %s)\n", s.ID, s.LevelSetID, state, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

// transitionHandler proxies a state machine event endpoint
func (c *Client) transitionHandler(event string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := sessionPath(arguments(request), "/"+event)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var state engine.GameState
		if err := c.apiCall(ctx, "POST", path, nil, &state); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		log.WithField("event", event).Debug("mcp transition")
		return mcp.NewToolResultText(formatGameState(&state)), nil
	}
}

func (c *Client) handleSelectChallenge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/challenge")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	level, ok := intArg(args, "level")
	if !ok {
		return mcp.NewToolResultError("level is required"), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "POST", path, map[string]int{"level": level}, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/move")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	direction, _ := args["direction"].(string)

	// intent is for the caller's benefit only
	if intent, _ := args["intent"].(string); intent != "" {
		log.WithField("intent", intent).Debug("mcp move")
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", path, map[string]string{"direction": direction}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/bulk-move")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	movesRaw, _ := args["moves"].([]interface{})
	moves := make([]string, 0, len(movesRaw))
	for _, m := range movesRaw {
		if move, ok := m.(string); ok {
			moves = append(moves, move)
		}
	}
	if len(moves) == 0 {
		return mcp.NewToolResultError("moves must contain at least one direction"), nil
	}

	var result service.BulkMoveResult
	if err := c.apiCall(ctx, "POST", path, map[string][]string{"moves": moves}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sessionID, _ := args["session_id"].(string)
	return mcp.NewToolResultText(formatBulkMoveResult(sessionID, &result)), nil
}

func (c *Client) handleUndo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/undo")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.UndoResult
	if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatUndoResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/reset")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleActionHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/history")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		query.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}
	if order, _ := args["order"].(string); order != "" {
		query.Set("order", order)
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	col, okCol := intArg(args, "column")
	row, okRow := intArg(args, "row")
	if !okCol || !okRow {
		return mcp.NewToolResultError("column and row are required"), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	description, err := describeCell(&state, col, row)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(description), nil
}

func (c *Client) handleListLevelSets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sets []service.LevelSetInfo
	if err := c.apiCall(ctx, "GET", "/api/levels", nil, &sets); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Level Sets:\n\n")
	for _, set := range sets {
		fmt.Fprintf(&b, "• %s (level_set_id: %s)\n", set.Name, set.LevelSetID)
		if set.Description != "" {
			fmt.Fprintf(&b, "  %s\n", set.Description)
		}
		fmt.Fprintf(&b, "  Levels: %d, Grid: %dx%d\n\n", set.Levels, set.GridSize, set.GridSize)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Key and Door Puzzle - Complete Instructions

GAME OBJECTIVE:
Each level has a player, a key, a locked door and some blocks. Push the key
into the door to unlock it, then step onto the open door to finish the level.
A normal run plays every level in order; a challenge plays one chosen level.

SESSION FLOW:
1. create_session - returns a session ID
2. start_game (or select_challenge, or continue_game to resume a saved run)
3. move / bulk_move / undo / reset_level until the level is done
4. After the last level the session is won; acknowledge returns to the start

MOVEMENT:
• The player moves one cell per move: up, down, left or right
• Whatever stands in the destination is pushed one cell the same way,
  and so on down the chain
• If anything in the chain cannot move, nothing moves at all
• Static blocks (X) never move; the walls (#) bound the playable area
• Only the key may enter the locked door; doing so consumes the key and
  opens the door for the rest of the level
• Only the player may step onto the open door (E)

TELEPORTERS:
• Pads (O) come in linked pairs
• Anything that steps onto a pad is carried to the cell just past the
  partner pad, continuing in the direction it was moving
• Whatever occupies that landing cell is pushed ahead of it
• If the landing cell cannot be reached, the entity stays on the pad

UNDO AND RESET:
• undo steps every entity back by its last recorded move at once
• An undo that would put two entities on one cell is rejected and changes
  nothing
• An opened door stays open after undo; reset_level restores the level

MAP LEGEND:
P = Player      K = Key         D = Locked door   E = Open door
B = Movable block               X = Static block
O = Teleporter pad              # = Wall          . = Floor

COORDINATES:
Entity positions are pixel coordinates; divide by the block size (see
game_state) to get the column and row shown on the map.

STRATEGY TIPS:
• Plan where the key must end up before pushing it: a key pushed into a
  corner can only be recovered with undo or reset
• Use describe_cell when the map is ambiguous
• Use bulk_move for straight runs; it stops at the first rejected move`
