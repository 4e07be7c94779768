package main

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

	"github.com/wricardo/botarena/game/service"
)

// Client talks to the bot arena REST API on behalf of one seat
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// do sends a request and decodes a JSON response into out, or copies a
// text body when out is a *string
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
		}
		return &APIError{Status: resp.StatusCode, Message: resp.Status}
	}

	if text, ok := out.(*string); ok {
		*text = string(data)
		return nil
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

// APIError is an error answer from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func matchPath(matchID string) string {
	return "/api/matches/" + url.PathEscape(matchID)
}

func (c *Client) GetMatch(ctx context.Context, matchID string) (*service.MatchInfo, error) {
	var info service.MatchInfo
	if err := c.do(ctx, "GET", matchPath(matchID), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// PlayerState returns the state exactly as the server renders it for bots
func (c *Client) PlayerState(ctx context.Context, matchID string, player int) (string, error) {
	var state string
	path := fmt.Sprintf("%s/players/%d/state", matchPath(matchID), player)
	if err := c.do(ctx, "GET", path, nil, &state); err != nil {
		return "", err
	}
	return strings.TrimRight(state, "\n"), nil
}

func (c *Client) SubmitOrders(ctx context.Context, matchID string, player int, orders []string) (*service.OrdersResult, error) {
	var result service.OrdersResult
	path := fmt.Sprintf("%s/players/%d/orders", matchPath(matchID), player)
	if err := c.do(ctx, "POST", path, map[string][]string{"orders": orders}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Advance(ctx context.Context, matchID string) (*service.MatchInfo, error) {
	var info service.MatchInfo
	if err := c.do(ctx, "POST", matchPath(matchID)+"/advance", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
