// Package apiclient speaks the notification service's REST contract: the
// snapshot fetch, the read-state mutations, and the stream-token handshake.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/avd-uisa/notify-go/internal/domain/notification"
	"github.com/avd-uisa/notify-go/internal/engine/connection"
)

// Client is an HTTP client for the notification API. The access token is
// the session credential; a 401 or 403 maps to *connection.AuthError so the
// engine can tell "re-authenticate" apart from "try again".
type Client struct {
	baseURL     string
	accessToken string
	httpc       *http.Client
}

// New creates a Client. httpc may be nil for the default client.
func New(baseURL, accessToken string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{}
	}
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpc:       httpc,
	}
}

// StreamURL returns the SSE endpoint for the connection manager.
func (c *Client) StreamURL() string {
	return c.baseURL + "/api/v1/notifications/stream"
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// do executes one request and unmarshals the response envelope's data into
// out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &connection.AuthError{Reason: resp.Status}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}

	if !env.Success {
		if env.Error != nil {
			return fmt.Errorf("%s %s: %s (%s)", method, path, env.Error.Message, env.Error.Code)
		}
		return fmt.Errorf("%s %s: request failed with status %s", method, path, resp.Status)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}

// List performs a snapshot fetch for one window.
func (c *Client) List(ctx context.Context, limit int, cursor string) (*notification.ListResponse, error) {
	path := "/api/v1/notifications/?limit=" + strconv.Itoa(limit)
	if cursor != "" {
		path += "&cursor=" + cursor
	}

	var result notification.ListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UnreadCount fetches the server-side unread counter.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var result notification.UnreadCountResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/notifications/unread-count", nil, &result); err != nil {
		return 0, err
	}
	return result.UnreadCount, nil
}

// MarkRead marks one notification read on the server.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/notifications/"+id+"/read", nil, nil)
}

// MarkAllRead marks everything read and returns the ids the server
// confirmed.
func (c *Client) MarkAllRead(ctx context.Context) ([]string, error) {
	var result notification.MarkAllReadResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/notifications/read-all", nil, &result); err != nil {
		return nil, err
	}
	return result.ConfirmedIDs, nil
}

// StreamToken implements connection.TokenSource.
func (c *Client) StreamToken(ctx context.Context) (string, error) {
	var result notification.StreamTokenResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/notifications/sse-token", nil, &result); err != nil {
		return "", err
	}
	return result.Token, nil
}
