// Package remote speaks the uniform remote tool protocol: one JSON request
// `{id, tool, arguments}`, one JSON response `{id, result}` or
// `{id, error: {kind, message}}`. Anything unreachable, malformed, or
// mismatched maps to a protocol error; only a deadline maps to timeout.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/redpen-ai/redpen/pkg/types"
)

// Client posts remote tool calls to a single endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a protocol client for the endpoint. The API key may be
// empty for unauthenticated endpoints.
func NewClient(endpoint, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	ID        string          `json:"id"`
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

// Call invokes the named remote tool and returns the result payload.
func (c *Client) Call(ctx context.Context, tool string, args json.RawMessage) (string, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	id := uuid.New().String()

	payload, err := json.Marshal(request{ID: id, Tool: tool, Arguments: args})
	if err != nil {
		return "", types.NewToolError(types.ErrKindIO, "encoding request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", types.NewToolError(types.ErrKindIO, "building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", types.NewToolError(types.ErrKindProtocol, "endpoint unreachable: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.NewToolError(types.ErrKindProtocol, "reading response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", types.NewToolError(types.ErrKindProtocol, "endpoint returned %d: %s", resp.StatusCode, snippet(body))
	}
	if !gjson.ValidBytes(body) {
		return "", types.NewToolError(types.ErrKindProtocol, "malformed response: %s", snippet(body))
	}

	parsed := gjson.ParseBytes(body)
	if got := parsed.Get("id").String(); got != id {
		return "", types.NewToolError(types.ErrKindProtocol, "response id %q does not match request id %q", got, id)
	}

	if errField := parsed.Get("error"); errField.Exists() {
		return "", remoteError(errField)
	}

	result := parsed.Get("result")
	if !result.Exists() {
		return "", types.NewToolError(types.ErrKindProtocol, "response carries neither result nor error")
	}
	if result.Type == gjson.String {
		return result.String(), nil
	}
	return result.Raw, nil
}

// remoteError maps a structured remote error into a ToolError. Unknown or
// missing kinds land in the protocol class since the endpoint broke the
// contract.
func remoteError(errField gjson.Result) error {
	message := errField.Get("message").String()
	if message == "" {
		message = errField.Raw
	}
	kind := types.ErrorKind(errField.Get("kind").String())
	switch kind {
	case types.ErrKindIO, types.ErrKindTimeout, types.ErrKindNotFound, types.ErrKindProtocol:
		return types.NewToolError(kind, "remote tool: %s", message)
	default:
		return types.NewToolError(types.ErrKindProtocol, "remote tool: %s", message)
	}
}

func snippet(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return fmt.Sprintf("%q", s)
}
