// Package api is a small client for the relay's HTTP endpoints, centralizing
// request construction so the engine never touches transport details.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
)

// Client talks to one relay instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// TransportError reports a non-2xx response from the relay, observed before
// any of the body was consumed.
type TransportError struct {
	StatusCode int
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("server error: %d", e.StatusCode)
}

// NewClient creates a Client for the relay at baseURL. A nil httpClient falls
// back to http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) post(ctx context.Context, path string, req models.ChatRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(httpReq)
}

// StreamChat opens the chunked streaming endpoint and returns the response
// body for sequential reading. A non-2xx status is reported as a
// *TransportError before any body is handed out; the caller owns closing the
// returned reader.
func (c *Client) StreamChat(ctx context.Context, req models.ChatRequest) (io.ReadCloser, error) {
	resp, err := c.post(ctx, "/api/chat/stream", req)
	if err != nil {
		return nil, fmt.Errorf("failed to contact relay: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &TransportError{StatusCode: resp.StatusCode}
	}

	return resp.Body, nil
}

// SendChat calls the non-streaming fallback endpoint and decodes its JSON
// response. Transport-level failures and non-2xx statuses are errors; a
// decoded body with Success=false is returned to the caller as data.
func (c *Client) SendChat(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	resp, err := c.post(ctx, "/api/chat", req)
	if err != nil {
		return models.ChatResponse{}, fmt.Errorf("failed to contact relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.ChatResponse{}, &TransportError{StatusCode: resp.StatusCode}
	}

	var out models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.ChatResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}
