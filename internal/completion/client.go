// Package completion provides the client for the hosted completion service
// that generates assistant replies.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	errStatus    = errors.New("completion service returned non-OK status")
	errPayload   = errors.New("completion service returned an error payload")
	errMalformed = errors.New("completion service returned a malformed response")
)

// Turn is one role-tagged message submitted to the completion service.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the payload for one completion call: the replayed conversation,
// the domain context tag and the visitor's locale.
type Request struct {
	Turns    []Turn `json:"turns"`
	Context  string `json:"context"`
	Language string `json:"language,omitempty"`
}

// Response is the completion service reply. Exactly one of Text or Error is
// populated.
type Response struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Completer is the single external call the engine makes per exchange.
// There is no retry built in; a failure surfaces directly to the caller.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Client is an HTTP Completer.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a completion client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Complete sends one completion request and returns the generated text.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	url := c.baseURL + "/v1/complete"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: %d: %s", errStatus, resp.StatusCode, string(snippet))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", errMalformed, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("%w: %s", errPayload, out.Error)
	}
	if out.Text == "" {
		return "", errMalformed
	}

	return out.Text, nil
}

var _ Completer = (*Client)(nil)
