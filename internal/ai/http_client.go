package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type HTTPClientConfig struct {
	Endpoint      string
	CustomerID    string
	Authorization string
	// optional; a zero-timeout client is used when nil since calls carry a deadline
	HTTPClient *http.Client
}

// HTTPClient speaks the chat-completions wire format over plain HTTP.
type HTTPClient struct {
	endpoint      string
	customerID    string
	authorization string
	hc            *http.Client
}

func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &HTTPClient{
		endpoint:      cfg.Endpoint,
		customerID:    cfg.CustomerID,
		authorization: cfg.Authorization,
		hc:            hc,
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	TopP        *float64  `json:"top_p,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	// some proxies flatten the reply
	Content string `json:"content"`
	Usage   *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

const maxResponseBytes = 8 << 20

func (c *HTTPClient) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("encode completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Completion{}, &UpstreamError{Reason: "AI API request could not be built", Err: err}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.customerID != "" {
		httpReq.Header.Set("customerId", c.customerID)
	}
	if c.authorization != "" {
		httpReq.Header.Set("Authorization", c.authorization)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return Completion{}, &UpstreamError{Reason: "AI API request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused; the body is never surfaced
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return Completion{}, &UpstreamError{
			StatusCode: resp.StatusCode,
			Reason:     fmt.Sprintf("AI API request failed: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}

	var decoded chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		return Completion{}, &UpstreamError{StatusCode: resp.StatusCode, Reason: "AI API returned an unreadable body", Err: err}
	}

	out := Completion{Text: decoded.Content}
	if len(decoded.Choices) > 0 && decoded.Choices[0].Message.Content != "" {
		out.Text = decoded.Choices[0].Message.Content
	}
	if decoded.Usage != nil {
		out.Usage = &Usage{
			PromptTokens:     decoded.Usage.PromptTokens,
			CompletionTokens: decoded.Usage.CompletionTokens,
			TotalTokens:      decoded.Usage.TotalTokens,
		}
	}

	return out, nil
}
