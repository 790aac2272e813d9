// Package ai talks to the hosted chat-completion model: it renders the
// instruction templates, performs a single call per operation and turns the
// model's free text back into JSON.
package ai

import (
	"context"
	"errors"
	"fmt"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	TopP        *float64
	// JSONOutput asks backends that support it for a JSON-only reply.
	JSONOutput bool
}

type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type Completion struct {
	Text  string
	Usage *Usage
}

// Completer is one hosted model endpoint. Implementations make exactly one
// attempt per call and honour ctx for cancellation and deadlines.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

var ErrUpstream = errors.New("completion service error")

// UpstreamError describes a failed call to the completion service. Reason is
// short and safe to surface; Err keeps the underlying cause for logs.
type UpstreamError struct {
	StatusCode int // 0 when no HTTP response was received
	Reason     string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }
