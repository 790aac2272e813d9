package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient serves completions from Google's Gemini models.
type GeminiClient struct {
	client *genai.Client
}

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{client: client}, nil
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

func (g *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	system, parts := splitMessages(req.Messages)
	if len(parts) == 0 {
		return Completion{}, &UpstreamError{Reason: "gemini request has no user content"}
	}

	model := g.client.GenerativeModel(req.Model)
	model.GenerationConfig = generationConfig(req)
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return Completion{}, &UpstreamError{Reason: "gemini request failed", Err: err}
	}

	return completionFromGemini(resp)
}

func generationConfig(req CompletionRequest) genai.GenerationConfig {
	temp := float32(req.Temperature)
	maxTokens := int32(req.MaxTokens)

	cfg := genai.GenerationConfig{
		Temperature:     &temp,
		MaxOutputTokens: &maxTokens,
	}
	if req.TopP != nil {
		topP := float32(*req.TopP)
		cfg.TopP = &topP
	}
	if req.JSONOutput {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

// a blocked prompt or reply comes back without candidates
func completionFromGemini(resp *genai.GenerateContentResponse) (Completion, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Completion{}, &UpstreamError{Reason: "gemini returned no candidates"}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}

	out := Completion{Text: text.String()}
	if md := resp.UsageMetadata; md != nil {
		out.Usage = &Usage{
			PromptTokens:     int(md.PromptTokenCount),
			CompletionTokens: int(md.CandidatesTokenCount),
			TotalTokens:      int(md.TotalTokenCount),
		}
	}

	return out, nil
}

// system messages become the model's system instruction, the rest are sent
// in order as text parts
func splitMessages(msgs []Message) (string, []genai.Part) {
	var system []string
	parts := make([]genai.Part, 0, len(msgs))

	for _, m := range msgs {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}

	return strings.Join(system, "\n\n"), parts
}
