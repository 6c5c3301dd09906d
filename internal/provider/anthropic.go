package provider

import (
	"context"
	"fmt"
	"strings"
)

const anthropicBaseURL = "https://api.anthropic.com/v1"

// jsonPrefill seeds the assistant turn so Claude continues a JSON object.
// The messages API has no response_format switch.
const jsonPrefill = "{"

// AnthropicClient implements LLMClient for the Anthropic Messages API.
type AnthropicClient struct {
	apiKey    string
	model     string
	maxTokens int
	baseURL   string // defaults to anthropicBaseURL
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content    []anthropicBlock `json:"content"`
	Model      string           `json:"model"`
	StopReason string           `json:"stop_reason"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	temp := req.Temperature
	body := anthropicRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		System:      req.SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: req.UserPrompt}},
		Temperature: &temp,
	}
	if req.JSONResponse {
		body.Messages = append(body.Messages, anthropicMessage{Role: "assistant", Content: jsonPrefill})
	}

	base := c.baseURL
	if base == "" {
		base = anthropicBaseURL
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}

	var result anthropicResponse
	latency, err := postJSON(ctx, "anthropic", strings.TrimRight(base, "/")+"/messages", headers, body, &result)
	if err != nil {
		return CompletionResponse{}, err
	}
	if result.Error != nil {
		return CompletionResponse{}, fmt.Errorf("anthropic error: %s", result.Error.Message)
	}

	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == "" || block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return CompletionResponse{}, fmt.Errorf("empty response from anthropic")
	}

	out := text.String()
	if req.JSONResponse && !strings.HasPrefix(strings.TrimSpace(out), jsonPrefill) {
		out = jsonPrefill + out
	}
	return CompletionResponse{
		Text:      out,
		Model:     result.Model,
		LatencyMs: latency,
	}, nil
}
