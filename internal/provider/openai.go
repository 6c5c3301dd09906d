package provider

import (
	"context"
	"fmt"
	"strings"
)

// OpenAIClient implements LLMClient for OpenAI and OpenAI-compatible APIs.
type OpenAIClient struct {
	apiKey    string
	model     string
	maxTokens int
	baseURL   string // e.g. "https://api.openai.com/v1" or "http://localhost:11434/v1"
}

type openaiRequest struct {
	Model          string          `json:"model"`
	Messages       []openaiMessage `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *openaiFormat   `json:"response_format,omitempty"`
}

type openaiFormat struct {
	Type string `json:"type"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	var messages []openaiMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, openaiMessage{Role: "user", Content: req.UserPrompt})

	body := openaiRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	temp := req.Temperature
	body.Temperature = &temp
	if req.JSONResponse {
		body.ResponseFormat = &openaiFormat{Type: "json_object"}
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	var result openaiResponse
	latency, err := postJSON(ctx, "openai", strings.TrimRight(c.baseURL, "/")+"/chat/completions", headers, body, &result)
	if err != nil {
		return CompletionResponse{}, err
	}

	if result.Error != nil {
		return CompletionResponse{}, fmt.Errorf("openai error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return CompletionResponse{}, fmt.Errorf("empty response from openai")
	}

	return CompletionResponse{
		Text:      result.Choices[0].Message.Content,
		Model:     result.Model,
		LatencyMs: latency,
	}, nil
}
