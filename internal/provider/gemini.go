package provider

import (
	"context"
	"fmt"
	"strings"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient implements LLMClient for the Gemini generateContent API.
type GeminiClient struct {
	apiKey    string
	model     string
	maxTokens int
	baseURL   string // defaults to geminiBaseURL
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	ModelVersion string `json:"modelVersion"`
	Error        *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	temp := req.Temperature
	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.UserPrompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     &temp,
			MaxOutputTokens: maxTokens,
		},
	}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}
	if req.JSONResponse {
		body.GenerationConfig.ResponseMimeType = "application/json"
	}

	base := c.baseURL
	if base == "" {
		base = geminiBaseURL
	}
	url := strings.TrimRight(base, "/") + "/models/" + c.model + ":generateContent"

	var result geminiResponse
	latency, err := postJSON(ctx, "gemini", url, map[string]string{"x-goog-api-key": c.apiKey}, body, &result)
	if err != nil {
		return CompletionResponse{}, err
	}

	if result.Error != nil {
		return CompletionResponse{}, fmt.Errorf("gemini error: %s", result.Error.Message)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return CompletionResponse{}, fmt.Errorf("empty response from gemini")
	}

	var text strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	model := result.ModelVersion
	if model == "" {
		model = c.model
	}
	return CompletionResponse{
		Text:      text.String(),
		Model:     model,
		LatencyMs: latency,
	}, nil
}
