package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/thinkwright/agent-trajectory/internal/config"
)

// --- NewClient tests ---

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient(Config{Provider: "nope"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	var ce *config.ConfigurationError
	if !errors.As(err, &ce) || ce.Setting != "oracle.provider" {
		t.Errorf("expected ConfigurationError for oracle.provider, got %v", err)
	}
}

func TestNewClientMissingKey(t *testing.T) {
	for provider, env := range map[string]string{
		"gemini":    "GEMINI_API_KEY",
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
	} {
		t.Run(provider, func(t *testing.T) {
			t.Setenv(env, "")
			_, err := NewClient(Config{Provider: provider})
			var ce *config.ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigurationError when %s is unset, got %v", env, err)
			}
			if ce.Setting != env {
				t.Errorf("expected setting %s, got %q", env, ce.Setting)
			}
		})
	}
}

func TestNewClientDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("ANTHROPIC_API_KEY", "a-key")
	t.Setenv("OPENAI_API_KEY", "o-key")

	tests := []struct {
		cfg       Config
		model     string
		maxTokens int
		baseURL   string
	}{
		{Config{}, DefaultGeminiModel, defaultMaxTokens, ""},
		{Config{Provider: "anthropic"}, "claude-sonnet-4-5-20250514", defaultMaxTokens, ""},
		{Config{Provider: "openai", MaxTokens: 512}, "gpt-4o", 512, "https://api.openai.com/v1"},
		{Config{Provider: "gemini", Model: "gemini-1.5-pro", BaseURL: "http://proxy"}, "gemini-1.5-pro", defaultMaxTokens, "http://proxy"},
	}
	for _, tt := range tests {
		client, err := NewClient(tt.cfg)
		if err != nil {
			t.Fatalf("%+v: unexpected error: %v", tt.cfg, err)
		}
		var model, baseURL string
		var maxTokens int
		switch c := client.(type) {
		case *GeminiClient:
			model, maxTokens, baseURL = c.model, c.maxTokens, c.baseURL
		case *AnthropicClient:
			model, maxTokens, baseURL = c.model, c.maxTokens, c.baseURL
		case *OpenAIClient:
			model, maxTokens, baseURL = c.model, c.maxTokens, c.baseURL
		default:
			t.Fatalf("%+v: unexpected client type %T", tt.cfg, client)
		}
		if model != tt.model || maxTokens != tt.maxTokens || baseURL != tt.baseURL {
			t.Errorf("%+v: got model=%s maxTokens=%d baseURL=%q", tt.cfg, model, maxTokens, baseURL)
		}
	}
}

func TestNewClientOpenAICompatRequiredSettings(t *testing.T) {
	tests := []struct {
		cfg     Config
		setting string
	}{
		{Config{Provider: "openai-compatible", Model: "llama3"}, "oracle.base_url"},
		{Config{Provider: "openai-compatible", BaseURL: "http://localhost:11434/v1"}, "oracle.model"},
	}
	for _, tt := range tests {
		_, err := NewClient(tt.cfg)
		var ce *config.ConfigurationError
		if !errors.As(err, &ce) || ce.Setting != tt.setting {
			t.Errorf("%+v: expected ConfigurationError for %s, got %v", tt.cfg, tt.setting, err)
		}
	}
}

func TestNewClientOpenAICompatNoKeyRequired(t *testing.T) {
	client, err := NewClient(Config{
		Provider: "openai-compatible",
		BaseURL:  "http://localhost:11434/v1",
		Model:    "llama3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if oc := client.(*OpenAIClient); oc.apiKey != "" {
		t.Error("expected empty API key for local provider")
	}
}

func TestNewClientCustomAPIKeyEnv(t *testing.T) {
	t.Setenv("CEREBRAS_API_KEY", "crs-test-key")
	client, err := NewClient(Config{
		Provider:  "openai-compatible",
		BaseURL:   "https://api.cerebras.ai/v1",
		Model:     "llama-4-scout-17b-16e-instruct",
		APIKeyEnv: "CEREBRAS_API_KEY",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	oc := client.(*OpenAIClient)
	if oc.apiKey != "crs-test-key" {
		t.Errorf("expected API key from CEREBRAS_API_KEY, got %q", oc.apiKey)
	}
	if oc.baseURL != "https://api.cerebras.ai/v1" {
		t.Errorf("unexpected baseURL: %s", oc.baseURL)
	}
}

// --- HTTP round-trip tests ---

func TestOpenAIClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing or wrong Authorization header")
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Error("missing Content-Type header")
		}

		var req openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Temperature == nil {
			t.Error("expected temperature to be set")
		}
		if req.Model != "test-model" {
			t.Errorf("expected model test-model, got %s", req.Model)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Error("expected json_object response_format")
		}

		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			}{
				{Message: struct {
					Content string `json:"content"`
				}{Content: "hello from test"}},
			},
			Model: "test-model",
		})
	}))
	defer server.Close()

	client := &OpenAIClient{
		apiKey:    "test-key",
		model:     "test-model",
		maxTokens: 100,
		baseURL:   server.URL,
	}

	resp, err := client.Complete(context.Background(), CompletionRequest{
		UserPrompt:   "hi",
		Temperature:  0.7,
		JSONResponse: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "hello from test" {
		t.Errorf("unexpected response text: %s", resp.Text)
	}
	if resp.LatencyMs < 0 {
		t.Error("expected non-negative latency")
	}
}

func TestAnthropicClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("missing or wrong x-api-key header")
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Error("missing anthropic-version header")
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Temperature == nil {
			t.Error("expected temperature to be set")
		}
		if req.System != "you are helpful" {
			t.Errorf("expected system prompt, got %q", req.System)
		}

		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicBlock{{Type: "text", Text: "hello from anthropic"}},
			Model:   "claude-test",
		})
	}))
	defer server.Close()

	client := &AnthropicClient{
		apiKey:    "test-key",
		model:     "claude-test",
		maxTokens: 100,
		baseURL:   server.URL,
	}

	resp, err := client.Complete(context.Background(), CompletionRequest{
		SystemPrompt: "you are helpful",
		UserPrompt:   "hi",
		Temperature:  0.7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "hello from anthropic" {
		t.Errorf("unexpected response text: %s", resp.Text)
	}
	if resp.LatencyMs < 0 {
		t.Error("expected non-negative latency")
	}
}

func TestAnthropicClientJSONPrefill(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[1].Role != "assistant" || req.Messages[1].Content != "{" {
			t.Errorf("expected assistant prefill, got %+v", req.Messages)
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"\"score\": 7"},{"type":"text","text":"}"}],"model":"claude-test"}`))
	}))
	defer server.Close()

	client := &AnthropicClient{apiKey: "k", model: "claude-test", maxTokens: 100, baseURL: server.URL}
	resp, err := client.Complete(context.Background(), CompletionRequest{UserPrompt: "score", JSONResponse: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != `{"score": 7}` {
		t.Errorf("expected prefill restored, got %s", resp.Text)
	}
}

func TestOpenAIClientErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limited"}}`))
	}))
	defer server.Close()

	client := &OpenAIClient{
		apiKey:    "test-key",
		model:     "test-model",
		maxTokens: 100,
		baseURL:   server.URL,
	}

	_, err := client.Complete(context.Background(), CompletionRequest{UserPrompt: "hi"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError for 429 response, got %v", err)
	}
	if se.StatusCode != http.StatusTooManyRequests || se.Provider != "openai" {
		t.Errorf("unexpected status error: %+v", se)
	}
}

func TestOpenAIClientEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiResponse{Model: "test"})
	}))
	defer server.Close()

	client := &OpenAIClient{
		apiKey:    "test-key",
		model:     "test-model",
		maxTokens: 100,
		baseURL:   server.URL,
	}

	_, err := client.Complete(context.Background(), CompletionRequest{UserPrompt: "hi"})
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestGeminiClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-test:generateContent" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Error("missing or wrong x-goog-api-key header")
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.GenerationConfig.ResponseMimeType != "application/json" {
			t.Errorf("expected JSON mime type, got %q", req.GenerationConfig.ResponseMimeType)
		}
		if req.GenerationConfig.Temperature == nil || *req.GenerationConfig.Temperature != 0.1 {
			t.Error("expected temperature 0.1")
		}
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "be strict" {
			t.Error("expected system instruction")
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "score this" {
			t.Error("expected user prompt in contents")
		}

		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"a\":"},{"text":"1}"}]}}],"modelVersion":"gemini-test-001"}`))
	}))
	defer server.Close()

	client := &GeminiClient{
		apiKey:    "test-key",
		model:     "gemini-test",
		maxTokens: 100,
		baseURL:   server.URL,
	}

	resp, err := client.Complete(context.Background(), CompletionRequest{
		SystemPrompt: "be strict",
		UserPrompt:   "score this",
		Temperature:  0.1,
		JSONResponse: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != `{"a":1}` {
		t.Errorf("unexpected response text: %s", resp.Text)
	}
	if resp.Model != "gemini-test-001" {
		t.Errorf("unexpected model: %s", resp.Model)
	}
}

func TestGeminiClientErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error": {"message": "overloaded"}}`))
	}))
	defer server.Close()

	client := &GeminiClient{apiKey: "k", model: "m", baseURL: server.URL}
	_, err := client.Complete(context.Background(), CompletionRequest{UserPrompt: "hi"})
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestGeminiClientNoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := &GeminiClient{apiKey: "k", model: "m", baseURL: server.URL}
	_, err := client.Complete(context.Background(), CompletionRequest{UserPrompt: "hi"})
	if err == nil {
		t.Fatal("expected error for empty candidates")
	}
}

func TestGeminiClientHonoursContext(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &GeminiClient{apiKey: "k", model: "m", baseURL: server.URL}
	_, err := client.Complete(ctx, CompletionRequest{UserPrompt: "hi"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
