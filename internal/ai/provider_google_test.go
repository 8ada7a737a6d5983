package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func geminiTestServer(t *testing.T, text string, check func(geminiRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing or wrong API key in query")
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if check != nil {
			check(req)
		}

		var resp geminiResponse
		resp.Candidates = make([]struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		}, 1)
		resp.Candidates[0].Content.Parts = []struct {
			Text string `json:"text"`
		}{{Text: text}}
		resp.UsageMetadata.PromptTokenCount = 8
		resp.UsageMetadata.CandidatesTokenCount = 12
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGoogleProvider_Complete(t *testing.T) {
	server := geminiTestServer(t, "Gemini response", func(req geminiRequest) {
		if len(req.Contents) != 2 {
			t.Errorf("contents = %d, want 2", len(req.Contents))
		}
		if req.Contents[1].Role != "model" {
			t.Errorf("assistant role not mapped to model, got %q", req.Contents[1].Role)
		}
	})
	defer server.Close()

	provider := NewGoogleProvider("test-key", WithGoogleBaseURL(server.URL))
	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi"},
		},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Gemini response" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.TotalTokens() != 20 {
		t.Errorf("TotalTokens() = %d, want 20", resp.TotalTokens())
	}
}

func TestGoogleProvider_Complete_SystemInstruction(t *testing.T) {
	server := geminiTestServer(t, "ok", func(req geminiRequest) {
		if req.SystemInstruction == nil || len(req.SystemInstruction.Parts) == 0 {
			t.Error("system instruction missing")
		} else if req.SystemInstruction.Parts[0].Text != "be a wizard" {
			t.Errorf("system instruction = %q", req.SystemInstruction.Parts[0].Text)
		}
	})
	defer server.Close()

	provider := NewGoogleProvider("test-key", WithGoogleBaseURL(server.URL))
	_, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
		System:   "be a wizard",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
}

func TestGoogleProvider_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "quota exceeded"}}`))
	}))
	defer server.Close()

	provider := NewGoogleProvider("test-key", WithGoogleBaseURL(server.URL))
	_, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	if err == nil {
		t.Fatal("Complete() should fail on 429")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", apiErr.StatusCode)
	}
}
