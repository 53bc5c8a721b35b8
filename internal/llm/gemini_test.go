package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newGeminiServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("Expected a generateContent call, got %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("Expected API key header, got %q", r.Header.Get("x-goog-api-key"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestGemini(t *testing.T, baseURL string) *GeminiProvider {
	t.Helper()
	provider, err := NewGeminiProvider(context.Background(), Config{
		APIKey:        "test-key",
		BaseURL:       baseURL,
		Timeout:       5 * time.Second,
		StrictSources: true,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	return provider
}

func TestGeminiProvider_Explain_Success(t *testing.T) {
	server := newGeminiServer(t, http.StatusOK, `{
		"candidates": [{
			"content": {"role": "model", "parts": [{"text": "You qualify "}, {"text": "as a farmer."}]},
			"finishReason": "STOP"
		}],
		"usageMetadata": {"promptTokenCount": 40, "candidatesTokenCount": 8, "totalTokenCount": 48}
	}`)

	provider := newTestGemini(t, server.URL)
	resp, err := provider.Explain(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}

	if resp.Text != "You qualify as a farmer." {
		t.Errorf("Unexpected text: %q", resp.Text)
	}
	if resp.Model != defaultGeminiModel {
		t.Errorf("Expected default model %s, got %s", defaultGeminiModel, resp.Model)
	}
	if resp.TokensUsed != 48 {
		t.Errorf("Unexpected token usage: %d", resp.TokensUsed)
	}
}

func TestGeminiProvider_Explain_NoCandidates(t *testing.T) {
	server := newGeminiServer(t, http.StatusOK, `{"candidates": []}`)

	provider := newTestGemini(t, server.URL)
	if _, err := provider.Explain(context.Background(), sampleRequest()); err == nil {
		t.Fatal("Expected error for empty response, got nil")
	}
}

func TestGeminiProvider_Explain_CitationLeak(t *testing.T) {
	server := newGeminiServer(t, http.StatusOK, `{
		"candidates": [{"content": {"role": "model", "parts": [{"text": "Apply at https://other.example.com/form"}]}}]
	}`)

	provider := newTestGemini(t, server.URL)
	_, err := provider.Explain(context.Background(), sampleRequest())
	if err == nil || !strings.Contains(err.Error(), "citation leak") {
		t.Fatalf("Expected citation leak error, got %v", err)
	}
}

func TestGeminiProvider_Explain_APIError(t *testing.T) {
	server := newGeminiServer(t, http.StatusBadRequest,
		`{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`)

	provider := newTestGemini(t, server.URL)
	if _, err := provider.Explain(context.Background(), sampleRequest()); err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	if _, err := NewGeminiProvider(context.Background(), Config{}); err == nil {
		t.Fatal("Expected error without API key")
	}
}
