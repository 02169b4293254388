package qwenvl

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testConfig(baseURL string) Config {
	return Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "test-model",
		Timeout: 10 * time.Second,
	}
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	cfg := testConfig("https://api.test.com")
	client := NewClient(cfg, &http.Client{})

	if client == nil {
		t.Fatal("expected non-nil client")
	}
	if client.cfg.APIKey != cfg.APIKey {
		t.Errorf("expected API key %q, got %q", cfg.APIKey, client.cfg.APIKey)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("QWEN_API_KEY", "secret")
	t.Setenv("QWEN_BASE_URL", "")
	t.Setenv("QWEN_MODEL", "")

	cfg := LoadConfig()

	if cfg.APIKey != "secret" {
		t.Errorf("expected API key secret, got %q", cfg.APIKey)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %q", cfg.BaseURL)
	}
	if cfg.Model != DefaultModel {
		t.Errorf("expected default model, got %q", cfg.Model)
	}
}

func TestClient_AnalyzeImage_Success(t *testing.T) {
	t.Parallel()

	imageData := []byte("fake-jpeg-bytes")
	const modelAnswer = `{"detections": []}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path /chat/completions, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected bearer token, got %q", got)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req["model"] != "test-model" {
			t.Errorf("expected model test-model, got %v", req["model"])
		}
		if req["max_tokens"] != float64(maxTokens) {
			t.Errorf("expected max_tokens %d, got %v", maxTokens, req["max_tokens"])
		}
		if req["temperature"] != temperature {
			t.Errorf("expected temperature %v, got %v", temperature, req["temperature"])
		}

		// 画像がdata URLとして埋め込まれていること
		body, _ := json.Marshal(req)
		wantDataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageData)
		if !strings.Contains(string(body), wantDataURL) {
			t.Error("expected request to contain the base64 data URL of the image")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "` + strings.ReplaceAll(modelAnswer, `"`, `\"`) + `"}}]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), server.Client())

	got, err := client.AnalyzeImage(context.Background(), imageData, "find plates")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != modelAnswer {
		t.Errorf("expected %q, got %q", modelAnswer, got)
	}
}

func TestClient_AnalyzeImage_HTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), server.Client())

	_, err := client.AnalyzeImage(context.Background(), []byte("img"), "prompt")
	if err == nil {
		t.Fatal("expected error for HTTP 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("expected error to mention status 429, got %q", err.Error())
	}
}

func TestClient_AnalyzeImage_APIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key", "type": "auth_error"}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), server.Client())

	_, err := client.AnalyzeImage(context.Background(), []byte("img"), "prompt")
	if err == nil {
		t.Fatal("expected error for API error body")
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("expected error to contain API message, got %q", err.Error())
	}
}

func TestClient_AnalyzeImage_NoChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), server.Client())

	_, err := client.AnalyzeImage(context.Background(), []byte("img"), "prompt")
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestClient_HealthCheck(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "pong"}}]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), server.Client())

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
