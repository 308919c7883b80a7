package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func geminiSuccessBody(text string) string {
	body := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	}
	raw, _ := json.Marshal(body)
	return string(raw)
}

func newTestGeminiClient(t *testing.T, baseURL string, maxRetries int) GeminiClient {
	t.Helper()
	client, err := NewGeminiClient(testLogger(t), GeminiConfig{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		Model:      "gemini-2.0-flash",
		Timeout:    5 * time.Second,
		MaxRetries: maxRetries,
	})
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	return client
}

func TestGeminiClientGenerateContent(t *testing.T) {
	var sawAuth atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") == "test-key" {
			sawAuth.Store(true)
		}
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(geminiSuccessBody("[]")))
	}))
	defer srv.Close()

	client := newTestGeminiClient(t, srv.URL, 0)
	out, err := client.GenerateContent(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "[]" {
		t.Fatalf("got %q", out)
	}
	if !sawAuth.Load() {
		t.Fatal("api key header not sent")
	}
}

func TestGeminiClientRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(geminiSuccessBody("ok")))
	}))
	defer srv.Close()

	client := newTestGeminiClient(t, srv.URL, 2)
	out, err := client.GenerateContent(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" {
		t.Fatalf("got %q", out)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestGeminiClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestGeminiClient(t, srv.URL, 3)
	if _, err := client.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for 400 response")
	}
	if calls.Load() != 1 {
		t.Fatalf("400 must not be retried, got %d attempts", calls.Load())
	}
}

func TestGeminiClientExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "1")
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestGeminiClient(t, srv.URL, 1)
	if _, err := client.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if calls.Load() != 2 {
		t.Fatalf("expected initial attempt plus one retry, got %d", calls.Load())
	}
}

func TestGeminiClientEmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer srv.Close()

	client := newTestGeminiClient(t, srv.URL, 0)
	if _, err := client.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	if _, err := NewGeminiClient(testLogger(t), GeminiConfig{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
