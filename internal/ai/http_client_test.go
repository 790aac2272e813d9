package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClient_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("customerId") != "cus_test" {
			t.Errorf("missing customerId header")
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing Authorization header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}],"usage":{"prompt_tokens":12,"completion_tokens":5,"total_tokens":17}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{Endpoint: srv.URL, CustomerID: "cus_test", Authorization: "Bearer key"})

	out, err := c.Complete(context.Background(), CompletionRequest{
		Model:       "test-model",
		Messages:    []Message{{Role: RoleUser, Content: "hi"}},
		Temperature: 0.5,
		MaxTokens:   4000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Text != `{"ok":true}` {
		t.Fatalf("unexpected text %q", out.Text)
	}
	if out.Usage == nil || out.Usage.TotalTokens != 17 || out.Usage.PromptTokens != 12 {
		t.Fatalf("unexpected usage %+v", out.Usage)
	}
	if got.Model != "test-model" || got.MaxTokens != 4000 || got.Temperature != 0.5 || len(got.Messages) != 1 {
		t.Fatalf("unexpected request body %+v", got)
	}
}

func TestHTTPClient_FlatContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":"https://img.example/1.png"}`))
	}))
	defer srv.Close()

	out, err := NewHTTPClient(HTTPClientConfig{Endpoint: srv.URL}).Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "https://img.example/1.png" {
		t.Fatalf("unexpected text %q", out.Text)
	}
}

func TestHTTPClient_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "secret upstream details", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(HTTPClientConfig{Endpoint: srv.URL}).Complete(context.Background(), CompletionRequest{})

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", upErr.StatusCode)
	}
	if upErr.Reason != "AI API request failed: 502 Bad Gateway" {
		t.Fatalf("unexpected reason %q", upErr.Reason)
	}
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected error to match ErrUpstream")
	}
}

func TestHTTPClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewHTTPClient(HTTPClientConfig{Endpoint: url}).Complete(context.Background(), CompletionRequest{})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
