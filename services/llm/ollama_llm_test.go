package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestOllamaClient(t *testing.T, handler http.HandlerFunc) *OllamaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("OLLAMA_BASE_URL", srv.URL+"/")
	t.Setenv("OLLAMA_MODEL", "test-model")
	client, err := NewOllamaClient()
	if err != nil {
		t.Fatalf("NewOllamaClient: %v", err)
	}
	return client
}

func TestNewOllamaClientRequiresBaseURL(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")
	if _, err := NewOllamaClient(); err == nil {
		t.Error("expected error when OLLAMA_BASE_URL is unset")
	}
}

func TestOllamaGenerate(t *testing.T) {
	var gotPath string
	var gotReq ollamaGenerateRequest
	client := newTestOllamaClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "four", Done: true})
	})

	temp := float32(0.7)
	out, err := client.Generate(context.Background(), "what is 2+2",
		GenerationParams{Temperature: &temp})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "four" {
		t.Errorf("response = %q, want %q", out, "four")
	}
	if gotPath != "/api/generate" {
		t.Errorf("path = %q", gotPath)
	}
	if gotReq.Model != "test-model" || gotReq.Stream {
		t.Errorf("request = %+v", gotReq)
	}
	if gotReq.Options["temperature"] != 0.7 {
		t.Errorf("temperature option = %v", gotReq.Options["temperature"])
	}
}

func TestOllamaChat(t *testing.T) {
	client := newTestOllamaClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: Message{Role: "assistant", Content: "hello there"},
			Done:    true,
		})
	})

	out, err := client.Chat(context.Background(),
		[]Message{{Role: "user", Content: "hi"}}, GenerationParams{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != "hello there" {
		t.Errorf("content = %q", out)
	}
}

func TestOllamaNonOKStatus(t *testing.T) {
	client := newTestOllamaClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})

	_, err := client.Generate(context.Background(), "hi", GenerationParams{})
	if err == nil {
		t.Fatal("expected error on 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %v, want status in message", err)
	}
}
