// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/AleutianAI/agentx/services/agent"
	"github.com/AleutianAI/agentx/services/memory"
)

func TestExtractCitations(t *testing.T) {
	answer := "Fusion startups raised $2B this year [1]. Several reactors " +
		"hit ignition [2][1].\nSources:\nhttps://example.com/fusion\nhttps://example.org/reactors"

	citations := ExtractCitations(answer)
	if len(citations) != 2 {
		t.Fatalf("expected 2 unique citations, got %d: %+v", len(citations), citations)
	}
	if citations[0].Index != 1 || citations[0].URL != "https://example.com/fusion" {
		t.Errorf("citation[0] = %+v", citations[0])
	}
	if citations[1].Index != 2 || citations[1].URL != "https://example.org/reactors" {
		t.Errorf("citation[1] = %+v", citations[1])
	}
}

func TestExtractCitationsWithoutURLs(t *testing.T) {
	citations := ExtractCitations("Something happened [1].")
	if len(citations) != 1 || citations[0].URL != "" {
		t.Fatalf("expected marker with empty URL, got %+v", citations)
	}
}

// fakeBackend serves an OpenAI-compatible chat completion.
func fakeBackend(t *testing.T, answer string, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		resp := map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"model":   "sonar",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": answer},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestToolInvokeAndCache(t *testing.T) {
	var calls atomic.Int64
	server := fakeBackend(t, "AI news roundup [1].\nhttps://example.com/ai", &calls)
	defer server.Close()

	store := memory.NewInProcStore()
	tool, err := NewTool(Config{BaseURL: server.URL, APIKey: "test-key"}, store)
	if err != nil {
		t.Fatalf("NewTool: %v", err)
	}

	first, err := tool.Invoke(context.Background(), map[string]string{"query": "AI news"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	res := first.(Result)
	if res.Cached || !strings.Contains(res.Answer, "AI news roundup") {
		t.Errorf("unexpected first result: %+v", res)
	}
	if len(res.Citations) != 1 || res.Citations[0].URL != "https://example.com/ai" {
		t.Errorf("citations = %+v", res.Citations)
	}

	second, err := tool.Invoke(context.Background(), map[string]string{"query": "ai news"})
	if err != nil {
		t.Fatalf("second Invoke: %v", err)
	}
	if !second.(Result).Cached {
		t.Error("case-insensitive repeat query should come from cache")
	}
	if calls.Load() != 1 {
		t.Errorf("backend called %d times, want 1", calls.Load())
	}
}

func TestToolInvokeEmptyQuery(t *testing.T) {
	tool, err := NewTool(Config{BaseURL: "http://localhost:1", APIKey: "k"}, nil)
	if err != nil {
		t.Fatalf("NewTool: %v", err)
	}
	_, err = tool.Invoke(context.Background(), map[string]string{})
	if !errors.Is(err, agent.ErrToolInvalidParams) {
		t.Fatalf("expected ErrToolInvalidParams, got %v", err)
	}
}

func TestToolInvokeBackendDown(t *testing.T) {
	tool, err := NewTool(Config{BaseURL: "http://127.0.0.1:1", APIKey: "k"}, nil)
	if err != nil {
		t.Fatalf("NewTool: %v", err)
	}
	_, err = tool.Invoke(context.Background(), map[string]string{"query": "anything"})
	if !errors.Is(err, agent.ErrToolUnavailable) {
		t.Fatalf("expected ErrToolUnavailable, got %v", err)
	}
}

func TestNewToolRequiresConfig(t *testing.T) {
	if _, err := NewTool(Config{}, nil); err == nil {
		t.Fatal("expected error for missing base URL and key")
	}
}
