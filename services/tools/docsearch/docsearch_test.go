// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package docsearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AleutianAI/agentx/services/agent"
)

func TestEmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/batch_embed" {
			http.NotFound(w, r)
			return
		}
		var req batchEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vectors := make([][]float32, len(req.Texts))
		for i := range vectors {
			vectors[i] = []float32{float32(i), 0.5}
		}
		_ = json.NewEncoder(w).Encode(batchEmbeddingResponse{Vectors: vectors, Dim: 2})
	}))
	defer server.Close()

	client, err := NewEmbeddingClient(server.URL)
	if err != nil {
		t.Fatalf("NewEmbeddingClient: %v", err)
	}

	vectors, err := client.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vectors) != 3 || vectors[2][0] != 2 {
		t.Errorf("vectors = %v", vectors)
	}
}

func TestEmbedBatchCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(batchEmbeddingResponse{Vectors: [][]float32{{1}}})
	}))
	defer server.Close()

	client, _ := NewEmbeddingClient(server.URL)
	if _, err := client.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestEmbeddingClientTrimsEmbedSuffix(t *testing.T) {
	client, err := NewEmbeddingClient("http://embedder:8080/embed")
	if err != nil {
		t.Fatalf("NewEmbeddingClient: %v", err)
	}
	if client.baseURL != "http://embedder:8080" {
		t.Errorf("baseURL = %q", client.baseURL)
	}
}

func TestSplitterForFile(t *testing.T) {
	// Markdown headings must split on heading boundaries.
	md := strings.Repeat("# Heading\n\n"+strings.Repeat("text ", 100)+"\n\n", 5)
	chunks, err := splitterForFile("notes.md").SplitText(md)
	if err != nil {
		t.Fatalf("SplitText: %v", err)
	}
	if len(chunks) < 2 {
		t.Errorf("expected multiple chunks for long markdown, got %d", len(chunks))
	}
	for _, chunk := range chunks {
		if len(chunk) > chunkSize+chunkOverlap {
			t.Errorf("chunk exceeds size budget: %d chars", len(chunk))
		}
	}
}

type fakeSearcher struct {
	hits []Hit
	err  error
}

func (f *fakeSearcher) Search(context.Context, string, int) ([]Hit, error) {
	return f.hits, f.err
}

func TestToolInvokeWithHits(t *testing.T) {
	tool := NewTool(&fakeSearcher{hits: []Hit{
		{Content: "Q3 revenue grew 12%", ParentSource: "q3_report.pdf", Certainty: 0.82},
	}})

	result, err := tool.Invoke(context.Background(), map[string]string{"query": "revenue growth"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	res := result.(SearchResult)
	if len(res.Hits) != 1 {
		t.Fatalf("hits = %+v", res.Hits)
	}
	if _, _, wants := res.FollowUp(); wants {
		t.Error("result with hits must not request escalation")
	}
	if !strings.Contains(res.Summary(), "q3_report.pdf") {
		t.Errorf("summary should name the source, got %q", res.Summary())
	}
}

func TestToolInvokeZeroHitsRequestsEscalation(t *testing.T) {
	tool := NewTool(&fakeSearcher{})

	result, err := tool.Invoke(context.Background(), map[string]string{"query": "fusion energy"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	category, slots, wants := result.(SearchResult).FollowUp()
	if !wants || category != agent.CategoryWebSearch || slots["query"] != "fusion energy" {
		t.Errorf("FollowUp = (%s, %v, %v)", category, slots, wants)
	}
}

func TestToolInvokeErrors(t *testing.T) {
	tool := NewTool(&fakeSearcher{err: errors.New("weaviate down")})

	if _, err := tool.Invoke(context.Background(), map[string]string{}); !errors.Is(err, agent.ErrToolInvalidParams) {
		t.Errorf("empty query: got %v", err)
	}
	if _, err := tool.Invoke(context.Background(), map[string]string{"query": "x"}); !errors.Is(err, agent.ErrToolUnavailable) {
		t.Errorf("backend error: got %v", err)
	}
}
