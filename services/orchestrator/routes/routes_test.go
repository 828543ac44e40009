// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/agentx/pkg/extensions"
	"github.com/AleutianAI/agentx/services/agent"
	"github.com/AleutianAI/agentx/services/llm"
	"github.com/AleutianAI/agentx/services/memory"
	"github.com/AleutianAI/agentx/services/tools/calculator"
	"github.com/AleutianAI/agentx/services/tools/taskstore"
	"github.com/AleutianAI/agentx/services/tools/visualizer"
)

type staticLLM struct{}

func (staticLLM) Generate(context.Context, string, llm.GenerationParams) (string, error) {
	return "ok", nil
}

func (staticLLM) Chat(context.Context, []llm.Message, llm.GenerationParams) (string, error) {
	return "ok", nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := agent.NewRegistry()
	registry.Register(calculator.NewTool())

	tasks, err := taskstore.Open(taskstore.Config{InMemory: true})
	if err != nil {
		t.Fatalf("open task store: %v", err)
	}
	t.Cleanup(func() { _ = tasks.Close() })

	router := gin.New()
	SetupRoutes(router, Dependencies{
		Agent:      agent.New(registry, staticLLM{}, agent.Config{}),
		Memory:     memory.NewInProcStore(),
		Tasks:      tasks,
		Documents:  nil, // lightweight mode
		Visualizer: visualizer.NewTool(),
		Options:    extensions.DefaultOptions(),
	})
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthRoute(t *testing.T) {
	router := newTestRouter(t)

	if w := get(router, "/health"); w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}
}

func TestMetricsRouteDisabledByDefault(t *testing.T) {
	router := newTestRouter(t)

	if w := get(router, "/metrics"); w.Code != http.StatusNotFound {
		t.Errorf("metrics status = %d, want 404 when disabled", w.Code)
	}
}

func TestDocumentRoutesAnswer503WithoutWeaviate(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/documents",
		bytes.NewBufferString(`{"source": "a.txt", "content": "hello"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("ingest status = %d, want 503", w.Code)
	}
	if w := get(router, "/v1/documents"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("list status = %d, want 503", w.Code)
	}
}

func TestChatRouteRegistered(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat",
		bytes.NewBufferString(`{"message": "calculate 2 + 2"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("chat status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	if w := get(router, "/v1/unknown"); w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d", w.Code)
	}
}
