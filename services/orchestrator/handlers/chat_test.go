// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/agentx/pkg/extensions"
	"github.com/AleutianAI/agentx/services/agent"
	"github.com/AleutianAI/agentx/services/llm"
	"github.com/AleutianAI/agentx/services/memory"
	"github.com/AleutianAI/agentx/services/orchestrator/datatypes"
	"github.com/AleutianAI/agentx/services/orchestrator/middleware"
	"github.com/AleutianAI/agentx/services/tools/calculator"
)

type scriptedLLM struct {
	reply string
	err   error
}

func (f *scriptedLLM) Generate(context.Context, string, llm.GenerationParams) (string, error) {
	return f.reply, f.err
}

func (f *scriptedLLM) Chat(context.Context, []llm.Message, llm.GenerationParams) (string, error) {
	return f.reply, f.err
}

func newChatRouter(t *testing.T) (*gin.Engine, memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := agent.NewRegistry()
	registry.Register(calculator.NewTool())
	ag := agent.New(registry, &scriptedLLM{reply: "The result is 108."}, agent.Config{})

	store := memory.NewInProcStore()
	router := gin.New()
	router.POST("/v1/chat",
		middleware.Authentication(&extensions.NopAuthProvider{}),
		HandleChat(ag, store))
	return router, store
}

func postChat(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestHandleChatCalculatorTurn(t *testing.T) {
	router, _ := newChatRouter(t)

	w := postChat(t, router, `{"message": "what is 15 * 7 + 3"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	if !strings.Contains(w.Body.String(), `"response":`) {
		t.Errorf("reply must use the response wire field, body = %s", w.Body.String())
	}

	var resp datatypes.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Answer == "" {
		t.Error("answer must never be empty")
	}
	if resp.SessionID == "" {
		t.Error("a new session id must be generated and returned")
	}
	if resp.Cycles != 1 {
		t.Errorf("cycles = %d, want 1", resp.Cycles)
	}

	var sawCalculator bool
	for _, inv := range resp.Invocations {
		if inv.Tool == "calculator" && inv.Status == "ok" {
			sawCalculator = true
		}
	}
	if !sawCalculator {
		t.Errorf("invocations = %+v, want successful calculator", resp.Invocations)
	}
}

func TestHandleChatPercentCalculation(t *testing.T) {
	gin.SetMode(gin.TestMode)

	registry := agent.NewRegistry()
	registry.Register(calculator.NewTool())
	// An unreachable LLM forces the templated answer, which exposes the
	// computed value directly.
	ag := agent.New(registry, &scriptedLLM{err: errors.New("backend down")}, agent.Config{})
	router := gin.New()
	router.POST("/v1/chat",
		middleware.Authentication(&extensions.NopAuthProvider{}),
		HandleChat(ag, memory.NewInProcStore()))

	w := postChat(t, router, `{"message": "what is 20 percent of 50"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp datatypes.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !strings.Contains(resp.Answer, "= 10") {
		t.Errorf("answer = %q, want the computed value 10", resp.Answer)
	}
	if strings.Contains(resp.Answer, "20 = 20") {
		t.Errorf("answer = %q: operand echoed back instead of computed", resp.Answer)
	}
}

func TestHandleChatRejectsForeignSession(t *testing.T) {
	router, store := newChatRouter(t)

	const sid = "9b2d3f64-6c1a-4b0e-8f0d-2a5c1e7b9d3f"
	state, err := store.LoadState(context.Background(), sid, "someone-else")
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	state.AppendTurn("user", "private conversation")
	if err := store.SaveState(context.Background(), state); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	w := postChat(t, router, `{"message": "continue please", "session_id": "`+sid+`"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403; body = %s", w.Code, w.Body.String())
	}
}

// flakyActionStore fails the first LogAction call, then delegates.
type flakyActionStore struct {
	memory.Store
	calls int
}

func (f *flakyActionStore) LogAction(ctx context.Context, userID string, a memory.Action) error {
	f.calls++
	if f.calls == 1 {
		return errors.New("transient backend error")
	}
	return f.Store.LogAction(ctx, userID, a)
}

func TestLogTurnActionsSurvivesBackendErrors(t *testing.T) {
	store := &flakyActionStore{Store: memory.NewInProcStore()}
	result := &agent.TurnResult{Observation: agent.Observation{
		Invocations: []agent.ToolInvocation{
			{Tool: agent.ToolTaskManager, Intent: agent.CategoryTaskManagement, Status: agent.StatusOK},
			{Tool: agent.ToolCalculator, Intent: agent.CategoryCalculator, Status: agent.StatusOK},
		},
	}}

	logTurnActions(context.Background(), store, "local-user", result)

	actions, err := store.RecentActions(context.Background(), "local-user", 0)
	if err != nil {
		t.Fatalf("RecentActions: %v", err)
	}
	if len(actions) != 1 || actions[0].Kind != string(agent.ToolCalculator) {
		t.Errorf("actions = %+v, want the calculator entry despite the earlier failure", actions)
	}
}

func TestHandleChatKeepsSessionID(t *testing.T) {
	router, _ := newChatRouter(t)

	w := postChat(t, router,
		`{"message": "hello there", "session_id": "550e8400-e29b-41d4-a716-446655440000"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp datatypes.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.SessionID != "550e8400-e29b-41d4-a716-446655440000" {
		t.Errorf("session id changed: %s", resp.SessionID)
	}
}

func TestHandleChatRejectsBadRequests(t *testing.T) {
	router, _ := newChatRouter(t)

	for name, body := range map[string]string{
		"malformed json":    `{"message": `,
		"empty message":     `{"message": ""}`,
		"oversized message": `{"message": "` + strings.Repeat("a", datatypes.MaxMessageContentBytes+1) + `"}`,
		"bad session id":    `{"message": "hi", "session_id": "nope"}`,
	} {
		t.Run(name, func(t *testing.T) {
			if w := postChat(t, router, body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}
