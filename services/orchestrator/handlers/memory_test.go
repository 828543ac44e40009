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
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/agentx/pkg/extensions"
	"github.com/AleutianAI/agentx/services/memory"
	"github.com/AleutianAI/agentx/services/orchestrator/middleware"
)

func newMemoryRouter(t *testing.T) (*gin.Engine, memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewInProcStore()
	router := gin.New()
	auth := middleware.Authentication(&extensions.NopAuthProvider{})

	mem := router.Group("/v1/memory", auth)
	mem.GET("/preferences", HandleGetPreferences(store))
	mem.PUT("/preferences", HandleSetPreference(store))
	mem.GET("/actions", HandleRecentActions(store))

	sessions := router.Group("/v1/sessions", auth)
	sessions.GET("", HandleListSessions(store))
	sessions.GET("/:id/history", HandleGetSessionHistory(store))
	sessions.DELETE("/:id", HandleDeleteSession(store))
	return router, store
}

func TestPreferenceRoundTrip(t *testing.T) {
	router, _ := newMemoryRouter(t)

	w := doJSON(t, router, http.MethodPut, "/v1/memory/preferences",
		`{"key": "chart_style", "value": "bar"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("set status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/v1/memory/preferences", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var resp struct {
		Preferences map[string]string `json:"preferences"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Preferences["chart_style"] != "bar" {
		t.Errorf("preferences = %v", resp.Preferences)
	}
}

func TestSetPreferenceValidation(t *testing.T) {
	router, _ := newMemoryRouter(t)

	if w := doJSON(t, router, http.MethodPut, "/v1/memory/preferences",
		`{"key": "", "value": "x"}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty key status = %d, want 400", w.Code)
	}
}

func TestRecentActions(t *testing.T) {
	router, store := newMemoryRouter(t)

	for _, kind := range []string{"task_manager", "calculator"} {
		err := store.LogAction(context.Background(), "local-user", memory.Action{
			Kind:      kind,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("LogAction: %v", err)
		}
	}

	w := doJSON(t, router, http.MethodGet, "/v1/memory/actions?limit=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("actions status = %d", w.Code)
	}
	var resp struct {
		Actions []memory.Action `json:"actions"`
		Count   int             `json:"count"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 1 || resp.Actions[0].Kind != "calculator" {
		t.Errorf("actions = %+v", resp)
	}

	if w := doJSON(t, router, http.MethodGet, "/v1/memory/actions?limit=zero", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}
}

func TestSessionAdministration(t *testing.T) {
	router, store := newMemoryRouter(t)

	state, err := store.LoadState(context.Background(), "session-1", "local-user")
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	state.AppendTurn("user", "hello")
	state.AppendTurn("assistant", "hi there")
	if err := store.SaveState(context.Background(), state); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	w := doJSON(t, router, http.MethodGet, "/v1/sessions", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var listResp struct {
		Sessions []string `json:"sessions"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &listResp)
	if len(listResp.Sessions) != 1 || listResp.Sessions[0] != "session-1" {
		t.Errorf("sessions = %v", listResp.Sessions)
	}

	w = doJSON(t, router, http.MethodGet, "/v1/sessions/session-1/history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}
	var histResp struct {
		Count int `json:"count"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &histResp)
	if histResp.Count != 2 {
		t.Errorf("history count = %d, want 2", histResp.Count)
	}

	w = doJSON(t, router, http.MethodDelete, "/v1/sessions/session-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	sessions, _ := store.ListSessions(context.Background(), "local-user")
	if len(sessions) != 0 {
		t.Errorf("sessions after delete = %v", sessions)
	}
}

func TestSessionEndpointsScopedToOwner(t *testing.T) {
	router, store := newMemoryRouter(t)

	// A session saved by a different user must be invisible to the
	// authenticated caller.
	state, err := store.LoadState(context.Background(), "foreign-session", "someone-else")
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	state.AppendTurn("user", "private message")
	if err := store.SaveState(context.Background(), state); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	w := doJSON(t, router, http.MethodGet, "/v1/sessions", "")
	var listResp struct {
		Sessions []string `json:"sessions"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &listResp)
	if len(listResp.Sessions) != 0 {
		t.Errorf("foreign session listed: %v", listResp.Sessions)
	}

	if w := doJSON(t, router, http.MethodGet, "/v1/sessions/foreign-session/history", ""); w.Code != http.StatusNotFound {
		t.Errorf("foreign history status = %d, want 404", w.Code)
	}

	if w := doJSON(t, router, http.MethodDelete, "/v1/sessions/foreign-session", ""); w.Code != http.StatusNotFound {
		t.Errorf("foreign delete status = %d, want 404", w.Code)
	}
	owned, _ := store.ListSessions(context.Background(), "someone-else")
	if len(owned) != 1 {
		t.Errorf("foreign session must survive the delete attempt, got %v", owned)
	}
}
