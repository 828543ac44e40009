// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers provides the Gin HTTP handlers for the agent service.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/agentx/services/agent"
	"github.com/AleutianAI/agentx/services/memory"
	"github.com/AleutianAI/agentx/services/orchestrator/datatypes"
	"github.com/AleutianAI/agentx/services/orchestrator/middleware"
	"github.com/AleutianAI/agentx/services/orchestrator/observability"
)

var handlerTracer = otel.Tracer("agentx.orchestrator.handlers")

// saveTimeout bounds the async persistence of a finished turn.
const saveTimeout = 10 * time.Second

// HandleChat runs one conversational turn.
//
// # Description
//
// Binds and validates the chat request, restores the session state from
// the memory store, runs the turn loop, and returns the composed answer
// together with the per-tool outcomes. State is persisted asynchronously
// so a slow memory backend never delays the reply.
//
// A missing session ID starts a new session; the generated ID is
// returned and must be sent back on the next turn.
func HandleChat(ag *agent.Agent, store memory.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		var request datatypes.ChatRequest
		if err := c.BindJSON(&request); err != nil {
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := request.Validate(); err != nil {
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		request.EnsureDefaults()

		sessionID := request.SessionID
		if sessionID == "" {
			sessionID = uuid.New().String()
			slog.Info("No session_id provided, creating a new one", "session_id", sessionID)
		}
		userID := middleware.UserID(c)
		if userID == "" {
			userID = "local-user"
		}
		span.SetAttributes(
			attribute.String("chat.session_id", sessionID),
			attribute.String("chat.request_id", request.RequestID),
		)

		state, err := store.LoadState(ctx, sessionID, userID)
		if errors.Is(err, memory.ErrNotSessionOwner) {
			span.RecordError(err)
			c.JSON(http.StatusForbidden, gin.H{"error": "Session belongs to another user"})
			return
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to load session state", "session_id", sessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
			return
		}

		turnDone := observability.TurnStarted()
		started := time.Now()
		result, err := ag.RunTurn(ctx, state, agent.TurnRequest{
			Message: request.Message,
			CSVData: request.CSVData,
		})
		elapsed := time.Since(started)
		turnDone()
		if err != nil {
			observability.RecordTurn("error", elapsed, 0)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if errors.Is(err, agent.ErrToolInvalidParams) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			slog.Error("Turn failed", "session_id", sessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process turn"})
			return
		}
		observability.RecordTurn("success", elapsed, result.Cycles)

		// Persist in the background so the reply is not gated on the
		// memory backend.
		go func() {
			saveCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			defer cancel()
			if err := store.SaveState(saveCtx, state); err != nil {
				slog.Error("Failed to save session state async",
					"session_id", sessionID, "error", err)
			}
			logTurnActions(saveCtx, store, userID, result)
		}()

		response := datatypes.NewChatResponse(request.RequestID, sessionID, result.Response)
		response.Cycles = result.Cycles
		response.ProcessingTimeMs = elapsed.Milliseconds()
		for _, inv := range result.Observation.Invocations {
			response.Invocations = append(response.Invocations, datatypes.InvocationInfo{
				Tool:   string(inv.Tool),
				Intent: string(inv.Intent),
				Status: string(inv.Status),
				Reason: inv.Reason,
			})
		}

		span.SetAttributes(
			attribute.Int("chat.cycles", result.Cycles),
			attribute.Int("chat.invocations", len(result.Observation.Invocations)),
		)
		c.JSON(http.StatusOK, response)
	}
}

// logTurnActions records the turn's successful tool usage in the user's
// action log.
func logTurnActions(ctx context.Context, store memory.Store, userID string, result *agent.TurnResult) {
	for _, inv := range result.Observation.Invocations {
		if inv.Status != agent.StatusOK {
			continue
		}
		action := memory.Action{
			Kind:      string(inv.Tool),
			Detail:    string(inv.Intent),
			Timestamp: time.Now().UTC(),
		}
		if err := store.LogAction(ctx, userID, action); err != nil {
			slog.Warn("Failed to log action", "user_id", userID, "error", err)
			continue
		}
	}
}
