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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/agentx/services/memory"
)

// Session endpoints are scoped to the authenticated user. Another user's
// session answers 404 rather than 403 so session IDs can't be probed.

// HandleListSessions returns the caller's session IDs.
func HandleListSessions(store memory.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions, err := store.ListSessions(c.Request.Context(), requestUserID(c))
		if err != nil {
			slog.Error("Failed to list sessions", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
	}
}

// HandleGetSessionHistory returns the stored conversation of one of the
// caller's sessions.
func HandleGetSessionHistory(store memory.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		state, err := store.LoadState(c.Request.Context(), sessionID, requestUserID(c))
		if errors.Is(err, memory.ErrNotSessionOwner) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		if err != nil {
			slog.Error("Failed to load session history", "session_id", sessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"session_id": sessionID,
			"turns":      state.Turns,
			"count":      len(state.Turns),
		})
	}
}

// HandleDeleteSession removes one of the caller's sessions.
func HandleDeleteSession(store memory.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		err := store.DeleteSession(c.Request.Context(), sessionID, requestUserID(c))
		if errors.Is(err, memory.ErrNotSessionOwner) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		if err != nil {
			slog.Error("Failed to delete session", "session_id", sessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": sessionID})
	}
}
