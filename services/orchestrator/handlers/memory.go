// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// User-memory endpoints: preferences and the recent-action log.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/agentx/services/memory"
	"github.com/AleutianAI/agentx/services/orchestrator/datatypes"
)

// HandleGetPreferences returns the user's stored preference map.
func HandleGetPreferences(store memory.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		prefs, err := store.GetPreferences(c.Request.Context(), requestUserID(c))
		if err != nil {
			slog.Error("Failed to load preferences", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load preferences"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"preferences": prefs})
	}
}

// HandleSetPreference stores one preference key for the user.
func HandleSetPreference(store memory.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request datatypes.SetPreferenceRequest
		if err := c.BindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := request.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := store.SetPreference(c.Request.Context(), requestUserID(c), request.Key, request.Value); err != nil {
			slog.Error("Failed to set preference", "key", request.Key, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set preference"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"key": request.Key, "value": request.Value})
	}
}

// HandleRecentActions returns the user's newest logged actions. The
// optional "limit" query parameter caps the result (default 20).
func HandleRecentActions(store memory.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 20
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = parsed
		}

		actions, err := store.RecentActions(c.Request.Context(), requestUserID(c), limit)
		if err != nil {
			slog.Error("Failed to load recent actions", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load actions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"actions": actions, "count": len(actions)})
	}
}
