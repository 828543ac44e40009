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

	"github.com/AleutianAI/agentx/services/agent"
	"github.com/AleutianAI/agentx/services/orchestrator/datatypes"
	"github.com/AleutianAI/agentx/services/tools/visualizer"
)

// HandleVisualize builds a chart spec directly, outside the turn loop.
// Useful for UI clients that already know the chart they want.
func HandleVisualize(tool *visualizer.Tool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request datatypes.VisualizeRequest
		if err := c.BindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := request.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		params := map[string]string{
			"chart": request.Chart,
			"topic": request.Topic,
			"csv":   request.CSV,
		}
		result, err := tool.Invoke(c.Request.Context(), params)
		if err != nil {
			if errors.Is(err, agent.ErrToolInvalidParams) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			slog.Error("Visualization failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Visualization failed"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
