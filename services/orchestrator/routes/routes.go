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
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/agentx/pkg/extensions"
	"github.com/AleutianAI/agentx/services/agent"
	"github.com/AleutianAI/agentx/services/memory"
	"github.com/AleutianAI/agentx/services/orchestrator/handlers"
	"github.com/AleutianAI/agentx/services/orchestrator/middleware"
	"github.com/AleutianAI/agentx/services/tools/docsearch"
	"github.com/AleutianAI/agentx/services/tools/taskstore"
	"github.com/AleutianAI/agentx/services/tools/visualizer"
)

// Dependencies carries everything the route handlers need. Documents may
// be nil when Weaviate is not configured; its routes then answer 503.
type Dependencies struct {
	Agent      *agent.Agent
	Memory     memory.Store
	Tasks      *taskstore.Store
	Documents  *docsearch.Service
	Visualizer *visualizer.Tool
	Options    extensions.ServiceOptions

	// EnableMetrics exposes /metrics for Prometheus scraping.
	EnableMetrics bool
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/health", handlers.HandleHealth(deps.Memory))
	if deps.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.Authentication(deps.Options.AuthProvider))
	{
		v1.POST("/chat", handlers.HandleChat(deps.Agent, deps.Memory))
		v1.POST("/visualize", handlers.HandleVisualize(deps.Visualizer))

		// Task management routes
		tasks := v1.Group("/tasks")
		{
			tasks.POST("", handlers.HandleCreateTask(deps.Tasks))
			tasks.GET("", handlers.HandleListTasks(deps.Tasks))
			tasks.GET("/stats", handlers.HandleTaskStats(deps.Tasks))
			tasks.GET("/:id", handlers.HandleGetTask(deps.Tasks))
			tasks.PATCH("/:id", handlers.HandleUpdateTask(deps.Tasks))
			tasks.DELETE("/:id", handlers.HandleDeleteTask(deps.Tasks))
		}

		// Document store routes
		documents := v1.Group("/documents")
		{
			documents.POST("", handlers.HandleIngestDocument(deps.Documents))
			documents.GET("", handlers.HandleListDocuments(deps.Documents))
			documents.POST("/search", handlers.HandleSearchDocuments(deps.Documents))
			documents.DELETE("/:source", handlers.HandleDeleteDocument(deps.Documents))
		}

		// User memory routes
		mem := v1.Group("/memory")
		{
			mem.GET("/preferences", handlers.HandleGetPreferences(deps.Memory))
			mem.PUT("/preferences", handlers.HandleSetPreference(deps.Memory))
			mem.GET("/actions", handlers.HandleRecentActions(deps.Memory))
		}

		// Session administration routes
		sessions := v1.Group("/sessions")
		{
			sessions.GET("", handlers.HandleListSessions(deps.Memory))
			sessions.GET("/:id/history", handlers.HandleGetSessionHistory(deps.Memory))
			sessions.DELETE("/:id", handlers.HandleDeleteSession(deps.Memory))
		}
	}
}
