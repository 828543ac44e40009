// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Task CRUD endpoints. The conversational path and this REST surface
// share the same BadgerDB store, so a task created by chat shows up here
// and vice versa.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/agentx/services/orchestrator/datatypes"
	"github.com/AleutianAI/agentx/services/orchestrator/middleware"
	"github.com/AleutianAI/agentx/services/tools/taskstore"
)

func requestUserID(c *gin.Context) string {
	if id := middleware.UserID(c); id != "" {
		return id
	}
	return "local-user"
}

// HandleCreateTask creates a task for the authenticated user.
func HandleCreateTask(store *taskstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request datatypes.CreateTaskRequest
		if err := c.BindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := request.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		task := taskstore.NewTask(requestUserID(c), request.Title)
		task.Description = request.Description
		if request.Priority != "" {
			task.Priority = request.Priority
		}
		if request.DueDate != "" {
			due, err := time.Parse(time.RFC3339, request.DueDate)
			if err != nil {
				if due, err = time.Parse("2006-01-02", request.DueDate); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "due_date must be RFC3339 or YYYY-MM-DD"})
					return
				}
			}
			task.DueDate = &due
		}

		if err := store.Create(c.Request.Context(), task); err != nil {
			slog.Error("Failed to create task", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
			return
		}
		c.JSON(http.StatusCreated, task)
	}
}

// HandleListTasks lists the user's tasks, optionally filtered by status
// and priority query parameters.
func HandleListTasks(store *taskstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := taskstore.Filter{
			Status:   c.Query("status"),
			Priority: c.Query("priority"),
		}
		tasks, err := store.List(c.Request.Context(), requestUserID(c), filter)
		if err != nil {
			slog.Error("Failed to list tasks", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tasks"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
	}
}

// HandleGetTask returns one task by ID.
func HandleGetTask(store *taskstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, err := store.Get(c.Request.Context(), requestUserID(c), c.Param("id"))
		if err != nil {
			if errors.Is(err, taskstore.ErrTaskNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
				return
			}
			slog.Error("Failed to get task", "task_id", c.Param("id"), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get task"})
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

// HandleUpdateTask applies a partial update to one task.
func HandleUpdateTask(store *taskstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request datatypes.UpdateTaskRequest
		if err := c.BindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := request.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var due *time.Time
		if request.DueDate != "" {
			parsed, err := time.Parse(time.RFC3339, request.DueDate)
			if err != nil {
				if parsed, err = time.Parse("2006-01-02", request.DueDate); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "due_date must be RFC3339 or YYYY-MM-DD"})
					return
				}
			}
			due = &parsed
		}

		task, err := store.Update(c.Request.Context(), requestUserID(c), c.Param("id"), func(t *taskstore.Task) {
			if request.Title != "" {
				t.Title = request.Title
			}
			if request.Description != "" {
				t.Description = request.Description
			}
			if request.Priority != "" {
				t.Priority = request.Priority
			}
			if request.Status != "" {
				t.Status = request.Status
			}
			if due != nil {
				t.DueDate = due
			}
		})
		if err != nil {
			if errors.Is(err, taskstore.ErrTaskNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
				return
			}
			slog.Error("Failed to update task", "task_id", c.Param("id"), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

// HandleDeleteTask removes one task.
func HandleDeleteTask(store *taskstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := store.Delete(c.Request.Context(), requestUserID(c), c.Param("id"))
		if err != nil {
			if errors.Is(err, taskstore.ErrTaskNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
				return
			}
			slog.Error("Failed to delete task", "task_id", c.Param("id"), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
	}
}

// HandleTaskStats summarizes the user's tasks by status and priority.
func HandleTaskStats(store *taskstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := store.ComputeStats(c.Request.Context(), requestUserID(c))
		if err != nil {
			slog.Error("Failed to compute task stats", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
