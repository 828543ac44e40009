// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package taskstore provides persistent task management on embedded
// BadgerDB and exposes it to the agent loop as the task_manager tool.
package taskstore

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Task priorities and statuses. Values are stable wire strings.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Task is one tracked unit of work.
type Task struct {
	ID          string     `json:"id" validate:"required,uuid4"`
	UserID      string     `json:"user_id" validate:"required,max=128"`
	Title       string     `json:"title" validate:"required,max=512"`
	Description string     `json:"description,omitempty" validate:"max=4096"`
	Priority    string     `json:"priority" validate:"oneof=low medium high"`
	Status      string     `json:"status" validate:"oneof=pending in_progress completed"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

var taskValidate = validator.New()

// NewTask builds a pending task with defaults applied.
func NewTask(userID, title string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Priority:  PriorityMedium,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the task against its field constraints.
func (t *Task) Validate() error {
	if err := taskValidate.Struct(t); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}
	return nil
}

// Overdue reports whether the task has a due date in the past and is not
// completed.
func (t *Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != StatusCompleted
}

// Stats summarizes a user's tasks.
type Stats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByPriority map[string]int `json:"by_priority"`
	Overdue    int            `json:"overdue"`
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Status   string
	Priority string
	// DueWithin keeps tasks due between now and now+DueWithin.
	DueWithin time.Duration
}
