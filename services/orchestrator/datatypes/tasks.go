// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Task endpoint types. These mirror the conversational task slots so the
// REST surface and the agent path go through the same store semantics.

package datatypes

// CreateTaskRequest is the body for POST /v1/tasks.
type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required,max=500"`
	Description string `json:"description,omitempty" validate:"max=4000"`
	Priority    string `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	DueDate     string `json:"due_date,omitempty"`
}

// Validate validates the CreateTaskRequest fields.
func (r *CreateTaskRequest) Validate() error {
	return chatValidate.Struct(r)
}

// UpdateTaskRequest is the body for PATCH /v1/tasks/:id. Empty fields
// are left unchanged.
type UpdateTaskRequest struct {
	Title       string `json:"title,omitempty" validate:"max=500"`
	Description string `json:"description,omitempty" validate:"max=4000"`
	Priority    string `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Status      string `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed"`
	DueDate     string `json:"due_date,omitempty"`
}

// Validate validates the UpdateTaskRequest fields.
func (r *UpdateTaskRequest) Validate() error {
	return chatValidate.Struct(r)
}
