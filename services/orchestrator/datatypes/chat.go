// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides request and response types for the agent
// service HTTP API.
//
// This file contains the conversational chat types. Task, document, and
// memory endpoint types live in their own files.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Size Limits
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a user message.
	// Byte length, not rune count, so oversized payloads are rejected
	// before they reach the intent resolver.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// MaxCSVBytes is the maximum size of inline CSV data for the
	// visualizer.
	MaxCSVBytes = 256 * 1024 // 256KB
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// chatValidate is the validator instance for chat datatypes.
// Initialized in init() with custom validators.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()

	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
	_ = chatValidate.RegisterValidation("maxcsvbytes", validateMaxCSVBytes)
}

// validateMaxBytes checks byte length (not rune count) against the
// message cap, preventing memory exhaustion from large payloads.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageContentBytes
}

func validateMaxCSVBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxCSVBytes
}

// =============================================================================
// Chat Request Types
// =============================================================================

// ChatRequest is the body for POST /v1/chat.
//
// # Description
//
// One user utterance addressed to the agent. SessionID ties the turn to
// its conversation; when empty the server starts a new session and
// returns the generated ID. CSVData optionally carries inline tabular
// data for chart requests.
//
// # Validation
//
// Uses go-playground/validator:
//   - RequestID: optional, must be valid UUID v4 when present
//   - Message: required, max 32768 bytes
//   - CSVData: max 262144 bytes
type ChatRequest struct {
	RequestID string `json:"request_id" validate:"omitempty,uuid4"`
	Timestamp int64  `json:"timestamp" validate:"gte=0"`
	SessionID string `json:"session_id" validate:"omitempty,uuid4"`
	Message   string `json:"message" validate:"required,maxbytes"`
	CSVData   string `json:"csv_data,omitempty" validate:"maxcsvbytes"`
}

// Validate validates the ChatRequest fields. Call after binding the
// JSON body.
func (r *ChatRequest) Validate() error {
	return chatValidate.Struct(r)
}

// EnsureDefaults populates RequestID and Timestamp when the client
// omitted them, so every request is traceable.
func (r *ChatRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// =============================================================================
// Chat Response Types
// =============================================================================

// InvocationInfo summarizes one tool invocation for the API caller.
type InvocationInfo struct {
	Tool   string `json:"tool"`
	Intent string `json:"intent"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ChatResponse is the reply to a chat turn.
//
// # Fields
//
//   - ResponseID: Server-generated UUID for audit correlation.
//   - RequestID: Echo of the request ID.
//   - SessionID: The session this turn belongs to. Clients must send it
//     back on the next turn to continue the conversation.
//   - Answer: The composed natural-language reply. Always present,
//     even when every tool failed.
//   - Invocations: Tool outcomes for this turn, in intent priority order.
//   - Cycles: Think/act passes the turn consumed.
type ChatResponse struct {
	ResponseID       string           `json:"response_id"`
	RequestID        string           `json:"request_id"`
	SessionID        string           `json:"session_id"`
	Timestamp        int64            `json:"timestamp"`
	Answer           string           `json:"response"`
	Invocations      []InvocationInfo `json:"invocations,omitempty"`
	Cycles           int              `json:"cycles"`
	ProcessingTimeMs int64            `json:"processing_time_ms,omitempty"`
}

// NewChatResponse creates a ChatResponse with generated ID and timestamp.
func NewChatResponse(requestID, sessionID, answer string) *ChatResponse {
	return &ChatResponse{
		ResponseID: uuid.NewString(),
		RequestID:  requestID,
		SessionID:  sessionID,
		Timestamp:  time.Now().UnixMilli(),
		Answer:     answer,
	}
}
