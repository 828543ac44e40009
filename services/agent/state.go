// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"sync"
	"time"
)

// Turn is one message in a conversation, user or assistant.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Scratchpad is the per-turn working record of tool invocations. Entries
// append in completion order because tools run concurrently; the dispatcher
// separately builds the priority-ordered Observation. The scratchpad is
// cleared at the start of every turn and never persists across turns.
type Scratchpad struct {
	mu      sync.Mutex
	entries []ToolInvocation
}

// Append records one completed invocation. Safe for concurrent use.
func (s *Scratchpad) Append(inv ToolInvocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, inv)
}

// Entries returns a copy of the recorded invocations in completion order.
func (s *Scratchpad) Entries() []ToolInvocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ToolInvocation, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Scratchpad) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// ConversationState is the in-memory state of one session. Sessions are
// fully isolated: nothing here is shared between session IDs, and the
// memory service persists and restores each session under its own key.
type ConversationState struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Turns     []Turn `json:"turns"`

	scratchpad Scratchpad
}

func NewConversationState(sessionID, userID string) *ConversationState {
	return &ConversationState{SessionID: sessionID, UserID: userID}
}

// BeginTurn clears the per-turn scratchpad. Called by the orchestrator
// before intent resolution.
func (cs *ConversationState) BeginTurn() {
	cs.scratchpad.reset()
}

// AppendTurn adds a message to the conversation history.
func (cs *ConversationState) AppendTurn(role, text string) {
	cs.Turns = append(cs.Turns, Turn{Role: role, Text: text, Timestamp: time.Now().UTC()})
}

// RecentTurns returns up to the last n turns, oldest first.
func (cs *ConversationState) RecentTurns(n int) []Turn {
	if n <= 0 || len(cs.Turns) == 0 {
		return nil
	}
	if len(cs.Turns) <= n {
		return cs.Turns
	}
	return cs.Turns[len(cs.Turns)-n:]
}

// Pad exposes the per-turn scratchpad to the dispatcher.
func (cs *ConversationState) Pad() *Scratchpad {
	return &cs.scratchpad
}
