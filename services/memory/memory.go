// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memory persists conversation state, user preferences, the
// recent-action log, and a small TTL cache. The primary backend is Redis;
// an in-process store with the same contract backs local development and
// keeps the agent serving when Redis is down.
package memory

import (
	"context"
	"errors"
	"time"

	"github.com/AleutianAI/agentx/services/agent"
)

// ErrNotSessionOwner is returned when a caller addresses a session that
// belongs to a different user.
var ErrNotSessionOwner = errors.New("session belongs to another user")

const (
	// maxHistoryEntries caps the stored conversation per session.
	maxHistoryEntries = 100
	// maxActionEntries caps the per-user action log.
	maxActionEntries = 50
)

// Action is one entry in a user's recent-action log.
type Action struct {
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the persistence contract for session and user memory. All
// methods are safe for concurrent use. A session belongs to the user that
// first saved it; session reads and deletes reject any other caller with
// ErrNotSessionOwner.
type Store interface {
	// LoadState restores a session's conversation, or returns a fresh
	// state when the session is unknown. A session owned by a different
	// user yields ErrNotSessionOwner.
	LoadState(ctx context.Context, sessionID, userID string) (*agent.ConversationState, error)
	// SaveState persists the session's conversation, trimmed to the
	// retention cap, and records the state's user as the session owner.
	SaveState(ctx context.Context, state *agent.ConversationState) error
	// ListSessions returns the session IDs owned by the user.
	ListSessions(ctx context.Context, userID string) ([]string, error)
	// DeleteSession removes a session's conversation and registry entry.
	// Deleting an unknown session is a no-op; deleting another user's
	// session yields ErrNotSessionOwner.
	DeleteSession(ctx context.Context, sessionID, userID string) error

	// GetPreferences returns the user's stored preference map.
	GetPreferences(ctx context.Context, userID string) (map[string]string, error)
	// SetPreference stores one preference key for the user.
	SetPreference(ctx context.Context, userID, key, value string) error

	// LogAction appends to the user's action log, trimmed to the cap.
	LogAction(ctx context.Context, userID string, action Action) error
	// RecentActions returns the newest actions first, up to limit.
	RecentActions(ctx context.Context, userID string, limit int) ([]Action, error)

	// CacheSet stores a value with a TTL.
	CacheSet(ctx context.Context, key, value string, ttl time.Duration) error
	// CacheGet returns the cached value, or ok=false when absent/expired.
	CacheGet(ctx context.Context, key string) (string, bool, error)

	// Healthy reports whether the backend is reachable.
	Healthy(ctx context.Context) bool
	// Close releases backend connections.
	Close() error
}
