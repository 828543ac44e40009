// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/AleutianAI/agentx/services/agent"
)

// InProcStore implements Store with process-local maps. It backs local
// development and the degraded path when Redis is unreachable; contents
// do not survive a restart.
type InProcStore struct {
	mu       sync.RWMutex
	turns    map[string][]agent.Turn
	owners   map[string]string
	prefs    map[string]map[string]string
	actions  map[string][]Action
	cache    map[string]cacheEntry
	cacheNow func() time.Time
}

type cacheEntry struct {
	value   string
	expires time.Time
}

var _ Store = (*InProcStore)(nil)

func NewInProcStore() *InProcStore {
	return &InProcStore{
		turns:    make(map[string][]agent.Turn),
		owners:   make(map[string]string),
		prefs:    make(map[string]map[string]string),
		actions:  make(map[string][]Action),
		cache:    make(map[string]cacheEntry),
		cacheNow: time.Now,
	}
}

func (m *InProcStore) LoadState(_ context.Context, sessionID, userID string) (*agent.ConversationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if owner, ok := m.owners[sessionID]; ok && owner != userID {
		return nil, ErrNotSessionOwner
	}
	state := agent.NewConversationState(sessionID, userID)
	if turns, ok := m.turns[sessionID]; ok {
		state.Turns = append(state.Turns, turns...)
	}
	return state, nil
}

func (m *InProcStore) SaveState(_ context.Context, state *agent.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := state.Turns
	if len(turns) > maxHistoryEntries {
		turns = turns[len(turns)-maxHistoryEntries:]
	}
	stored := make([]agent.Turn, len(turns))
	copy(stored, turns)
	m.turns[state.SessionID] = stored
	m.owners[state.SessionID] = state.UserID
	return nil
}

func (m *InProcStore) ListSessions(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, owner := range m.owners {
		if owner == userID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *InProcStore) DeleteSession(_ context.Context, sessionID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[sessionID]
	if !ok {
		return nil
	}
	if owner != userID {
		return ErrNotSessionOwner
	}
	delete(m.turns, sessionID)
	delete(m.owners, sessionID)
	return nil
}

func (m *InProcStore) GetPreferences(_ context.Context, userID string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.prefs[userID]))
	for k, v := range m.prefs[userID] {
		out[k] = v
	}
	return out, nil
}

func (m *InProcStore) SetPreference(_ context.Context, userID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs[userID] == nil {
		m.prefs[userID] = make(map[string]string)
	}
	m.prefs[userID][key] = value
	return nil
}

func (m *InProcStore) LogAction(_ context.Context, userID string, action Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Newest first, like the Redis LPUSH layout.
	log := append([]Action{action}, m.actions[userID]...)
	if len(log) > maxActionEntries {
		log = log[:maxActionEntries]
	}
	m.actions[userID] = log
	return nil
}

func (m *InProcStore) RecentActions(_ context.Context, userID string, limit int) ([]Action, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	log := m.actions[userID]
	if limit <= 0 || limit > len(log) {
		limit = len(log)
	}
	out := make([]Action, limit)
	copy(out, log[:limit])
	return out, nil
}

func (m *InProcStore) CacheSet(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// ttl <= 0 means no expiry, matching Redis SET with expiration 0.
	entry := cacheEntry{value: value}
	if ttl > 0 {
		entry.expires = m.cacheNow().Add(ttl)
	}
	m.cache[key] = entry
	return nil
}

func (m *InProcStore) CacheGet(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.cache[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expires.IsZero() && m.cacheNow().After(entry.expires) {
		delete(m.cache, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (m *InProcStore) Healthy(context.Context) bool { return true }

func (m *InProcStore) Close() error { return nil }
