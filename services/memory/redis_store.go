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
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/agentx/services/agent"
)

var memoryTracer = otel.Tracer("agentx.memory.redis")

// Key layout. Conversations are Redis lists trimmed to the retention cap,
// preferences are hashes, the action log is a list, each user's sessions
// a set.
const (
	keySessions = "agentx:user:%s:sessions"
	keyTurns    = "agentx:session:%s:turns"
	keyOwner    = "agentx:session:%s:owner"
	keyPrefs    = "agentx:user:%s:prefs"
	keyActions  = "agentx:user:%s:actions"
	keyCache    = "agentx:cache:%s"
)

// RedisStoreConfig describes the Redis connection.
type RedisStoreConfig struct {
	Address  string
	Password string
	DB       int
}

// RedisStore implements Store on a Redis backend.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects and pings the backend; it fails fast so the
// caller can fall back to the in-process store.
func NewRedisStore(ctx context.Context, cfg RedisStoreConfig) (*RedisStore, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address must not be empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}
	slog.Info("Connected to Redis memory backend", "address", cfg.Address, "db", cfg.DB)
	return &RedisStore{client: client}, nil
}

func (r *RedisStore) LoadState(ctx context.Context, sessionID, userID string) (*agent.ConversationState, error) {
	ctx, span := memoryTracer.Start(ctx, "RedisStore.LoadState")
	defer span.End()
	span.SetAttributes(attribute.String("memory.session_id", sessionID))

	owner, err := r.client.Get(ctx, fmt.Sprintf(keyOwner, sessionID)).Result()
	if err != nil && err != redis.Nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to check session owner %s: %w", sessionID, err)
	}
	if err == nil && owner != userID {
		return nil, ErrNotSessionOwner
	}

	raw, err := r.client.LRange(ctx, fmt.Sprintf(keyTurns, sessionID), 0, -1).Result()
	if err != nil && err != redis.Nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	state := agent.NewConversationState(sessionID, userID)
	for _, entry := range raw {
		var turn agent.Turn
		if err := json.Unmarshal([]byte(entry), &turn); err != nil {
			slog.Warn("Dropping unparseable conversation entry", "session_id", sessionID, "error", err)
			continue
		}
		state.Turns = append(state.Turns, turn)
	}
	span.SetAttributes(attribute.Int("memory.turns", len(state.Turns)))
	return state, nil
}

func (r *RedisStore) SaveState(ctx context.Context, state *agent.ConversationState) error {
	ctx, span := memoryTracer.Start(ctx, "RedisStore.SaveState")
	defer span.End()
	span.SetAttributes(
		attribute.String("memory.session_id", state.SessionID),
		attribute.Int("memory.turns", len(state.Turns)),
	)

	turnsKey := fmt.Sprintf(keyTurns, state.SessionID)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, turnsKey)
	for _, turn := range state.Turns {
		raw, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("failed to marshal conversation turn: %w", err)
		}
		pipe.RPush(ctx, turnsKey, raw)
	}
	pipe.LTrim(ctx, turnsKey, int64(-maxHistoryEntries), -1)
	pipe.Set(ctx, fmt.Sprintf(keyOwner, state.SessionID), state.UserID, 0)
	pipe.SAdd(ctx, fmt.Sprintf(keySessions, state.UserID), state.SessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to save session %s: %w", state.SessionID, err)
	}
	return nil
}

func (r *RedisStore) ListSessions(ctx context.Context, userID string) ([]string, error) {
	ids, err := r.client.SMembers(ctx, fmt.Sprintf(keySessions, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for %s: %w", userID, err)
	}
	return ids, nil
}

func (r *RedisStore) DeleteSession(ctx context.Context, sessionID, userID string) error {
	owner, err := r.client.Get(ctx, fmt.Sprintf(keyOwner, sessionID)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check session owner %s: %w", sessionID, err)
	}
	if owner != userID {
		return ErrNotSessionOwner
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, fmt.Sprintf(keyTurns, sessionID))
	pipe.Del(ctx, fmt.Sprintf(keyOwner, sessionID))
	pipe.SRem(ctx, fmt.Sprintf(keySessions, owner), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

func (r *RedisStore) GetPreferences(ctx context.Context, userID string) (map[string]string, error) {
	prefs, err := r.client.HGetAll(ctx, fmt.Sprintf(keyPrefs, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences for %s: %w", userID, err)
	}
	return prefs, nil
}

func (r *RedisStore) SetPreference(ctx context.Context, userID, key, value string) error {
	if err := r.client.HSet(ctx, fmt.Sprintf(keyPrefs, userID), key, value).Err(); err != nil {
		return fmt.Errorf("failed to store preference %s for %s: %w", key, userID, err)
	}
	return nil
}

func (r *RedisStore) LogAction(ctx context.Context, userID string, action Action) error {
	raw, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to marshal action: %w", err)
	}
	key := fmt.Sprintf(keyActions, userID)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, raw)
	pipe.LTrim(ctx, key, 0, maxActionEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to log action for %s: %w", userID, err)
	}
	return nil
}

func (r *RedisStore) RecentActions(ctx context.Context, userID string, limit int) ([]Action, error) {
	if limit <= 0 || limit > maxActionEntries {
		limit = maxActionEntries
	}
	raw, err := r.client.LRange(ctx, fmt.Sprintf(keyActions, userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load actions for %s: %w", userID, err)
	}
	actions := make([]Action, 0, len(raw))
	for _, entry := range raw {
		var a Action
		if err := json.Unmarshal([]byte(entry), &a); err != nil {
			continue
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func (r *RedisStore) CacheSet(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, fmt.Sprintf(keyCache, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) CacheGet(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, fmt.Sprintf(keyCache, key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache %s: %w", key, err)
	}
	return value, true, nil
}

func (r *RedisStore) Healthy(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}

func (r *RedisStore) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
