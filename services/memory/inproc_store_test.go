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
	"fmt"
	"testing"
	"time"

	"github.com/AleutianAI/agentx/services/agent"
)

func TestInProcStoreSessionRoundTrip(t *testing.T) {
	store := NewInProcStore()
	ctx := context.Background()

	state := agent.NewConversationState("s1", "u1")
	state.AppendTurn("user", "hello")
	state.AppendTurn("assistant", "hi there")
	if err := store.SaveState(ctx, state); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	loaded, err := store.LoadState(ctx, "s1", "u1")
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(loaded.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(loaded.Turns))
	}
	if loaded.Turns[0].Text != "hello" || loaded.Turns[1].Text != "hi there" {
		t.Errorf("turns corrupted on round trip: %+v", loaded.Turns)
	}
}

func TestInProcStoreSessionIsolation(t *testing.T) {
	store := NewInProcStore()
	ctx := context.Background()

	a := agent.NewConversationState("session-a", "u1")
	a.AppendTurn("user", "secret for a")
	if err := store.SaveState(ctx, a); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	b, err := store.LoadState(ctx, "session-b", "u1")
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(b.Turns) != 0 {
		t.Errorf("session-b must start empty, got %+v", b.Turns)
	}
}

func TestInProcStoreSessionOwnership(t *testing.T) {
	store := NewInProcStore()
	ctx := context.Background()

	state := agent.NewConversationState("s1", "owner")
	state.AppendTurn("user", "owner's message")
	if err := store.SaveState(ctx, state); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	if _, err := store.LoadState(ctx, "s1", "intruder"); err != ErrNotSessionOwner {
		t.Errorf("LoadState as non-owner: err = %v, want ErrNotSessionOwner", err)
	}
	if err := store.DeleteSession(ctx, "s1", "intruder"); err != ErrNotSessionOwner {
		t.Errorf("DeleteSession as non-owner: err = %v, want ErrNotSessionOwner", err)
	}

	owned, err := store.ListSessions(ctx, "owner")
	if err != nil || len(owned) != 1 || owned[0] != "s1" {
		t.Errorf("owner sessions = %v, err = %v", owned, err)
	}
	foreign, _ := store.ListSessions(ctx, "intruder")
	if len(foreign) != 0 {
		t.Errorf("intruder sessions = %v, want none", foreign)
	}

	// Unknown sessions delete as a no-op; the owner's delete works.
	if err := store.DeleteSession(ctx, "no-such-session", "owner"); err != nil {
		t.Errorf("delete unknown session: %v", err)
	}
	if err := store.DeleteSession(ctx, "s1", "owner"); err != nil {
		t.Errorf("owner delete: %v", err)
	}
	if remaining, _ := store.ListSessions(ctx, "owner"); len(remaining) != 0 {
		t.Errorf("sessions after delete = %v", remaining)
	}
}

func TestInProcStoreHistoryCap(t *testing.T) {
	store := NewInProcStore()
	ctx := context.Background()

	state := agent.NewConversationState("s1", "u1")
	for i := 0; i < maxHistoryEntries+20; i++ {
		state.AppendTurn("user", fmt.Sprintf("m%d", i))
	}
	if err := store.SaveState(ctx, state); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	loaded, _ := store.LoadState(ctx, "s1", "u1")
	if len(loaded.Turns) != maxHistoryEntries {
		t.Fatalf("expected %d retained turns, got %d", maxHistoryEntries, len(loaded.Turns))
	}
	if loaded.Turns[0].Text != "m20" {
		t.Errorf("expected oldest retained turn m20, got %s", loaded.Turns[0].Text)
	}
}

func TestInProcStoreActionLogCap(t *testing.T) {
	store := NewInProcStore()
	ctx := context.Background()

	for i := 0; i < maxActionEntries+10; i++ {
		err := store.LogAction(ctx, "u1", Action{Kind: "task_created", Detail: fmt.Sprintf("a%d", i)})
		if err != nil {
			t.Fatalf("LogAction: %v", err)
		}
	}

	actions, err := store.RecentActions(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("RecentActions: %v", err)
	}
	if len(actions) != maxActionEntries {
		t.Fatalf("expected %d actions, got %d", maxActionEntries, len(actions))
	}
	// Newest first.
	if actions[0].Detail != fmt.Sprintf("a%d", maxActionEntries+9) {
		t.Errorf("expected newest action first, got %s", actions[0].Detail)
	}
}

func TestInProcStorePreferences(t *testing.T) {
	store := NewInProcStore()
	ctx := context.Background()

	if err := store.SetPreference(ctx, "u1", "tone", "brief"); err != nil {
		t.Fatalf("SetPreference: %v", err)
	}
	prefs, err := store.GetPreferences(ctx, "u1")
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if prefs["tone"] != "brief" {
		t.Errorf("prefs = %v, want tone=brief", prefs)
	}

	other, _ := store.GetPreferences(ctx, "u2")
	if len(other) != 0 {
		t.Errorf("u2 must have no preferences, got %v", other)
	}
}

func TestInProcStoreCacheTTL(t *testing.T) {
	store := NewInProcStore()
	ctx := context.Background()

	now := time.Now()
	store.cacheNow = func() time.Time { return now }

	if err := store.CacheSet(ctx, "q", "cached answer", time.Minute); err != nil {
		t.Fatalf("CacheSet: %v", err)
	}
	value, ok, _ := store.CacheGet(ctx, "q")
	if !ok || value != "cached answer" {
		t.Fatalf("expected cache hit, got ok=%v value=%q", ok, value)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := store.CacheGet(ctx, "q"); ok {
		t.Error("expected cache miss after TTL expiry")
	}

	// Zero TTL never expires, matching the Redis backend.
	if err := store.CacheSet(ctx, "pinned", "keep me", 0); err != nil {
		t.Fatalf("CacheSet: %v", err)
	}
	now = now.Add(240 * time.Hour)
	if value, ok, _ := store.CacheGet(ctx, "pinned"); !ok || value != "keep me" {
		t.Errorf("zero-TTL entry expired: ok=%v value=%q", ok, value)
	}
}
