// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package taskstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := NewTask("u1", "write release notes")
	task.Priority = PriorityHigh
	if err := store.Create(ctx, task); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(ctx, "u1", task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "write release notes" || got.Priority != PriorityHigh || got.Status != StatusPending {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestStoreGetUnknownTask(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "u1", "no-such-id")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestStoreCreateRejectsInvalidPriority(t *testing.T) {
	store := newTestStore(t)
	task := NewTask("u1", "bad task")
	task.Priority = "critical"
	if err := store.Create(context.Background(), task); err == nil {
		t.Fatal("expected validation error for unknown priority")
	}
}

func TestStoreListFiltersAndUserScoping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	high := NewTask("u1", "urgent thing")
	high.Priority = PriorityHigh
	low := NewTask("u1", "someday thing")
	low.Priority = PriorityLow
	other := NewTask("u2", "someone else's thing")
	for _, task := range []*Task{high, low, other} {
		if err := store.Create(ctx, task); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	all, err := store.List(ctx, "u1", Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("u1 should see 2 tasks, got %d", len(all))
	}
	for _, task := range all {
		if task.UserID != "u1" {
			t.Errorf("leaked task from another user: %+v", task)
		}
	}

	highOnly, _ := store.List(ctx, "u1", Filter{Priority: PriorityHigh})
	if len(highOnly) != 1 || highOnly[0].Title != "urgent thing" {
		t.Errorf("priority filter failed: %+v", highOnly)
	}
}

func TestStoreListDueWithin(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	soon := NewTask("u1", "due soon")
	soonDate := time.Now().UTC().Add(48 * time.Hour)
	soon.DueDate = &soonDate

	far := NewTask("u1", "due far out")
	farDate := time.Now().UTC().Add(30 * 24 * time.Hour)
	far.DueDate = &farDate

	for _, task := range []*Task{soon, far} {
		if err := store.Create(ctx, task); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	upcoming, err := store.List(ctx, "u1", Filter{DueWithin: 7 * 24 * time.Hour})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(upcoming) != 1 || upcoming[0].Title != "due soon" {
		t.Errorf("DueWithin filter failed: %+v", upcoming)
	}
}

func TestStoreUpdateAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := NewTask("u1", "ship it")
	if err := store.Create(ctx, task); err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := store.Update(ctx, "u1", task.ID, func(t *Task) {
		t.Status = StatusCompleted
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", updated.Status)
	}
	if !updated.UpdatedAt.After(task.CreatedAt) && !updated.UpdatedAt.Equal(task.CreatedAt) {
		t.Errorf("UpdatedAt not refreshed: %v", updated.UpdatedAt)
	}

	if err := store.Delete(ctx, "u1", task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "u1", task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("second delete should report not found, got %v", err)
	}
}

func TestStoreComputeStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pending := NewTask("u1", "pending one")
	done := NewTask("u1", "done one")
	done.Status = StatusCompleted
	overdue := NewTask("u1", "late one")
	past := time.Now().UTC().Add(-24 * time.Hour)
	overdue.DueDate = &past

	for _, task := range []*Task{pending, done, overdue} {
		if err := store.Create(ctx, task); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	stats, err := store.ComputeStats(ctx, "u1")
	if err != nil {
		t.Fatalf("ComputeStats: %v", err)
	}
	if stats.Total != 3 || stats.ByStatus[StatusPending] != 2 ||
		stats.ByStatus[StatusCompleted] != 1 || stats.Overdue != 1 {
		t.Errorf("stats mismatch: %+v", stats)
	}
}
