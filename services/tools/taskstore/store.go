// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// # Description
//
// Embedded task persistence on BadgerDB. Tasks are stored one JSON value
// per key under "task:<user_id>:<task_id>", so per-user listing is a
// prefix scan and cross-user reads are impossible by construction.

package taskstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var storeTracer = otel.Tracer("agentx.tools.taskstore")

// ErrTaskNotFound is returned for lookups of unknown task IDs.
var ErrTaskNotFound = errors.New("task not found")

// Config holds the BadgerDB settings for the task store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string
	// InMemory opens a non-persistent database. Useful for testing.
	InMemory bool
	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool
}

// DefaultConfig returns production settings.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// Store is the BadgerDB-backed task repository. Safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open creates the database directory if needed and opens the store.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("path is required for persistent task store")
		}
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create task store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithLogger(nil) // BadgerDB's internal logging is too chatty

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open task store: %w", err)
	}
	slog.Info("Opened task store", "path", cfg.Path, "in_memory", cfg.InMemory)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func taskKey(userID, taskID string) []byte {
	return []byte(fmt.Sprintf("task:%s:%s", userID, taskID))
}

func userPrefix(userID string) []byte {
	return []byte(fmt.Sprintf("task:%s:", userID))
}

// Create validates and persists a new task.
func (s *Store) Create(ctx context.Context, task *Task) error {
	ctx, span := storeTracer.Start(ctx, "Store.Create")
	defer span.End()
	span.SetAttributes(attribute.String("task.id", task.ID))

	if err := task.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(taskKey(task.UserID, task.ID), raw)
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("store task %s: %w", task.ID, err)
	}
	slog.Debug("Created task", "task_id", task.ID, "user_id", task.UserID)
	return nil
}

// Get returns one task by ID.
func (s *Store) Get(ctx context.Context, userID, taskID string) (*Task, error) {
	_, span := storeTracer.Start(ctx, "Store.Get")
	defer span.End()

	var task Task
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(taskKey(userID, taskID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &task)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load task %s: %w", taskID, err)
	}
	return &task, nil
}

// List returns the user's tasks matching the filter, newest first.
func (s *Store) List(ctx context.Context, userID string, filter Filter) ([]*Task, error) {
	_, span := storeTracer.Start(ctx, "Store.List")
	defer span.End()
	span.SetAttributes(attribute.String("task.user_id", userID))

	var tasks []*Task
	now := time.Now().UTC()
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := userPrefix(userID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var task Task
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &task)
			})
			if err != nil {
				return err
			}
			if matchesFilter(&task, filter, now) {
				t := task
				tasks = append(tasks, &t)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list tasks for %s: %w", userID, err)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

func matchesFilter(task *Task, filter Filter, now time.Time) bool {
	if filter.Status != "" && task.Status != filter.Status {
		return false
	}
	if filter.Priority != "" && task.Priority != filter.Priority {
		return false
	}
	if filter.DueWithin > 0 {
		if task.DueDate == nil || task.Status == StatusCompleted {
			return false
		}
		if task.DueDate.Before(now) || task.DueDate.After(now.Add(filter.DueWithin)) {
			return false
		}
	}
	return true
}

// Update applies mutate to the stored task inside one transaction.
func (s *Store) Update(ctx context.Context, userID, taskID string, mutate func(*Task)) (*Task, error) {
	_, span := storeTracer.Start(ctx, "Store.Update")
	defer span.End()

	var updated *Task
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(taskKey(userID, taskID))
		if err != nil {
			return err
		}
		var task Task
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &task)
		}); err != nil {
			return err
		}
		mutate(&task)
		task.UpdatedAt = time.Now().UTC()
		if err := task.Validate(); err != nil {
			return err
		}
		raw, err := json.Marshal(&task)
		if err != nil {
			return err
		}
		updated = &task
		return txn.Set(taskKey(userID, taskID), raw)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("update task %s: %w", taskID, err)
	}
	return updated, nil
}

// Delete removes a task. Deleting an unknown ID returns ErrTaskNotFound.
func (s *Store) Delete(ctx context.Context, userID, taskID string) error {
	_, span := storeTracer.Start(ctx, "Store.Delete")
	defer span.End()

	err := s.db.Update(func(txn *badger.Txn) error {
		key := taskKey(userID, taskID)
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete task %s: %w", taskID, err)
	}
	return nil
}

// ComputeStats aggregates the user's tasks by status and priority.
func (s *Store) ComputeStats(ctx context.Context, userID string) (*Stats, error) {
	tasks, err := s.List(ctx, userID, Filter{})
	if err != nil {
		return nil, err
	}
	stats := &Stats{
		ByStatus:   make(map[string]int),
		ByPriority: make(map[string]int),
	}
	now := time.Now().UTC()
	for _, task := range tasks {
		stats.Total++
		stats.ByStatus[task.Status]++
		stats.ByPriority[task.Priority]++
		if task.Overdue(now) {
			stats.Overdue++
		}
	}
	return stats, nil
}
