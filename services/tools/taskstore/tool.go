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
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/agentx/services/agent"
)

// Tool adapts the Store to the agent's task_manager capability.
type Tool struct {
	store *Store
	now   func() time.Time
}

var _ agent.Tool = (*Tool)(nil)

func NewTool(store *Store) *Tool {
	return &Tool{store: store, now: time.Now}
}

func (t *Tool) ID() agent.ToolID { return agent.ToolTaskManager }

// Result is the task_manager payload handed to the answer composer.
type Result struct {
	Action string  `json:"action"`
	Task   *Task   `json:"task,omitempty"`
	Tasks  []*Task `json:"tasks,omitempty"`
	Stats  *Stats  `json:"stats,omitempty"`
}

// Summary renders the result for the composer's deterministic fallback.
func (r Result) Summary() string {
	switch r.Action {
	case "create":
		due := ""
		if r.Task.DueDate != nil {
			due = " due " + r.Task.DueDate.Format("Mon Jan 2")
		}
		return fmt.Sprintf("Created %s-priority task %q%s.", r.Task.Priority, r.Task.Title, due)
	case "update":
		return fmt.Sprintf("Updated task %q, now %s.", r.Task.Title, r.Task.Status)
	case "delete":
		return fmt.Sprintf("Deleted task %q.", r.Task.Title)
	case "stats":
		return fmt.Sprintf("You have %d tasks (%d pending, %d in progress, %d completed, %d overdue).",
			r.Stats.Total, r.Stats.ByStatus[StatusPending], r.Stats.ByStatus[StatusInProgress],
			r.Stats.ByStatus[StatusCompleted], r.Stats.Overdue)
	default:
		if len(r.Tasks) == 0 {
			return "You have no tasks."
		}
		titles := make([]string, 0, len(r.Tasks))
		for _, task := range r.Tasks {
			titles = append(titles, fmt.Sprintf("%q (%s, %s)", task.Title, task.Priority, task.Status))
		}
		return fmt.Sprintf("You have %d tasks: %s.", len(r.Tasks), strings.Join(titles, ", "))
	}
}

// Invoke routes the extracted action to the store. The user identity
// comes from the turn context, never from slots.
func (t *Tool) Invoke(ctx context.Context, params map[string]string) (any, error) {
	_, userID := agent.SessionFromContext(ctx)
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user identity", agent.ErrToolInvalidParams)
	}

	switch params["action"] {
	case "create":
		return t.create(ctx, userID, params)
	case "update":
		return t.update(ctx, userID, params)
	case "delete":
		return t.delete(ctx, userID, params)
	case "stats":
		stats, err := t.store.ComputeStats(ctx, userID)
		if err != nil {
			return nil, err
		}
		return Result{Action: "stats", Stats: stats}, nil
	default:
		tasks, err := t.store.List(ctx, userID, Filter{})
		if err != nil {
			return nil, err
		}
		return Result{Action: "list", Tasks: tasks}, nil
	}
}

func (t *Tool) create(ctx context.Context, userID string, params map[string]string) (any, error) {
	title := strings.TrimSpace(params["title"])
	if title == "" {
		return nil, fmt.Errorf("%w: a new task needs a title", agent.ErrToolInvalidParams)
	}
	task := NewTask(userID, title)
	if p := params["priority"]; p != "" {
		task.Priority = p
	}
	if due := params["due"]; due != "" {
		if when, ok := parseDue(t.now().UTC(), due); ok {
			task.DueDate = &when
		}
	}
	if err := t.store.Create(ctx, task); err != nil {
		return nil, err
	}
	return Result{Action: "create", Task: task}, nil
}

func (t *Tool) update(ctx context.Context, userID string, params map[string]string) (any, error) {
	task, err := t.findByTitle(ctx, userID, params["title"])
	if err != nil {
		return nil, err
	}
	updated, err := t.store.Update(ctx, userID, task.ID, func(task *Task) {
		// "mark/complete/finish" utterances advance the status; an explicit
		// priority slot adjusts priority instead.
		if p := params["priority"]; p != "" {
			task.Priority = p
			return
		}
		switch task.Status {
		case StatusPending:
			task.Status = StatusInProgress
		default:
			task.Status = StatusCompleted
		}
	})
	if err != nil {
		return nil, err
	}
	return Result{Action: "update", Task: updated}, nil
}

func (t *Tool) delete(ctx context.Context, userID string, params map[string]string) (any, error) {
	task, err := t.findByTitle(ctx, userID, params["title"])
	if err != nil {
		return nil, err
	}
	if err := t.store.Delete(ctx, userID, task.ID); err != nil {
		return nil, err
	}
	return Result{Action: "delete", Task: task}, nil
}

// findByTitle picks the newest task whose title contains the given text,
// or the newest task overall when no text was extracted.
func (t *Tool) findByTitle(ctx context.Context, userID, title string) (*Task, error) {
	tasks, err := t.store.List(ctx, userID, Filter{})
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%w: no tasks exist", ErrTaskNotFound)
	}
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return tasks[0], nil
	}
	for _, task := range tasks {
		if strings.Contains(strings.ToLower(task.Title), title) {
			return task, nil
		}
	}
	return nil, fmt.Errorf("%w: no task matching %q", ErrTaskNotFound, title)
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

// parseDue resolves relative due phrases ("friday", "tomorrow",
// "next week") against now. Due dates land at end of day.
func parseDue(now time.Time, phrase string) (time.Time, bool) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	endOfDay := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
	}
	switch phrase {
	case "today":
		return endOfDay(now), true
	case "tomorrow":
		return endOfDay(now.AddDate(0, 0, 1)), true
	case "next week", "week":
		return endOfDay(now.AddDate(0, 0, 7)), true
	case "next month", "month":
		return endOfDay(now.AddDate(0, 1, 0)), true
	}
	if weekday, ok := weekdays[strings.TrimPrefix(phrase, "next ")]; ok {
		days := int(weekday-now.Weekday()+7) % 7
		if days == 0 || strings.HasPrefix(phrase, "next ") {
			days += 7
		}
		return endOfDay(now.AddDate(0, 0, days)), true
	}
	if when, err := time.Parse("2006-01-02", phrase); err == nil {
		return endOfDay(when), true
	}
	return time.Time{}, false
}
