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
// Intent resolution over a static rule table. Classification is pure and
// deterministic: the same utterance and prior state always yield the same
// intent list in the same order, with the same slot values. No model call
// happens here.
//
// Every matching category is returned, ordered by the table's fixed
// priority. When nothing matches, the resolver returns the general-chat
// intent so a turn always has exactly one classification outcome.

package agent

import (
	"regexp"
	"strings"
)

// Fixed category priorities. Lower value dispatches first.
const (
	priorityTaskManagement = 1
	priorityDocumentSearch = 2
	priorityWebSearch      = 3
	priorityVisualization  = 4
	priorityCalculator     = 5
	priorityGeneralChat    = 6
)

var (
	// Matches "3 + 4", "15*7", "(2+3)/5" and similar infix fragments.
	arithmeticRe = regexp.MustCompile(`[0-9)]\s*[+*/^%-]\s*[(0-9]`)
	// Longest contiguous arithmetic expression in the utterance.
	expressionRe = regexp.MustCompile(`[0-9(][0-9\s.()+*/%^-]*[0-9)]`)
	// "by friday", "due tomorrow", "before next week".
	dueRe = regexp.MustCompile(`\b(?:by|due|before)\s+((?:next\s+)?[a-z]+)`)
	// "20 percent of 50", "7.5% of 200".
	percentRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:%|percent)\s+of\s+(\d+(?:\.\d+)?)`)
)

// intentRule binds one category to its trigger phrases and slot extractor.
// Table order is the dispatch priority order and never changes at runtime.
type intentRule struct {
	category Category
	priority int
	triggers []string
	matchFn  func(lower string) bool
	slots    func(lower string) map[string]string
}

var intentTable = []intentRule{
	{
		category: CategoryTaskManagement,
		priority: priorityTaskManagement,
		triggers: []string{"task", "tasks", "remind me", "reminder", "todo", "to-do"},
		slots:    extractTaskSlots,
	},
	{
		category: CategoryDocumentSearch,
		priority: priorityDocumentSearch,
		triggers: []string{
			"document", "documents", "my files", "uploaded", "pdf",
			"summarize", "summary of", "knowledge base",
		},
		slots: extractDocSearchSlots,
	},
	{
		category: CategoryWebSearch,
		priority: priorityWebSearch,
		triggers: []string{
			"search the web", "web search", "look up", "google",
			"latest", "news", "current events", "what's happening",
		},
		slots: extractWebSearchSlots,
	},
	{
		category: CategoryVisualization,
		priority: priorityVisualization,
		triggers: []string{
			"chart", "plot", "graph", "visualize", "visualization",
			"histogram", "draw me",
		},
		slots: extractVizSlots,
	},
	{
		category: CategoryCalculator,
		priority: priorityCalculator,
		triggers: []string{"calculate", "solve", "math", "percent of", "% of"},
		matchFn: func(lower string) bool {
			return arithmeticRe.MatchString(lower)
		},
		slots: extractCalcSlots,
	},
}

// Resolver classifies utterances against the static rule table.
type Resolver struct{}

// Resolve returns every matching intent in fixed priority order, or the
// general-chat intent when no rule fires. The prior conversation state is
// part of the contract so rules may condition on it; the current table is
// purely lexical and ignores it.
func (Resolver) Resolve(utterance string, prior *ConversationState) []Intent {
	lower := strings.ToLower(strings.TrimSpace(utterance))
	var intents []Intent
	for _, rule := range intentTable {
		if !ruleMatches(rule, lower) {
			continue
		}
		intents = append(intents, Intent{
			Category: rule.category,
			Priority: rule.priority,
			Slots:    rule.slots(lower),
		})
	}
	if len(intents) == 0 {
		intents = append(intents, Intent{
			Category: CategoryGeneralChat,
			Priority: priorityGeneralChat,
		})
	}
	return intents
}

func ruleMatches(rule intentRule, lower string) bool {
	for _, trigger := range rule.triggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	if rule.matchFn != nil {
		return rule.matchFn(lower)
	}
	return false
}

// =============================================================================
// Slot Extractors
// =============================================================================
//
// Slot maps are namespaced per intent; extractors never read or write
// another category's slots, so co-occurring intents cannot collide.

func extractTaskSlots(lower string) map[string]string {
	slots := map[string]string{"action": taskAction(lower)}

	switch {
	case strings.Contains(lower, "urgent"), strings.Contains(lower, "asap"),
		strings.Contains(lower, "high-priority"), strings.Contains(lower, "high priority"):
		slots["priority"] = "high"
	case strings.Contains(lower, "low-priority"), strings.Contains(lower, "low priority"):
		slots["priority"] = "low"
	case strings.Contains(lower, "medium priority"), strings.Contains(lower, "normal priority"):
		slots["priority"] = "medium"
	}

	if m := dueRe.FindStringSubmatch(lower); m != nil {
		slots["due"] = m[1]
	}

	if title := taskTitle(lower, slots["due"]); title != "" {
		slots["title"] = title
	}
	return slots
}

func taskAction(lower string) string {
	switch {
	case containsAny(lower, "delete", "remove", "cancel the task", "cancel task"):
		return "delete"
	case containsAny(lower, "update", "modify", "change", "mark", "complete", "finish", "done with"):
		return "update"
	case containsAny(lower, "stats", "statistics", "how many tasks", "task summary"):
		return "stats"
	case containsAny(lower, "create", "add", "new task", "remind me", "make a task", "make me a task"):
		return "create"
	default:
		return "list"
	}
}

// taskTitle pulls the free-text task description that follows the usual
// lead-ins, trimming a trailing due clause so "submit report by friday"
// becomes "submit report".
func taskTitle(lower, due string) string {
	markers := []string{"task to ", "task for ", "task called ", "task: ", "remind me to ", "reminder to "}
	var title string
	for _, marker := range markers {
		if idx := strings.Index(lower, marker); idx >= 0 {
			title = strings.TrimSpace(lower[idx+len(marker):])
			break
		}
	}
	if title == "" {
		return ""
	}
	if due != "" {
		if m := dueRe.FindStringIndex(title); m != nil {
			title = strings.TrimSpace(title[:m[0]])
		}
	}
	return strings.Trim(title, " .,!?")
}

func extractDocSearchSlots(lower string) map[string]string {
	markers := []string{
		"documents for ", "documents about ", "document about ",
		"files for ", "files about ", "my files on ",
		"summarize ", "summary of ", "search my documents for ",
	}
	for _, marker := range markers {
		if idx := strings.Index(lower, marker); idx >= 0 {
			query := clause(lower[idx+len(marker):])
			if query != "" {
				return map[string]string{"query": query}
			}
		}
	}
	return map[string]string{"query": strings.Trim(lower, " .,!?")}
}

func extractWebSearchSlots(lower string) map[string]string {
	markers := []string{
		"search the web for ", "web search for ", "search for ",
		"look up ", "google ", "latest on ", "news about ", "news on ",
	}
	for _, marker := range markers {
		if idx := strings.Index(lower, marker); idx >= 0 {
			query := clause(lower[idx+len(marker):])
			if query != "" {
				return map[string]string{"query": query}
			}
		}
	}
	return map[string]string{"query": strings.Trim(lower, " .,!?")}
}

func extractVizSlots(lower string) map[string]string {
	slots := map[string]string{"chart": "bar"}
	for _, kind := range []string{"line", "pie", "scatter", "histogram", "bar"} {
		if strings.Contains(lower, kind) {
			slots["chart"] = kind
			break
		}
	}
	for _, marker := range []string{" of ", " for ", " showing "} {
		if idx := strings.Index(lower, marker); idx >= 0 {
			if topic := clause(lower[idx+len(marker):]); topic != "" {
				slots["topic"] = topic
				break
			}
		}
	}
	return slots
}

func extractCalcSlots(lower string) map[string]string {
	// Percentage phrasing has no infix form; rewrite it into one so the
	// evaluator computes the actual value instead of echoing a number.
	if m := percentRe.FindStringSubmatch(lower); m != nil {
		return map[string]string{"expression": m[1] + " / 100 * " + m[2]}
	}
	expr := expressionRe.FindString(lower)
	if expr == "" {
		expr = lower
	}
	return map[string]string{"expression": strings.TrimSpace(expr)}
}

// clause trims a fragment at the next coordinating boundary so compound
// requests ("...sales data and search the web...") keep slots separate.
func clause(s string) string {
	for _, boundary := range []string{" and ", ", ", " then "} {
		if idx := strings.Index(s, boundary); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.Trim(s, " .,!?")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
