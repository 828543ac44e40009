// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agent implements the conversational orchestration core:
// intent resolution, tool dispatch, observation tracking, and answer
// composition for one user turn.
//
// The package is transport-agnostic. HTTP routing lives in
// services/orchestrator; concrete tools live in services/tools and plug
// in through the Tool interface.
package agent

import (
	"context"
	"time"
)

// =============================================================================
// Intent Types
// =============================================================================

// Category is a closed capability category an utterance can be classified
// into. Categories are evaluated and dispatched in fixed priority order.
type Category string

const (
	CategoryTaskManagement Category = "task-management"
	CategoryDocumentSearch Category = "document-search"
	CategoryWebSearch      Category = "web-search"
	CategoryVisualization  Category = "visualization"
	CategoryCalculator     Category = "calculator"
	CategoryGeneralChat    Category = "general-chat"
)

// Intent is one classified capability category for an utterance, with the
// slot values its extractor pulled out of the text. Slots are namespaced
// per intent: two co-occurring intents never share or merge slot maps.
type Intent struct {
	Category Category          `json:"category"`
	Priority int               `json:"priority"`
	Slots    map[string]string `json:"slots,omitempty"`
}

// =============================================================================
// Tool Types
// =============================================================================

// ToolID identifies a capability module in the registry.
type ToolID string

const (
	ToolTaskManager    ToolID = "task_manager"
	ToolDocumentSearch ToolID = "document_search"
	ToolWebSearch      ToolID = "web_search"
	ToolVisualizer     ToolID = "visualizer"
	ToolCalculator     ToolID = "calculator"
)

// Tool is the capability contract every concrete tool implements. Invoke
// must honor ctx cancellation and deadlines; its result payload is opaque
// to the dispatcher and interpreted only by the answer composer.
type Tool interface {
	ID() ToolID
	Invoke(ctx context.Context, params map[string]string) (any, error)
}

// Summarizer is implemented by tool result payloads that can render a
// deterministic one-paragraph summary of themselves. The answer composer
// uses it for the templated fallback when the LLM is unreachable.
type Summarizer interface {
	Summary() string
}

// FollowUpSignaler is implemented by tool result payloads that want to
// request one more Think/Act pass, e.g. a document search that found
// nothing and suggests escalating to the web. The orchestrator honors at
// most one follow-up per turn (bounded by MaxCycles).
type FollowUpSignaler interface {
	FollowUp() (Category, map[string]string, bool)
}

// =============================================================================
// Invocation / Observation Types
// =============================================================================

// InvocationStatus is the terminal state of a single tool invocation.
// Every invocation resolves to exactly one of these before the Answer
// phase begins.
type InvocationStatus string

const (
	StatusOK      InvocationStatus = "ok"
	StatusFailed  InvocationStatus = "failed"
	StatusSkipped InvocationStatus = "skipped"
)

// ToolInvocation records one tool call and its outcome.
type ToolInvocation struct {
	Tool    ToolID            `json:"tool"`
	Intent  Category          `json:"intent"`
	Params  map[string]string `json:"params,omitempty"`
	Status  InvocationStatus  `json:"status"`
	Reason  string            `json:"reason,omitempty"`
	Result  any               `json:"result,omitempty"`
	Elapsed time.Duration     `json:"elapsed_ns,omitempty"`
}

// Observation is the ordered record of this turn's tool invocations.
// The order follows intent priority, not completion order, so downstream
// consumers see a deterministic sequence.
type Observation struct {
	Invocations []ToolInvocation `json:"invocations"`
}

// Succeeded returns the invocations that resolved to StatusOK.
func (o Observation) Succeeded() []ToolInvocation {
	var ok []ToolInvocation
	for _, inv := range o.Invocations {
		if inv.Status == StatusOK {
			ok = append(ok, inv)
		}
	}
	return ok
}

// AllFailed reports whether the observation contains invocations and none
// of them succeeded.
func (o Observation) AllFailed() bool {
	if len(o.Invocations) == 0 {
		return false
	}
	for _, inv := range o.Invocations {
		if inv.Status == StatusOK {
			return false
		}
	}
	return true
}
