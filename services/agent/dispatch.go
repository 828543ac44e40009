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
// Tool dispatch for one Act phase. Independent invocations run
// concurrently under a bounded worker group; a declared dependency edge
// (visualization waits for document-search when both fire in the same
// turn) splits the work into two waves.
//
// Fault isolation is per invocation: a tool error, timeout, or missing
// registration marks that invocation failed or skipped and never aborts
// the siblings or the turn. The scratchpad receives entries in completion
// order; the returned Observation is re-sorted into intent priority order.

package agent

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var dispatchTracer = otel.Tracer("agentx.agent.dispatch")

// intentBinding maps a category onto its tool and an optional dependency
// on another category's completion within the same turn.
type intentBinding struct {
	tool      ToolID
	dependsOn Category
}

var intentBindings = map[Category]intentBinding{
	CategoryTaskManagement: {tool: ToolTaskManager},
	CategoryDocumentSearch: {tool: ToolDocumentSearch},
	CategoryWebSearch:      {tool: ToolWebSearch},
	CategoryVisualization:  {tool: ToolVisualizer, dependsOn: CategoryDocumentSearch},
	CategoryCalculator:     {tool: ToolCalculator},
	// general-chat has no tool; the composer answers directly.
}

// Dispatcher executes the Act phase against the registry.
type Dispatcher struct {
	registry      *Registry
	toolTimeout   time.Duration
	maxConcurrent int

	// onResult, when set, observes every completed invocation. Used by the
	// orchestrator service to record metrics.
	onResult func(ToolInvocation)
}

func NewDispatcher(registry *Registry, toolTimeout time.Duration, maxConcurrent int) *Dispatcher {
	if toolTimeout <= 0 {
		toolTimeout = 30 * time.Second
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Dispatcher{
		registry:      registry,
		toolTimeout:   toolTimeout,
		maxConcurrent: maxConcurrent,
	}
}

// SetResultHook installs an observer for completed invocations. Must be
// called before the dispatcher is shared across goroutines.
func (d *Dispatcher) SetResultHook(fn func(ToolInvocation)) {
	d.onResult = fn
}

// Dispatch runs every tool-backed intent and returns the Observation in
// intent priority order. Intents without a tool binding (general-chat)
// produce no invocation.
func (d *Dispatcher) Dispatch(ctx context.Context, intents []Intent, pad *Scratchpad) Observation {
	ctx, span := dispatchTracer.Start(ctx, "Dispatcher.Dispatch")
	defer span.End()
	span.SetAttributes(attribute.Int("agent.intents", len(intents)))

	type slot struct {
		intent Intent
		tool   ToolID
	}
	var runnable []slot
	present := make(map[Category]bool, len(intents))
	for _, in := range intents {
		present[in.Category] = true
	}
	for _, in := range intents {
		binding, ok := intentBindings[in.Category]
		if !ok {
			continue
		}
		runnable = append(runnable, slot{intent: in, tool: binding.tool})
	}

	results := make([]ToolInvocation, len(runnable))

	runWave := func(dependent bool) {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(d.maxConcurrent)
		for i, s := range runnable {
			dep := intentBindings[s.intent.Category].dependsOn
			inDependentWave := dep != "" && present[dep]
			if inDependentWave != dependent {
				continue
			}
			i, s := i, s
			g.Go(func() error {
				inv := d.invoke(gctx, s.tool, s.intent)
				results[i] = inv
				pad.Append(inv)
				if d.onResult != nil {
					d.onResult(inv)
				}
				// Errors stay inside the invocation record.
				return nil
			})
		}
		_ = g.Wait()
	}
	runWave(false)
	runWave(true)

	failed := 0
	for _, inv := range results {
		if inv.Status != StatusOK {
			failed++
		}
	}
	span.SetAttributes(
		attribute.Int("agent.invocations", len(results)),
		attribute.Int("agent.invocations_failed", failed),
	)
	return Observation{Invocations: results}
}

// invoke runs one tool under the per-invocation timeout and classifies
// the outcome. It never returns an error: failures become part of the
// invocation record.
func (d *Dispatcher) invoke(ctx context.Context, toolID ToolID, intent Intent) ToolInvocation {
	ctx, span := dispatchTracer.Start(ctx, "Dispatcher.invoke")
	defer span.End()
	span.SetAttributes(
		attribute.String("agent.tool", string(toolID)),
		attribute.String("agent.intent", string(intent.Category)),
	)

	inv := ToolInvocation{
		Tool:   toolID,
		Intent: intent.Category,
		Params: intent.Slots,
	}

	tool, ok := d.registry.Lookup(toolID)
	if !ok {
		inv.Status = StatusSkipped
		inv.Reason = ReasonNotFound
		span.SetStatus(codes.Error, "tool not registered")
		slog.Warn("Skipping invocation for unregistered tool", "tool", toolID)
		return inv
	}

	invokeCtx, cancel := context.WithTimeout(ctx, d.toolTimeout)
	defer cancel()

	start := time.Now()
	result, err := tool.Invoke(invokeCtx, intent.Slots)
	inv.Elapsed = time.Since(start)

	if err != nil {
		inv.Status, inv.Reason = classifyToolError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Warn("Tool invocation failed",
			"tool", toolID, "reason", inv.Reason, "error", err, "elapsed", inv.Elapsed)
		return inv
	}

	inv.Status = StatusOK
	inv.Result = result
	slog.Debug("Tool invocation succeeded", "tool", toolID, "elapsed", inv.Elapsed)
	return inv
}
