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
// Answer composition: turns an Observation plus conversation history into
// the single natural-language reply for the turn. Composition never fails
// the turn. When the LLM is unreachable it falls back to deterministic
// templates built from the tool payloads, and when every invocation
// failed it states plainly that no data was retrieved instead of
// inventing an answer.

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/agentx/services/llm"
)

var composeTracer = otel.Tracer("agentx.agent.compose")

const (
	// historyLimit bounds how many prior turns feed the synthesis prompt.
	historyLimit = 6
	// payloadRuneLimit bounds each tool payload's rendered size in the
	// prompt, measured in runes so multibyte text is never split.
	payloadRuneLimit = 500

	composerSystemPrompt = "You are AgentX, a helpful assistant. Answer the user's " +
		"request using ONLY the tool results provided in the context block. " +
		"Be concise. If the tool results do not cover part of the request, say so."
)

// Composer builds the final reply for a turn.
type Composer struct {
	llm     llm.LLMClient
	persona string

	// onFallback, when set, observes every deterministic fallback so the
	// orchestrator can count them.
	onFallback func(kind string)
}

func NewComposer(client llm.LLMClient) *Composer {
	return &Composer{llm: client, persona: composerSystemPrompt}
}

// SetFallbackHook installs an observer for fallback compositions. Must be
// called before the composer is shared across goroutines.
func (c *Composer) SetFallbackHook(fn func(kind string)) {
	c.onFallback = fn
}

// Compose produces exactly one reply for the turn. It never returns an
// error: LLM failures degrade to templates, and an all-failed observation
// degrades to an explicit no-data statement.
func (c *Composer) Compose(ctx context.Context, state *ConversationState, utterance string, obs Observation) string {
	ctx, span := composeTracer.Start(ctx, "Composer.Compose")
	defer span.End()
	span.SetAttributes(attribute.Int("agent.invocations", len(obs.Invocations)))

	if obs.AllFailed() {
		span.SetAttributes(attribute.String("agent.compose_path", "no-data"))
		c.fallback("no-data")
		return noDataStatement(obs)
	}

	messages := c.buildMessages(state, utterance, obs)
	reply, err := c.llm.Chat(ctx, messages, llm.GenerationParams{})
	if err != nil || strings.TrimSpace(reply) == "" {
		slog.Warn("LLM synthesis unavailable, composing from templates", "error", err)
		span.SetAttributes(attribute.String("agent.compose_path", "template"))
		c.fallback("template")
		return templatedAnswer(utterance, obs)
	}
	span.SetAttributes(attribute.String("agent.compose_path", "llm"))
	return reply
}

func (c *Composer) fallback(kind string) {
	if c.onFallback != nil {
		c.onFallback(kind)
	}
}

// buildMessages assembles the synthesis prompt: persona, recent history,
// a context block of truncated tool payloads, then the user utterance.
func (c *Composer) buildMessages(state *ConversationState, utterance string, obs Observation) []llm.Message {
	messages := []llm.Message{{Role: "system", Content: c.persona}}
	if state != nil {
		for _, turn := range state.RecentTurns(historyLimit) {
			messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Text})
		}
	}
	if block := contextBlock(obs); block != "" {
		messages = append(messages, llm.Message{
			Role:    "system",
			Content: "Tool results for the current request:\n" + block,
		})
	}
	messages = append(messages, llm.Message{Role: "user", Content: utterance})
	return messages
}

func contextBlock(obs Observation) string {
	var b strings.Builder
	for _, inv := range obs.Invocations {
		switch inv.Status {
		case StatusOK:
			fmt.Fprintf(&b, "[%s] %s\n", inv.Tool, truncateRunes(renderPayload(inv.Result), payloadRuneLimit))
		default:
			fmt.Fprintf(&b, "[%s] unavailable (%s)\n", inv.Tool, inv.Reason)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderPayload flattens a tool result for the prompt. Summarizer results
// render themselves; everything else goes through JSON.
func renderPayload(result any) string {
	if result == nil {
		return ""
	}
	if s, ok := result.(Summarizer); ok {
		return s.Summary()
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(raw)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// =============================================================================
// Deterministic Fallbacks
// =============================================================================

// templatedAnswer builds a reply from successful payloads without the LLM.
func templatedAnswer(utterance string, obs Observation) string {
	succeeded := obs.Succeeded()
	if len(succeeded) == 0 {
		// General chat with no tools and no LLM.
		return "I'm running in a degraded mode right now and can't generate a " +
			"conversational reply. Tool-backed requests (tasks, documents, " +
			"calculations, charts) still work."
	}
	var parts []string
	for _, inv := range succeeded {
		payload := truncateRunes(renderPayload(inv.Result), payloadRuneLimit)
		parts = append(parts, fmt.Sprintf("%s: %s", toolLabel(inv.Tool), payload))
	}
	answer := "Here's what I found:\n" + strings.Join(parts, "\n")
	if failed := failedLabels(obs); len(failed) > 0 {
		answer += "\n\nI couldn't reach: " + strings.Join(failed, ", ") + "."
	}
	return answer
}

// noDataStatement is returned when every invocation failed or was skipped.
// It names each tool and reason rather than fabricating content.
func noDataStatement(obs Observation) string {
	var parts []string
	for _, inv := range obs.Invocations {
		parts = append(parts, fmt.Sprintf("%s (%s)", toolLabel(inv.Tool), inv.Reason))
	}
	return "I wasn't able to retrieve any data for that request. " +
		"The following lookups did not complete: " + strings.Join(parts, ", ") +
		". Please try again in a moment."
}

func failedLabels(obs Observation) []string {
	var labels []string
	for _, inv := range obs.Invocations {
		if inv.Status != StatusOK {
			labels = append(labels, fmt.Sprintf("%s (%s)", toolLabel(inv.Tool), inv.Reason))
		}
	}
	return labels
}

func toolLabel(id ToolID) string {
	switch id {
	case ToolTaskManager:
		return "task manager"
	case ToolDocumentSearch:
		return "document search"
	case ToolWebSearch:
		return "web search"
	case ToolVisualizer:
		return "visualizer"
	case ToolCalculator:
		return "calculator"
	default:
		return string(id)
	}
}
