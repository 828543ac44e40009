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
// The turn loop: Think (resolve intents), Act (dispatch tools), Observe
// (collect results, decide whether one more pass is warranted), Answer
// (compose exactly one reply). The loop is a bounded counter, not
// recursion; MaxCycles caps the Think/Act passes per turn, and only the
// Observe phase can route back to Think.
//
// # Invariants
//
//   - Exactly one Answer per turn, no matter how tools fared.
//   - Tool failures never escalate past their own invocation record.
//   - The scratchpad is cleared at turn start and never leaks across turns.

package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/agentx/services/llm"
)

var agentTracer = otel.Tracer("agentx.agent")

// DefaultMaxCycles allows the initial pass plus at most one follow-up.
const DefaultMaxCycles = 2

// Config tunes the turn loop. Zero values fall back to defaults.
type Config struct {
	MaxCycles          int
	ToolTimeout        time.Duration
	MaxConcurrentTools int
}

func (c *Config) applyDefaults() {
	if c.MaxCycles <= 0 {
		c.MaxCycles = DefaultMaxCycles
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = 30 * time.Second
	}
	if c.MaxConcurrentTools <= 0 {
		c.MaxConcurrentTools = 4
	}
}

// TurnRequest is one user message plus optional inline CSV data for the
// visualizer.
type TurnRequest struct {
	Message string
	CSVData string
}

// TurnResult is everything a transport layer needs to reply and log.
type TurnResult struct {
	Response    string      `json:"response"`
	Intents     []Intent    `json:"intents"`
	Observation Observation `json:"observation"`
	Cycles      int         `json:"cycles"`
}

// Agent wires the resolver, dispatcher, and composer into the turn loop.
type Agent struct {
	resolver   Resolver
	dispatcher *Dispatcher
	composer   *Composer
	registry   *Registry
	cfg        Config
}

func New(registry *Registry, client llm.LLMClient, cfg Config) *Agent {
	cfg.applyDefaults()
	return &Agent{
		dispatcher: NewDispatcher(registry, cfg.ToolTimeout, cfg.MaxConcurrentTools),
		composer:   NewComposer(client),
		registry:   registry,
		cfg:        cfg,
	}
}

// Dispatcher exposes the dispatcher so the orchestrator can attach hooks.
func (a *Agent) Dispatcher() *Dispatcher { return a.dispatcher }

// Composer exposes the composer so the orchestrator can attach hooks.
func (a *Agent) Composer() *Composer { return a.composer }

// RunTurn executes one full turn against the given session state. It
// returns an error only for control failures (empty message, cancelled
// context); tool and LLM failures are absorbed into the single reply.
func (a *Agent) RunTurn(ctx context.Context, state *ConversationState, req TurnRequest) (*TurnResult, error) {
	ctx, span := agentTracer.Start(ctx, "Agent.RunTurn")
	defer span.End()
	span.SetAttributes(attribute.String("agent.session_id", state.SessionID))

	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: message must not be empty", ErrToolInvalidParams)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx = WithSession(ctx, state.SessionID, state.UserID)
	state.BeginTurn()
	pad := state.Pad()

	intents := a.resolver.Resolve(req.Message, state)
	injectCSV(intents, req.CSVData)
	allIntents := intents

	var merged []ToolInvocation
	cycles := 0
	for cycles < a.cfg.MaxCycles {
		cycles++
		obs := a.dispatcher.Dispatch(ctx, intents, pad)
		merged = append(merged, obs.Invocations...)

		followUps := a.followUps(obs, merged)
		if len(followUps) == 0 {
			break
		}
		intents = followUps
		allIntents = append(allIntents, followUps...)
	}

	observation := Observation{Invocations: sortByPriority(merged)}
	span.SetAttributes(
		attribute.Int("agent.cycles", cycles),
		attribute.Int("agent.invocations", len(observation.Invocations)),
	)

	reply := a.composer.Compose(ctx, state, req.Message, observation)

	state.AppendTurn("user", req.Message)
	state.AppendTurn("assistant", reply)

	return &TurnResult{
		Response:    reply,
		Intents:     allIntents,
		Observation: observation,
		Cycles:      cycles,
	}, nil
}

// followUps collects follow-up intents requested by this cycle's results,
// dropping any whose tool already ran this turn so a follow-up can never
// re-trigger itself.
func (a *Agent) followUps(obs Observation, merged []ToolInvocation) []Intent {
	invoked := make(map[ToolID]bool, len(merged))
	for _, inv := range merged {
		invoked[inv.Tool] = true
	}
	var followUps []Intent
	for _, inv := range obs.Invocations {
		if inv.Status != StatusOK {
			continue
		}
		signaler, ok := inv.Result.(FollowUpSignaler)
		if !ok {
			continue
		}
		category, slots, wants := signaler.FollowUp()
		if !wants {
			continue
		}
		binding, ok := intentBindings[category]
		if !ok || invoked[binding.tool] {
			continue
		}
		followUps = append(followUps, Intent{
			Category: category,
			Priority: categoryPriority(category),
			Slots:    slots,
		})
	}
	return followUps
}

// injectCSV hands request-supplied CSV data to the visualization intent.
func injectCSV(intents []Intent, csvData string) {
	if csvData == "" {
		return
	}
	for i := range intents {
		if intents[i].Category != CategoryVisualization {
			continue
		}
		if intents[i].Slots == nil {
			intents[i].Slots = make(map[string]string)
		}
		intents[i].Slots["csv"] = csvData
	}
}

func categoryPriority(c Category) int {
	for _, rule := range intentTable {
		if rule.category == c {
			return rule.priority
		}
	}
	return priorityGeneralChat
}

func sortByPriority(invocations []ToolInvocation) []ToolInvocation {
	sort.SliceStable(invocations, func(i, j int) bool {
		return categoryPriority(invocations[i].Intent) < categoryPriority(invocations[j].Intent)
	})
	return invocations
}
