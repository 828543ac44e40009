// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the agent service.
//
// # Description
//
// Metrics cover the turn loop (counts, duration, live turns), individual
// tool invocations by outcome, and answer-composition fallbacks. They are
// exposed on the /metrics endpoint for Prometheus scraping.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "agentx"

// Subsystem for agent turn metrics
const agentSubsystem = "agent"

// AgentMetrics holds all Prometheus metrics for the turn loop.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring turn
// processing and tool usage. Initialize once at startup via InitMetrics().
//
// # Fields
//
//   - TurnsTotal: Counter of completed turns by status
//   - TurnDurationSeconds: Histogram of end-to-end turn latency
//   - TurnCycles: Histogram of think/act cycles consumed per turn
//   - ActiveTurns: Gauge of turns currently in flight
//   - ToolInvocationsTotal: Counter of tool invocations by tool and status
//   - ToolDurationSeconds: Histogram of per-tool latency
//   - AnswerFallbacksTotal: Counter of composer fallbacks by kind
//
// # Thread Safety
//
// All operations are thread-safe.
type AgentMetrics struct {
	// TurnsTotal counts completed turns.
	// Labels: status (success, error)
	TurnsTotal *prometheus.CounterVec

	// TurnDurationSeconds measures end-to-end turn latency.
	// Labels: status (success, error)
	TurnDurationSeconds *prometheus.HistogramVec

	// TurnCycles measures how many think/act passes a turn consumed.
	TurnCycles prometheus.Histogram

	// ActiveTurns tracks turns currently being processed.
	ActiveTurns prometheus.Gauge

	// ToolInvocationsTotal counts tool invocations by outcome.
	// Labels: tool (task_manager, web_search, ...), status (ok, failed, skipped)
	ToolInvocationsTotal *prometheus.CounterVec

	// ToolDurationSeconds measures individual tool latency.
	// Labels: tool
	ToolDurationSeconds *prometheus.HistogramVec

	// AnswerFallbacksTotal counts composer fallbacks.
	// Labels: kind (template, no_data)
	AnswerFallbacksTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of AgentMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *AgentMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup.
//
// # Outputs
//
//   - *AgentMetrics: The initialized metrics instance.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *AgentMetrics {
	DefaultMetrics = &AgentMetrics{
		TurnsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "turns_total",
				Help:      "Total number of processed turns by status",
			},
			[]string{"status"},
		),

		TurnDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "turn_duration_seconds",
				Help:      "End-to-end turn processing latency in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"status"},
		),

		TurnCycles: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "turn_cycles",
				Help:      "Think/act cycles consumed per turn",
				Buckets:   []float64{1, 2, 3, 4},
			},
		),

		ActiveTurns: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "active_turns",
				Help:      "Number of turns currently being processed",
			},
		),

		ToolInvocationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "tool_invocations_total",
				Help:      "Total tool invocations by tool and status",
			},
			[]string{"tool", "status"},
		),

		ToolDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "tool_duration_seconds",
				Help:      "Individual tool invocation latency in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 15.0, 30.0},
			},
			[]string{"tool"},
		),

		AnswerFallbacksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "answer_fallbacks_total",
				Help:      "Composer fallbacks by kind",
			},
			[]string{"kind"},
		),
	}
	return DefaultMetrics
}

// =============================================================================
// Recording Helpers
// =============================================================================

// RecordTurn records one completed turn. Safe to call before InitMetrics
// (no-op when metrics are disabled).
func RecordTurn(status string, duration time.Duration, cycles int) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.TurnsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.TurnDurationSeconds.WithLabelValues(status).Observe(duration.Seconds())
	DefaultMetrics.TurnCycles.Observe(float64(cycles))
}

// RecordToolInvocation records one tool invocation outcome.
func RecordToolInvocation(tool, status string, duration time.Duration) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.ToolInvocationsTotal.WithLabelValues(tool, status).Inc()
	DefaultMetrics.ToolDurationSeconds.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordAnswerFallback records one composer fallback.
func RecordAnswerFallback(kind string) {
	if DefaultMetrics == nil {
		return
	}
	DefaultMetrics.AnswerFallbacksTotal.WithLabelValues(kind).Inc()
}

// TurnStarted increments the in-flight gauge and returns a done func.
func TurnStarted() func() {
	if DefaultMetrics == nil {
		return func() {}
	}
	DefaultMetrics.ActiveTurns.Inc()
	return func() { DefaultMetrics.ActiveTurns.Dec() }
}
