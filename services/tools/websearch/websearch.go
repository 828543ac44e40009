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
// Web search through a Perplexity-style, OpenAI-compatible
// chat-completions endpoint. The backend answers in prose with numeric
// citation markers like [1]; this package extracts the markers and pairs
// them with the returned citation URLs.
//
// Queries are rate limited and answers are cached in the memory store so
// repeated questions within the TTL never hit the paid API twice.

package websearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/agentx/services/agent"
	"github.com/AleutianAI/agentx/services/memory"
)

var searchTracer = otel.Tracer("agentx.tools.websearch")

// citationMarkerRe matches inline citation markers like [1] or [12].
var citationMarkerRe = regexp.MustCompile(`\[(\d+)\]`)

const (
	defaultModel    = "sonar"
	defaultCacheTTL = 15 * time.Minute

	searchSystemPrompt = "You are a web search assistant. Answer concisely with " +
		"up-to-date information and cite sources with [n] markers."
)

// Config describes the search backend.
type Config struct {
	// BaseURL is the OpenAI-compatible endpoint, e.g. https://api.perplexity.ai.
	BaseURL string
	// APIKey authenticates against the endpoint.
	APIKey string
	// Model is the search model name. Defaults to "sonar".
	Model string
	// RequestsPerMinute throttles outbound queries. Defaults to 20.
	RequestsPerMinute int
	// CacheTTL bounds how long answers are reused. Defaults to 15 minutes.
	CacheTTL time.Duration
}

// Citation pairs a marker number with its source URL.
type Citation struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
}

// Result is the web_search payload handed to the answer composer.
type Result struct {
	Query     string     `json:"query"`
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations,omitempty"`
	Cached    bool       `json:"cached,omitempty"`
}

func (r Result) Summary() string {
	if len(r.Citations) == 0 {
		return r.Answer
	}
	urls := make([]string, 0, len(r.Citations))
	for _, c := range r.Citations {
		urls = append(urls, fmt.Sprintf("[%d] %s", c.Index, c.URL))
	}
	return r.Answer + "\nSources: " + strings.Join(urls, " ")
}

// Tool implements the web_search capability.
type Tool struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	cache   memory.Store
	ttl     time.Duration
}

var _ agent.Tool = (*Tool)(nil)

// NewTool builds the search tool. The cache store may be nil, which
// disables caching.
func NewTool(cfg Config, cache memory.Store) (*Tool, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("web search needs both a base URL and an API key")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 20
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	slog.Info("Initializing web search client", "base_url", clientCfg.BaseURL, "model", model, "rpm", rpm)
	return &Tool{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		cache:   cache,
		ttl:     ttl,
	}, nil
}

func (*Tool) ID() agent.ToolID { return agent.ToolWebSearch }

func (t *Tool) Invoke(ctx context.Context, params map[string]string) (any, error) {
	ctx, span := searchTracer.Start(ctx, "websearch.Invoke")
	defer span.End()

	query := strings.TrimSpace(params["query"])
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", agent.ErrToolInvalidParams)
	}
	span.SetAttributes(attribute.String("websearch.query", query))

	if cached, ok := t.fromCache(ctx, query); ok {
		span.SetAttributes(attribute.Bool("websearch.cache_hit", true))
		return cached, nil
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait aborted: %v", agent.ErrToolUnavailable, err)
	}

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: searchSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: search backend: %v", agent.ErrToolUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: search backend returned no choices", agent.ErrToolUnavailable)
	}

	answer := resp.Choices[0].Message.Content
	result := Result{
		Query:     query,
		Answer:    answer,
		Citations: ExtractCitations(answer),
	}
	t.toCache(ctx, query, result)
	return result, nil
}

// urlRe matches source URLs the backend lists after the answer body.
var urlRe = regexp.MustCompile(`https?://[^\s)\]]+`)

// ExtractCitations pairs the [n] markers found in the answer with the
// URLs listed in its sources block, in order of first appearance. Markers
// without a matching URL keep an empty URL so the numbering stays intact.
func ExtractCitations(answer string) []Citation {
	urls := urlRe.FindAllString(answer, -1)
	seen := make(map[int]bool)
	var citations []Citation
	for _, match := range citationMarkerRe.FindAllStringSubmatch(answer, -1) {
		var idx int
		if _, err := fmt.Sscanf(match[1], "%d", &idx); err != nil || idx <= 0 {
			continue
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		citation := Citation{Index: idx}
		if idx <= len(urls) {
			citation.URL = urls[idx-1]
		}
		citations = append(citations, citation)
	}
	return citations
}

func cacheKey(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(query)))
	return "websearch:" + hex.EncodeToString(sum[:16])
}

func (t *Tool) fromCache(ctx context.Context, query string) (Result, bool) {
	if t.cache == nil {
		return Result{}, false
	}
	raw, ok, err := t.cache.CacheGet(ctx, cacheKey(query))
	if err != nil || !ok {
		return Result{}, false
	}
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return Result{}, false
	}
	result.Cached = true
	return result, true
}

func (t *Tool) toCache(ctx context.Context, query string, result Result) {
	if t.cache == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := t.cache.CacheSet(ctx, cacheKey(query), string(raw), t.ttl); err != nil {
		slog.Warn("Failed to cache search result", "error", err)
	}
}
