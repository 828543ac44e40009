// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package docsearch

import (
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/agentx/services/agent"
)

// Searcher is the retrieval surface the tool needs; *Service satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
}

// Tool implements the document_search capability.
type Tool struct {
	searcher Searcher
	limit    int
}

var _ agent.Tool = (*Tool)(nil)

func NewTool(searcher Searcher) *Tool {
	return &Tool{searcher: searcher, limit: 5}
}

func (*Tool) ID() agent.ToolID { return agent.ToolDocumentSearch }

// SearchResult is the document_search payload. An empty hit list asks the
// orchestrator to escalate the same query to web search.
type SearchResult struct {
	Query string `json:"query"`
	Hits  []Hit  `json:"hits"`
}

func (r SearchResult) Summary() string {
	if len(r.Hits) == 0 {
		return fmt.Sprintf("No documents matched %q.", r.Query)
	}
	parts := make([]string, 0, len(r.Hits))
	for _, hit := range r.Hits {
		content := hit.Content
		if runes := []rune(content); len(runes) > 200 {
			content = string(runes[:200]) + "..."
		}
		parts = append(parts, fmt.Sprintf("%s: %s", hit.ParentSource, content))
	}
	return fmt.Sprintf("Found %d relevant passages. %s", len(r.Hits), strings.Join(parts, " | "))
}

// FollowUp escalates to web search when nothing in the document store
// cleared the certainty threshold.
func (r SearchResult) FollowUp() (agent.Category, map[string]string, bool) {
	if len(r.Hits) > 0 {
		return "", nil, false
	}
	return agent.CategoryWebSearch, map[string]string{"query": r.Query}, true
}

func (t *Tool) Invoke(ctx context.Context, params map[string]string) (any, error) {
	query := strings.TrimSpace(params["query"])
	if query == "" {
		return nil, fmt.Errorf("%w: empty document query", agent.ErrToolInvalidParams)
	}
	hits, err := t.searcher.Search(ctx, query, t.limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", agent.ErrToolUnavailable, err)
	}
	return SearchResult{Query: query, Hits: hits}, nil
}
