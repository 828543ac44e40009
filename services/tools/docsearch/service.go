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
// Document ingestion and semantic retrieval on Weaviate. Documents are
// split with language-aware separators, embedded in one batch call, and
// written with content-derived deterministic UUIDs so re-ingesting the
// same file upserts instead of duplicating.
//
// Retrieval embeds the query and runs a nearVector search, keeping hits
// above the certainty threshold. Certainty is used instead of distance
// because it is always in [0,1] regardless of the distance metric.

package docsearch

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var docTracer = otel.Tracer("agentx.tools.docsearch")

const documentClass = "Document"

var (
	chunkSize         = 1000
	chunkOverlap      = chunkSize / 10
	defaultSeparators = []string{"\n\n", "\n", " ", ""}
	pythonSeparators  = []string{"\nclass ", "\ndef ", "\n\t", "\n", " "}
	cStyleSeparators  = []string{
		"\nfunction ", "\nclass ", "\ninterface ",
		"\npublic ", "\nprivate ", "\nprotected ",
		"\nfunc", "\ntype",
		"\n\n", "\n", " ", "",
	}
	markdownSeparators = []string{
		"\n# ", "\n## ", "\n### ", "\n#### ", "\n##### ", "\n###### ",
		"\n\n", "\n", " ", "",
	}
)

// IngestRequest describes one document to ingest.
type IngestRequest struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// Hit is one retrieved chunk.
type Hit struct {
	Content      string  `json:"content"`
	Source       string  `json:"source"`
	ParentSource string  `json:"parent_source"`
	Certainty    float64 `json:"certainty"`
}

// Service owns the Weaviate document collection.
type Service struct {
	client *weaviate.Client
	embed  *EmbeddingClient
	// minCertainty drops weak matches; hits below it never reach the
	// composer.
	minCertainty float64
}

func NewService(client *weaviate.Client, embed *EmbeddingClient, minCertainty float64) *Service {
	if minCertainty <= 0 {
		minCertainty = 0.6
	}
	return &Service{client: client, embed: embed, minCertainty: minCertainty}
}

// EnsureSchema creates the Document class when missing. Vectors come from
// the external embedding service, so the class uses no vectorizer.
func (s *Service) EnsureSchema(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(documentClass).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check Document schema: %w", err)
	}
	if exists {
		return nil
	}
	class := &models.Class{
		Class:      documentClass,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "content", DataType: []string{"text"}},
			{Name: "source", DataType: []string{"text"}},
			{Name: "parent_source", DataType: []string{"text"}},
			{Name: "ingested_at", DataType: []string{"int"}},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create Document schema: %w", err)
	}
	slog.Info("Created Weaviate Document schema")
	return nil
}

// Ingest splits, embeds, and stores one document. Returns the number of
// chunks written.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (int, error) {
	ctx, span := docTracer.Start(ctx, "docsearch.Ingest")
	defer span.End()
	span.SetAttributes(attribute.String("docsearch.source", req.Source))

	chunks, err := splitterForFile(req.Source).SplitText(req.Content)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to split content: %w", err)
	}
	if len(chunks) == 0 {
		slog.Warn("No chunks produced after splitting", "source", req.Source)
		return 0, nil
	}
	slog.Info("Split document into chunks", "source", req.Source, "chunk_count", len(chunks))

	vectors, err := s.embed.EmbedBatch(ctx, chunks)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}

	objects := make([]*models.Object, len(chunks))
	now := time.Now().UnixMilli()
	for i, chunk := range chunks {
		// Content-derived UUID so re-ingestion upserts.
		hash := sha256.Sum256([]byte(chunk))
		docUUID, _ := uuid.FromBytes(hash[:16])
		objects[i] = &models.Object{
			Class:  documentClass,
			ID:     strfmt.UUID(docUUID.String()),
			Vector: vectors[i],
			Properties: map[string]interface{}{
				"content":       chunk,
				"source":        fmt.Sprintf("%s_part_%d", req.Source, i+1),
				"parent_source": req.Source,
				"ingested_at":   now,
			},
		}
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to save objects to Weaviate: %w", err)
	}

	chunksCreated := 0
	for _, item := range resp {
		if item.Result != nil && item.Result.Status != nil && *item.Result.Status == "SUCCESS" {
			chunksCreated++
			continue
		}
		if item.Result != nil && item.Result.Errors != nil {
			for _, errItem := range item.Result.Errors.Error {
				slog.Warn("Error in Weaviate batch item", "source", req.Source, "error", errItem.Message)
			}
		}
	}
	span.SetAttributes(attribute.Int("docsearch.chunks_created", chunksCreated))
	slog.Info("Processed document", "source", req.Source, "chunks_processed", chunksCreated)
	return chunksCreated, nil
}

type documentQueryResponse struct {
	Get struct {
		Document []struct {
			Content      string `json:"content"`
			Source       string `json:"source"`
			ParentSource string `json:"parent_source"`
			Additional   struct {
				Certainty float64 `json:"certainty"`
			} `json:"_additional"`
		} `json:"Document"`
	} `json:"Get"`
}

// Search embeds the query and returns hits above the certainty threshold,
// best first.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	ctx, span := docTracer.Start(ctx, "docsearch.Search")
	defer span.End()
	span.SetAttributes(attribute.String("docsearch.query", query))

	if limit <= 0 {
		limit = 5
	}
	vector, err := s.embed.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "source"},
		{Name: "parent_source"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(documentClass).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}

	parsed, err := parseGraphQLResponse[documentQueryResponse](result)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for _, doc := range parsed.Get.Document {
		if doc.Additional.Certainty < s.minCertainty {
			continue
		}
		hits = append(hits, Hit{
			Content:      doc.Content,
			Source:       doc.Source,
			ParentSource: doc.ParentSource,
			Certainty:    doc.Additional.Certainty,
		})
	}
	span.SetAttributes(attribute.Int("docsearch.hits", len(hits)))
	return hits, nil
}

// ListDocuments returns the distinct parent sources of ingested documents.
func (s *Service) ListDocuments(ctx context.Context) ([]string, error) {
	agg, err := s.client.GraphQL().Aggregate().
		WithClassName(documentClass).
		WithGroupBy("parent_source").
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate documents: %w", err)
	}

	var docList []string
	aggMap, _ := agg.Data["Aggregate"].(map[string]interface{})
	groups, _ := aggMap[documentClass].([]interface{})
	for _, groupItem := range groups {
		groupMap, ok := groupItem.(map[string]interface{})
		if !ok {
			continue
		}
		groupedBy, ok := groupMap["groupedBy"].(map[string]interface{})
		if !ok {
			continue
		}
		if name, ok := groupedBy["value"].(string); ok {
			docList = append(docList, name)
		}
	}
	return docList, nil
}

// DeleteDocument removes every chunk of one parent source.
func (s *Service) DeleteDocument(ctx context.Context, parentSource string) error {
	where := filters.Where().
		WithPath([]string{"parent_source"}).
		WithOperator(filters.Equal).
		WithValueString(parentSource)

	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(documentClass).
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", parentSource, err)
	}
	slog.Info("Deleted document", "parent_source", parentSource)
	return nil
}

// parseGraphQLResponse converts Weaviate's untyped GraphQL payload into a
// typed struct by round-tripping through JSON.
func parseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("graphql query returned errors: %v", msgs)
	}
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to re-marshal graphql data: %w", err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse graphql data: %w", err)
	}
	return &out, nil
}

func splitterForFile(filename string) textsplitter.TextSplitter {
	var separators []string
	switch filepath.Ext(filename) {
	case ".md":
		separators = markdownSeparators
	case ".py":
		separators = pythonSeparators
	case ".js", ".ts", ".java", ".c", ".cpp", ".h", ".hpp", ".rs", ".go":
		separators = cStyleSeparators
	default:
		separators = defaultSeparators
	}
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(separators),
	)
}
