// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Document ingestion and retrieval endpoints. These require Weaviate;
// when it is not configured the routes answer 503 so the rest of the
// service keeps working in lightweight mode.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/agentx/services/orchestrator/datatypes"
	"github.com/AleutianAI/agentx/services/tools/docsearch"
)

// HandleIngestDocument splits, embeds, and stores one document.
func HandleIngestDocument(svc *docsearch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Document store not configured"})
			return
		}
		var request datatypes.IngestDocumentRequest
		if err := c.BindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := request.Validate(); err != nil {
			if errors.Is(err, datatypes.ErrDocumentTooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		chunks, err := svc.Ingest(c.Request.Context(), docsearch.IngestRequest{
			Content: request.Content,
			Source:  request.Source,
		})
		if err != nil {
			slog.Error("Failed to ingest document", "source", request.Source, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest document"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"source": request.Source, "chunks": chunks})
	}
}

// HandleSearchDocuments runs a semantic search over ingested documents.
func HandleSearchDocuments(svc *docsearch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Document store not configured"})
			return
		}
		var request datatypes.SearchDocumentsRequest
		if err := c.BindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := request.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		hits, err := svc.Search(c.Request.Context(), request.Query, request.Limit)
		if err != nil {
			slog.Error("Document search failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"query": request.Query, "hits": hits})
	}
}

// HandleListDocuments lists the distinct ingested sources.
func HandleListDocuments(svc *docsearch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Document store not configured"})
			return
		}
		docs, err := svc.ListDocuments(c.Request.Context())
		if err != nil {
			slog.Error("Failed to list documents", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list documents"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
	}
}

// HandleDeleteDocument removes every chunk of one source.
func HandleDeleteDocument(svc *docsearch.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Document store not configured"})
			return
		}
		source := c.Param("source")
		if err := svc.DeleteDocument(c.Request.Context(), source); err != nil {
			slog.Error("Failed to delete document", "source", source, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete document"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": source})
	}
}
