// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "errors"

// MaxDocumentBytes caps a single ingested document.
const MaxDocumentBytes = 4 * 1024 * 1024 // 4MB

// ErrDocumentTooLarge is returned when ingested content exceeds
// MaxDocumentBytes.
var ErrDocumentTooLarge = errors.New("document content exceeds size limit")

// IngestDocumentRequest is the body for POST /v1/documents.
type IngestDocumentRequest struct {
	// Source names the document, e.g. "q3_report.pdf". The extension
	// selects the chunking separators.
	Source  string `json:"source" validate:"required,max=512"`
	Content string `json:"content" validate:"required"`
}

// Validate checks field constraints plus the document size cap.
func (r *IngestDocumentRequest) Validate() error {
	if err := chatValidate.Struct(r); err != nil {
		return err
	}
	if len(r.Content) > MaxDocumentBytes {
		return ErrDocumentTooLarge
	}
	return nil
}

// SearchDocumentsRequest is the body for POST /v1/documents/search.
type SearchDocumentsRequest struct {
	Query string `json:"query" validate:"required,maxbytes"`
	Limit int    `json:"limit,omitempty" validate:"gte=0,lte=50"`
}

// Validate validates the SearchDocumentsRequest fields.
func (r *SearchDocumentsRequest) Validate() error {
	return chatValidate.Struct(r)
}
