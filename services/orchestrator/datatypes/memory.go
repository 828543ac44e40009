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

// SetPreferenceRequest is the body for PUT /v1/memory/preferences.
type SetPreferenceRequest struct {
	Key   string `json:"key" validate:"required,max=128"`
	Value string `json:"value" validate:"required,max=2048"`
}

// Validate validates the SetPreferenceRequest fields.
func (r *SetPreferenceRequest) Validate() error {
	return chatValidate.Struct(r)
}

// VisualizeRequest is the body for POST /v1/visualize, the direct
// (non-conversational) charting endpoint.
type VisualizeRequest struct {
	Chart string `json:"chart,omitempty" validate:"omitempty,oneof=bar line pie scatter histogram"`
	Topic string `json:"topic,omitempty" validate:"max=256"`
	CSV   string `json:"csv,omitempty" validate:"maxcsvbytes"`
}

// Validate validates the VisualizeRequest fields.
func (r *VisualizeRequest) Validate() error {
	return chatValidate.Struct(r)
}
