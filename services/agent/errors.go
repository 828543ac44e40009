// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"context"
	"errors"
)

// Sentinel errors tools return to classify failures. The dispatcher maps
// them onto machine-readable invocation reasons; anything else becomes
// ReasonExecError.
var (
	ErrToolUnavailable   = errors.New("tool backend unavailable")
	ErrToolInvalidParams = errors.New("invalid tool parameters")
	ErrToolNotFound      = errors.New("tool not registered")
)

// Machine-readable reasons recorded on failed or skipped invocations.
const (
	ReasonTimeout       = "timeout"
	ReasonCancelled     = "cancelled"
	ReasonNotFound      = "not-found"
	ReasonUnavailable   = "unavailable"
	ReasonInvalidParams = "invalid-parameters"
	ReasonExecError     = "execution-error"
)

// classifyToolError maps a tool error onto an invocation status and reason.
func classifyToolError(err error) (InvocationStatus, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return StatusFailed, ReasonTimeout
	case errors.Is(err, context.Canceled):
		return StatusFailed, ReasonCancelled
	case errors.Is(err, ErrToolUnavailable):
		return StatusFailed, ReasonUnavailable
	case errors.Is(err, ErrToolInvalidParams):
		return StatusFailed, ReasonInvalidParams
	default:
		return StatusFailed, ReasonExecError
	}
}
