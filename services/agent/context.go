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

import "context"

type sessionContextKey struct{}

type sessionInfo struct {
	sessionID string
	userID    string
}

// WithSession attaches the session and user identity to the context so
// tools can scope their storage without polluting intent slots. RunTurn
// calls this before dispatch.
func WithSession(ctx context.Context, sessionID, userID string) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sessionInfo{sessionID: sessionID, userID: userID})
}

// SessionFromContext returns the session and user IDs set by WithSession,
// or empty strings when absent.
func SessionFromContext(ctx context.Context) (sessionID, userID string) {
	info, ok := ctx.Value(sessionContextKey{}).(sessionInfo)
	if !ok {
		return "", ""
	}
	return info.sessionID, info.userID
}
