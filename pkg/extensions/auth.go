// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"errors"
)

// ErrUnauthorized is returned when authentication fails. Custom providers
// should wrap this error with additional context:
//
//	if !validToken {
//	    return nil, fmt.Errorf("invalid token format: %w", extensions.ErrUnauthorized)
//	}
var ErrUnauthorized = errors.New("unauthorized")

// AuthInfo contains identity information returned after successful
// authentication. UserID is the only required field; it keys task
// ownership, preferences, and the action log.
type AuthInfo struct {
	// UserID is the unique identifier for the authenticated user.
	// Must never be empty.
	UserID string

	// Email is the user's email address. May be empty.
	Email string

	// Roles contains the user's role memberships.
	// Common roles: "admin", "user"
	Roles []string

	// Metadata holds additional claims from the identity provider.
	Metadata map[string]string
}

// HasRole checks if the user has a specific role.
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates authentication tokens and returns user identity.
//
// Implementations must be safe for concurrent use. The default
// NopAuthProvider always returns a valid "local-user" with admin
// privileges, so a single-user deployment needs no authentication
// infrastructure. Hosted deployments implement this interface against
// their identity provider and hand it to the orchestrator at startup.
type AuthProvider interface {
	// Validate checks the token and returns the user's identity.
	// Returns ErrUnauthorized (or a wrap of it) when the token is invalid.
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider is the default provider for local deployments. Any
// token, including the empty string, authenticates as local-user.
type NopAuthProvider struct{}

func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID: "local-user",
		Roles:  []string{"admin"},
	}, nil
}

var _ AuthProvider = (*NopAuthProvider)(nil)
