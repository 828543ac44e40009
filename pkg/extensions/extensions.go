// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extensions defines the dependency-injection seams of the agent
// service. The open-source build runs on the no-op defaults; hosted
// deployments supply real implementations at construction time without
// touching the orchestrator itself.
package extensions

// ServiceOptions bundles the injectable extension points.
type ServiceOptions struct {
	// AuthProvider validates request tokens. Defaults to NopAuthProvider.
	AuthProvider AuthProvider
}

// DefaultOptions returns options wired with the no-op implementations.
func DefaultOptions() ServiceOptions {
	return ServiceOptions{
		AuthProvider: &NopAuthProvider{},
	}
}
