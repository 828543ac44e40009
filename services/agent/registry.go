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

import "sync"

// Registry holds the capability modules available to the dispatcher.
// Registration normally happens once at startup; the lock exists so tests
// can swap tools without races.
type Registry struct {
	mu    sync.RWMutex
	tools map[ToolID]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[ToolID]Tool)}
}

// Register adds a tool under its own ID, replacing any previous entry.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.ID()] = t
}

// Lookup returns the tool for the given ID, if registered.
func (r *Registry) Lookup(id ToolID) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[id]
	return t, ok
}

// IDs returns the registered tool IDs in unspecified order.
func (r *Registry) IDs() []ToolID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ToolID, 0, len(r.tools))
	for id := range r.tools {
		ids = append(ids, id)
	}
	return ids
}
