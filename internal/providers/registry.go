package providers

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds named model and embedding clients. It is safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	models    map[string]ModelClient
	embedders map[string]EmbeddingClient
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		models:    make(map[string]ModelClient),
		embedders: make(map[string]EmbeddingClient),
	}
}

// RegisterModel adds a model client under its name, replacing any previous
// registration.
func (r *Registry) RegisterModel(c ModelClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[c.Name()] = c
}

// Model returns the named model client.
func (r *Registry) Model(name string) (ModelClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("model provider %q not registered (have %v)", name, r.modelNamesLocked())
	}
	return c, nil
}

// Models returns registered model client names, sorted.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modelNamesLocked()
}

func (r *Registry) modelNamesLocked() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterEmbedder adds an embedding client under its name.
func (r *Registry) RegisterEmbedder(c EmbeddingClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedders[c.Name()] = c
}

// Embedder returns the named embedding client.
func (r *Registry) Embedder(name string) (EmbeddingClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.embedders[name]
	if !ok {
		return nil, fmt.Errorf("embedding provider %q not registered", name)
	}
	return c, nil
}
