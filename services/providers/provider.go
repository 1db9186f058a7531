package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Provider is a source of lyrics. Implementations register themselves
// at init time and are looked up by name from the request path.
type Provider interface {
	// Name returns the provider's identifier (e.g., "lrclib", "kugou")
	Name() string

	// FetchLyrics fetches lyrics for the given track. album may be empty
	// and durationMs of 0 disables duration matching. The context carries
	// the caller's cancellation through any upstream requests.
	FetchLyrics(ctx context.Context, song, artist, album string, durationMs int) (*LyricsResult, error)

	// CacheKeyPrefix returns the prefix used for this provider's cache
	// keys (e.g., "lrclib_lyrics")
	CacheKeyPrefix() string
}

// Registry is a named set of providers, safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider, replacing any existing provider with the
// same name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	return p, nil
}

// List returns all registered provider names, sorted for stable output.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a provider is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// defaultRegistry is what provider init() functions register into.
var defaultRegistry = NewRegistry()

// Register adds a provider to the default registry.
func Register(p Provider) {
	defaultRegistry.Register(p)
}

// Get retrieves a provider from the default registry.
func Get(name string) (Provider, error) {
	return defaultRegistry.Get(name)
}

// List returns the names in the default registry.
func List() []string {
	return defaultRegistry.List()
}

// Has reports whether the default registry has a provider named name.
func Has(name string) bool {
	return defaultRegistry.Has(name)
}
