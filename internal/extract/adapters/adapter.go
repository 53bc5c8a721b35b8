package adapters

import (
	"net/url"
	"strings"

	"github.com/ppiankov/yojana/internal/extract"
)

// Adapter supplies site-specific extraction strategies
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle checks if this adapter knows the layout behind the URL
	CanHandle(rawURL string) bool

	// Strategies returns strategies tried before the extractor's defaults
	Strategies() []extract.Strategy
}

// Registry manages source adapters
type Registry struct {
	adapters []Adapter
	generic  Adapter
}

// NewRegistry creates a registry with the built-in adapters
func NewRegistry() *Registry {
	registry := &Registry{
		adapters: make([]Adapter, 0),
	}

	registry.Register(NewMySchemeAdapter())
	registry.Register(NewStatePortalAdapter())

	// Fallback adds nothing to the default strategies
	registry.generic = NewGenericAdapter()

	return registry
}

// Register registers a new adapter
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// FindAdapter returns the first adapter that can handle the URL
func (r *Registry) FindAdapter(rawURL string) Adapter {
	if rawURL != "" {
		for _, adapter := range r.adapters {
			if adapter.CanHandle(rawURL) {
				return adapter
			}
		}
	}
	return r.generic
}

// hostOf returns the lowercase host of rawURL, or "" when unparseable
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
