package adapters

import "github.com/ppiankov/yojana/internal/extract"

// GenericAdapter is the fallback adapter for unknown sites
type GenericAdapter struct{}

// NewGenericAdapter creates a new generic adapter
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

// Name returns the adapter name
func (a *GenericAdapter) Name() string {
	return "generic"
}

// CanHandle always returns true (fallback adapter)
func (a *GenericAdapter) CanHandle(rawURL string) bool {
	return true
}

// Strategies returns nothing; the extractor's defaults apply
func (a *GenericAdapter) Strategies() []extract.Strategy {
	return nil
}
