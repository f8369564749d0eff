package source

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Kind classifies an input link so the executor can pick an extractor.
type Kind string

const (
	KindWeb    Kind = "web"
	KindRepo   Kind = "repo"
	KindVideo  Kind = "video"
	KindSocial Kind = "social"
)

// MediaRef points at a candidate media attachment discovered during
// extraction.
type MediaRef struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// Extraction is the content pulled out of one link.
type Extraction struct {
	// SourceID is the canonical identifier for the link, used by the dedup
	// store. Normalized by gate before dedup lookups.
	SourceID string     `json:"source_id"`
	Text     string     `json:"text"`
	Media    []MediaRef `json:"media,omitempty"`
}

// Extractor pulls content out of a single link. Implementations must respect
// ctx cancellation; the executor bounds every call with a timeout.
type Extractor interface {
	Extract(ctx context.Context, link string) (Extraction, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, link string) (Extraction, error)

// Extract implements Extractor.
func (f ExtractorFunc) Extract(ctx context.Context, link string) (Extraction, error) {
	return f(ctx, link)
}

// Registry maps source kinds to extractor adapters. Unknown kinds fall back
// to the web extractor so routing never dead-ends.
type Registry struct {
	mu         sync.RWMutex
	extractors map[Kind]Extractor
	fallback   Extractor
}

// NewRegistry returns a registry with the given fallback adapter.
func NewRegistry(fallback Extractor) *Registry {
	return &Registry{
		extractors: map[Kind]Extractor{},
		fallback:   fallback,
	}
}

// Register installs an extractor for a kind. Returns an error if the kind is
// already registered.
func (r *Registry) Register(kind Kind, extractor Extractor) error {
	if kind == "" {
		return fmt.Errorf("source: kind is required")
	}
	if extractor == nil {
		return fmt.Errorf("source: extractor is required for %s", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.extractors[kind]; exists {
		return fmt.Errorf("source: %s already registered", kind)
	}
	r.extractors[kind] = extractor
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(kind Kind, extractor Extractor) {
	if err := r.Register(kind, extractor); err != nil {
		panic(err)
	}
}

// Resolve returns the extractor for a kind, falling back when unknown.
func (r *Registry) Resolve(kind Kind) Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if extractor, ok := r.extractors[kind]; ok {
		return extractor
	}
	return r.fallback
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, 0, len(r.extractors))
	for kind := range r.extractors {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
