package scraper

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/propstream/propstream/internal/interfaces"
	"github.com/propstream/propstream/internal/models"
)

// Registry maps (kind, name) pairs to source adapters. Resolution prefers an
// exact (kind, name) registration and falls back to the kind-level default,
// so a new source family plugs in without touching the dispatcher.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]interfaces.SourceAdapter
	byKind map[string]interfaces.SourceAdapter
	logger arbor.ILogger
}

// NewRegistry creates an empty adapter registry
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		byName: make(map[string]interfaces.SourceAdapter),
		byKind: make(map[string]interfaces.SourceAdapter),
		logger: logger,
	}
}

// Register binds an adapter to an exact (kind, name) pair.
func (r *Registry) Register(kind, name string, adapter interfaces.SourceAdapter) {
	if adapter == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[pairKey(kind, name)] = adapter

	r.logger.Info().
		Str("kind", kind).
		Str("name", name).
		Msg("Source adapter registered")
}

// RegisterKind binds an adapter as the default for a whole source family.
func (r *Registry) RegisterKind(kind string, adapter interfaces.SourceAdapter) {
	if adapter == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKind[strings.ToLower(kind)] = adapter

	r.logger.Info().
		Str("kind", kind).
		Msg("Source family adapter registered")
}

// Resolve returns the adapter for a source, or an error when neither a
// (kind, name) nor a kind-level registration exists.
func (r *Registry) Resolve(source *models.Source) (interfaces.SourceAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if adapter, ok := r.byName[pairKey(source.Kind, source.Name)]; ok {
		return adapter, nil
	}
	if adapter, ok := r.byKind[strings.ToLower(source.Kind)]; ok {
		return adapter, nil
	}
	return nil, fmt.Errorf("no adapter registered for source %q (kind %q)", source.Name, source.Kind)
}

func pairKey(kind, name string) string {
	return strings.ToLower(kind) + "|" + strings.ToLower(name)
}
