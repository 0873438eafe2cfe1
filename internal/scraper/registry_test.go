package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/propstream/propstream/internal/interfaces"
	"github.com/propstream/propstream/internal/models"
)

type stubAdapter struct {
	kind       string
	candidates []models.ListingCandidate
	found      int
	err        error
	calls      int
	block      bool
}

func (a *stubAdapter) Kind() string { return a.kind }

func (a *stubAdapter) Fetch(ctx context.Context, source *models.Source, runID string, rec interfaces.RunRecorder) ([]models.ListingCandidate, error) {
	a.calls++
	if a.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if a.found > 0 {
		if err := rec.RecordProgress(ctx, runID, a.found); err != nil {
			return nil, err
		}
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.candidates, nil
}

func TestRegistryResolve_ExactMatchWins(t *testing.T) {
	registry := NewRegistry(arbor.NewLogger())
	kindDefault := &stubAdapter{kind: models.SourceKindWebsite}
	named := &stubAdapter{kind: models.SourceKindWebsite}

	registry.RegisterKind(models.SourceKindWebsite, kindDefault)
	registry.Register(models.SourceKindWebsite, "acme-realty", named)

	got, err := registry.Resolve(&models.Source{Kind: models.SourceKindWebsite, Name: "acme-realty"})
	require.NoError(t, err)
	assert.Same(t, named, got)
}

func TestRegistryResolve_KindFallback(t *testing.T) {
	registry := NewRegistry(arbor.NewLogger())
	kindDefault := &stubAdapter{kind: models.SourceKindWebsite}
	registry.RegisterKind(models.SourceKindWebsite, kindDefault)

	got, err := registry.Resolve(&models.Source{Kind: models.SourceKindWebsite, Name: "unknown-site"})
	require.NoError(t, err)
	assert.Same(t, kindDefault, got)
}

func TestRegistryResolve_CaseInsensitive(t *testing.T) {
	registry := NewRegistry(arbor.NewLogger())
	named := &stubAdapter{kind: models.SourceKindSocial}
	registry.Register("Social", "Marketplace", named)

	got, err := registry.Resolve(&models.Source{Kind: "social", Name: "marketplace"})
	require.NoError(t, err)
	assert.Same(t, named, got)
}

func TestRegistryResolve_Unregistered(t *testing.T) {
	registry := NewRegistry(arbor.NewLogger())

	_, err := registry.Resolve(&models.Source{Kind: models.SourceKindSocial, Name: "marketplace"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no adapter registered")
}

func TestRegistryRegister_IgnoresNil(t *testing.T) {
	registry := NewRegistry(arbor.NewLogger())
	registry.Register(models.SourceKindWebsite, "acme-realty", nil)
	registry.RegisterKind(models.SourceKindWebsite, nil)

	_, err := registry.Resolve(&models.Source{Kind: models.SourceKindWebsite, Name: "acme-realty"})
	assert.Error(t, err)
}
