package website

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/propstream/propstream/internal/common"
	"github.com/propstream/propstream/internal/models"
)

type progressRecorder struct {
	runID string
	found int
	calls int
}

func (r *progressRecorder) RecordProgress(ctx context.Context, runID string, found int) error {
	r.runID = runID
	r.found = found
	r.calls++
	return nil
}

func testScraperConfig() *common.ScraperConfig {
	return &common.ScraperConfig{
		BatchLimit:   5,
		Concurrency:  1,
		RequestDelay: "1ms",
		UserAgent:    "propstream-test/1.0",
		MaxBodySize:  1 << 20,
	}
}

func testSource(name, url string) *models.Source {
	return &models.Source{
		ID:   "src_test",
		Name: name,
		URL:  url,
		Kind: models.SourceKindWebsite,
	}
}

func TestFetch_MalformedBlockCountedNotAdded(t *testing.T) {
	page := `<html><body>
<div class="listing"><h2>Apartment one</h2><span>95 000 USD</span></div>
<div class="listing"><h2>Apartment two</h2><span>110 000 USD</span></div>
<div class="listing"><h2>Teaser without a price</h2></div>
</body></html>`

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	adapter, err := NewAdapter(testScraperConfig(), nil, arbor.NewLogger())
	require.NoError(t, err)

	rec := &progressRecorder{}
	candidates, err := adapter.Fetch(context.Background(), testSource("acme-realty", srv.URL), "run_1", rec)
	require.NoError(t, err)

	// Three blocks found, the priceless one dropped
	assert.Equal(t, 3, rec.found)
	assert.Equal(t, "run_1", rec.runID)
	require.Len(t, candidates, 2)

	assert.Equal(t, "Apartment one", candidates[0].Title)
	assert.Equal(t, "acme-realty", candidates[0].SourceName)
	assert.Equal(t, srv.URL, candidates[0].SourceURL)
	assert.Equal(t, models.TitleNaturalKey("Apartment one", "acme-realty"), candidates[0].NaturalKey)
	assert.Equal(t, "propstream-test/1.0", gotUA)
}

func TestFetch_UpstreamErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	adapter, err := NewAdapter(testScraperConfig(), nil, arbor.NewLogger())
	require.NoError(t, err)

	rec := &progressRecorder{}
	_, err = adapter.Fetch(context.Background(), testSource("acme-realty", srv.URL), "run_1", rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Upstream:")
	assert.Contains(t, err.Error(), "503")
	assert.Zero(t, rec.calls)
}

func TestFetch_TransportError(t *testing.T) {
	adapter, err := NewAdapter(testScraperConfig(), nil, arbor.NewLogger())
	require.NoError(t, err)

	rec := &progressRecorder{}
	_, err = adapter.Fetch(context.Background(), testSource("acme-realty", "http://127.0.0.1:1"), "run_1", rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Transport:")
}

func TestFetch_EmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>no listings today</body></html>"))
	}))
	defer srv.Close()

	adapter, err := NewAdapter(testScraperConfig(), nil, arbor.NewLogger())
	require.NoError(t, err)

	rec := &progressRecorder{}
	candidates, err := adapter.Fetch(context.Background(), testSource("acme-realty", srv.URL), "run_1", rec)
	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.Equal(t, 0, rec.found)
	assert.Equal(t, 1, rec.calls)
}

func TestFetch_RegisteredExtractorWins(t *testing.T) {
	page := `<html><body>
<section class="offer"><h3 class="offer-title">Custom markup listing</h3><em class="offer-price">70 000 USD</em></section>
</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	adapter, err := NewAdapter(testScraperConfig(), nil, arbor.NewLogger())
	require.NoError(t, err)
	adapter.RegisterExtractor("Custom-Portal", NewSelectorExtractor(Selectors{
		Block: ".offer",
		Title: ".offer-title",
		Price: ".offer-price",
	}))

	rec := &progressRecorder{}
	candidates, err := adapter.Fetch(context.Background(), testSource("custom-portal", srv.URL), "run_1", rec)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Custom markup listing", candidates[0].Title)
	assert.Equal(t, 70000.0, candidates[0].Price)
}

func TestNewAdapter_InvalidProxyURL(t *testing.T) {
	_, err := NewAdapter(testScraperConfig(), &common.ProxyConfig{URL: "://bad"}, arbor.NewLogger())
	assert.Error(t, err)
}

func TestKind(t *testing.T) {
	adapter, err := NewAdapter(testScraperConfig(), nil, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, models.SourceKindWebsite, adapter.Kind())
}
