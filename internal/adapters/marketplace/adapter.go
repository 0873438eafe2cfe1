package marketplace

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/propstream/propstream/internal/common"
	"github.com/propstream/propstream/internal/interfaces"
	"github.com/propstream/propstream/internal/models"
)

// Adapter fetches listings from the social-marketplace search API. The
// provider permalink is the natural key for deduplication.
type Adapter struct {
	client *Client
	region string
	query  string
	logger arbor.ILogger
}

// NewAdapter creates the marketplace adapter. A missing API token does not
// prevent construction; each Fetch reports it as a configuration error so
// the failure lands in the run log instead of crashing startup.
func NewAdapter(cfg *common.MarketplaceConfig, logger arbor.ILogger) *Adapter {
	a := &Adapter{
		region: cfg.Region,
		query:  cfg.Query,
		logger: logger,
	}

	if cfg.APIToken != "" {
		a.client = NewClient(cfg.BaseURL, cfg.APIToken,
			WithLogger(logger),
			WithRateLimit(cfg.RatePerSecond),
		)
	}

	return a
}

// Kind returns the source kind this adapter serves.
func (a *Adapter) Kind() string {
	return models.SourceKindSocial
}

// Fetch searches the marketplace and maps each result into a candidate.
func (a *Adapter) Fetch(ctx context.Context, source *models.Source, runID string, rec interfaces.RunRecorder) ([]models.ListingCandidate, error) {
	if a.client == nil {
		return nil, fmt.Errorf("Configuration: marketplace API token is not set")
	}

	listings, err := a.client.Search(ctx, a.region, a.query)
	if err != nil {
		return nil, err
	}

	if err := rec.RecordProgress(ctx, runID, len(listings)); err != nil {
		a.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to record progress")
	}

	candidates := make([]models.ListingCandidate, 0, len(listings))
	skipped := 0
	for _, listing := range listings {
		c := mapListing(&listing, source)
		if !c.IsComplete() {
			skipped++
			continue
		}
		candidates = append(candidates, c)
	}

	a.logger.Info().
		Str("source", source.Name).
		Int("found", len(listings)).
		Int("usable", len(candidates)).
		Int("malformed", skipped).
		Msg("Marketplace fetch finished")

	return candidates, nil
}

func mapListing(listing *Listing, source *models.Source) models.ListingCandidate {
	c := models.ListingCandidate{
		Title:        listing.Title,
		Description:  listing.Description,
		Price:        listing.Price.Amount,
		PriceUnit:    listing.Price.Currency,
		Area:         listing.AreaSqm,
		Bedrooms:     listing.Bedrooms,
		Bathrooms:    listing.Bathrooms,
		Address:      listing.Location.Address,
		City:         listing.Location.City,
		District:     listing.Location.District,
		Features:     listing.Features,
		ContactName:  listing.Seller.Name,
		ContactPhone: listing.Seller.Phone,
		ContactEmail: listing.Seller.Email,
		SourceName:   source.Name,
		SourceURL:    listing.Permalink,
		NaturalKey:   models.URLNaturalKey(listing.Permalink),
	}
	for _, img := range listing.Images {
		if img.URL != "" {
			c.Images = append(c.Images, img.URL)
		}
	}
	return c
}
