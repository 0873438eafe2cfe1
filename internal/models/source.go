package models

import (
	"fmt"
	"strings"
	"time"
)

// SourceKind constants
const (
	SourceKindWebsite = "website"
	SourceKindSocial  = "social"
)

// Source represents an external origin of property listings. Sources are
// created and edited by the admin workflow; the ingestion pipeline only
// reads them, except for LastScrapedAt which the scheduler maintains.
type Source struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	URL                  string    `json:"url"`
	Kind                 string    `json:"kind"` // "website" or "social"
	ScrapeFrequencyHours int       `json:"scrape_frequency_hours"`
	Active               bool      `json:"active"`
	LastScrapedAt        time.Time `json:"last_scraped_at,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Validate validates the source configuration
func (s *Source) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("source name is required")
	}

	if strings.TrimSpace(s.URL) == "" {
		return fmt.Errorf("source URL is required")
	}

	switch s.Kind {
	case SourceKindWebsite, SourceKindSocial:
	default:
		return fmt.Errorf("invalid source kind: %s", s.Kind)
	}

	if s.ScrapeFrequencyHours < 1 {
		return fmt.Errorf("scrape frequency must be at least 1 hour")
	}

	return nil
}

// DueAt returns the time the source next becomes due for scraping.
func (s *Source) DueAt() time.Time {
	if s.LastScrapedAt.IsZero() {
		return time.Time{}
	}
	return s.LastScrapedAt.Add(time.Duration(s.ScrapeFrequencyHours) * time.Hour)
}
