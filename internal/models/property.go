package models

import (
	"fmt"
	"strings"
	"time"
)

// PropertyStatus constants for persisted listings
const (
	PropertyStatusActive   = "active"
	PropertyStatusArchived = "archived"
)

// ListingCandidate is a normalized, not-yet-persisted listing extracted from
// a source payload by an adapter. A candidate with an empty Title or a zero
// Price is considered malformed: it still counts toward the run's "found"
// total but is never persisted.
type ListingCandidate struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Price        float64  `json:"price"`
	PriceUnit    string   `json:"price_unit,omitempty"`
	Area         float64  `json:"area,omitempty"`
	Bedrooms     int      `json:"bedrooms,omitempty"`
	Bathrooms    int      `json:"bathrooms,omitempty"`
	Address      string   `json:"address,omitempty"`
	City         string   `json:"city,omitempty"`
	District     string   `json:"district,omitempty"`
	Images       []string `json:"images,omitempty"`
	Features     []string `json:"features,omitempty"`
	ContactName  string   `json:"contact_name,omitempty"`
	ContactPhone string   `json:"contact_phone,omitempty"`
	ContactEmail string   `json:"contact_email,omitempty"`
	SourceName   string   `json:"source_name"`
	SourceURL    string   `json:"source_url,omitempty"`
	// NaturalKey identifies the listing for deduplication: the permalink URL
	// for API-sourced listings, title + source name for scraped HTML listings.
	NaturalKey string `json:"natural_key"`
}

// IsComplete reports whether the candidate carries the minimum fields
// required for persistence.
func (c *ListingCandidate) IsComplete() bool {
	return strings.TrimSpace(c.Title) != "" && c.Price > 0 && c.NaturalKey != ""
}

// URLNaturalKey builds the natural key for an API-sourced listing.
func URLNaturalKey(sourceURL string) string {
	return strings.TrimSpace(sourceURL)
}

// TitleNaturalKey builds the natural key for a scraped HTML listing.
func TitleNaturalKey(title, sourceName string) string {
	return fmt.Sprintf("%s|%s", strings.TrimSpace(title), strings.TrimSpace(sourceName))
}

// Property is the durable record a successful candidate becomes. The badger
// store keys properties by NaturalKey, which doubles as the uniqueness
// constraint that makes the dedup check race-safe.
type Property struct {
	NaturalKey   string    `json:"natural_key"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Price        float64   `json:"price"`
	PriceUnit    string    `json:"price_unit,omitempty"`
	Area         float64   `json:"area,omitempty"`
	Bedrooms     int       `json:"bedrooms,omitempty"`
	Bathrooms    int       `json:"bathrooms,omitempty"`
	Address      string    `json:"address,omitempty"`
	City         string    `json:"city,omitempty"`
	District     string    `json:"district,omitempty"`
	Images       []string  `json:"images,omitempty"`
	Type         string    `json:"type,omitempty"`
	Status       string    `json:"status"`
	Features     []string  `json:"features,omitempty"`
	ContactName  string    `json:"contact_name,omitempty"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	SourceName   string    `json:"source_name"`
	SourceURL    string    `json:"source_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PropertyFromCandidate converts a complete candidate into a persistable
// property record.
func PropertyFromCandidate(c *ListingCandidate, now time.Time) *Property {
	return &Property{
		NaturalKey:   c.NaturalKey,
		Title:        c.Title,
		Description:  c.Description,
		Price:        c.Price,
		PriceUnit:    c.PriceUnit,
		Area:         c.Area,
		Bedrooms:     c.Bedrooms,
		Bathrooms:    c.Bathrooms,
		Address:      c.Address,
		City:         c.City,
		District:     c.District,
		Images:       c.Images,
		Status:       PropertyStatusActive,
		Features:     c.Features,
		ContactName:  c.ContactName,
		ContactPhone: c.ContactPhone,
		ContactEmail: c.ContactEmail,
		SourceName:   c.SourceName,
		SourceURL:    c.SourceURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
