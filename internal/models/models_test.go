package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSourceValidate(t *testing.T) {
	valid := Source{
		Name:                 "acme-realty",
		URL:                  "https://acme.example.com/listings",
		Kind:                 SourceKindWebsite,
		ScrapeFrequencyHours: 24,
	}
	assert.NoError(t, valid.Validate())

	noName := valid
	noName.Name = " "
	assert.Error(t, noName.Validate())

	badKind := valid
	badKind.Kind = "rss"
	assert.Error(t, badKind.Validate())

	zeroFreq := valid
	zeroFreq.ScrapeFrequencyHours = 0
	assert.Error(t, zeroFreq.Validate())
}

func TestSourceDueAt(t *testing.T) {
	source := Source{ScrapeFrequencyHours: 6}
	assert.True(t, source.DueAt().IsZero())

	source.LastScrapedAt = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 1, 16, 0, 0, 0, time.UTC), source.DueAt())
}

func TestQueueItemIsDue(t *testing.T) {
	now := time.Now()
	item := QueueItem{Status: QueueStatusPending, ScheduledFor: now.Add(-time.Minute)}
	assert.True(t, item.IsDue(now))

	item.ScheduledFor = now.Add(time.Minute)
	assert.False(t, item.IsDue(now))

	item.ScheduledFor = now.Add(-time.Minute)
	item.Status = QueueStatusProcessing
	assert.False(t, item.IsDue(now))
}

func TestQueueItemIsTerminal(t *testing.T) {
	assert.False(t, (&QueueItem{Status: QueueStatusPending}).IsTerminal())
	assert.False(t, (&QueueItem{Status: QueueStatusProcessing}).IsTerminal())
	assert.True(t, (&QueueItem{Status: QueueStatusCompleted}).IsTerminal())
	assert.True(t, (&QueueItem{Status: QueueStatusFailed}).IsTerminal())
}

func TestCandidateIsComplete(t *testing.T) {
	c := ListingCandidate{Title: "Apartment", Price: 120000, NaturalKey: "Apartment|acme"}
	assert.True(t, c.IsComplete())

	noTitle := c
	noTitle.Title = "  "
	assert.False(t, noTitle.IsComplete())

	noPrice := c
	noPrice.Price = 0
	assert.False(t, noPrice.IsComplete())

	noKey := c
	noKey.NaturalKey = ""
	assert.False(t, noKey.IsComplete())
}

func TestNaturalKeys(t *testing.T) {
	assert.Equal(t, "https://example.com/item/1", URLNaturalKey(" https://example.com/item/1 "))
	assert.Equal(t, "Apartment|acme-realty", TitleNaturalKey(" Apartment ", " acme-realty "))
}

func TestPropertyFromCandidate(t *testing.T) {
	now := time.Now()
	c := ListingCandidate{
		Title:      "Apartment",
		Price:      120000,
		PriceUnit:  "USD",
		SourceName: "acme-realty",
		NaturalKey: "Apartment|acme-realty",
	}
	p := PropertyFromCandidate(&c, now)
	assert.Equal(t, c.NaturalKey, p.NaturalKey)
	assert.Equal(t, PropertyStatusActive, p.Status)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, now, p.UpdatedAt)
}
