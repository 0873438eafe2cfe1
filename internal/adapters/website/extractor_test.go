package website

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><body>
<div class="listing">
  <h2>Bright 2-room apartment</h2>
  <span class="price">85 000 USD</span>
  <span class="area">54 m²</span>
  <span class="city">Riverton</span>
</div>
<div class="listing">
  <h2>House with garden</h2>
  <span class="price">1.250.000 руб</span>
  <span class="area">120 m2</span>
  <span class="city">Lakeside</span>
</div>
<div class="listing">
  <h2></h2>
  <span class="price">call for price</span>
</div>
<div class="banner">not a listing</div>
</body></html>`

func TestPatternExtractor(t *testing.T) {
	candidates := NewPatternExtractor().Extract([]byte(samplePage))
	require.Len(t, candidates, 3)

	assert.Equal(t, "Bright 2-room apartment", candidates[0].Title)
	assert.Equal(t, 85000.0, candidates[0].Price)
	assert.Equal(t, "USD", candidates[0].PriceUnit)
	assert.Equal(t, 54.0, candidates[0].Area)
	assert.Equal(t, "Riverton", candidates[0].City)

	assert.Equal(t, "House with garden", candidates[1].Title)
	assert.Equal(t, 1250000.0, candidates[1].Price)
	assert.Equal(t, "RUB", candidates[1].PriceUnit)

	// The third block has no title and no parseable price
	assert.Empty(t, candidates[2].Title)
	assert.Zero(t, candidates[2].Price)
	assert.False(t, candidates[2].IsComplete())
}

func TestSelectorExtractor(t *testing.T) {
	page := `<html><body>
<article class="property-card">
  <h3 class="listing-title">Studio near the park</h3>
  <div class="listing-price">€ 62,500 EUR</div>
  <div class="address">12 Elm Street</div>
  <div class="city">Riverton</div>
  <div class="area">31 m²</div>
  <div class="rooms">1 room</div>
  <img src="https://img.example.com/a.jpg">
  <img src="https://img.example.com/b.jpg">
  <div class="phone">+1 555 0100</div>
</article>
</body></html>`

	candidates := NewSelectorExtractor(DefaultSelectors()).Extract([]byte(page))
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "Studio near the park", c.Title)
	assert.Equal(t, 62500.0, c.Price)
	assert.Equal(t, "12 Elm Street", c.Address)
	assert.Equal(t, "Riverton", c.City)
	assert.Equal(t, 31.0, c.Area)
	assert.Equal(t, 1, c.Bedrooms)
	assert.Len(t, c.Images, 2)
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"85 000", 85000},
		{"1.250.000", 1250000},
		{"1,250,000", 1250000},
		{"62,500", 62500},
		{"120", 120},
		{"54.5", 54.5},
		{"not a number", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseNumber(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeCurrency(t *testing.T) {
	assert.Equal(t, "USD", normalizeCurrency("$"))
	assert.Equal(t, "USD", normalizeCurrency("usd"))
	assert.Equal(t, "EUR", normalizeCurrency("€"))
	assert.Equal(t, "RUB", normalizeCurrency("руб"))
	assert.Equal(t, "BYN", normalizeCurrency("byn"))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Bright 2-room apartment", cleanText("  Bright   <b>2-room</b>\n apartment "))
}
