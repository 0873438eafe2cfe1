package website

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/propstream/propstream/internal/models"
)

// Extractor turns a fetched page body into listing candidates. A malformed
// block comes back as an incomplete candidate (empty title or zero price);
// the adapter counts it as found and drops it, it never fails the run.
type Extractor interface {
	Extract(body []byte) []models.ListingCandidate
}

// PatternExtractor recovers listing blocks with regular expressions. This is
// the simplest extraction strategy and the default for sources without a
// tuned selector set.
type PatternExtractor struct {
	Block *regexp.Regexp
	Title *regexp.Regexp
	Price *regexp.Regexp
	Area  *regexp.Regexp
	City  *regexp.Regexp
}

// NewPatternExtractor creates a pattern extractor with the default patterns,
// matching the common case of listing markup in class="listing" blocks.
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{
		Block: regexp.MustCompile(`(?s)<(?:article|div|li)[^>]*class="[^"]*listing[^"]*"[^>]*>.*?</(?:article|div|li)>`),
		Title: regexp.MustCompile(`(?s)<h[1-4][^>]*>(.*?)</h[1-4]>`),
		Price: regexp.MustCompile(`(?i)([\d][\d\s.,]*)\s*(USD|EUR|BYN|RUB|\$|€|руб)`),
		Area:  regexp.MustCompile(`(?i)([\d]+(?:[.,]\d+)?)\s*(?:m²|m2|кв\.?\s*м)`),
		City:  regexp.MustCompile(`(?si)class="[^"]*(?:city|location)[^"]*"[^>]*>(.*?)<`),
	}
}

func (e *PatternExtractor) Extract(body []byte) []models.ListingCandidate {
	blocks := e.Block.FindAllString(string(body), -1)
	candidates := make([]models.ListingCandidate, 0, len(blocks))

	for _, block := range blocks {
		var c models.ListingCandidate

		if m := e.Title.FindStringSubmatch(block); m != nil {
			c.Title = cleanText(m[1])
		}
		if m := e.Price.FindStringSubmatch(block); m != nil {
			c.Price = parseNumber(m[1])
			c.PriceUnit = normalizeCurrency(m[2])
		}
		if m := e.Area.FindStringSubmatch(block); m != nil {
			c.Area = parseNumber(m[1])
		}
		if m := e.City.FindStringSubmatch(block); m != nil {
			c.City = cleanText(m[1])
		}

		candidates = append(candidates, c)
	}
	return candidates
}

// Selectors configures a SelectorExtractor. Every field is a CSS selector
// evaluated relative to the block selector.
type Selectors struct {
	Block    string
	Title    string
	Price    string
	Address  string
	City     string
	District string
	Area     string
	Bedrooms string
	Image    string
	Contact  string
}

// DefaultSelectors returns the selector set used when a source has no tuned
// configuration.
func DefaultSelectors() Selectors {
	return Selectors{
		Block:    ".listing, article.property, .property-card",
		Title:    ".listing-title, h2, h3",
		Price:    ".listing-price, .price",
		Address:  ".address",
		City:     ".city, .location",
		District: ".district",
		Area:     ".area",
		Bedrooms: ".bedrooms, .rooms",
		Image:    "img",
		Contact:  ".contact-phone, .phone",
	}
}

// SelectorExtractor recovers listing blocks with goquery CSS selectors.
// Preferred over patterns for sources with stable markup.
type SelectorExtractor struct {
	selectors Selectors
	price     *regexp.Regexp
	number    *regexp.Regexp
}

// NewSelectorExtractor creates a selector extractor
func NewSelectorExtractor(selectors Selectors) *SelectorExtractor {
	return &SelectorExtractor{
		selectors: selectors,
		price:     regexp.MustCompile(`(?i)([\d][\d\s.,]*)\s*(USD|EUR|BYN|RUB|\$|€|руб)?`),
		number:    regexp.MustCompile(`[\d]+(?:[.,]\d+)?`),
	}
}

func (e *SelectorExtractor) Extract(body []byte) []models.ListingCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}

	var candidates []models.ListingCandidate
	doc.Find(e.selectors.Block).Each(func(_ int, block *goquery.Selection) {
		var c models.ListingCandidate

		c.Title = cleanText(block.Find(e.selectors.Title).First().Text())
		if m := e.price.FindStringSubmatch(block.Find(e.selectors.Price).First().Text()); m != nil {
			c.Price = parseNumber(m[1])
			c.PriceUnit = normalizeCurrency(m[2])
		}
		c.Address = cleanText(block.Find(e.selectors.Address).First().Text())
		c.City = cleanText(block.Find(e.selectors.City).First().Text())
		c.District = cleanText(block.Find(e.selectors.District).First().Text())
		if m := e.number.FindString(block.Find(e.selectors.Area).First().Text()); m != "" {
			c.Area = parseNumber(m)
		}
		if m := e.number.FindString(block.Find(e.selectors.Bedrooms).First().Text()); m != "" {
			c.Bedrooms = int(parseNumber(m))
		}
		c.ContactPhone = cleanText(block.Find(e.selectors.Contact).First().Text())

		block.Find(e.selectors.Image).Each(func(_ int, img *goquery.Selection) {
			if src, ok := img.Attr("src"); ok && src != "" {
				c.Images = append(c.Images, src)
			}
		})

		candidates = append(candidates, c)
	})
	return candidates
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

func cleanText(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// parseNumber parses a price or area string with thousand separators.
func parseNumber(s string) float64 {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	// "1.250.000" and "1,250,000" both mean 1250000; a single trailing
	// group of 1-2 digits is a decimal fraction.
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 1 {
		last := parts[len(parts)-1]
		if len(last) <= 2 {
			s = strings.Join(parts[:len(parts)-1], "") + "." + last
		} else {
			s = strings.Join(parts, "")
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func normalizeCurrency(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "$", "USD":
		return "USD"
	case "€", "EUR":
		return "EUR"
	case "РУБ", "RUB":
		return "RUB"
	case "BYN":
		return "BYN"
	default:
		return strings.ToUpper(strings.TrimSpace(s))
	}
}
