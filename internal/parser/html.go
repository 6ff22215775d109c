package parser

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/flashprice/radar-crawler/internal/models"
)

// cardSelectors mirrors the live-DOM card cascade for parsing a captured
// HTML snapshot. Ordered from specific semantic hints to generic containers.
var cardSelectors = []string{
	`[class*="shopItem"]`,
	`[class*="poi"]`,
	`[class*="merchant"]`,
	`[class*="store"]`,
	`[class*="goods"]`,
	`[class*="product"]`,
	`[class*="card"]`,
	`[class*="list"] > div`,
}

// minPlausibleCards guards against a selector accidentally matching a
// single unrelated container.
const minPlausibleCards = 2

// maxCards bounds extraction cost per search.
const maxCards = 15

// ParseResultHTML extracts price records from a captured search-results
// page. It is the offline counterpart of the live extraction path: the
// first selector matching more than minPlausibleCards elements wins, each
// match is parsed by its visible text, and cards without a positive price
// are dropped.
func ParseResultHTML(platform, query, html string, crawledAt time.Time) ([]models.PriceRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	// Prefer a selector with a plausible number of matches, then settle
	// for the first with any match, mirroring the live extraction path.
	var cards *goquery.Selection
	for _, sel := range cardSelectors {
		found := doc.Find(sel)
		if found.Length() > minPlausibleCards {
			cards = found
			break
		}
	}
	if cards == nil {
		for _, sel := range cardSelectors {
			found := doc.Find(sel)
			if found.Length() > 0 {
				cards = found
				break
			}
		}
	}
	if cards == nil {
		return nil, nil
	}

	var records []models.PriceRecord
	cards.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= maxCards {
			return false
		}
		record, err := ParseCard(platform, query, i, blockText(s), crawledAt)
		if err != nil {
			return true // skip this card only
		}
		records = append(records, record)
		return true
	})

	return records, nil
}

// blockText renders a selection's text with line breaks between child
// blocks, approximating innerText of the live page.
func blockText(s *goquery.Selection) string {
	var b strings.Builder
	s.Find("*").Each(func(_ int, child *goquery.Selection) {
		if child.Children().Length() > 0 {
			return
		}
		text := strings.TrimSpace(child.Text())
		if text == "" {
			return
		}
		b.WriteString(text)
		b.WriteString("\n")
	})
	if b.Len() == 0 {
		return strings.TrimSpace(s.Text())
	}
	return b.String()
}
