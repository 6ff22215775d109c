package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flashprice/radar-crawler/internal/models"
	"github.com/flashprice/radar-crawler/internal/parser"
)

// SearchProduct drives the storefront search UI for one query keyword and
// extracts price records from the result cards. Every failure inside the
// procedure is absorbed: rendering-layer errors, missing UI elements, and
// empty result pages all yield an empty slice, never an error to the
// caller. Only the cause is logged and kept as a failure note upstream.
func (c *Controller) SearchProduct(ctx context.Context, query string) []models.PriceRecord {
	records, err := c.searchProduct(ctx, query)
	if err != nil {
		c.logger.Warn("search yielded no records", "query", query, "cause", err)
		return nil
	}
	return records
}

func (c *Controller) searchProduct(ctx context.Context, query string) ([]models.PriceRecord, error) {
	if !c.session.LocationSet() {
		if err := c.EnsureLocation(ctx); err != nil {
			return nil, fmt.Errorf("location not set: %w", err)
		}
	}

	// One timestamp per search call; all records of one search share it.
	crawledAt := time.Now()
	page := c.session.Page()

	c.logger.Info("searching product", "query", query)

	if !strings.Contains(page.URL(), storefrontHost(c.platform.H5URL)) {
		if err := page.Goto(c.platform.H5URL); err != nil {
			return nil, fmt.Errorf("return to storefront: %w", err)
		}
		if err := c.sleep(ctx, c.timings.SettleWait); err != nil {
			return nil, err
		}
	}

	c.dismissOverlays(ctx)

	searchBox, err := c.resolver.First(page, "search box", []Candidate{
		{Selector: `input[placeholder*="搜"]`},
		{Selector: `input[placeholder*="商"]`},
		{Selector: `[class*="search"] input`},
		{Selector: `[class*="search"]`},
	})
	if err != nil {
		return nil, fmt.Errorf("search box: %w", err)
	}
	if err := searchBox.Click(); err != nil {
		return nil, fmt.Errorf("focus search box: %w", err)
	}
	if err := c.sleep(ctx, 500*time.Millisecond); err != nil {
		return nil, err
	}

	// Clicking the box may reveal a dedicated input on a search page.
	input, err := c.resolver.First(page, "search input", []Candidate{
		{Selector: `input[placeholder*="搜"]`},
		{Selector: `input`},
	})
	if err != nil {
		input = searchBox
	}
	if err := input.Fill(""); err != nil {
		return nil, fmt.Errorf("clear search input: %w", err)
	}
	if err := c.typeHumanly(ctx, input, query); err != nil {
		return nil, fmt.Errorf("type query: %w", err)
	}

	if button, err := c.resolver.First(page, "search trigger", []Candidate{
		{Selector: `text=搜索`},
	}); err == nil {
		if err := button.Click(); err != nil {
			return nil, fmt.Errorf("trigger search: %w", err)
		}
	} else if err := page.Press("Enter"); err != nil {
		return nil, fmt.Errorf("submit search: %w", err)
	}

	if err := c.sleep(ctx, c.timings.SettleWait); err != nil {
		return nil, err
	}
	c.session.Screenshot("result")

	if err := c.recoverIfBlocked(ctx); err != nil {
		return nil, err
	}

	return c.extractRecords(ctx, query, crawledAt)
}

// cardSelectors range from specific semantic hints to generic list
// containers.
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

// minPlausibleCards is the preferred match count before a selector is
// trusted as the result list, so a lone unrelated container never poses
// as one when a better selector exists.
const minPlausibleCards = 2

// maxCardsPerSearch bounds extraction cost per query.
const maxCardsPerSearch = 15

func cardCandidates(minCount int) []Candidate {
	candidates := make([]Candidate, 0, len(cardSelectors))
	for _, sel := range cardSelectors {
		candidates = append(candidates, Candidate{Selector: sel, MinCount: minCount})
	}
	return candidates
}

func (c *Controller) extractRecords(ctx context.Context, query string, crawledAt time.Time) ([]models.PriceRecord, error) {
	page := c.session.Page()

	// Prefer a selector with a plausible number of matches; when no
	// selector clears that bar, settle for the first one with any match
	// at all.
	cards, err := c.resolver.Resolve(page, "result card", cardCandidates(minPlausibleCards))
	if errors.Is(err, ErrNotFound) {
		cards, err = c.resolver.Resolve(page, "result card (lenient)", cardCandidates(0))
	}
	if errors.Is(err, ErrNotFound) {
		// Element handles came up empty; parse a page snapshot instead.
		return c.extractFromSnapshot(query, crawledAt)
	}
	if err != nil {
		return nil, err
	}

	var records []models.PriceRecord
	for i, card := range cards {
		if i >= maxCardsPerSearch {
			break
		}
		text, err := card.Text()
		if err != nil {
			continue
		}
		record, err := parser.ParseCard(c.platform.ID, query, i, text, crawledAt)
		if err != nil {
			continue // this card only; the rest of the page still counts
		}
		records = append(records, record)
	}

	c.logger.Info("extraction finished", "query", query, "cards", len(cards), "records", len(records))
	return records, nil
}

func (c *Controller) extractFromSnapshot(query string, crawledAt time.Time) ([]models.PriceRecord, error) {
	html, err := c.session.Page().Content()
	if err != nil {
		return nil, fmt.Errorf("page snapshot: %w", err)
	}
	records, err := parser.ParseResultHTML(c.platform.ID, query, html, crawledAt)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("result cards: %w", ErrNotFound)
	}
	c.logger.Info("extraction finished from snapshot", "query", query, "records", len(records))
	return records, nil
}

func storefrontHost(rawURL string) string {
	host := strings.TrimPrefix(rawURL, "https://")
	host = strings.TrimPrefix(host, "http://")
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	return host
}
