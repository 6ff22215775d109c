package scraper

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flashprice/radar-crawler/internal/models"
)

// Run performs one orchestrated crawl: the delivery location is established
// once, then each query is searched in configured order with randomized
// pacing in between. A query that yields nothing is recorded as a failure
// note and the run proceeds; the only terminal failure of a crawl is the
// session not existing in the first place, which happens before Run is
// reachable. Cancellation is cooperative, checked between queries.
func (c *Controller) Run(ctx context.Context, queries []string) (*models.CrawlReport, error) {
	return c.RunWithID(ctx, uuid.NewString(), queries)
}

// RunWithID is Run with a caller-assigned run id, so an asynchronous
// trigger can hand the id out before the crawl finishes.
func (c *Controller) RunWithID(ctx context.Context, runID string, queries []string) (*models.CrawlReport, error) {
	report := &models.CrawlReport{
		RunID:     runID,
		Location:  c.session.Location().Name,
		Platform:  c.platform.ID,
		Failures:  make(map[string]string),
		StartedAt: time.Now(),
	}

	c.logger.Info("crawl run starting",
		"run_id", report.RunID,
		"location", report.Location,
		"queries", len(queries))

	if err := c.EnsureLocation(ctx); err != nil {
		// Searches retry location themselves; keep the note and continue.
		report.Failures["_location"] = err.Error()
		c.logger.Warn("location setup failed, continuing", "error", err)
	}

	for i, query := range queries {
		select {
		case <-ctx.Done():
			report.EndedAt = time.Now()
			return report, ctx.Err()
		default:
		}

		records := c.SearchProduct(ctx, query)
		if len(records) == 0 {
			report.Failures[query] = "no records extracted"
		}
		report.Records = append(report.Records, records...)

		c.logger.Info("query done",
			"query", query,
			"records", len(records),
			"progress", i+1,
			"total", len(queries))

		if c.pacer != nil && i < len(queries)-1 {
			if err := c.pacer.Wait(ctx); err != nil {
				report.EndedAt = time.Now()
				return report, err
			}
		}
	}

	report.EndedAt = time.Now()
	c.logger.Info("crawl run finished",
		"run_id", report.RunID,
		"records", len(report.Records),
		"failures", len(report.Failures))
	return report, nil
}
