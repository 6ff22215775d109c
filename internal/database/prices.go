package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/flashprice/radar-crawler/internal/models"
)

// Store is the narrow persistence contract the crawler core hands its
// records to. The core itself never touches storage.
type Store interface {
	SaveReport(ctx context.Context, report *models.CrawlReport) error
	LatestPrices(ctx context.Context, product string, limit int) ([]models.PriceRecord, error)
}

// SaveReport inserts every record of a crawl run in one batch.
func (db *DB) SaveReport(ctx context.Context, report *models.CrawlReport) error {
	if len(report.Records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range report.Records {
		batch.Queue(`
			INSERT INTO price_records
				(run_id, location, platform, shop_id, shop_name, shop_address,
				 distance, product_name, price, original_price, promotion,
				 in_stock, crawled_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			report.RunID, report.Location, r.Platform, r.ShopID, r.ShopName,
			r.ShopAddress, r.Distance, r.ProductName, r.Price, r.OriginalPrice,
			r.Promotion, r.InStock, r.CrawledAt)
	}

	results := db.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range report.Records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert price record: %w", err)
		}
	}
	return nil
}

// LatestPrices returns the most recent records, optionally filtered by
// product name.
func (db *DB) LatestPrices(ctx context.Context, product string, limit int) ([]models.PriceRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT platform, shop_id, shop_name, shop_address, distance,
		       product_name, price, original_price, promotion, in_stock,
		       crawled_at
		FROM price_records`
	args := []any{}
	if product != "" {
		query += ` WHERE product_name = $1`
		args = append(args, product)
	}
	query += fmt.Sprintf(` ORDER BY crawled_at DESC LIMIT %d`, limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query latest prices: %w", err)
	}
	defer rows.Close()

	var records []models.PriceRecord
	for rows.Next() {
		var r models.PriceRecord
		if err := rows.Scan(&r.Platform, &r.ShopID, &r.ShopName, &r.ShopAddress,
			&r.Distance, &r.ProductName, &r.Price, &r.OriginalPrice,
			&r.Promotion, &r.InStock, &r.CrawledAt); err != nil {
			return nil, fmt.Errorf("scan price record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
