package models

import (
	"time"
)

// Location is one of the fixed pilot points used to simulate a shopper's
// delivery address. Values come from configuration and are never mutated.
type Location struct {
	Name      string  `json:"name" yaml:"name"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Address   string  `json:"address" yaml:"address"`
}

// Platform describes one configured storefront.
type Platform struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	H5URL   string `json:"h5_url" yaml:"h5_url"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// PriceRecord is one extracted shop/product price observation.
type PriceRecord struct {
	Platform      string    `json:"platform"`
	ShopID        string    `json:"shop_id"`
	ShopName      string    `json:"shop_name"`
	ShopAddress   string    `json:"shop_address"`
	Distance      int       `json:"distance"` // meters, 0 when unknown
	ProductName   string    `json:"product_name"`
	Price         float64   `json:"price"`
	OriginalPrice float64   `json:"original_price"`
	Promotion     string    `json:"promotion"`
	InStock       bool      `json:"in_stock"`
	CrawledAt     time.Time `json:"crawled_at"`
}

// CrawlReport aggregates one orchestrated crawl run.
type CrawlReport struct {
	RunID     string            `json:"run_id"`
	Location  string            `json:"location"`
	Platform  string            `json:"platform"`
	Records   []PriceRecord     `json:"records"`
	Failures  map[string]string `json:"failures,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	EndedAt   time.Time         `json:"ended_at"`
}

// Valid reports whether the record satisfies the emit invariant.
// A record with a non-positive price must never leave the extractor.
func (r *PriceRecord) Valid() bool {
	return r.Price > 0 && r.ShopName != "" && r.ProductName != ""
}
