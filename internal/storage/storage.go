package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/flashprice/radar-crawler/internal/models"
)

// FileStore persists crawl records to a JSON file. It is the fallback
// collaborator when no database is configured; it satisfies the same
// narrow store contract the pgx store does.
type FileStore struct {
	mu       sync.RWMutex
	records  []models.PriceRecord
	filename string
}

func NewFileStore(filename string) (*FileStore, error) {
	fs := &FileStore{filename: filename}
	if err := fs.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", filename, err)
	}
	return fs, nil
}

func (fs *FileStore) SaveReport(_ context.Context, report *models.CrawlReport) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.records = append(fs.records, report.Records...)
	return fs.save()
}

func (fs *FileStore) LatestPrices(_ context.Context, product string, limit int) ([]models.PriceRecord, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	var matched []models.PriceRecord
	for _, r := range fs.records {
		if product == "" || r.ProductName == product {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CrawledAt.After(matched[j].CrawledAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (fs *FileStore) load() error {
	data, err := os.ReadFile(fs.filename)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &fs.records)
}

func (fs *FileStore) save() error {
	data, err := json.MarshalIndent(fs.records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fs.filename, data, 0644)
}
