package parser

import (
	"errors"
	"fmt"
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/flashprice/radar-crawler/internal/models"
)

var (
	ErrEmptyCard = errors.New("card has no text content")
	ErrNoPrice   = errors.New("no positive price found in card")
)

var (
	priceRe    = regexp.MustCompile(`[¥￥]\s*(\d+(?:\.\d+)?)`)
	distanceRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(km|公里|m|米)`)
)

// maxShopNameLen bounds the shop name to the first-line prefix the result
// card actually displays.
const maxShopNameLen = 30

// ExtractPrice returns the first currency-prefixed decimal in text.
// The second return value is false when no positive price is present.
func ExtractPrice(text string) (float64, bool) {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	price, err := strconv.ParseFloat(m[1], 64)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

// ExtractDistance returns the first distance in text normalized to meters,
// or 0 when no distance pattern is present.
func ExtractDistance(text string) int {
	m := distanceRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	val, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	unit := strings.ToLower(m[2])
	if unit == "km" || unit == "公里" {
		return int(val * 1000)
	}
	return int(val)
}

// ShopID derives a comparable (not globally unique) shop identifier from
// the platform, the card position, and a stable hash of the shop name.
func ShopID(platform string, position int, shopName string) string {
	h := fnv.New32a()
	h.Write([]byte(shopName))
	return fmt.Sprintf("%s_%d_%04d", platform, position, h.Sum32()%10000)
}

// ParseCard converts the visible text of one result card into a PriceRecord.
// Cards without a positive price are rejected with ErrNoPrice; such a card
// must be skipped, never recorded with a zero price.
func ParseCard(platform, query string, position int, text string, crawledAt time.Time) (models.PriceRecord, error) {
	lines := SplitLines(text)
	if len(lines) == 0 {
		return models.PriceRecord{}, ErrEmptyCard
	}

	price, ok := ExtractPrice(text)
	if !ok {
		return models.PriceRecord{}, ErrNoPrice
	}

	shopName := truncateRunes(lines[0], maxShopNameLen)

	return models.PriceRecord{
		Platform:      platform,
		ShopID:        ShopID(platform, position, shopName),
		ShopName:      shopName,
		ShopAddress:   "",
		Distance:      ExtractDistance(text),
		ProductName:   query,
		Price:         price,
		OriginalPrice: price,
		Promotion:     "",
		InStock:       true,
		CrawledAt:     crawledAt,
	}, nil
}

// SplitLines splits text into trimmed non-empty lines.
func SplitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
