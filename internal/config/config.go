package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flashprice/radar-crawler/internal/models"
)

type Config struct {
	Server   ServerConfig
	Crawler  CrawlerConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	AI       AIConfig
	Logging  LoggingConfig
	Registry Registry
}

type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type CrawlerConfig struct {
	City            string
	Aliases         []string
	RequestDelayMin time.Duration
	RequestDelayMax time.Duration
	MaxDailyCrawls  int
	MaxRetries      int
	ScreenshotDir   string
}

type BrowserConfig struct {
	Headless bool
	Timeout  time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AIConfig struct {
	GeminiAPIKey string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Registry holds the fixed pilot locations, the product watchlist, and the
// platform metadata. It is read-only input: the crawler never mutates it.
type Registry struct {
	Locations []models.Location `yaml:"locations"`
	Products  []string          `yaml:"products"`
	Platforms []models.Platform `yaml:"platforms"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvOrDefault("SERVER_PORT", "8000"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Crawler: CrawlerConfig{
			City:            getEnvOrDefault("CRAWLER_CITY", "重庆"),
			Aliases:         getStringSliceOrDefault("CRAWLER_ADDRESS_ALIASES", []string{"南坪"}),
			RequestDelayMin: getDurationOrDefault("CRAWLER_REQUEST_DELAY_MIN", 2*time.Second),
			RequestDelayMax: getDurationOrDefault("CRAWLER_REQUEST_DELAY_MAX", 5*time.Second),
			MaxDailyCrawls:  getIntOrDefault("CRAWLER_MAX_DAILY_CRAWLS", 3),
			MaxRetries:      getIntOrDefault("CRAWLER_MAX_RETRIES", 3),
			ScreenshotDir:   getEnvOrDefault("CRAWLER_SCREENSHOT_DIR", "."),
		},
		Browser: BrowserConfig{
			Headless: getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:  getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", ""),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "price_radar"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		AI: AIConfig{
			GeminiAPIKey: getEnvOrDefault("GEMINI_API_KEY", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		Registry: DefaultRegistry(),
	}

	if path := os.Getenv("REGISTRY_FILE"); path != "" {
		registry, err := LoadRegistry(path)
		if err != nil {
			return nil, fmt.Errorf("load registry file %s: %w", path, err)
		}
		cfg.Registry = *registry
	}

	return cfg, nil
}

// LoadRegistry reads a YAML registry of locations, products and platforms.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var registry Registry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("parse registry yaml: %w", err)
	}
	return &registry, nil
}

// DefaultRegistry is the built-in pilot setup: the 南岸区 commercial
// centers, the fixed consumer product watchlist, and the two storefronts.
func DefaultRegistry() Registry {
	return Registry{
		Locations: []models.Location{
			{Name: "南坪步行街", Latitude: 29.5286, Longitude: 106.5694, Address: "重庆市南岸区南坪西路"},
			{Name: "南坪万达广场", Latitude: 29.5234, Longitude: 106.5723, Address: "重庆市南岸区江南大道"},
			{Name: "南滨路", Latitude: 29.5456, Longitude: 106.5812, Address: "重庆市南岸区南滨路"},
			{Name: "弹子石", Latitude: 29.5589, Longitude: 106.5934, Address: "重庆市南岸区弹子石新街"},
		},
		Products: []string{
			"农夫山泉550ml",
			"红牛250ml",
			"元气森林白桃味",
			"可口可乐330ml",
			"东方树叶茉莉花茶",
			"百威啤酒500ml",
			"江小白100ml",
			"雪花啤酒500ml",
			"乐事薯片原味",
			"奥利奥饼干",
		},
		Platforms: []models.Platform{
			{ID: "meituan", Name: "美团闪购", H5URL: "https://h5.waimai.meituan.com", Enabled: true},
			{ID: "eleme", Name: "饿了么", H5URL: "https://h5.ele.me", Enabled: true},
		},
	}
}

func (c *Config) Validate() error {
	if c.Crawler.RequestDelayMin > c.Crawler.RequestDelayMax {
		return fmt.Errorf("CRAWLER_REQUEST_DELAY_MIN cannot be greater than CRAWLER_REQUEST_DELAY_MAX")
	}
	if c.Crawler.MaxDailyCrawls < 1 {
		return fmt.Errorf("CRAWLER_MAX_DAILY_CRAWLS must be at least 1")
	}
	if len(c.Registry.Locations) == 0 {
		return fmt.Errorf("registry must define at least one pilot location")
	}
	if len(c.Registry.Platforms) == 0 {
		return fmt.Errorf("registry must define at least one platform")
	}
	return nil
}

// Location returns the pilot location with the given name, or the first
// one when name is empty.
func (r *Registry) Location(name string) (models.Location, error) {
	if name == "" && len(r.Locations) > 0 {
		return r.Locations[0], nil
	}
	for _, loc := range r.Locations {
		if loc.Name == name {
			return loc, nil
		}
	}
	return models.Location{}, fmt.Errorf("unknown pilot location %q", name)
}

// Platform returns the enabled platform with the given id, or the first
// enabled one when id is empty.
func (r *Registry) Platform(id string) (models.Platform, error) {
	for _, p := range r.Platforms {
		if !p.Enabled {
			continue
		}
		if id == "" || p.ID == id {
			return p, nil
		}
	}
	return models.Platform{}, fmt.Errorf("no enabled platform %q", id)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
