package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/houstoncardinal/home-source-evolve-sub000/internal/models"
)

// CategoryPage describes one supplier listing page to crawl.
type CategoryPage struct {
	Path        string
	Category    string
	Subcategory *string
}

// CrawlConfig carries every tunable of the import pipeline so tests can
// substitute category lists, batch sizes and delays without touching logic.
type CrawlConfig struct {
	SourceBaseURL       string
	Categories          []CategoryPage
	MaxPagesPerCategory int
	PageDelay           time.Duration
	CategoryDelay       time.Duration
	DetailBatchSize     int
	DetailBatchDelay    time.Duration
	InsertBatchSize     int
	FeaturedLimit       int
	FeaturedScanLimit   int
	RequestTimeout      time.Duration
}

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL string

	// Server
	Port        string
	Environment string

	// Competitor pricing
	ScrapeAPIURL string
	ScrapeAPIKey string
	AIAPIURL     string
	AIAPIKey     string
	AIModel      string

	// Import pipeline
	Crawl CrawlConfig
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	maxPages, _ := strconv.Atoi(getEnv("CRAWL_MAX_PAGES", "10"))
	detailBatch, _ := strconv.Atoi(getEnv("CRAWL_DETAIL_BATCH_SIZE", "5"))
	insertBatch, _ := strconv.Atoi(getEnv("IMPORT_INSERT_BATCH_SIZE", "50"))
	featuredLimit, _ := strconv.Atoi(getEnv("IMPORT_FEATURED_LIMIT", "12"))
	featuredScan, _ := strconv.Atoi(getEnv("IMPORT_FEATURED_SCAN_LIMIT", "500"))
	pageDelayMs, _ := strconv.Atoi(getEnv("CRAWL_PAGE_DELAY_MS", "1000"))
	categoryDelayMs, _ := strconv.Atoi(getEnv("CRAWL_CATEGORY_DELAY_MS", "2000"))
	detailDelayMs, _ := strconv.Atoi(getEnv("CRAWL_DETAIL_BATCH_DELAY_MS", "1000"))
	requestTimeoutSec, _ := strconv.Atoi(getEnv("CRAWL_REQUEST_TIMEOUT_SEC", "30"))

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_SERVICE_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "catalog_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Port:        getEnv("PORT", "8086"),
		Environment: getEnv("ENVIRONMENT", "development"),

		ScrapeAPIURL: getEnv("SCRAPE_API_URL", "https://api.firecrawl.dev/v1/scrape"),
		ScrapeAPIKey: getEnv("SCRAPE_API_KEY", ""),
		AIAPIURL:     getEnv("AI_API_URL", "https://api.openai.com/v1/chat/completions"),
		AIAPIKey:     getEnv("AI_API_KEY", ""),
		AIModel:      getEnv("AI_MODEL", "gpt-4o-mini"),

		Crawl: CrawlConfig{
			SourceBaseURL:       getEnv("SOURCE_BASE_URL", "https://www.zfurniture.com"),
			Categories:          DefaultCategories(),
			MaxPagesPerCategory: maxPages,
			PageDelay:           time.Duration(pageDelayMs) * time.Millisecond,
			CategoryDelay:       time.Duration(categoryDelayMs) * time.Millisecond,
			DetailBatchSize:     detailBatch,
			DetailBatchDelay:    time.Duration(detailDelayMs) * time.Millisecond,
			InsertBatchSize:     insertBatch,
			FeaturedLimit:       featuredLimit,
			FeaturedScanLimit:   featuredScan,
			RequestTimeout:      time.Duration(requestTimeoutSec) * time.Second,
		},
	}
}

// DefaultCategories enumerates the supplier listing pages. The source site is
// inconsistent about path casing, so several categories appear twice; the
// importer de-duplicates products globally by store id so the variants only
// add resilience, never duplicates.
func DefaultCategories() []CategoryPage {
	sub := func(s string) *string { return &s }
	return []CategoryPage{
		{Path: "/living-room.html", Category: "Living Room"},
		{Path: "/Living-Room.html", Category: "Living Room"},
		{Path: "/sofas.html", Category: "Living Room", Subcategory: sub("Sofas")},
		{Path: "/sectionals.html", Category: "Living Room", Subcategory: sub("Sectionals")},
		{Path: "/loveseats.html", Category: "Living Room", Subcategory: sub("Loveseats")},
		{Path: "/recliners.html", Category: "Living Room", Subcategory: sub("Recliners")},
		{Path: "/coffee-tables.html", Category: "Living Room", Subcategory: sub("Coffee Tables")},
		{Path: "/tv-stands.html", Category: "Living Room", Subcategory: sub("TV Stands")},
		{Path: "/bedroom.html", Category: "Bedroom"},
		{Path: "/Bedroom.html", Category: "Bedroom"},
		{Path: "/beds.html", Category: "Bedroom", Subcategory: sub("Beds")},
		{Path: "/mattresses.html", Category: "Bedroom", Subcategory: sub("Mattresses")},
		{Path: "/dressers.html", Category: "Bedroom", Subcategory: sub("Dressers")},
		{Path: "/nightstands.html", Category: "Bedroom", Subcategory: sub("Nightstands")},
		{Path: "/dining-room.html", Category: "Dining Room"},
		{Path: "/Dining-Room.html", Category: "Dining Room"},
		{Path: "/dining-sets.html", Category: "Dining Room", Subcategory: sub("Dining Sets")},
		{Path: "/dining-tables.html", Category: "Dining Room", Subcategory: sub("Dining Tables")},
		{Path: "/barstools.html", Category: "Dining Room", Subcategory: sub("Barstools")},
		{Path: "/office.html", Category: "Office"},
		{Path: "/desks.html", Category: "Office", Subcategory: sub("Desks")},
		{Path: "/office-chairs.html", Category: "Office", Subcategory: sub("Office Chairs")},
		{Path: "/accessories.html", Category: "Accessories"},
		{Path: "/rugs.html", Category: "Accessories", Subcategory: sub("Rugs")},
		{Path: "/lighting.html", Category: "Accessories", Subcategory: sub("Lighting")},
		{Path: "/new-arrivals.html", Category: "New Arrivals"},
		{Path: "/New-Arrivals.html", Category: "New Arrivals"},
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.Product{},
		&models.ProductImage{},
		&models.ProductColor{},
		&models.ProductTexture{},
		&models.ProductVariation{},
		&models.ProductFeature{},
		&models.CompetitorScan{},
		&models.CompetitorPrice{},
	); err != nil {
		return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
