package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/houstoncardinal/home-source-evolve-sub000/internal/config"
	"github.com/houstoncardinal/home-source-evolve-sub000/internal/events"
	"github.com/houstoncardinal/home-source-evolve-sub000/internal/importer"
	"github.com/houstoncardinal/home-source-evolve-sub000/internal/repository"
	"github.com/houstoncardinal/home-source-evolve-sub000/internal/scraper"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if os.Getenv("DB_SERVICE_PASSWORD") == "" {
		fmt.Fprintln(os.Stderr, "DB_SERVICE_PASSWORD is required: the import wipes and rebuilds the catalog tables and must run with the service role")
		os.Exit(1)
	}

	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Redis is only used to invalidate storefront caches after the reload.
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without cache invalidation)", err)
		redisOpts = &redis.Options{Addr: "localhost:6379"}
	}
	redisClient := redis.NewClient(redisOpts)

	var eventsPublisher *events.Publisher
	if os.Getenv("NATS_URL") != "" {
		eventsPublisher, err = events.NewPublisher(logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		}
	}
	defer eventsPublisher.Close()

	httpClient := &http.Client{Timeout: cfg.Crawl.RequestTimeout}
	extractor := scraper.NewExtractor(logger)
	crawler := scraper.NewCrawler(cfg.Crawl, httpClient, extractor, logger)
	enricher := scraper.NewEnricher(httpClient, logger)
	repo := repository.NewCatalogRepository(db, redisClient, cfg.Crawl.InsertBatchSize, logger)

	imp := importer.New(cfg.Crawl, crawler, enricher, repo, logger)

	ctx := context.Background()
	summary, err := imp.Run(ctx)
	if err != nil {
		if errors.Is(err, importer.ErrNoProducts) {
			logger.Error("Import aborted: no products found in any category, existing catalog left untouched")
		} else {
			logger.WithError(err).Error("Import failed")
		}
		os.Exit(1)
	}

	eventsPublisher.PublishImportCompleted(ctx, summary.Total, summary.Inserted, summary.Featured, summary.PerCategory)

	logger.WithFields(logrus.Fields{
		"total":    summary.Total,
		"inserted": summary.Inserted,
		"featured": summary.Featured,
	}).Info("Import completed")
}
