package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/houstoncardinal/home-source-evolve-sub000/internal/clients"
	"github.com/houstoncardinal/home-source-evolve-sub000/internal/config"
	"github.com/houstoncardinal/home-source-evolve-sub000/internal/events"
	"github.com/houstoncardinal/home-source-evolve-sub000/internal/handlers"
	"github.com/houstoncardinal/home-source-evolve-sub000/internal/middleware"
	"github.com/houstoncardinal/home-source-evolve-sub000/internal/repository"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		redisOpts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	redisClient := redis.NewClient(redisOpts)

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
	} else {
		log.Println("✓ Redis connected successfully")
	}
	cancel()

	// Initialize repository
	catalogRepo := repository.NewCatalogRepository(db, redisClient, cfg.Crawl.InsertBatchSize, logger)

	// Initialize event publisher for audit trail only if NATS_URL is set
	var eventsPublisher *events.Publisher
	if os.Getenv("NATS_URL") != "" {
		var err error
		eventsPublisher, err = events.NewPublisher(logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}
	defer eventsPublisher.Close()

	// Initialize clients
	scrapeClient := clients.NewScrapeClient(cfg.ScrapeAPIURL, cfg.ScrapeAPIKey)
	var llmClient handlers.ChatCompleter
	if cfg.AIAPIKey != "" {
		llmClient = clients.NewLLMClient(cfg.AIAPIURL, cfg.AIAPIKey, cfg.AIModel)
		log.Println("✓ AI matching enabled")
	} else {
		log.Println("AI_API_KEY not set, competitor scans will run without AI matching")
	}

	// Initialize handlers (events may be nil if NATS not configured)
	var scanEvents handlers.ScanEventPublisher
	if eventsPublisher != nil {
		scanEvents = eventsPublisher
	}
	competitorHandler := handlers.NewCompetitorHandler(catalogRepo, scrapeClient, llmClient, scanEvents, logger)
	storefrontHandler := handlers.NewStorefrontHandler(catalogRepo, logger)
	exportHandler := handlers.NewExportHandler(catalogRepo, logger)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	// Health check endpoints
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.HealthCheck)

	// API routes
	api := router.Group("/api/v1")
	{
		api.POST("/competitor-scan", competitorHandler.ScanCompetitor)
		api.POST("/products/export", exportHandler.ExportProducts)

		// Public storefront endpoints (no auth required)
		storefront := api.Group("/storefront")
		{
			storefront.GET("/products", storefrontHandler.GetProducts)
			storefront.GET("/products/:slug", storefrontHandler.GetProduct)
			storefront.GET("/categories", storefrontHandler.GetCategories)
		}
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Catalog service starting on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	log.Println("Shutting down catalog-service...")
	log.Println("Catalog service stopped")
}
