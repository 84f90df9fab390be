package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/sola-scriptura-text-search/internal/bootstrap"
	"github.com/sola-scriptura-text-search/internal/config"
	"github.com/sola-scriptura-text-search/internal/events"
	"github.com/sola-scriptura-text-search/internal/handlers"
	"github.com/sola-scriptura-text-search/internal/metrics"
	"github.com/sola-scriptura-text-search/internal/middleware"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	// Get configuration
	cfg := config.GetConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(cfg.Level())

	// Middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSMiddleware(cfg))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Open storage
	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s storage: %v", cfg.StorageBackend, err)
	}
	if store != nil {
		log.Printf("Using %s storage", store.Backend())
	}

	// Build the library and index
	m := metrics.New()
	stack, err := bootstrap.NewStack(cfg, m, e.Logger)
	if err != nil {
		log.Fatalf("Failed to open text index: %v", err)
	}
	if err := stack.Load(ctx, cfg.CorpusPaths, store); err != nil {
		log.Fatalf("Failed to load bibles: %v", err)
	}
	docs, _ := stack.Index.DocCount(ctx)
	log.Printf("Loaded %d bibles, %d verses indexed", stack.Library.Len(), docs)

	// Follow changes made by other processes
	var rdb *redis.Client
	if cfg.RedisURL != "" && store != nil {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opts)
		sub := events.NewSubscriber(rdb, cfg.RedisChannel, store, stack.Library, m, e.Logger)
		go func() {
			if err := sub.Run(ctx); err != nil {
				log.Printf("Change events stopped: %v", err)
			}
		}()
		log.Printf("Listening for changes on %s", cfg.RedisChannel)
	}

	// Create API group with prefix
	api := e.Group(cfg.APIPrefix)

	// Register handlers
	healthHandler := handlers.NewHealthHandler(stack.Index, stack.Library.Len)
	healthHandler.RegisterRoutes(api)

	searchHandler := handlers.NewSearchHandler(stack.Search, cfg.CORSOrigins)
	searchHandler.RegisterRoutes(api)

	biblesHandler := handlers.NewBiblesHandler(stack.Library)
	biblesHandler.RegisterRoutes(api)

	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	// Root health check
	e.GET("/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"name":    cfg.APITitle,
			"version": cfg.APIVersion,
			"status":  "running",
		})
	})

	// Start server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Printf("Starting %s v%s on %s", cfg.APITitle, cfg.APIVersion, addr)
		if err := e.Start(addr); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Printf("Error closing redis: %v", err)
		}
	}

	if err := stack.Close(); err != nil {
		log.Printf("Error closing text index: %v", err)
	}

	if store != nil {
		if err := store.Close(); err != nil {
			log.Printf("Error closing %s: %v", store.Backend(), err)
		}
	}

	log.Println("Server stopped")
}
