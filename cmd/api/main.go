package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/peakplanner/peakplanner_core/internal/api"
	"github.com/peakplanner/peakplanner_core/internal/cache"
	"github.com/peakplanner/peakplanner_core/internal/db"
	"github.com/peakplanner/peakplanner_core/internal/graph"
	"github.com/peakplanner/peakplanner_core/internal/middleware"
	"github.com/peakplanner/peakplanner_core/internal/output"
	"github.com/peakplanner/peakplanner_core/internal/region"
)

func main() {
	regionPath := flag.String("region", "", "Path to region spec JSON (optional)")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Println("Usage: peakplanner-api [--region=spec.json] <network.geojson> <hikes.json>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log.Println("Starting Peak Planner API server...")

	var reg *region.Region
	if *regionPath != "" {
		var err error
		reg, err = region.Load(*regionPath)
		if err != nil {
			log.Fatalf("Failed to load region spec: %v", err)
		}
	}

	g, err := graph.LoadNetwork(flag.Arg(0), reg)
	if err != nil {
		log.Fatalf("Failed to load network: %v", err)
	}
	log.Printf("✓ Network loaded: %d vertices, %d edges", g.NumVertices(), g.NumEdges())

	hikes, err := output.ReadHikeList(flag.Arg(1))
	if err != nil {
		log.Fatalf("Failed to load hikes: %v", err)
	}
	log.Printf("✓ Hike list loaded: %d hikes", len(hikes))

	// Redis and Postgres are optional: without them the server computes
	// every plan from scratch and disables persistence.
	useCache := false
	if getEnv("CACHE_ENABLED", "true") == "true" {
		if _, err := cache.GetClient(); err != nil {
			log.Printf("Warning: Redis unavailable, caching disabled: %v", err)
		} else {
			useCache = true
			defer cache.Close()
			log.Println("✓ Redis connection established")
		}
	}

	useDB := false
	if getEnv("DB_ENABLED", "false") == "true" {
		pool, err := db.GetDB()
		if err != nil {
			log.Printf("Warning: database unavailable, persistence disabled: %v", err)
		} else {
			if err := db.EnsureSchema(context.Background(), pool); err != nil {
				log.Fatalf("Failed to ensure schema: %v", err)
			}
			useDB = true
			defer db.Close()
			log.Println("✓ Database connection established")
		}
	}

	server := api.NewServer(g, hikes, useCache, useDB)

	app := fiber.New(fiber.Config{
		AppName:      "Peak Planner API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	if useCache {
		rdb, _ := cache.GetClient()
		app.Use(middleware.RateLimit(rdb, middleware.DefaultLimits))
	}

	app.Get("/health", server.Health)
	app.Get("/v1/peaks", server.Peaks)
	app.Get("/v1/hikes", server.Hikes)
	app.Get("/v1/plan", server.Plan)
	app.Post("/v1/plans", server.SavePlan)
	app.Get("/v1/plans", server.ListPlans)
	app.Get("/v1/plans/:id", server.GetSavedPlan)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	port := getEnv("API_PORT", "8080")
	addr := fmt.Sprintf(":%s", port)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("Server listening on http://localhost%s", addr)
	log.Printf("Plan search: http://localhost%s/v1/plan?loops_only=true", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// customErrorHandler handles errors returned from handlers
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
