// Package main is the entry point for the card gateway service. It
// initializes the database, cache and processor client, then serves the
// HTTP API.
package main

import (
	"context"
	"log"
	"time"

	"cardgate/internal/config"
	"cardgate/internal/repositories"
	"cardgate/internal/repositories/cache"
	"cardgate/internal/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadEnv()

	poolCfg := repositories.DefaultDBConfig()
	poolCfg.MaxIdleConns = config.GetIntEnv("DB_MAX_IDLE_CONNS", poolCfg.MaxIdleConns)
	poolCfg.MaxOpenConns = config.GetIntEnv("DB_MAX_OPEN_CONNS", poolCfg.MaxOpenConns)
	if d, err := time.ParseDuration(config.GetEnv("DB_CONN_MAX_LIFETIME", "1h")); err == nil {
		poolCfg.ConnMaxLifetime = d
	}
	if d, err := time.ParseDuration(config.GetEnv("DB_CONN_MAX_IDLE_TIME", "30m")); err == nil {
		poolCfg.ConnMaxIdleTime = d
	}

	db, err := repositories.InitDB(poolCfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Printf("Failed to close database connection: %v", err)
		}
	}()

	redisClient := cache.NewRedisClient(&cache.RedisConfig{
		Host:     config.GetEnv("REDIS_HOST", "localhost"),
		Port:     config.GetEnv("REDIS_PORT", "6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       config.GetIntEnv("REDIS_DB", 0),
	})
	cacheService := cache.NewCacheService(redisClient, 24*time.Hour)
	if err := cacheService.HealthCheck(context.Background()); err != nil {
		log.Printf("Redis unavailable, card lookups will hit the database: %v", err)
	}
	defer func() {
		if err := cacheService.Close(); err != nil {
			log.Printf("Failed to close Redis connection: %v", err)
		}
	}()

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,DELETE",
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Charging endpoints get a per-client rate cap; the processor applies
	// no backpressure of its own.
	app.Use("/api/cards", limiter.New(limiter.Config{
		Max:        config.GetIntEnv("RATE_LIMIT_MAX", 30),
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	routes.SetupRoutes(app, db, cacheService)

	log.Fatal(app.Listen(":" + config.GetEnv("PORT", "3000")))
}
