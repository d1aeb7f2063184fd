package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"

	"anoa.com/pharmatrade/internal/bootstrap"
	"anoa.com/pharmatrade/internal/config"
	searchService "anoa.com/pharmatrade/internal/modules/search/service"
	"anoa.com/pharmatrade/internal/server"
	"anoa.com/pharmatrade/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := bootstrap.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := bootstrap.SeedAdminUser(ctx, db, bootstrap.AdminSeed{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}); err != nil {
		log.Fatalf("failed to seed admin user: %v", err)
	}

	redisClient := connectRedis(ctx, cfg.RedisURL)
	search := connectSearch(cfg.MeiliSearchHost, cfg.MeiliMasterKey)

	srv := server.NewServer(cfg, db, redisClient, search)
	log.Printf("pharmatrade listening on :%s (%s)", cfg.Port, cfg.AppEnv)
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

// connectRedis returns nil when Redis is not configured or unreachable, which
// disables rate limiting.
func connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		log.Println("REDIS_URL not set, rate limiting disabled")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("invalid REDIS_URL, rate limiting disabled: %v", err)
		return nil
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis unreachable, rate limiting disabled: %v", err)
		_ = client.Close()
		return nil
	}
	return client
}

func connectSearch(host, key string) searchService.Service {
	if host == "" {
		log.Println("MEILISEARCH_HOST not set, pharmacy search falls back to the database")
		return searchService.NewNoopService()
	}
	if !strings.HasPrefix(host, "http") {
		host = "http://" + host + ":7700"
	}

	client := meilisearch.New(host, meilisearch.WithAPIKey(key))
	return searchService.NewMeiliSearchService(client)
}
