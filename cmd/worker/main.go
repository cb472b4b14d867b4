package main

import (
	"database/sql"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/stanzacms/stanza/db"
	"github.com/stanzacms/stanza/internal/config"
	"github.com/stanzacms/stanza/router"
	"github.com/stanzacms/stanza/workers"
)

func main() {
	log.Println("Starting workers...")

	// Load Config
	configPath := os.Getenv("STANZA_CONFIG_PATH")

	if err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Database connection
	if config.App.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable (or config) is required")
	}

	pg, err := sql.Open("postgres", config.App.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pg.Close()

	// Test database connection
	if err := pg.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Set timezone to UTC for consistent time handling
	if _, err := pg.Exec("SET TIME ZONE 'UTC'"); err != nil {
		log.Printf("Failed to set timezone to UTC: %v", err)
	} else {
		log.Println("  Set database timezone to UTC")
	}

	log.Println("  Connected to database successfully")

	// Redis connection: the count warmer is pointless without a cache
	if config.App.RedisURL == "" {
		log.Fatal("REDIS_URL environment variable (or config) is required")
	}

	opts, err := redis.ParseURL(config.App.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse redis URL: %v", err)
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	// Build a repository per mounted module over the shared connections
	repos := make([]*db.ModuleRepository, 0)
	for _, schema := range router.ModuleSchemas() {
		repo, err := db.NewModuleRepository(pg, rdb, schema)
		if err != nil {
			log.Fatalf("Failed to build repository for %s: %v", schema.Table, err)
		}
		repos = append(repos, repo)
	}

	// Initialize workers
	countWarmer := workers.NewCountWarmer(repos, time.Minute)
	activityPruner := workers.NewActivityPruner(pg, 90*24*time.Hour)

	// Start workers in separate goroutines
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("Starting count warmer...")
		countWarmer.StartCountWarmer()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("Starting activity pruner...")
		activityPruner.StartActivityPruner()
	}()

	// Wait for interrupt signal
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	log.Println("Workers started successfully. Press Ctrl+C to stop.")
	<-c

	log.Println("Shutting down workers...")
	// Workers stop when the main goroutine exits
}
