// main.go
package main

import (
	"context"
	"log"

	"cinema-reservation/cmd"
	"cinema-reservation/internal/data/repository"
	"cinema-reservation/internal/queue"
	"cinema-reservation/internal/wire"
	"cinema-reservation/pkg/database"
	"cinema-reservation/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Redis hanya dipakai untuk rate limiting
	var rdb *redis.Client
	if config.RateLimit.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("Redis unavailable, rate limiting will fail open", zap.Error(err))
		}
		defer rdb.Close()
	}

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Event publisher for paid reservations
	notifier := queue.NewPublisher(config.Queue.URL, logger)

	// Wire all dependencies
	app := wire.Wiring(db, repos, config, notifier, rdb, logger)

	// Background sweeper for lapsed holds
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	app.Sweeper.Start(sweepCtx)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	cmd.APIServer(app.Router, config.App.Port, func() {
		stopSweep()
		app.Sweeper.Stop()
		logger.Info("Sweeper stopped")
	})
}
