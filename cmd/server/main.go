/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the budget engine server. Handles configuration,
  dependency injection, background sync, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment)
  2. Open the SQLite store and pull the persisted snapshot
  3. Build the in-memory allocation store from the snapshot
  4. Create the API handler and background sync scheduler
  5. Start the server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the sync scheduler
  4. Close the database connection
  5. Exit

ENVIRONMENT:
  PORT                   HTTP server port (default: 8080)
  DB_PATH                SQLite database path (default: budget.db)
                         Use ":memory:" for an in-memory database
  CURRENCY               ISO currency code for fresh budgets (default: GBP)
  CORS_ORIGINS           Comma-separated allowed origins
  SYNC_INTERVAL_SECONDS  Background push interval (default: 30)
  ENV                    "production" switches to JSON log output

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/budget-engine/api"
	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/config"
	"github.com/warp/budget-engine/money"
	"github.com/warp/budget-engine/store/sqlite"
)

func main() {
	// Logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if os.Getenv("ENV") != "production" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Persistence
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Seed the in-memory store from the persisted snapshot, or start
	// fresh when the database is empty.
	store, err := loadStore(db, cfg.Currency)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load budget snapshot")
	}

	handler := api.NewHandler(store, db, db, log)

	syncer := api.NewSyncScheduler(store, db, log)
	syncer.Interval = cfg.SyncInterval
	handler.OnStoreReplaced = syncer.Rebind
	syncer.Start()

	router := api.NewRouter(handler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("db", cfg.DBPath).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	syncer.Stop()

	log.Info().Msg("Server stopped")
}

// loadStore pulls the persisted snapshot, falling back to an empty
// budget in the configured currency when none exists yet.
func loadStore(db *sqlite.Store, currency string) (*budget.AllocationStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, err := db.Pull(ctx)
	if err != nil {
		if errors.Is(err, budget.ErrNoSnapshot) {
			return budget.NewStore(money.Zero(currency)), nil
		}
		return nil, err
	}
	return budget.NewStoreFromSnapshot(snap), nil
}
