/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the property billing engine server. Handles
  configuration, dependency injection, the billing scheduler, and
  graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Configure structured logging
  3. Initialize SQLite store
  4. Create API handler with dependencies
  5. Start the billing scheduler (monthly generation + overdue sweep)
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS (env var fallback in parentheses):
  -port       HTTP server port (PORT, default: 8080)
  -db         SQLite database path (DB_PATH, default: property.db)
              Use ":memory:" for in-memory database
  -log-level  Log level: debug, info, warn, error (LOG_LEVEL)
  -scheduler  Enable the billing cron scheduler (default: true)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and close the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/property.db"

  # Run with in-memory database, no scheduler
  ./server -db=":memory:" -scheduler=false

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Recurring billing jobs
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/warp/property-engine/api"
	"github.com/warp/property-engine/store/sqlite"
)

func main() {
	// .env is optional; flags still win over environment values.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DB_PATH", "property.db"), "SQLite database path")
	logLevel := flag.String("log-level", envStr("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	schedulerOn := flag.Bool("scheduler", true, "Enable the billing cron scheduler")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(level)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	stores := api.Stores{
		Properties:    store,
		Obligations:   store,
		Readings:      store,
		Payments:      store,
		Finance:       store,
		Notifications: store,
	}

	handler := api.NewHandler(stores, log)
	router := api.NewRouter(handler)

	var scheduler *api.BillingScheduler
	if *schedulerOn {
		scheduler = api.NewBillingScheduler(stores, handler.Schedule, log)
		if err := scheduler.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start billing scheduler")
		}
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", *port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}
	if scheduler != nil {
		scheduler.Stop()
	}

	log.Info("Server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
