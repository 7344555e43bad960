/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the SUSU withdrawal engine server. Handles
  configuration, store selection, dependency injection, and graceful
  shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment, flags override)
  2. Open the store (Postgres when DATABASE_URL is set, SQLite otherwise)
  3. Create API handler with dependencies
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides SQLITE_PATH)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (SHUTDOWN_TIMEOUT, default 30s)
  3. Close the store
  4. Exit

EXAMPLES:
  # Run with a file database
  ./server -db="./data/susu.db"

  # Run against Postgres
  DATABASE_URL=postgres://... ./server

SEE ALSO:
  - config/config.go: Environment configuration
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/susu-engine/api"
	"github.com/warp/susu-engine/config"
	"github.com/warp/susu-engine/store/postgres"
	"github.com/warp/susu-engine/store/sqlite"
	"github.com/warp/susu-engine/susu"
)

func main() {
	cfg := config.Load()

	// Flags override the environment.
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.SQLitePath, "SQLite database path")
	flag.Parse()

	// Store selection: Postgres when DATABASE_URL is set, SQLite otherwise.
	var store susu.Store
	var closeStore func()
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		store = pg
		closeStore = pg.Close
		log.Println("Using Postgres store")
	} else {
		sq, err := sqlite.New(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open SQLite database: %v", err)
		}
		store = sq
		closeStore = func() { sq.Close() }
		log.Printf("Using SQLite store at %s", *dbPath)
	}
	defer closeStore()

	handler := api.NewHandler(store, cfg.Currency)
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
