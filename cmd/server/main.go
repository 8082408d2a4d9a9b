/*
main.go - Application entry point

PURPOSE:

	Initializes and starts the astreinte planning server. Handles
	configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
 1. Parse command-line flags and load configuration
 2. Configure structured logging
 3. Initialize SQLite store (auto-migrates)
 4. Wire the scheduling engine (resolver, generator, detector, workflow)
 5. Configure HTTP router
 6. Start the conflict sweeper and the server with graceful shutdown

COMMAND-LINE FLAGS:

	-port    HTTP server port (overrides config)
	-db      SQLite database path (overrides config)
	         Use ":memory:" for an in-memory database
	-config  Path to the YAML configuration file (default: config.yaml)
	-demo    Enable the /api/scenarios endpoints (development only)

GRACEFUL SHUTDOWN:

	On SIGINT/SIGTERM:
	1. Stop the conflict sweeper
	2. Stop accepting new connections
	3. Wait for active requests to complete (configurable timeout)
	4. Close database connection
	5. Exit

EXAMPLES:

	# Run with file database
	./server -db="./data/astreinte.db"

	# Run with in-memory database and demo scenarios
	./server -db=":memory:" -demo

ENVIRONMENT:

	ASTREINTE_PORT, ASTREINTE_DB, ASTREINTE_LOG_LEVEL and
	ASTREINTE_LOG_FORMAT override the file configuration. A .env file is
	honored if present.

SEE ALSO:
  - config/config.go: Configuration loading
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
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
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/api"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/astreinte"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/config"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/indispo"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	configPath := flag.String("config", "config.yaml", "Configuration file path")
	demo := flag.Bool("demo", false, "Enable demo scenario endpoints")
	flag.Parse()

	// Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	// Logging
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(lvl)
	}
	if cfg.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	// Store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	// The store is the directory of record; reads go through a
	// short-lived cache because generation hammers the topology.
	directory := org.NewCached(store, cfg.Directory.CacheTTL)

	// Scheduling engine
	registry := &indispo.Registry{Store: store, Directory: directory}
	resolver := &astreinte.Resolver{
		Directory: directory,
		Plannings: store,
		Dispos:    registry,
	}
	generator := &astreinte.Generator{
		Resolver:  resolver,
		Directory: directory,
		Calendar:  store,
	}
	// A margin of one garde keeps the surcharge detector quiet on the
	// off-by-one splits every odd-sized rotation produces.
	detector := &astreinte.Detector{
		Directory:       directory,
		Plannings:       store,
		Dispos:          registry,
		Calendar:        store,
		SurchargeMargin: decimal.NewFromInt(1),
	}
	workflow := &astreinte.Workflow{
		Plannings: store,
		Directory: directory,
		Generator: generator,
		Detector:  detector,
	}

	// HTTP layer
	handler := api.NewHandler(workflow, detector, registry, directory, store, log)
	if *demo {
		handler.Seed = store
		log.Warn("Demo scenario endpoints enabled")
	}
	router := api.NewRouter(handler)

	// Background conflict sweep over published plannings
	sweeper := api.NewConflictSweeper(store, detector, log)
	sweeper.CheckInterval = cfg.Sweeper.Interval
	sweeper.Enabled = cfg.Sweeper.Enabled
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port": cfg.Server.Port,
			"db":   cfg.Database.Path,
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server stopped")
}
