package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/skarn-data/alteration.report/internal/analysis"
	"github.com/skarn-data/alteration.report/internal/api"
	"github.com/skarn-data/alteration.report/internal/config"
	"github.com/skarn-data/alteration.report/internal/db"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	dbFile     = flag.String("db", "alteration.db", "Path to the SQLite database")
	configFile = flag.String("config", "", "Path to a tuning config JSON file (optional)")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := config.EmptyTuningConfig()
	if *configFile != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if err := database.MigrateUp(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	store := db.NewRunStore(database)
	registry := analysis.DefaultRegistry(nil)

	worker := db.NewAnalysisWorker(store, registry)
	worker.Interval = cfg.GetPollInterval()
	worker.BatchSize = cfg.GetRunBatchSize()
	worker.Start()
	defer worker.Stop()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(store, registry).ServeMux()

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
}
