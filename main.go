// Command reanchord runs the anchor relocalization engine with its HTTP
// surface. Sensor callbacks and saved records arrive over the API; commits
// are applied on a single scene-owning goroutine, mirroring how a render
// thread would consume them in an embedding application.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/reanchor/internal/api"
	"github.com/banshee-data/reanchor/internal/config"
	"github.com/banshee-data/reanchor/internal/db"
	"github.com/banshee-data/reanchor/internal/monitoring"
	"github.com/banshee-data/reanchor/internal/relocate"
	"github.com/banshee-data/reanchor/internal/relocate/monitor"
	storage "github.com/banshee-data/reanchor/internal/relocate/storage/sqlite"
	"github.com/banshee-data/reanchor/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	dbFile        = flag.String("db", "anchors.db", "Session database path")
	configFile    = flag.String("config", "", "Tuning config JSON (defaults applied when empty)")
	migrationsDir = flag.String("migrations", "migrations", "Schema migrations directory")
	precision     = flag.Bool("precision", false, "Use the depth-assisted scanning strategy")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("reanchord %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := config.EmptyTuningConfig()
	if *configFile != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configFile)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if err := database.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The scene-owning goroutine is the only mutator of the entity store.
	sceneCh := make(chan func(), 128)

	session := relocate.NewSession(relocate.SessionConfig{
		Strategy: strategyFromConfig(cfg, *precision),
		Retry: relocate.RetryQueueConfig{
			Interval:    cfg.GetRetryInterval(),
			Batch:       cfg.GetRetryBatch(),
			MaxAttempts: cfg.GetMaxAttempts(),
			SlowFactor:  cfg.GetSlowRetryFactor(),
		},
		Dispatch: func(f func()) {
			select {
			case sceneCh <- f:
			case <-ctx.Done():
			}
		},
	})

	records := storage.NewRecordStore(database.DB)
	placements := storage.NewPlacementLog(database.DB)

	// Audit every commit. AnchorPlaced fires on the scene goroutine, so
	// the write happens off the sensor and retry paths.
	session.AddListener(relocate.ListenerFuncs{
		OnAnchorPlaced: func(anchor relocate.PlacedAnchor) {
			if err := placements.Append(context.Background(), anchor); err != nil {
				monitoring.Logf("main: failed to log placement %s: %v", anchor.ID, err)
			}
		},
	})

	apiServer := api.NewServer(session, records, cfg)
	mux := apiServer.ServeMux()
	monitor.NewCharts(session, placements).Register(mux)

	httpServer := &http.Server{Addr: *listen, Handler: mux}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case f := <-sceneCh:
				f()
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("reanchord listening on %s (db=%s)", *listen, *dbFile)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	session.Reset()
	wg.Wait()

	os.Exit(0)
}

// strategyFromConfig builds the scanning strategy from tuning values,
// starting from the standard or precision preset.
func strategyFromConfig(cfg *config.TuningConfig, precision bool) relocate.ScanningStrategy {
	strategy := relocate.StandardStrategy()
	if precision || cfg.GetPrecisionMode() {
		strategy = relocate.PrecisionStrategy()
	} else {
		strategy.MinSurfaces = cfg.GetMinSurfaces()
		strategy.RequiredCoverage = cfg.GetRequiredCoverage()
		strategy.MinConfidentSurfaces = cfg.GetMinConfidentSurfaces()
	}
	return strategy
}
