package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	v1 "github.com/itad-lab/itad-metrics/internal/api/v1"
	corecfg "github.com/itad-lab/itad-metrics/internal/core/config"
	"github.com/itad-lab/itad-metrics/internal/core/metrics"
	"github.com/itad-lab/itad-metrics/internal/core/storage"
	"github.com/itad-lab/itad-metrics/internal/core/storage/memory"
	"github.com/itad-lab/itad-metrics/internal/core/storage/postgres"
	"github.com/itad-lab/itad-metrics/internal/export/protobuf"
	"github.com/itad-lab/itad-metrics/internal/index"
	"github.com/itad-lab/itad-metrics/internal/ingestion"
	"github.com/itad-lab/itad-metrics/internal/kpi"
	"github.com/itad-lab/itad-metrics/internal/migrations"
	"github.com/itad-lab/itad-metrics/internal/projection"
	"github.com/itad-lab/itad-metrics/internal/rollup"
	"github.com/itad-lab/itad-metrics/internal/server"
	"github.com/itad-lab/itad-metrics/internal/snapshot"
)

func main() {
	configPath := flag.String("config", "itad.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config", "config", cfg.Redacted())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Initialize Storage
	var (
		backend storage.RecordStore
		archive storage.SnapshotArchive
		pinger  server.HealthChecker
	)
	switch cfg.Database.Type {
	case "memory":
		slog.Warn("Using in-memory storage; records and snapshots are lost on restart")
		backend = memory.NewRecordStore()
		archive = memory.NewSnapshotArchive()
	default:
		dbAdapter, err := postgres.NewAdapter(
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
		)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer dbAdapter.Close()

		// 2.1. Run Database Migrations, then prepare statements against the migrated schema
		if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}
		if err := dbAdapter.Prepare(); err != nil {
			slog.Error("Failed to prepare database statements", "error", err)
			os.Exit(1)
		}

		backend = dbAdapter
		archive = postgres.NewSnapshotArchiveAdapter(dbAdapter.DB())
		pinger = dbAdapter
	}

	// 3. Load Metric Catalog
	catalog, err := metrics.LoadCatalog(cfg.Catalog.Dir)
	if err != nil {
		slog.Error("Failed to load metric catalog", "dir", cfg.Catalog.Dir, "error", err)
		os.Exit(1)
	}

	// 4. Initialize Record Store and replay the durable log
	enums := v1.NewEnums(cfg.Records.ExtraDeviceTypes)
	ix := index.New()
	store := ingestion.NewStore(backend, ix)
	replayed, err := store.Replay(ctx, cfg.Ingestion.ReplayPageSize)
	if err != nil {
		slog.Error("Failed to replay records", "error", err)
		os.Exit(1)
	}
	slog.Info("Record store ready", "records", replayed, "version", store.Version())

	// 5. Initialize Rollups, KPIs and the Snapshot Publisher
	calculator := rollup.NewCalculator(ix, enums, rollup.Options{
		WindowMonths: cfg.Reporting.WindowMonths,
		Workers:      cfg.Publish.Workers,
	})
	composer := kpi.NewComposer(kpi.Valuation{
		MaterialValuePerKg: cfg.Valuation.MaterialValue(),
		CarbonKgPerCar:     cfg.Valuation.CarbonPerCar(),
	}, catalog)
	publisher := snapshot.NewPublisher(store, calculator, composer, archive, snapshot.Options{
		Timeout:     cfg.Publish.TimeoutDuration(),
		HistorySize: cfg.Publish.HistorySize,
	})
	if err := publisher.Restore(ctx); err != nil {
		// Not fatal: the first publish cycle rebuilds everything from the records.
		slog.Warn("Failed to restore archived snapshot", "error", err)
	}
	scheduler := snapshot.NewScheduler(cfg.Publish.IntervalDuration(), publisher)

	slog.Info("Snapshot publisher initialized",
		"interval", cfg.Publish.IntervalDuration(),
		"timeout", cfg.Publish.TimeoutDuration(),
		"on_ingest", cfg.Publish.OnIngest,
		"window_months", cfg.Reporting.WindowMonths,
		"metrics", len(catalog.List()),
	)

	// 6. Initialize Ingestion
	ingestionSvc := ingestion.NewService(store, enums, cfg.Ingestion.MaxBodySizeMB, cfg.Ingestion.MaxBatchSize)
	ingestionSvc.SetLimits(v1.Limits{
		EarliestDate:  cfg.Records.Earliest(),
		MaxFutureSkew: cfg.Records.FutureSkew(),
		MaxAmount:     cfg.Records.AmountCap(),
	})
	if cfg.Publish.OnIngest {
		ingestionSvc.OnAccepted(scheduler.Trigger)
	}

	// 7. Initialize Projection (query API)
	encoder, err := protobuf.NewEncoder(ctx)
	if err != nil {
		slog.Error("Failed to compile snapshot export schema", "error", err)
		os.Exit(1)
	}
	projectionSvc := projection.NewService(publisher, encoder)

	// 8. Initialize Server
	srv := server.New(cfg.Server.Addr(), pinger, publisher, cfg.Server.Mode)
	ingestionSvc.RegisterRoutes(srv.Engine)
	projectionSvc.RegisterRoutes(srv.Engine)

	// 9. Start Services
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		if err := scheduler.Start(ctx); err != nil {
			slog.Error("Scheduler stopped with error", "error", err)
		}
	}()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
		cancel()
	}

	<-schedulerDone
	slog.Info("Shutdown complete")
}
