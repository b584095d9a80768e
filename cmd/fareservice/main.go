package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"transit-fares/internal/batch"
	"transit-fares/internal/broker"
	"transit-fares/internal/config"
	"transit-fares/internal/db"
	"transit-fares/internal/fares"
	"transit-fares/internal/fares/regional"
	"transit-fares/internal/faresv2"
	"transit-fares/internal/itinerary"
	"transit-fares/internal/metrics"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metrics setup
	var mcol *metrics.Collector
	var metricsSrvCancel context.CancelFunc
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.CatalogRefreshInterval, cfg.BatchConcurrency)
		mctx, mcancel := context.WithCancel(ctx)
		metricsSrvCancel = mcancel
		srv := mcol.Serve(cfg.MetricsAddr)
		go func() {
			<-mctx.Done()
			// Shutdown with timeout
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Resolve the feed database (latest import for CITY) and load its fare catalogs
	dsn, imp, err := db.ResolveFeedDSN(ctx, cfg.DatabaseURL, cfg.City)
	if err != nil {
		fatal(logger, "resolve feed database", "city", cfg.City, "err", err)
	}
	sqlDB, svc, err := loadService(ctx, dsn, cfg, logger, mcol)
	if err != nil {
		fatal(logger, "load fares", "db", imp.DBName, "err", err)
	}
	live := &liveService{}
	live.Store(svc)
	if mcol != nil {
		mcol.CatalogReloads.WithLabelValues("startup").Inc()
	}
	logger.Info("fare catalogs loaded", "db", imp.DBName, "imported_at", imp.ImportedAt, "region", cfg.Region)

	// NATS request/reply
	client, err := broker.Connect(cfg.NATSURL, cfg.LogNATSSubjects, wrapBrokerMetrics(mcol), logger)
	if err != nil {
		fatal(logger, "nats connect", "url", cfg.NATSURL, "err", err)
	}
	defer client.Close()
	pool := batch.NewPool(live, cfg.BatchConcurrency, wrapBatchMetrics(mcol), logger)
	responder := broker.NewResponder(client, cfg.NATSSubjectPrefix, cfg.FeedID, live, pool)
	if err := responder.Start(ctx); err != nil {
		fatal(logger, "nats subscribe", "err", err)
	}

	// Periodic catalog watcher: reload on ping failure or when a newer import appears
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(cfg.CatalogRefreshInterval)
		defer ticker.Stop()
		currentDBName := imp.DBName
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			reason := ""
			if err := db.Ping(ctx, sqlDB); err != nil {
				logger.Warn("db ping failed, reloading fare catalogs", "db", currentDBName, "err", err)
				reason = "ping_failure"
			}
			targetDSN := dsn
			next := imp
			if cfg.City != "" {
				newDSN, newImp, err := db.ResolveFeedDSN(ctx, cfg.DatabaseURL, cfg.City)
				if err != nil {
					logger.Error("resolve latest import", "city", cfg.City, "err", err)
					continue
				}
				if newImp.DBName != currentDBName {
					logger.Info("detected updated feed database", "city", cfg.City, "from", currentDBName, "to", newImp.DBName)
					reason = "update"
					targetDSN, next = newDSN, newImp
				}
			}
			if reason == "" {
				continue
			}

			newDB, newSvc, err := loadService(ctx, targetDSN, cfg, logger, mcol)
			if err != nil {
				logger.Error("reload fares", "db", next.DBName, "err", err)
				continue
			}
			// Requests already priced against the old service finish with it
			live.Store(newSvc)
			sqlDB.Close()
			sqlDB, dsn, imp, currentDBName = newDB, targetDSN, next, next.DBName
			if mcol != nil {
				mcol.CatalogReloads.WithLabelValues(reason).Inc()
			}
			logger.Info("switched fare catalogs", "db", currentDBName, "reason", reason)
		}
	}()

	// Block until context cancelled
	<-ctx.Done()
	responder.Stop()
	<-done
	sqlDB.Close()
	if metricsSrvCancel != nil {
		metricsSrvCancel()
	}
	logger.Info("shutdown complete")
}

func fatal(logger *slog.Logger, msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}

// liveService routes each calculation to the service built from the newest catalog.
type liveService struct{ atomic.Pointer[fares.Service] }

func (l *liveService) Calculate(it itinerary.Itinerary) *fares.ItineraryFare {
	return l.Load().Calculate(it)
}

// loadService opens the feed database, loads its catalogs and builds a fare service.
// The returned connection stays open so the watcher can ping it.
func loadService(ctx context.Context, dsn string, cfg *config.Config, logger *slog.Logger, mcol *metrics.Collector) (*sql.DB, *fares.Service, error) {
	sqlDB, err := db.Open(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", db.Redact(dsn), err)
	}
	if err := db.Ping(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", db.Redact(dsn), err)
	}
	cats, err := db.LoadCatalogs(ctx, sqlDB, cfg.FeedID)
	if err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("load fare catalogs: %w", err)
	}
	v1, legs, transfers := cats.Rules()
	logger.Info("fare rules", "v1", v1, "v2_leg", legs, "v2_transfer", transfers)
	if mcol != nil {
		mcol.SetCatalogSize(v1, legs, transfers)
	}
	return sqlDB, buildService(cfg, cats, logger, mcol), nil
}

func buildService(cfg *config.Config, cats db.Catalogs, logger *slog.Logger, mcol *metrics.Collector) *fares.Service {
	var fm fares.Metrics
	var v2m faresv2.Metrics
	if mcol != nil {
		em := &engineMetrics{c: mcol}
		fm, v2m = em, em
	}
	matcher := fares.NewMatcher(logger, fm)

	var pricer fares.Pricer
	switch cfg.Region {
	case config.RegionPugetSound:
		pricer = regional.NewMachine(regional.PugetSound{}, matcher, logger)
	case config.RegionAtlanta:
		pricer = regional.NewMachine(regional.Atlanta{}, matcher, logger)
	case config.RegionFreeWindow:
		pricer = regional.NewFreeWindow(matcher, cfg.FreeTransferWindow, cfg.AnalyzeInterlined)
	default:
		pricer = fares.NewSearchPricer(matcher, interlinePolicy(cfg.InterlinePolicy))
	}

	opts := []fares.Option{fares.WithLogger(logger), fares.WithMetrics(fm)}
	if !cats.V2.IsEmpty() {
		opts = append(opts, fares.WithProductEngine(faresv2.NewEngine(cats.V2, faresv2.WithLogger(logger), faresv2.WithMetrics(v2m))))
	}
	return fares.NewService(cats.V1, pricer, opts...)
}

func interlinePolicy(name string) fares.InterlinePolicy {
	switch name {
	case config.InterlineAlways:
		return fares.AlwaysCombine
	case config.InterlineSameRoute:
		return fares.SameRouteCombine
	}
	return fares.NeverCombine
}
