// Command vitalpipe runs the health-data ingestion and batch-persistence
// core: an HTTP server accepting payloads, a bounded background worker
// pool draining deferred ingestions, and the Prometheus metrics sink
// both paths report into.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitalpipe/ingest/internal/api"
	"github.com/vitalpipe/ingest/internal/config"
	"github.com/vitalpipe/ingest/internal/coordinator"
	"github.com/vitalpipe/ingest/internal/dispatch"
	"github.com/vitalpipe/ingest/internal/logutil"
	"github.com/vitalpipe/ingest/internal/metricssink"
	"github.com/vitalpipe/ingest/internal/planner"
	"github.com/vitalpipe/ingest/internal/queue"
	"github.com/vitalpipe/ingest/internal/store"
	"github.com/vitalpipe/ingest/internal/upsert"
)

const shutdownTimeout = 30 * time.Second

func main() {
	yamlPath := flag.String("config.file", "", "Path to a YAML config file")
	logLevel := flag.String("log.level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	logger := logutil.New(*logLevel)

	cfg, err := config.Load(flag.Args(), *yamlPath)
	if err != nil {
		level.Error(logger).Log("msg", "failed loading config", "err", err)
		os.Exit(1)
	}

	// Fail-fast: refuse to serve traffic if any configured chunk-size
	// override could violate the parameter ceiling (spec.md §4.1).
	if err := planner.ValidateStartup(cfg.Batch); err != nil {
		level.Error(logger).Log("msg", "unsafe batch configuration, refusing to start", "err", err)
		os.Exit(1)
	}

	// Fail-fast: every known family must have a registered handler before
	// the process accepts a single request (spec.md §9, "unknown family
	// silently dropped").
	if err := dispatch.RegisterAllFamilyHandlers(); err != nil {
		level.Error(logger).Log("msg", "family handler registration incomplete, refusing to start", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		level.Error(logger).Log("msg", "invalid database dsn", "err", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		level.Error(logger).Log("msg", "failed to create connection pool", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	sink := metricssink.NewPrometheus(reg)

	rawStore := store.NewPGXStore(pool)
	upserter := upsert.New(pool, cfg.Batch, cfg.Database, sink, logger)
	dispatcher := dispatch.New(upserter, *cfg, sink, logger)

	workQueue := queue.NewChannel(cfg.Batch.BlockingPoolThreshold)
	coord := coordinator.New(rawStore, dispatcher, workQueue, *cfg, logger)

	workers := startBackgroundWorkers(ctx, coord, workQueue, logger)

	handler := api.NewHandler(coord, rawStore, logger)
	router := mux.NewRouter()
	handler.Register(router)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:    cfg.Server.HTTPListenAddr,
		Handler: router,
	}

	go func() {
		level.Info(logger).Log("msg", "starting http server", "addr", cfg.Server.HTTPListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			level.Error(logger).Log("msg", "http server error", "err", err)
		}
	}()

	waitForShutdownSignal()
	level.Info(logger).Log("msg", "shutdown signal received, draining in-flight work")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		level.Error(logger).Log("msg", "http server shutdown error", "err", err)
	}

	// Stop accepting new background work and wait, up to the shutdown
	// timeout, for in-flight background ingestions to reach the Reconciler
	// before cancelling the workers' context and exiting
	// (spec.md silence on shutdown, supplemented per SPEC_FULL.md §9).
	workQueue.Close()
	drained := make(chan struct{})
	go func() {
		workers.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		level.Warn(logger).Log("msg", "shutdown timeout reached before background queue drained")
	}
	cancel()
	level.Info(logger).Log("msg", "shutdown complete")
}

// startBackgroundWorkers starts a small fixed pool draining the deferred
// ingestion queue, each running the same Coordinator.ProcessBackground
// path a synchronous request would.
func startBackgroundWorkers(ctx context.Context, coord *coordinator.Coordinator, workQueue *queue.Channel, logger log.Logger) *sync.WaitGroup {
	const workerCount = 4
	var wg sync.WaitGroup
	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func(workerID int) {
			defer wg.Done()
			for job := range workQueue.Jobs() {
				if err := coord.ProcessBackground(ctx, job); err != nil {
					level.Error(logger).Log("msg", "background ingestion failed", "worker", workerID, "raw_ingestion_id", job.RawIngestionID, "err", err)
				}
			}
		}(i)
	}
	return &wg
}

func waitForShutdownSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}
