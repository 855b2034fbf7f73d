// Package main runs the entry engine: the websocket metrics feed, the
// per-tick evaluation loop, and the HTTP surface for health, status, and
// Prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"solana-entry-engine/internal/config"
	"solana-entry-engine/internal/engine"
	"solana-entry-engine/internal/forecast"
	"solana-entry-engine/internal/gate"
	"solana-entry-engine/internal/ingestion"
	"solana-entry-engine/internal/observability"
	"solana-entry-engine/internal/plan"
	"solana-entry-engine/internal/segment"
	"solana-entry-engine/internal/storage"
	chstore "solana-entry-engine/internal/storage/clickhouse"
	"solana-entry-engine/internal/storage/memory"
	"solana-entry-engine/internal/storage/migrations"
	pgstore "solana-entry-engine/internal/storage/postgres"
	"solana-entry-engine/internal/trading"
)

func main() {
	configPath := flag.String("config", os.Getenv("ENGINE_CONFIG"), "Path to YAML config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (no PostgreSQL/ClickHouse)")
	listenAddr := flag.String("listen", "", "HTTP listen address (overrides config)")
	flag.Parse()

	logger := log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if !*useMemory && (cfg.PostgresDSN == "" || cfg.ClickhouseDSN == "") {
		logger.Fatal("postgres_dsn and clickhouse_dsn are required unless --use-memory is set")
	}
	if cfg.FeedEndpoint == "" {
		logger.Fatal("feed_endpoint is required (config or FEED_ENDPOINT)")
	}

	// Model artifacts are loaded before anything else starts. A missing or
	// malformed artifact is fatal; the engine never runs with a fallback.
	segArt, err := segment.LoadArtifact(cfg.SegmentModelPath)
	if err != nil {
		logger.Fatalf("segment model: %v", err)
	}
	fcArt, err := forecast.LoadArtifact(cfg.ForecastModelPath)
	if err != nil {
		logger.Fatalf("forecast model: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricStore, decisionStore, cleanup, err := createStores(ctx, cfg, *useMemory, logger)
	if err != nil {
		logger.Fatalf("create stores: %v", err)
	}
	defer cleanup()

	obs := observability.NewMetrics(prometheus.DefaultRegisterer)

	classifier := segment.NewClassifier(segArt, cfg.Segments, cfg.Features)
	gates := gate.NewEngine(gate.Options{
		Config:       cfg.Gates,
		EntrySeconds: cfg.EntrySeconds,
		Logger:       logger,
	})
	forecaster, err := forecast.NewForecaster(fcArt, cfg.Features, cfg.EntrySeconds, cfg.ETABuckets)
	if err != nil {
		logger.Fatalf("forecast model: %v", err)
	}
	planner := plan.NewPlanner(cfg.TargetReturn, cfg.ExitWindowSec)

	// Trade wiring. The executor and verifier here are the paper-trading
	// stand-ins; a live deployment swaps them for the real venue adapters.
	positions := trading.NewStaticPositions()
	verifier := trading.NewStaticVerifier(true)
	executor := trading.NewRecordingExecutor(nil)
	pool := trading.NewPool(ctx, trading.PoolOptions{
		Executor:   executor,
		Workers:    cfg.SubmitWorkers,
		QueueDepth: cfg.SubmitQueueDepth,
		Logger:     logger,
	})
	defer pool.Close()

	evaluator := engine.NewEvaluator(engine.EvaluatorOptions{
		Config:     cfg,
		Metrics:    metricStore,
		Decisions:  decisionStore,
		Classifier: classifier,
		Gates:      gates,
		Forecaster: forecaster,
		Planner:    planner,
		Positions:  positions,
		Verifier:   verifier,
		Pool:       pool,
		Observer:   obs,
		Logger:     logger,
	})
	runner := engine.NewRunner(engine.RunnerOptions{
		Config:    cfg,
		Evaluator: evaluator,
		Decisions: decisionStore,
		Pool:      pool,
		Observer:  obs,
		Logger:    logger,
	})
	feed := ingestion.NewFeed(ingestion.FeedOptions{
		Endpoint:  cfg.FeedEndpoint,
		Metrics:   metricStore,
		Decisions: decisionStore,
		Observer:  obs,
		Logger:    logger,
	})

	status := newStatusTracker()
	go startHTTPServer(cfg.ListenAddr, status, logger)

	errCh := make(chan error, 2)
	go func() {
		if err := feed.Run(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("feed: %w", err)
		}
	}()
	go func() {
		if err := runner.Run(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("runner: %w", err)
		}
	}()

	logger.Printf("engine started: feed=%s listen=%s tick=%v batch=%d",
		cfg.FeedEndpoint, cfg.ListenAddr, cfg.TickInterval, cfg.BatchSize)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("received signal %v, shutting down...", sig)
		cancel()
		// A second signal forces exit; otherwise give components a moment
		// to wind down before the deferred cleanups run.
		select {
		case <-sigCh:
			logger.Println("forced shutdown")
			os.Exit(1)
		case <-time.After(2 * time.Second):
		}
	case err := <-errCh:
		logger.Printf("component failed: %v", err)
		cancel()
	}
}

// createStores connects the metric and decision stores, running migrations
// on the real backends.
func createStores(ctx context.Context, cfg *config.Config, useMemory bool, logger *log.Logger) (storage.MetricStore, storage.DecisionStore, func(), error) {
	if useMemory {
		logger.Println("using in-memory storage")
		return memory.NewMetricStore(), memory.NewDecisionStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
		conn.Close()
		pool.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return chstore.NewMetricStore(conn), pgstore.NewDecisionStore(pool), cleanup, nil
}

// statusTracker records process-level facts for the /status endpoint.
type statusTracker struct {
	mu      sync.Mutex
	started time.Time
}

func newStatusTracker() *statusTracker {
	return &statusTracker{started: time.Now()}
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status  string    `json:"status"`
	Started time.Time `json:"started"`
	Uptime  string    `json:"uptime"`
}

func (s *statusTracker) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:  "running",
		Started: s.started,
		Uptime:  time.Since(s.started).String(),
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func startHTTPServer(addr string, status *statusTracker, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", status.handleStatus)

	logger.Printf("starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("HTTP server error: %v", err)
	}
}
