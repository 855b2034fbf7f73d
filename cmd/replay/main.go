// Package main replays recorded per-second snapshots through the full
// decision pipeline against in-memory stores. Fills are simulated: a
// submitted buy opens the position on the next iteration, a submitted sell
// closes it, landing one or two iterations after the submit the way a live
// fill would.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"solana-entry-engine/internal/config"
	"solana-entry-engine/internal/domain"
	"solana-entry-engine/internal/engine"
	"solana-entry-engine/internal/forecast"
	"solana-entry-engine/internal/gate"
	"solana-entry-engine/internal/plan"
	"solana-entry-engine/internal/segment"
	"solana-entry-engine/internal/storage/memory"
	"solana-entry-engine/internal/trading"
)

// snapshot is one recorded per-second metric row, one JSON object per line.
type snapshot struct {
	TokenID     string  `json:"token_id"`
	PairAddress string  `json:"pair_address"`
	TimestampMs int64   `json:"timestamp_ms"`
	Price       float64 `json:"price"`
	Liquidity   float64 `json:"liquidity"`
	MarketCap   float64 `json:"market_cap"`
	HolderCount int64   `json:"holder_count"`
	BuyCount    int64   `json:"buy_count"`
	SellCount   int64   `json:"sell_count"`
}

// tokenOutcome summarizes one token's final state after the replay.
type tokenOutcome struct {
	TokenID        string `json:"token_id"`
	Decision       string `json:"decision"`
	State          string `json:"state"`
	Frozen         bool   `json:"frozen"`
	Archive        bool   `json:"archive"`
	EntryIteration *int64 `json:"entry_iteration,omitempty"`
	ExitIteration  *int64 `json:"exit_iteration,omitempty"`
	Buys           int    `json:"buys"`
	Sells          int    `json:"sells"`
}

// fillExecutor simulates instant fills against the static position source.
type fillExecutor struct {
	positions *trading.StaticPositions
	buys      map[string]int
	sells     map[string]int
}

func newFillExecutor(positions *trading.StaticPositions) *fillExecutor {
	return &fillExecutor{
		positions: positions,
		buys:      make(map[string]int),
		sells:     make(map[string]int),
	}
}

func (e *fillExecutor) SubmitBuy(_ context.Context, tokenID string) error {
	e.buys[tokenID]++
	e.positions.SetOpen(tokenID, true)
	return nil
}

func (e *fillExecutor) SubmitSell(_ context.Context, tokenID string) error {
	e.sells[tokenID]++
	e.positions.SetOpen(tokenID, false)
	return nil
}

func main() {
	snapshotPath := flag.String("snapshots", "", "Path to JSONL snapshot file (required)")
	configPath := flag.String("config", os.Getenv("ENGINE_CONFIG"), "Path to YAML config file")
	outputJSON := flag.Bool("json", false, "Output outcomes as JSON")
	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	if *snapshotPath == "" {
		logger.Fatal("--snapshots is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	segArt, err := segment.LoadArtifact(cfg.SegmentModelPath)
	if err != nil {
		logger.Fatalf("segment model: %v", err)
	}
	fcArt, err := forecast.LoadArtifact(cfg.ForecastModelPath)
	if err != nil {
		logger.Fatalf("forecast model: %v", err)
	}

	byToken, pairs, err := loadSnapshots(*snapshotPath)
	if err != nil {
		logger.Fatalf("load snapshots: %v", err)
	}
	if len(byToken) == 0 {
		logger.Fatal("snapshot file holds no rows")
	}

	ctx := context.Background()
	metricStore := memory.NewMetricStore()
	decisionStore := memory.NewDecisionStore()

	positions := trading.NewStaticPositions()
	executor := newFillExecutor(positions)

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

	pool := trading.NewPool(ctx, trading.PoolOptions{
		Executor:   executor,
		Workers:    1,
		QueueDepth: len(byToken) + 1,
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
		Planner:    plan.NewPlanner(cfg.TargetReturn, cfg.ExitWindowSec),
		Positions:  positions,
		Verifier:   trading.NewStaticVerifier(true),
		Pool:       pool,
		Logger:     logger,
	})

	tokens := make([]string, 0, len(byToken))
	maxSecond := int64(0)
	for id, points := range byToken {
		tokens = append(tokens, id)
		last := points[len(points)-1].Second
		if last > maxSecond {
			maxSecond = last
		}
		state := domain.NewTokenDecisionState(id, pairs[id], points[0].TimestampMs)
		if err := decisionStore.Create(ctx, state); err != nil {
			logger.Fatalf("seed decision row for %s: %v", id, err)
		}
	}
	sort.Strings(tokens)

	logger.Printf("replaying %d tokens over %d iterations", len(tokens), maxSecond+1)

	// Feed one iteration at a time, evaluating every token after each, the
	// way the live tick loop would see the stream grow.
	cursor := make(map[string]int, len(tokens))
	for iter := int64(0); iter <= maxSecond; iter++ {
		for _, id := range tokens {
			points := byToken[id]
			i := cursor[id]
			for i < len(points) && points[i].Second <= iter {
				if err := metricStore.Upsert(ctx, points[i:i+1]); err != nil {
					logger.Fatalf("store point: %v", err)
				}
				i++
			}
			cursor[id] = i
		}
		for _, id := range tokens {
			err := evaluator.EvaluateToken(ctx, id)
			if err != nil && !errors.Is(err, domain.ErrInsufficientHistory) {
				logger.Printf("iteration %d token %s: %v", iter, id, err)
			}
		}
	}
	pool.Close()

	outcomes := make([]tokenOutcome, 0, len(tokens))
	for _, id := range tokens {
		state, err := decisionStore.Get(ctx, id)
		if err != nil {
			logger.Fatalf("read final state for %s: %v", id, err)
		}
		outcomes = append(outcomes, tokenOutcome{
			TokenID:        id,
			Decision:       string(state.Decision),
			State:          string(state.State),
			Frozen:         state.Frozen,
			Archive:        state.Archive,
			EntryIteration: state.EntryIteration,
			ExitIteration:  state.PlanExitIteration,
			Buys:           executor.buys[id],
			Sells:          executor.sells[id],
		})
	}

	if *outputJSON {
		out, _ := json.MarshalIndent(outcomes, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("\n=== Replay Summary ===\n")
	for _, o := range outcomes {
		entry, exit := "-", "-"
		if o.EntryIteration != nil {
			entry = fmt.Sprintf("%d", *o.EntryIteration)
		}
		if o.ExitIteration != nil {
			exit = fmt.Sprintf("%d", *o.ExitIteration)
		}
		fmt.Printf("%-24s decision=%-7s state=%-10s entry=%-5s exit=%-5s buys=%d sells=%d frozen=%v archive=%v\n",
			o.TokenID, o.Decision, o.State, entry, exit, o.Buys, o.Sells, o.Frozen, o.Archive)
	}
}

// loadSnapshots parses the JSONL file into per-token ordered point slices.
// The iteration index is derived from each token's first timestamp, matching
// the live feed's clock.
func loadSnapshots(path string) (map[string][]*domain.MetricPoint, map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	rows := make(map[string][]snapshot)
	pairs := make(map[string]string)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var s snapshot
		if err := json.Unmarshal(text, &s); err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		if s.TokenID == "" {
			return nil, nil, fmt.Errorf("line %d: missing token_id", line)
		}
		rows[s.TokenID] = append(rows[s.TokenID], s)
		if pairs[s.TokenID] == "" {
			pairs[s.TokenID] = s.PairAddress
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	byToken := make(map[string][]*domain.MetricPoint, len(rows))
	for id, list := range rows {
		sort.Slice(list, func(i, j int) bool { return list[i].TimestampMs < list[j].TimestampMs })
		base := list[0].TimestampMs
		points := make([]*domain.MetricPoint, 0, len(list))
		for _, s := range list {
			points = append(points, &domain.MetricPoint{
				TokenID:     id,
				Second:      (s.TimestampMs - base) / 1000,
				TimestampMs: s.TimestampMs,
				Price:       s.Price,
				Liquidity:   s.Liquidity,
				MarketCap:   s.MarketCap,
				HolderCount: s.HolderCount,
				BuyCount:    s.BuyCount,
				SellCount:   s.SellCount,
			})
		}
		byToken[id] = points
	}
	return byToken, pairs, nil
}
