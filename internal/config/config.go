// Package config holds the typed engine configuration. It is constructed
// once at startup and injected into every component; nothing reads ambient
// global state at evaluation time.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SegmentWindow is one fixed early-life window [StartSec, EndSec).
type SegmentWindow struct {
	StartSec int64 `yaml:"start_sec"`
	EndSec   int64 `yaml:"end_sec"`
}

// CorridorWindow configures one price-corridor guard stage.
type CorridorWindow struct {
	Stage         string  `yaml:"stage"`
	StartSec      int64   `yaml:"start_sec"`
	EndSec        int64   `yaml:"end_sec"`
	DropThreshold float64 `yaml:"drop_threshold"`
	RecoveryMin   float64 `yaml:"recovery_min"`
}

// Features configures the feature extractor horizons.
type Features struct {
	ShortHorizon int     `yaml:"short_horizon"` // OLS slope / volatility window
	MidHorizon   int     `yaml:"mid_horizon"`
	LongHorizon  int     `yaml:"long_horizon"`
	PriceEpsilon float64 `yaml:"price_epsilon"` // clamp before log
}

// Gates configures the safety gate chain.
type Gates struct {
	// Honeypot check.
	HoneypotEarlyWindow  int64   `yaml:"honeypot_early_window"`  // seconds from listing
	HoneypotRecentWindow int     `yaml:"honeypot_recent_window"` // most recent points
	HoneypotMinSamples   int64   `yaml:"honeypot_min_samples"`
	HoneypotMinSellShare float64 `yaml:"honeypot_min_sell_share"`

	// Liquidity-withdrawal check.
	LiquidityWindow        int     `yaml:"liquidity_window"`
	LiquidityEpsilon       float64 `yaml:"liquidity_epsilon"`
	LiquidityMinIterations int64   `yaml:"liquidity_min_iterations"`

	// Price-corridor guard stages.
	Corridors []CorridorWindow `yaml:"corridors"`

	// Post-entry drop check.
	PostEntryDropThreshold  float64 `yaml:"post_entry_drop_threshold"`
	PostEntryDropCheckpoint int64   `yaml:"post_entry_drop_checkpoint"`

	// Transaction-mix check.
	TxMixMinCount     int64   `yaml:"tx_mix_min_count"`
	TxMixMinSellShare float64 `yaml:"tx_mix_min_sell_share"`
	TxMixDecidableAt  int64   `yaml:"tx_mix_decidable_at"`

	// Holder-momentum check.
	HolderCheckpoint int64   `yaml:"holder_checkpoint"`
	HolderMin        int64   `yaml:"holder_min"`
	HolderLookback   int64   `yaml:"holder_lookback"`
	HolderMinDelta   int64   `yaml:"holder_min_delta"`
	HolderMinRate    float64 `yaml:"holder_min_rate"`
}

// Config is the complete engine configuration.
type Config struct {
	// EntrySeconds is the designated entry second: the minimum window for
	// feature extraction and forecasting, and the freeze checkpoint.
	EntrySeconds int64 `yaml:"entry_seconds"`

	// Segments are the three fixed windows partitioning a token's early life.
	Segments [3]SegmentWindow `yaml:"segments"`

	Features Features `yaml:"features"`
	Gates    Gates    `yaml:"gates"`

	// Forecast gate.
	PHitThreshold float64 `yaml:"p_hit_threshold"`
	ETABuckets    []int64 `yaml:"eta_buckets"` // ascending seconds-to-target bucket values

	// Exit planning.
	TargetReturn    float64 `yaml:"target_return"`
	ExitWindowSec   int64   `yaml:"exit_window_sec"`
	VerifyCheckpoint int64  `yaml:"verify_checkpoint"` // one-shot trade verification iteration

	// Evaluation loop.
	TickInterval     time.Duration `yaml:"tick_interval"`
	BatchSize        int           `yaml:"batch_size"`
	SubmitWorkers    int           `yaml:"submit_workers"`
	SubmitQueueDepth int           `yaml:"submit_queue_depth"`

	// Model artifact paths.
	SegmentModelPath  string `yaml:"segment_model_path"`
	ForecastModelPath string `yaml:"forecast_model_path"`

	// External endpoints.
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	FeedEndpoint  string `yaml:"feed_endpoint"`
	ListenAddr    string `yaml:"listen_addr"`
}

// Default returns the documented default configuration.
func Default() *Config {
	return &Config{
		EntrySeconds: 120,
		Segments: [3]SegmentWindow{
			{StartSec: 0, EndSec: 30},
			{StartSec: 30, EndSec: 70},
			{StartSec: 70, EndSec: 120},
		},
		Features: Features{
			ShortHorizon: 10,
			MidHorizon:   30,
			LongHorizon:  60,
			PriceEpsilon: 1e-12,
		},
		Gates: Gates{
			HoneypotEarlyWindow:  30,
			HoneypotRecentWindow: 20,
			HoneypotMinSamples:   10,
			HoneypotMinSellShare: 0.20,

			LiquidityWindow:        8,
			LiquidityEpsilon:       1e-9,
			LiquidityMinIterations: 60,

			Corridors: []CorridorWindow{
				{Stage: "early", StartSec: 30, EndSec: 60, DropThreshold: 0.50, RecoveryMin: 0.30},
				{Stage: "late", StartSec: 60, EndSec: 110, DropThreshold: 0.40, RecoveryMin: 0.25},
			},

			PostEntryDropThreshold:  0.15,
			PostEntryDropCheckpoint: 150,

			TxMixMinCount:     30,
			TxMixMinSellShare: 0.10,
			TxMixDecidableAt:  60,

			HolderCheckpoint: 90,
			HolderMin:        25,
			HolderLookback:   30,
			HolderMinDelta:   5,
			HolderMinRate:    0.05,
		},
		PHitThreshold: 0.60,
		ETABuckets:    []int64{15, 30, 60, 120, 300, 600},

		TargetReturn:     0.40,
		ExitWindowSec:    15,
		VerifyCheckpoint: 60,

		TickInterval:     1 * time.Second,
		BatchSize:        64,
		SubmitWorkers:    4,
		SubmitQueueDepth: 64,

		SegmentModelPath:  "models/segment_classifier.json",
		ForecastModelPath: "models/eta_forecaster.json",

		ListenAddr: ":8080",
	}
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides for connection strings.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.ClickhouseDSN = v
	}
	if v := os.Getenv("FEED_ENDPOINT"); v != "" {
		cfg.FeedEndpoint = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks internal consistency of thresholds and windows.
func (c *Config) Validate() error {
	if c.EntrySeconds <= 0 {
		return fmt.Errorf("entry_seconds must be positive, got %d", c.EntrySeconds)
	}
	prevEnd := int64(0)
	for i, w := range c.Segments {
		if w.StartSec != prevEnd {
			return fmt.Errorf("segment %d must start at %d, got %d", i+1, prevEnd, w.StartSec)
		}
		if w.EndSec <= w.StartSec {
			return fmt.Errorf("segment %d window is empty", i+1)
		}
		prevEnd = w.EndSec
	}
	if prevEnd != c.EntrySeconds {
		return fmt.Errorf("segment windows must end at entry_seconds %d, got %d", c.EntrySeconds, prevEnd)
	}
	if c.Features.ShortHorizon < 2 || c.Features.MidHorizon < c.Features.ShortHorizon || c.Features.LongHorizon < c.Features.MidHorizon {
		return fmt.Errorf("feature horizons must satisfy 2 <= short <= mid <= long")
	}
	if c.Features.PriceEpsilon <= 0 {
		return fmt.Errorf("price_epsilon must be positive")
	}
	for _, cw := range c.Gates.Corridors {
		if cw.Stage == "" {
			return fmt.Errorf("corridor stage name must not be empty")
		}
		if cw.EndSec <= cw.StartSec {
			return fmt.Errorf("corridor %q window is empty", cw.Stage)
		}
		if cw.DropThreshold <= 0 || cw.DropThreshold > 1 {
			return fmt.Errorf("corridor %q drop_threshold out of (0,1]", cw.Stage)
		}
	}
	if c.PHitThreshold < 0 || c.PHitThreshold > 1 {
		return fmt.Errorf("p_hit_threshold out of [0,1]")
	}
	if len(c.ETABuckets) == 0 {
		return fmt.Errorf("eta_buckets must not be empty")
	}
	for i := 1; i < len(c.ETABuckets); i++ {
		if c.ETABuckets[i] <= c.ETABuckets[i-1] {
			return fmt.Errorf("eta_buckets must be strictly ascending")
		}
	}
	if c.TargetReturn <= 0 {
		return fmt.Errorf("target_return must be positive")
	}
	if c.ExitWindowSec <= 0 {
		return fmt.Errorf("exit_window_sec must be positive")
	}
	if c.VerifyCheckpoint <= 0 || c.VerifyCheckpoint >= c.EntrySeconds {
		return fmt.Errorf("verify_checkpoint must fall before entry_seconds, got %d", c.VerifyCheckpoint)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if c.SubmitWorkers <= 0 || c.SubmitQueueDepth <= 0 {
		return fmt.Errorf("submit pool size must be positive")
	}
	return nil
}
