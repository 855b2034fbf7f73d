// Package ingestion feeds per-second metric snapshots from the aggregator's
// websocket stream into the metric store and seeds the candidate pool.
package ingestion

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"solana-entry-engine/internal/domain"
	"solana-entry-engine/internal/observability"
	"solana-entry-engine/internal/solana"
	"solana-entry-engine/internal/storage"
)

// FeedConfig configures websocket behavior.
type FeedConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential backoff.
	MaxReconnectDelay time.Duration
	// ReadTimeout is the per-message read deadline.
	ReadTimeout time.Duration
	// HandshakeTimeout bounds the dial.
	HandshakeTimeout time.Duration
}

// DefaultFeedConfig returns the default websocket configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		HandshakeTimeout:  10 * time.Second,
	}
}

// feedMessage is one per-second snapshot pushed by the aggregator.
type feedMessage struct {
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

// Feed consumes the metrics stream. Each token's first snapshot anchors its
// iteration clock: Second = seconds since that first snapshot. New tokens
// with a valid pair address get an initial decision row.
type Feed struct {
	endpoint  string
	config    FeedConfig
	metrics   storage.MetricStore
	decisions storage.DecisionStore
	obs       *observability.Metrics
	logger    *log.Logger

	mu    sync.Mutex
	bases map[string]int64 // tokenID -> first snapshot timestamp ms
}

// FeedOptions wires the feed.
type FeedOptions struct {
	Endpoint  string
	Config    *FeedConfig
	Metrics   storage.MetricStore
	Decisions storage.DecisionStore
	Observer  *observability.Metrics
	Logger    *log.Logger
}

// NewFeed creates a feed adapter.
func NewFeed(opts FeedOptions) *Feed {
	cfg := DefaultFeedConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[feed] ", log.LstdFlags)
	}
	return &Feed{
		endpoint:  opts.Endpoint,
		config:    cfg,
		metrics:   opts.Metrics,
		decisions: opts.Decisions,
		obs:       opts.Observer,
		logger:    logger,
		bases:     make(map[string]int64),
	}
}

// Run consumes the stream until the context is cancelled, reconnecting with
// exponential backoff on any connection failure.
func (f *Feed) Run(ctx context.Context) error {
	delay := f.config.ReconnectDelay
	for {
		if err := f.consume(ctx); err != nil && ctx.Err() == nil {
			f.logger.Printf("feed connection lost: %v, reconnecting in %v", err, delay)
			if f.obs != nil {
				f.obs.FeedReconnects.Inc()
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > f.config.MaxReconnectDelay {
			delay = f.config.MaxReconnectDelay
		}
	}
}

// consume runs one connection until it fails or the context ends.
func (f *Feed) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: f.config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	f.logger.Printf("connected to metrics feed at %s", f.endpoint)

	for {
		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg feedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			f.logger.Printf("malformed feed message dropped: %v", err)
			continue
		}
		if err := f.handle(ctx, &msg); err != nil {
			f.logger.Printf("snapshot for token %s dropped: %v", msg.TokenID, err)
		}
	}
}

// handle stores one snapshot and seeds the decision row for new tokens.
func (f *Feed) handle(ctx context.Context, msg *feedMessage) error {
	if msg.TokenID == "" {
		return nil
	}

	second, err := f.iteration(ctx, msg)
	if err != nil {
		return err
	}

	point := &domain.MetricPoint{
		TokenID:     msg.TokenID,
		Second:      second,
		TimestampMs: msg.TimestampMs,
		Price:       msg.Price,
		Liquidity:   msg.Liquidity,
		MarketCap:   msg.MarketCap,
		HolderCount: msg.HolderCount,
		BuyCount:    msg.BuyCount,
		SellCount:   msg.SellCount,
	}
	if err := f.metrics.Upsert(ctx, []*domain.MetricPoint{point}); err != nil {
		return err
	}
	if f.obs != nil {
		f.obs.FeedPointsTotal.Inc()
	}

	if second == 0 && solana.ValidAddress(msg.PairAddress) {
		state := domain.NewTokenDecisionState(msg.TokenID, msg.PairAddress, msg.TimestampMs)
		if err := f.decisions.Create(ctx, state); err != nil {
			return err
		}
	}
	return nil
}

// iteration resolves the snapshot's iteration index. The base timestamp is
// cached per token; after a restart it is re-derived from the newest stored
// row so the iteration clock stays continuous.
func (f *Feed) iteration(ctx context.Context, msg *feedMessage) (int64, error) {
	f.mu.Lock()
	base, ok := f.bases[msg.TokenID]
	f.mu.Unlock()

	if !ok {
		recent, err := f.metrics.ReadRecent(ctx, msg.TokenID, 1)
		if err != nil {
			return 0, err
		}
		if len(recent) > 0 {
			base = recent[0].TimestampMs - recent[0].Second*1000
		} else {
			base = msg.TimestampMs
		}
		f.mu.Lock()
		f.bases[msg.TokenID] = base
		f.mu.Unlock()
	}

	second := (msg.TimestampMs - base) / 1000
	if second < 0 {
		second = 0
	}
	return second, nil
}
