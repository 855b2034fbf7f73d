package ingestion

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-entry-engine/internal/domain"
	"solana-entry-engine/internal/storage/memory"
)

const testPair = "So11111111111111111111111111111111111111112"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func testFeedConfig() *FeedConfig {
	return &FeedConfig{
		ReconnectDelay:    10 * time.Millisecond,
		MaxReconnectDelay: 50 * time.Millisecond,
		ReadTimeout:       2 * time.Second,
		HandshakeTimeout:  2 * time.Second,
	}
}

func snapshot(tokenID string, tsMs int64, price float64) feedMessage {
	return feedMessage{
		TokenID:     tokenID,
		PairAddress: testPair,
		TimestampMs: tsMs,
		Price:       price,
		Liquidity:   price * 1000,
		MarketCap:   price * 1e6,
		HolderCount: 10,
		BuyCount:    3,
		SellCount:   2,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestFeed_StoresSnapshotsAndSeedsDecisionRow(t *testing.T) {
	messages := []feedMessage{
		snapshot("tok", 1_000_000, 1.0),
		snapshot("tok", 1_001_000, 1.1),
		snapshot("tok", 1_003_000, 1.3), // gap: second 3
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for _, msg := range messages {
			require.NoError(t, conn.WriteJSON(msg))
		}
		// Hold the connection so the feed keeps reading.
		conn.ReadMessage()
	}))
	defer server.Close()

	metrics := memory.NewMetricStore()
	decisions := memory.NewDecisionStore()
	feed := NewFeed(FeedOptions{
		Endpoint:  "ws" + strings.TrimPrefix(server.URL, "http"),
		Config:    testFeedConfig(),
		Metrics:   metrics,
		Decisions: decisions,
		Logger:    log.New(io.Discard, "", 0),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	waitFor(t, "three stored points", func() bool {
		n, err := metrics.Count(ctx, "tok")
		return err == nil && n == 3
	})

	points, err := metrics.ReadRange(ctx, "tok", 0, 10)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, int64(0), points[0].Second)
	assert.Equal(t, int64(1), points[1].Second)
	assert.Equal(t, int64(3), points[2].Second, "iteration index follows the timestamp gap")
	assert.Equal(t, 1.3, points[2].Price)

	state, err := decisions.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, testPair, state.PairAddress)
	assert.Equal(t, domain.StateCollecting, state.State)
	assert.Equal(t, int64(1_000_000), state.CreatedAtMs)
}

func TestFeed_ReconnectsAndKeepsIterationClock(t *testing.T) {
	var connects atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		if connects.Add(1) == 1 {
			conn.WriteJSON(snapshot("tok", 5_000_000, 1.0))
			conn.Close() // drop the connection
			return
		}
		defer conn.Close()
		conn.WriteJSON(snapshot("tok", 5_007_000, 2.0))
		conn.ReadMessage()
	}))
	defer server.Close()

	metrics := memory.NewMetricStore()
	feed := NewFeed(FeedOptions{
		Endpoint:  "ws" + strings.TrimPrefix(server.URL, "http"),
		Config:    testFeedConfig(),
		Metrics:   metrics,
		Decisions: memory.NewDecisionStore(),
		Logger:    log.New(io.Discard, "", 0),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	waitFor(t, "point after reconnect", func() bool {
		n, err := metrics.Count(ctx, "tok")
		return err == nil && n == 2
	})

	points, err := metrics.ReadRange(ctx, "tok", 0, 100)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, int64(0), points[0].Second)
	assert.Equal(t, int64(7), points[1].Second, "iteration clock survives the reconnect")
}

func TestFeed_DropsMalformedMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
		conn.WriteJSON(snapshot("tok", 1_000_000, 1.0))
		conn.ReadMessage()
	}))
	defer server.Close()

	metrics := memory.NewMetricStore()
	feed := NewFeed(FeedOptions{
		Endpoint:  "ws" + strings.TrimPrefix(server.URL, "http"),
		Config:    testFeedConfig(),
		Metrics:   metrics,
		Decisions: memory.NewDecisionStore(),
		Logger:    log.New(io.Discard, "", 0),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	waitFor(t, "valid point after garbage", func() bool {
		n, err := metrics.Count(ctx, "tok")
		return err == nil && n == 1
	})
}
