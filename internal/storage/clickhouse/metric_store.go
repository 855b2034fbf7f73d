package clickhouse

import (
	"context"
	"fmt"

	"solana-entry-engine/internal/domain"
	"solana-entry-engine/internal/storage"
)

// MetricStore implements storage.MetricStore using ClickHouse.
// token_metrics is a ReplacingMergeTree keyed by (token_id, second): a later
// insert for the same second supersedes the earlier row, so Upsert is a plain
// batch insert and reads collapse versions with FINAL.
type MetricStore struct {
	conn *Conn
}

// NewMetricStore creates a new MetricStore.
func NewMetricStore(conn *Conn) *MetricStore {
	return &MetricStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MetricStore = (*MetricStore)(nil)

// Upsert writes metric points, replacing rows with matching seconds.
func (s *MetricStore) Upsert(ctx context.Context, points []*domain.MetricPoint) error {
	if len(points) == 0 {
		return nil
	}
	for _, p := range points {
		if p == nil || p.TokenID == "" || p.Second < 0 {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO token_metrics (
			token_id, second, timestamp_ms, price, liquidity, market_cap,
			holder_count, buy_count, sell_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.TokenID, uint64(p.Second), uint64(p.TimestampMs),
			p.Price, p.Liquidity, p.MarketCap,
			uint64(p.HolderCount), uint64(p.BuyCount), uint64(p.SellCount),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

const metricColumns = `token_id, second, timestamp_ms, price, liquidity, market_cap, holder_count, buy_count, sell_count`

// ReadRecent retrieves the most recent windowSize points, ordered by second ASC.
func (s *MetricStore) ReadRecent(ctx context.Context, tokenID string, windowSize int) ([]*domain.MetricPoint, error) {
	if windowSize <= 0 {
		return nil, storage.ErrInvalidInput
	}

	// Take the newest rows then flip back to ascending order.
	query := `
		SELECT ` + metricColumns + `
		FROM (
			SELECT ` + metricColumns + `
			FROM token_metrics FINAL
			WHERE token_id = ?
			ORDER BY second DESC
			LIMIT ?
		)
		ORDER BY second ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID, uint64(windowSize))
	if err != nil {
		return nil, fmt.Errorf("query recent metrics: %w", err)
	}
	defer rows.Close()

	return scanMetricRows(rows)
}

// ReadRange retrieves points with second in [start, end] inclusive.
func (s *MetricStore) ReadRange(ctx context.Context, tokenID string, start, end int64) ([]*domain.MetricPoint, error) {
	query := `
		SELECT ` + metricColumns + `
		FROM token_metrics FINAL
		WHERE token_id = ? AND second >= ? AND second <= ?
		ORDER BY second ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query metric range: %w", err)
	}
	defer rows.Close()

	return scanMetricRows(rows)
}

// Count returns the number of recorded seconds for a token.
func (s *MetricStore) Count(ctx context.Context, tokenID string) (int64, error) {
	query := `SELECT count() FROM token_metrics FINAL WHERE token_id = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, tokenID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count metrics: %w", err)
	}
	return int64(count), nil
}

// EarliestPriceAt returns the price at the first recorded second >= sec.
func (s *MetricStore) EarliestPriceAt(ctx context.Context, tokenID string, sec int64) (*float64, error) {
	query := `
		SELECT price
		FROM token_metrics FINAL
		WHERE token_id = ? AND second >= ?
		ORDER BY second ASC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, tokenID, uint64(sec))
	if err != nil {
		return nil, fmt.Errorf("query earliest price: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var price float64
	if err := rows.Scan(&price); err != nil {
		return nil, fmt.Errorf("scan earliest price: %w", err)
	}
	return &price, nil
}

// metricRows abstracts driver row iteration for scanning.
type metricRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanMetricRows reads all rows into MetricPoints.
func scanMetricRows(rows metricRows) ([]*domain.MetricPoint, error) {
	var result []*domain.MetricPoint
	for rows.Next() {
		var (
			p                            domain.MetricPoint
			second, timestampMs          uint64
			holders, buyCount, sellCount uint64
		)
		err := rows.Scan(
			&p.TokenID, &second, &timestampMs,
			&p.Price, &p.Liquidity, &p.MarketCap,
			&holders, &buyCount, &sellCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan metric row: %w", err)
		}
		p.Second = int64(second)
		p.TimestampMs = int64(timestampMs)
		p.HolderCount = int64(holders)
		p.BuyCount = int64(buyCount)
		p.SellCount = int64(sellCount)
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric rows: %w", err)
	}
	return result, nil
}
