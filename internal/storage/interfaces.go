package storage

import (
	"context"

	"solana-entry-engine/internal/domain"
)

// MetricStore provides access to per-second token metric rows.
// Rows are keyed by (token_id, second); writing an existing second updates
// the row in place (the superseded row is immutable history otherwise).
type MetricStore interface {
	// Upsert writes metric points, replacing rows with matching seconds.
	Upsert(ctx context.Context, points []*domain.MetricPoint) error

	// ReadRecent retrieves the most recent windowSize points for a token,
	// ordered by second ASC. Returns fewer when less history exists.
	ReadRecent(ctx context.Context, tokenID string, windowSize int) ([]*domain.MetricPoint, error)

	// ReadRange retrieves points with second in [start, end] inclusive,
	// ordered by second ASC.
	ReadRange(ctx context.Context, tokenID string, start, end int64) ([]*domain.MetricPoint, error)

	// Count returns the number of recorded seconds for a token.
	Count(ctx context.Context, tokenID string) (int64, error)

	// EarliestPriceAt returns the price at the first recorded second >= sec.
	// Returns (nil, nil) when no such row exists yet.
	EarliestPriceAt(ctx context.Context, tokenID string, sec int64) (*float64, error)
}

// DecisionStore persists per-token decision state. Writes are per-row and
// atomic; the engine is the at-most-one writer per token per tick, and
// writing the same state twice is harmless.
type DecisionStore interface {
	// Create inserts the initial row for a token. Overwrites nothing:
	// returns the existing row untouched if the token is already known.
	Create(ctx context.Context, s *domain.TokenDecisionState) error

	// Get retrieves a token's decision state. Returns ErrNotFound if the
	// token has never entered the candidate pool.
	Get(ctx context.Context, tokenID string) (*domain.TokenDecisionState, error)

	// Update replaces a token's decision state. Returns ErrNotFound for an
	// unknown token.
	Update(ctx context.Context, s *domain.TokenDecisionState) error

	// ListActive retrieves up to limit non-archived tokens, oldest first.
	ListActive(ctx context.Context, limit int) ([]*domain.TokenDecisionState, error)
}
