package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"solana-entry-engine/internal/domain"
	"solana-entry-engine/internal/storage"
)

// MetricStore is an in-memory implementation of storage.MetricStore.
type MetricStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MetricPoint // keyed by (token_id, second)
}

// NewMetricStore creates a new in-memory metric store.
func NewMetricStore() *MetricStore {
	return &MetricStore{
		data: make(map[string]*domain.MetricPoint),
	}
}

func metricKey(tokenID string, second int64) string {
	return fmt.Sprintf("%s|%d", tokenID, second)
}

// Upsert writes metric points, replacing rows with matching seconds.
func (s *MetricStore) Upsert(_ context.Context, points []*domain.MetricPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if p == nil || p.TokenID == "" || p.Second < 0 {
			return storage.ErrInvalidInput
		}
	}
	for _, p := range points {
		pointCopy := *p
		s.data[metricKey(p.TokenID, p.Second)] = &pointCopy
	}
	return nil
}

// ReadRecent retrieves the most recent windowSize points, ordered by second ASC.
func (s *MetricStore) ReadRecent(_ context.Context, tokenID string, windowSize int) ([]*domain.MetricPoint, error) {
	if windowSize <= 0 {
		return nil, storage.ErrInvalidInput
	}

	points := s.allForToken(tokenID)
	if len(points) > windowSize {
		points = points[len(points)-windowSize:]
	}
	return points, nil
}

// ReadRange retrieves points with second in [start, end] inclusive.
func (s *MetricStore) ReadRange(_ context.Context, tokenID string, start, end int64) ([]*domain.MetricPoint, error) {
	var result []*domain.MetricPoint
	for _, p := range s.allForToken(tokenID) {
		if p.Second >= start && p.Second <= end {
			result = append(result, p)
		}
	}
	return result, nil
}

// Count returns the number of recorded seconds for a token.
func (s *MetricStore) Count(_ context.Context, tokenID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, p := range s.data {
		if p.TokenID == tokenID {
			n++
		}
	}
	return n, nil
}

// EarliestPriceAt returns the price at the first recorded second >= sec.
func (s *MetricStore) EarliestPriceAt(_ context.Context, tokenID string, sec int64) (*float64, error) {
	for _, p := range s.allForToken(tokenID) {
		if p.Second >= sec {
			price := p.Price
			return &price, nil
		}
	}
	return nil, nil
}

// allForToken returns copies of all points for a token, ordered by second ASC.
func (s *MetricStore) allForToken(tokenID string) []*domain.MetricPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MetricPoint
	for _, p := range s.data {
		if p.TokenID == tokenID {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Second < result[j].Second
	})
	return result
}

var _ storage.MetricStore = (*MetricStore)(nil)
