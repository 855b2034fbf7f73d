package memory

import (
	"context"
	"sort"
	"sync"

	"solana-entry-engine/internal/domain"
	"solana-entry-engine/internal/storage"
)

// DecisionStore is an in-memory implementation of storage.DecisionStore.
type DecisionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenDecisionState
}

// NewDecisionStore creates a new in-memory decision store.
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{
		data: make(map[string]*domain.TokenDecisionState),
	}
}

// Create inserts the initial row for a token. Existing rows are left untouched.
func (s *DecisionStore) Create(_ context.Context, state *domain.TokenDecisionState) error {
	if state == nil || state.TokenID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[state.TokenID]; exists {
		return nil
	}
	s.data[state.TokenID] = state.Clone()
	return nil
}

// Get retrieves a token's decision state.
func (s *DecisionStore) Get(_ context.Context, tokenID string) (*domain.TokenDecisionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[tokenID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return state.Clone(), nil
}

// Update replaces a token's decision state.
func (s *DecisionStore) Update(_ context.Context, state *domain.TokenDecisionState) error {
	if state == nil || state.TokenID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[state.TokenID]; !ok {
		return storage.ErrNotFound
	}
	s.data[state.TokenID] = state.Clone()
	return nil
}

// ListActive retrieves up to limit non-archived tokens, oldest first.
func (s *DecisionStore) ListActive(_ context.Context, limit int) ([]*domain.TokenDecisionState, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenDecisionState
	for _, state := range s.data {
		if !state.Archive {
			result = append(result, state.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAtMs != result[j].CreatedAtMs {
			return result[i].CreatedAtMs < result[j].CreatedAtMs
		}
		return result[i].TokenID < result[j].TokenID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.DecisionStore = (*DecisionStore)(nil)
