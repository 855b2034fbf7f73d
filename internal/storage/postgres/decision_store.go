package postgres

import (
	"context"
	"fmt"

	"solana-entry-engine/internal/domain"
	"solana-entry-engine/internal/storage"
)

// DecisionStore implements storage.DecisionStore using PostgreSQL.
type DecisionStore struct {
	pool *Pool
}

// NewDecisionStore creates a new DecisionStore.
func NewDecisionStore(pool *Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DecisionStore = (*DecisionStore)(nil)

const decisionColumns = `
	token_id, pair_address, decision, state,
	segment_label_1, segment_label_2, segment_label_3,
	entry_iteration, entry_price,
	plan_exit_iteration, plan_exit_price, plan_hit,
	frozen, forecast_suppressed, archive, checkpoints_seen,
	created_at_ms, updated_at_ms
`

// Create inserts the initial row for a token. An existing row is left
// untouched (idempotent on conflict).
func (s *DecisionStore) Create(ctx context.Context, state *domain.TokenDecisionState) error {
	if state == nil || state.TokenID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO decision_states (` + decisionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (token_id) DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query, decisionArgs(state)...)
	if err != nil {
		return fmt.Errorf("insert decision state: %w", err)
	}
	return nil
}

// Get retrieves a token's decision state. Returns ErrNotFound if not exists.
func (s *DecisionStore) Get(ctx context.Context, tokenID string) (*domain.TokenDecisionState, error) {
	query := `SELECT ` + decisionColumns + ` FROM decision_states WHERE token_id = $1`

	row := s.pool.QueryRow(ctx, query, tokenID)
	state, err := scanDecision(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get decision state: %w", err)
	}
	return state, nil
}

// Update replaces a token's decision state. Returns ErrNotFound for an
// unknown token.
func (s *DecisionStore) Update(ctx context.Context, state *domain.TokenDecisionState) error {
	if state == nil || state.TokenID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE decision_states SET
			pair_address = $2, decision = $3, state = $4,
			segment_label_1 = $5, segment_label_2 = $6, segment_label_3 = $7,
			entry_iteration = $8, entry_price = $9,
			plan_exit_iteration = $10, plan_exit_price = $11, plan_hit = $12,
			frozen = $13, forecast_suppressed = $14, archive = $15,
			checkpoints_seen = $16,
			created_at_ms = $17, updated_at_ms = $18
		WHERE token_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, decisionArgs(state)...)
	if err != nil {
		return fmt.Errorf("update decision state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListActive retrieves up to limit non-archived tokens, oldest first.
func (s *DecisionStore) ListActive(ctx context.Context, limit int) ([]*domain.TokenDecisionState, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT ` + decisionColumns + `
		FROM decision_states
		WHERE NOT archive
		ORDER BY created_at_ms ASC, token_id ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list active decision states: %w", err)
	}
	defer rows.Close()

	var result []*domain.TokenDecisionState
	for rows.Next() {
		state, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision state: %w", err)
		}
		result = append(result, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decision states: %w", err)
	}
	return result, nil
}

// decisionArgs flattens a state into positional query arguments.
func decisionArgs(state *domain.TokenDecisionState) []any {
	checkpoints := make([]int64, 0, len(state.CheckpointsSeen))
	for it := range state.CheckpointsSeen {
		checkpoints = append(checkpoints, it)
	}

	return []any{
		state.TokenID,
		state.PairAddress,
		string(state.Decision),
		string(state.State),
		string(state.SegmentLabels[0]),
		string(state.SegmentLabels[1]),
		string(state.SegmentLabels[2]),
		state.EntryIteration,
		state.EntryPrice,
		state.PlanExitIteration,
		state.PlanExitPrice,
		state.PlanHit,
		state.Frozen,
		state.ForecastSuppressed,
		state.Archive,
		checkpoints,
		state.CreatedAtMs,
		state.UpdatedAtMs,
	}
}

// rowScanner abstracts pgx.Row and pgx.Rows for scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDecision reads one decision_states row.
func scanDecision(row rowScanner) (*domain.TokenDecisionState, error) {
	var (
		state       domain.TokenDecisionState
		decision    string
		lifecycle   string
		labels      [3]string
		checkpoints []int64
	)

	err := row.Scan(
		&state.TokenID,
		&state.PairAddress,
		&decision,
		&lifecycle,
		&labels[0],
		&labels[1],
		&labels[2],
		&state.EntryIteration,
		&state.EntryPrice,
		&state.PlanExitIteration,
		&state.PlanExitPrice,
		&state.PlanHit,
		&state.Frozen,
		&state.ForecastSuppressed,
		&state.Archive,
		&checkpoints,
		&state.CreatedAtMs,
		&state.UpdatedAtMs,
	)
	if err != nil {
		return nil, err
	}

	state.Decision = domain.Decision(decision)
	state.State = domain.LifecycleState(lifecycle)
	for i, l := range labels {
		state.SegmentLabels[i] = domain.SegmentLabel(l)
	}
	state.CheckpointsSeen = make(map[int64]bool, len(checkpoints))
	for _, it := range checkpoints {
		state.CheckpointsSeen[it] = true
	}
	return &state, nil
}
