package trading

import (
	"context"
	"sync"
)

// StaticPositions is an in-memory PositionSource for tests and replay runs.
type StaticPositions struct {
	mu   sync.RWMutex
	open map[string]bool
}

var _ PositionSource = (*StaticPositions)(nil)

// NewStaticPositions creates an empty position set.
func NewStaticPositions() *StaticPositions {
	return &StaticPositions{open: make(map[string]bool)}
}

// SetOpen marks a token's position open or closed.
func (s *StaticPositions) SetOpen(tokenID string, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open[tokenID] = open
}

// HasOpenPosition implements PositionSource.
func (s *StaticPositions) HasOpenPosition(_ context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open[tokenID], nil
}

// StaticVerifier is a TradeVerifier returning a fixed answer while counting
// calls, so tests can assert the at-most-once-per-checkpoint guard.
type StaticVerifier struct {
	mu      sync.Mutex
	verdict bool
	calls   int
}

var _ TradeVerifier = (*StaticVerifier)(nil)

// NewStaticVerifier creates a verifier with a fixed verdict.
func NewStaticVerifier(verdict bool) *StaticVerifier {
	return &StaticVerifier{verdict: verdict}
}

// VerifyRealTrading implements TradeVerifier.
func (v *StaticVerifier) VerifyRealTrading(context.Context, string, string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	return v.verdict, nil
}

// Calls returns how many verifications ran.
func (v *StaticVerifier) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

// RecordingExecutor is a TradeExecutor that records submissions.
type RecordingExecutor struct {
	mu    sync.Mutex
	buys  []string
	sells []string
	err   error
}

var _ TradeExecutor = (*RecordingExecutor)(nil)

// NewRecordingExecutor creates an executor that succeeds unless failWith is
// non-nil.
func NewRecordingExecutor(failWith error) *RecordingExecutor {
	return &RecordingExecutor{err: failWith}
}

// SubmitBuy implements TradeExecutor.
func (e *RecordingExecutor) SubmitBuy(_ context.Context, tokenID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buys = append(e.buys, tokenID)
	return e.err
}

// SubmitSell implements TradeExecutor.
func (e *RecordingExecutor) SubmitSell(_ context.Context, tokenID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sells = append(e.sells, tokenID)
	return e.err
}

// Buys returns submitted buy token IDs.
func (e *RecordingExecutor) Buys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.buys...)
}

// Sells returns submitted sell token IDs.
func (e *RecordingExecutor) Sells() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.sells...)
}
