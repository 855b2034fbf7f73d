// Package trading defines the external trading collaborators the engine
// calls out to: position lookup, rate-limited trade-type verification, and
// trade submission. Implementations live outside the decision core.
package trading

import "context"

// PositionSource answers whether a real position is currently open.
type PositionSource interface {
	HasOpenPosition(ctx context.Context, tokenID string) (bool, error)
}

// TradeVerifier confirms that a pair really trades. The backing service is
// rate limited; callers must gate calls through the decision state's
// checkpoint set so each checkpoint verifies at most once.
type TradeVerifier interface {
	VerifyRealTrading(ctx context.Context, tokenID, pairAddress string) (bool, error)
}

// TradeExecutor submits orders. Fire-and-forget from the engine's
// perspective: failures surface on the submit pool's result channel, the
// evaluation loop never blocks on them.
type TradeExecutor interface {
	SubmitBuy(ctx context.Context, tokenID string) error
	SubmitSell(ctx context.Context, tokenID string) error
}
