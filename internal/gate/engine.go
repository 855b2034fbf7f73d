// Package gate runs the ordered safety check chain over a token's metric
// history. Each check is independent; the first veto is final for the tick,
// but every check still runs so telemetry sees all firing reasons.
package gate

import (
	"log"
	"os"

	"solana-entry-engine/internal/config"
	"solana-entry-engine/internal/domain"
)

// checkResult is a single check's veto. nil means the check passed.
type checkResult struct {
	reason   domain.VetoReason
	suppress bool // stop forecasting for this token
	archive  bool // token is dead, signal external archival
}

// Engine evaluates the safety gate chain.
type Engine struct {
	cfg          config.Gates
	entrySeconds int64
	logger       *log.Logger
}

// Options configures the gate engine.
type Options struct {
	Config       config.Gates
	EntrySeconds int64
	Logger       *log.Logger
}

// NewEngine creates a gate engine.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[gate] ", log.LstdFlags)
	}
	return &Engine{
		cfg:          opts.Config,
		entrySeconds: opts.EntrySeconds,
		logger:       logger,
	}
}

// Evaluate runs every check in chain order against the token's full ordered
// history. points must start at second 0 and ascend. openPosition disables
// the corridor guard (an open position is never force-archived by it).
func (e *Engine) Evaluate(tokenID string, points []*domain.MetricPoint, nowIteration int64, openPosition bool) domain.SafetyVerdict {
	checks := []func([]*domain.MetricPoint, int64) *checkResult{
		e.checkHoneypot,
		e.checkLiquidityWithdrawal,
	}
	if !openPosition {
		checks = append(checks, e.checkCorridors)
	}
	checks = append(checks,
		e.checkPostEntryDrop,
		e.checkTxMix,
		e.checkHolderMomentum,
	)

	var verdict domain.SafetyVerdict
	for _, check := range checks {
		res := check(points, nowIteration)
		if res == nil {
			continue
		}
		verdict.AllReasons = append(verdict.AllReasons, res.reason)
		if !verdict.Vetoed {
			verdict.Vetoed = true
			verdict.Reason = res.reason
		}
		if res.suppress {
			verdict.SuppressForecast = true
		}
		if res.archive {
			verdict.Archive = true
		}
	}

	if verdict.Vetoed {
		e.logger.Printf("token %s vetoed at iteration %d: %v", tokenID, nowIteration, verdict.AllReasons)
	}
	return verdict
}
