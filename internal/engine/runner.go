package engine

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"solana-entry-engine/internal/config"
	"solana-entry-engine/internal/domain"
	"solana-entry-engine/internal/observability"
	"solana-entry-engine/internal/solana"
	"solana-entry-engine/internal/storage"
	"solana-entry-engine/internal/trading"
)

// Runner owns the fan-out evaluation loop: once per tick it selects a
// bounded batch of candidates and evaluates each on its own goroutine.
// Tokens share nothing during a tick beyond the decision store, which takes
// per-row atomic writes, so no cross-token coordination is needed.
type Runner struct {
	cfg       *config.Config
	eval      *Evaluator
	decisions storage.DecisionStore
	pool      *trading.Pool
	obs       *observability.Metrics
	logger    *log.Logger
}

// RunnerOptions wires the runner.
type RunnerOptions struct {
	Config    *config.Config
	Evaluator *Evaluator
	Decisions storage.DecisionStore
	Pool      *trading.Pool
	Observer  *observability.Metrics
	Logger    *log.Logger
}

// NewRunner creates a runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[runner] ", log.LstdFlags)
	}
	return &Runner{
		cfg:       opts.Config,
		eval:      opts.Evaluator,
		decisions: opts.Decisions,
		pool:      opts.Pool,
		obs:       opts.Observer,
		logger:    logger,
	}
}

// Run ticks until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if r.pool != nil {
		go r.drainSubmitResults(ctx)
	}

	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick evaluates one batch. Exposed for replay runs and tests.
func (r *Runner) Tick(ctx context.Context) {
	if r.obs != nil {
		r.obs.TicksTotal.Inc()
	}

	states, err := r.decisions.ListActive(ctx, r.cfg.BatchSize)
	if err != nil {
		r.logger.Printf("candidate selection failed: %v", err)
		return
	}

	var batch []*domain.TokenDecisionState
	for _, s := range states {
		if s.State == domain.StateExited {
			continue
		}
		if !solana.ValidAddress(s.PairAddress) {
			continue
		}
		batch = append(batch, s)
	}
	if r.obs != nil {
		r.obs.BatchSize.Set(float64(len(batch)))
	}

	var wg sync.WaitGroup
	for _, s := range batch {
		wg.Add(1)
		go func(tokenID string) {
			defer wg.Done()
			r.evaluateOne(ctx, tokenID)
		}(s.TokenID)
	}
	wg.Wait()
}

// evaluateOne isolates a single token's evaluation: any error is logged and
// abandoned for this tick only, never aborting the batch.
func (r *Runner) evaluateOne(ctx context.Context, tokenID string) {
	start := time.Now()
	err := r.eval.EvaluateToken(ctx, tokenID)
	if r.obs != nil {
		r.obs.EvalDuration.Observe(time.Since(start).Seconds())
		r.obs.EvaluationsTotal.Inc()
	}
	if err == nil {
		return
	}

	kind := errorKind(err)
	if r.obs != nil {
		r.obs.EvalErrorsTotal.WithLabelValues(kind).Inc()
	}
	// Not-ready tokens are routine; everything else is worth a line.
	if !errors.Is(err, domain.ErrInsufficientHistory) {
		r.logger.Printf("token %s evaluation abandoned (%s): %v", tokenID, kind, err)
	}
}

func (r *Runner) drainSubmitResults(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-r.pool.Results():
			if !ok {
				return
			}
			outcome := "ok"
			if res.Err != nil {
				outcome = "error"
				r.logger.Printf("submission %s for token %s failed: %v", res.Side, res.TokenID, res.Err)
			}
			if r.obs != nil {
				r.obs.SubmitTotal.WithLabelValues(string(res.Side), outcome).Inc()
			}
		}
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientHistory):
		return "insufficient_history"
	case domain.IsTransient(err):
		return "transient"
	case errors.Is(err, domain.ErrDataInconsistent):
		return "data_inconsistent"
	case errors.Is(err, storage.ErrNotFound):
		return "not_found"
	default:
		return "other"
	}
}
