// Package engine drives the per-tick token evaluation loop: segment
// classification, the safety gate chain, ETA forecasting, and entry/exit
// planning, in that order, per token.
package engine

import (
	"context"
	"errors"
	"log"
	"math"
	"os"
	"time"

	"solana-entry-engine/internal/config"
	"solana-entry-engine/internal/domain"
	"solana-entry-engine/internal/forecast"
	"solana-entry-engine/internal/gate"
	"solana-entry-engine/internal/lookup"
	"solana-entry-engine/internal/observability"
	"solana-entry-engine/internal/plan"
	"solana-entry-engine/internal/segment"
	"solana-entry-engine/internal/storage"
	"solana-entry-engine/internal/trading"
)

// Evaluator runs the strict per-token pipeline. Constructed once at startup
// with every collaborator injected; holds no per-token mutable state of its
// own, so concurrent evaluations of different tokens are safe.
type Evaluator struct {
	cfg        *config.Config
	metrics    storage.MetricStore
	decisions  storage.DecisionStore
	classifier *segment.Classifier
	gates      *gate.Engine
	forecaster *forecast.Forecaster
	planner    *plan.Planner
	positions  trading.PositionSource
	verifier   trading.TradeVerifier
	pool       *trading.Pool
	obs        *observability.Metrics
	logger     *log.Logger
	now        func() time.Time
}

// EvaluatorOptions wires the evaluator's collaborators.
type EvaluatorOptions struct {
	Config     *config.Config
	Metrics    storage.MetricStore
	Decisions  storage.DecisionStore
	Classifier *segment.Classifier
	Gates      *gate.Engine
	Forecaster *forecast.Forecaster
	Planner    *plan.Planner
	Positions  trading.PositionSource
	Verifier   trading.TradeVerifier
	Pool       *trading.Pool
	Observer   *observability.Metrics
	Logger     *log.Logger
	Clock      func() time.Time
}

// NewEvaluator creates an evaluator.
func NewEvaluator(opts EvaluatorOptions) *Evaluator {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Evaluator{
		cfg:        opts.Config,
		metrics:    opts.Metrics,
		decisions:  opts.Decisions,
		classifier: opts.Classifier,
		gates:      opts.Gates,
		forecaster: opts.Forecaster,
		planner:    opts.Planner,
		positions:  opts.Positions,
		verifier:   opts.Verifier,
		pool:       opts.Pool,
		obs:        opts.Observer,
		logger:     logger,
		now:        clock,
	}
}

// EvaluateToken runs one full evaluation for a token. The pipeline order is
// fixed: segments, then gates, then forecast, then planning. Errors follow
// the shared taxonomy: ErrInsufficientHistory means not ready (nothing
// written), transient errors mean retry next tick, ErrDataInconsistent
// skips the single evaluation.
func (e *Evaluator) EvaluateToken(ctx context.Context, tokenID string) error {
	stored, err := e.decisions.Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return domain.Transient("read decision state", err)
	}
	if stored.State == domain.StateExited {
		return nil
	}
	s := stored.Clone()

	points, err := e.metrics.ReadRange(ctx, tokenID, 0, math.MaxInt64)
	if err != nil {
		return domain.Transient("read metrics", err)
	}
	if len(points) == 0 {
		return domain.ErrInsufficientHistory
	}
	if !lookup.Ordered(points) {
		return domain.ErrDataInconsistent
	}
	nowIter := points[len(points)-1].Second

	if s.State == domain.StateCollecting {
		if nowIter < e.cfg.Segments[0].EndSec {
			// Not ready; nothing is written this tick.
			return domain.ErrInsufficientHistory
		}
		plan.BeginSegmenting(s)
	}

	open, err := e.positions.HasOpenPosition(ctx, tokenID)
	if err != nil {
		return domain.Transient("position lookup", err)
	}

	if _, err := e.classifier.ResolveLabels(s, points, nowIter); err != nil {
		return err
	}

	// One-shot trade verification, bounded by the checkpoint set to protect
	// the rate-limited backing service. A transient failure leaves the
	// checkpoint unmarked so the next tick retries.
	if cp := e.cfg.VerifyCheckpoint; nowIter >= cp && !s.SeenCheckpoint(cp) {
		real, err := e.verifier.VerifyRealTrading(ctx, tokenID, s.PairAddress)
		if err != nil {
			return domain.Transient("verify trading", err)
		}
		s.MarkCheckpoint(cp)
		if !real {
			plan.RecordRejection(s, nowIter, e.cfg.EntrySeconds, open)
			if !open {
				s.Archive = true
			}
			return e.persist(ctx, s)
		}
	}

	verdict := e.gates.Evaluate(tokenID, points, nowIter, open)
	if verdict.Vetoed {
		e.countVetoes(verdict)
		if verdict.Archive && !open {
			s.Archive = true
		}
	}
	if verdict.SuppressForecast {
		// Honeypot suppression is permanent for the token, surviving ticks
		// where the sliding window no longer fires.
		s.ForecastSuppressed = true
	}

	allowed := !verdict.Vetoed && segment.AllowEntry(e.readyLabels(s, nowIter))
	if allowed {
		allowed, err = e.forecastAllows(points, nowIter, s.ForecastSuppressed)
		if err != nil {
			return err
		}
	}

	if allowed {
		plan.RecordEligibility(s)
	} else {
		plan.RecordRejection(s, nowIter, e.cfg.EntrySeconds, open)
	}

	if err := e.managePosition(ctx, s, points, nowIter, open); err != nil {
		return err
	}

	// Submit a buy once per lifetime: a one-shot side effect at the entry
	// checkpoint, guarded like the verification call. The checkpoint is
	// marked only on a successful enqueue, so a buy dropped on a full queue
	// retries on a later tick. Config validation keeps the verify checkpoint
	// strictly before the entry second, so the two checkpoint keys never
	// collide.
	if s.Decision == domain.DecisionBuy && nowIter >= e.cfg.EntrySeconds &&
		!open && !s.SeenCheckpoint(e.cfg.EntrySeconds) && e.pool != nil {
		if e.pool.Enqueue(tokenID, trading.SideBuy) {
			s.MarkCheckpoint(e.cfg.EntrySeconds)
		} else {
			e.logger.Printf("submit queue full, buy for token %s retries next tick", tokenID)
		}
	}

	return e.persist(ctx, s)
}

// readyLabels returns the labels of every window whose end has been
// reached. A window past readiness that could not be computed contributes
// its unknown label, which the aggregation rejects.
func (e *Evaluator) readyLabels(s *domain.TokenDecisionState, nowIter int64) []domain.SegmentLabel {
	var labels []domain.SegmentLabel
	for i, w := range e.classifier.Windows() {
		if nowIter >= w.EndSec {
			labels = append(labels, s.SegmentLabels[i])
		}
	}
	return labels
}

// forecastAllows applies the probability gate. Before the entry second the
// gate is not yet in force; segments and gates alone decide.
func (e *Evaluator) forecastAllows(points []*domain.MetricPoint, nowIter int64, suppress bool) (bool, error) {
	if nowIter < e.cfg.EntrySeconds {
		return true, nil
	}
	if suppress {
		return false, nil
	}
	fc, err := e.forecaster.Forecast(points)
	if errors.Is(err, domain.ErrInsufficientHistory) {
		// Sparse history: seconds have passed but too few rows recorded.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if e.obs != nil {
		e.obs.ForecastPHit.Observe(fc.PHit)
	}
	return fc.PHit >= e.cfg.PHitThreshold, nil
}

// managePosition confirms entries and exits against the external position
// source and keeps the exit plan current. An open position keeps being
// managed even against a rejected or frozen entry decision: capital already
// committed still gets a planned exit.
func (e *Evaluator) managePosition(ctx context.Context, s *domain.TokenDecisionState, points []*domain.MetricPoint, nowIter int64, open bool) error {
	// A fill can land after a veto already gated (and possibly froze) the
	// decision; the open position still transitions to entered so the exit
	// plan covers it.
	if open && (s.State == domain.StateEligible || s.State == domain.StateGated) {
		price, err := e.entryAnchorPrice(ctx, s.TokenID, points)
		if err != nil {
			return err
		}
		plan.ConfirmEntry(s, e.cfg.EntrySeconds, price)
	}

	if s.State != domain.StateEntered {
		return nil
	}

	e.planner.Replan(s, points, nowIter)

	if !open {
		// External sell confirmed.
		plan.ConfirmExit(s)
		return nil
	}
	if s.PlanHit {
		// Target already reached: sell and close out.
		if e.pool != nil {
			e.pool.Enqueue(s.TokenID, trading.SideSell)
		}
		plan.ConfirmExit(s)
	}
	return nil
}

// entryAnchorPrice picks the entry anchor: the earliest recorded price at or
// after the entry second, falling back to the in-window lookup.
func (e *Evaluator) entryAnchorPrice(ctx context.Context, tokenID string, points []*domain.MetricPoint) (float64, error) {
	p, err := e.metrics.EarliestPriceAt(ctx, tokenID, e.cfg.EntrySeconds)
	if err != nil {
		return 0, domain.Transient("read entry price", err)
	}
	if p != nil {
		return *p, nil
	}
	price, err := lookup.PriceAt(e.cfg.EntrySeconds, points)
	if err != nil {
		return 0, domain.ErrDataInconsistent
	}
	return price, nil
}

func (e *Evaluator) persist(ctx context.Context, s *domain.TokenDecisionState) error {
	s.UpdatedAtMs = e.now().UnixMilli()
	if err := e.decisions.Update(ctx, s); err != nil {
		return domain.Transient("write decision state", err)
	}
	if e.obs != nil {
		e.obs.DecisionsTotal.WithLabelValues(string(s.Decision)).Inc()
	}
	return nil
}

func (e *Evaluator) countVetoes(v domain.SafetyVerdict) {
	if e.obs == nil {
		return
	}
	for _, r := range v.AllReasons {
		e.obs.VetoesTotal.WithLabelValues(string(r)).Inc()
	}
}
