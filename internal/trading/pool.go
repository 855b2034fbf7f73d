package trading

import (
	"context"
	"log"
	"os"
	"sync"
)

// Side distinguishes buy and sell submissions.
type Side string

// Submission sides.
const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// SubmitResult reports the outcome of one submission.
type SubmitResult struct {
	TokenID string
	Side    Side
	Err     error
}

type submitJob struct {
	tokenID string
	side    Side
}

// Pool runs trade submissions on a bounded worker pool. The evaluation loop
// enqueues and moves on; outcomes surface on the result channel so failures
// stay observable instead of vanishing into fire-and-forget goroutines.
type Pool struct {
	exec    TradeExecutor
	jobs    chan submitJob
	results chan SubmitResult
	logger  *log.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// PoolOptions configures the submit pool.
type PoolOptions struct {
	Executor   TradeExecutor
	Workers    int
	QueueDepth int
	Logger     *log.Logger
}

// NewPool creates and starts a submit pool.
func NewPool(ctx context.Context, opts PoolOptions) *Pool {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[submit] ", log.LstdFlags)
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	depth := opts.QueueDepth
	if depth < 1 {
		depth = 1
	}

	p := &Pool{
		exec:    opts.Executor,
		jobs:    make(chan submitJob, depth),
		results: make(chan SubmitResult, depth),
		logger:  logger,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	return p
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for job := range p.jobs {
		var err error
		switch job.side {
		case SideBuy:
			err = p.exec.SubmitBuy(ctx, job.tokenID)
		case SideSell:
			err = p.exec.SubmitSell(ctx, job.tokenID)
		}
		if err != nil {
			p.logger.Printf("submit %s for token %s failed: %v", job.side, job.tokenID, err)
		}

		select {
		case p.results <- SubmitResult{TokenID: job.tokenID, Side: job.side, Err: err}:
		default:
			// Nobody is draining results; the log line above already
			// recorded the outcome.
		}
	}
}

// Enqueue queues a submission without blocking. Returns false when the
// queue is full; the caller retries on a later tick.
func (p *Pool) Enqueue(tokenID string, side Side) bool {
	select {
	case p.jobs <- submitJob{tokenID: tokenID, side: side}:
		return true
	default:
		p.logger.Printf("submit queue full, dropping %s for token %s", side, tokenID)
		return false
	}
}

// Results exposes submission outcomes.
func (p *Pool) Results() <-chan SubmitResult {
	return p.results
}

// Close stops accepting jobs and waits for in-flight submissions.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.jobs)
		p.wg.Wait()
		close(p.results)
	})
}
