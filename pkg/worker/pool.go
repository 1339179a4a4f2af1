package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jpleclerc/linktrade/pkg/trade"
)

// Executor performs the device-level trade for one claimed item. The actual
// automation lives outside this core; the pool only drives its lifecycle
// events and result delivery.
type Executor interface {
	Execute(ctx context.Context, item *trade.WorkItem) trade.Outcome
}

// Queue is the consumer side of the shared trade queue.
type Queue interface {
	Claim() *trade.WorkItem
	Release(key uint64)
	SetWorkerCount(n int)
}

// Pool runs a fixed set of trade workers against the shared queue.
type Pool struct {
	queue    Queue
	exec     Executor
	size     int
	interval time.Duration
	log      *zap.SugaredLogger
}

func NewPool(q Queue, exec Executor, size int, log *zap.SugaredLogger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{queue: q, exec: exec, size: size, interval: 500 * time.Millisecond, log: log}
}

// Start registers the worker count with the queue and launches the workers.
// They stop when ctx is canceled.
func (p *Pool) Start(ctx context.Context) {
	p.queue.SetWorkerCount(p.size)
	for i := 0; i < p.size; i++ {
		name := fmt.Sprintf("Trader-%d", i+1)
		go p.run(ctx, name)
	}
	p.log.Infow("worker_pool_started", "workers", p.size)
}

func (p *Pool) run(ctx context.Context, name string) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			item := p.queue.Claim()
			if item == nil {
				continue
			}
			p.process(ctx, name, item)
		}
	}
}

func (p *Pool) process(ctx context.Context, name string, item *trade.WorkItem) {
	// Withdrawn before we started: deliver a discarded result, say nothing.
	if item.Canceled() {
		p.queue.Release(item.Key)
		item.Deliver(trade.Outcome{Kind: trade.OutcomeCanceled, Reason: "withdrawn"})
		p.log.Infow("trade_discarded_before_start", "order_id", item.Key, "worker", name)
		return
	}

	p.log.Infow("trade_started", "order_id", item.Key, "worker", name, "code", item.Code)
	item.Notifier.TradeInitialized(item.Code)
	item.Notifier.TradeSearching(name)

	out := p.exec.Execute(ctx, item)

	// Release before delivering so the session's cleanup never mistakes a
	// finished trade for one still in flight.
	p.queue.Release(item.Key)

	// Flagged mid-flight: the result is discarded regardless of outcome.
	if item.Canceled() {
		out = trade.Outcome{Kind: trade.OutcomeCanceled, Reason: "withdrawn"}
		item.Deliver(out)
		p.log.Infow("trade_result_discarded", "order_id", item.Key, "worker", name)
		return
	}

	if out.Kind == trade.OutcomeCompleted {
		item.Notifier.TradeFinished(item.Payload.Species)
	} else {
		item.Notifier.TradeCanceled(out.Reason)
	}
	item.Deliver(out)
	p.log.Infow("trade_done", "order_id", item.Key, "worker", name, "completed", out.Kind == trade.OutcomeCompleted)
}

// SimulatedExecutor stands in for the real automation in development: it
// waits a configured duration and reports success.
type SimulatedExecutor struct {
	Delay time.Duration
}

func (e SimulatedExecutor) Execute(ctx context.Context, item *trade.WorkItem) trade.Outcome {
	select {
	case <-ctx.Done():
		return trade.Outcome{Kind: trade.OutcomeCanceled, Reason: "shutdown"}
	case <-time.After(e.Delay):
		return trade.Outcome{Kind: trade.OutcomeCompleted}
	}
}
