package queue

import (
	"math/rand"
	"sync"
	"time"

	"github.com/jpleclerc/linktrade/pkg/trade"
)

// Position is a transient snapshot of an item's rank among pending items.
// Position 0 means the key is absent or already claimed by a worker.
type Position struct {
	Key      uint64
	Position int
}

// RemoveResult reports what Remove found under the queue lock.
type RemoveResult int

const (
	NotFound RemoveResult = iota
	Removed
	// CurrentlyProcessing: a worker already claimed the item; it was not
	// removed and the worker proceeds.
	CurrentlyProcessing
	// CurrentlyProcessingRemoved: a worker already claimed the item but it
	// was flagged so the worker discards its result.
	CurrentlyProcessingRemoved
)

func (r RemoveResult) String() string {
	switch r {
	case Removed:
		return "Removed"
	case CurrentlyProcessing:
		return "CurrentlyProcessing"
	case CurrentlyProcessingRemoved:
		return "CurrentlyProcessingRemoved"
	default:
		return "NotFound"
	}
}

type Options struct {
	// DiscardClaimed makes Remove flag claimed items canceled instead of
	// letting the worker's result stand.
	DiscardClaimed bool
	// SecondsPerTrade is the pacing constant behind wait estimates.
	SecondsPerTrade time.Duration
}

// TradeQueue is the shared, concurrency-safe FIFO of pending work items.
// All mutation happens under one mutex, which is what makes the Remove/Claim
// race deterministic: whichever call takes the lock first wins.
//
// Favored items rank ahead of normal ones; within a tier, admission order.
type TradeQueue struct {
	mu      sync.Mutex
	favored []*trade.WorkItem
	normal  []*trade.WorkItem
	pending map[uint64]*trade.WorkItem
	claimed map[uint64]*trade.WorkItem
	workers int

	opts Options
	rng  *rand.Rand
}

func New(opts Options) *TradeQueue {
	if opts.SecondsPerTrade <= 0 {
		opts.SecondsPerTrade = 90 * time.Second
	}
	return &TradeQueue{
		pending: make(map[uint64]*trade.WorkItem),
		claimed: make(map[uint64]*trade.WorkItem),
		opts:    opts,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Admit inserts an item keyed by its order id. Returns false if a
// non-terminal item already exists for that key, either still pending or
// claimed by a worker. The check and insert are one critical section, so
// concurrent admissions for one key resolve to exactly one success.
func (q *TradeQueue) Admit(item *trade.WorkItem) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[item.Key]; ok {
		return false
	}
	if _, ok := q.claimed[item.Key]; ok {
		return false
	}

	q.pending[item.Key] = item
	if item.Favored {
		q.favored = append(q.favored, item)
	} else {
		q.normal = append(q.normal, item)
	}
	return true
}

// PositionOf returns the item's 1-based rank over pending items, favored
// tier first. 0 when absent or currently being processed.
func (q *TradeQueue) PositionOf(key uint64) Position {
	q.mu.Lock()
	defer q.mu.Unlock()

	rank := 0
	for _, it := range q.favored {
		rank++
		if it.Key == key {
			return Position{Key: key, Position: rank}
		}
	}
	for _, it := range q.normal {
		rank++
		if it.Key == key {
			return Position{Key: key, Position: rank}
		}
	}
	return Position{Key: key}
}

// Remove withdraws a pending item. Removing an absent key is a no-op, not an
// error. A claimed item is never pulled out from under its worker: depending
// on DiscardClaimed it is either flagged for discard or left to finish.
func (q *TradeQueue) Remove(key uint64) RemoveResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	if item, ok := q.claimed[key]; ok {
		if q.opts.DiscardClaimed {
			item.MarkCanceled()
			delete(q.claimed, key)
			return CurrentlyProcessingRemoved
		}
		return CurrentlyProcessing
	}

	if _, ok := q.pending[key]; !ok {
		return NotFound
	}
	delete(q.pending, key)
	q.favored = drop(q.favored, key)
	q.normal = drop(q.normal, key)
	return Removed
}

// Claim hands the front item to a worker, moving it from pending to claimed.
// Returns nil when the queue is empty. Workers poll; nothing blocks here.
func (q *TradeQueue) Claim() *trade.WorkItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	var item *trade.WorkItem
	if len(q.favored) > 0 {
		item, q.favored = q.favored[0], q.favored[1:]
	} else if len(q.normal) > 0 {
		item, q.normal = q.normal[0], q.normal[1:]
	} else {
		return nil
	}

	delete(q.pending, item.Key)
	q.claimed[item.Key] = item
	return item
}

// Release drops a finished item from the claimed set so its key can be
// admitted again.
func (q *TradeQueue) Release(key uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.claimed, key)
}

// RandomCode draws an 8-digit link code identifying the party in-session.
func (q *TradeQueue) RandomCode() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.rng.Intn(100_000_000)
}

// SetWorkerCount is called once by the worker pool at startup.
func (q *TradeQueue) SetWorkerCount(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.workers = n
}

func (q *TradeQueue) WorkerCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.workers
}

// EstimateWait projects the wait for a given rank: each batch of workers
// clears workerCount items per trade duration.
func (q *TradeQueue) EstimateWait(position, workers int) time.Duration {
	if position <= 0 || workers <= 0 {
		return 0
	}
	batches := (position + workers - 1) / workers
	return time.Duration(batches) * q.opts.SecondsPerTrade
}

// Len reports pending items, for logs and tests.
func (q *TradeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.favored) + len(q.normal)
}

func drop(items []*trade.WorkItem, key uint64) []*trade.WorkItem {
	for i, it := range items {
		if it.Key == key {
			return append(items[:i], items[i+1:]...)
		}
	}
	return items
}
