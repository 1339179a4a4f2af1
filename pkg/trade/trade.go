package trade

import (
	"fmt"
	"sync/atomic"

	"github.com/jpleclerc/linktrade/pkg/legalize"
)

// OutcomeKind is the terminal result reported by the executing worker.
type OutcomeKind int

const (
	OutcomeCompleted OutcomeKind = iota
	OutcomeCanceled
)

// Outcome travels on the item's Done channel once the trade routine ends.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

// Notifier receives lifecycle events from the worker executing a trade.
// Implementations are best-effort: delivery failure must never stop a worker.
type Notifier interface {
	TradeInitialized(code int)
	TradeSearching(worker string)
	TradeFinished(species string)
	TradeCanceled(reason string)
}

// WorkItem is the unit submitted to the shared trade queue. One non-terminal
// item per Key exists at any time; the queue enforces this at admission.
type WorkItem struct {
	Key      uint64 // order id, correlation and dedup key
	Code     int    // random 8-digit link code
	Payload  legalize.Payload
	Favored  bool
	Notifier Notifier

	// Done carries the terminal outcome back to the owning session. Buffered
	// so a worker never blocks on a session that already went away.
	Done chan Outcome

	canceled atomic.Bool
}

func NewWorkItem(key uint64, code int, payload legalize.Payload, favored bool, n Notifier) *WorkItem {
	return &WorkItem{
		Key:      key,
		Code:     code,
		Payload:  payload,
		Favored:  favored,
		Notifier: n,
		Done:     make(chan Outcome, 1),
	}
}

// MarkCanceled flags an already-claimed item so the worker discards its
// result. Part of the CurrentlyProcessingRemoved contract.
func (w *WorkItem) MarkCanceled() { w.canceled.Store(true) }

func (w *WorkItem) Canceled() bool { return w.canceled.Load() }

// Deliver hands the outcome to the session without blocking. A second call,
// or a call after the session stopped listening, is a no-op.
func (w *WorkItem) Deliver(out Outcome) {
	select {
	case w.Done <- out:
	default:
	}
}

// FormatCode renders an 8-digit link code as "0000 0000".
func FormatCode(code int) string {
	return fmt.Sprintf("%04d %04d", code/10000, code%10000)
}
