package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jpleclerc/linktrade/pkg/legalize"
	"github.com/jpleclerc/linktrade/pkg/queue"
	"github.com/jpleclerc/linktrade/pkg/trade"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) add(e string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) TradeInitialized(code int)      { n.add("initialized") }
func (n *recordingNotifier) TradeSearching(worker string)   { n.add("searching:" + worker) }
func (n *recordingNotifier) TradeFinished(species string)   { n.add("finished:" + species) }
func (n *recordingNotifier) TradeCanceled(reason string)    { n.add("canceled:" + reason) }

func (n *recordingNotifier) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func newPoolWithInterval(q Queue, exec Executor, size int) *Pool {
	p := NewPool(q, exec, size, zap.NewNop().Sugar())
	p.interval = 5 * time.Millisecond
	return p
}

func TestPool_ProcessesItem(t *testing.T) {
	q := queue.New(queue.Options{})
	n := &recordingNotifier{}
	item := trade.NewWorkItem(42, 87654321, legalize.Payload{Species: "Charizard"}, false, n)
	q.Admit(item)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newPoolWithInterval(q, SimulatedExecutor{Delay: time.Millisecond}, 1)
	p.Start(ctx)

	select {
	case out := <-item.Done:
		if out.Kind != trade.OutcomeCompleted {
			t.Fatalf("outcome = %+v, want completed", out)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker never finished the item")
	}

	want := []string{"initialized", "searching:Trader-1", "finished:Charizard"}
	got := n.snapshot()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestPool_ReleasesKeyAfterTrade(t *testing.T) {
	q := queue.New(queue.Options{})
	item := trade.NewWorkItem(42, 1, legalize.Payload{}, false, &recordingNotifier{})
	q.Admit(item)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newPoolWithInterval(q, SimulatedExecutor{Delay: time.Millisecond}, 1)
	p.Start(ctx)

	<-item.Done

	// Release may be a hair behind the Done delivery; give it a moment.
	deadline := time.After(time.Second)
	for {
		if q.Admit(trade.NewWorkItem(42, 2, legalize.Payload{}, false, &recordingNotifier{})) {
			return
		}
		select {
		case <-deadline:
			t.Fatal("key never became admissible again")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestPool_DiscardsCanceledItem(t *testing.T) {
	q := queue.New(queue.Options{})
	n := &recordingNotifier{}
	item := trade.NewWorkItem(42, 1, legalize.Payload{Species: "Charizard"}, false, n)
	q.Admit(item)
	item.MarkCanceled()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newPoolWithInterval(q, SimulatedExecutor{Delay: time.Millisecond}, 1)
	p.Start(ctx)

	select {
	case out := <-item.Done:
		if out.Kind != trade.OutcomeCanceled || out.Reason != "withdrawn" {
			t.Fatalf("outcome = %+v, want canceled/withdrawn", out)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("discarded item never delivered an outcome")
	}

	if got := n.snapshot(); len(got) != 0 {
		t.Fatalf("a discarded item must stay silent, got %v", got)
	}
}

func TestPool_RegistersWorkerCount(t *testing.T) {
	q := queue.New(queue.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newPoolWithInterval(q, SimulatedExecutor{Delay: time.Millisecond}, 3)
	p.Start(ctx)

	if got := q.WorkerCount(); got != 3 {
		t.Fatalf("worker count = %d, want 3", got)
	}
}
