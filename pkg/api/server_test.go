package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jpleclerc/linktrade/pkg/lang"
	"github.com/jpleclerc/linktrade/pkg/legalize"
	"github.com/jpleclerc/linktrade/pkg/queue"
	"github.com/jpleclerc/linktrade/pkg/trade"
)

type stubVerifier struct{ ok bool }

func (v stubVerifier) VerifyOrder(ctx context.Context, orderID uint64) bool { return v.ok }

type stubFulfiller struct {
	mu    sync.Mutex
	calls []uint64
}

func (f *stubFulfiller) MarkFulfilled(ctx context.Context, orderID uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, orderID)
	return true
}

const testSet = "Ditto\nTransform"

func newTestServer(t *testing.T, q *queue.TradeQueue, verifier stubVerifier, ful *stubFulfiller) *httptest.Server {
	t.Helper()
	s := NewServer(Deps{
		Queue:        q,
		Verifier:     verifier,
		Builder:      legalize.SetBuilder{},
		Fulfiller:    ful,
		Catalog:      lang.English(),
		TradeSet:     testSet,
		PollInterval: 10 * time.Millisecond,
		Log:          zap.NewNop().Sugar(),
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func readText(t *testing.T, c *websocket.Conn) (string, error) {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := c.ReadMessage()
	return string(msg), err
}

func TestGateway_MissingOrderID(t *testing.T) {
	q := queue.New(queue.Options{})
	ts := newTestServer(t, q, stubVerifier{ok: true}, &stubFulfiller{})

	c, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/trade"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	msg, err := readText(t, c)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg != lang.English().InvalidOrderID {
		t.Fatalf("message = %q, want invalid order id", msg)
	}

	// Connection closes; there must be no second message.
	if extra, err := readText(t, c); err == nil {
		t.Fatalf("expected close, got %q", extra)
	}

	if q.Len() != 0 {
		t.Fatal("no queue interaction may occur for a malformed identifier")
	}
}

func TestGateway_NonNumericOrderID(t *testing.T) {
	q := queue.New(queue.Options{})
	ts := newTestServer(t, q, stubVerifier{ok: true}, &stubFulfiller{})

	c, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/trade?id=abc"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	msg, err := readText(t, c)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg != lang.English().InvalidOrderID {
		t.Fatalf("message = %q, want invalid order id", msg)
	}
}

func TestGateway_UnverifiableOrder(t *testing.T) {
	q := queue.New(queue.Options{})
	ts := newTestServer(t, q, stubVerifier{ok: false}, &stubFulfiller{})

	c, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/trade?id=12345"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	first, err := readText(t, c)
	if err != nil || first != lang.English().ConnectionSuccess {
		t.Fatalf("first message = %q (%v), want connection success", first, err)
	}
	second, err := readText(t, c)
	if err != nil || second != lang.English().InvalidOrderID {
		t.Fatalf("second message = %q (%v), want invalid order id", second, err)
	}
	if q.Len() != 0 {
		t.Fatal("unverifiable orders never reach the queue")
	}
}

func TestGateway_FullTrade(t *testing.T) {
	q := queue.New(queue.Options{})
	ful := &stubFulfiller{}
	ts := newTestServer(t, q, stubVerifier{ok: true}, ful)

	c, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/trade?id=12345"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	first, err := readText(t, c)
	if err != nil || first != lang.English().ConnectionSuccess {
		t.Fatalf("first message = %q (%v)", first, err)
	}

	// Act as the worker: claim the admitted item and complete it.
	var item *trade.WorkItem
	deadline := time.After(2 * time.Second)
	for item == nil {
		select {
		case <-deadline:
			t.Fatal("item never admitted to the queue")
		default:
			item = q.Claim()
			if item == nil {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}
	if item.Key != 12345 {
		t.Fatalf("claimed key = %d, want 12345", item.Key)
	}

	item.Notifier.TradeFinished(item.Payload.Species)
	q.Release(item.Key)
	item.Deliver(trade.Outcome{Kind: trade.OutcomeCompleted})

	finished, err := readText(t, c)
	if err != nil {
		t.Fatalf("read finished: %v", err)
	}
	if !strings.Contains(finished, "Trade finished") {
		t.Fatalf("message = %q, want trade finished", finished)
	}

	// Server closes once the session is terminal.
	for {
		if _, err := readText(t, c); err != nil {
			break
		}
	}

	ful.mu.Lock()
	defer ful.mu.Unlock()
	if len(ful.calls) != 1 || ful.calls[0] != 12345 {
		t.Fatalf("fulfillment calls = %v, want [12345]", ful.calls)
	}
}

func TestGateway_SecondConnectionSameOrderRejected(t *testing.T) {
	q := queue.New(queue.Options{})
	ts := newTestServer(t, q, stubVerifier{ok: true}, &stubFulfiller{})

	// First session parks in the queue (position 1 but never claimed, so it
	// sits in Active waiting for a worker that never comes — still admitted).
	c1, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/trade?id=777"), nil)
	if err != nil {
		t.Fatalf("dial 1: %v", err)
	}
	defer c1.Close()
	if _, err := readText(t, c1); err != nil {
		t.Fatalf("read 1: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for q.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("first session never admitted")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	c2, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/trade?id=777"), nil)
	if err != nil {
		t.Fatalf("dial 2: %v", err)
	}
	defer c2.Close()

	if msg, err := readText(t, c2); err != nil || msg != lang.English().ConnectionSuccess {
		t.Fatalf("second session first message = %q (%v)", msg, err)
	}
	msg, err := readText(t, c2)
	if err != nil || msg != lang.English().AlreadyInQueue {
		t.Fatalf("second session message = %q (%v), want already in queue", msg, err)
	}

	// First session's item is unaffected.
	if q.PositionOf(777).Position != 1 {
		t.Fatal("first session's item must remain queued")
	}
}

func TestOrderIDFromRequest(t *testing.T) {
	tests := []struct {
		uri  string
		want uint64
		ok   bool
	}{
		{"/trade?id=12345", 12345, true},
		{"/trade?lang=fr&id=42", 42, true},
		{"/trade", 0, false},
		{"/trade?id=", 0, false},
		{"/trade?id=abc", 0, false},
		{"/trade?id=0", 0, false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", tt.uri, nil)
		r.RequestURI = tt.uri
		id, ok := orderIDFromRequest(r)
		if id != tt.want || ok != tt.ok {
			t.Errorf("orderIDFromRequest(%q) = (%d, %v), want (%d, %v)", tt.uri, id, ok, tt.want, tt.ok)
		}
	}
}
