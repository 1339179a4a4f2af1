package session

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jpleclerc/linktrade/pkg/legalize"
	"github.com/jpleclerc/linktrade/pkg/notify"
	"github.com/jpleclerc/linktrade/pkg/queue"
	"github.com/jpleclerc/linktrade/pkg/trade"
	"github.com/jpleclerc/linktrade/pkg/util"
)

// State tracks a session through its lifecycle. Completed, Canceled and
// Failed are terminal.
type State int32

const (
	StateOpened State = iota
	StateVerifying
	StateAdmitting
	StateQueued
	StateActive
	StateCompleted
	StateCanceled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpened:
		return "Opened"
	case StateVerifying:
		return "Verifying"
	case StateAdmitting:
		return "Admitting"
	case StateQueued:
		return "Queued"
	case StateActive:
		return "Active"
	case StateCompleted:
		return "Completed"
	case StateCanceled:
		return "Canceled"
	default:
		return "Failed"
	}
}

// Conn is the session's exclusively-owned connection handle.
type Conn interface {
	Send(msg string) error
	Close() error
}

// Queue is the slice of the shared trade queue the orchestrator consumes.
type Queue interface {
	Admit(item *trade.WorkItem) bool
	PositionOf(key uint64) queue.Position
	Remove(key uint64) queue.RemoveResult
	RandomCode() int
	WorkerCount() int
	EstimateWait(position, workers int) time.Duration
}

// Verifier confirms an order id corresponds to a real, fulfillable order.
type Verifier interface {
	VerifyOrder(ctx context.Context, orderID uint64) bool
}

// Fulfiller marks the order fulfilled once the trade fully completes.
type Fulfiller interface {
	MarkFulfilled(ctx context.Context, orderID uint64) bool
}

// Record is the audit row persisted on every terminal transition.
type Record struct {
	OrderID    uint64    `json:"orderId"`
	Code       int       `json:"code"`
	State      string    `json:"state"`
	Species    string    `json:"species"`
	Reason     string    `json:"reason,omitempty"`
	FinishedAt time.Time `json:"finishedAt"`
}

type Recorder interface {
	SaveRecord(rec Record) error
}

// Deps are the collaborators one session orchestrates.
type Deps struct {
	Queue        Queue
	Verifier     Verifier
	Builder      legalize.Builder
	Fulfiller    Fulfiller
	Recorder     Recorder
	Clock        util.Clock
	Log          *zap.SugaredLogger
	PollInterval time.Duration
	Favored      bool
}

// Session owns the end-to-end lifecycle for one connection: admission check,
// work-item construction, queue submission, position polling and terminal
// cleanup. Run is the only goroutine that mutates it.
type Session struct {
	orderID uint64
	conn    Conn
	relay   *notify.Relay
	set     string
	deps    Deps

	state    atomic.Int32
	species  string
	code     int
	admitted bool
}

func New(orderID uint64, conn Conn, relay *notify.Relay, setDescription string, deps Deps) *Session {
	if deps.PollInterval <= 0 {
		deps.PollInterval = 5 * time.Second
	}
	if deps.Clock == nil {
		deps.Clock = util.RealClock{}
	}
	return &Session{orderID: orderID, conn: conn, relay: relay, set: setDescription, deps: deps}
}

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// Run drives the session to a terminal state. It returns when the session is
// terminal or ctx is canceled (connection closed), and always leaves the
// queue without a non-terminal item for this order id.
func (s *Session) Run(ctx context.Context) {
	log := s.deps.Log

	s.setState(StateVerifying)
	if !s.deps.Verifier.VerifyOrder(ctx, s.orderID) {
		log.Infow("order_verification_failed", "order_id", s.orderID)
		s.relay.InvalidOrder()
		s.terminate(StateFailed, "verification_failed")
		return
	}

	s.setState(StateAdmitting)
	payload, res := s.deps.Builder.BuildPayload(s.set)
	s.species = payload.Species
	if res != legalize.ResultOK {
		log.Errorw("payload_build_failed", "order_id", s.orderID, "result", res.String())
		switch res {
		case legalize.ResultTimeout:
			s.relay.TimeoutError(payload.Species)
		case legalize.ResultVersionMismatch:
			s.relay.VersionMismatch()
		case legalize.ResultInvalidLines:
			s.relay.SetParseError(payload.Invalid)
		default:
			s.relay.GeneralError(payload.Species)
		}
		s.terminate(StateFailed, "payload_build_"+res.String())
		return
	}

	s.code = s.deps.Queue.RandomCode()
	item := trade.NewWorkItem(s.orderID, s.code, payload, s.deps.Favored, s.relay)

	if !s.deps.Queue.Admit(item) {
		log.Infow("duplicate_session_rejected", "order_id", s.orderID)
		s.relay.AlreadyInQueue()
		s.terminate(StateFailed, "duplicate_session")
		return
	}
	s.admitted = true
	s.setState(StateQueued)
	log.Infow("trade_queued", "order_id", s.orderID, "code", s.code, "species", s.species)

	if !s.pollUntilFront(ctx) {
		s.terminate(StateCanceled, "connection_closed")
		return
	}

	s.setState(StateActive)
	select {
	case out := <-item.Done:
		if out.Kind == trade.OutcomeCompleted {
			if !s.deps.Fulfiller.MarkFulfilled(ctx, s.orderID) {
				log.Errorw("fulfillment_failed", "order_id", s.orderID)
			}
			s.terminate(StateCompleted, "")
		} else {
			s.terminate(StateCanceled, out.Reason)
		}
	case <-ctx.Done():
		s.terminate(StateCanceled, "connection_closed")
	}
}

// pollUntilFront reports the item's queue position at a fixed cadence until
// it is next in line (or already claimed). Returns false the instant the
// connection closes; no further polling or sending happens after that.
func (s *Session) pollUntilFront(ctx context.Context) bool {
	for {
		pos := s.deps.Queue.PositionOf(s.orderID)
		if pos.Position <= 1 {
			return true
		}
		workers := s.deps.Queue.WorkerCount()
		if pos.Position > workers {
			s.relay.QueuePosition(pos.Position)
			s.relay.QueueEta(s.deps.Queue.EstimateWait(pos.Position, workers))
		}
		select {
		case <-ctx.Done():
			return false
		case <-s.deps.Clock.After(s.deps.PollInterval):
		}
	}
}

// terminate performs the idempotent cleanup every terminal transition owes:
// one queue removal keyed by the order id, one audit record, and connection
// closure. Removal results for in-flight items surface as their own user
// messages rather than internal errors.
func (s *Session) terminate(st State, reason string) {
	s.setState(st)

	// Removal is keyed by the session id, so it only runs once this session
	// actually submitted an item: a rejected duplicate must not strip the
	// sibling session's queued work.
	if s.admitted {
		switch s.deps.Queue.Remove(s.orderID) {
		case queue.Removed:
			s.deps.Log.Infow("trade_removed_from_queue", "order_id", s.orderID)
		case queue.CurrentlyProcessing:
			s.relay.TradeInProgress()
		case queue.CurrentlyProcessingRemoved:
			s.relay.TradeDiscarded()
		case queue.NotFound:
		}
	}

	if s.deps.Recorder != nil {
		rec := Record{
			OrderID:    s.orderID,
			Code:       s.code,
			State:      st.String(),
			Species:    s.species,
			Reason:     reason,
			FinishedAt: s.deps.Clock.Now(),
		}
		if err := s.deps.Recorder.SaveRecord(rec); err != nil {
			s.deps.Log.Errorw("trade_record_save_failed", "order_id", s.orderID, "err", err)
		}
	}

	s.deps.Log.Infow("session_terminal", "order_id", s.orderID, "state", st.String(), "reason", reason)
	_ = s.conn.Close()
}
