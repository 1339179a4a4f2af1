package notify

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jpleclerc/linktrade/pkg/lang"
	"github.com/jpleclerc/linktrade/pkg/trade"
)

// Kind tags a lifecycle notification for the observability sinks.
type Kind string

const (
	KindConnected     Kind = "connected"
	KindInitialized   Kind = "initialized"
	KindSearching     Kind = "searching"
	KindFinished      Kind = "finished"
	KindCanceled      Kind = "canceled"
	KindQueuePosition Kind = "queue_position"
	KindQueueEta      Kind = "queue_eta"
	KindError         Kind = "error"
)

// Sender is the outbound side of the session's connection. Send returns an
// error once the connection is closed; the relay swallows it.
type Sender interface {
	Send(msg string) error
}

// Event is the record mirrored to external sinks for every notification.
type Event struct {
	OrderID uint64    `json:"orderId"`
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Mirror receives a copy of every notification. Best-effort, like delivery.
type Mirror interface {
	Publish(e Event)
}

// Relay delivers lifecycle events to the originating connection. Every
// notification hits the local log sink before transmission, in the same
// order, so a session's narrative survives a failed network delivery.
type Relay struct {
	orderID uint64
	conn    Sender
	cat     lang.Catalog
	log     *zap.SugaredLogger
	mirror  Mirror
}

func NewRelay(orderID uint64, conn Sender, cat lang.Catalog, log *zap.SugaredLogger, mirror Mirror) *Relay {
	return &Relay{orderID: orderID, conn: conn, cat: cat, log: log, mirror: mirror}
}

var _ trade.Notifier = (*Relay)(nil)

func (r *Relay) emit(kind Kind, msg string) {
	r.log.Infow("notify", "order_id", r.orderID, "kind", string(kind), "msg", msg)
	if r.mirror != nil {
		r.mirror.Publish(Event{OrderID: r.orderID, Kind: kind, Message: msg, At: time.Now()})
	}
	if err := r.conn.Send(msg); err != nil {
		// The peer may already have torn the connection down; that is not an
		// error for the session.
		r.log.Debugw("notify_send_failed", "order_id", r.orderID, "kind", string(kind), "err", err)
	}
}

func (r *Relay) Connected()      { r.emit(KindConnected, r.cat.ConnectionSuccess) }
func (r *Relay) InvalidOrder()   { r.emit(KindError, r.cat.InvalidOrderID) }
func (r *Relay) AlreadyInQueue() { r.emit(KindError, r.cat.AlreadyInQueue) }
func (r *Relay) InitFailed()     { r.emit(KindError, r.cat.TradeInitFailed) }

func (r *Relay) QueuePosition(n int) {
	r.emit(KindQueuePosition, fmt.Sprintf(r.cat.QueuePosition, n))
}

func (r *Relay) QueueEta(eta time.Duration) {
	minutes := int(eta.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	r.emit(KindQueueEta, fmt.Sprintf(r.cat.QueueEstimatedTime, minutes))
}

func (r *Relay) SetParseError(invalid []string) {
	r.emit(KindError, fmt.Sprintf(r.cat.SetParseError, r.orderID, strings.Join(invalid, "\n")))
}

func (r *Relay) TimeoutError(species string) {
	r.emit(KindError, fmt.Sprintf(r.cat.TimeoutError, species))
}

func (r *Relay) VersionMismatch() { r.emit(KindError, r.cat.VersionMismatchError) }

func (r *Relay) GeneralError(species string) {
	r.emit(KindError, fmt.Sprintf(r.cat.GeneralError, species))
}

func (r *Relay) TradeInProgress() { r.emit(KindError, r.cat.TradeInProgress) }
func (r *Relay) TradeDiscarded()  { r.emit(KindError, r.cat.TradeDiscarded) }

func (r *Relay) TradeInitialized(code int) {
	r.emit(KindInitialized, fmt.Sprintf(r.cat.TradeInitialize, trade.FormatCode(code)))
}

func (r *Relay) TradeSearching(worker string) {
	r.emit(KindSearching, fmt.Sprintf(r.cat.TradeSearching, worker))
}

func (r *Relay) TradeFinished(species string) {
	if species == "" {
		r.emit(KindFinished, r.cat.TradeFinishedGeneric)
		return
	}
	r.emit(KindFinished, fmt.Sprintf(r.cat.TradeFinished, species))
}

func (r *Relay) TradeCanceled(reason string) {
	r.emit(KindCanceled, fmt.Sprintf(r.cat.TradeCanceled, reason))
}
