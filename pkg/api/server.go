package api

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/jpleclerc/linktrade/pkg/lang"
	"github.com/jpleclerc/linktrade/pkg/legalize"
	"github.com/jpleclerc/linktrade/pkg/notify"
	"github.com/jpleclerc/linktrade/pkg/session"
	"github.com/jpleclerc/linktrade/pkg/util"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Storefront widgets connect from arbitrary shop domains.
		return true
	},
}

var orderIDPattern = regexp.MustCompile(`[?&]id=(\d+)`)

// Deps are the collaborators the gateway hands to each session.
type Deps struct {
	Queue     session.Queue
	Verifier  session.Verifier
	Builder   legalize.Builder
	Fulfiller session.Fulfiller
	Recorder  session.Recorder
	Mirror    notify.Mirror
	Clock     util.Clock

	Catalog      lang.Catalog
	TradeSet     string
	PollInterval time.Duration
	Log          *zap.SugaredLogger
}

// Server is the connection gateway: it accepts inbound websockets, extracts
// the order id from the connection's addressing metadata, and runs one
// session per connection.
type Server struct {
	deps   Deps
	router *mux.Router
}

func NewServer(deps Deps) *Server {
	s := &Server{deps: deps, router: mux.NewRouter()}
	s.router.HandleFunc("/trade", s.handleTrade)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	return s
}

// Handler exposes the routed handler, wrapped for cross-origin storefronts.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

func (s *Server) Start(addr string) error {
	s.deps.Log.Infow("gateway_starting", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// orderIDFromRequest applies the strict numeric pattern to the request's
// full URI. 0 and false mean the identifier is missing or unparsable, a
// terminal condition for the connection.
func orderIDFromRequest(r *http.Request) (uint64, bool) {
	m := orderIDPattern.FindStringSubmatch(r.RequestURI)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	log := s.deps.Log

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorw("ws_upgrade_failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	conn := newWSConn(ws, log)

	orderID, ok := orderIDFromRequest(r)
	if !ok {
		// Malformed identifier is terminal: one message, close, no queue
		// interaction.
		log.Infow("connection_missing_order_id", "remote", r.RemoteAddr)
		_ = conn.Send(s.deps.Catalog.InvalidOrderID)
		conn.Close()
		return
	}

	log.Infow("connection_opened", "order_id", orderID, "remote", r.RemoteAddr)

	relay := notify.NewRelay(orderID, conn, s.deps.Catalog, log, s.deps.Mirror)
	relay.Connected()

	ctx, cancel := context.WithCancel(context.Background())
	sess := session.New(orderID, conn, relay, s.deps.TradeSet, session.Deps{
		Queue:        s.deps.Queue,
		Verifier:     s.deps.Verifier,
		Builder:      s.deps.Builder,
		Fulfiller:    s.deps.Fulfiller,
		Recorder:     s.deps.Recorder,
		Clock:        s.deps.Clock,
		Log:          log,
		PollInterval: s.deps.PollInterval,
	})

	go sess.Run(ctx)

	// The read pump is our close detector: graceful or abrupt, the session's
	// context is canceled the instant the peer goes away.
	go conn.readPump(func() {
		cancel()
		conn.Close()
		log.Infow("connection_closed", "order_id", orderID)
	})
}
