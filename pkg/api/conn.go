package api

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

var errConnClosed = errors.New("connection closed")

// wsConn wraps a websocket connection behind a single write pump so messages
// for one session go out in the order they were generated. Send fails fast
// once the connection is closed; it never blocks a session on a dead peer.
type wsConn struct {
	ws   *websocket.Conn
	send chan string
	done chan struct{}
	once sync.Once
	log  *zap.SugaredLogger
}

func newWSConn(ws *websocket.Conn, log *zap.SugaredLogger) *wsConn {
	c := &wsConn{
		ws:   ws,
		send: make(chan string, sendBuffer),
		done: make(chan struct{}),
		log:  log,
	}
	go c.writePump()
	return c
}

func (c *wsConn) Send(msg string) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return errConnClosed
	}
}

func (c *wsConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				c.log.Debugw("ws_write_failed", "err", err)
				c.Close()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			// Drain what was queued before close, then say goodbye.
			for {
				select {
				case msg := <-c.send:
					c.ws.SetWriteDeadline(time.Now().Add(writeWait))
					if c.ws.WriteMessage(websocket.TextMessage, []byte(msg)) != nil {
						return
					}
				default:
					c.ws.SetWriteDeadline(time.Now().Add(writeWait))
					c.ws.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

// readPump consumes inbound frames until the peer goes away, then calls
// onClose exactly once. The protocol is server-push only; client frames are
// discarded.
func (c *wsConn) readPump(onClose func()) {
	defer onClose()

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Debugw("ws_read_failed", "err", err)
			}
			return
		}
	}
}
