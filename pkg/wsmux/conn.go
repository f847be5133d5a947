// Package wsmux provides a small wrapper around a gorilla/websocket
// connection: a buffered outbound queue, a write pump that multiplexes
// queued writes with periodic pings, and a read pump that hands inbound
// frames to a callback. Device sessions and client event sockets both
// build on this.
package wsmux

import (
	"errors"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 1 << 20 // command payloads can carry arbitrary params
	outboundQueueSize = 64
)

var ErrClosed = errors.New("wsmux: connection closed")

type envelope struct {
	kind int
	msg  []byte
}

// Conn wraps one websocket connection with an async outbound queue.
// OnClose is set before calling Run and is invoked from the read pump
// goroutine, as is the onMessage callback passed to Run.
type Conn struct {
	conn    *ws.Conn
	output  chan envelope
	mu      sync.RWMutex
	open    bool
	OnClose func(err error)
}

func New(conn *ws.Conn) *Conn {
	return &Conn{
		conn:   conn,
		output: make(chan envelope, outboundQueueSize),
		open:   true,
	}
}

func (c *Conn) closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.open
}

// Send enqueues a text frame. Non-blocking: if the outbound buffer is full
// the frame is dropped and an "outbound buffer full" error (distinct from
// ErrClosed) is returned as a best-effort signal, matching the queue's single-producer/
// single-consumer contract — the writer pump is the only consumer.
func (c *Conn) Send(msg []byte) error {
	if c.closed() {
		return ErrClosed
	}
	select {
	case c.output <- envelope{kind: ws.TextMessage, msg: msg}:
		return nil
	default:
		return errors.New("wsmux: outbound buffer full")
	}
}

// Close requests an orderly close: a close frame is queued and the pumps
// exit once it is written.
func (c *Conn) Close() {
	if c.closed() {
		return
	}
	select {
	case c.output <- envelope{kind: ws.CloseMessage, msg: []byte{}}:
	default:
	}
}

// CloseNow closes the underlying socket immediately, without waiting for
// queued writes to flush. Connection replacement (common.Register) does not
// use it; it closes the predecessor with Close instead.
func (c *Conn) CloseNow() {
	c.mu.Lock()
	if c.open {
		c.open = false
		c.conn.Close()
	}
	c.mu.Unlock()
}

// Run starts the read and write pumps and blocks until both exit. onMessage
// is called once per inbound text/binary frame; it must not block for long,
// since it runs inline in the read loop.
func (c *Conn) Run(onMessage func(msg []byte)) {
	done := make(chan struct{})
	go func() {
		c.writePump()
		close(done)
	}()
	c.readPump(onMessage)
	<-done
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.teardown()

	for {
		select {
		case e, ok := <-c.output:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(e.kind, e.msg); err != nil {
				return
			}
			if e.kind == ws.CloseMessage {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(ws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Conn) readPump(onMessage func(msg []byte)) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		t, msg, err := c.conn.ReadMessage()
		if err != nil {
			if c.OnClose != nil {
				c.OnClose(err)
			}
			return
		}
		if t == ws.TextMessage || t == ws.BinaryMessage {
			onMessage(msg)
		}
	}
}

func (c *Conn) teardown() {
	c.mu.Lock()
	if c.open {
		c.open = false
		c.conn.Close()
	}
	c.mu.Unlock()
}
