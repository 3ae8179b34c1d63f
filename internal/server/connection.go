// Package server carries the WebSocket edge: connection lifecycle,
// the anonymous-connection pool and the message broker that routes
// frames to the auth and room services.
package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/netchess/netchess/internal/protocol"
)

// ErrConnectionClosed reports a send on a connection already torn
// down.
var ErrConnectionClosed = errors.New("connection closed")

const (
	sendBufferSize = 64
	writeDeadline  = 10 * time.Second
)

// frame is one unit of outbound work for the write pump. A close
// frame flushes a final close handshake and ends the pump.
type frame struct {
	data      []byte
	closeCode int
	closeText string
}

// Connection wraps one WebSocket. All writes funnel through a single
// write pump so handlers never share the socket; Send enqueues and
// never blocks the caller.
type Connection struct {
	ID string

	ws   *websocket.Conn
	log  *logrus.Entry
	out  chan frame
	done chan struct{}
	once sync.Once
}

func newConnection(ws *websocket.Conn) *Connection {
	id := uuid.NewString()
	c := &Connection{
		ID:   id,
		ws:   ws,
		log:  logrus.WithField("connection", id),
		out:  make(chan frame, sendBufferSize),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Send enqueues a message for the write pump. A full buffer means the
// client stopped reading; the connection is terminated instead of
// blocking the caller.
func (c *Connection) Send(message []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.out <- frame{data: message}:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		c.log.Warn("send buffer full, dropping connection")
		c.terminate()
		return ErrConnectionClosed
	}
}

// CloseWithStatus closes with the auth-failure close code, carrying
// the status payload as the close reason. Clients read the failure
// out of the close frame, not a preceding message.
func (c *Connection) CloseWithStatus(payload []byte) {
	c.enqueueClose(frame{
		closeCode: protocol.CloseCodeAuthFailure,
		closeText: string(payload),
	})
}

// CloseWithReason closes with the given close code and reason text.
func (c *Connection) CloseWithReason(code int, reason string) {
	c.enqueueClose(frame{
		closeCode: code,
		closeText: reason,
	})
}

func (c *Connection) enqueueClose(f frame) {
	select {
	case <-c.done:
	case c.out <- f:
	default:
		c.terminate()
	}
}

// terminate tears the connection down without a close handshake.
func (c *Connection) terminate() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// writePump serializes all socket writes. It exits on the first write
// error or after flushing a close frame.
func (c *Connection) writePump() {
	for {
		select {
		case <-c.done:
			return
		case f := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if f.data != nil {
				if err := c.ws.WriteMessage(websocket.TextMessage, f.data); err != nil {
					c.terminate()
					return
				}
			}
			if f.closeCode != 0 {
				message := websocket.FormatCloseMessage(f.closeCode, f.closeText)
				_ = c.ws.WriteMessage(websocket.CloseMessage, message)
				c.terminate()
				return
			}
		}
	}
}
