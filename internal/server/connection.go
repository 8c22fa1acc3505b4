package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/berryhq/berrypoker/internal/protocol"
	"github.com/berryhq/berrypoker/internal/room"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	sendBufferSize = 256
)

// Connection pumps one WebSocket in and out of a room. It implements
// room.Session; Send never blocks the room goroutine, and a client too
// slow to drain its buffer is dropped.
type Connection struct {
	conn   *websocket.Conn
	room   *room.Room
	send   chan *protocol.Message
	logger *log.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection wraps an upgraded WebSocket bound to a room.
func NewConnection(conn *websocket.Conn, r *room.Room, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:   conn,
		room:   r,
		send:   make(chan *protocol.Message, sendBufferSize),
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the read and write pumps.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the connection down and tells the room.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.conn.Close()
		c.room.Disconnect(c)
	})
}

// Send queues an outbound message. A full buffer drops the connection
// rather than stalling the room.
func (c *Connection) Send(msg *protocol.Message) {
	select {
	case c.send <- msg:
	case <-c.ctx.Done():
	default:
		c.logger.Warn("send buffer full, dropping connection")
		c.Close()
	}
}

// readPump parses inbound frames and hands them to the room queue in
// arrival order. Malformed frames get an error reply and the
// connection stays up.
func (c *Connection) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("websocket error", "err", err)
			}
			return
		}
		msg, err := protocol.Parse(raw)
		if err != nil {
			c.Send(protocol.MustNew(protocol.TypeError, protocol.Error{Message: err.Error()}))
			continue
		}
		if err := c.room.Deliver(c.ctx, c, msg); err != nil {
			return
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}
