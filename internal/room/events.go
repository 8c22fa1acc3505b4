package room

import (
	"context"
	"errors"

	"github.com/berryhq/berrypoker/internal/protocol"
)

// Session is an attached connection. Send must not block the room
// goroutine; implementations buffer and drop the connection when the
// buffer overflows.
type Session interface {
	Send(msg *protocol.Message)
	Close()
}

// ErrRoomClosed is returned when delivering to a room that has shut
// down.
var ErrRoomClosed = errors.New("room closed")

// event is anything the room goroutine consumes from its queue.
type event interface{ isEvent() }

// clientEvent is one inbound frame from a connection.
type clientEvent struct {
	sess Session
	msg  *protocol.Message
}

// disconnectEvent reports a connection going away.
type disconnectEvent struct {
	sess Session
}

// handTimerEvent fires when the next-hand delay elapses.
type handTimerEvent struct{}

// infoEvent requests a point-in-time summary for the HTTP surface.
type infoEvent struct {
	reply chan *Info
}

func (clientEvent) isEvent()     {}
func (disconnectEvent) isEvent() {}
func (handTimerEvent) isEvent()  {}
func (infoEvent) isEvent()       {}

// Deliver queues one inbound frame. It blocks when the room queue is
// full, which backpressures the connection's read pump.
func (r *Room) Deliver(ctx context.Context, sess Session, msg *protocol.Message) error {
	select {
	case r.events <- clientEvent{sess: sess, msg: msg}:
		return nil
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect reports that a session's connection closed. It never
// blocks: displacing a stale session closes the old connection from the
// room goroutine itself, and that close lands back here. With the queue
// full the event is handed off asynchronously instead.
func (r *Room) Disconnect(sess Session) {
	select {
	case r.events <- disconnectEvent{sess: sess}:
	case <-r.done:
	default:
		go func() {
			select {
			case r.events <- disconnectEvent{sess: sess}:
			case <-r.done:
			}
		}()
	}
}

// Info returns the room summary used by GET /api/rooms/{id}, computed
// on the room goroutine so no lock is needed on the table.
func (r *Room) Info(ctx context.Context) (*Info, error) {
	reply := make(chan *Info, 1)
	select {
	case r.events <- infoEvent{reply: reply}:
	case <-r.done:
		return nil, ErrRoomClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case info := <-reply:
		return info, nil
	case <-r.done:
		return nil, ErrRoomClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
