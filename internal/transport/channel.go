// Package transport provides the persistent bidirectional chat channel.
//
// A Channel is created once per client session and reused across peer
// switches. Consumers register handlers per event name; lifecycle changes are
// delivered as the "connect" and "disconnect" events. Room membership does not
// survive a reconnect, so whoever owns the room re-joins on every "connect".
package transport

import (
	"context"
	"encoding/json"
	"errors"
)

// Event names on the wire and for lifecycle notifications.
const (
	EventConnect        = "connect"
	EventDisconnect     = "disconnect"
	EventJoinRoom       = "join_room"
	EventSendMessage    = "send_message"
	EventReceiveMessage = "receive_message"
)

// ErrNotConnected is returned by Send while the socket is down. Nothing is queued.
var ErrNotConnected = errors.New("transport: not connected")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("transport: closed")

// Event is one inbound frame or lifecycle notification.
type Event struct {
	Name string
	Data json.RawMessage
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if len(e.Data) == 0 {
		return errors.New("transport: empty payload")
	}
	return json.Unmarshal(e.Data, v)
}

// Handler receives events. Handlers run on the channel's reader goroutine and
// must not block for long.
type Handler func(Event)

// Channel is the contract the chat session depends on.
type Channel interface {
	// Connect establishes the connection and keeps it alive until Close.
	Connect(ctx context.Context) error

	// JoinRoom binds identity to its inbox room on the server.
	JoinRoom(identity string) error

	// Send emits an event with a JSON-encodable payload.
	Send(event string, payload any) error

	// On registers a handler for event and returns its subscription id.
	On(event string, handler Handler) string

	// Off removes a subscription by id.
	Off(id string) error

	// Connected reports whether the socket is currently up.
	Connected() bool

	// Close tears the channel down. It is safe to call more than once.
	Close() error
}
