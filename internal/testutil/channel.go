package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/tOgg1/matchchat/internal/transport"
)

// SentFrame records one outbound event.
type SentFrame struct {
	Event   string
	Payload json.RawMessage
}

// FakeChannel is an in-memory transport.Channel for tests. Inbound events are
// injected with Deliver; lifecycle changes with SetConnected.
type FakeChannel struct {
	registry *transport.Registry

	mu        sync.Mutex
	connected bool
	closed    bool
	sent      []SentFrame
	sendErr   error
}

// NewFakeChannel returns a connected fake.
func NewFakeChannel() *FakeChannel {
	return &FakeChannel{registry: transport.NewRegistry(), connected: true}
}

func (f *FakeChannel) Connect(context.Context) error {
	f.SetConnected(true)
	return nil
}

func (f *FakeChannel) JoinRoom(identity string) error {
	return f.Send(transport.EventJoinRoom, identity)
}

func (f *FakeChannel) Send(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return transport.ErrClosed
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	if !f.connected {
		return transport.ErrNotConnected
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.sent = append(f.sent, SentFrame{Event: event, Payload: raw})
	return nil
}

func (f *FakeChannel) On(event string, handler transport.Handler) string {
	return f.registry.On(event, handler)
}

func (f *FakeChannel) Off(id string) error {
	return f.registry.Off(id)
}

func (f *FakeChannel) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected && !f.closed
}

func (f *FakeChannel) Close() error {
	f.mu.Lock()
	f.closed = true
	f.connected = false
	f.mu.Unlock()
	return nil
}

// SetConnected flips the connection state and emits connect or disconnect.
func (f *FakeChannel) SetConnected(connected bool) {
	f.mu.Lock()
	changed := f.connected != connected
	f.connected = connected
	f.mu.Unlock()
	if !changed {
		return
	}
	name := transport.EventDisconnect
	if connected {
		name = transport.EventConnect
	}
	f.registry.Emit(transport.Event{Name: name})
}

// FailSends makes every subsequent Send return err (nil restores).
func (f *FakeChannel) FailSends(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

// Deliver emits an inbound event with payload marshalled to JSON.
func (f *FakeChannel) Deliver(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.registry.Emit(transport.Event{Name: event, Data: raw})
	return nil
}

// Sent returns a copy of the outbound frames.
func (f *FakeChannel) Sent() []SentFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentFrame(nil), f.sent...)
}

// SentEvents returns outbound frames named event.
func (f *FakeChannel) SentEvents(event string) []SentFrame {
	var out []SentFrame
	for _, frame := range f.Sent() {
		if frame.Event == event {
			out = append(out, frame)
		}
	}
	return out
}

// Handlers reports the number of registered handlers for event ("" for all).
func (f *FakeChannel) Handlers(event string) int {
	return f.registry.Count(event)
}

var _ transport.Channel = (*FakeChannel)(nil)
