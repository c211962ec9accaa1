// Package room keeps the current identity joined to its inbox room.
package room

import (
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tOgg1/matchchat/internal/logging"
	"github.com/tOgg1/matchchat/internal/transport"
)

// ErrNoIdentity is returned when binding an empty identity.
var ErrNoIdentity = errors.New("room: identity required")

// Membership issues join_room whenever the channel (re)connects.
type Membership struct {
	channel transport.Channel
	logger  zerolog.Logger

	mu       sync.Mutex
	identity string
	subID    string
}

// New creates a membership for channel.
func New(channel transport.Channel) *Membership {
	return &Membership{
		channel: channel,
		logger:  logging.Component("room"),
	}
}

// Bind records identity, joins immediately when connected and re-joins after
// every reconnect.
func (m *Membership) Bind(identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return ErrNoIdentity
	}

	m.mu.Lock()
	changed := m.identity != identity
	m.identity = identity
	if m.subID == "" {
		m.subID = m.channel.On(transport.EventConnect, func(transport.Event) {
			m.join()
		})
	}
	m.mu.Unlock()

	if changed && m.channel.Connected() {
		return m.join()
	}
	return nil
}

func (m *Membership) join() error {
	m.mu.Lock()
	identity := m.identity
	m.mu.Unlock()
	if identity == "" {
		return nil
	}

	if err := m.channel.JoinRoom(identity); err != nil {
		m.logger.Warn().Err(err).Str("identity", identity).Msg("join_room failed")
		return err
	}
	m.logger.Debug().Str("identity", identity).Msg("joined room")
	return nil
}

// Identity returns the bound identity.
func (m *Membership) Identity() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// Release stops re-joining on reconnect. Safe to call more than once.
func (m *Membership) Release() {
	m.mu.Lock()
	id := m.subID
	m.subID = ""
	m.identity = ""
	m.mu.Unlock()

	if id != "" {
		_ = m.channel.Off(id)
	}
}
