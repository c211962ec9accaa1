// Package models defines the chat domain types shared across matchchat packages.
package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TempIDPrefix marks ids assigned by the client at optimistic-send time.
// Server ids never carry it.
const TempIDPrefix = "temp-"

// MaxBodyLength bounds outbound message bodies, in characters.
const MaxBodyLength = 4000

// Message is one entry of a peer conversation.
type Message struct {
	// ID is the server-assigned id, or a client temp id for optimistic entries.
	ID string

	// ClientID is the correlation token sent with an optimistic message.
	// Servers that echo it let the client replace the optimistic entry in place.
	ClientID string

	FromID string
	ToID   string
	Body   string

	// Deleted hides the body but keeps id and position.
	Deleted bool

	// Pending is set on optimistic entries until the server copy arrives.
	Pending bool

	// CreatedAt is zero when the producer did not supply a timestamp.
	CreatedAt time.Time
}

// NewTempID returns a fresh client-temporary id.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was assigned by the client.
func IsTempID(id string) bool {
	return strings.HasPrefix(strings.TrimSpace(id), TempIDPrefix)
}

// Involves reports whether peerID is the sender or recipient.
func (m Message) Involves(peerID string) bool {
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return false
	}
	return m.FromID == peerID || m.ToID == peerID
}

// Counterpart returns the participant that is not self.
func (m Message) Counterpart(self string) string {
	if m.FromID == self {
		return m.ToID
	}
	return m.FromID
}

// Mine reports whether self authored the message.
func (m Message) Mine(self string) bool {
	return self != "" && m.FromID == self
}

// NewOptimistic builds a pending outbound message with a fresh temp id.
func NewOptimistic(from, to, body string, now time.Time) Message {
	id := NewTempID()
	return Message{
		ID:        id,
		ClientID:  id,
		FromID:    from,
		ToID:      to,
		Body:      body,
		Pending:   true,
		CreatedAt: now.UTC(),
	}
}

// NormalizeBody trims an outbound body and validates it.
func NormalizeBody(body string) (string, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return "", ErrEmptyBody
	}
	if utf8.RuneCountInString(trimmed) > MaxBodyLength {
		return "", ErrBodyTooLong
	}
	return trimmed, nil
}

// Validate checks that a message can be placed in a timeline.
func (m Message) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(m.ID) == "" {
		validation.Add("id", ErrMissingID)
	}
	if strings.TrimSpace(m.FromID) == "" {
		validation.Add("fromId", ErrMissingParticipant)
	}
	if strings.TrimSpace(m.ToID) == "" {
		validation.Add("toId", ErrMissingParticipant)
	}
	return validation.Err()
}
