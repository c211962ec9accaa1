package models

import (
	"strings"
	"time"
)

// WireMessage is the JSON shape used by the history API and the socket broadcast.
type WireMessage struct {
	ID         string     `json:"_id"`
	FromUserID string     `json:"fromUserId"`
	ToUserID   string     `json:"toUserId"`
	Message    string     `json:"message"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	Deleted    bool       `json:"deleted,omitempty"`
	ClientID   string     `json:"clientId,omitempty"`
}

// ToMessage converts the wire shape to the domain type.
func (w WireMessage) ToMessage() Message {
	msg := Message{
		ID:       strings.TrimSpace(w.ID),
		ClientID: strings.TrimSpace(w.ClientID),
		FromID:   strings.TrimSpace(w.FromUserID),
		ToID:     strings.TrimSpace(w.ToUserID),
		Body:     w.Message,
		Deleted:  w.Deleted,
	}
	if w.CreatedAt != nil {
		msg.CreatedAt = w.CreatedAt.UTC()
	}
	return msg
}

// ToWire converts a domain message to its wire shape.
func ToWire(m Message) WireMessage {
	out := WireMessage{
		ID:         m.ID,
		FromUserID: m.FromID,
		ToUserID:   m.ToID,
		Message:    m.Body,
		Deleted:    m.Deleted,
		ClientID:   m.ClientID,
	}
	if !m.CreatedAt.IsZero() {
		ts := m.CreatedAt.UTC()
		out.CreatedAt = &ts
	}
	return out
}

// SendPayload is the outbound send_message payload.
type SendPayload struct {
	FromID   string `json:"fromId"`
	ToID     string `json:"toId"`
	Message  string `json:"message"`
	ClientID string `json:"clientId,omitempty"`
}

// NewSendPayload builds the outbound payload for an optimistic message.
func NewSendPayload(m Message) SendPayload {
	return SendPayload{
		FromID:   m.FromID,
		ToID:     m.ToID,
		Message:  m.Body,
		ClientID: m.ClientID,
	}
}
