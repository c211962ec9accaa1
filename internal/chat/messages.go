package chat

import (
	"github.com/tOgg1/matchchat/internal/models"
	"github.com/tOgg1/matchchat/internal/timeline"
)

// PageLoadedMsg carries a history page result for one selection epoch.
type PageLoadedMsg struct {
	Epoch    timeline.Epoch
	PeerID   string
	Page     int
	Messages []models.Message
	Err      error
}

// ReceivedMsg carries a live receive_message for the epoch whose subscription
// produced it.
type ReceivedMsg struct {
	Epoch   timeline.Epoch
	Message models.Message
}

// DeletedMsg is the outcome of a delete request.
type DeletedMsg struct {
	Epoch timeline.Epoch
	ID    string
	Err   error
}

// SentMsg is the outcome of emitting send_message.
type SentMsg struct {
	ID  string
	Err error
}

// ConnectionsLoadedMsg carries the peer list.
type ConnectionsLoadedMsg struct {
	Peers []models.Peer
	Err   error
}

// ConnectionStatusMsg reports a transport connect or disconnect.
type ConnectionStatusMsg struct {
	Connected bool
}

// InboxClosedMsg is returned by WaitForEvent once the session is closed.
type InboxClosedMsg struct{}
