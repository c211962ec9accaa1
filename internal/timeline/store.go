// Package timeline holds the ordered, deduplicated message sequence for the
// selected peer and the pagination state machine around it.
//
// Producers (history pages, live receipts, optimistic sends) hand messages to
// the Store; nothing else reads or mutates the sequence. Results from an
// abandoned selection are recognized by Epoch and dropped.
package timeline

import (
	"strings"
	"sync"

	"github.com/tOgg1/matchchat/internal/models"
)

// Status is the load state for the current selection.
type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusReady
	StatusLoadingMore
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusLoadingMore:
		return "loading_more"
	default:
		return "unknown"
	}
}

// Epoch identifies one peer selection. It increases on every Reset.
type Epoch uint64

// Cursor is the pagination position. Page is the next page to fetch.
type Cursor struct {
	PeerID  string
	Page    int
	HasMore bool
}

// MutationKind tells the scroll reconciler which anchoring policy applies.
type MutationKind int

const (
	MutationNone MutationKind = iota
	MutationPrepend
	MutationAppend
	MutationReplace
	MutationUpdate
)

func (k MutationKind) String() string {
	switch k {
	case MutationPrepend:
		return "prepend"
	case MutationAppend:
		return "append"
	case MutationReplace:
		return "replace"
	case MutationUpdate:
		return "update"
	default:
		return "none"
	}
}

// Mutation describes one applied change.
type Mutation struct {
	Kind  MutationKind
	Count int
	ID    string
}

// Changed reports whether the timeline was modified.
func (m Mutation) Changed() bool {
	return m.Kind != MutationNone
}

// Store is the timeline for the currently selected peer.
type Store struct {
	mu       sync.RWMutex
	epoch    Epoch
	status   Status
	cursor   Cursor
	messages []models.Message
	index    map[string]int
}

// NewStore returns a store with no peer selected.
func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// Reset discards the timeline and cursor and selects peerID ("" for none).
// It returns the new epoch.
func (s *Store) Reset(peerID string) Epoch {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.status = StatusEmpty
	s.cursor = Cursor{PeerID: strings.TrimSpace(peerID), Page: 1, HasMore: true}
	s.messages = nil
	s.index = make(map[string]int)
	return s.epoch
}

// Epoch returns the current selection epoch.
func (s *Store) Epoch() Epoch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// PeerID returns the selected peer.
func (s *Store) PeerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor.PeerID
}

// Status returns the load state.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Cursor returns the pagination cursor.
func (s *Store) Cursor() Cursor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// InFlight reports whether a page fetch is outstanding.
func (s *Store) InFlight() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status == StatusLoading || s.status == StatusLoadingMore
}

// BeginLoad moves Empty to Loading or Ready to LoadingMore and returns the
// page to fetch. It refuses stale epochs, a drained cursor and concurrent loads.
func (s *Store) BeginLoad(epoch Epoch) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || s.cursor.PeerID == "" || !s.cursor.HasMore {
		return 0, false
	}
	switch s.status {
	case StatusEmpty:
		s.status = StatusLoading
	case StatusReady:
		s.status = StatusLoadingMore
	default:
		return 0, false
	}
	return s.cursor.Page, true
}

// CompletePage applies a fetched page (oldest-first). An empty page drains the
// cursor. Results for another epoch or page are rejected with ok=false.
func (s *Store) CompletePage(epoch Epoch, page int, msgs []models.Message) (Mutation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || page != s.cursor.Page {
		return Mutation{}, false
	}
	if s.status != StatusLoading && s.status != StatusLoadingMore {
		return Mutation{}, false
	}

	s.status = StatusReady
	if len(msgs) == 0 {
		s.cursor.HasMore = false
		return Mutation{}, true
	}
	s.cursor.Page++

	added := s.prependLocked(msgs)
	if added == 0 {
		return Mutation{}, true
	}
	return Mutation{Kind: MutationPrepend, Count: added}, true
}

// FailPage rolls an in-flight load back without touching the cursor, so the
// same page can be retried.
func (s *Store) FailPage(epoch Epoch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return false
	}
	switch s.status {
	case StatusLoading:
		s.status = StatusEmpty
	case StatusLoadingMore:
		s.status = StatusReady
	default:
		return false
	}
	return true
}

// PrependPage inserts msgs (oldest-first) before the current entries. Ids
// already present, and repeats within msgs, are dropped keeping the first seen.
// It returns the number of entries inserted.
func (s *Store) PrependPage(msgs []models.Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prependLocked(msgs)
}

func (s *Store) prependLocked(msgs []models.Message) int {
	seen := make(map[string]struct{}, len(msgs))
	fresh := make([]models.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.ID == "" {
			continue
		}
		if _, ok := s.index[msg.ID]; ok {
			continue
		}
		if _, ok := seen[msg.ID]; ok {
			continue
		}
		seen[msg.ID] = struct{}{}
		fresh = append(fresh, msg)
	}
	if len(fresh) == 0 {
		return 0
	}

	s.messages = append(fresh, s.messages...)
	s.reindexLocked()
	return len(fresh)
}

// AppendOptimistic appends a locally originated message. It refuses messages
// that do not involve the selected peer or whose id is already present.
func (s *Store) AppendOptimistic(msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.acceptsLocked(msg) || msg.ID == "" {
		return false
	}
	if _, ok := s.index[msg.ID]; ok {
		return false
	}
	msg.Pending = true
	s.appendLocked(msg)
	return true
}

// AppendReceived merges a live message. A known id is a no-op. A ClientID that
// names a pending optimistic entry replaces it in place. Otherwise the message
// is appended. Messages for other peers are dropped.
func (s *Store) AppendReceived(msg models.Message) Mutation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.acceptsLocked(msg) || msg.ID == "" {
		return Mutation{}
	}
	if _, ok := s.index[msg.ID]; ok {
		return Mutation{}
	}

	if msg.ClientID != "" {
		if pos, ok := s.index[msg.ClientID]; ok && s.messages[pos].Pending {
			prev := s.messages[pos]
			msg.Pending = false
			if msg.CreatedAt.IsZero() {
				msg.CreatedAt = prev.CreatedAt
			}
			s.messages[pos] = msg
			delete(s.index, prev.ID)
			s.index[msg.ID] = pos
			return Mutation{Kind: MutationReplace, Count: 1, ID: msg.ID}
		}
	}

	msg.Pending = false
	s.appendLocked(msg)
	return Mutation{Kind: MutationAppend, Count: 1, ID: msg.ID}
}

// MarkDeleted flags the entry with id as deleted. Unknown or already-deleted
// ids are a no-op.
func (s *Store) MarkDeleted(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok || s.messages[pos].Deleted {
		return false
	}
	s.messages[pos].Deleted = true
	return true
}

// Accepts reports whether msg belongs to the selected peer's conversation.
func (s *Store) Accepts(msg models.Message) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.acceptsLocked(msg)
}

func (s *Store) acceptsLocked(msg models.Message) bool {
	return s.cursor.PeerID != "" && msg.Involves(s.cursor.PeerID)
}

// Messages returns a copy of the timeline, oldest first.
func (s *Store) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Get returns the entry with id.
func (s *Store) Get(id string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.index[id]
	if !ok {
		return models.Message{}, false
	}
	return s.messages[pos], true
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *Store) appendLocked(msg models.Message) {
	s.messages = append(s.messages, msg)
	s.index[msg.ID] = len(s.messages) - 1
}

func (s *Store) reindexLocked() {
	s.index = make(map[string]int, len(s.messages))
	for i, msg := range s.messages {
		s.index[msg.ID] = i
	}
}
