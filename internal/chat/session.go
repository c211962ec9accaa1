// Package chat implements the chat session controller.
//
// A Session owns the timeline for the selected peer and mediates every
// producer that feeds it. Network work runs inside tea.Cmds; results come back
// as messages applied by Update on the UI loop, so the timeline is only ever
// mutated from one goroutine.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/tOgg1/matchchat/internal/history"
	"github.com/tOgg1/matchchat/internal/logging"
	"github.com/tOgg1/matchchat/internal/models"
	"github.com/tOgg1/matchchat/internal/room"
	"github.com/tOgg1/matchchat/internal/timeline"
	"github.com/tOgg1/matchchat/internal/transport"
)

var (
	// ErrNoPeerSelected is returned by Send when no conversation is open.
	ErrNoPeerSelected = errors.New("chat: no peer selected")

	// ErrEmptyBody is returned by Send for blank input.
	ErrEmptyBody = models.ErrEmptyBody

	// ErrPendingMessage is returned when deleting a message the server has not
	// assigned an id to yet.
	ErrPendingMessage = errors.New("chat: message not yet delivered")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("chat: session closed")
)

const (
	defaultInboxBuffer    = 256
	defaultRequestTimeout = 15 * time.Second
)

// Options configures a Session.
type Options struct {
	Identity       string
	Channel        transport.Channel
	Fetcher        history.Fetcher
	Logger         *zerolog.Logger
	InboxBuffer    int
	RequestTimeout time.Duration
	Now            func() time.Time
}

// Session is the chat controller for one signed-in identity.
type Session struct {
	identity   string
	channel    transport.Channel
	fetcher    history.Fetcher
	logger     zerolog.Logger
	timeout    time.Duration
	now        func() time.Time
	store      *timeline.Store
	membership *room.Membership
	inbox      chan tea.Msg

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	closed      bool
	lifecycle   []string
	receiveSub  string
	epochCtx    context.Context
	epochCancel context.CancelFunc

	peers     []models.Peer
	connected bool
	lastErr   error
}

// NewSession validates opts and builds an idle session.
func NewSession(opts Options) (*Session, error) {
	identity := strings.TrimSpace(opts.Identity)
	if identity == "" {
		return nil, room.ErrNoIdentity
	}
	if opts.Channel == nil {
		return nil, errors.New("chat: channel required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("chat: fetcher required")
	}
	if opts.InboxBuffer <= 0 {
		opts.InboxBuffer = defaultInboxBuffer
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	base := logging.Component("chat")
	if opts.Logger != nil {
		base = opts.Logger.With().Str("component", "chat").Logger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	epochCtx, epochCancel := context.WithCancel(ctx)

	return &Session{
		identity:    identity,
		channel:     opts.Channel,
		fetcher:     opts.Fetcher,
		logger:      logging.WithIdentity(base, identity),
		timeout:     opts.RequestTimeout,
		now:         opts.Now,
		store:       timeline.NewStore(),
		membership:  room.New(opts.Channel),
		inbox:       make(chan tea.Msg, opts.InboxBuffer),
		ctx:         ctx,
		cancel:      cancel,
		epochCtx:    epochCtx,
		epochCancel: epochCancel,
		connected:   opts.Channel.Connected(),
	}, nil
}

// Start joins the identity's room, subscribes to connection changes and
// returns the commands that begin listening and load the peer list.
func (s *Session) Start() tea.Cmd {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if len(s.lifecycle) == 0 {
		s.lifecycle = append(s.lifecycle,
			s.channel.On(transport.EventConnect, func(transport.Event) {
				s.deliver(ConnectionStatusMsg{Connected: true})
			}),
			s.channel.On(transport.EventDisconnect, func(transport.Event) {
				s.deliver(ConnectionStatusMsg{Connected: false})
			}),
		)
	}
	s.mu.Unlock()

	if err := s.membership.Bind(s.identity); err != nil {
		s.logger.Warn().Err(err).Msg("room join failed; will retry on reconnect")
	}
	return tea.Batch(s.WaitForEvent(), s.LoadConnections())
}

// SelectPeer switches the conversation. The previous timeline, cursor and
// receive subscription are discarded and page 1 is requested. Selecting the
// current peer again does nothing.
func (s *Session) SelectPeer(peerID string) tea.Cmd {
	peerID = strings.TrimSpace(peerID)

	s.mu.Lock()
	if s.closed || (peerID != "" && peerID == s.store.PeerID()) {
		s.mu.Unlock()
		return nil
	}
	s.releaseEpochLocked()
	epoch := s.store.Reset(peerID)
	s.epochCtx, s.epochCancel = context.WithCancel(s.ctx)
	s.lastErr = nil
	if peerID != "" {
		s.receiveSub = s.channel.On(transport.EventReceiveMessage, s.receiveHandler(epoch))
	}
	s.mu.Unlock()

	if peerID == "" {
		return nil
	}
	peerLog := logging.WithPeer(s.logger, peerID)
	peerLog.Debug().Uint64("epoch", uint64(epoch)).Msg("peer selected")
	return s.loadCmd(epoch)
}

func (s *Session) releaseEpochLocked() {
	if s.epochCancel != nil {
		s.epochCancel()
	}
	if s.receiveSub != "" {
		_ = s.channel.Off(s.receiveSub)
		s.receiveSub = ""
	}
}

func (s *Session) receiveHandler(epoch timeline.Epoch) transport.Handler {
	return func(ev transport.Event) {
		var wire models.WireMessage
		if err := ev.Decode(&wire); err != nil {
			s.logger.Debug().Err(err).Msg("dropping malformed receive_message")
			return
		}
		msg := wire.ToMessage()
		if err := msg.Validate(); err != nil {
			s.logger.Debug().Err(err).Str("message_id", msg.ID).Msg("dropping invalid receive_message")
			return
		}
		s.deliver(ReceivedMsg{Epoch: epoch, Message: msg})
	}
}

// deliver hands msg to the UI loop. It blocks while the inbox is full and
// gives up once the session is closed.
func (s *Session) deliver(msg tea.Msg) {
	select {
	case s.inbox <- msg:
	case <-s.ctx.Done():
	}
}

// WaitForEvent returns a command that yields the next inbound event.
func (s *Session) WaitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-s.inbox:
			return msg
		case <-s.ctx.Done():
			return InboxClosedMsg{}
		}
	}
}

// LoadMore requests the next older page. It returns nil when the store
// refuses the transition, which keeps at most one fetch outstanding.
func (s *Session) LoadMore() tea.Cmd {
	if s.isClosed() {
		return nil
	}
	return s.loadCmd(s.store.Epoch())
}

func (s *Session) loadCmd(epoch timeline.Epoch) tea.Cmd {
	page, ok := s.store.BeginLoad(epoch)
	if !ok {
		return nil
	}
	peerID := s.store.PeerID()

	s.mu.Lock()
	ctx := s.epochCtx
	s.mu.Unlock()

	fetcher := s.fetcher
	timeout := s.timeout
	return func() tea.Msg {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		msgs, err := fetcher.FetchPage(reqCtx, peerID, page)
		return PageLoadedMsg{Epoch: epoch, PeerID: peerID, Page: page, Messages: msgs, Err: err}
	}
}

// Send appends an optimistic message and emits it. Delivery failures are
// logged; the optimistic entry stays.
func (s *Session) Send(body string) (timeline.Mutation, tea.Cmd, error) {
	if s.isClosed() {
		return timeline.Mutation{}, nil, ErrClosed
	}
	peerID := s.store.PeerID()
	if peerID == "" {
		return timeline.Mutation{}, nil, ErrNoPeerSelected
	}
	text, err := models.NormalizeBody(body)
	if err != nil {
		return timeline.Mutation{}, nil, err
	}

	msg := models.NewOptimistic(s.identity, peerID, text, s.now())
	if !s.store.AppendOptimistic(msg) {
		return timeline.Mutation{}, nil, ErrNoPeerSelected
	}

	payload := models.NewSendPayload(msg)
	channel := s.channel
	cmd := func() tea.Msg {
		return SentMsg{ID: msg.ID, Err: channel.Send(transport.EventSendMessage, payload)}
	}
	return timeline.Mutation{Kind: timeline.MutationAppend, Count: 1, ID: msg.ID}, cmd, nil
}

// Delete asks the server to remove a message. Temp ids are refused. Unknown or
// already-deleted ids yield no command.
func (s *Session) Delete(id string) (tea.Cmd, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	id = strings.TrimSpace(id)
	if models.IsTempID(id) {
		return nil, ErrPendingMessage
	}
	msg, ok := s.store.Get(id)
	if !ok || msg.Deleted {
		return nil, nil
	}

	// A confirmed delete outlives a peer switch; only the local mark is
	// scoped to the epoch.
	epoch := s.store.Epoch()
	ctx := s.ctx
	fetcher := s.fetcher
	timeout := s.timeout
	return func() tea.Msg {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return DeletedMsg{Epoch: epoch, ID: id, Err: fetcher.DeleteMessage(reqCtx, id)}
	}, nil
}

// LoadConnections fetches the peer list.
func (s *Session) LoadConnections() tea.Cmd {
	if s.isClosed() {
		return nil
	}
	ctx := s.ctx
	fetcher := s.fetcher
	timeout := s.timeout
	return func() tea.Msg {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		peers, err := fetcher.Connections(reqCtx)
		return ConnectionsLoadedMsg{Peers: peers, Err: err}
	}
}

// Update applies a session message and reports the resulting timeline change.
// Results for an abandoned selection are dropped.
func (s *Session) Update(msg tea.Msg) (timeline.Mutation, tea.Cmd) {
	switch msg := msg.(type) {
	case PageLoadedMsg:
		return s.applyPage(msg), nil

	case ReceivedMsg:
		if s.isClosed() {
			return timeline.Mutation{}, nil
		}
		if msg.Epoch != s.store.Epoch() {
			return timeline.Mutation{}, s.WaitForEvent()
		}
		return s.store.AppendReceived(msg.Message), s.WaitForEvent()

	case DeletedMsg:
		stale := msg.Epoch != s.store.Epoch()
		if msg.Err != nil {
			if stale || errors.Is(msg.Err, context.Canceled) {
				s.logger.Debug().Err(msg.Err).Str("message_id", msg.ID).Msg("delete_message result dropped")
				return timeline.Mutation{}, nil
			}
			s.recordError(msg.Err, "delete failed")
			return timeline.Mutation{}, nil
		}
		if stale || !s.store.MarkDeleted(msg.ID) {
			return timeline.Mutation{}, nil
		}
		return timeline.Mutation{Kind: timeline.MutationUpdate, Count: 1, ID: msg.ID}, nil

	case SentMsg:
		if msg.Err != nil {
			s.logger.Warn().Err(msg.Err).Str("message_id", msg.ID).Msg("send_message not delivered")
		}
		return timeline.Mutation{}, nil

	case ConnectionsLoadedMsg:
		if msg.Err != nil {
			s.recordError(msg.Err, "load connections failed")
			return timeline.Mutation{}, nil
		}
		s.mu.Lock()
		s.peers = append([]models.Peer(nil), msg.Peers...)
		s.mu.Unlock()
		return timeline.Mutation{}, nil

	case ConnectionStatusMsg:
		if s.isClosed() {
			return timeline.Mutation{}, nil
		}
		s.mu.Lock()
		s.connected = msg.Connected
		s.mu.Unlock()
		return timeline.Mutation{}, s.WaitForEvent()
	}
	return timeline.Mutation{}, nil
}

func (s *Session) applyPage(msg PageLoadedMsg) timeline.Mutation {
	if msg.Epoch != s.store.Epoch() {
		s.logger.Debug().Str("peer", msg.PeerID).Int("page", msg.Page).Msg("dropping stale page")
		return timeline.Mutation{}
	}
	if msg.Err != nil {
		s.store.FailPage(msg.Epoch)
		if !errors.Is(msg.Err, context.Canceled) {
			s.recordError(msg.Err, "history fetch failed")
		}
		return timeline.Mutation{}
	}
	mut, ok := s.store.CompletePage(msg.Epoch, msg.Page, msg.Messages)
	if !ok {
		return timeline.Mutation{}
	}
	return mut
}

func (s *Session) recordError(err error, msg string) {
	s.logger.Warn().Err(err).Msg(msg)
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// Close releases every subscription and the room membership. Later inbound
// events are not delivered. Safe to call more than once. The channel itself is
// owned by the caller.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.releaseEpochLocked()
	for _, id := range s.lifecycle {
		_ = s.channel.Off(id)
	}
	s.lifecycle = nil
	s.mu.Unlock()

	s.membership.Release()
	s.cancel()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Identity returns the signed-in user id.
func (s *Session) Identity() string { return s.identity }

// PeerID returns the selected peer.
func (s *Session) PeerID() string { return s.store.PeerID() }

// Messages returns the timeline, oldest first.
func (s *Session) Messages() []models.Message { return s.store.Messages() }

// Status returns the timeline load state.
func (s *Session) Status() timeline.Status { return s.store.Status() }

// Cursor returns the pagination cursor.
func (s *Session) Cursor() timeline.Cursor { return s.store.Cursor() }

// InFlight reports whether a history fetch is outstanding.
func (s *Session) InFlight() bool { return s.store.InFlight() }

// Peers returns the loaded connection list.
func (s *Session) Peers() []models.Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Peer(nil), s.peers...)
}

// Peer looks up a loaded connection by id.
func (s *Session) Peer(id string) (models.Peer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.peers {
		if p.ID == id {
			return p, true
		}
	}
	return models.Peer{}, false
}

// Connected reports the last known transport state.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// LastError returns the most recent collaborator error, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ClearError forgets LastError.
func (s *Session) ClearError() {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
}
