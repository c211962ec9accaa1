package chatui

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/matchchat/internal/chat"
	"github.com/tOgg1/matchchat/internal/config"
	"github.com/tOgg1/matchchat/internal/models"
	"github.com/tOgg1/matchchat/internal/testutil"
	"github.com/tOgg1/matchchat/internal/timeline"
	"github.com/tOgg1/matchchat/internal/transport"
)

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// harness runs commands the way the bubbletea runtime does: each on its own
// goroutine, results fed back through Update. Commands that block (the inbox
// listener, cursor blink) simply report later.
type harness struct {
	t        *testing.T
	m        *Model
	ch       *testutil.FakeChannel
	fetcher  *testutil.StubFetcher
	contexts *config.ContextStore
	msgs     chan tea.Msg
}

func newHarness(t *testing.T, initialPeer string, setup func(*testutil.StubFetcher)) *harness {
	t.Helper()
	ch := testutil.NewFakeChannel()
	fetcher := testutil.NewStubFetcher()
	if setup != nil {
		setup(fetcher)
	}
	session, err := chat.NewSession(chat.Options{
		Identity: "me",
		Channel:  ch,
		Fetcher:  fetcher,
		Now:      func() time.Time { return base.Add(24 * time.Hour) },
	})
	require.NoError(t, err)

	contexts := config.NewContextStore(filepath.Join(t.TempDir(), "context.yaml"))
	m, err := NewModel(ModelConfig{
		Session:      session,
		ContextStore: contexts,
		InitialPeer:  initialPeer,
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	h := &harness{t: t, m: m, ch: ch, fetcher: fetcher, contexts: contexts, msgs: make(chan tea.Msg, 64)}
	h.update(tea.WindowSizeMsg{Width: 100, Height: 30})
	h.run(m.Init())
	h.settle()
	return h
}

func (h *harness) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() {
		if msg := cmd(); msg != nil {
			h.msgs <- msg
		}
	}()
}

func (h *harness) update(msg tea.Msg) {
	_, cmd := h.m.Update(msg)
	h.run(cmd)
}

// settle processes results until none arrive for a short while.
func (h *harness) settle() {
	h.t.Helper()
	for {
		select {
		case msg := <-h.msgs:
			switch msg := msg.(type) {
			case tea.BatchMsg:
				for _, cmd := range msg {
					h.run(cmd)
				}
			case chat.PageLoadedMsg, chat.ReceivedMsg, chat.DeletedMsg, chat.SentMsg,
				chat.ConnectionsLoadedMsg, chat.ConnectionStatusMsg:
				h.update(msg)
			}
		case <-time.After(150 * time.Millisecond):
			return
		}
	}
}

// press delivers a key and returns the resulting command unexecuted.
func (h *harness) press(key string) tea.Cmd {
	_, cmd := h.m.Update(keyMsg(key))
	return cmd
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "pgup":
		return tea.KeyMsg{Type: tea.KeyPgUp}
	case "end":
		return tea.KeyMsg{Type: tea.KeyEnd}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+p":
		return tea.KeyMsg{Type: tea.KeyCtrlP}
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyCtrlN}
	case "ctrl+d":
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func chatMsg(id, from string, minute int) models.Message {
	to := "A"
	if from == "A" {
		to = "me"
	}
	return models.Message{ID: id, FromID: from, ToID: to, Body: "body " + id, CreatedAt: base.Add(time.Duration(minute) * time.Minute)}
}

func conversation(prefix string, n, start int) []models.Message {
	out := make([]models.Message, 0, n)
	for i := 0; i < n; i++ {
		from := "A"
		if i%2 == 1 {
			from = "me"
		}
		out = append(out, chatMsg(fmt.Sprintf("%s%02d", prefix, i), from, start+i))
	}
	return out
}

func withPeers(f *testutil.StubFetcher) {
	f.SetPeers(models.Peer{ID: "A", FirstName: "Ada"}, models.Peer{ID: "B", FirstName: "Bo"})
	f.SetPage("A", 1, chatMsg("a1", "A", 1), chatMsg("a2", "me", 2))
}

func TestViewBeforeSize(t *testing.T) {
	session, err := chat.NewSession(chat.Options{Identity: "me", Channel: testutil.NewFakeChannel(), Fetcher: testutil.NewStubFetcher()})
	require.NoError(t, err)
	m, err := NewModel(ModelConfig{Session: session})
	require.NoError(t, err)
	defer m.Close()
	require.Equal(t, "loading…", m.View())
}

func TestNewModelRequiresSession(t *testing.T) {
	_, err := NewModel(ModelConfig{})
	require.Error(t, err)
}

func TestInitJoinsRoomAndListsPeers(t *testing.T) {
	h := newHarness(t, "", withPeers)

	require.Len(t, h.ch.SentEvents(transport.EventJoinRoom), 1)
	require.Len(t, h.m.session.Peers(), 2)
	view := h.m.View()
	require.Contains(t, view, "Ada")
	require.Contains(t, view, "Bo")
	require.Contains(t, view, "Select a connection to start chatting.")
	require.Contains(t, view, "online")
}

func TestPeerNavigationOpensConversation(t *testing.T) {
	h := newHarness(t, "", withPeers)

	h.press("j")
	require.Equal(t, 1, h.m.peerCursor)
	h.press("j")
	require.Equal(t, 1, h.m.peerCursor)
	h.press("k")
	require.Equal(t, 0, h.m.peerCursor)

	h.run(h.press("enter"))
	h.settle()

	require.Equal(t, "A", h.m.session.PeerID())
	require.Equal(t, paneChat, h.m.focus)
	require.Len(t, h.m.session.Messages(), 2)
	require.False(t, h.m.session.Cursor().HasMore)
	require.True(t, h.m.reconciler.AtBottom())

	view := h.m.View()
	require.Contains(t, view, "body a1")
	require.Contains(t, view, "Beginning of conversation")

	saved, err := h.contexts.Load()
	require.NoError(t, err)
	require.Equal(t, "A", saved.PeerID)
	require.Equal(t, "Ada", saved.PeerName)
}

func TestInitialPeerOpensOnInit(t *testing.T) {
	h := newHarness(t, "A", withPeers)

	require.Equal(t, "A", h.m.session.PeerID())
	require.Equal(t, paneChat, h.m.focus)
	require.Len(t, h.m.session.Messages(), 2)
}

func TestSendAppendsPendingAndReconcilesEcho(t *testing.T) {
	h := newHarness(t, "A", withPeers)

	h.m.input.SetValue("  hello there  ")
	h.run(h.press("enter"))
	h.settle()

	msgs := h.m.session.Messages()
	require.Len(t, msgs, 3)
	last := msgs[2]
	require.True(t, last.Pending)
	require.True(t, models.IsTempID(last.ID))
	require.Equal(t, "hello there", last.Body)
	require.Empty(t, h.m.input.Value())
	require.Contains(t, h.m.View(), "sending…")

	sent := h.ch.SentEvents(transport.EventSendMessage)
	require.Len(t, sent, 1)
	var payload models.SendPayload
	require.NoError(t, json.Unmarshal(sent[0].Payload, &payload))
	require.Equal(t, "me", payload.FromID)
	require.Equal(t, "A", payload.ToID)
	require.Equal(t, "hello there", payload.Message)
	require.Equal(t, last.ClientID, payload.ClientID)

	echo := models.Message{ID: "srv-1", ClientID: payload.ClientID, FromID: "me", ToID: "A", Body: "hello there", CreatedAt: base.Add(time.Hour)}
	require.NoError(t, h.ch.Deliver(transport.EventReceiveMessage, models.ToWire(echo)))
	h.settle()

	msgs = h.m.session.Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, "srv-1", msgs[2].ID)
	require.False(t, msgs[2].Pending)
	require.NotContains(t, h.m.View(), "sending…")
}

func TestBlankSendIsIgnored(t *testing.T) {
	h := newHarness(t, "A", withPeers)

	h.m.input.SetValue("   ")
	require.Nil(t, h.press("enter"))
	require.Len(t, h.m.session.Messages(), 2)
	require.Empty(t, h.m.notice)
	require.Empty(t, h.ch.SentEvents(transport.EventSendMessage))
}

func TestReceiveWhileScrolledUpKeepsPosition(t *testing.T) {
	h := newHarness(t, "A", func(f *testutil.StubFetcher) {
		f.SetPeers(models.Peer{ID: "A", FirstName: "Ada"})
		f.SetPage("A", 1, conversation("p", 20, 100)...)
	})
	require.True(t, h.m.reconciler.AtBottom())

	h.press("up")
	h.press("up")
	offset := h.m.reconciler.Offset()
	require.False(t, h.m.reconciler.AtBottom())

	require.NoError(t, h.ch.Deliver(transport.EventReceiveMessage, models.ToWire(chatMsg("n1", "A", 500))))
	h.settle()
	require.Len(t, h.m.session.Messages(), 21)
	require.Equal(t, offset, h.m.reconciler.Offset())

	h.press("end")
	require.True(t, h.m.reconciler.AtBottom())
	require.NoError(t, h.ch.Deliver(transport.EventReceiveMessage, models.ToWire(chatMsg("n2", "A", 501))))
	h.settle()
	require.True(t, h.m.reconciler.AtBottom())
}

func TestLoadOlderKeepsVisibleLinesAnchored(t *testing.T) {
	h := newHarness(t, "A", func(f *testutil.StubFetcher) {
		f.SetPeers(models.Peer{ID: "A", FirstName: "Ada"})
		f.SetPage("A", 1, conversation("p", 20, 100)...)
		f.SetPage("A", 2, conversation("q", 20, 0)...)
	})
	require.Equal(t, []testutil.PageKey{{Peer: "A", Page: 1}}, h.fetcher.Calls())

	var cmd tea.Cmd
	for i := 0; i < 20 && cmd == nil; i++ {
		cmd = h.press("pgup")
	}
	require.NotNil(t, cmd, "scrolling to the top should request older history")
	require.Equal(t, timeline.StatusLoadingMore, h.m.session.Status())
	require.Nil(t, h.press("pgup"), "a second request must wait for the first")

	beforeOffset := h.m.reconciler.Offset()
	beforeContent := h.m.reconciler.ContentHeight()
	beforeLines := strings.Split(h.m.viewport.View(), "\n")

	h.run(cmd)
	h.settle()

	require.Len(t, h.m.session.Messages(), 40)
	require.Equal(t, "q00", h.m.session.Messages()[0].ID)
	delta := h.m.reconciler.ContentHeight() - beforeContent
	require.Positive(t, delta)
	require.Equal(t, beforeOffset+delta, h.m.reconciler.Offset())
	require.Equal(t, h.m.reconciler.Offset(), h.m.viewport.YOffset)

	// Everything below the one-line banner stays exactly where it was.
	afterLines := strings.Split(h.m.viewport.View(), "\n")
	require.Equal(t, beforeLines[2:], afterLines[2:])
}

func TestDeleteSelectedMessage(t *testing.T) {
	h := newHarness(t, "A", withPeers)

	require.Nil(t, h.press("ctrl+d"))
	require.Contains(t, h.m.notice, "select a message")

	h.press("ctrl+p")
	require.Equal(t, 1, h.m.selected)
	h.press("ctrl+p")
	h.press("ctrl+p")
	require.Equal(t, 0, h.m.selected)
	h.press("ctrl+n")
	require.Equal(t, 1, h.m.selected)

	h.run(h.press("ctrl+d"))
	h.settle()

	require.Equal(t, []string{"a2"}, h.fetcher.Deleted())
	got := h.m.session.Messages()[1]
	require.True(t, got.Deleted)
	require.Contains(t, h.m.View(), "message deleted")
}

func TestDeletePendingMessageShowsNotice(t *testing.T) {
	h := newHarness(t, "A", withPeers)
	h.ch.SetConnected(false)
	h.settle()

	h.m.input.SetValue("queued")
	h.run(h.press("enter"))
	h.settle()

	h.press("ctrl+p")
	require.Nil(t, h.press("ctrl+d"))
	require.Equal(t, chat.ErrPendingMessage.Error(), h.m.notice)
	require.Empty(t, h.fetcher.Deleted())
}

func TestLoadFailureShowsNotice(t *testing.T) {
	h := newHarness(t, "", func(f *testutil.StubFetcher) {
		f.SetPeers(models.Peer{ID: "A", FirstName: "Ada"})
		f.FailPage("A", 1, errors.New("history unavailable"))
	})

	h.run(h.press("enter"))
	h.settle()

	require.Equal(t, timeline.StatusEmpty, h.m.session.Status())
	require.Contains(t, h.m.View(), "history unavailable")
	require.Nil(t, h.m.session.LastError())
}

func TestConnectionStatusInHeader(t *testing.T) {
	h := newHarness(t, "", withPeers)

	h.ch.SetConnected(false)
	h.settle()
	require.Contains(t, h.m.View(), "offline")

	h.ch.SetConnected(true)
	h.settle()
	require.Contains(t, h.m.View(), "online")
	require.Len(t, h.ch.SentEvents(transport.EventJoinRoom), 2)
}

func TestFocusKeys(t *testing.T) {
	h := newHarness(t, "A", withPeers)
	require.Equal(t, paneChat, h.m.focus)

	h.press("q")
	require.Equal(t, "q", h.m.input.Value(), "q types in the chat pane")

	h.press("esc")
	require.Equal(t, panePeers, h.m.focus)
	h.press("tab")
	require.Equal(t, paneChat, h.m.focus)
	h.press("tab")
	require.Equal(t, panePeers, h.m.focus)

	cmd := h.press("q")
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())

	cmd = h.press("ctrl+c")
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestNarrowTerminalShowsOnePane(t *testing.T) {
	h := newHarness(t, "A", withPeers)
	h.update(tea.WindowSizeMsg{Width: 40, Height: 20})

	require.Zero(t, h.m.widths.Peers)
	require.NotContains(t, h.m.View(), "Bo")

	h.press("esc")
	require.Contains(t, h.m.View(), "Bo")
}

func TestViewFitsTerminal(t *testing.T) {
	h := newHarness(t, "A", func(f *testutil.StubFetcher) {
		withPeers(f)
		f.SetPage("A", 1, conversation("c", 40, 0)...)
	})
	require.Len(t, h.m.session.Messages(), 40)

	for _, size := range []tea.WindowSizeMsg{{Width: 100, Height: 30}, {Width: 40, Height: 20}} {
		h.update(size)
		view := h.m.View()
		require.Equal(t, size.Height, lipgloss.Height(view), "%dx%d", size.Width, size.Height)
		require.Equal(t, size.Width, lipgloss.Width(view), "%dx%d", size.Width, size.Height)

		lines := strings.Split(view, "\n")
		require.Contains(t, lines[0], "matchchat")
		require.Contains(t, lines[0], "online")
		require.Contains(t, view, "body c39")
	}
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "", truncate("abc", 0))
	require.Equal(t, "abc", truncate("abc", 3))
	require.Equal(t, "ab…", truncate("abcdef", 3))
}
