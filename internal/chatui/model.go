// Package chatui is the terminal front end for a chat session.
package chatui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/tOgg1/matchchat/internal/chat"
	"github.com/tOgg1/matchchat/internal/chatui/styles"
	"github.com/tOgg1/matchchat/internal/config"
	"github.com/tOgg1/matchchat/internal/logging"
	"github.com/tOgg1/matchchat/internal/models"
	"github.com/tOgg1/matchchat/internal/scroll"
	"github.com/tOgg1/matchchat/internal/timeline"
)

type pane int

const (
	panePeers pane = iota
	paneChat
)

const (
	defaultLoadMoreThreshold = 2
	headerHeight             = 1
	footerHeight             = 1
	inputHeight              = 1
	messageGap               = "\n\n"
	ownLabel                 = "you"
)

// ModelConfig wires a Model.
type ModelConfig struct {
	Session           *chat.Session
	Theme             string
	LoadMoreThreshold int
	ContextStore      *config.ContextStore
	InitialPeer       string
}

// Model is the bubbletea model: a peer list beside the selected conversation.
type Model struct {
	session   *chat.Session
	theme     styles.Theme
	styles    styles.MessageStyles
	threshold int
	contexts  *config.ContextStore
	initial   string
	logger    zerolog.Logger

	reconciler *scroll.Reconciler
	viewport   viewport.Model
	input      textinput.Model

	focus      pane
	peerCursor int
	// selected indexes the timeline entry targeted by delete; -1 for none.
	selected int
	notice   string

	width  int
	height int
	widths styles.ColumnWidths
}

// NewModel builds a model around an existing session.
func NewModel(cfg ModelConfig) (*Model, error) {
	if cfg.Session == nil {
		return nil, errors.New("chatui: session required")
	}
	threshold := cfg.LoadMoreThreshold
	if threshold <= 0 {
		threshold = defaultLoadMoreThreshold
	}
	theme := styles.Lookup(cfg.Theme)

	input := textinput.New()
	input.Placeholder = "Type a message…"
	input.CharLimit = models.MaxBodyLength
	input.Prompt = "› "

	return &Model{
		session:    cfg.Session,
		theme:      theme,
		styles:     styles.NewMessageStyles(theme, nil),
		threshold:  threshold,
		contexts:   cfg.ContextStore,
		initial:    strings.TrimSpace(cfg.InitialPeer),
		logger:     logging.Component("chatui"),
		reconciler: scroll.New(1),
		viewport:   viewport.New(0, 1),
		input:      input,
		selected:   -1,
	}, nil
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.session.Start(), textinput.Blink}
	if m.initial != "" {
		cmds = append(cmds, m.selectPeer(m.initial), m.focusChat())
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(typed.Width, typed.Height)
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(typed)

	case chat.InboxClosedMsg:
		return m, nil

	case chat.PageLoadedMsg, chat.ReceivedMsg, chat.DeletedMsg, chat.SentMsg,
		chat.ConnectionsLoadedMsg, chat.ConnectionStatusMsg:
		mut, cmd := m.session.Update(msg)
		if mut.Kind == timeline.MutationPrepend && m.selected >= 0 {
			m.selected += mut.Count
		}
		if _, ok := msg.(chat.ConnectionsLoadedMsg); ok {
			m.clampPeerCursor()
		}
		if err := m.session.LastError(); err != nil {
			m.notice = err.Error()
			m.session.ClearError()
		}
		return m, tea.Batch(cmd, m.refresh(mut.Kind))
	}

	if m.focus == paneChat {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	if msg.String() == "tab" {
		if m.focus == panePeers {
			return m.focusChat()
		}
		m.focusPeers()
		return nil
	}
	if m.focus == panePeers {
		return m.handlePeerKey(msg)
	}
	return m.handleChatKey(msg)
}

func (m *Model) handlePeerKey(msg tea.KeyMsg) tea.Cmd {
	peers := m.session.Peers()
	switch msg.String() {
	case "q":
		return tea.Quit
	case "j", "down":
		if m.peerCursor < len(peers)-1 {
			m.peerCursor++
		}
	case "k", "up":
		if m.peerCursor > 0 {
			m.peerCursor--
		}
	case "r":
		return m.session.LoadConnections()
	case "enter", "l":
		if m.peerCursor < len(peers) {
			cmd := m.selectPeer(peers[m.peerCursor].ID)
			return tea.Batch(cmd, m.focusChat())
		}
	}
	return nil
}

func (m *Model) handleChatKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.focusPeers()
		return nil
	case "enter":
		return m.send()
	case "up":
		m.reconciler.ScrollBy(-1)
		return m.syncViewport()
	case "down":
		m.reconciler.ScrollBy(1)
		return m.syncViewport()
	case "pgup":
		m.reconciler.ScrollBy(-m.reconciler.Height())
		return m.syncViewport()
	case "pgdown":
		m.reconciler.ScrollBy(m.reconciler.Height())
		return m.syncViewport()
	case "end":
		m.reconciler.ScrollToBottom()
		return m.syncViewport()
	case "ctrl+p":
		m.moveSelection(-1)
		return m.refresh(timeline.MutationUpdate)
	case "ctrl+n":
		m.moveSelection(1)
		return m.refresh(timeline.MutationUpdate)
	case "ctrl+d":
		return m.deleteSelected()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) selectPeer(peerID string) tea.Cmd {
	if peerID == m.session.PeerID() {
		return nil
	}
	cmd := m.session.SelectPeer(peerID)
	m.reconciler.Reset()
	m.selected = -1
	m.notice = ""
	m.rememberPeer(peerID)
	return tea.Batch(cmd, m.refresh(timeline.MutationNone))
}

func (m *Model) rememberPeer(peerID string) {
	if m.contexts == nil {
		return
	}
	ctx, err := m.contexts.Load()
	if err != nil {
		m.logger.Warn().Err(err).Msg("load context")
		return
	}
	name := ""
	if peer, ok := m.session.Peer(peerID); ok {
		name = peer.DisplayName()
	}
	ctx.SetPeer(peerID, name)
	if err := m.contexts.Save(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("save context")
	}
}

func (m *Model) send() tea.Cmd {
	mut, cmd, err := m.session.Send(m.input.Value())
	if err != nil {
		if !errors.Is(err, chat.ErrEmptyBody) {
			m.notice = err.Error()
		}
		return nil
	}
	m.input.Reset()
	m.notice = ""
	// Sending always follows the conversation to the bottom.
	m.reconciler.ScrollToBottom()
	return tea.Batch(cmd, m.refresh(mut.Kind))
}

func (m *Model) deleteSelected() tea.Cmd {
	msgs := m.session.Messages()
	if m.selected < 0 || m.selected >= len(msgs) {
		m.notice = "select a message with ctrl+p / ctrl+n first"
		return nil
	}
	cmd, err := m.session.Delete(msgs[m.selected].ID)
	if err != nil {
		m.notice = err.Error()
		return nil
	}
	return cmd
}

func (m *Model) moveSelection(delta int) {
	n := len(m.session.Messages())
	if n == 0 {
		m.selected = -1
		return
	}
	if m.selected < 0 {
		m.selected = n
	}
	m.selected += delta
	if m.selected < 0 {
		m.selected = 0
	}
	if m.selected >= n {
		m.selected = n - 1
	}
}

func (m *Model) focusChat() tea.Cmd {
	m.focus = paneChat
	return m.input.Focus()
}

func (m *Model) focusPeers() {
	m.focus = panePeers
	m.input.Blur()
}

func (m *Model) clampPeerCursor() {
	peers := m.session.Peers()
	if m.peerCursor >= len(peers) {
		m.peerCursor = len(peers) - 1
	}
	if m.peerCursor < 0 {
		m.peerCursor = 0
	}
	if current := m.session.PeerID(); current != "" {
		for i, p := range peers {
			if p.ID == current {
				m.peerCursor = i
			}
		}
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.widths = styles.ComputeColumnWidths(width)

	frameW, frameH := styles.PanelFrame(m.theme)
	chatInner := m.widths.Chat - frameW
	if chatInner < 1 {
		chatInner = 1
	}
	viewHeight := height - headerHeight - footerHeight - frameH - inputHeight
	if viewHeight < 1 {
		viewHeight = 1
	}

	m.viewport.Width = chatInner
	m.viewport.Height = viewHeight
	m.input.Width = chatInner - lipgloss.Width(m.input.Prompt) - 1
	m.reconciler.SetHeight(viewHeight)
	m.refresh(timeline.MutationNone)
}

// refresh re-renders the timeline, applies the anchoring policy for kind and
// requests older history when the viewport nears the top.
func (m *Model) refresh(kind timeline.MutationKind) tea.Cmd {
	content := m.renderTimeline()
	m.viewport.SetContent(content)
	m.reconciler.Apply(kind, lipgloss.Height(content))
	return m.syncViewport()
}

func (m *Model) syncViewport() tea.Cmd {
	m.viewport.SetYOffset(m.reconciler.Offset())
	if m.session.Status() != timeline.StatusReady {
		return nil
	}
	cursor := m.session.Cursor()
	if !m.reconciler.ShouldLoadMore(m.threshold, cursor.HasMore, m.session.InFlight()) {
		return nil
	}
	return m.session.LoadMore()
}

func (m *Model) renderTimeline() string {
	msgs := m.session.Messages()
	if len(msgs) == 0 {
		switch {
		case m.session.PeerID() == "":
			return m.theme.Muted().Render("Select a connection to start chatting.")
		case m.session.InFlight():
			return m.theme.Loading().Render("Loading conversation…")
		default:
			return m.theme.Muted().Render("No messages yet. Say hi!")
		}
	}

	if m.selected >= len(msgs) {
		m.selected = len(msgs) - 1
	}

	// The banner is always one line so prepends shift content by exactly the
	// height of the inserted messages.
	banner := m.theme.Muted().Render("Scroll up for older messages")
	switch {
	case m.session.Status() == timeline.StatusLoadingMore:
		banner = m.theme.Loading().Render("Loading older messages…")
	case !m.session.Cursor().HasMore:
		banner = m.theme.Muted().Render("Beginning of conversation")
	}
	var b strings.Builder
	b.WriteString(banner)
	b.WriteString(messageGap)

	width := m.viewport.Width
	self := m.session.Identity()
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString(messageGap)
		}
		own := msg.Mine(self)
		b.WriteString(m.styles.RenderMessage(msg, m.authorName(msg, own), own, i == m.selected, width))
	}
	return b.String()
}

func (m *Model) authorName(msg models.Message, own bool) string {
	if own {
		return ownLabel
	}
	if peer, ok := m.session.Peer(msg.FromID); ok {
		return peer.DisplayName()
	}
	return msg.FromID
}

func (m *Model) View() string {
	if m.width == 0 {
		return "loading…"
	}
	header := m.renderHeader()
	footer := m.renderFooter()
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if bodyHeight < 0 {
		bodyHeight = 0
	}

	chatPane := m.renderChatPane(bodyHeight)
	var body string
	if m.widths.Peers > 0 {
		peersPane := m.renderPeersPane(bodyHeight)
		body = lipgloss.JoinHorizontal(lipgloss.Top, peersPane, strings.Repeat(" ", styles.LayoutGap), chatPane)
	} else if m.focus == panePeers {
		body = m.renderPeersPaneWidth(m.width, bodyHeight)
	} else {
		body = chatPane
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) renderHeader() string {
	state := m.theme.Connection(m.session.Connected()).Render("● online")
	if !m.session.Connected() {
		state = m.theme.Connection(false).Render("○ offline")
	}
	title := m.theme.Header().Render("matchchat")
	who := m.theme.Muted().Render(" as " + m.session.Identity())
	line := title + who + "  " + state
	if peerID := m.session.PeerID(); peerID != "" {
		name := peerID
		if peer, ok := m.session.Peer(peerID); ok {
			name = peer.DisplayName()
		}
		line += "  " + m.styles.PeerColors.Badge(peerID).Render(" "+name+" ")
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(line)
}

func (m *Model) renderFooter() string {
	if m.notice != "" {
		return lipgloss.NewStyle().MaxWidth(m.width).Render(m.theme.Error().Render(m.notice))
	}
	help := "tab switch pane · j/k move · enter open · r refresh · q quit"
	if m.focus == paneChat {
		help = "enter send · ↑/↓ pgup/pgdn scroll · end bottom · ctrl+p/n select · ctrl+d delete · esc peers"
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(m.theme.Footer().Render(help))
}

func (m *Model) renderPeersPane(height int) string {
	return m.renderPeersPaneWidth(m.widths.Peers, height)
}

func (m *Model) renderPeersPaneWidth(width, height int) string {
	frameW, _ := styles.PanelFrame(m.theme)
	inner := width - frameW
	if inner < 1 {
		inner = 1
	}

	peers := m.session.Peers()
	lines := make([]string, 0, len(peers)+1)
	if len(peers) == 0 {
		lines = append(lines, m.theme.Muted().Render("No connections"))
	}
	current := m.session.PeerID()
	for i, peer := range peers {
		marker := "  "
		if peer.ID == current {
			marker = m.theme.Accent().Render("●") + " "
		}
		name := truncate(peer.DisplayName(), inner-lipgloss.Width(marker))
		line := marker + name
		if i == m.peerCursor && m.focus == panePeers {
			line = m.theme.Selected().Render(line)
		}
		lines = append(lines, line)
	}

	return styles.SizedPanel(m.theme, m.focus == panePeers, width, height).
		Render(strings.Join(lines, "\n"))
}

func (m *Model) renderChatPane(height int) string {
	content := lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), m.input.View())
	return styles.SizedPanel(m.theme, m.focus == paneChat, m.widths.Chat, height).
		Render(content)
}

// Close releases the session.
func (m *Model) Close() {
	m.session.Close()
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return fmt.Sprintf("%s…", string(runes))
}
