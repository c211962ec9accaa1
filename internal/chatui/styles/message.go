package styles

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/tOgg1/matchchat/internal/models"
)

const (
	deletedPlaceholder = "message deleted"
	pendingBadge       = "sending…"
)

// MessageStyles contains pre-built styles for timeline rendering.
type MessageStyles struct {
	Theme      Theme
	PeerColors *PeerColorMapper

	Own       lipgloss.Style
	Timestamp lipgloss.Style
	Body      lipgloss.Style
	Pending   lipgloss.Style
	Deleted   lipgloss.Style
	Cursor    lipgloss.Style
}

// NewMessageStyles builds a reusable style set for messages.
func NewMessageStyles(theme Theme, mapper *PeerColorMapper) MessageStyles {
	if mapper == nil {
		mapper = NewPeerColorMapperWithPalette(theme.PeerPalette)
	}
	return MessageStyles{
		Theme:      theme,
		PeerColors: mapper,
		Own:        lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.Own)).Bold(true),
		Timestamp:  lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Muted)),
		Body:       lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Base.Foreground)),
		Pending:    lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.Pending)).Italic(true),
		Deleted:    lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Message.Deleted)).Italic(true),
		Cursor:     lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Chrome.SelectedItem)).Bold(true),
	}
}

// RenderHeader renders the author and timestamp line.
func (s MessageStyles) RenderHeader(author string, own bool, ts time.Time) string {
	name := strings.TrimSpace(author)
	if name == "" {
		name = "unknown"
	}
	var nameText string
	if own {
		nameText = s.Own.Render(name)
	} else {
		nameText = s.PeerColors.Foreground(name).Render(name)
	}
	if ts.IsZero() {
		return nameText
	}
	return nameText + " " + s.Timestamp.Render(ts.Local().Format("Jan 2 15:04"))
}

// RenderMessage renders one timeline entry: header, wrapped body, and the
// pending or deleted marker.
func (s MessageStyles) RenderMessage(msg models.Message, author string, own, selected bool, width int) string {
	header := s.RenderHeader(author, own, msg.CreatedAt)
	if msg.Pending {
		header += " " + s.Pending.Render(pendingBadge)
	}
	if selected {
		header = s.Cursor.Render("▸ ") + header
	}

	var body string
	if msg.Deleted {
		body = s.Deleted.Render(deletedPlaceholder)
	} else {
		body = s.RenderBody(msg.Body, width)
	}
	return header + "\n" + body
}

// RenderBody renders wrapped body text.
func (s MessageStyles) RenderBody(body string, width int) string {
	return s.Body.Render(wrapMessageBody(body, width))
}

func wrapMessageBody(body string, width int) string {
	if width <= 0 {
		return body
	}
	parts := strings.Split(body, "\n")
	for i := range parts {
		// Words longer than the line are split so no line overflows.
		parts[i] = wrap.String(wordwrap.String(parts[i], width), width)
	}
	return strings.Join(parts, "\n")
}
