package styles

import "github.com/charmbracelet/lipgloss"

const (
	// LayoutGap is the space between the peer list and the chat pane.
	LayoutGap = 1

	// LayoutInnerPadding is the horizontal panel content padding.
	LayoutInnerPadding = 1
)

const (
	minPeersWidth = 16
	maxPeersWidth = 28
	minChatWidth  = 32
)

// ColumnWidths defines responsive widths for the two panes. Peers is zero
// when the terminal is too narrow to show the list beside the chat.
type ColumnWidths struct {
	Peers int
	Chat  int
}

// ComputeColumnWidths splits totalWidth between the peer list and the chat.
func ComputeColumnWidths(totalWidth int) ColumnWidths {
	if totalWidth <= 0 {
		return ColumnWidths{}
	}
	peers := clampInt(totalWidth/4, minPeersWidth, maxPeersWidth)
	chat := totalWidth - peers - LayoutGap
	if chat < minChatWidth {
		return ColumnWidths{Chat: totalWidth}
	}
	return ColumnWidths{Peers: peers, Chat: chat}
}

// PanelStyle returns a focused/unfocused border style for panes.
func PanelStyle(theme Theme, focused bool) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(panelBorderStyle(theme)).
		BorderForeground(lipgloss.Color(panelBorderColor(theme, focused))).
		Padding(0, LayoutInnerPadding)
}

// SizedPanel returns a panel style whose rendered block is exactly width by
// height cells, border included.
func SizedPanel(theme Theme, focused bool, width, height int) lipgloss.Style {
	style := PanelStyle(theme, focused)
	w := width - style.GetHorizontalBorderSize()
	h := height - style.GetVerticalBorderSize()
	return style.Width(max(w, 1)).Height(max(h, 1))
}

// PanelFrame returns the horizontal and vertical space a panel border and
// padding consume.
func PanelFrame(theme Theme) (int, int) {
	return PanelStyle(theme, false).GetFrameSize()
}

func panelBorderColor(theme Theme, focused bool) string {
	if focused {
		return theme.Borders.ActivePane
	}
	return theme.Borders.InactivePane
}

func panelBorderStyle(theme Theme) lipgloss.Border {
	switch theme.BorderStyle {
	case "double":
		return lipgloss.DoubleBorder()
	case "sharp":
		return lipgloss.NormalBorder()
	case "hidden":
		return lipgloss.HiddenBorder()
	default:
		return lipgloss.RoundedBorder()
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
