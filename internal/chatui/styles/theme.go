// Package styles holds the matchchat TUI theme tokens and pre-built styles.
package styles

import "github.com/charmbracelet/lipgloss"

// BaseColors defines global UI colors.
type BaseColors struct {
	Background string
	Foreground string
	Muted      string
	Accent     string
	Border     string
}

// MessageColors defines colors for timeline entries.
type MessageColors struct {
	Own     string
	Other   string
	Pending string
	Deleted string
}

// StatusColors defines colors for connection and load state.
type StatusColors struct {
	Online  string
	Offline string
	Loading string
	Error   string
}

// ChromeColors defines non-content UI colors.
type ChromeColors struct {
	Header       string
	Footer       string
	SelectedItem string
}

// BorderColors defines border colors for pane state.
type BorderColors struct {
	ActivePane   string
	InactivePane string
}

// Theme defines the matchchat TUI style tokens.
type Theme struct {
	Name        string
	BorderStyle string   // "rounded", "sharp", "double", "hidden"
	PeerPalette []string // optional override for peer identity colors (ANSI-256 codes)

	Base    BaseColors
	Message MessageColors
	Status  StatusColors
	Chrome  ChromeColors
	Borders BorderColors
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	"default":       DefaultTheme,
	"high-contrast": HighContrastTheme,
}

// Lookup returns the named theme, falling back to DefaultTheme.
func Lookup(name string) Theme {
	if theme, ok := Themes[name]; ok {
		return theme
	}
	return DefaultTheme
}

// Muted renders secondary text.
func (t Theme) Muted() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Base.Muted))
}

// Accent renders highlighted text.
func (t Theme) Accent() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Base.Accent))
}

// Header renders the top bar.
func (t Theme) Header() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Chrome.Header)).Bold(true)
}

// Footer renders the bottom bar.
func (t Theme) Footer() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Chrome.Footer))
}

// Selected renders the highlighted list row.
func (t Theme) Selected() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Chrome.SelectedItem)).Bold(true)
}

// Connection renders the online/offline indicator.
func (t Theme) Connection(online bool) lipgloss.Style {
	if online {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Status.Online))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Status.Offline))
}

// Loading renders in-progress notices.
func (t Theme) Loading() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Status.Loading)).Italic(true)
}

// Error renders error notices.
func (t Theme) Error() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Status.Error)).Bold(true)
}
