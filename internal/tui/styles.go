package tui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent = lipgloss.Color("#5B8DEF")
	colorBrand  = lipgloss.Color("#FF6B6B")
	colorMuted  = lipgloss.Color("#888888")
	colorFaint  = lipgloss.Color("#AAAAAA")
	colorBorder = lipgloss.Color("#444444")
	colorOK     = lipgloss.Color("#4CAF50")
	colorWarn   = lipgloss.Color("#F7B801")

	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorBrand).MarginBottom(1)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	hintStyle    = lipgloss.NewStyle().Foreground(colorFaint).MarginTop(1)
	okStyle      = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	lockedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	selectedLine = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(0, 1)
	errorBanner  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#B3261E")).Padding(0, 1)
	okBanner     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0B2E13")).Background(colorOK).Padding(0, 1)
)

// markdownRenderer caches glamour renderers per wrap width.
type markdownRenderer struct {
	mu    sync.Mutex
	cache map[int]*glamour.TermRenderer
}

var markdown = &markdownRenderer{cache: map[int]*glamour.TermRenderer{}}

// Render formats md for the terminal. Rendering failures fall back to the
// raw text.
func (m *markdownRenderer) Render(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 20 {
		width = 20
	}
	m.mu.Lock()
	r, ok := m.cache[width]
	if !ok {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			m.mu.Unlock()
			return md
		}
		m.cache[width] = r
	}
	m.mu.Unlock()
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func progressBar(percent, width int) string {
	if width < 10 {
		width = 10
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return lipgloss.NewStyle().Foreground(colorOK).Render(strings.Repeat("█", filled)) +
		lockedStyle.Render(strings.Repeat("░", width-filled))
}

func truncate(value string, width int) string {
	runes := []rune(value)
	if width <= 1 || len(runes) <= width {
		return value
	}
	return string(runes[:width-1]) + "…"
}
