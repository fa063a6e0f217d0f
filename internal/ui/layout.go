package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	appsync "github.com/nhle/smart-inbox/internal/sync"
	"github.com/nhle/smart-inbox/internal/theme"
)

// Layout manages the terminal frame: a header, the content area and a
// status bar.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height left for content.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// RenderHeader renders the title on the left and status on the right.
func (l Layout) RenderHeader(title, status string) string {
	left := theme.HeaderStyle.Render(title)
	right := theme.HeaderStyle.Align(lipgloss.Right).Render(status)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		left,
		l.filler(theme.HeaderStyle, lipgloss.Width(left)+lipgloss.Width(right)),
		right,
	)
}

// RenderStatusBar renders the bottom bar with a message or key hints.
func (l Layout) RenderStatusBar(text string) string {
	rendered := theme.StatusBarStyle.Render(text)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		rendered,
		l.filler(theme.StatusBarStyle, lipgloss.Width(rendered)),
	)
}

func (l Layout) filler(style lipgloss.Style, used int) string {
	gap := l.Width - used
	if gap < 0 {
		gap = 0
	}
	return style.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(style.GetBackground()).
			Render(""),
	)
}

// RenderWithFrame joins header, content and status bar vertically.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

// SyncLabel describes the poller state for the header.
func SyncLabel(st appsync.SyncStatus, pending int) string {
	var s string
	switch st.State {
	case appsync.SyncRunning:
		s = "checking mail…"
	case appsync.SyncError:
		s = "sync failed"
	default:
		if st.LastSync.IsZero() {
			s = "not synced"
		} else {
			s = "synced " + st.LastSync.Format(time.Kitchen)
		}
	}
	if pending > 0 {
		s = fmt.Sprintf("%s · %d pending", s, pending)
	}
	return s
}
