// Package detail shows one email with its judgement and lets the user act
// on it.
package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/smart-inbox/internal/keys"
	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/theme"
	"github.com/nhle/smart-inbox/internal/triage"
)

// BackMsg signals the parent to navigate back to the inbox.
type BackMsg struct{}

// Action is a request the detail view makes of its parent.
type Action int

const (
	ActionClassify Action = iota
	ActionSchedule
	ActionReply
)

// ActionMsg signals the parent to act on the shown email.
type ActionMsg struct {
	Action Action
	Result triage.ItemResult
}

// Model is the email detail view component.
type Model struct {
	item     *triage.ItemResult
	notes    []string
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(km *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()
	return Model{viewport: vp, keys: km, width: width, height: height}
}

// Show replaces the shown email and clears earlier notes.
func (m *Model) Show(r triage.ItemResult) {
	m.item = &r
	m.notes = nil
	m.refresh()
	m.viewport.GotoTop()
}

// Note appends an outcome line below the email, e.g. a booking result.
func (m *Model) Note(text string) {
	m.notes = append(m.notes, text)
	m.refresh()
	m.viewport.GotoBottom()
}

// Current returns the shown email.
func (m Model) Current() (triage.ItemResult, bool) {
	if m.item == nil {
		return triage.ItemResult{}, false
	}
	return *m.item, true
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }
		case key.Matches(km, m.keys.Classify):
			return m, m.request(ActionClassify)
		case key.Matches(km, m.keys.Schedule):
			return m, m.request(ActionSchedule)
		case key.Matches(km, m.keys.Reply):
			return m, m.request(ActionReply)
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) request(a Action) tea.Cmd {
	if m.item == nil {
		return nil
	}
	r := *m.item
	return func() tea.Msg { return ActionMsg{Action: a, Result: r} }
}

// View renders the detail view.
func (m Model) View() string {
	if m.item == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No email selected")
	}
	return m.viewport.View()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderContent())
}

func (m Model) renderContent() string {
	if m.item == nil {
		return ""
	}
	e, j := m.item.Email, m.item.Judgement

	var sections []string
	sections = append(sections, lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render(e.Subject))
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top,
		theme.ActionStyle(j.Action).Render(string(j.Action)), "  ",
		theme.PriorityStyle(j.Priority).Render(string(j.Priority)),
	))
	sections = append(sections, "")

	sections = appendRows(sections, row("From", e.From))
	if !e.ReceivedAt.IsZero() {
		sections = appendRows(sections, row("Received", e.ReceivedAt.Format("2006-01-02 15:04")))
	}
	sections = appendRows(sections, row("Summary", j.Summary), row("Reason", j.Reason))
	if j.Action == model.ActionScheduleMeet {
		sections = appendRows(sections, row("Date", j.Date), row("Start", j.StartTime), row("End", j.EndTime))
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorSubtle).Render(strings.Repeat("─", min(max(m.width-4, 1), 80)))
	sections = append(sections, "", sep, "", e.Body)

	if j.Reply != "" {
		sections = append(sections, "", sep, "", theme.LabelStyle.Render("Drafted reply"), "", j.Reply)
	}
	if len(m.notes) > 0 {
		sections = append(sections, "", sep, "")
		sections = append(sections, m.notes...)
	}
	return strings.Join(sections, "\n")
}

func row(label, value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf("%s %s", theme.LabelStyle.Render(label+":"), value)
}

func appendRows(sections []string, rows ...string) []string {
	for _, r := range rows {
		if r != "" {
			sections = append(sections, r)
		}
	}
	return sections
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.refresh()
}
