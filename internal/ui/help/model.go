package help

import (
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/smart-inbox/internal/keys"
	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/slot"
	"github.com/nhle/smart-inbox/internal/theme"
)

// Model is the help overlay: key bindings followed by a legend of the
// action, priority and booking colours used elsewhere.
type Model struct {
	keys          *keys.KeyMap
	bindings      help.Model
	width, height int
}

func New(km *keys.KeyMap, width, height int) Model {
	m := Model{keys: km, bindings: help.New()}
	m.SetSize(width, height)
	return m
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(tea.Msg) (Model, tea.Cmd) { return m, nil }

func (m Model) View() string {
	heading := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginTop(1)

	m.bindings.ShowAll = true
	content := lipgloss.JoinVertical(lipgloss.Left,
		heading.UnsetMarginTop().Render("Keys"),
		m.bindings.View(m.keys),
		heading.Render("Actions"),
		legend(
			theme.ActionStyle(model.ActionScheduleMeet).Render(string(model.ActionScheduleMeet)),
			theme.ActionStyle(model.ActionReply).Render(string(model.ActionReply)),
			theme.ActionStyle(model.ActionIgnore).Render(string(model.ActionIgnore)),
		),
		heading.Render("Priority"),
		legend(
			theme.PriorityStyle(model.PriorityHigh).Render(string(model.PriorityHigh)),
			theme.PriorityStyle(model.PriorityNormal).Render(string(model.PriorityNormal)),
			theme.PriorityStyle(model.PriorityLow).Render(string(model.PriorityLow)),
		),
		heading.Render("Bookings"),
		legend(
			theme.StateStyle(slot.Confirmed).Render("booked"),
			theme.StateStyle(slot.ConflictAutoResolved).Render("moved to next free slot"),
			theme.StateStyle(slot.ConflictPending).Render("waiting for a decision (p)"),
		),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

func legend(items ...string) string {
	out := make([]string, 0, 2*len(items))
	for i, it := range items {
		if i > 0 {
			out = append(out, "   ")
		}
		out = append(out, it)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, out...)
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.bindings.Width = width - 4
}
