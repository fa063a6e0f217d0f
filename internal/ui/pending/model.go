// Package pending lists scheduling conflicts awaiting a decision.
package pending

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/smart-inbox/internal/keys"
	"github.com/nhle/smart-inbox/internal/model"
)

// Decision is what the user chose for the highlighted conflict.
type Decision int

const (
	Accept Decision = iota
	Another
	Cancel
)

// DecisionMsg asks the parent to apply a decision to a conflict.
type DecisionMsg struct {
	Decision  Decision
	MessageID string
}

// CloseMsg asks the parent to leave the pending view.
type CloseMsg struct{}

// Item adapts a pending conflict to list.DefaultItem.
type Item struct {
	Conflict model.PendingConflict
}

func (i Item) Title() string {
	return fmt.Sprintf("%s: offered %s %s", i.Conflict.Email.Subject, i.Conflict.NextDate, i.Conflict.NextTime)
}

func (i Item) Description() string {
	return fmt.Sprintf("asked for %s · busy: %s",
		i.Conflict.RequestedTime, strings.Join(i.Conflict.ConflictingEvents, ", "))
}

func (i Item) FilterValue() string { return i.Conflict.Email.Subject }

// Model is the pending conflicts view.
type Model struct {
	list list.Model
	keys *keys.KeyMap
}

// New creates an empty pending list.
func New(km *keys.KeyMap, width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = "Pending conflicts"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetStatusBarItemName("conflict", "conflicts")
	return Model{list: l, keys: km}
}

// Set replaces the listed conflicts.
func (m *Model) Set(conflicts []model.PendingConflict) tea.Cmd {
	items := make([]list.Item, len(conflicts))
	for i, c := range conflicts {
		items[i] = Item{Conflict: c}
	}
	return m.list.SetItems(items)
}

// Len returns the number of conflicts listed.
func (m Model) Len() int {
	return len(m.list.Items())
}

// Update handles messages for the pending view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, m.keys.Back):
			return m, func() tea.Msg { return CloseMsg{} }
		case key.Matches(km, m.keys.Accept):
			return m, m.decide(Accept)
		case key.Matches(km, m.keys.Another):
			return m, m.decide(Another)
		case key.Matches(km, m.keys.Cancel):
			return m, m.decide(Cancel)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) decide(d Decision) tea.Cmd {
	it, ok := m.list.SelectedItem().(Item)
	if !ok {
		return nil
	}
	id := it.Conflict.MessageID
	return func() tea.Msg { return DecisionMsg{Decision: d, MessageID: id} }
}

// View renders the list.
func (m Model) View() string {
	return m.list.View()
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
