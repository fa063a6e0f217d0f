// Package inbox renders classified emails as a selectable list.
package inbox

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/smart-inbox/internal/keys"
	"github.com/nhle/smart-inbox/internal/triage"
)

// SelectedMsg asks the parent to open an email.
type SelectedMsg struct {
	Result triage.ItemResult
}

// Item adapts a classified email to list.DefaultItem.
type Item struct {
	Result triage.ItemResult
}

func (i Item) Title() string {
	subject := i.Result.Email.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	return fmt.Sprintf("%-14s %s", i.Result.Judgement.Action, subject)
}

func (i Item) Description() string {
	j := i.Result.Judgement
	return fmt.Sprintf("%s · %s · %s", i.Result.Email.From, j.Priority, j.Summary)
}

func (i Item) FilterValue() string {
	return i.Result.Email.Subject + " " + i.Result.Email.From
}

// Model is the inbox list view.
type Model struct {
	list list.Model
	keys *keys.KeyMap
}

// New creates an empty inbox list.
func New(km *keys.KeyMap, width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = "Inbox"
	l.SetShowHelp(false)
	l.SetStatusBarItemName("email", "emails")
	return Model{list: l, keys: km}
}

// Upsert puts results at the top of the list, replacing entries for the
// same message.
func (m *Model) Upsert(results []triage.ItemResult) tea.Cmd {
	if len(results) == 0 {
		return nil
	}
	replaced := make(map[string]bool, len(results))
	items := m.list.Items()
	for i, it := range items {
		for _, r := range results {
			if it.(Item).Result.Email.ID == r.Email.ID {
				items[i] = Item{Result: r}
				replaced[r.Email.ID] = true
			}
		}
	}

	var fresh []list.Item
	for _, r := range results {
		if !replaced[r.Email.ID] {
			fresh = append(fresh, Item{Result: r})
		}
	}
	return m.list.SetItems(append(fresh, items...))
}

// Selected returns the highlighted email.
func (m Model) Selected() (triage.ItemResult, bool) {
	it, ok := m.list.SelectedItem().(Item)
	if !ok {
		return triage.ItemResult{}, false
	}
	return it.Result, true
}

// Len returns the number of emails listed.
func (m Model) Len() int {
	return len(m.list.Items())
}

// Filtering reports whether the filter input has focus.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Update handles messages for the inbox list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && !m.Filtering() && key.Matches(km, m.keys.Select) {
		if r, ok := m.Selected(); ok {
			return m, func() tea.Msg { return SelectedMsg{Result: r} }
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list.
func (m Model) View() string {
	return m.list.View()
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
