package detail

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/smart-inbox/internal/keys"
	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/triage"
)

var shown = triage.ItemResult{
	Email: model.EmailMessage{ID: "m1", From: "alice@example.com", Subject: "Roadmap", Body: "Can we meet?"},
	Judgement: model.Judgement{
		Action:   model.ActionScheduleMeet,
		Priority: model.PriorityHigh,
		Summary:  "wants a call",
		Date:     "2025-12-27",
		Reply:    "Sure.",
	},
}

func TestContentAndNotes(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 30)
	m.Show(shown)
	m.Note("Booked for 27 December 2025")

	out := m.renderContent()
	for _, want := range []string{"Roadmap", "alice@example.com", "wants a call", "2025-12-27", "Can we meet?", "Sure.", "Booked for"} {
		if !strings.Contains(out, want) {
			t.Fatalf("content lacks %q:\n%s", want, out)
		}
	}

	m.Show(shown)
	if strings.Contains(m.renderContent(), "Booked for") {
		t.Fatal("Show did not clear notes")
	}
}

func TestActionKeys(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 30)
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}}); cmd != nil {
		t.Fatal("action without an email")
	}

	m.Show(shown)
	for r, want := range map[rune]Action{'c': ActionClassify, 's': ActionSchedule, 'y': ActionReply} {
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		msg, ok := cmd().(ActionMsg)
		if !ok || msg.Action != want || msg.Result.Email.ID != "m1" {
			t.Fatalf("%c -> %+v", r, msg)
		}
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if _, ok := cmd().(BackMsg); !ok {
		t.Fatal("esc did not go back")
	}
}
