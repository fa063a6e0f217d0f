package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/smart-inbox/internal/keys"
	"github.com/nhle/smart-inbox/internal/model"
	appsync "github.com/nhle/smart-inbox/internal/sync"
	"github.com/nhle/smart-inbox/internal/theme"
	"github.com/nhle/smart-inbox/internal/triage"
	"github.com/nhle/smart-inbox/internal/ui"
	"github.com/nhle/smart-inbox/internal/ui/detail"
	helpview "github.com/nhle/smart-inbox/internal/ui/help"
	"github.com/nhle/smart-inbox/internal/ui/inbox"
	"github.com/nhle/smart-inbox/internal/ui/pending"
	"github.com/nhle/smart-inbox/internal/ui/report"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewInbox ViewState = iota
	ViewDetail
	ViewPending
	ViewHelp
)

// Actions are the interactive operations the UI triggers.
type Actions interface {
	Classify(ctx context.Context, email model.EmailMessage) model.Judgement
	ScheduleOne(ctx context.Context, email model.EmailMessage, j model.Judgement, override *model.SlotRequest) (triage.SingleOutcome, error)
	Reply(ctx context.Context, email model.EmailMessage, body string) error
	Pending(ctx context.Context) ([]model.PendingConflict, error)
	AcceptPending(ctx context.Context, messageID string) (triage.SingleOutcome, error)
	FindAnother(ctx context.Context, messageID string) (*model.PendingConflict, error)
	CancelPending(ctx context.Context, messageID string) error
}

// Watcher feeds new mail into the UI.
type Watcher interface {
	Start() tea.Cmd
	Stop()
	Refresh()
	Status() appsync.SyncStatus
	WaitForNextResult() tea.Cmd
}

// classifiedMsg carries a re-classification of one email.
type classifiedMsg struct {
	result triage.ItemResult
}

// outcomeMsg carries the text result of an action on the shown email.
type outcomeMsg struct {
	text string
	err  error
}

// pendingLoadedMsg carries the current pending conflicts.
type pendingLoadedMsg struct {
	conflicts []model.PendingConflict
	err       error
}

// Model is the root Bubble Tea model that routes between the inbox, the
// email detail, the pending conflicts and the help overlay.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	actions      Actions
	watcher      Watcher

	inbox    inbox.Model
	detail   detail.Model
	pending  pending.Model
	helpView helpview.Model

	pendingCount int
	statusMsg    string
	authError    string
}

// New creates the root model.
func New(actions Actions, w Watcher) Model {
	km := keys.DefaultKeyMap()
	return Model{
		currentView: ViewInbox,
		layout:      ui.NewLayout(80, 24),
		keys:        km,
		actions:     actions,
		watcher:     w,
		inbox:       inbox.New(km, 80, 22),
		detail:      detail.New(km, 80, 22),
		pending:     pending.New(km, 80, 22),
		helpView:    helpview.New(km, 80, 22),
	}
}

// Init starts the inbox watcher and loads pending conflicts.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.watcher.Start(), m.loadPending())
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.inbox.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.pending.SetSize(w, h)
		m.helpView.SetSize(w, h)
		return m, nil

	case appsync.InboxMsg:
		m.authError = msg.AuthError
		if msg.Error != nil && msg.AuthError == "" {
			m.statusMsg = "mail check failed: " + msg.Error.Error()
		} else if len(msg.Results) > 0 {
			m.statusMsg = fmt.Sprintf("%d new email(s)", len(msg.Results))
		}
		return m, tea.Batch(m.inbox.Upsert(msg.All()), m.watcher.WaitForNextResult())

	case inbox.SelectedMsg:
		m.detail.Show(msg.Result)
		m.switchTo(ViewDetail)
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewInbox
		return m, nil

	case detail.ActionMsg:
		return m, m.runAction(msg)

	case classifiedMsg:
		m.detail.Show(msg.result)
		return m, m.inbox.Upsert([]triage.ItemResult{msg.result})

	case outcomeMsg:
		if msg.err != nil {
			m.detail.Note(theme.ErrorStyle.Render(msg.err.Error()))
		} else {
			m.detail.Note(msg.text)
		}
		return m, m.loadPending()

	case pendingLoadedMsg:
		if msg.err != nil {
			m.statusMsg = "loading conflicts failed: " + msg.err.Error()
			return m, nil
		}
		m.pendingCount = len(msg.conflicts)
		return m, m.pending.Set(msg.conflicts)

	case pending.DecisionMsg:
		return m, m.decide(msg)

	case pending.CloseMsg:
		m.currentView = ViewInbox
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.watcher.Stop()
			return m, tea.Quit
		}
		if m.currentView == ViewInbox && m.inbox.Filtering() {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit) && m.currentView != ViewDetail:
			m.watcher.Stop()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
			} else {
				m.switchTo(ViewHelp)
			}
			return m, nil
		case m.currentView == ViewHelp && key.Matches(msg, m.keys.Back):
			m.currentView = m.previousView
			return m, nil
		case m.currentView == ViewInbox && key.Matches(msg, m.keys.Refresh):
			m.watcher.Refresh()
			m.statusMsg = "checking mail…"
			return m, nil
		case m.currentView == ViewInbox && key.Matches(msg, m.keys.Pending):
			m.switchTo(ViewPending)
			return m, m.loadPending()
		}
	}

	return m.updateActiveView(msg)
}

func (m *Model) switchTo(v ViewState) {
	m.previousView = m.currentView
	m.currentView = v
}

// updateActiveView forwards msg to the active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case ViewInbox:
		m.inbox, cmd = m.inbox.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewPending:
		m.pending, cmd = m.pending.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}
	return m, cmd
}

func (m Model) runAction(msg detail.ActionMsg) tea.Cmd {
	actions := m.actions
	r := msg.Result
	switch msg.Action {
	case detail.ActionClassify:
		return func() tea.Msg {
			j := actions.Classify(context.Background(), r.Email)
			return classifiedMsg{result: triage.ItemResult{Email: r.Email, Judgement: j}}
		}
	case detail.ActionSchedule:
		return func() tea.Msg {
			out, err := actions.ScheduleOne(context.Background(), r.Email, r.Judgement, nil)
			if err != nil {
				return outcomeMsg{err: err}
			}
			if out.Pending != nil {
				return outcomeMsg{text: report.Pending(*out.Pending) + "\nPress p on the inbox to decide."}
			}
			return outcomeMsg{text: report.Booking(out.State, out.Result)}
		}
	case detail.ActionReply:
		return func() tea.Msg {
			if err := actions.Reply(context.Background(), r.Email, r.Judgement.Reply); err != nil {
				return outcomeMsg{err: err}
			}
			return outcomeMsg{text: theme.SuccessStyle.Render("Reply sent.")}
		}
	}
	return nil
}

func (m Model) decide(msg pending.DecisionMsg) tea.Cmd {
	actions := m.actions
	return func() tea.Msg {
		ctx := context.Background()
		var err error
		switch msg.Decision {
		case pending.Accept:
			_, err = actions.AcceptPending(ctx, msg.MessageID)
		case pending.Another:
			_, err = actions.FindAnother(ctx, msg.MessageID)
		case pending.Cancel:
			err = actions.CancelPending(ctx, msg.MessageID)
		}
		if err != nil && !errors.Is(err, model.ErrNoPending) {
			return pendingLoadedMsg{err: err}
		}
		list, err := actions.Pending(ctx)
		return pendingLoadedMsg{conflicts: list, err: err}
	}
}

func (m Model) loadPending() tea.Cmd {
	actions := m.actions
	return func() tea.Msg {
		list, err := actions.Pending(context.Background())
		return pendingLoadedMsg{conflicts: list, err: err}
	}
}

// View renders the full application frame.
func (m Model) View() string {
	header := m.layout.RenderHeader("Smart Inbox", ui.SyncLabel(m.watcher.Status(), m.pendingCount))
	return m.layout.RenderWithFrame(header, m.renderContent(), m.layout.RenderStatusBar(m.keyHints()))
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewDetail:
		return m.detail.View()
	case ViewPending:
		return m.pending.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return m.inbox.View()
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	// Show auth error prominently when present.
	if m.authError != "" && m.currentView == ViewInbox {
		return m.authError
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewDetail:
		return "esc back | c classify | s schedule | y reply | j/k scroll"
	case ViewPending:
		return "a accept | n another slot | x drop | esc back"
	default:
		if m.statusMsg != "" {
			return m.statusMsg + " | q quit | ? help"
		}
		return "q quit | ? help | enter open | r check mail | p pending | / filter"
	}
}
