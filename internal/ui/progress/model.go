// Package progress shows a progress bar while a batch runs.
package progress

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/smart-inbox/internal/theme"
	"github.com/nhle/smart-inbox/internal/triage"
)

// Job runs a batch, reporting each finished item.
type Job func(ctx context.Context, report triage.Progress) error

// StepMsg is sent after each finished item.
type StepMsg struct {
	Done  int
	Total int
}

// DoneMsg is sent when the job returns.
type DoneMsg struct {
	Err error
}

// Model renders a titled progress bar fed by a channel.
type Model struct {
	title    string
	bar      progress.Model
	steps    <-chan StepMsg
	done     <-chan DoneMsg
	current  StepMsg
	err      error
	finished bool
	cancel   context.CancelFunc
}

// New creates a progress model reading from steps and done.
func New(title string, steps <-chan StepMsg, done <-chan DoneMsg, cancel context.CancelFunc) Model {
	return Model{
		title:  title,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		steps:  steps,
		done:   done,
		cancel: cancel,
	}
}

// Init starts listening for job events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForStep(m.steps), waitForDone(m.done))
}

// Update handles job events and ctrl+c.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StepMsg:
		m.current = msg
		return m, waitForStep(m.steps)

	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		width := msg.Width - 10
		if width > 60 {
			width = 60
		}
		if width > 10 {
			m.bar.Width = width
		}
	}
	return m, nil
}

// View renders the bar with an item count.
func (m Model) View() string {
	count := fmt.Sprintf("%d/%d", m.current.Done, m.current.Total)
	status := theme.HelpStyle.Render("ctrl+c to stop")
	if m.finished {
		status = theme.SuccessStyle.Render("done")
		if m.err != nil {
			status = theme.ErrorStyle.Render(m.err.Error())
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		theme.HeaderStyle.Render(m.title),
		m.bar.ViewAs(m.Percent())+" "+count,
		status,
	) + "\n"
}

// Percent returns the completed fraction.
func (m Model) Percent() float64 {
	if m.current.Total == 0 {
		return 0
	}
	return float64(m.current.Done) / float64(m.current.Total)
}

// Err returns the job error once finished.
func (m Model) Err() error { return m.err }

func waitForStep(ch <-chan StepMsg) tea.Cmd {
	return func() tea.Msg {
		step, ok := <-ch
		if !ok {
			return nil
		}
		return step
	}
}

func waitForDone(ch <-chan DoneMsg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// Run executes job while showing a progress bar on out. With a nil out the
// job runs without a display.
func Run(ctx context.Context, title string, job Job, out io.Writer) error {
	if out == nil {
		return job(ctx, nil)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	steps := make(chan StepMsg, 16)
	done := make(chan DoneMsg, 1)

	go func() {
		err := job(ctx, func(n, total int) {
			select {
			case steps <- StepMsg{Done: n, Total: total}:
			default:
				// Drop intermediate steps rather than stall the batch.
			}
		})
		close(steps)
		done <- DoneMsg{Err: err}
	}()

	p := tea.NewProgram(New(title, steps, done, cancel), tea.WithOutput(out), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("running progress display: %w", err)
	}
	if m, ok := final.(Model); ok && m.finished {
		return m.Err()
	}
	return (<-done).Err
}
