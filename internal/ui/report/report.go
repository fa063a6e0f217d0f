// Package report renders triage results for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/smart-inbox/internal/civiltime"
	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/slot"
	"github.com/nhle/smart-inbox/internal/store"
	"github.com/nhle/smart-inbox/internal/theme"
	"github.com/nhle/smart-inbox/internal/triage"
)

const (
	subjectWidth = 40
	summaryWidth = 60
)

// Classifications renders one row per classified email.
func Classifications(results []triage.ItemResult) string {
	rows := make([][]string, 0, len(results))
	for i, res := range results {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			clip(res.Email.From, 28),
			clip(res.Email.Subject, subjectWidth),
			string(res.Judgement.Action),
			string(res.Judgement.Priority),
			clip(res.Judgement.Summary, summaryWidth),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers("#", "FROM", "SUBJECT", "ACTION", "PRIORITY", "SUMMARY").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.LabelStyle.Padding(0, 1)
			}
			cell := lipgloss.NewStyle().Padding(0, 1)
			if row < 0 || row >= len(results) {
				return cell
			}
			switch col {
			case 3:
				return theme.ActionStyle(results[row].Judgement.Action)
			case 4:
				return theme.PriorityStyle(results[row].Judgement.Priority).Padding(0, 1)
			}
			return cell
		})

	return lipgloss.JoinVertical(lipgloss.Left,
		theme.HeaderStyle.Render(fmt.Sprintf("Inbox triage: %d emails", len(results))),
		t.String(),
		counts(results),
	)
}

func counts(results []triage.ItemResult) string {
	var meet, reply, ignore, failed int
	for _, res := range results {
		switch res.Judgement.Action {
		case model.ActionScheduleMeet:
			meet++
		case model.ActionReply:
			reply++
		default:
			ignore++
		}
		if res.Err != nil {
			failed++
		}
	}
	line := fmt.Sprintf("%d meetings, %d replies, %d ignored", meet, reply, ignore)
	if failed > 0 {
		line += theme.ErrorStyle.Render(fmt.Sprintf(", %d failed", failed))
	}
	return theme.HelpStyle.Render(line)
}

// Bookings renders the meetings booked in earlier runs.
func Bookings(records []store.BookingRecord) string {
	if len(records) == 0 {
		return theme.HelpStyle.Render("No meetings booked yet.")
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		moved := ""
		if rec.Result.HasConflict {
			moved = "moved from " + rec.Result.OriginalTime
		}
		rows = append(rows, []string{
			rec.MessageID,
			rec.Result.DateTimeFull,
			rec.Result.MeetingLink,
			moved,
		})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers("MESSAGE", "WHEN", "LINK", "NOTE").
		Rows(rows...)

	return lipgloss.JoinVertical(lipgloss.Left,
		theme.HeaderStyle.Render(fmt.Sprintf("Booked meetings: %d", len(records))),
		t.String(),
	)
}

// Judgement renders the full classification of one email.
func Judgement(email model.EmailMessage, j model.Judgement) string {
	var b strings.Builder
	field(&b, "From", email.From)
	field(&b, "Subject", email.Subject)
	b.WriteString(theme.LabelStyle.Render("Action: ") + theme.ActionStyle(j.Action).Render(string(j.Action)) + "\n")
	b.WriteString(theme.LabelStyle.Render("Priority: ") + theme.PriorityStyle(j.Priority).Render(string(j.Priority)) + "\n")
	field(&b, "Reason", j.Reason)
	field(&b, "Summary", j.Summary)
	if j.Date != "" || j.StartTime != "" {
		field(&b, "Requested", strings.TrimSpace(j.Date+" "+j.StartTime+" "+j.EndTime))
	}
	if j.Reply != "" {
		b.WriteString("\n" + theme.LabelStyle.Render("Drafted reply") + "\n" + j.Reply + "\n")
	}
	return theme.DetailPanelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// Batch renders a scheduling or reply run.
func Batch(title string, rep triage.BatchReport) string {
	rows := make([][]string, 0, len(rep.Items))
	for _, out := range rep.Items {
		rows = append(rows, []string{
			clip(out.Subject, subjectWidth),
			outcomeStatus(out),
			out.Result.DateTimeFull,
			out.Result.MeetingLink,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers("SUBJECT", "STATUS", "WHEN", "LINK").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.LabelStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	summary := fmt.Sprintf("%d total, %d succeeded, %d failed, %d conflicts",
		rep.Total, rep.Succeeded, rep.Failed, rep.Conflicts)
	style := theme.SuccessStyle
	if rep.Failed > 0 {
		style = theme.ErrorStyle
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		theme.HeaderStyle.Render(title),
		t.String(),
		style.Render(summary),
	)
}

func outcomeStatus(out triage.Outcome) string {
	switch {
	case out.Err != nil:
		return "failed: " + clip(out.Err.Error(), 40)
	case out.Result.Booked() && out.Result.HasConflict:
		return "rescheduled"
	case out.Result.Booked():
		return "booked"
	case out.Result.HasConflict:
		return "conflict: " + strings.Join(out.Result.ConflictingEvents, ", ")
	case out.Replied:
		return "replied"
	}
	return "skipped"
}

// Booking renders the outcome of a single scheduling action.
func Booking(state slot.State, res model.BookingResult) string {
	var b strings.Builder
	b.WriteString(theme.StateStyle(state).Render(stateLabel(state)) + "\n")
	field(&b, "When", res.DateTimeFull)
	if res.EndTimeLocal != "" && res.EndTimeLocal != civiltime.NotAvailable {
		field(&b, "Until", res.EndTimeLocal)
	}
	field(&b, "Meet link", res.MeetingLink)
	if len(res.ConflictingEvents) > 0 {
		field(&b, "Conflicts with", strings.Join(res.ConflictingEvents, ", "))
	}
	return theme.DetailPanelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// Pending renders a conflict awaiting a decision.
func Pending(p model.PendingConflict) string {
	var b strings.Builder
	field(&b, "Email", p.Email.Subject)
	field(&b, "Requested", p.RequestedTime)
	field(&b, "Conflicts with", strings.Join(p.ConflictingEvents, ", "))
	field(&b, "Next free slot", p.NextDate+", "+p.NextTime)
	return theme.DetailPanelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func stateLabel(s slot.State) string {
	switch s {
	case slot.Confirmed:
		return "Meeting booked"
	case slot.ConflictAutoResolved:
		return "Meeting moved to the next free slot"
	case slot.ConflictPending:
		return "Requested slot is busy"
	case slot.Requested:
		return "Free slot"
	}
	return s.String()
}

func field(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString(theme.LabelStyle.Render(label+": ") + value + "\n")
}

// clip shortens s to n runes on one line.
func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
