// Package conflict asks the user what to do with a pending scheduling
// conflict.
package conflict

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"

	"github.com/nhle/smart-inbox/internal/model"
	"github.com/nhle/smart-inbox/internal/triage"
	"github.com/nhle/smart-inbox/internal/ui/report"
)

// Decision is the user's answer for one pending conflict.
type Decision string

const (
	Accept  Decision = "accept"
	Another Decision = "another"
	Cancel  Decision = "cancel"
	Skip    Decision = "skip"
)

// AskFunc asks for a decision on p.
type AskFunc func(p model.PendingConflict) (Decision, error)

// Session is the subset of triage.Session the prompt drives.
type Session interface {
	AcceptPending(ctx context.Context, messageID string) (triage.SingleOutcome, error)
	FindAnother(ctx context.Context, messageID string) (*model.PendingConflict, error)
	CancelPending(ctx context.Context, messageID string) error
}

// Ask shows a huh select for p.
func Ask(p model.PendingConflict) (Decision, error) {
	d := Accept
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Scheduling conflict").
				Description(report.Pending(p)),
			huh.NewSelect[Decision]().
				Title("What should happen to this meeting?").
				Options(
					huh.NewOption("Book the next free slot ("+p.NextTime+")", Accept),
					huh.NewOption("Find another slot", Another),
					huh.NewOption("Cancel this request", Cancel),
					huh.NewOption("Decide later", Skip),
				).
				Value(&d),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return Skip, nil
		}
		return "", fmt.Errorf("asking about %s: %w", p.MessageID, err)
	}
	return d, nil
}

// Resolve asks about p until the user books, cancels or skips it. Progress
// is written to out.
func Resolve(ctx context.Context, s Session, p model.PendingConflict, ask AskFunc, out io.Writer) (Decision, error) {
	for {
		d, err := ask(p)
		if err != nil {
			return "", err
		}

		switch d {
		case Accept:
			res, err := s.AcceptPending(ctx, p.MessageID)
			if err != nil {
				return "", err
			}
			fmt.Fprintln(out, report.Booking(res.State, res.Result))
			if !res.Replied {
				fmt.Fprintln(out, "Confirmation email was not sent.")
			}
			return Accept, nil

		case Another:
			next, err := s.FindAnother(ctx, p.MessageID)
			if err != nil {
				return "", err
			}
			p = *next

		case Cancel:
			if err := s.CancelPending(ctx, p.MessageID); err != nil {
				return "", err
			}
			fmt.Fprintf(out, "Cancelled meeting request %q.\n", p.Email.Subject)
			return Cancel, nil

		default:
			return Skip, nil
		}
	}
}
